// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/datatypes"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/dosha"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/middleware"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/ranking"
)

// QuestionListData is the payload of the questionnaire endpoint.
type QuestionListData struct {
	Questions []dosha.Question `json:"questions"`
	Count     int              `json:"count"`
}

// DoshaQuiz scores a full questionnaire submission.
//
// When the caller is identified, the primary dosha is stored as a
// preference so later recommendation requests pick it up without the
// client resending it.
func DoshaQuiz(calc *dosha.Calculator, profiles *ranking.ProfileStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := tracer.Start(c.Request.Context(), "DoshaQuiz")
		defer span.End()

		var req datatypes.QuizRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.JSON(http.StatusBadRequest, datatypes.FailureWithDetail("invalid quiz submission", err))
			return
		}

		result := calc.Calculate(req.Responses)
		userID := middleware.UserID(c, req.UserID)
		if profiles != nil && result.PrimaryDosha != "" {
			profiles.SetPreference(userID, "dosha", strings.ToLower(string(result.PrimaryDosha)))
		}
		slog.Info("Scored dosha quiz",
			"user_id", userID,
			"primary", result.PrimaryDosha,
			"confidence", result.Confidence)
		c.JSON(http.StatusOK, datatypes.Success(result))
	}
}

// DoshaQuestions returns the questionnaire in presentation order.
func DoshaQuestions(calc *dosha.Calculator) gin.HandlerFunc {
	return func(c *gin.Context) {
		questions := calc.Questions()
		c.JSON(http.StatusOK, datatypes.Success(QuestionListData{
			Questions: questions,
			Count:     len(questions),
		}))
	}
}

// AnalyzeSymptoms maps reported symptoms to dosha imbalances.
func AnalyzeSymptoms(analyzer *dosha.SymptomAnalyzer) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := tracer.Start(c.Request.Context(), "AnalyzeSymptoms")
		defer span.End()

		var req datatypes.SymptomRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.JSON(http.StatusBadRequest, datatypes.FailureWithDetail("invalid symptom list", err))
			return
		}
		c.JSON(http.StatusOK, datatypes.Success(analyzer.Analyze(req.Symptoms)))
	}
}
