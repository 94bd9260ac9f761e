// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers implements the HTTP endpoints of the advisor API.
//
// Every handler is a constructor that closes over its dependencies and
// returns a gin.HandlerFunc, so the route table in routes.Setup reads as
// a plain wiring list. Responses use the envelopes from the datatypes
// package: successes wrap their payload in {"status": "success", "data"},
// failures carry {"status": "error", "message"}.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/datatypes"
)

var tracer = otel.Tracer("ayurveda.orchestrator.handlers")

// analyticsDisabled answers endpoints that need the usage tracker when
// the service runs without one.
func analyticsDisabled(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, datatypes.Failure("usage analytics are not enabled"))
}

// knowledgeBaseDisabled answers endpoints that need the vector store
// when the service runs in lightweight mode.
func knowledgeBaseDisabled(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, datatypes.Failure("the knowledge base is not configured"))
}
