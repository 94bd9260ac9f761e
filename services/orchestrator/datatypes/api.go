// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides the wire types of the orchestrator API.
//
// Every endpoint wraps its payload in the same envelope: successful
// responses carry {"status": "success", "data": ...} and failures carry
// {"status": "error", "message": ...}. Request structs use gin binding
// tags; the custom dosha and season validators must be registered on
// gin's binding engine via RegisterValidators before the first request
// is bound.
package datatypes

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	// StatusSuccess marks a fulfilled request.
	StatusSuccess = "success"

	// StatusError marks a failed request.
	StatusError = "error"
)

// Envelope is the uniform success payload.
type Envelope struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// ErrorEnvelope is the uniform failure payload. Detail carries the
// underlying error text when it is safe to expose.
type ErrorEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Success wraps data in a success envelope.
func Success(data any) Envelope {
	return Envelope{Status: StatusSuccess, Data: data}
}

// Failure builds an error envelope with just a message.
func Failure(message string) ErrorEnvelope {
	return ErrorEnvelope{Status: StatusError, Message: message}
}

// FailureWithDetail builds an error envelope that also carries the
// underlying error text.
func FailureWithDetail(message string, err error) ErrorEnvelope {
	e := ErrorEnvelope{Status: StatusError, Message: message}
	if err != nil {
		e.Detail = err.Error()
	}
	return e
}

// DoshaNames are the constitution types the dosha validator accepts,
// lowercase.
var DoshaNames = []string{"vata", "pitta", "kapha"}

// SeasonNames are the seasons the season validator accepts, matching
// what the weather service derives from current conditions.
var SeasonNames = []string{"spring", "summer", "monsoon", "winter"}

// RegisterValidators registers the custom binding validators on v.
// Call it once with gin's binding engine during router setup.
//
//	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
//	    datatypes.RegisterValidators(v)
//	}
func RegisterValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("dosha", validateDosha); err != nil {
		return err
	}
	return v.RegisterValidation("season", validateSeason)
}

func validateDosha(fl validator.FieldLevel) bool {
	return containsFold(DoshaNames, fl.Field().String())
}

func validateSeason(fl validator.FieldLevel) bool {
	return containsFold(SeasonNames, fl.Field().String())
}

func containsFold(set []string, value string) bool {
	for _, s := range set {
		if strings.EqualFold(s, value) {
			return true
		}
	}
	return false
}
