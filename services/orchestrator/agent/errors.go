// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/observability"
)

// ErrEmptyMessage rejects a turn whose message is blank.
var ErrEmptyMessage = errors.New("invalid input: message is empty")

// turnError is the classified form of a turn failure: a user-facing
// message plus the labels the error path reports.
type turnError struct {
	// Code is the metrics label for the failure class.
	Code observability.ErrorCode

	// Message is the reply text shown to the user.
	Message string

	// ErrorID is set only for unclassified failures, where Message
	// quotes it for support lookups.
	ErrorID string

	// Recoverable is true when resending the same message may succeed.
	Recoverable bool
}

// classify maps an internal error to the reply the user sees.
//
// # Description
//
// Classification is pattern matching over the error text, in priority
// order: connectivity, provider quota, input validation, then a generic
// apology carrying a short opaque error id. The id is derived from the
// failure time and error text, so the same incident reported twice gets
// the same id while internals stay hidden.
func classify(err error, now time.Time) turnError {
	if errors.Is(err, context.Canceled) {
		return turnError{
			Code: observability.ErrorCodeClientDisconnect,
			Message: "I'm having trouble connecting to one of our services. " +
				"Please check your internet connection and try again in a moment.",
			Recoverable: true,
		}
	}

	msg := strings.ToLower(err.Error())

	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(msg, "connection") || strings.Contains(msg, "timeout") {
		return turnError{
			Code: observability.ErrorCodeTimeout,
			Message: "I'm having trouble connecting to one of our services. " +
				"Please check your internet connection and try again in a moment.",
			Recoverable: true,
		}
	}

	if strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota") {
		return turnError{
			Code: observability.ErrorCodeRateLimit,
			Message: "I've reached my limit for processing requests right now. " +
				"Please wait a few minutes and try again. Thank you for your patience!",
			Recoverable: true,
		}
	}

	if strings.Contains(msg, "validation") || strings.Contains(msg, "invalid") {
		return turnError{
			Code: observability.ErrorCodeValidation,
			Message: "I couldn't understand your request. Could you please rephrase it? " +
				"Here's what went wrong: " + msg,
		}
	}

	id := errorID(now, err)
	return turnError{
		Code: observability.ErrorCodeInternal,
		Message: fmt.Sprintf("I'm sorry, I encountered an unexpected error while processing "+
			"your request. (Error ID: %s) Please try again in a moment. If the problem "+
			"persists, you can reference this error ID when contacting support.", id),
		ErrorID: id,
	}
}

// errorID derives the short opaque id quoted in default error replies.
func errorID(now time.Time, err error) string {
	sum := sha256.Sum256([]byte(now.UTC().Format(time.RFC3339Nano) + err.Error()))
	return hex.EncodeToString(sum[:])[:8]
}
