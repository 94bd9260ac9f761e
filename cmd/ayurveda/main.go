// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command ayurveda is the advisor's command line.
//
// It bundles the HTTP service and the operator tooling in one binary:
//
//	ayurveda serve            start the orchestrator HTTP server
//	ayurveda chat             talk to a running orchestrator
//	ayurveda quiz             take the dosha questionnaire offline
//	ayurveda session list     list live conversation sessions
//	ayurveda session delete   drop a conversation session
//	ayurveda version          print the build version
//
// Client commands reach the server named by AYURVEDA_SERVER_URL
// (default http://localhost:8080).
//
// Logging is configured through AYURVEDA_LOG_LEVEL (debug, info, warn,
// error), AYURVEDA_LOG_JSON (true switches stderr to JSON) and
// AYURVEDA_LOG_DIR (enables an additional JSON file log).
package main

import (
	"log"
	"os"

	"github.com/Anindya-Paul07/Ayurveda/pkg/logging"
)

func main() {
	lg, err := logging.New(logging.Config{
		Level:   logging.ParseLevel(os.Getenv("AYURVEDA_LOG_LEVEL")),
		LogDir:  os.Getenv("AYURVEDA_LOG_DIR"),
		Service: "ayurveda",
		JSON:    os.Getenv("AYURVEDA_LOG_JSON") == "true",
	})
	if err != nil {
		// A bad log dir should not keep the CLI down.
		log.Printf("file logging unavailable: %v", err)
		lg = logging.Default()
	}
	defer lg.Close()
	lg.InstallDefault()

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
