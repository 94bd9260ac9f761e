// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator"
)

// runServe assembles and runs the orchestrator. Settings come from the
// environment, overlaid with the --config file when one is given; the
// file is then watched so TTL and ranking changes apply without a
// restart.
func runServe(cmd *cobra.Command, args []string) {
	path := configFile
	if path == "" {
		path = os.Getenv("ORCHESTRATOR_CONFIG_FILE")
	}

	svc, err := orchestrator.New(orchestrator.Config{
		ConfigFile:  path,
		GinMode:     ginMode,
		TraceStdout: traceStdout,
		Version:     version,
	})
	if err != nil {
		log.Fatalf("Failed to create orchestrator: %v", err)
	}

	if err := svc.Run(); err != nil {
		slog.Error("Orchestrator stopped", "error", err)
		os.Exit(1)
	}
}
