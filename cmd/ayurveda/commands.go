// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is stamped at build time via
// -ldflags "-X main.version=v1.2.3".
var version = "dev"

var (
	configFile  string
	ginMode     string
	traceStdout bool

	resumeSessionID string
	chatUserID      string
	showToolTrace   bool

	rootCmd = &cobra.Command{
		Use:   "ayurveda",
		Short: "A cli to run and talk to the Ayurveda advisor",
		Long: `Ayurveda bundles the advisor service and its operator tooling:
start the orchestrator, chat with it, take the dosha questionnaire
offline, and manage conversation sessions.`,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the orchestrator HTTP server",
		Run:   runServe, // Defined in cmd_serve.go
	}

	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat with a running orchestrator",
		Run:   runChat, // Defined in cmd_chat.go
	}

	quizCmd = &cobra.Command{
		Use:   "quiz",
		Short: "Take the dosha constitution questionnaire",
		Long: `Runs the twelve-question dosha assessment in the terminal and
scores it locally, no server required. The scoring matches the
/v1/dosha/quiz endpoint exactly.`,
		RunE: runQuiz, // Defined in cmd_quiz.go
	}

	sessionCmd = &cobra.Command{
		Use:   "session",
		Short: "Manage conversation sessions",
	}
	listSessionsCmd = &cobra.Command{
		Use:   "list",
		Short: "List live conversation sessions",
		Run:   runListSessions, // Defined in cmd_sessions.go
	}
	deleteSessionCmd = &cobra.Command{
		Use:   "delete [session_id]",
		Short: "Delete a conversation session",
		Args:  cobra.ExactArgs(1),
		Run:   runDeleteSession, // Defined in cmd_sessions.go
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&configFile, "config", "",
		"Path to a YAML settings file (default $ORCHESTRATOR_CONFIG_FILE)")
	serveCmd.Flags().StringVar(&ginMode, "gin-mode", "",
		"Gin mode: release, debug or test")
	serveCmd.Flags().BoolVar(&traceStdout, "trace-stdout", false,
		"Print trace spans to stdout instead of exporting them")

	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&resumeSessionID, "resume", "",
		"Resume a conversation using a specific session ID.")
	chatCmd.Flags().StringVar(&chatUserID, "user", "",
		"User ID to attach to the conversation")
	chatCmd.Flags().BoolVar(&showToolTrace, "tools", false,
		"Show which tools each reply used")

	rootCmd.AddCommand(quizCmd)

	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(listSessionsCmd)
	sessionCmd.AddCommand(deleteSessionCmd)

	rootCmd.AddCommand(versionCmd)
}
