// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/datatypes"
)

// Terminal styles for the chat transcript. Greens for the advisor,
// faint for chrome, warm red for failures.
var (
	chatTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2E7D32"))
	chatAdvisorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#66BB6A"))
	chatFaintStyle   = lipgloss.NewStyle().Faint(true)
	chatErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#D84315"))
)

// runChat drives an interactive conversation against a running
// orchestrator. The session id from the first reply is reused for every
// following turn so the server keeps one continuous conversation.
func runChat(cmd *cobra.Command, args []string) {
	client := newAPIClient(serverBaseURL())
	reader := newInputReader()
	defer reader.Close()

	fmt.Println(chatTitleStyle.Render("Ayurveda advisor") + chatFaintStyle.Render("  ("+client.baseURL+")"))
	fmt.Println(chatFaintStyle.Render(`Type "exit" or "quit" to leave, "/new" to start a fresh session.`))

	sessionID := resumeSessionID
	if sessionID != "" {
		fmt.Println(chatFaintStyle.Render("Resuming session " + sessionID))
	}

	for {
		line, err := reader.ReadLine("you> ")
		if errors.Is(err, io.EOF) {
			fmt.Println()
			return
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, chatErrorStyle.Render("read input: "+err.Error()))
			return
		}

		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			fmt.Println(chatFaintStyle.Render("Be well."))
			return
		case "/new":
			sessionID = ""
			fmt.Println(chatFaintStyle.Render("Starting a fresh session."))
			continue
		}

		resp, err := client.Chat(context.Background(), datatypes.ChatRequest{
			Message:   line,
			SessionID: sessionID,
			UserID:    chatUserID,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, chatErrorStyle.Render(err.Error()))
			continue
		}
		sessionID = resp.SessionID

		fmt.Println(chatAdvisorStyle.Render("advisor>") + " " + resp.Response)
		if showToolTrace {
			printToolTrace(resp.Metrics.ToolUsage, resp.Metadata.FallbackUsed)
		}
	}
}

// printToolTrace summarizes which tools the turn used, in stable order.
func printToolTrace(usage map[string]int, fallback bool) {
	if len(usage) == 0 && !fallback {
		fmt.Println(chatFaintStyle.Render("  tools: none"))
		return
	}

	names := make([]string, 0, len(usage))
	for name := range usage {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names)+1)
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s x%d", name, usage[name]))
	}
	if fallback {
		parts = append(parts, "web-search fallback")
	}
	fmt.Println(chatFaintStyle.Render("  tools: " + strings.Join(parts, ", ")))
}
