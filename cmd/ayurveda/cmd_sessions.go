// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// runListSessions prints the live sessions, most recently active first.
func runListSessions(cmd *cobra.Command, args []string) {
	client := newAPIClient(serverBaseURL())

	data, err := client.ListSessions(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, chatErrorStyle.Render(err.Error()))
		os.Exit(1)
	}

	if data.Count == 0 {
		fmt.Println("No live sessions.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tUSER\tMESSAGES\tLAST ACTIVE")
	for _, s := range data.Sessions {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			s.SessionID, s.UserID, s.MessageCount, humanAge(time.Since(s.LastActive)))
	}
	w.Flush()
}

// runDeleteSession drops one session by id.
func runDeleteSession(cmd *cobra.Command, args []string) {
	client := newAPIClient(serverBaseURL())

	if err := client.DeleteSession(context.Background(), args[0]); err != nil {
		fmt.Fprintln(os.Stderr, chatErrorStyle.Render(err.Error()))
		os.Exit(1)
	}
	fmt.Println("Deleted session " + args[0])
}

// humanAge renders a duration the way an operator scans a listing:
// coarse, largest unit only.
func humanAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
