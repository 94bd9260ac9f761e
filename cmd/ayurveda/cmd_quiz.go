// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/dosha"
)

var (
	quizQuestionStyle = lipgloss.NewStyle().Bold(true)
	quizHeadingStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2E7D32"))
)

// runQuiz walks the dosha questionnaire in the terminal and scores it
// locally with the same calculator the /v1/dosha/quiz endpoint uses. On a
// TTY the questions render as a huh form; piped input falls back to
// numbered prompts. Skipped questions are simply left out of the scoring.
func runQuiz(cmd *cobra.Command, args []string) error {
	calc := dosha.NewCalculator()
	questions := calc.Questions()

	fmt.Println(chatTitleStyle.Render("Dosha constitution questionnaire"))

	var (
		responses map[string]string
		err       error
	)
	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		responses, err = askForm(questions)
	} else {
		responses, err = askPlain(questions)
	}
	if err != nil {
		return err
	}

	if len(responses) == 0 {
		fmt.Println(chatFaintStyle.Render("Nothing answered, nothing to score."))
		return nil
	}

	printQuizResult(calc.Calculate(responses))
	return nil
}

// askForm renders the full questionnaire as one huh form, one select per
// question, each with a trailing skip option.
func askForm(questions []dosha.Question) (map[string]string, error) {
	answers := make([]string, len(questions))

	groups := make([]*huh.Group, 0, len(questions))
	for i, q := range questions {
		options := make([]huh.Option[string], 0, len(q.Options)+1)
		for _, opt := range q.Options {
			options = append(options, huh.NewOption(opt.Text, opt.Value))
		}
		options = append(options, huh.NewOption("Skip this question", ""))

		groups = append(groups, huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("%d/%d  %s", i+1, len(questions), q.Text)).
				Options(options...).
				Value(&answers[i]),
		))
	}

	if err := huh.NewForm(groups...).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil, nil
		}
		return nil, fmt.Errorf("questionnaire form: %w", err)
	}

	responses := make(map[string]string, len(questions))
	for i, q := range questions {
		if answers[i] != "" {
			responses[q.ID] = answers[i]
		}
	}
	return responses, nil
}

// askPlain reads numbered answers line by line, for piped input and
// terminals without TTY support.
func askPlain(questions []dosha.Question) (map[string]string, error) {
	reader := newInputReader()
	defer reader.Close()

	fmt.Println(chatFaintStyle.Render("Answer with an option number, or press Enter to skip a question."))
	fmt.Println()

	responses := make(map[string]string, len(questions))
	for i, q := range questions {
		fmt.Println(quizQuestionStyle.Render(fmt.Sprintf("%d/%d  %s", i+1, len(questions), q.Text)))
		for j, opt := range q.Options {
			fmt.Printf("  %d) %s\n", j+1, opt.Text)
		}

		value, err := askOption(reader, q)
		if errors.Is(err, io.EOF) {
			fmt.Println()
			break
		}
		if err != nil {
			return nil, err
		}
		if value != "" {
			responses[q.ID] = value
		}
		fmt.Println()
	}
	return responses, nil
}

// askOption reads one answer for q, re-prompting until the input is a
// valid option number, an option value, or blank (skip).
func askOption(reader InputReader, q dosha.Question) (string, error) {
	for {
		line, err := reader.ReadLine("answer> ")
		if err != nil {
			return "", err
		}
		if line == "" {
			return "", nil
		}

		if n, convErr := strconv.Atoi(line); convErr == nil {
			if n >= 1 && n <= len(q.Options) {
				return q.Options[n-1].Value, nil
			}
			fmt.Printf("Pick a number between 1 and %d.\n", len(q.Options))
			continue
		}

		lowered := strings.ToLower(line)
		for _, opt := range q.Options {
			if opt.Value == lowered {
				return opt.Value, nil
			}
		}
		fmt.Printf("Pick a number between 1 and %d.\n", len(q.Options))
	}
}

// printQuizResult renders the scored assessment.
func printQuizResult(res dosha.Result) {
	fmt.Println(quizHeadingStyle.Render("Your constitution"))
	fmt.Printf("  Primary dosha:   %s\n", res.PrimaryDosha)
	if res.SecondaryDosha != "" {
		fmt.Printf("  Secondary dosha: %s\n", res.SecondaryDosha)
	}
	fmt.Printf("  Confidence:      %.0f%%\n", res.Confidence*100)

	fmt.Println(quizHeadingStyle.Render("Scores"))
	for _, name := range []string{"vata", "pitta", "kapha"} {
		fmt.Printf("  %-6s %5.1f%%\n", name, res.Scores[name])
	}

	if len(res.Analysis) > 0 {
		fmt.Println(quizHeadingStyle.Render("Analysis"))
		keys := make([]string, 0, len(res.Analysis))
		for k := range res.Analysis {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %s: %s\n", k, res.Analysis[k])
		}
	}

	if len(res.Recommendations) > 0 {
		fmt.Println(quizHeadingStyle.Render("Recommendations"))
		for _, rec := range res.Recommendations {
			fmt.Println("  " + rec)
		}
	}
}
