// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

// maxInputHistory caps the interactive reader's recall buffer.
const maxInputHistory = 100

// InputReader abstracts line-oriented user input so the chat and quiz
// loops can be driven from a terminal, a pipe, or a test.
//
// ReadLine blocks until a line is available and returns it trimmed.
// It returns io.EOF when input is exhausted or the user aborts with
// Ctrl+C / Ctrl+D.
type InputReader interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// newInputReader picks the interactive reader on a TTY and the plain
// stdin reader everywhere else (pipes, CI, redirected files).
func newInputReader() InputReader {
	fd := os.Stdin.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return &interactiveReader{}
	}
	return &stdinReader{reader: bufio.NewReader(os.Stdin)}
}

// =============================================================================
// Plain stdin reader
// =============================================================================

// stdinReader reads newline-terminated input from os.Stdin. No history,
// no line editing; the prompt is printed before each read.
type stdinReader struct {
	reader *bufio.Reader
}

func (r *stdinReader) ReadLine(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := r.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF && strings.TrimSpace(line) != "" {
			// Final unterminated line of a pipe still counts.
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (r *stdinReader) Close() error { return nil }

// =============================================================================
// Interactive reader
// =============================================================================

// interactiveReader provides line editing and up/down history recall via
// a short-lived bubbletea program per line.
type interactiveReader struct {
	history []string
}

func (r *interactiveReader) ReadLine(prompt string) (string, error) {
	ti := textinput.New()
	ti.Prompt = prompt
	ti.Focus()

	model := inputModel{
		input:   ti,
		history: r.history,
		index:   len(r.history),
	}
	program := tea.NewProgram(model)
	final, err := program.Run()
	if err != nil {
		return "", fmt.Errorf("interactive input: %w", err)
	}

	m, ok := final.(inputModel)
	if !ok {
		return "", fmt.Errorf("unexpected model type from bubbletea: %T", final)
	}
	if m.aborted {
		return "", io.EOF
	}

	line := strings.TrimSpace(m.input.Value())
	// Bubbletea erases its view on exit; re-echo so the transcript
	// stays readable.
	fmt.Println(prompt + line)

	if line != "" && (len(r.history) == 0 || r.history[len(r.history)-1] != line) {
		r.history = append(r.history, line)
		if len(r.history) > maxInputHistory {
			r.history = r.history[len(r.history)-maxInputHistory:]
		}
	}
	return line, nil
}

func (r *interactiveReader) Close() error { return nil }

// inputModel is the bubbletea model for one line of input.
type inputModel struct {
	input   textinput.Model
	history []string
	index   int // history cursor; len(history) means editing a new line
	done    bool
	aborted bool
}

func (m inputModel) Init() tea.Cmd { return textinput.Blink }

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyCtrlD:
			m.aborted = true
			return m, tea.Quit
		case tea.KeyUp:
			if m.index > 0 {
				m.index--
				m.input.SetValue(m.history[m.index])
				m.input.CursorEnd()
			}
			return m, nil
		case tea.KeyDown:
			if m.index < len(m.history) {
				m.index++
			}
			if m.index == len(m.history) {
				m.input.SetValue("")
			} else {
				m.input.SetValue(m.history[m.index])
				m.input.CursorEnd()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m inputModel) View() string {
	if m.done || m.aborted {
		return ""
	}
	return m.input.View()
}
