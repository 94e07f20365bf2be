// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(14)

	okStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	lockedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	secretStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("196")).
			Bold(true).
			Padding(0, 1)
)

func printTitle(title string) {
	fmt.Println(titleStyle.Render(title))
	fmt.Println()
}

func printField(label string, value any) {
	fmt.Printf("%s %v\n", labelStyle.Render(label), value)
}

func printOK(format string, args ...any) {
	fmt.Println(okStyle.Render("✓ " + fmt.Sprintf(format, args...)))
}
