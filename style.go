package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

const (
	wrapAt   = 78
	indentBy = 2
)

var keywordStyle = lipgloss.NewStyle().
	Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#ECFD65"})

func keyword(s string) string {
	return keywordStyle.Render(s)
}

func paragraph(s string) string {
	s = wordwrap.String(s, wrapAt-indentBy)
	return indent.String(s, indentBy)
}
