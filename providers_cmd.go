package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"})
	noStyle     = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#D81159", Dark: "#FF5F87"})
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List speech providers and their availability",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		svc := newService(cfg)

		styled := isTerminal() && termenv.EnvColorProfile() != termenv.Ascii

		// Cells are padded as plain text first so escape sequences never
		// skew the column widths.
		mark := func(ok bool, width int) string {
			cell := "no"
			if ok {
				cell = "yes"
			}
			cell = runewidth.FillRight(cell, width)
			if !styled {
				return cell
			}
			if ok {
				return okStyle.Render(cell)
			}
			return noStyle.Render(cell)
		}

		headers := []string{"NAME", "DEPENDENCIES", "AVAILABLE", "INITIALIZED", ""}
		widths := []int{12, 14, 11, 13, 0}

		var b strings.Builder
		for i, h := range headers {
			cell := runewidth.FillRight(h, widths[i])
			if styled {
				cell = headerStyle.Render(cell)
			}
			b.WriteString(cell)
		}
		fmt.Println(b.String())

		active := svc.ActiveProvider()
		if active == "" {
			active = cfg.DefaultProvider
		}
		for _, d := range svc.Descriptors() {
			note := ""
			if d.Name == active {
				note = "(default)"
			}
			fmt.Printf("%s%s%s%s%s\n",
				runewidth.FillRight(d.Name, widths[0]),
				mark(d.DependenciesSatisfied, widths[1]),
				mark(d.RuntimeAvailable, widths[2]),
				mark(d.Initialized, widths[3]),
				note,
			)
		}
		return nil
	},
}
