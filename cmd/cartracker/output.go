package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cartracker/cartracker/internal/status"
)

func outputJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func getTerminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 80
}

// truncate shortens s to width display columns, accounting for wide characters.
func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(strings.TrimSpace(s), width, "...")
}

func statusLabel(s status.Status) string {
	switch s {
	case status.Overdue:
		return "OVERDUE"
	case status.DueSoon:
		return "due soon"
	case status.Unknown:
		return "-"
	default:
		return "ok"
	}
}

func insuranceLabel(s status.InsuranceStatus) string {
	switch s {
	case status.InsuranceDanger:
		return "NO POLICY"
	case status.InsuranceWarning:
		return "expiring"
	default:
		return "ok"
	}
}

// confirm asks a yes/no question on stderr and reads the answer from stdin.
func confirm(cmd *cobra.Command, message string) (bool, error) {
	reader := bufio.NewReader(cmd.InOrStdin())
	fmt.Fprint(cmd.ErrOrStderr(), message)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y", nil
}

func checkFormat(format string) error {
	switch format {
	case "table", "json":
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
	}
}
