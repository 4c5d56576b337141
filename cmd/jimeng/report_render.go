package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lbbniu/jimeng-tts/internal/batch"
	"github.com/lbbniu/jimeng-tts/internal/services"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

func writeReport(out io.Writer, report *batch.Report) {
	colorize := shouldColorize(out)

	rows := make([][]string, 0, len(report.Order))
	for _, id := range report.Order {
		result := report.Entries[id]
		rows = append(rows, []string{
			id,
			displayTitle(id),
			statusCell(result.Status, colorize),
			result.Reason,
		})
	}
	fmt.Fprintln(out, renderTable([]string{"Entry", "Title", "Status", "Reason"}, rows))

	succeeded, skipped, failed, interrupted := report.Counts()
	fmt.Fprintf(out, "%d succeeded, %d skipped, %d failed, %d interrupted (%s)\n",
		succeeded, skipped, failed, interrupted,
		report.Finished.Sub(report.Started).Round(10*time.Millisecond))
}

func statusCell(status services.Status, colorize bool) string {
	label := strings.ToUpper(string(status))
	if !colorize {
		return label
	}
	switch status {
	case services.StatusSucceeded:
		return ansiGreen + label + ansiReset
	case services.StatusSkipped:
		return ansiYellow + label + ansiReset
	case services.StatusInterrupted:
		return ansiBlue + label + ansiReset
	default:
		return ansiRed + label + ansiReset
	}
}

// displayTitle turns an entry id like "opening_scene-01" into a readable
// table label.
func displayTitle(entryID string) string {
	cleaned := strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(entryID)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return entryID
	}
	return cases.Title(language.Und).String(cleaned)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
