package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/scottbrown/account-review/acctreview"
)

// SummaryReport generates a markdown report of a collation run.
type SummaryReport struct {
	summary *acctreview.Summary

	Title string
}

// NewSummaryReport creates a SummaryReport for the given summary.
func NewSummaryReport(s *acctreview.Summary) *SummaryReport {
	return &SummaryReport{summary: s, Title: "Account Review Summary"}
}

// Generate writes the complete markdown report to the provided writer.
func (sr *SummaryReport) Generate(w io.Writer) error {
	if err := sr.writeHeader(w); err != nil {
		return err
	}
	if err := sr.writeOverview(w); err != nil {
		return err
	}
	if err := sr.writeAccounts(w); err != nil {
		return err
	}
	return sr.writeSkipped(w)
}

func (sr *SummaryReport) writeHeader(w io.Writer) error {
	s := sr.summary
	_, err := fmt.Fprintf(w, "# %s\n\n", sr.Title)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "**Run:** %s\n", s.RunID)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "**Report Month:** %s\n", s.Date.Format("2006-01"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "**Accounts:** %d processed, %d skipped\n\n", len(s.Accounts), len(s.Skipped))
	return err
}

func (sr *SummaryReport) writeOverview(w io.Writer) error {
	_, err := fmt.Fprintf(w, "## Overview\n\n")
	if err != nil {
		return err
	}

	if !sr.summary.HasData() {
		_, err = fmt.Fprintf(w, "No data.\n\n")
		return err
	}

	counts := make(map[acctreview.Status]int)
	for _, a := range sr.summary.Accounts {
		for _, r := range a.Reports {
			counts[r.Status]++
		}
	}

	_, err = fmt.Fprintf(w, "| Status | Reports |\n|--------|---------|\n")
	if err != nil {
		return err
	}
	for _, st := range []acctreview.Status{acctreview.StatusOK, acctreview.StatusEmpty, acctreview.StatusFailed} {
		_, err = fmt.Fprintf(w, "| %s | %d |\n", st, counts[st])
		if err != nil {
			return err
		}
	}

	_, err = fmt.Fprintf(w, "\n")
	return err
}

func (sr *SummaryReport) writeAccounts(w io.Writer) error {
	for _, a := range sr.summary.Accounts {
		_, err := fmt.Fprintf(w, "## %s\n\n", escapeMarkdown(a.Account))
		if err != nil {
			return err
		}

		location := a.Location
		if location == "" {
			location = "-"
		}
		_, err = fmt.Fprintf(w, "**Output:** %s\n\n", escapeMarkdown(location))
		if err != nil {
			return err
		}

		_, err = fmt.Fprintf(w, "| Report | Status | Rows | Detail |\n|--------|--------|------|--------|\n")
		if err != nil {
			return err
		}
		for _, r := range a.Reports {
			detail := "-"
			if r.Err != nil {
				detail = truncate(r.Err.Error())
			}
			_, err = fmt.Fprintf(w, "| %s | %s | %d | %s |\n",
				escapeMarkdown(r.Name), r.Status, r.Rows, escapeMarkdown(detail))
			if err != nil {
				return err
			}
		}
		if a.WriteErr != nil {
			_, err = fmt.Fprintf(w, "\nWorkbook not written: %s\n", escapeMarkdown(truncate(a.WriteErr.Error())))
			if err != nil {
				return err
			}
		}

		_, err = fmt.Fprintf(w, "\n")
		if err != nil {
			return err
		}
	}
	return nil
}

func (sr *SummaryReport) writeSkipped(w io.Writer) error {
	if len(sr.summary.Skipped) == 0 {
		return nil
	}
	_, err := fmt.Fprintf(w, "## Skipped Accounts\n\n| Account | System | Reason |\n|---------|--------|--------|\n")
	if err != nil {
		return err
	}
	for _, ae := range sr.summary.Skipped {
		reason := "not found"
		if ae.Err != nil {
			reason = truncate(ae.Err.Error())
		}
		_, err = fmt.Fprintf(w, "| %s | %s | %s |\n", escapeMarkdown(ae.Account), ae.System, escapeMarkdown(reason))
		if err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "\n")
	return err
}

func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

func truncate(s string) string {
	const maxLen = 120
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
