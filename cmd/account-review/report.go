package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scottbrown/account-review/acctreview"
	"github.com/scottbrown/account-review/acctreview/render"
)

var (
	reportAccount     string
	reportDate        string
	reportExpireCache bool
	reportOutputDir   string
	reportSummary     string
)

var reportCmd = &cobra.Command{
	Use:   "report <report-name>",
	Short: "Collate a review workbook for one account or all accounts",
	Long: `Run every source of a report for an account and write the non-empty tables
to an xlsx workbook, one sheet per source. With --account all, every account
known to the CRM is processed; accounts unknown to a source system are skipped.
A failing source is reported and the remaining sources still run.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportAccount, "account", "a", "", "Account slug, or 'all' (required)")
	reportCmd.Flags().StringVarP(&reportDate, "date", "d", "", "Report date as YYYY-MM-DD (default: today)")
	reportCmd.Flags().BoolVar(&reportExpireCache, "expire-cache", false, "Ignore cached payloads and fetch again")
	reportCmd.Flags().StringVar(&reportOutputDir, "output-dir", "", "Directory for workbooks (default: $ACCTREVIEW_OUTPUT_DIR or .)")
	reportCmd.Flags().StringVar(&reportSummary, "summary", "", "Path for a markdown run summary (use '-' for stdout)")

	_ = reportCmd.MarkFlagRequired("account")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	spec, ok := acctreview.LookupReport(args[0])
	if !ok {
		return fmt.Errorf("unknown report %q; available: %s", args[0], reportNames())
	}
	date, err := parseReportDate(reportDate)
	if err != nil {
		return err
	}

	sys := newSystems(cfg)
	defer sys.Close()

	reports, validators, err := buildReports(sys, spec)
	if err != nil {
		return err
	}
	cache, err := newCache(ctx, cfg)
	if err != nil {
		return err
	}

	outputDir := reportOutputDir
	if outputDir == "" {
		outputDir = cfg.OutputDir
	}

	collator := acctreview.NewCollator(cache, reports)
	collator.Validators = validators
	collator.Writer = render.NewWorkbook(outputDir)
	collator.Logger = debugf
	if reportAccount == acctreview.AllAccounts {
		crm, err := sys.CRM()
		if err != nil {
			return err
		}
		collator.Directory = crm
	}

	fmt.Fprintf(os.Stderr, "Collating %s for %s (%s)...\n", spec.Name, reportAccount, date.Format("2006-01"))

	summary, err := collator.Collate(ctx, reportAccount, date, reportExpireCache)
	if err != nil {
		return err
	}

	for _, ae := range summary.Skipped {
		logger.Warnf("skipped %v", ae)
	}
	logStatus(summary)

	if !summary.HasData() {
		fmt.Fprintln(os.Stderr, "No data")
	}
	locations := summary.Locations()
	accounts := make([]string, 0, len(locations))
	for a := range locations {
		accounts = append(accounts, a)
	}
	sort.Strings(accounts)
	for _, a := range accounts {
		if locations[a] != "" {
			fmt.Fprintf(os.Stderr, "Workbook for %s written to: %s\n", a, locations[a])
		}
	}

	if reportSummary != "" {
		if err := writeSummary(cmd.OutOrStdout(), summary, reportSummary); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}
	return nil
}

// logStatus reports the outcome of every report of every account, then the
// totals. Empty reports are noted at info level since they add no sheet.
func logStatus(summary *acctreview.Summary) {
	counts := make(map[acctreview.Status]int)
	for _, a := range summary.Accounts {
		for _, r := range a.Reports {
			counts[r.Status]++
			switch r.Status {
			case acctreview.StatusOK:
				logger.Infof("%s/%s: ok, %d rows", a.Account, r.Name, r.Rows)
			case acctreview.StatusEmpty:
				logger.Infof("%s/%s: empty, no sheet written", a.Account, r.Name)
			default:
				logger.Warnf("%s/%s: failed: %v", a.Account, r.Name, r.Err)
			}
		}
		if a.WriteErr != nil {
			logger.Warnf("%s: workbook not written: %v", a.Account, a.WriteErr)
		}
	}
	logger.Infof("reports: %d ok, %d empty, %d failed",
		counts[acctreview.StatusOK], counts[acctreview.StatusEmpty], counts[acctreview.StatusFailed])
}

// writeSummary writes the markdown summary to path, or to stdout for "-".
func writeSummary(stdout io.Writer, summary *acctreview.Summary, path string) error {
	sr := render.NewSummaryReport(summary)

	if path == "-" {
		return sr.Generate(stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := sr.Generate(f); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Summary written to: %s\n", path)
	return nil
}

func reportNames() string {
	var names []string
	for _, r := range acctreview.Reports() {
		names = append(names, r.Name)
	}
	return strings.Join(names, ", ")
}
