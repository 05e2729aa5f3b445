package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scottbrown/account-review/acctreview"
)

const defaultTextWidth = 120

var (
	dataAccount     string
	dataDate        string
	dataCacheFile   string
	dataExpireCache bool
	dataFormat      string
	dataWidth       int
	dataOutput      string
)

var dataCmd = &cobra.Command{
	Use:   "data <source>",
	Short: "Fetch and normalize one data source",
	Long: `Fetch the payload of a data source for an account and month, normalize it
and print it as CSV, JSON or a text table. Payloads are served from the cache
when present. Run 'account-review sources' for the list of sources.`,
	Args: cobra.ExactArgs(1),
	RunE: runData,
}

func init() {
	dataCmd.Flags().StringVarP(&dataAccount, "account", "a", "", "Account slug")
	dataCmd.Flags().StringVarP(&dataDate, "date", "d", "", "Report date as YYYY-MM-DD (default: today)")
	dataCmd.Flags().StringVar(&dataCacheFile, "cache-file", "", "Read the raw payload from this file instead of fetching")
	dataCmd.Flags().BoolVar(&dataExpireCache, "expire-cache", false, "Ignore cached payloads and fetch again")
	dataCmd.Flags().StringVarP(&dataFormat, "format", "f", "table", "Output format: csv, json or table")
	dataCmd.Flags().IntVarP(&dataWidth, "width", "w", defaultTextWidth, "Line width of the text table")
	dataCmd.Flags().StringVarP(&dataOutput, "output", "o", "", "Output file path (default: stdout)")
}

func runData(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	spec, ok := acctreview.LookupSource(args[0])
	if !ok {
		return fmt.Errorf("unknown source %q; run 'account-review sources' to list them", args[0])
	}
	format := strings.ToLower(dataFormat)
	if format != "csv" && format != "json" && format != "table" {
		return fmt.Errorf("invalid --format %q: must be csv, json or table", dataFormat)
	}

	raw, err := loadPayload(ctx, spec)
	if err != nil {
		return err
	}

	table, err := spec.Descriptor.Normalize(raw)
	if err != nil {
		return err
	}
	if table.Empty() {
		fmt.Fprintf(os.Stderr, "No rows for %s\n", spec.Descriptor.Slug)
	}

	out, err := renderTable(table, format, dataWidth)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", format, err)
	}

	if dataOutput == "" || dataOutput == "-" {
		_, err = io.WriteString(cmd.OutOrStdout(), out)
		return err
	}
	if err := os.WriteFile(dataOutput, []byte(out), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "%d rows written to: %s\n", table.Len(), dataOutput)
	return nil
}

func loadPayload(ctx context.Context, spec acctreview.SourceSpec) ([]byte, error) {
	if dataCacheFile != "" {
		raw, err := os.ReadFile(dataCacheFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read cache file: %w", err)
		}
		return raw, nil
	}

	if dataAccount == "" {
		return nil, fmt.Errorf("--account is required unless --cache-file is given")
	}
	date, err := parseReportDate(dataDate)
	if err != nil {
		return nil, err
	}

	sys := newSystems(cfg)
	defer sys.Close()

	fetcher, err := sys.Fetcher(spec)
	if err != nil {
		return nil, err
	}
	cache, err := newCache(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return cache.Resolve(ctx, fetcher, spec.Descriptor.Slug, dataAccount, date, dataExpireCache)
}

func renderTable(t *acctreview.Table, format string, width int) (string, error) {
	switch format {
	case "csv":
		return t.CSV()
	case "json":
		data, err := t.JSON()
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil
	default:
		return t.Text(width), nil
	}
}
