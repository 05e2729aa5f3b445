package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	clearAccount string
	clearDate    string
)

var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Remove the locally cached payloads of an account for a month",
	RunE:  runClearCache,
}

func init() {
	clearCacheCmd.Flags().StringVarP(&clearAccount, "account", "a", "", "Account slug (required)")
	clearCacheCmd.Flags().StringVarP(&clearDate, "date", "d", "", "Any date in the month to clear (default: today)")

	_ = clearCacheCmd.MarkFlagRequired("account")
}

func runClearCache(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	date, err := parseReportDate(clearDate)
	if err != nil {
		return err
	}
	cache, err := newCache(ctx, cfg)
	if err != nil {
		return err
	}
	if err := cache.Invalidate(ctx, clearAccount, date); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Cleared cached payloads of %s for %s\n", clearAccount, date.Format("2006-01"))
	return nil
}
