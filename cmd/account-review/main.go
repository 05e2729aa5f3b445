package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/scottbrown/account-review/acctreview"
)

var (
	verbose bool
	envFile string

	cfg    acctreview.Config
	logger = logrus.New()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "account-review",
	Short: "Collect and normalize account review data",
	Long: `A CLI tool that pulls account and resource data from inventory, CRM,
accounting, ticketing and AWS sources, normalizes it into tables and collates
per-account review workbooks.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed progress")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file read before the environment")

	rootCmd.AddCommand(dataCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(clearCacheCmd)
	rootCmd.AddCommand(permissionsCmd)
	rootCmd.AddCommand(versionCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read %s: %w", envFile, err)
		}
	}
	cfg = acctreview.LoadConfig(os.LookupEnv)
	return cfg.Validate()
}

// debugf adapts the logger to the Logger fields of the library types.
func debugf(format string, args ...any) {
	logger.Debugf(format, args...)
}

func parseReportDate(s string) (time.Time, error) {
	if s == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	date, err := acctreview.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: %w", s, err)
	}
	return date, nil
}
