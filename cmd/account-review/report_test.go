package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scottbrown/account-review/acctreview"
)

const idleInstancesPayload = `{"BestPracticeChecks": [{"CheckId": 3, "Results": [
	"Instance: i-1 (web) | Instance Type: t3.micro | Region: us-east-1 | Average CPU Utilization: 1.2% | Estimated Monthly Savings: $12.50"]}]}`

// inventoryServer serves the savings checks: idle instances has one row,
// unused Elastic IPs is empty and underutilized volumes fails.
func inventoryServer(t *testing.T, known ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/accounts":
			fmt.Fprint(w, `{"accounts": [`)
			for i, name := range known {
				if i > 0 {
					fmt.Fprint(w, ",")
				}
				fmt.Fprintf(w, `{"name": %q}`, name)
			}
			fmt.Fprint(w, `]}`)
		case "/best-practices/checks":
			switch r.URL.Query().Get("check_ids") {
			case "3":
				fmt.Fprint(w, idleInstancesPayload)
			case "8":
				fmt.Fprint(w, `{"BestPracticeChecks": []}`)
			default:
				w.WriteHeader(http.StatusInternalServerError)
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func crmServer(t *testing.T, accounts ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"done": true, "records": [`)
		for i, a := range accounts {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"Slug__c": %q}`, a)
		}
		fmt.Fprint(w, `]}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// captureLog sends the logger to a buffer at info level for one test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)
	prevOut, prevLevel := logger.Out, logger.GetLevel()
	t.Cleanup(func() {
		logger.SetOutput(prevOut)
		logger.SetLevel(prevLevel)
	})
	logger.SetOutput(buf)
	logger.SetLevel(logrus.InfoLevel)
	return buf
}

// resetReportFlags restores the report command flags after a test and points
// workbooks at a temporary directory.
func resetReportFlags(t *testing.T) string {
	t.Helper()
	prevAccount, prevDate, prevExpire := reportAccount, reportDate, reportExpireCache
	prevOutputDir, prevSummary := reportOutputDir, reportSummary
	t.Cleanup(func() {
		reportAccount, reportDate, reportExpireCache = prevAccount, prevDate, prevExpire
		reportOutputDir, reportSummary = prevOutputDir, prevSummary
	})
	reportAccount, reportDate, reportExpireCache = "acme", "2024-03-15", false
	reportOutputDir, reportSummary = t.TempDir(), ""
	return reportOutputDir
}

func reportEnv(t *testing.T, inventoryURL, crmURL string) {
	t.Helper()
	env := map[string]string{
		acctreview.EnvCacheDir:     t.TempDir(),
		acctreview.EnvMaxRetries:   "0",
		acctreview.EnvInventoryURL: inventoryURL,
		acctreview.EnvInventoryKey: "key",
	}
	if crmURL != "" {
		env[acctreview.EnvCRMURL] = crmURL
		env[acctreview.EnvCRMToken] = "tok"
	}
	testConfig(t, env)
}

func runReportCmd(t *testing.T, name string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	err := runReport(cmd, []string{name})
	return buf.String(), err
}

func TestRunReport_SingleAccount(t *testing.T) {
	tests := []struct {
		name        string
		report      string
		account     string
		wantErr     string
		wantLog     []string
		wantWritten bool
	}{
		{
			name:    "failing sheet still succeeds",
			report:  "savings",
			account: "acme",
			wantLog: []string{
				"acme/Idle Instances: ok, 1 rows",
				"acme/Unused Elastic IPs: empty, no sheet written",
				"acme/Underutilized Volumes: failed",
				"reports: 1 ok, 1 empty, 1 failed",
			},
			wantWritten: true,
		},
		{
			name:    "unknown account is fatal",
			report:  "savings",
			account: "ghost",
			wantErr: `account "ghost" not resolvable in inventory`,
		},
		{
			name:    "unknown report",
			report:  "nope",
			account: "acme",
			wantErr: `unknown report "nope"; available: account-review, savings, pricing`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outputDir := resetReportFlags(t)
			reportEnv(t, inventoryServer(t, "acme").URL, "")
			logs := captureLog(t)
			reportAccount = tt.account

			_, err := runReportCmd(t, tt.report)

			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			for _, want := range tt.wantLog {
				assert.Contains(t, logs.String(), want)
			}
			_, statErr := os.Stat(filepath.Join(outputDir, "acme-2024-03-review.xlsx"))
			assert.Equal(t, tt.wantWritten, statErr == nil)
		})
	}
}

func TestRunReport_SingleAccountErrorType(t *testing.T) {
	resetReportFlags(t)
	reportEnv(t, inventoryServer(t, "acme").URL, "")
	captureLog(t)
	reportAccount = "ghost"

	_, err := runReportCmd(t, "savings")

	var ae *acctreview.AccountError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, acctreview.SystemInventory, ae.System)
}

func TestRunReport_MissingConfig(t *testing.T) {
	resetReportFlags(t)
	testConfig(t, map[string]string{acctreview.EnvCacheDir: t.TempDir()})

	_, err := runReportCmd(t, "savings")

	var ce *acctreview.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, acctreview.EnvInventoryURL, ce.Key)
}

func TestRunReport_AllAccountsUsesCRMDirectory(t *testing.T) {
	outputDir := resetReportFlags(t)
	reportEnv(t, inventoryServer(t, "acme").URL, crmServer(t, "acme", "ghost").URL)
	logs := captureLog(t)
	reportAccount = acctreview.AllAccounts

	_, err := runReportCmd(t, "savings")
	require.NoError(t, err)

	output := logs.String()
	assert.Contains(t, output, `skipped account \"ghost\" not resolvable in inventory`)
	assert.Contains(t, output, "acme/Idle Instances: ok, 1 rows")
	assert.NotContains(t, output, "ghost/")

	_, err = os.Stat(filepath.Join(outputDir, "acme-2024-03-review.xlsx"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(outputDir, "ghost-2024-03-review.xlsx"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunReport_AllAccountsRequiresCRM(t *testing.T) {
	resetReportFlags(t)
	reportEnv(t, inventoryServer(t, "acme").URL, "")
	reportAccount = acctreview.AllAccounts

	_, err := runReportCmd(t, "savings")

	var ce *acctreview.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, acctreview.EnvCRMURL, ce.Key)
}

func TestRunReport_SummaryToStdout(t *testing.T) {
	resetReportFlags(t)
	reportEnv(t, inventoryServer(t, "acme").URL, "")
	captureLog(t)
	reportSummary = "-"

	output, err := runReportCmd(t, "savings")
	require.NoError(t, err)

	assert.Contains(t, output, "# Account Review Summary")
	assert.Contains(t, output, "**Report Month:** 2024-03")
	assert.Contains(t, output, "| Idle Instances | ok | 1 | - |")
	assert.Contains(t, output, "| Unused Elastic IPs | empty | 0 | - |")
	assert.Contains(t, output, "| Underutilized Volumes | failed | 0 |")
}

func TestRunReport_SummaryToFile(t *testing.T) {
	outputDir := resetReportFlags(t)
	reportEnv(t, inventoryServer(t, "acme").URL, "")
	captureLog(t)
	reportSummary = filepath.Join(outputDir, "summary.md")

	output, err := runReportCmd(t, "savings")
	require.NoError(t, err)
	assert.Empty(t, output)

	written, err := os.ReadFile(reportSummary)
	require.NoError(t, err)
	assert.Contains(t, string(written), "## acme")
}
