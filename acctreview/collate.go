package acctreview

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AllAccounts selects every account known to the Directory.
const AllAccounts = "all"

// Validator reports whether a system knows an account slug.
type Validator interface {
	System() string
	HasAccount(ctx context.Context, account string) (bool, error)
}

// Directory lists every account slug, in its own order.
type Directory interface {
	Accounts(ctx context.Context) ([]string, error)
}

// Chart places a column chart of Value by Category next to a sheet's table.
type Chart struct {
	Title    string
	Category string
	Value    string
}

// Report pairs a source descriptor with its fetcher and sheet layout.
type Report struct {
	Name       string
	Descriptor Descriptor
	Fetcher    Fetcher
	Chart      *Chart
}

// Sheet is one non-empty report table handed to a WorkbookWriter.
// MoneyFields names the columns holding currency amounts.
type Sheet struct {
	Name        string
	Table       *Table
	Chart       *Chart
	MoneyFields []string
}

// WorkbookWriter assembles the sheets of one account into a document and
// returns where it was written.
type WorkbookWriter interface {
	Write(account string, date time.Time, sheets []Sheet) (string, error)
}

// Status is the outcome of one report for one account.
type Status int

const (
	StatusOK Status = iota
	StatusEmpty
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ReportResult holds the outcome of one report.
type ReportResult struct {
	Name   string
	Status Status
	Rows   int
	Table  *Table
	Err    error
}

// AccountResult holds the reports run for one account. Location is empty when
// nothing was written.
type AccountResult struct {
	Account  string
	Location string
	Reports  []ReportResult
	WriteErr error
}

// Summary is the result of a collation run.
type Summary struct {
	RunID    string
	Date     time.Time
	Accounts []AccountResult
	Skipped  []*AccountError
}

// HasData reports whether at least one report produced rows.
func (s *Summary) HasData() bool {
	for _, a := range s.Accounts {
		for _, r := range a.Reports {
			if r.Status == StatusOK {
				return true
			}
		}
	}
	return false
}

// Locations maps each processed account to its output location, or "" when
// no output was produced.
func (s *Summary) Locations() map[string]string {
	out := make(map[string]string, len(s.Accounts))
	for _, a := range s.Accounts {
		out[a.Account] = a.Location
	}
	return out
}

// Err returns a ReportErrors for the failed reports and workbooks, or nil.
func (s *Summary) Err() error {
	var errs []ReportError
	for _, a := range s.Accounts {
		for _, r := range a.Reports {
			if r.Status == StatusFailed {
				errs = append(errs, ReportError{Account: a.Account, Report: r.Name, Err: r.Err})
			}
		}
		if a.WriteErr != nil {
			errs = append(errs, ReportError{Account: a.Account, Report: "workbook", Err: a.WriteErr})
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return ReportErrors{Errors: errs}
}

// Collator runs a set of reports for one account or for every account,
// containing failures to the report that raised them.
type Collator struct {
	cache   *Cache
	reports []Report

	Directory  Directory
	Validators []Validator
	Writer     WorkbookWriter

	// Logger receives progress messages. Nil disables logging.
	Logger func(format string, args ...any)
}

// NewCollator creates a Collator resolving payloads through cache.
func NewCollator(cache *Cache, reports []Report) *Collator {
	return &Collator{cache: cache, reports: reports}
}

func (c *Collator) logf(format string, args ...any) {
	if c.Logger != nil {
		c.Logger(format, args...)
	}
}

// Collate runs every report for the selected accounts. A single account that
// fails validation is returned as an *AccountError; with AllAccounts it is
// skipped and recorded. Report failures never abort the run.
func (c *Collator) Collate(ctx context.Context, selector string, date time.Time, expire bool) (*Summary, error) {
	summary := &Summary{RunID: uuid.NewString(), Date: date}

	accounts := []string{selector}
	all := selector == AllAccounts
	if all {
		if c.Directory == nil {
			return summary, fmt.Errorf("no account directory configured")
		}
		var err error
		accounts, err = c.Directory.Accounts(ctx)
		if err != nil {
			return summary, fmt.Errorf("list accounts: %w", err)
		}
		c.logf("[%s] collating %d accounts", summary.RunID, len(accounts))
	}

	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := c.validate(ctx, account); err != nil {
			if !all {
				return summary, err
			}
			c.logf("[%s] skipping account %s: %v", summary.RunID, account, err)
			summary.Skipped = append(summary.Skipped, err)
			continue
		}
		summary.Accounts = append(summary.Accounts, c.collateAccount(ctx, summary.RunID, account, date, expire))
	}

	if !summary.HasData() {
		c.logf("[%s] no data", summary.RunID)
	}
	return summary, nil
}

func (c *Collator) validate(ctx context.Context, account string) *AccountError {
	for _, v := range c.Validators {
		ok, err := v.HasAccount(ctx, account)
		if err != nil {
			return &AccountError{Account: account, System: v.System(), Err: err}
		}
		if !ok {
			return &AccountError{Account: account, System: v.System()}
		}
	}
	return nil
}

func (c *Collator) collateAccount(ctx context.Context, runID, account string, date time.Time, expire bool) AccountResult {
	result := AccountResult{Account: account}
	var sheets []Sheet

	for _, report := range c.reports {
		table, err := c.run(ctx, report, account, date, expire)
		switch {
		case err != nil:
			c.logf("[%s] %s/%s failed: %v", runID, account, report.Name, err)
			result.Reports = append(result.Reports, ReportResult{Name: report.Name, Status: StatusFailed, Err: err})
		case table.Empty():
			c.logf("[%s] %s/%s returned no rows, skipping sheet", runID, account, report.Name)
			result.Reports = append(result.Reports, ReportResult{Name: report.Name, Status: StatusEmpty, Table: table})
		default:
			c.logf("[%s] %s/%s: %d rows", runID, account, report.Name, table.Len())
			result.Reports = append(result.Reports, ReportResult{Name: report.Name, Status: StatusOK, Rows: table.Len(), Table: table})
			sheets = append(sheets, Sheet{Name: report.Name, Table: table, Chart: report.Chart, MoneyFields: report.Descriptor.MoneyFields})
		}
	}

	if len(sheets) == 0 || c.Writer == nil {
		return result
	}
	location, err := c.Writer.Write(account, date, sheets)
	if err != nil {
		c.logf("[%s] %s: write workbook: %v", runID, account, err)
		result.WriteErr = err
		return result
	}
	result.Location = location
	return result
}

func (c *Collator) run(ctx context.Context, report Report, account string, date time.Time, expire bool) (*Table, error) {
	raw, err := c.cache.Resolve(ctx, report.Fetcher, report.Descriptor.Slug, account, date, expire)
	if err != nil {
		return nil, err
	}
	return report.Descriptor.Normalize(raw)
}
