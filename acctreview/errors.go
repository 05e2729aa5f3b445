package acctreview

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by a BlobStore when no object exists for a key.
var ErrNotFound = errors.New("not found")

// ConfigError reports a required configuration value that is absent, or,
// when Err is set, a value that could not be used.
type ConfigError struct {
	Key string
	Err error
}

func (ce *ConfigError) Error() string {
	if ce.Err != nil {
		return fmt.Sprintf("invalid configuration %s: %v", ce.Key, ce.Err)
	}
	return fmt.Sprintf("missing required configuration: %s", ce.Key)
}

func (ce *ConfigError) Unwrap() error {
	return ce.Err
}

// AccountError reports an account slug that has no identity in a system.
type AccountError struct {
	Account string
	System  string
	Err     error
}

func (ae *AccountError) Error() string {
	if ae.Err != nil {
		return fmt.Sprintf("account %q not resolvable in %s: %v", ae.Account, ae.System, ae.Err)
	}
	return fmt.Sprintf("account %q not resolvable in %s", ae.Account, ae.System)
}

func (ae *AccountError) Unwrap() error {
	return ae.Err
}

// FetchError reports a failure to retrieve a payload from a source.
type FetchError struct {
	Source  string
	Account string
	Err     error
}

func (fe *FetchError) Error() string {
	return fmt.Sprintf("fetch %s for %s: %v", fe.Source, fe.Account, fe.Err)
}

func (fe *FetchError) Unwrap() error {
	return fe.Err
}

// NormalizeError reports a payload that could not be turned into a table.
type NormalizeError struct {
	Source string
	Field  string
	Err    error
}

func (ne *NormalizeError) Error() string {
	if ne.Field != "" {
		return fmt.Sprintf("normalize %s: field %q: %v", ne.Source, ne.Field, ne.Err)
	}
	return fmt.Sprintf("normalize %s: %v", ne.Source, ne.Err)
}

func (ne *NormalizeError) Unwrap() error {
	return ne.Err
}

// ReportError represents a report that failed for a specific account.
type ReportError struct {
	Account string
	Report  string
	Err     error
}

func (re ReportError) Error() string {
	return fmt.Sprintf("[%s/%s] %v", re.Account, re.Report, re.Err)
}

func (re ReportError) Unwrap() error {
	return re.Err
}

// ReportErrors aggregates the failed reports of a collation run.
type ReportErrors struct {
	Errors []ReportError
}

func (re ReportErrors) Error() string {
	if len(re.Errors) == 1 {
		return re.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d reports failed: ", len(re.Errors)))
	for i, e := range re.Errors {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(e.Error())
	}
	return sb.String()
}

// Reports returns the names of the failed reports, qualified by account.
func (re ReportErrors) Reports() []string {
	names := make([]string, len(re.Errors))
	for i, e := range re.Errors {
		names[i] = e.Account + "/" + e.Report
	}
	return names
}
