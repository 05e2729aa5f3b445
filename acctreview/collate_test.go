package acctreview

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockValidator struct {
	system string
	known  map[string]bool
	err    error
}

func (m *mockValidator) System() string { return m.system }

func (m *mockValidator) HasAccount(_ context.Context, account string) (bool, error) {
	return m.known[account], m.err
}

type mockDirectory struct {
	accounts []string
}

func (m *mockDirectory) Accounts(context.Context) ([]string, error) {
	return m.accounts, nil
}

type mockWriter struct {
	writes map[string][]Sheet
	err    error
}

func (m *mockWriter) Write(account string, _ time.Time, sheets []Sheet) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.writes == nil {
		m.writes = make(map[string][]Sheet)
	}
	m.writes[account] = sheets
	return "/out/" + account + ".xlsx", nil
}

var rowsDescriptor = Descriptor{Slug: "rows", Format: FormatFlat, DataKey: "rows", Fields: []string{"id"}}

func staticReport(name, payload string) Report {
	d := rowsDescriptor
	d.Slug = name
	return Report{
		Name:       name,
		Descriptor: d,
		Fetcher: FetcherFunc(func(context.Context, string, time.Time) ([]byte, error) {
			return []byte(payload), nil
		}),
	}
}

func TestCollate_PartialFailure(t *testing.T) {
	reports := []Report{
		staticReport("first", `{"rows": [{"id": "a"}]}`),
		staticReport("second", `{"rows": [{"wrong": "b"}]}`),
		staticReport("third", `{"rows": [{"id": "c"}, {"id": "d"}]}`),
	}
	writer := &mockWriter{}
	c := NewCollator(NewCache(newMemStore(), nil), reports)
	c.Writer = writer

	summary, err := c.Collate(context.Background(), "acme", reportDate, false)
	require.NoError(t, err)
	require.Len(t, summary.Accounts, 1)

	results := summary.Accounts[0].Reports
	require.Len(t, results, 3)
	assert.Equal(t, StatusOK, results[0].Status)
	assert.Equal(t, 1, results[0].Rows)
	assert.Equal(t, StatusFailed, results[1].Status)
	var ne *NormalizeError
	assert.ErrorAs(t, results[1].Err, &ne)
	assert.Equal(t, StatusOK, results[2].Status)
	assert.Equal(t, 2, results[2].Rows)

	assert.Equal(t, "/out/acme.xlsx", summary.Accounts[0].Location)
	require.Len(t, writer.writes["acme"], 2)
	assert.Equal(t, "first", writer.writes["acme"][0].Name)
	assert.Equal(t, "third", writer.writes["acme"][1].Name)

	var re ReportErrors
	require.ErrorAs(t, summary.Err(), &re)
	assert.Equal(t, []string{"acme/second"}, re.Reports())
}

func TestCollate_EmptyReportsAreSkipped(t *testing.T) {
	writer := &mockWriter{}
	c := NewCollator(NewCache(newMemStore(), nil), []Report{
		staticReport("empty", `{"rows": []}`),
	})
	c.Writer = writer

	summary, err := c.Collate(context.Background(), "acme", reportDate, false)
	require.NoError(t, err)

	assert.False(t, summary.HasData())
	assert.NoError(t, summary.Err())
	assert.Equal(t, StatusEmpty, summary.Accounts[0].Reports[0].Status)
	assert.Empty(t, writer.writes, "nothing written without rows")
	assert.Equal(t, map[string]string{"acme": ""}, summary.Locations())
}

func TestCollate_SingleAccountValidationIsFatal(t *testing.T) {
	fetcher := &countingFetcher{payload: []byte(`{"rows": []}`)}
	c := NewCollator(NewCache(newMemStore(), nil), []Report{{Name: "r", Descriptor: rowsDescriptor, Fetcher: fetcher}})
	c.Validators = []Validator{&mockValidator{system: "crm", known: map[string]bool{}}}

	_, err := c.Collate(context.Background(), "ghost", reportDate, false)

	var ae *AccountError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "ghost", ae.Account)
	assert.Equal(t, "crm", ae.System)
	assert.Equal(t, 0, fetcher.calls)
}

func TestCollate_AllSkipsInvalidAccounts(t *testing.T) {
	c := NewCollator(NewCache(newMemStore(), nil), []Report{
		staticReport("r", `{"rows": [{"id": "x"}]}`),
	})
	c.Directory = &mockDirectory{accounts: []string{"beta", "ghost", "alpha"}}
	c.Validators = []Validator{
		&mockValidator{system: "crm", known: map[string]bool{"alpha": true, "beta": true, "ghost": true}},
		&mockValidator{system: "erp", known: map[string]bool{"alpha": true, "beta": true}},
	}
	c.Writer = &mockWriter{}

	summary, err := c.Collate(context.Background(), AllAccounts, reportDate, false)
	require.NoError(t, err)

	require.Len(t, summary.Accounts, 2)
	assert.Equal(t, "beta", summary.Accounts[0].Account, "directory order is kept")
	assert.Equal(t, "alpha", summary.Accounts[1].Account)
	require.Len(t, summary.Skipped, 1)
	assert.Equal(t, "ghost", summary.Skipped[0].Account)
	assert.Equal(t, "erp", summary.Skipped[0].System)
	assert.True(t, summary.HasData())
	assert.NotEmpty(t, summary.RunID)
}

func TestCollate_ValidatorErrorSkipsAccount(t *testing.T) {
	boom := errors.New("crm unavailable")
	c := NewCollator(NewCache(newMemStore(), nil), nil)
	c.Directory = &mockDirectory{accounts: []string{"acme"}}
	c.Validators = []Validator{&mockValidator{system: "crm", err: boom}}

	summary, err := c.Collate(context.Background(), AllAccounts, reportDate, false)
	require.NoError(t, err)
	require.Len(t, summary.Skipped, 1)
	assert.ErrorIs(t, summary.Skipped[0], boom)
}

func TestCollate_AllRequiresDirectory(t *testing.T) {
	c := NewCollator(NewCache(newMemStore(), nil), nil)
	_, err := c.Collate(context.Background(), AllAccounts, reportDate, false)
	assert.Error(t, err)
}

func TestCollate_WriteFailure(t *testing.T) {
	c := NewCollator(NewCache(newMemStore(), nil), []Report{
		staticReport("r", `{"rows": [{"id": "x"}]}`),
	})
	c.Writer = &mockWriter{err: errors.New("permission denied")}

	summary, err := c.Collate(context.Background(), "acme", reportDate, false)
	require.NoError(t, err)

	assert.Empty(t, summary.Accounts[0].Location)
	var re ReportErrors
	require.ErrorAs(t, summary.Err(), &re)
	assert.Equal(t, []string{"acme/workbook"}, re.Reports())
}

func TestCollate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewCollator(NewCache(newMemStore(), nil), []Report{staticReport("r", `{"rows": []}`)})
	_, err := c.Collate(ctx, "acme", reportDate, false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollate_UsesCache(t *testing.T) {
	local := newMemStore()
	fetcher := &countingFetcher{payload: []byte(`{"rows": [{"id": "x"}]}`)}
	c := NewCollator(NewCache(local, nil), []Report{{Name: "r", Descriptor: rowsDescriptor, Fetcher: fetcher}})

	for i := 0; i < 2; i++ {
		_, err := c.Collate(context.Background(), "acme", reportDate, false)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, fetcher.calls)

	_, err := c.Collate(context.Background(), "acme", reportDate, true)
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "ok", StatusOK.String())
	assert.Equal(t, "empty", StatusEmpty.String())
	assert.Equal(t, "failed", StatusFailed.String())
	assert.Equal(t, "unknown", Status(9).String())
}

func TestCollate_SheetsCarryMoneyFields(t *testing.T) {
	d := Descriptor{Slug: "costs", Format: FormatFlat, DataKey: "rows", Fields: []string{"id", "cost"}, MoneyFields: []string{"cost"}}
	report := Report{
		Name:       "Costs",
		Descriptor: d,
		Fetcher: FetcherFunc(func(context.Context, string, time.Time) ([]byte, error) {
			return []byte(`{"rows": [{"id": 1, "cost": "$4.50"}]}`), nil
		}),
	}
	writer := &mockWriter{}
	c := NewCollator(NewCache(newMemStore(), nil), []Report{report})
	c.Writer = writer

	_, err := c.Collate(context.Background(), "acme", reportDate, false)
	require.NoError(t, err)

	require.Len(t, writer.writes["acme"], 1)
	assert.Equal(t, []string{"cost"}, writer.writes["acme"][0].MoneyFields)
}
