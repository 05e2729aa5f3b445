package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scottbrown/account-review/acctreview"
	"github.com/scottbrown/account-review/acctreview/source"
)

func newTestSystems(env map[string]string) *systems {
	return newSystems(acctreview.LoadConfig(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))
}

func TestSystems_FetcherRequiresConfig(t *testing.T) {
	tests := []struct {
		source  string
		wantKey string
	}{
		{"compute-details", acctreview.EnvInventoryURL},
		{"crm-account", acctreview.EnvCRMURL},
		{"invoices", acctreview.EnvERPDSN},
		{"tickets", acctreview.EnvTicketsURL},
		{"ri-pricing", acctreview.EnvPriceListURL},
		{"aws-resources", acctreview.EnvAWSRegions},
	}

	sys := newTestSystems(nil)
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			spec, ok := acctreview.LookupSource(tt.source)
			require.True(t, ok)

			_, err := sys.Fetcher(spec)

			var ce *acctreview.ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.wantKey, ce.Key)
		})
	}
}

func TestSystems_FetcherUnknownSystem(t *testing.T) {
	_, err := newTestSystems(nil).Fetcher(acctreview.SourceSpec{System: "ftp", Descriptor: acctreview.Descriptor{Slug: "x"}})
	assert.ErrorContains(t, err, `unknown system "ftp"`)
}

func TestSystems_ERPRejectsUnsupportedDriver(t *testing.T) {
	sys := newTestSystems(map[string]string{
		acctreview.EnvERPDriver: "mysql",
		acctreview.EnvERPDSN:    "mysql://erp.example.com/finance",
	})

	_, err := sys.ERP()

	var ce *acctreview.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, acctreview.EnvERPDriver, ce.Key)
	assert.ErrorContains(t, err, `unsupported driver "mysql"`)
}

func TestSystems_ReusesClients(t *testing.T) {
	sys := newTestSystems(map[string]string{
		acctreview.EnvInventoryURL: "https://inventory.example.com",
		acctreview.EnvInventoryKey: "key",
	})

	a, err := sys.Inventory()
	require.NoError(t, err)
	b, err := sys.Inventory()
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestSystems_AWSConfigRegions(t *testing.T) {
	sys := newTestSystems(map[string]string{acctreview.EnvAWSRegion: "us-east-1"})
	ac, err := sys.AWSConfig()
	require.NoError(t, err)
	assert.NotNil(t, ac)

	sys = newTestSystems(map[string]string{acctreview.EnvAWSRegions: "us-east-1,not-a-region"})
	_, err = sys.AWSConfig()
	assert.ErrorContains(t, err, "invalid region")
}

func TestSystems_Validator(t *testing.T) {
	sys := newTestSystems(map[string]string{
		acctreview.EnvTicketsURL:   "https://tickets.example.com",
		acctreview.EnvTicketsToken: "tok",
	})

	v, err := sys.Validator(acctreview.SystemTickets)
	require.NoError(t, err)
	assert.IsType(t, &source.Tickets{}, v)

	v, err = sys.Validator(acctreview.SystemPriceList)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestBuildReports(t *testing.T) {
	sys := newTestSystems(map[string]string{
		acctreview.EnvInventoryURL: "https://inventory.example.com",
		acctreview.EnvInventoryKey: "key",
	})
	spec, ok := acctreview.LookupReport("savings")
	require.True(t, ok)

	reports, validators, err := buildReports(sys, spec)
	require.NoError(t, err)

	require.Len(t, reports, 3)
	assert.Equal(t, "Idle Instances", reports[0].Name)
	assert.Equal(t, "idle-instances", reports[0].Descriptor.Slug)
	assert.NotNil(t, reports[0].Fetcher)
	require.NotNil(t, reports[2].Chart)
	assert.Equal(t, "Volume ID", reports[2].Chart.Category)

	require.Len(t, validators, 1, "one validator per system")
	assert.Equal(t, acctreview.SystemInventory, validators[0].System())
}

func TestBuildReports_MissingConfig(t *testing.T) {
	spec, ok := acctreview.LookupReport("pricing")
	require.True(t, ok)

	_, _, err := buildReports(newTestSystems(nil), spec)

	var ce *acctreview.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, acctreview.EnvPriceListURL, ce.Key)
}

func TestNewCache_LocalOnly(t *testing.T) {
	dir := t.TempDir()
	c := acctreview.LoadConfig(func(k string) (string, bool) {
		if k == acctreview.EnvCacheDir {
			return dir, true
		}
		return "", false
	})

	cache, err := newCache(context.Background(), c)
	require.NoError(t, err)
	require.NotNil(t, cache)
	assert.NotNil(t, cache.Logger)
}
