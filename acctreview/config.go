package acctreview

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Environment keys read by LoadConfig.
const (
	EnvCacheDir       = "ACCTREVIEW_CACHE_DIR"
	EnvOutputDir      = "ACCTREVIEW_OUTPUT_DIR"
	EnvBucket         = "ACCTREVIEW_BUCKET"
	EnvBucketPrefix   = "ACCTREVIEW_BUCKET_PREFIX"
	EnvAWSRegion      = "AWS_REGION"
	EnvAWSRegions     = "ACCTREVIEW_AWS_REGIONS"
	EnvInventoryURL   = "INVENTORY_API_URL"
	EnvInventoryKey   = "INVENTORY_API_KEY"
	EnvCRMURL         = "CRM_API_URL"
	EnvCRMToken       = "CRM_API_TOKEN"
	EnvERPDriver      = "ERP_DRIVER"
	EnvERPDSN         = "ERP_DSN"
	EnvTicketsURL     = "TICKETS_API_URL"
	EnvTicketsToken   = "TICKETS_API_TOKEN"
	EnvPriceListURL   = "PRICELIST_URL"
	EnvMaxRetries     = "ACCTREVIEW_MAX_RETRIES"
	defaultERPDriver  = "postgres"
	defaultMaxRetries = 3
)

// erpDrivers are the database/sql drivers linked into the ERP source.
var erpDrivers = map[string]bool{"postgres": true}

// Config holds every setting of a run. It is built once at startup and
// passed to the constructors that need it.
type Config struct {
	CacheDir     string
	OutputDir    string
	Bucket       string
	BucketPrefix string
	AWSRegion    string
	AWSRegions   []string

	InventoryURL string
	InventoryKey string
	CRMURL       string
	CRMToken     string
	ERPDriver    string
	ERPDSN       string
	TicketsURL   string
	TicketsToken string
	PriceListURL string

	MaxRetries int

	values  map[string]string
	invalid map[string]error
}

// LoadConfig reads the configuration through lookup, normally os.LookupEnv.
// Missing values are not an error here; callers use Require for the keys a
// command needs.
func LoadConfig(lookup func(string) (string, bool)) Config {
	values := make(map[string]string)
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			values[key] = strings.TrimSpace(v)
			return values[key]
		}
		return def
	}

	cfg := Config{
		CacheDir:     get(EnvCacheDir, defaultCacheDir()),
		OutputDir:    get(EnvOutputDir, "."),
		Bucket:       get(EnvBucket, ""),
		BucketPrefix: get(EnvBucketPrefix, ""),
		AWSRegion:    get(EnvAWSRegion, ""),
		AWSRegions:   splitList(get(EnvAWSRegions, "")),
		InventoryURL: get(EnvInventoryURL, ""),
		InventoryKey: get(EnvInventoryKey, ""),
		CRMURL:       get(EnvCRMURL, ""),
		CRMToken:     get(EnvCRMToken, ""),
		ERPDriver:    get(EnvERPDriver, defaultERPDriver),
		ERPDSN:       get(EnvERPDSN, ""),
		TicketsURL:   get(EnvTicketsURL, ""),
		TicketsToken: get(EnvTicketsToken, ""),
		PriceListURL: get(EnvPriceListURL, ""),
		MaxRetries:   defaultMaxRetries,
	}
	invalid := make(map[string]error)
	if v := get(EnvMaxRetries, ""); v != "" {
		n, err := strconv.Atoi(v)
		switch {
		case err != nil:
			invalid[EnvMaxRetries] = fmt.Errorf("%q is not a number", v)
		case n < 0:
			invalid[EnvMaxRetries] = fmt.Errorf("%d is negative", n)
		default:
			cfg.MaxRetries = n
		}
	}
	if !erpDrivers[cfg.ERPDriver] {
		invalid[EnvERPDriver] = fmt.Errorf("unsupported driver %q (supported: postgres)", cfg.ERPDriver)
	}

	cfg.values = values
	cfg.invalid = invalid
	return cfg
}

// Validate returns a *ConfigError for a value that was set but is unusable.
func (c Config) Validate() error {
	for _, k := range []string{EnvMaxRetries, EnvERPDriver} {
		if err, ok := c.invalid[k]; ok {
			return &ConfigError{Key: k, Err: err}
		}
	}
	return nil
}

// Require returns a *ConfigError for the first key that was not set or
// holds an unusable value.
func (c Config) Require(keys ...string) error {
	for _, k := range keys {
		if err, ok := c.invalid[k]; ok {
			return &ConfigError{Key: k, Err: err}
		}
		if _, ok := c.values[k]; !ok {
			return &ConfigError{Key: k}
		}
	}
	return nil
}

// Has reports whether every key was set.
func (c Config) Has(keys ...string) bool {
	return c.Require(keys...) == nil
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "account-review")
	}
	return ".cache"
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
