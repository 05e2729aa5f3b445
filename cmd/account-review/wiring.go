package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/configservice"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jmoiron/sqlx"

	"github.com/scottbrown/account-review/acctreview"
	"github.com/scottbrown/account-review/acctreview/source"
	"github.com/scottbrown/account-review/acctreview/store"
)

// newCache builds the payload cache: a local directory, plus an S3 bucket when
// one is configured.
func newCache(ctx context.Context, c acctreview.Config) (*acctreview.Cache, error) {
	local := store.NewDir(c.CacheDir)
	logger.Debugf("local cache: %s", local.Root())

	var remote acctreview.BlobStore
	if c.Bucket != "" {
		opts := []func(*config.LoadOptions) error{}
		if c.AWSRegion != "" {
			opts = append(opts, config.WithRegion(c.AWSRegion))
		}
		awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config for cache bucket: %w", err)
		}
		remote = store.NewS3(s3.NewFromConfig(awsCfg), c.Bucket, c.BucketPrefix)
		logger.Debugf("remote cache: s3://%s/%s", c.Bucket, c.BucketPrefix)
	}

	cache := acctreview.NewCache(local, remote)
	cache.Logger = debugf
	return cache, nil
}

// systems constructs the source clients on first use. Each client requires
// its own configuration keys, so a run only needs credentials for the
// systems its sources touch.
type systems struct {
	cfg acctreview.Config

	inventory *source.Inventory
	crm       *source.CRM
	erp       *source.ERP
	erpDB     *sqlx.DB
	tickets   *source.Tickets
	priceList *source.PriceList
	awsConfig *source.AWSConfig
}

func newSystems(c acctreview.Config) *systems {
	return &systems{cfg: c}
}

// Close releases the database connection, if one was opened.
func (s *systems) Close() error {
	if s.erpDB != nil {
		return s.erpDB.Close()
	}
	return nil
}

// Fetcher returns the fetcher for a catalog entry.
func (s *systems) Fetcher(spec acctreview.SourceSpec) (acctreview.Fetcher, error) {
	slug := spec.Descriptor.Slug
	switch spec.System {
	case acctreview.SystemInventory:
		inv, err := s.Inventory()
		if err != nil {
			return nil, err
		}
		ep, ok := source.InventoryEndpoints[slug]
		if !ok {
			return nil, fmt.Errorf("no inventory endpoint for %s", slug)
		}
		return inv.Fetcher(slug, ep), nil
	case acctreview.SystemCRM:
		crm, err := s.CRM()
		if err != nil {
			return nil, err
		}
		return crm.Fetcher(slug), nil
	case acctreview.SystemERP:
		erp, err := s.ERP()
		if err != nil {
			return nil, err
		}
		return erp.Fetcher(slug), nil
	case acctreview.SystemTickets:
		t, err := s.Tickets()
		if err != nil {
			return nil, err
		}
		return t.Fetcher(slug), nil
	case acctreview.SystemPriceList:
		p, err := s.PriceList()
		if err != nil {
			return nil, err
		}
		return p.Fetcher(slug), nil
	case acctreview.SystemAWSConfig:
		ac, err := s.AWSConfig()
		if err != nil {
			return nil, err
		}
		return ac.Fetcher(slug), nil
	default:
		return nil, fmt.Errorf("unknown system %q for %s", spec.System, slug)
	}
}

// Validator returns the account validator of a system, or nil when the
// system has no notion of accounts.
func (s *systems) Validator(system string) (acctreview.Validator, error) {
	switch system {
	case acctreview.SystemInventory:
		return s.Inventory()
	case acctreview.SystemCRM:
		return s.CRM()
	case acctreview.SystemERP:
		return s.ERP()
	case acctreview.SystemTickets:
		return s.Tickets()
	default:
		return nil, nil
	}
}

func (s *systems) Inventory() (*source.Inventory, error) {
	if s.inventory == nil {
		if err := s.cfg.Require(acctreview.EnvInventoryURL, acctreview.EnvInventoryKey); err != nil {
			return nil, err
		}
		s.inventory = source.NewInventory(s.cfg.InventoryURL, s.cfg.InventoryKey, nil, s.cfg.MaxRetries)
	}
	return s.inventory, nil
}

func (s *systems) CRM() (*source.CRM, error) {
	if s.crm == nil {
		if err := s.cfg.Require(acctreview.EnvCRMURL, acctreview.EnvCRMToken); err != nil {
			return nil, err
		}
		s.crm = source.NewCRM(s.cfg.CRMURL, s.cfg.CRMToken, nil, s.cfg.MaxRetries)
	}
	return s.crm, nil
}

func (s *systems) ERP() (*source.ERP, error) {
	if s.erp == nil {
		if err := s.cfg.Require(acctreview.EnvERPDSN); err != nil {
			return nil, err
		}
		if err := s.cfg.Validate(); err != nil {
			return nil, err
		}
		db, err := source.OpenERP(s.cfg.ERPDriver, s.cfg.ERPDSN)
		if err != nil {
			return nil, err
		}
		s.erpDB = db
		s.erp = source.NewERP(db)
	}
	return s.erp, nil
}

func (s *systems) Tickets() (*source.Tickets, error) {
	if s.tickets == nil {
		if err := s.cfg.Require(acctreview.EnvTicketsURL, acctreview.EnvTicketsToken); err != nil {
			return nil, err
		}
		s.tickets = source.NewTickets(s.cfg.TicketsURL, s.cfg.TicketsToken, nil, s.cfg.MaxRetries)
	}
	return s.tickets, nil
}

func (s *systems) PriceList() (*source.PriceList, error) {
	if s.priceList == nil {
		if err := s.cfg.Require(acctreview.EnvPriceListURL); err != nil {
			return nil, err
		}
		s.priceList = source.NewPriceList(s.cfg.PriceListURL, nil, s.cfg.MaxRetries)
	}
	return s.priceList, nil
}

func (s *systems) AWSConfig() (*source.AWSConfig, error) {
	if s.awsConfig == nil {
		names := s.cfg.AWSRegions
		if len(names) == 0 && s.cfg.AWSRegion != "" {
			names = []string{s.cfg.AWSRegion}
		}
		if len(names) == 0 {
			return nil, &acctreview.ConfigError{Key: acctreview.EnvAWSRegions}
		}
		regions, err := source.ParseRegions(names)
		if err != nil {
			return nil, err
		}
		s.awsConfig = source.NewAWSConfig(regions, configClientFactory)
		s.awsConfig.MaxRetries = s.cfg.MaxRetries
		s.awsConfig.Logger = debugf
	}
	return s.awsConfig, nil
}

// configClientFactory loads the shared-config profile named after the
// account for each region.
func configClientFactory(ctx context.Context, account string, region source.Region) (source.ConfigClient, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region.String()),
		config.WithSharedConfigProfile(account),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS profile %s: %w", account, err)
	}
	return configservice.NewFromConfig(awsCfg), nil
}

// buildReports resolves the sheets of a report into collator reports and the
// validators of the systems they use, in catalog order.
func buildReports(sys *systems, spec acctreview.ReportSpec) ([]acctreview.Report, []acctreview.Validator, error) {
	reports := make([]acctreview.Report, 0, len(spec.Sheets))
	var validators []acctreview.Validator
	seen := make(map[string]bool)

	for _, sheet := range spec.Sheets {
		src, ok := acctreview.LookupSource(sheet.Source)
		if !ok {
			return nil, nil, fmt.Errorf("report %s: unknown source %s", spec.Name, sheet.Source)
		}
		fetcher, err := sys.Fetcher(src)
		if err != nil {
			return nil, nil, err
		}
		reports = append(reports, acctreview.Report{
			Name:       src.Descriptor.Title,
			Descriptor: src.Descriptor,
			Fetcher:    fetcher,
			Chart:      sheet.Chart,
		})

		if seen[src.System] {
			continue
		}
		seen[src.System] = true
		v, err := sys.Validator(src.System)
		if err != nil {
			return nil, nil, err
		}
		if v != nil {
			validators = append(validators, v)
		}
	}
	return reports, validators, nil
}
