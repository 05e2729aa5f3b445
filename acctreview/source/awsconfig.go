package source

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/configservice"
	"github.com/aws/aws-sdk-go-v2/service/configservice/types"

	"github.com/scottbrown/account-review/acctreview"
)

const batchGetLimit = 100

var regionPattern = regexp.MustCompile(`^[a-z]{2}-[a-z]+-\d+$`)

// Region represents an AWS region identifier.
type Region string

// String returns the string representation of the region.
func (r Region) String() string {
	return string(r)
}

// IsValid checks if the region follows the AWS region naming pattern.
func (r Region) IsValid() bool {
	return regionPattern.MatchString(string(r))
}

// ParseRegions validates a region list, dropping blanks.
func ParseRegions(input []string) ([]Region, error) {
	regions := make([]Region, 0, len(input))
	for _, p := range input {
		r := Region(strings.TrimSpace(p))
		if r == "" {
			continue
		}
		if !r.IsValid() {
			return nil, fmt.Errorf("invalid region: %s", r)
		}
		regions = append(regions, r)
	}
	return regions, nil
}

// ConfigClient defines the interface for AWS Config operations.
type ConfigClient interface {
	ListDiscoveredResources(ctx context.Context, params *configservice.ListDiscoveredResourcesInput, optFns ...func(*configservice.Options)) (*configservice.ListDiscoveredResourcesOutput, error)
	BatchGetResourceConfig(ctx context.Context, params *configservice.BatchGetResourceConfigInput, optFns ...func(*configservice.Options)) (*configservice.BatchGetResourceConfigOutput, error)
	GetDiscoveredResourceCounts(ctx context.Context, params *configservice.GetDiscoveredResourceCountsInput, optFns ...func(*configservice.Options)) (*configservice.GetDiscoveredResourceCountsOutput, error)
}

// ConfigClientFactory creates a ConfigClient for an account in a region. The
// account slug names the shared-config profile holding its credentials.
type ConfigClientFactory func(ctx context.Context, account string, region Region) (ConfigClient, error)

// Resource is one AWS resource recorded by AWS Config.
type Resource struct {
	ResourceType         string     `json:"resourceType"`
	ResourceID           string     `json:"resourceId"`
	ResourceName         string     `json:"resourceName,omitempty"`
	Region               Region     `json:"awsRegion"`
	AvailabilityZone     string     `json:"availabilityZone,omitempty"`
	AccountID            string     `json:"accountId,omitempty"`
	ARN                  string     `json:"arn,omitempty"`
	ResourceCreationTime *time.Time `json:"resourceCreationTime,omitempty"`
}

// ResourcePage is the payload page of one region.
type ResourcePage struct {
	Region    Region     `json:"region"`
	Resources []Resource `json:"resources"`
}

// RegionError represents an error that occurred in a specific region.
type RegionError struct {
	Region Region
	Err    error
}

func (re RegionError) Error() string {
	return fmt.Sprintf("[%s] %v", re.Region, re.Err)
}

func (re RegionError) Unwrap() error {
	return re.Err
}

// CollectErrors aggregates multiple region errors.
type CollectErrors struct {
	Errors []RegionError
}

func (ce CollectErrors) Error() string {
	if len(ce.Errors) == 1 {
		return ce.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d regions failed: ", len(ce.Errors)))
	for i, e := range ce.Errors {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(e.Error())
	}
	return sb.String()
}

// Regions returns the list of failed regions.
func (ce CollectErrors) Regions() []Region {
	regions := make([]Region, len(ce.Errors))
	for i, e := range ce.Errors {
		regions[i] = e.Region
	}
	return regions
}

// AWSConfig gathers the resources AWS Config knows about, region by region.
type AWSConfig struct {
	regions       []Region
	clientFactory ConfigClientFactory

	MaxRetries int

	// Logger receives progress messages. Nil disables logging.
	Logger func(format string, args ...any)
}

// NewAWSConfig creates an AWS Config source for the given regions.
func NewAWSConfig(regions []Region, clientFactory ConfigClientFactory) *AWSConfig {
	return &AWSConfig{
		regions:       regions,
		clientFactory: clientFactory,
		MaxRetries:    DefaultMaxRetries,
	}
}

func (c *AWSConfig) logf(format string, args ...any) {
	if c.Logger != nil {
		c.Logger(format, args...)
	}
}

// Fetcher returns a Fetcher producing one page per region. AWS Config
// reports current state, so the report date only selects the cache month.
func (c *AWSConfig) Fetcher(slug string) acctreview.Fetcher {
	return acctreview.FetcherFunc(func(ctx context.Context, account string, _ time.Time) ([]byte, error) {
		pages, err := c.Collect(ctx, account)
		if err != nil {
			return nil, &acctreview.FetchError{Source: slug, Account: account, Err: err}
		}
		data, err := json.Marshal(pages)
		if err != nil {
			return nil, &acctreview.FetchError{Source: slug, Account: account, Err: err}
		}
		return data, nil
	})
}

// Collect gathers the resources of account in every region. Any region
// failure is reported in a CollectErrors.
func (c *AWSConfig) Collect(ctx context.Context, account string) ([]ResourcePage, error) {
	pages := make([]ResourcePage, 0, len(c.regions))
	var errs []RegionError

	for _, region := range c.regions {
		c.logf("aws-config: collecting %s in %s", account, region)
		resources, err := c.collectRegion(ctx, account, region)
		if err != nil {
			errs = append(errs, RegionError{Region: region, Err: err})
			continue
		}
		c.logf("aws-config: %d resources in %s", len(resources), region)
		pages = append(pages, ResourcePage{Region: region, Resources: resources})
	}

	if len(errs) > 0 {
		return nil, CollectErrors{Errors: errs}
	}
	return pages, nil
}

func (c *AWSConfig) collectRegion(ctx context.Context, account string, region Region) ([]Resource, error) {
	client, err := c.clientFactory(ctx, account, region)
	if err != nil {
		return nil, err
	}

	resourceTypes, err := c.discoverResourceTypes(ctx, client)
	if err != nil {
		return nil, err
	}

	resources := make([]Resource, 0)
	for _, rt := range resourceTypes {
		rtResources, err := c.collectResourceType(ctx, client, region, rt)
		if err != nil {
			return nil, err
		}
		resources = append(resources, rtResources...)
	}

	return resources, nil
}

func (c *AWSConfig) discoverResourceTypes(ctx context.Context, client ConfigClient) ([]types.ResourceType, error) {
	var resourceTypes []types.ResourceType
	var nextToken *string

	for {
		input := &configservice.GetDiscoveredResourceCountsInput{
			NextToken: nextToken,
		}

		output, err := retry(ctx, c.MaxRetries, func() (*configservice.GetDiscoveredResourceCountsOutput, error) {
			return client.GetDiscoveredResourceCounts(ctx, input)
		})
		if err != nil {
			return nil, err
		}

		for _, count := range output.ResourceCounts {
			if count.ResourceType != "" {
				resourceTypes = append(resourceTypes, count.ResourceType)
			}
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return resourceTypes, nil
}

func (c *AWSConfig) collectResourceType(ctx context.Context, client ConfigClient, region Region, resourceType types.ResourceType) ([]Resource, error) {
	var resources []Resource
	var nextToken *string

	for {
		input := &configservice.ListDiscoveredResourcesInput{
			ResourceType: resourceType,
			NextToken:    nextToken,
		}

		output, err := retry(ctx, c.MaxRetries, func() (*configservice.ListDiscoveredResourcesOutput, error) {
			return client.ListDiscoveredResources(ctx, input)
		})
		if err != nil {
			return nil, err
		}

		resourceKeys := make([]types.ResourceKey, 0, len(output.ResourceIdentifiers))
		for _, ri := range output.ResourceIdentifiers {
			resourceKeys = append(resourceKeys, types.ResourceKey{
				ResourceType: resourceType,
				ResourceId:   ri.ResourceId,
			})
		}

		if len(resourceKeys) > 0 {
			detailed, err := c.batchGetResources(ctx, client, region, resourceKeys)
			if err != nil {
				// Fall back to the identifiers when details are unavailable.
				c.logf("aws-config: batch get %s in %s failed: %v", resourceType, region, err)
				for _, ri := range output.ResourceIdentifiers {
					resources = append(resources, Resource{
						ResourceType: string(resourceType),
						ResourceID:   aws.ToString(ri.ResourceId),
						ResourceName: aws.ToString(ri.ResourceName),
						Region:       region,
					})
				}
			} else {
				resources = append(resources, detailed...)
			}
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return resources, nil
}

func (c *AWSConfig) batchGetResources(ctx context.Context, client ConfigClient, region Region, keys []types.ResourceKey) ([]Resource, error) {
	var resources []Resource

	for i := 0; i < len(keys); i += batchGetLimit {
		end := i + batchGetLimit
		if end > len(keys) {
			end = len(keys)
		}
		input := &configservice.BatchGetResourceConfigInput{
			ResourceKeys: keys[i:end],
		}

		output, err := retry(ctx, c.MaxRetries, func() (*configservice.BatchGetResourceConfigOutput, error) {
			return client.BatchGetResourceConfig(ctx, input)
		})
		if err != nil {
			return nil, err
		}

		for _, item := range output.BaseConfigurationItems {
			resources = append(resources, Resource{
				ResourceType:         string(item.ResourceType),
				ResourceID:           aws.ToString(item.ResourceId),
				ResourceName:         aws.ToString(item.ResourceName),
				Region:               region,
				AvailabilityZone:     aws.ToString(item.AvailabilityZone),
				AccountID:            aws.ToString(item.AccountId),
				ARN:                  aws.ToString(item.Arn),
				ResourceCreationTime: item.ResourceCreationTime,
			})
		}
	}

	return resources, nil
}
