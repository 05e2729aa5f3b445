package acctreview

import "sort"

// Systems that supply payloads. A descriptor's System selects its fetcher.
const (
	SystemInventory = "inventory"
	SystemAWSConfig = "aws-config"
	SystemPriceList = "pricelist"
	SystemERP       = "erp"
	SystemTickets   = "tickets"
	SystemCRM       = "crm"
)

const savingsField = "Estimated Monthly Savings"

// SourceSpec is a catalog entry: a descriptor and the system that fetches it.
type SourceSpec struct {
	System     string
	Descriptor Descriptor
}

var sources = []SourceSpec{
	{
		System: SystemInventory,
		Descriptor: Descriptor{
			Slug:     "compute-details",
			Title:    "Compute Details",
			Format:   FormatFlat,
			DataKey:  "Ec2Instances",
			Optional: true,
			Fields: []string{
				"InstanceId", "InstanceName", "InstanceType", "Platform", "RegionName",
				"State", "LaunchTime", "PrivateIpAddress", "PublicIpAddress", "MonthlyCost",
			},
			MoneyFields: []string{"MonthlyCost"},
			DateFields:  []string{"LaunchTime"},
		},
	},
	{
		System: SystemInventory,
		Descriptor: Descriptor{
			Slug:     "volumes",
			Title:    "Volumes",
			Format:   FormatPaged,
			DataKey:  "EbsVolumes",
			Optional: true,
			Fields: []string{
				"VolumeId", "VolumeType", "Size", "State", "AttachedInstanceId",
				"RegionName", "CreateTime", "MonthlyCost",
			},
			MoneyFields: []string{"MonthlyCost"},
			DateFields:  []string{"CreateTime"},
		},
	},
	{
		System: SystemInventory,
		Descriptor: Descriptor{
			Slug:          "idle-instances",
			Title:         "Idle Instances",
			Format:        FormatCheck,
			CheckID:       3,
			InstanceField: "Instance",
			Fields: []string{
				InstanceIDField, InstanceNameField, "Instance Type", "Region",
				"Average CPU Utilization", savingsField,
			},
			MoneyFields: []string{savingsField},
		},
	},
	{
		System: SystemInventory,
		Descriptor: Descriptor{
			Slug:        "unused-elastic-ips",
			Title:       "Unused Elastic IPs",
			Format:      FormatCheck,
			CheckID:     8,
			Fields:      []string{"Elastic IP", "Region", savingsField},
			MoneyFields: []string{savingsField},
		},
	},
	{
		System: SystemInventory,
		Descriptor: Descriptor{
			Slug:          "underutilized-volumes",
			Title:         "Underutilized Volumes",
			Format:        FormatCheck,
			CheckID:       209,
			InstanceField: "Instance",
			Fields: []string{
				"Volume ID", InstanceIDField, InstanceNameField, "Region", "Size", savingsField,
			},
			MoneyFields: []string{savingsField},
		},
	},
	{
		System: SystemAWSConfig,
		Descriptor: Descriptor{
			Slug:     "aws-resources",
			Title:    "AWS Resources",
			Format:   FormatPaged,
			DataKey:  "resources",
			Optional: true,
			Fields: []string{
				"resourceType", "resourceId", "resourceName", "awsRegion",
				"availabilityZone", "accountId", "arn", "resourceCreationTime",
			},
			DateFields: []string{"resourceCreationTime"},
		},
	},
	{
		System: SystemPriceList,
		Descriptor: Descriptor{
			Slug:   "ri-pricing",
			Title:  "RI Pricing",
			Format: FormatPriceList,
			Fields: []string{
				PriceRegion, PriceInstanceType, PricePlatform, PriceTenancy, PriceContract,
				PriceOfferingClass, PricePaymentType, PriceUpfront, PriceHourly, PriceMonthly,
				PriceEffectiveDate,
			},
			MoneyFields: []string{PriceUpfront, PriceHourly, PriceMonthly},
		},
	},
	{
		System: SystemERP,
		Descriptor: Descriptor{
			Slug:        "invoices",
			Title:       "Invoices",
			Format:      FormatFlat,
			DataKey:     "Invoices",
			Fields:      []string{"InvoiceNumber", "InvoiceDate", "DueDate", "Amount", "Currency", "Status"},
			MoneyFields: []string{"Amount"},
			DateFields:  []string{"InvoiceDate", "DueDate"},
		},
	},
	{
		System: SystemTickets,
		Descriptor: Descriptor{
			Slug:       "tickets",
			Title:      "Tickets",
			Format:     FormatPaged,
			DataKey:    "tickets",
			Optional:   true,
			Fields:     []string{"id", "subject", "status", "priority", "assignee", "created_at", "updated_at"},
			DateFields: []string{"created_at", "updated_at"},
		},
	},
	{
		System: SystemCRM,
		Descriptor: Descriptor{
			Slug:       "crm-account",
			Title:      "CRM Account",
			Format:     FormatFlat,
			DataKey:    "records",
			Optional:   true,
			Fields:     []string{"Name", "Slug__c", "Type", "Industry", "CreatedDate"},
			DateFields: []string{"CreatedDate"},
		},
	},
}

// Sources returns the catalog of data sources, sorted by slug.
func Sources() []SourceSpec {
	out := make([]SourceSpec, len(sources))
	copy(out, sources)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Descriptor.Slug < out[j].Descriptor.Slug
	})
	return out
}

// LookupSource returns the catalog entry for slug.
func LookupSource(slug string) (SourceSpec, bool) {
	for _, s := range sources {
		if s.Descriptor.Slug == slug {
			return s, true
		}
	}
	return SourceSpec{}, false
}

// SheetSpec names a source to include in a report and its chart, if any.
type SheetSpec struct {
	Source string
	Chart  *Chart
}

// ReportSpec is a named multi-sheet report.
type ReportSpec struct {
	Name   string
	Title  string
	Sheets []SheetSpec
}

var reports = []ReportSpec{
	{
		Name:  "account-review",
		Title: "Account Review",
		Sheets: []SheetSpec{
			{Source: "crm-account"},
			{Source: "compute-details"},
			{Source: "volumes"},
			{Source: "aws-resources"},
			{Source: "idle-instances", Chart: &Chart{Title: "Idle instance savings", Category: InstanceNameField, Value: savingsField}},
			{Source: "unused-elastic-ips", Chart: &Chart{Title: "Unused Elastic IP savings", Category: "Elastic IP", Value: savingsField}},
			{Source: "underutilized-volumes"},
			{Source: "invoices", Chart: &Chart{Title: "Invoiced amount", Category: "InvoiceNumber", Value: "Amount"}},
			{Source: "tickets"},
		},
	},
	{
		Name:  "savings",
		Title: "Savings Opportunities",
		Sheets: []SheetSpec{
			{Source: "idle-instances", Chart: &Chart{Title: "Idle instance savings", Category: InstanceNameField, Value: savingsField}},
			{Source: "unused-elastic-ips", Chart: &Chart{Title: "Unused Elastic IP savings", Category: "Elastic IP", Value: savingsField}},
			{Source: "underutilized-volumes", Chart: &Chart{Title: "Volume savings", Category: "Volume ID", Value: savingsField}},
		},
	},
	{
		Name:   "pricing",
		Title:  "Reserved Instance Pricing",
		Sheets: []SheetSpec{{Source: "ri-pricing"}},
	},
}

// Reports returns the catalog of reports.
func Reports() []ReportSpec {
	out := make([]ReportSpec, len(reports))
	copy(out, reports)
	return out
}

// LookupReport returns the report named name.
func LookupReport(name string) (ReportSpec, bool) {
	for _, r := range reports {
		if r.Name == name {
			return r, true
		}
	}
	return ReportSpec{}, false
}
