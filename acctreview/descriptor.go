package acctreview

// Format selects how a raw payload is decoded into records.
type Format int

const (
	// FormatFlat is a JSON object with one array property holding row objects.
	FormatFlat Format = iota
	// FormatPaged is a JSON array of pages, each shaped like FormatFlat.
	FormatPaged
	// FormatCheck is a best-practice payload of pipe-and-colon encoded rows.
	FormatCheck
	// FormatPriceList is a vendor price-list CSV with a metadata preamble.
	FormatPriceList
)

func (f Format) String() string {
	switch f {
	case FormatFlat:
		return "flat"
	case FormatPaged:
		return "paged"
	case FormatCheck:
		return "check"
	case FormatPriceList:
		return "pricelist"
	default:
		return "unknown"
	}
}

// Derived column names produced from a combined instance field.
const (
	InstanceIDField   = "Instance ID"
	InstanceNameField = "Instance Name"
)

// Descriptor declares how one data source is normalized. It is plain data;
// the Normalize engine reads it to assemble the decode and transform steps.
type Descriptor struct {
	// Slug names the source and is the last element of its cache key.
	Slug  string
	Title string

	Format Format

	// DataKey is the gjson path of the row array in a flat payload or in each page.
	DataKey string

	// Fields is the declared column list; it becomes the table header, in order.
	Fields []string

	// Optional tolerates declared fields missing from a row by filling nil.
	Optional bool

	MoneyFields []string
	DateFields  []string

	// CheckID is the best-practice check whose rows are kept when a payload
	// holds more than one check block.
	CheckID int

	// InstanceField, when set, is split into InstanceIDField and InstanceNameField
	// before projection.
	InstanceField string
}
