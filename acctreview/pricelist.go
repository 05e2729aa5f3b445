package acctreview

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
)

// Price-list output columns.
const (
	PriceRegion        = "Region"
	PriceInstanceType  = "Instance Type"
	PricePlatform      = "Platform"
	PriceTenancy       = "Tenancy"
	PriceContract      = "Contract Length"
	PriceOfferingClass = "Offering Class"
	PricePaymentType   = "Payment Type"
	PriceUpfront       = "Upfront"
	PriceHourly        = "Hourly"
	PriceMonthly       = "Monthly"
	PriceEffectiveDate = "Effective Date"
)

const (
	priceListPreambleLines = 5

	paymentAllUpfront = "All Upfront"
	paymentNoUpfront  = "No Upfront"
)

var hoursPerMonth = MustMoney("730")

// Offer file columns read by the decoder.
var priceListColumns = []string{
	"TermType", "EffectiveDate", "Unit", "PricePerUnit", "LeaseContractLength",
	"PurchaseOption", "OfferingClass", "Location", "Instance Type", "Tenancy", "Operating System",
}

type priceRow struct {
	key       priceKey
	effective string
	unit      string
	price     string
}

// priceKey identifies one reserved offering. Field order is the sort order.
type priceKey struct {
	region, tenancy, platform, instanceType, contract, payment, class string
}

func (k priceKey) fields() []string {
	return []string{k.region, k.tenancy, k.platform, k.instanceType, k.contract, k.payment, k.class}
}

type priceGroup struct {
	key     priceKey
	date    string
	stopped bool
	upfront Money
	hourly  Money
}

// decodePriceList reads a reserved-instance offer file: a fixed metadata
// preamble, a header row, then one row per price dimension. Rows are grouped
// per offering and folded into one record carrying upfront and recurring prices.
func decodePriceList(raw []byte) ([]Record, error) {
	body, err := skipLines(raw, priceListPreambleLines)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	lines, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read price list: %w", err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("price list has no header row")
	}

	index := make(map[string]int, len(lines[0]))
	for i, h := range lines[0] {
		index[h] = i
	}
	for _, c := range priceListColumns {
		if _, ok := index[c]; !ok {
			return nil, &NormalizeError{Field: c, Err: fmt.Errorf("missing price list column")}
		}
	}

	col := func(line []string, name string) string {
		if i := index[name]; i < len(line) {
			return line[i]
		}
		return ""
	}

	rows := make([]priceRow, 0, len(lines)-1)
	for _, line := range lines[1:] {
		if col(line, "TermType") != "Reserved" {
			continue
		}
		rows = append(rows, priceRow{
			key: priceKey{
				region:       col(line, "Location"),
				tenancy:      col(line, "Tenancy"),
				platform:     col(line, "Operating System"),
				instanceType: col(line, "Instance Type"),
				contract:     col(line, "LeaseContractLength"),
				payment:      col(line, "PurchaseOption"),
				class:        col(line, "OfferingClass"),
			},
			effective: col(line, "EffectiveDate"),
			unit:      col(line, "Unit"),
			price:     col(line, "PricePerUnit"),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := append(rows[i].key.fields(), rows[i].effective), append(rows[j].key.fields(), rows[j].effective)
		for n := range a {
			if a[n] != b[n] {
				return a[n] > b[n]
			}
		}
		return false
	})

	var records []Record
	var current *priceGroup
	for _, row := range rows {
		if current == nil || row.key != current.key {
			if current != nil {
				if rec, ok := current.record(); ok {
					records = append(records, rec)
				}
			}
			current = &priceGroup{key: row.key, date: row.effective}
		}
		if current.stopped {
			continue
		}
		if row.effective != current.date {
			// A superseded price list entry; the first date seen wins.
			current.stopped = true
			continue
		}
		price, err := NewMoney(row.price)
		if err != nil {
			return nil, &NormalizeError{Field: "PricePerUnit", Err: err}
		}
		switch row.unit {
		case "Quantity":
			current.upfront = price
		case "Hrs":
			current.hourly = price
		}
	}
	if current != nil {
		if rec, ok := current.record(); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (g *priceGroup) record() (Record, bool) {
	if g.key.payment == "" || g.key.region == "" {
		return nil, false
	}
	upfront, hourly := g.upfront, g.hourly
	monthly := hourly.Mul(hoursPerMonth)
	switch g.key.payment {
	case paymentAllUpfront:
		monthly = Money{}
	case paymentNoUpfront:
		upfront = Money{}
	}
	return Record{
		PriceRegion:        g.key.region,
		PriceInstanceType:  g.key.instanceType,
		PricePlatform:      g.key.platform,
		PriceTenancy:       g.key.tenancy,
		PriceContract:      g.key.contract,
		PriceOfferingClass: g.key.class,
		PricePaymentType:   g.key.payment,
		PriceUpfront:       upfront,
		PriceHourly:        hourly,
		PriceMonthly:       monthly,
		PriceEffectiveDate: g.date,
	}, true
}

func skipLines(raw []byte, n int) ([]byte, error) {
	for i := 0; i < n; i++ {
		nl := bytes.IndexByte(raw, '\n')
		if nl < 0 {
			return nil, fmt.Errorf("price list shorter than its %d line preamble", n)
		}
		raw = raw[nl+1:]
	}
	return raw, nil
}
