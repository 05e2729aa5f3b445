package source

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/scottbrown/account-review/acctreview"
)

const (
	customerCountQuery = `SELECT COUNT(*) FROM customers WHERE slug = ?`

	invoicesQuery = `SELECT invoice_number, invoice_date, due_date,
	CAST(amount AS VARCHAR(32)) AS amount, currency, status
FROM invoices
WHERE customer_slug = ? AND invoice_date >= ? AND invoice_date < ?
ORDER BY invoice_date, invoice_number`
)

// Querier is the subset of *sqlx.DB used by the ERP source.
type Querier interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	Rebind(query string) string
}

// Invoice is one accounting document of a customer. Amount is kept as text so
// no precision is lost before normalization.
type Invoice struct {
	InvoiceNumber string     `db:"invoice_number" json:"InvoiceNumber"`
	InvoiceDate   time.Time  `db:"invoice_date" json:"InvoiceDate"`
	DueDate       *time.Time `db:"due_date" json:"DueDate"`
	Amount        string     `db:"amount" json:"Amount"`
	Currency      string     `db:"currency" json:"Currency"`
	Status        string     `db:"status" json:"Status"`
}

// ERP reads customers and invoices from the accounting database.
type ERP struct {
	db Querier
}

// OpenERP connects to the accounting database.
func OpenERP(driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to accounting database: %w", err)
	}
	return db, nil
}

// NewERP creates an ERP source over db.
func NewERP(db Querier) *ERP {
	return &ERP{db: db}
}

// System returns the name used in account errors.
func (e *ERP) System() string {
	return acctreview.SystemERP
}

// HasAccount reports whether a customer record carries the slug.
func (e *ERP) HasAccount(ctx context.Context, account string) (bool, error) {
	var n int
	if err := e.db.GetContext(ctx, &n, e.db.Rebind(customerCountQuery), account); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Fetcher returns a Fetcher for the invoices issued in the month of the
// report date, encoded as {"Invoices": [...]}.
func (e *ERP) Fetcher(slug string) acctreview.Fetcher {
	return acctreview.FetcherFunc(func(ctx context.Context, account string, date time.Time) ([]byte, error) {
		ok, err := e.HasAccount(ctx, account)
		if err != nil {
			return nil, &acctreview.FetchError{Source: slug, Account: account, Err: err}
		}
		if !ok {
			return nil, &acctreview.AccountError{Account: account, System: e.System()}
		}

		start, end := acctreview.MonthBounds(date)
		invoices := make([]Invoice, 0)
		if err := e.db.SelectContext(ctx, &invoices, e.db.Rebind(invoicesQuery), account, start, end); err != nil {
			return nil, &acctreview.FetchError{Source: slug, Account: account, Err: err}
		}
		data, err := json.Marshal(struct {
			Invoices []Invoice `json:"Invoices"`
		}{Invoices: invoices})
		if err != nil {
			return nil, &acctreview.FetchError{Source: slug, Account: account, Err: err}
		}
		return data, nil
	})
}
