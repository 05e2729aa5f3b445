package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/scottbrown/account-review/acctreview"
)

const crmQueryPath = "services/data/v58.0/query"

var soqlEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// CRM is a client for the CRM query API. Accounts are matched on a custom
// slug field.
type CRM struct {
	api *apiClient

	SlugField string
	MaxPages  int
}

// NewCRM creates a CRM client authenticating with a bearer token.
func NewCRM(baseURL, token string, doer HTTPDoer, maxRetries int) *CRM {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	return &CRM{
		api:       newAPIClient(baseURL, header, doer, maxRetries),
		SlugField: "Slug__c",
		MaxPages:  defaultMaxPage,
	}
}

// System returns the name used in account errors.
func (c *CRM) System() string {
	return acctreview.SystemCRM
}

// Accounts lists every account slug, ordered by slug.
func (c *CRM) Accounts(ctx context.Context) ([]string, error) {
	soql := fmt.Sprintf("SELECT %s FROM Account WHERE %s != null ORDER BY %s", c.SlugField, c.SlugField, c.SlugField)
	var slugs []string
	err := c.query(ctx, soql, func(body []byte) {
		for _, s := range gjson.GetBytes(body, "records.#."+c.SlugField).Array() {
			slugs = append(slugs, s.String())
		}
	})
	if err != nil {
		return nil, err
	}
	return slugs, nil
}

// HasAccount reports whether an account carries the slug.
func (c *CRM) HasAccount(ctx context.Context, account string) (bool, error) {
	body, err := c.api.get(ctx, crmQueryPath, url.Values{"q": {c.accountSOQL("Id", account)}})
	if err != nil {
		return false, err
	}
	return gjson.GetBytes(body, "totalSize").Int() > 0, nil
}

// Fetcher returns a Fetcher for the account record of the crm-account source.
func (c *CRM) Fetcher(slug string) acctreview.Fetcher {
	return acctreview.FetcherFunc(func(ctx context.Context, account string, _ time.Time) ([]byte, error) {
		soql := c.accountSOQL("Name, "+c.SlugField+", Type, Industry, CreatedDate", account)
		body, err := c.api.get(ctx, crmQueryPath, url.Values{"q": {soql}})
		if err != nil {
			return nil, &acctreview.FetchError{Source: slug, Account: account, Err: err}
		}
		if !gjson.ValidBytes(body) {
			return nil, &acctreview.FetchError{Source: slug, Account: account, Err: fmt.Errorf("malformed query response")}
		}
		if gjson.GetBytes(body, "totalSize").Int() == 0 {
			return nil, &acctreview.AccountError{Account: account, System: c.System()}
		}
		return body, nil
	})
}

func (c *CRM) accountSOQL(fields, account string) string {
	return fmt.Sprintf("SELECT %s FROM Account WHERE %s = '%s'", fields, c.SlugField, soqlEscaper.Replace(account))
}

// query runs soql and calls fn with every result page, following nextRecordsUrl.
func (c *CRM) query(ctx context.Context, soql string, fn func(body []byte)) error {
	ref, query := crmQueryPath, url.Values{"q": {soql}}
	for page := 0; ; page++ {
		if page >= c.MaxPages {
			return fmt.Errorf("query exceeded %d pages", c.MaxPages)
		}
		body, err := c.api.get(ctx, ref, query)
		if err != nil {
			return err
		}
		fn(body)
		if gjson.GetBytes(body, "done").Bool() {
			return nil
		}
		next := gjson.GetBytes(body, "nextRecordsUrl").String()
		if next == "" {
			return nil
		}
		ref, query = next, nil
	}
}
