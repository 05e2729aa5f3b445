package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/scottbrown/account-review/acctreview"
)

// Tickets is a client for the internal ticketing API.
type Tickets struct {
	api *apiClient

	MaxPages int
}

// NewTickets creates a ticketing API client.
func NewTickets(baseURL, token string, doer HTTPDoer, maxRetries int) *Tickets {
	header := http.Header{}
	header.Set("Authorization", "Token "+token)
	return &Tickets{
		api:      newAPIClient(baseURL, header, doer, maxRetries),
		MaxPages: defaultMaxPage,
	}
}

// System returns the name used in account errors.
func (t *Tickets) System() string {
	return acctreview.SystemTickets
}

// HasAccount reports whether an organization carries the slug.
func (t *Tickets) HasAccount(ctx context.Context, account string) (bool, error) {
	body, err := t.api.get(ctx, "api/v1/organizations", url.Values{"slug": {account}})
	if err != nil {
		return false, err
	}
	return gjson.GetBytes(body, "organizations.#").Int() > 0, nil
}

// Fetcher returns a Fetcher for the tickets opened in the month of the report
// date. The payload is the JSON array of result pages.
func (t *Tickets) Fetcher(slug string) acctreview.Fetcher {
	return acctreview.FetcherFunc(func(ctx context.Context, account string, date time.Time) ([]byte, error) {
		data, err := t.fetch(ctx, account, date)
		if err != nil {
			var se *StatusError
			if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
				return nil, &acctreview.AccountError{Account: account, System: t.System(), Err: err}
			}
			return nil, &acctreview.FetchError{Source: slug, Account: account, Err: err}
		}
		return data, nil
	})
}

func (t *Tickets) fetch(ctx context.Context, account string, date time.Time) ([]byte, error) {
	start, end := acctreview.MonthBounds(date)
	ref := "api/v1/tickets"
	query := url.Values{
		"organization":   {account},
		"created_after":  {start.Format(acctreview.DateLayout)},
		"created_before": {end.Format(acctreview.DateLayout)},
	}

	var pages [][]byte
	for {
		body, err := t.api.get(ctx, ref, query)
		if err != nil {
			return nil, err
		}
		if !gjson.ValidBytes(body) {
			return nil, fmt.Errorf("malformed response on page %d", len(pages)+1)
		}
		pages = append(pages, body)

		next := gjson.GetBytes(body, "next_page").String()
		if next == "" {
			break
		}
		if len(pages) >= t.MaxPages {
			return nil, fmt.Errorf("pagination exceeded %d pages", t.MaxPages)
		}
		ref, query = next, nil
	}
	return joinPages(pages), nil
}
