package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/scottbrown/account-review/acctreview"
)

// InventoryEndpoint describes one cloud-inventory API call.
type InventoryEndpoint struct {
	Path  string
	Query url.Values
	// Paged endpoints return a NextToken that is passed back as next_token
	// until it is empty.
	Paged bool
}

// InventoryEndpoints maps the inventory sources of the catalog to their calls.
// Best-practice endpoints are filtered to a single check server side.
var InventoryEndpoints = map[string]InventoryEndpoint{
	"compute-details":       {Path: "inventory/compute/instances"},
	"volumes":               {Path: "inventory/storage/volumes", Paged: true},
	"idle-instances":        {Path: "best-practices/checks", Query: checkQuery(3)},
	"unused-elastic-ips":    {Path: "best-practices/checks", Query: checkQuery(8)},
	"underutilized-volumes": {Path: "best-practices/checks", Query: checkQuery(209)},
}

func checkQuery(id int) url.Values {
	return url.Values{"check_ids": []string{strconv.Itoa(id)}}
}

// Inventory is a client for the cloud-inventory analytics API.
type Inventory struct {
	api *apiClient

	AccountsPath string
	MaxPages     int
}

// NewInventory creates an inventory API client authenticating with apiKey.
func NewInventory(baseURL, apiKey string, doer HTTPDoer, maxRetries int) *Inventory {
	header := http.Header{}
	header.Set("X-Api-Key", apiKey)
	return &Inventory{
		api:          newAPIClient(baseURL, header, doer, maxRetries),
		AccountsPath: "accounts",
		MaxPages:     defaultMaxPage,
	}
}

// System returns the name used in account errors.
func (inv *Inventory) System() string {
	return acctreview.SystemInventory
}

// HasAccount reports whether the inventory API manages account.
func (inv *Inventory) HasAccount(ctx context.Context, account string) (bool, error) {
	body, err := inv.api.get(ctx, inv.AccountsPath, nil)
	if err != nil {
		return false, err
	}
	for _, name := range gjson.GetBytes(body, "accounts.#.name").Array() {
		if name.String() == account {
			return true, nil
		}
	}
	return false, nil
}

// Fetcher returns a Fetcher for the source slug served by ep.
func (inv *Inventory) Fetcher(slug string, ep InventoryEndpoint) acctreview.Fetcher {
	return acctreview.FetcherFunc(func(ctx context.Context, account string, date time.Time) ([]byte, error) {
		data, err := inv.fetch(ctx, ep, account, date)
		if err != nil {
			var se *StatusError
			if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
				return nil, &acctreview.AccountError{Account: account, System: inv.System(), Err: err}
			}
			return nil, &acctreview.FetchError{Source: slug, Account: account, Err: err}
		}
		return data, nil
	})
}

func (inv *Inventory) fetch(ctx context.Context, ep InventoryEndpoint, account string, date time.Time) ([]byte, error) {
	query := url.Values{}
	for k, v := range ep.Query {
		query[k] = append([]string(nil), v...)
	}
	query.Set("account", account)
	query.Set("date", date.Format(acctreview.DateLayout))

	if !ep.Paged {
		body, err := inv.api.get(ctx, ep.Path, query)
		if err != nil {
			return nil, err
		}
		if !gjson.ValidBytes(body) {
			return nil, fmt.Errorf("malformed response from %s", ep.Path)
		}
		return body, nil
	}

	var pages [][]byte
	seen := make(map[string]bool)
	for {
		body, err := inv.api.get(ctx, ep.Path, query)
		if err != nil {
			return nil, err
		}
		if !gjson.ValidBytes(body) {
			return nil, fmt.Errorf("malformed response from %s page %d", ep.Path, len(pages)+1)
		}
		pages = append(pages, body)

		token := gjson.GetBytes(body, "NextToken").String()
		if token == "" {
			break
		}
		if seen[token] {
			return nil, fmt.Errorf("pagination token %q repeated at page %d", token, len(pages))
		}
		if len(pages) >= inv.MaxPages {
			return nil, fmt.Errorf("pagination exceeded %d pages", inv.MaxPages)
		}
		seen[token] = true
		query.Set("next_token", token)
	}
	return joinPages(pages), nil
}
