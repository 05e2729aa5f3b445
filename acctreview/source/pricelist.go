package source

import (
	"context"
	"time"

	"github.com/scottbrown/account-review/acctreview"
)

// PriceList downloads the reserved-instance offer file. Prices are not
// account specific, so every account receives the same payload.
type PriceList struct {
	api *apiClient
	url string
}

// NewPriceList creates a price list source for the offer file at url.
func NewPriceList(url string, doer HTTPDoer, maxRetries int) *PriceList {
	return &PriceList{
		api: newAPIClient("", nil, doer, maxRetries),
		url: url,
	}
}

// Fetcher returns a Fetcher for the offer file.
func (p *PriceList) Fetcher(slug string) acctreview.Fetcher {
	return acctreview.FetcherFunc(func(ctx context.Context, account string, _ time.Time) ([]byte, error) {
		body, err := p.api.get(ctx, p.url, nil)
		if err != nil {
			return nil, &acctreview.FetchError{Source: slug, Account: account, Err: err}
		}
		return body, nil
	})
}
