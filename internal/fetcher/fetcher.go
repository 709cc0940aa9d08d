// Package fetcher downloads product catalogs and decodes them into products.
package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"storefront/internal/model"
)

const maxBodySize = 10 * 1024 * 1024

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher downloads product catalogs. JSON catalogs and RSS/Atom merchant
// feeds are both understood.
type Fetcher struct {
	client  HTTPClient
	timeout time.Duration
}

// New creates a Fetcher with the given HTTP client.
func New(client HTTPClient) *Fetcher {
	return &Fetcher{
		client:  client,
		timeout: 30 * time.Second,
	}
}

// Fetch downloads the catalog at url. A body starting with '{' or '['
// is decoded as a JSON catalog, anything else as a product feed.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]model.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "StorefrontBot/1.0")
	req.Header.Set("Accept", "application/json, application/rss+xml, application/atom+xml;q=0.9, */*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return DecodeCatalog(trimmed)
	}
	return ParseFeed(string(body))
}

// DecodeCatalog decodes a JSON catalog. Both the {"products": [...]}
// envelope and a bare array are accepted.
func DecodeCatalog(data []byte) ([]model.Product, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var products []model.Product
		if err := json.Unmarshal(data, &products); err != nil {
			return nil, fmt.Errorf("decode catalog: %w", err)
		}
		return nonNil(products), nil
	}

	var resp model.CatalogResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return nonNil(resp.Products), nil
}

func nonNil(products []model.Product) []model.Product {
	if products == nil {
		return []model.Product{}
	}
	return products
}

// Endpoint is a product source bound to a single catalog URL.
type Endpoint struct {
	fetcher *Fetcher
	url     string
}

// Endpoint returns a source that fetches the catalog at url.
func (f *Fetcher) Endpoint(url string) *Endpoint {
	return &Endpoint{fetcher: f, url: url}
}

// Fetch downloads the bound catalog.
func (e *Endpoint) Fetch(ctx context.Context) ([]model.Product, error) {
	return e.fetcher.Fetch(ctx, e.url)
}
