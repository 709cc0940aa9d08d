package fetcher

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"storefront/internal/model"
)

// merchantNS is the namespace prefix used by Google Merchant product feeds.
const merchantNS = "g"

// ParseFeed parses an RSS or Atom product feed. Merchant attributes
// (g:id, g:price, g:brand, ...) fill the matching product fields; items
// without them still produce products with a title and link.
func ParseFeed(body string) ([]model.Product, error) {
	parser := gofeed.NewParser()
	feed, err := parser.ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	products := make([]model.Product, 0, len(feed.Items))
	for _, item := range feed.Items {
		products = append(products, productFromItem(item))
	}
	return products, nil
}

func productFromItem(item *gofeed.Item) model.Product {
	attrs := item.Extensions[merchantNS]

	p := model.Product{
		ID:                 ItemID(item),
		Description:        item.Description,
		Link:               item.Link,
		Category:           merchantValue(attrs, "product_type"),
		AvailabilityStatus: merchantValue(attrs, "availability"),
	}

	title := item.Title
	if v := merchantValue(attrs, "title"); v != "" {
		title = v
	}
	if title != "" {
		p.Title = &title
	}

	if v := merchantValue(attrs, "brand"); v != "" {
		p.Brand = &v
	}

	price := merchantValue(attrs, "sale_price")
	if price == "" {
		price = merchantValue(attrs, "price")
	}
	if v, ok := parsePrice(price); ok {
		p.Price = &v
	}

	if img := merchantValue(attrs, "image_link"); img != "" {
		p.Thumbnail = img
		p.Images = []string{img}
	} else if item.Image != nil {
		p.Thumbnail = item.Image.URL
	}
	if p.Category == "" && len(item.Categories) > 0 {
		p.Category = item.Categories[0]
	}
	return p
}

// ItemID returns the numeric product ID of a feed item. Numeric g:id
// values are used as is; otherwise an FNV-1a hash of g:id, GUID or link.
func ItemID(item *gofeed.Item) int64 {
	key := merchantValue(item.Extensions[merchantNS], "id")
	if id, err := strconv.ParseInt(key, 10, 64); err == nil && id > 0 {
		return id
	}
	if key == "" {
		key = item.GUID
	}
	if key == "" {
		key = item.Title + "|" + item.Link
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum32())
}

func merchantValue(attrs map[string][]ext.Extension, name string) string {
	values := attrs[name]
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0].Value)
}

// parsePrice reads the amount of a merchant price such as "1,299.00 USD".
func parsePrice(raw string) (float64, bool) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(fields[0], ",", ""), 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
