package fetcher

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"storefront/internal/model"
)

type mockTransport struct {
	body       string
	statusCode int
	err        error
	lastReq    *http.Request
}

func (m *mockTransport) Do(req *http.Request) (*http.Response, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

func loadFixture(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // test-only fixture loading
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	return string(data)
}

func titles(products []model.Product) []string {
	var out []string
	for _, p := range products {
		out = append(out, p.TitleOr("<none>"))
	}
	return out
}

func TestFetch(t *testing.T) {
	catalogJSON := loadFixture(t, "../../testdata/products.json")
	feedXML := loadFixture(t, "../../testdata/merchant.xml")

	tests := []struct {
		name       string
		transport  *mockTransport
		wantTitles []string
		wantErr    bool
	}{
		{
			name:      "json catalog",
			transport: &mockTransport{body: catalogJSON, statusCode: 200},
			wantTitles: []string{
				"Essence Mascara Lash Princess",
				"Eyeshadow Palette with Mirror",
				"Powder Canister",
				"Red Lipstick",
				"Dior J'adore",
			},
		},
		{
			name:       "bare json array",
			transport:  &mockTransport{body: ` [{"id": 7, "title": "Lamp"}]`, statusCode: 200},
			wantTitles: []string{"Lamp"},
		},
		{
			name:       "empty catalog",
			transport:  &mockTransport{body: `{"products": []}`, statusCode: 200},
			wantTitles: nil,
		},
		{
			name:       "merchant feed",
			transport:  &mockTransport{body: feedXML, statusCode: 200},
			wantTitles: []string{"Pixel 8 Pro", "Galaxy Tab S9", "USB-C Cable"},
		},
		{
			name:      "http error status",
			transport: &mockTransport{body: "not found", statusCode: 404},
			wantErr:   true,
		},
		{
			name:      "network error",
			transport: &mockTransport{err: io.ErrUnexpectedEOF},
			wantErr:   true,
		},
		{
			name:      "broken json",
			transport: &mockTransport{body: `{"products": [`, statusCode: 200},
			wantErr:   true,
		},
		{
			name:      "neither json nor feed",
			transport: &mockTransport{body: "plain text", statusCode: 200},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(tt.transport)
			got, err := f.Fetch(context.Background(), "https://example.com/products")

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got == nil {
				t.Fatal("expected non-nil product list")
			}
			if diff := cmp.Diff(tt.wantTitles, titles(got)); diff != "" {
				t.Errorf("titles mismatch (-want +got):\n%s", diff)
			}
			if ua := tt.transport.lastReq.Header.Get("User-Agent"); ua != "StorefrontBot/1.0" {
				t.Errorf("User-Agent = %q", ua)
			}
		})
	}
}

func TestDecodeCatalogKeepsOptionalFields(t *testing.T) {
	products, err := DecodeCatalog([]byte(loadFixture(t, "../../testdata/products.json")))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	first := products[0]
	if diff := cmp.Diff(int64(1), first.ID); diff != "" {
		t.Errorf("id mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("Essence", first.BrandOr("")); diff != "" {
		t.Errorf("brand mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(2, len(first.Reviews)); diff != "" {
		t.Errorf("review count mismatch (-want +got):\n%s", diff)
	}
	if first.Reviews[0].Date == nil || first.Reviews[0].Date.Year() != 2024 {
		t.Errorf("review date not decoded: %v", first.Reviews[0].Date)
	}
	if diff := cmp.Diff(model.Dimensions{Width: 23.17, Height: 14.43, Depth: 28.01}, first.Dimensions); diff != "" {
		t.Errorf("dimensions mismatch (-want +got):\n%s", diff)
	}

	lipstick := products[3]
	if lipstick.Price != nil {
		t.Errorf("expected absent price, got %v", *lipstick.Price)
	}
	if products[4].Rating != nil {
		t.Errorf("expected absent rating, got %v", *products[4].Rating)
	}
}

func TestParseFeedMerchantAttributes(t *testing.T) {
	products, err := ParseFeed(loadFixture(t, "../../testdata/merchant.xml"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(products) != 3 {
		t.Fatalf("expected 3 products, got %d", len(products))
	}

	pixel := products[0]
	if diff := cmp.Diff(int64(101), pixel.ID); diff != "" {
		t.Errorf("id mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("Google", pixel.BrandOr("")); diff != "" {
		t.Errorf("brand mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(999.0, pixel.PriceOrZero()); diff != "" {
		t.Errorf("price mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("https://shop.example.com/img/101.jpg", pixel.Thumbnail); diff != "" {
		t.Errorf("thumbnail mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("smartphones", pixel.Category); diff != "" {
		t.Errorf("category mismatch (-want +got):\n%s", diff)
	}

	tab := products[1]
	if diff := cmp.Diff(899.99, tab.PriceOrZero()); diff != "" {
		t.Errorf("sale price mismatch (-want +got):\n%s", diff)
	}

	cable := products[2]
	if cable.Price != nil {
		t.Errorf("expected unparseable price to be absent, got %v", *cable.Price)
	}
	if cable.Brand != nil {
		t.Errorf("expected absent brand, got %q", *cable.Brand)
	}
	if cable.ID <= 0 {
		t.Errorf("expected hashed id, got %d", cable.ID)
	}
}

func TestItemID(t *testing.T) {
	withID := func(id string) *gofeed.Item {
		return &gofeed.Item{Extensions: ext.Extensions{
			"g": {"id": {{Name: "id", Value: id}}},
		}}
	}

	if diff := cmp.Diff(int64(42), ItemID(withID("42"))); diff != "" {
		t.Errorf("numeric id mismatch (-want +got):\n%s", diff)
	}

	a := ItemID(withID("SKU-A"))
	if a != ItemID(withID("SKU-A")) {
		t.Error("hashed id is not stable")
	}
	if a == ItemID(withID("SKU-B")) {
		t.Error("different keys produced the same id")
	}

	byGUID := ItemID(&gofeed.Item{GUID: "guid-1"})
	if byGUID <= 0 {
		t.Errorf("expected positive id from guid, got %d", byGUID)
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw    string
		want   float64
		wantOK bool
	}{
		{raw: "12.50 USD", want: 12.5, wantOK: true},
		{raw: "1,299.00 EUR", want: 1299, wantOK: true},
		{raw: "7", want: 7, wantOK: true},
		{raw: "", wantOK: false},
		{raw: "free", wantOK: false},
		{raw: "-3 USD", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := parsePrice(tt.raw)
			if diff := cmp.Diff(tt.wantOK, ok); diff != "" {
				t.Fatalf("ok mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("price mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEndpoint(t *testing.T) {
	transport := &mockTransport{body: `{"products": [{"id": 1, "title": "Desk"}]}`, statusCode: 200}
	src := New(transport).Endpoint("https://example.com/catalog")

	got, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if diff := cmp.Diff([]string{"Desk"}, titles(got)); diff != "" {
		t.Errorf("titles mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("https://example.com/catalog", transport.lastReq.URL.String()); diff != "" {
		t.Errorf("url mismatch (-want +got):\n%s", diff)
	}
}
