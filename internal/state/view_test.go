package state

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"

	"storefront/internal/model"
)

type stubSource struct {
	products []model.Product
	err      error
	calls    int
}

func (s *stubSource) Fetch(_ context.Context) ([]model.Product, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.products, nil
}

type recordingLoading struct {
	events []string
}

func (l *recordingLoading) Show() { l.events = append(l.events, "show") }
func (l *recordingLoading) Hide() { l.events = append(l.events, "hide") }

func ptr[T any](v T) *T { return &v }

func sampleCatalog() []model.Product {
	return []model.Product{
		{ID: 1, Title: ptr("iPhone 9"), Brand: ptr("Apple"), Price: ptr(549.0)},
		{ID: 2, Title: ptr("Galaxy S21"), Brand: ptr("Samsung"), Price: ptr(799.0)},
		{ID: 3, Title: ptr("MacBook Pro"), Brand: ptr("Apple"), Price: ptr(1749.0)},
		{ID: 4, Title: ptr("Case"), Price: ptr(9.0)},
	}
}

func ids(products []model.Product) []int64 {
	out := make([]int64, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func newTestView(src Source) (*View, *recordingLoading) {
	loading := &recordingLoading{}
	return New(src, loading, slog.New(slog.NewTextHandler(io.Discard, nil))), loading
}

func TestRefreshSuccess(t *testing.T) {
	src := &stubSource{products: sampleCatalog()}
	v, loading := newTestView(src)

	if diff := cmp.Diff(StatusInitial, v.Status()); diff != "" {
		t.Errorf("initial status mismatch (-want +got):\n%s", diff)
	}
	if _, ok := v.Products(); ok {
		t.Error("expected no list before the first fetch")
	}

	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if diff := cmp.Diff(StatusReady, v.Status()); diff != "" {
		t.Errorf("status mismatch (-want +got):\n%s", diff)
	}
	got, ok := v.Products()
	if !ok {
		t.Fatal("expected a list after a successful fetch")
	}
	if diff := cmp.Diff([]int64{1, 2, 3, 4}, ids(got)); diff != "" {
		t.Errorf("products mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"show", "hide"}, loading.events); diff != "" {
		t.Errorf("loading events mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(1, src.calls); diff != "" {
		t.Errorf("fetch calls mismatch (-want +got):\n%s", diff)
	}
}

func TestRefreshFailureMeansNoList(t *testing.T) {
	src := &stubSource{products: sampleCatalog()}
	v, loading := newTestView(src)
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	src.err = errors.New("connection refused")
	err := v.Refresh(context.Background())
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if diff := cmp.Diff(StatusFailed, v.Status()); diff != "" {
		t.Errorf("status mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("connection refused", v.Err()); diff != "" {
		t.Errorf("error message mismatch (-want +got):\n%s", diff)
	}
	if _, ok := v.Products(); ok {
		t.Error("failed fetch must not leave a list behind")
	}
	if diff := cmp.Diff([]string{"show", "hide", "show", "hide"}, loading.events); diff != "" {
		t.Errorf("loading events mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyCatalogIsNotFailure(t *testing.T) {
	v, _ := newTestView(&stubSource{products: []model.Product{}})
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	got, ok := v.Products()
	if !ok {
		t.Fatal("empty catalog should still be a list")
	}
	if len(got) != 0 {
		t.Errorf("expected empty list, got %d products", len(got))
	}
	if diff := cmp.Diff("", v.Err()); diff != "" {
		t.Errorf("error mismatch (-want +got):\n%s", diff)
	}
}

func TestSetFilterRecomputes(t *testing.T) {
	v, _ := newTestView(&stubSource{products: sampleCatalog()})

	// A filter chosen before the catalog arrives is applied on arrival.
	v.SetFilter(model.NewFilterSpec(nil, []string{"Apple"}, nil))
	if _, ok := v.Products(); ok {
		t.Fatal("expected no list before fetch")
	}
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	got, _ := v.Products()
	if diff := cmp.Diff([]int64{1, 3}, ids(got)); diff != "" {
		t.Errorf("products mismatch (-want +got):\n%s", diff)
	}

	v.SetFilter(v.Filter().WithSort(model.SortPriceHighToLow))
	got, _ = v.Products()
	if diff := cmp.Diff([]int64{3, 1}, ids(got)); diff != "" {
		t.Errorf("sorted products mismatch (-want +got):\n%s", diff)
	}

	v.SetFilter(model.FilterSpec{})
	got, _ = v.Products()
	if diff := cmp.Diff([]int64{1, 2, 3, 4}, ids(got)); diff != "" {
		t.Errorf("reset products mismatch (-want +got):\n%s", diff)
	}
}

func TestToggleFavoriteKeepsOrder(t *testing.T) {
	v, _ := newTestView(&stubSource{products: sampleCatalog()})
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	v.SetFilter(model.NewFilterSpec(nil, nil, nil).WithSort(model.SortPriceLowToHigh))
	before, _ := v.Products()

	fav, err := v.ToggleFavorite(3)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !fav {
		t.Error("expected product to become a favorite")
	}

	after, _ := v.Products()
	if diff := cmp.Diff(ids(before), ids(after)); diff != "" {
		t.Errorf("order changed after toggle (-before +after):\n%s", diff)
	}
	for _, p := range after {
		if diff := cmp.Diff(p.ID == 3, p.IsFavorite); diff != "" {
			t.Errorf("favorite flag of %d mismatch (-want +got):\n%s", p.ID, diff)
		}
	}
	if diff := cmp.Diff([]int64{3}, ids(v.Favorites())); diff != "" {
		t.Errorf("favorites mismatch (-want +got):\n%s", diff)
	}

	fav, err = v.ToggleFavorite(3)
	if err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	if fav {
		t.Error("expected product to stop being a favorite")
	}

	if _, err := v.ToggleFavorite(99); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
}

func TestFavoritesSurviveRefresh(t *testing.T) {
	src := &stubSource{products: sampleCatalog()}
	v, _ := newTestView(src)
	v.RestoreFavorites([]int64{2})

	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if diff := cmp.Diff([]int64{2}, ids(v.Favorites())); diff != "" {
		t.Errorf("restored favorites mismatch (-want +got):\n%s", diff)
	}

	if _, err := v.ToggleFavorite(4); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if diff := cmp.Diff([]int64{2, 4}, ids(v.Favorites())); diff != "" {
		t.Errorf("favorites after refresh mismatch (-want +got):\n%s", diff)
	}
}

func TestSubscribeDeliveryOrder(t *testing.T) {
	v, _ := newTestView(&stubSource{products: sampleCatalog()})

	var log []string
	v.Subscribe(func(s Snapshot) { log = append(log, "a:"+s.Status.String()) })
	v.Subscribe(func(s Snapshot) { log = append(log, "b:"+s.Status.String()) })

	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	want := []string{"a:loading", "b:loading", "a:ready", "b:ready"}
	if diff := cmp.Diff(want, log); diff != "" {
		t.Errorf("delivery mismatch (-want +got):\n%s", diff)
	}
}

func TestSubscribeSnapshotContents(t *testing.T) {
	src := &stubSource{products: sampleCatalog()}
	v, _ := newTestView(src)

	var snaps []Snapshot
	v.Subscribe(func(s Snapshot) { snaps = append(snaps, s) })

	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	v.SetFilter(model.NewFilterSpec(nil, []string{"Samsung"}, nil))
	if _, err := v.ToggleFavorite(2); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	src.err = errors.New("boom")
	_ = v.Refresh(context.Background())

	var causes []Cause
	for _, s := range snaps {
		causes = append(causes, s.Cause)
	}
	wantCauses := []Cause{CauseLoading, CauseCatalog, CauseFilter, CauseFavorite, CauseLoading, CauseCatalog}
	if diff := cmp.Diff(wantCauses, causes); diff != "" {
		t.Fatalf("causes mismatch (-want +got):\n%s", diff)
	}

	filtered := snaps[2]
	if diff := cmp.Diff([]int64{2}, ids(filtered.Products)); diff != "" {
		t.Errorf("filtered snapshot mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(4, filtered.CatalogSize); diff != "" {
		t.Errorf("catalog size mismatch (-want +got):\n%s", diff)
	}
	if !snaps[3].Products[0].IsFavorite {
		t.Error("favorite snapshot should carry the new flag")
	}

	failed := snaps[5]
	if failed.HasProducts {
		t.Error("failed snapshot should have no list")
	}
	if diff := cmp.Diff("boom", failed.Err); diff != "" {
		t.Errorf("error mismatch (-want +got):\n%s", diff)
	}
}

func TestUnsubscribe(t *testing.T) {
	v, _ := newTestView(&stubSource{products: sampleCatalog()})

	var a, b int
	unsubA := v.Subscribe(func(Snapshot) { a++ })
	var unsubB func()
	unsubB = v.Subscribe(func(Snapshot) {
		b++
		unsubB()
	})

	v.SetFilter(model.FilterSpec{})
	unsubA()
	unsubA()
	v.SetFilter(model.FilterSpec{})

	if diff := cmp.Diff(1, a); diff != "" {
		t.Errorf("subscriber a calls mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(1, b); diff != "" {
		t.Errorf("subscriber b calls mismatch (-want +got):\n%s", diff)
	}
}

func TestUnsubscribeLaterDuringDelivery(t *testing.T) {
	v, _ := newTestView(&stubSource{products: sampleCatalog()})

	var order []string
	var unsubSecond func()
	v.Subscribe(func(Snapshot) {
		order = append(order, "first")
		unsubSecond()
	})
	unsubSecond = v.Subscribe(func(Snapshot) { order = append(order, "second") })
	v.Subscribe(func(Snapshot) { order = append(order, "third") })

	v.SetFilter(model.FilterSpec{})
	v.SetFilter(model.FilterSpec{})

	want := []string{"first", "third", "first", "third"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("delivery mismatch (-want +got):\n%s", diff)
	}
}

func TestBrandsAndLookup(t *testing.T) {
	v, _ := newTestView(&stubSource{products: sampleCatalog()})
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if diff := cmp.Diff([]string{"Apple", "Samsung"}, v.Brands()); diff != "" {
		t.Errorf("brands mismatch (-want +got):\n%s", diff)
	}
	p, ok := v.Lookup(2)
	if !ok {
		t.Fatal("expected product 2")
	}
	if diff := cmp.Diff("Galaxy S21", p.TitleOr("")); diff != "" {
		t.Errorf("lookup mismatch (-want +got):\n%s", diff)
	}
	if _, ok := v.Lookup(42); ok {
		t.Error("unexpected product 42")
	}
}
