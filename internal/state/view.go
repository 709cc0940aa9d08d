// Package state holds the catalog view of a single user: the fetched
// catalog, the active filter and the derived list shown to the user.
package state

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"storefront/internal/filter"
	"storefront/internal/model"
)

// ErrProductNotFound is returned when a product ID is not in the catalog.
var ErrProductNotFound = errors.New("product not found")

// Source produces a fresh catalog.
type Source interface {
	Fetch(ctx context.Context) ([]model.Product, error)
}

// Loading shows and hides a loading indicator. It is owned by whoever
// renders the view and handed to the View explicitly.
type Loading interface {
	Show()
	Hide()
}

// Status is the load state of the catalog.
type Status int

// Catalog load states.
const (
	StatusInitial Status = iota
	StatusLoading
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusInitial:
		return "initial"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Cause tells subscribers what triggered an update.
type Cause int

// Update causes.
const (
	CauseLoading Cause = iota
	CauseCatalog
	CauseFilter
	CauseFavorite
)

// Snapshot is the state delivered to subscribers after each update.
type Snapshot struct {
	Cause       Cause
	Status      Status
	Err         string
	Products    []model.Product
	HasProducts bool
	Filter      model.FilterSpec
	CatalogSize int
}

type subscriber struct {
	id int
	fn func(Snapshot)
}

// View is the catalog state of one user. It is not safe for concurrent
// use; a single goroutine owns it.
type View struct {
	src     Source
	loading Loading
	log     *slog.Logger

	status  Status
	errMsg  string
	catalog []model.Product
	derived []model.Product
	spec    model.FilterSpec
	favs    map[int64]struct{}

	subs   []subscriber
	nextID int
}

// New creates a View with no catalog. Call Refresh to load one.
func New(src Source, loading Loading, log *slog.Logger) *View {
	return &View{
		src:     src,
		loading: loading,
		log:     log,
		favs:    make(map[int64]struct{}),
	}
}

// Refresh fetches the catalog once. On success the catalog is replaced
// and the derived list recomputed. On failure the view has no list and
// Err holds the message; the error is returned as well.
func (v *View) Refresh(ctx context.Context) error {
	v.status = StatusLoading
	v.publish(CauseLoading)

	v.loading.Show()
	products, err := v.src.Fetch(ctx)
	v.loading.Hide()

	if err != nil {
		v.log.Warn("fetch catalog", "error", err)
		v.status = StatusFailed
		v.errMsg = err.Error()
		v.catalog = nil
		v.derived = nil
		v.publish(CauseCatalog)
		return err
	}

	catalog := make([]model.Product, len(products))
	copy(catalog, products)
	for i := range catalog {
		_, fav := v.favs[catalog[i].ID]
		catalog[i].IsFavorite = fav
	}

	v.status = StatusReady
	v.errMsg = ""
	v.catalog = catalog
	v.derived = filter.Apply(v.catalog, v.spec)
	v.log.Debug("catalog loaded", "products", len(catalog), "shown", len(v.derived))
	v.publish(CauseCatalog)
	return nil
}

// SetFilter replaces the filter and recomputes the derived list.
func (v *View) SetFilter(spec model.FilterSpec) {
	v.spec = spec
	if v.catalog != nil {
		v.derived = filter.Apply(v.catalog, v.spec)
	}
	v.publish(CauseFilter)
}

// Filter returns the active filter.
func (v *View) Filter() model.FilterSpec {
	return v.spec
}

// Status returns the catalog load state.
func (v *View) Status() Status {
	return v.status
}

// Err returns the message of the last failed fetch, if the view is in
// the failed state.
func (v *View) Err() string {
	return v.errMsg
}

// Products returns a copy of the derived list. ok is false when no
// catalog is available, which is different from an empty result.
func (v *View) Products() (products []model.Product, ok bool) {
	if v.catalog == nil {
		return nil, false
	}
	return slices.Clone(v.derived), true
}

// Catalog returns a copy of the full catalog, or ok=false when none is
// loaded.
func (v *View) Catalog() (products []model.Product, ok bool) {
	if v.catalog == nil {
		return nil, false
	}
	return slices.Clone(v.catalog), true
}

// Lookup returns the catalog product with the given ID.
func (v *View) Lookup(id int64) (model.Product, bool) {
	for _, p := range v.catalog {
		if p.ID == id {
			return p, true
		}
	}
	return model.Product{}, false
}

// Brands returns the distinct brands of the loaded catalog.
func (v *View) Brands() []string {
	return filter.Brands(v.catalog)
}

// RestoreFavorites marks the given product IDs as favorites without
// notifying subscribers.
func (v *View) RestoreFavorites(ids []int64) {
	for _, id := range ids {
		v.favs[id] = struct{}{}
	}
	for i := range v.catalog {
		_, fav := v.favs[v.catalog[i].ID]
		v.catalog[i].IsFavorite = fav
	}
	for i := range v.derived {
		_, fav := v.favs[v.derived[i].ID]
		v.derived[i].IsFavorite = fav
	}
}

// Favorites returns the favorited catalog products in catalog order.
func (v *View) Favorites() []model.Product {
	var out []model.Product
	for _, p := range v.catalog {
		if p.IsFavorite {
			out = append(out, p)
		}
	}
	return out
}

// ToggleFavorite flips the favorite flag of a product and returns the
// new value. The derived list keeps its order and membership.
func (v *View) ToggleFavorite(id int64) (bool, error) {
	idx := slices.IndexFunc(v.catalog, func(p model.Product) bool { return p.ID == id })
	if idx < 0 {
		return false, ErrProductNotFound
	}

	fav := !v.catalog[idx].IsFavorite
	if fav {
		v.favs[id] = struct{}{}
	} else {
		delete(v.favs, id)
	}
	v.catalog[idx].IsFavorite = fav
	for i := range v.derived {
		if v.derived[i].ID == id {
			v.derived[i].IsFavorite = fav
		}
	}
	v.publish(CauseFavorite)
	return fav, nil
}

// Subscribe registers fn to receive a snapshot after every update.
// Subscribers run synchronously in registration order. The returned
// function removes the subscription and may be called more than once.
func (v *View) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	v.nextID++
	id := v.nextID
	v.subs = append(v.subs, subscriber{id: id, fn: fn})
	return func() {
		v.subs = slices.DeleteFunc(v.subs, func(s subscriber) bool { return s.id == id })
	}
}

func (v *View) snapshot(cause Cause) Snapshot {
	products, ok := v.Products()
	return Snapshot{
		Cause:       cause,
		Status:      v.status,
		Err:         v.errMsg,
		Products:    products,
		HasProducts: ok,
		Filter:      v.spec,
		CatalogSize: len(v.catalog),
	}
}

func (v *View) publish(cause Cause) {
	if len(v.subs) == 0 {
		return
	}
	snap := v.snapshot(cause)
	delivered := make(map[int]struct{}, len(v.subs))
	for {
		next := -1
		for i, s := range v.subs {
			if _, done := delivered[s.id]; !done {
				next = i
				break
			}
		}
		if next < 0 {
			return
		}
		s := v.subs[next]
		delivered[s.id] = struct{}{}
		s.fn(snap)
	}
}
