package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"storefront/internal/model"
	"storefront/internal/state"
	"storefront/internal/storage"
)

const noCatalog = "No products loaded. Use /refresh to try again."

func (b *Bot) handleStart(ctx context.Context, chatID int64) {
	b.reply(ctx, chatID, `Welcome to the Storefront Bot!

Browse the catalog, narrow it down and keep a cart.

Quick start:
1. /products to page through the catalog
2. /brand <name> or /search <text> to filter
3. /sort to change the order

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(ctx context.Context, chatID int64) {
	b.reply(ctx, chatID, `Browsing:
/products [page] - show the filtered catalog
/product <id> - product details
/refresh - reload the catalog

Filtering:
/search <text> - match titles containing text
/model <a, b> - match any of several title fragments
/brand <a, b> - only these brands
/brands - list catalog brands
/sort [old|new|price_desc|price_asc|none] - set the order
/filter - show the current filter
/reset - clear the filter

Favorites and cart:
/fav <id> - toggle a favorite
/favorites - list favorites
/add <id> [qty] - add to cart (qty 1-99)
/remove <id> - remove from cart
/cart - show the cart
/clearcart - empty the cart

An empty argument to /search, /model or /brand clears that part of the filter.`)
}

func (b *Bot) handleProducts(ctx context.Context, s *session, args string) {
	page, err := ParsePageArg(args)
	if err != nil {
		b.reply(ctx, s.chatID, "Usage: /products [page]")
		return
	}
	if page == 1 && s.view.Status() == state.StatusInitial {
		// The initial load renders the first page itself.
		b.refresh(ctx, s)
		return
	}
	if !b.ensureLoaded(ctx, s) {
		b.reply(ctx, s.chatID, noCatalog)
		return
	}
	products, _ := s.view.Products()
	b.sendPage(ctx, s.chatID, products, page)
}

func (b *Bot) handleSearch(ctx context.Context, s *session, args string) {
	spec := s.view.Filter()
	if args == "" {
		b.applyFilter(ctx, s, spec.WithModels(nil), "Search cleared.")
		return
	}
	b.applyFilter(ctx, s, spec.WithModels([]string{args}), fmt.Sprintf("Searching for %q.", args))
}

func (b *Bot) handleModels(ctx context.Context, s *session, args string) {
	models := ParseListArg(args)
	spec := s.view.Filter().WithModels(models)
	if len(models) == 0 {
		b.applyFilter(ctx, s, spec, "Model filter cleared.")
		return
	}
	b.applyFilter(ctx, s, spec, "Models: "+strings.Join(spec.Models(), ", "))
}

func (b *Bot) handleBrandFilter(ctx context.Context, s *session, args string) {
	brands := ParseListArg(args)
	spec := s.view.Filter().WithBrands(brands)
	if len(brands) == 0 {
		b.applyFilter(ctx, s, spec, "Brand filter cleared.")
		return
	}
	b.applyFilter(ctx, s, spec, "Brands: "+strings.Join(spec.Brands(), ", "))
}

func (b *Bot) handleBrands(ctx context.Context, s *session) {
	if !b.ensureLoaded(ctx, s) {
		b.reply(ctx, s.chatID, noCatalog)
		return
	}
	b.reply(ctx, s.chatID, FormatBrands(s.view.Brands()))
}

func (b *Bot) handleSort(ctx context.Context, s *session, args string) {
	if args == "" {
		msg := tgbotapi.NewMessage(s.chatID, "Choose the order:")
		msg.ReplyMarkup = sortKeyboard(s.view.Filter())
		b.send(ctx, msg)
		return
	}
	opt, sorted, err := model.ParseSortOption(args)
	if err != nil {
		b.reply(ctx, s.chatID, err.Error())
		return
	}
	b.setSort(ctx, s, opt, sorted)
}

func (b *Bot) setSort(ctx context.Context, s *session, opt model.SortOption, sorted bool) {
	spec := s.view.Filter()
	if !sorted {
		b.applyFilter(ctx, s, spec.WithoutSort(), "Sorting off.")
		return
	}
	b.applyFilter(ctx, s, spec.WithSort(opt), "Sorting: "+opt.Title())
}

func (b *Bot) handleShowFilter(ctx context.Context, s *session) {
	text := FormatFilterSpec(s.view.Filter())
	if products, ok := s.view.Products(); ok {
		catalog, _ := s.view.Catalog()
		text += fmt.Sprintf("\n\nShowing %d of %d products.", len(products), len(catalog))
	}
	b.reply(ctx, s.chatID, text)
}

func (b *Bot) handleProduct(ctx context.Context, s *session, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(ctx, s.chatID, "Usage: /product <id>")
		return
	}
	if !b.ensureLoaded(ctx, s) {
		b.reply(ctx, s.chatID, noCatalog)
		return
	}
	p, ok := s.view.Lookup(id)
	if !ok {
		b.reply(ctx, s.chatID, fmt.Sprintf("Product #%d not found.", id))
		return
	}
	msg := tgbotapi.NewMessage(s.chatID, FormatProductDetail(p))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(productRow(p))
	b.send(ctx, msg)
}

func (b *Bot) handleFav(ctx context.Context, s *session, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(ctx, s.chatID, "Usage: /fav <id>")
		return
	}
	text := b.toggleFavorite(ctx, s, id)
	b.reply(ctx, s.chatID, text)
}

// toggleFavorite flips and persists a favorite and returns a message for
// the user.
func (b *Bot) toggleFavorite(ctx context.Context, s *session, id int64) string {
	if !b.ensureLoaded(ctx, s) {
		return noCatalog
	}
	fav, err := s.view.ToggleFavorite(id)
	if err != nil {
		return fmt.Sprintf("Product #%d not found.", id)
	}
	if err := b.store.SetFavorite(ctx, s.chatID, id, fav); err != nil {
		b.log.Error("save favorite", "chat_id", s.chatID, "product_id", id, "error", err)
	}
	p, _ := s.view.Lookup(id)
	if fav {
		return fmt.Sprintf("Added #%d %s to favorites.", id, p.TitleOr(untitled))
	}
	return fmt.Sprintf("Removed #%d %s from favorites.", id, p.TitleOr(untitled))
}

func (b *Bot) handleFavorites(ctx context.Context, s *session) {
	if !b.ensureLoaded(ctx, s) {
		b.reply(ctx, s.chatID, noCatalog)
		return
	}
	b.reply(ctx, s.chatID, FormatFavorites(s.view.Favorites()))
}

func (b *Bot) handleAddToCart(ctx context.Context, s *session, args string) {
	id, qty, err := ParseCartArgs(args)
	if err != nil {
		b.reply(ctx, s.chatID, err.Error())
		return
	}
	text := b.addToCart(ctx, s, id, qty)
	b.reply(ctx, s.chatID, text)
}

// addToCart adds a catalog product to the chat's cart and returns a
// message for the user.
func (b *Bot) addToCart(ctx context.Context, s *session, id int64, qty int) string {
	if !b.ensureLoaded(ctx, s) {
		return noCatalog
	}
	p, ok := s.view.Lookup(id)
	if !ok {
		return fmt.Sprintf("Product #%d not found.", id)
	}
	total, err := b.store.AddToCart(ctx, s.chatID, id, qty)
	if err != nil {
		b.log.Error("add to cart", "chat_id", s.chatID, "product_id", id, "error", err)
		return fmt.Sprintf("Error: %v", err)
	}
	b.metrics.RecordCartAddition()
	return fmt.Sprintf("Added %d x #%d %s to your cart (now %d).", qty, id, p.TitleOr(untitled), total)
}

func (b *Bot) handleRemoveFromCart(ctx context.Context, s *session, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(ctx, s.chatID, "Usage: /remove <id>")
		return
	}
	err = b.store.RemoveFromCart(ctx, s.chatID, id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		b.reply(ctx, s.chatID, fmt.Sprintf("Product #%d is not in your cart.", id))
	case err != nil:
		b.reply(ctx, s.chatID, fmt.Sprintf("Error: %v", err))
	default:
		b.reply(ctx, s.chatID, fmt.Sprintf("Removed #%d from your cart.", id))
	}
}

func (b *Bot) handleCart(ctx context.Context, s *session) {
	items, err := b.store.ListCart(ctx, s.chatID)
	if err != nil {
		b.reply(ctx, s.chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if len(items) > 0 {
		b.ensureLoaded(ctx, s)
	}
	b.reply(ctx, s.chatID, FormatCart(items, s.view.Lookup))
}

func (b *Bot) handleClearCart(ctx context.Context, s *session) {
	if err := b.store.ClearCart(ctx, s.chatID); err != nil {
		b.reply(ctx, s.chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(ctx, s.chatID, "Your cart is now empty.")
}
