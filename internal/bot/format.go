package bot

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"storefront/internal/model"
)

const (
	untitled   = "Untitled product"
	starOn     = "★"
	starOff    = "☆"
	noPriceTag = "price n/a"
)

func formatPrice(p *float64) string {
	if p == nil {
		return noPriceTag
	}
	return fmt.Sprintf("$%.2f", *p)
}

// FormatProductLine renders a product as a single list line.
func FormatProductLine(p model.Product) string {
	var b strings.Builder
	if p.IsFavorite {
		b.WriteString(starOn + " ")
	}
	fmt.Fprintf(&b, "#%d %s", p.ID, p.TitleOr(untitled))
	if p.Brand != nil {
		fmt.Fprintf(&b, " (%s)", *p.Brand)
	}
	fmt.Fprintf(&b, ", %s", formatPrice(p.Price))
	return b.String()
}

// FormatProductPage renders one page of products. The page is clamped to
// the valid range; the clamped page and the page count are returned.
func FormatProductPage(products []model.Product, page, pageSize int) (string, int, int) {
	if len(products) == 0 {
		return "No products match the current filter. Use /reset to clear it.", 1, 0
	}
	pages := (len(products) + pageSize - 1) / pageSize
	page = min(max(page, 1), pages)

	start := (page - 1) * pageSize
	end := min(start+pageSize, len(products))

	var b strings.Builder
	fmt.Fprintf(&b, "Products %d-%d of %d (page %d/%d):\n", start+1, end, len(products), page, pages)
	for _, p := range products[start:end] {
		b.WriteString("\n")
		b.WriteString(FormatProductLine(p))
	}
	b.WriteString("\n\nUse /product <id> for details.")
	return b.String(), page, pages
}

// FormatProductDetail renders everything known about a product.
func FormatProductDetail(p model.Product) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s", p.ID, p.TitleOr(untitled))
	if p.IsFavorite {
		b.WriteString(" " + starOn)
	}
	b.WriteString("\n")
	if p.Brand != nil {
		fmt.Fprintf(&b, "Brand: %s\n", *p.Brand)
	}
	if p.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", p.Category)
	}
	fmt.Fprintf(&b, "Price: %s", formatPrice(p.Price))
	if p.DiscountPercentage > 0 {
		fmt.Fprintf(&b, " (-%.0f%%)", p.DiscountPercentage)
	}
	b.WriteString("\n")
	if p.Rating != nil {
		fmt.Fprintf(&b, "Rating: %.1f/5", *p.Rating)
		if n := len(p.Reviews); n > 0 {
			fmt.Fprintf(&b, " from %d review(s)", n)
		}
		b.WriteString("\n")
	}
	if p.AvailabilityStatus != "" {
		fmt.Fprintf(&b, "Availability: %s\n", p.AvailabilityStatus)
	}
	if p.Description != "" {
		b.WriteString("\n")
		b.WriteString(p.Description)
		b.WriteString("\n")
	}
	if p.ShippingInformation != "" {
		fmt.Fprintf(&b, "\nShipping: %s", p.ShippingInformation)
	}
	if p.ReturnPolicy != "" {
		fmt.Fprintf(&b, "\nReturns: %s", p.ReturnPolicy)
	}
	if link := productLink(p); link != "" {
		fmt.Fprintf(&b, "\n%s", link)
	}
	return strings.TrimRight(b.String(), "\n")
}

func productLink(p model.Product) string {
	if p.Link != "" {
		return p.Link
	}
	return p.Thumbnail
}

// FormatFavorites renders the favorite products of a chat.
func FormatFavorites(products []model.Product) string {
	if len(products) == 0 {
		return "You have no favorites yet. Use /fav <id> to add one."
	}
	var b strings.Builder
	b.WriteString("Your favorites:\n")
	for _, p := range products {
		b.WriteString("\n")
		b.WriteString(FormatProductLine(p))
	}
	return b.String()
}

// FormatCart renders cart lines with their subtotals and the cart total.
// lookup resolves products from the loaded catalog; lines whose product is
// missing are shown without a price.
func FormatCart(items []model.CartItem, lookup func(id int64) (model.Product, bool)) string {
	if len(items) == 0 {
		return "Your cart is empty. Use /add <id> [qty] to add products."
	}
	var b strings.Builder
	b.WriteString("Your cart:\n")
	var total float64
	var units int
	for _, item := range items {
		units += item.Quantity
		p, ok := lookup(item.ProductID)
		if !ok {
			fmt.Fprintf(&b, "\n#%d (unavailable) x%d", item.ProductID, item.Quantity)
			continue
		}
		sub := p.PriceOrZero() * float64(item.Quantity)
		total += sub
		fmt.Fprintf(&b, "\n#%d %s x%d = $%.2f", p.ID, p.TitleOr(untitled), item.Quantity, sub)
	}
	fmt.Fprintf(&b, "\n\nItems: %d\nTotal: $%.2f", units, total)
	return b.String()
}

// FormatFilterSpec describes a filter in words.
func FormatFilterSpec(spec model.FilterSpec) string {
	var b strings.Builder
	b.WriteString("Current filter:\n")
	if opt, ok := spec.SortBy(); ok {
		fmt.Fprintf(&b, "Sort: %s\n", opt.Title())
	} else {
		b.WriteString("Sort: none (catalog order)\n")
	}
	if brands := spec.Brands(); len(brands) > 0 {
		fmt.Fprintf(&b, "Brands: %s\n", strings.Join(brands, ", "))
	} else {
		b.WriteString("Brands: any\n")
	}
	if models := spec.Models(); len(models) > 0 {
		fmt.Fprintf(&b, "Models: %s", strings.Join(models, ", "))
	} else {
		b.WriteString("Models: any")
	}
	return b.String()
}

// FormatBrands lists the brands available in the catalog.
func FormatBrands(brands []string) string {
	if len(brands) == 0 {
		return "No brands in the catalog."
	}
	return fmt.Sprintf("Brands (%d):\n%s\n\nUse /brand <name>[, <name>...] to filter.", len(brands), strings.Join(brands, "\n"))
}

// pageKeyboard builds the per-product action rows and the page navigation
// row. ok is false for an empty list.
func pageKeyboard(products []model.Product, page, pages, pageSize int) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(products) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	start := (page - 1) * pageSize
	end := min(start+pageSize, len(products))

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, p := range products[start:end] {
		rows = append(rows, productRow(p))
	}

	if pages > 1 {
		var nav []tgbotapi.InlineKeyboardButton
		if page > 1 {
			nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("« Prev", callbackData(actionPage, int64(page-1))))
		}
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%d/%d", page, pages), callbackData(actionNoop, int64(page))))
		if page < pages {
			nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Next »", callbackData(actionPage, int64(page+1))))
		}
		rows = append(rows, nav)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}

func productRow(p model.Product) []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(favLabel(p), callbackData(actionFav, p.ID)),
		tgbotapi.NewInlineKeyboardButtonData("+ cart #"+strconv.FormatInt(p.ID, 10), callbackData(actionCart, p.ID)),
	)
}

func favLabel(p model.Product) string {
	star := starOff
	if p.IsFavorite {
		star = starOn
	}
	return star + " #" + strconv.FormatInt(p.ID, 10)
}

// withFavLabels returns a copy of kb whose favorite buttons show the
// current state of their product. changed is false when nothing differs.
func withFavLabels(kb tgbotapi.InlineKeyboardMarkup, lookup func(int64) (model.Product, bool)) (out tgbotapi.InlineKeyboardMarkup, changed bool) {
	rows := make([][]tgbotapi.InlineKeyboardButton, len(kb.InlineKeyboard))
	for i, row := range kb.InlineKeyboard {
		rows[i] = slices.Clone(row)
		for j, btn := range rows[i] {
			if btn.CallbackData == nil {
				continue
			}
			action, id, err := ParseCallbackData(*btn.CallbackData)
			if err != nil || action != actionFav {
				continue
			}
			p, ok := lookup(id)
			if !ok {
				continue
			}
			if label := favLabel(p); label != btn.Text {
				rows[i][j].Text = label
				changed = true
			}
		}
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), changed
}

// sortKeyboard offers every sort option plus "no sorting". The active
// choice is marked.
func sortKeyboard(spec model.FilterSpec) tgbotapi.InlineKeyboardMarkup {
	current, sorted := spec.SortBy()
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, opt := range model.SortOptions {
		label := opt.Title()
		if sorted && opt == current {
			label = "• " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, callbackData(actionSort, int64(opt))),
		))
	}
	label := "No sorting"
	if !sorted {
		label = "• " + label
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(label, callbackData(actionSort, sortUnset)),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
