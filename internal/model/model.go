// Package model defines the domain types used across the application.
package model

import "time"

// CatalogResponse is the envelope returned by the catalog API.
type CatalogResponse struct {
	Products []Product `json:"products"`
	Total    int       `json:"total,omitempty"`
}

// Product is a single catalog item. Title, Brand, Price and Rating stay
// optional until the filter stage decides how to treat a missing value.
type Product struct {
	ID                   int64      `json:"id"`
	Title                *string    `json:"title,omitempty"`
	Description          string     `json:"description,omitempty"`
	Category             string     `json:"category,omitempty"`
	Price                *float64   `json:"price,omitempty"`
	DiscountPercentage   float64    `json:"discountPercentage,omitempty"`
	Rating               *float64   `json:"rating,omitempty"`
	Stock                int        `json:"stock,omitempty"`
	Tags                 []string   `json:"tags,omitempty"`
	Brand                *string    `json:"brand,omitempty"`
	SKU                  string     `json:"sku,omitempty"`
	Weight               int        `json:"weight,omitempty"`
	Dimensions           Dimensions `json:"dimensions"`
	WarrantyInformation  string     `json:"warrantyInformation,omitempty"`
	ShippingInformation  string     `json:"shippingInformation,omitempty"`
	AvailabilityStatus   string     `json:"availabilityStatus,omitempty"`
	Reviews              []Review   `json:"reviews,omitempty"`
	ReturnPolicy         string     `json:"returnPolicy,omitempty"`
	MinimumOrderQuantity int        `json:"minimumOrderQuantity,omitempty"`
	Images               []string   `json:"images,omitempty"`
	Thumbnail            string     `json:"thumbnail,omitempty"`
	Link                 string     `json:"link,omitempty"`

	IsFavorite bool `json:"-"`
}

// Dimensions holds the physical size of a product.
type Dimensions struct {
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Depth  float64 `json:"depth,omitempty"`
}

// Review is a single customer review.
type Review struct {
	Rating        int        `json:"rating,omitempty"`
	Comment       string     `json:"comment,omitempty"`
	Date          *time.Time `json:"date,omitempty"`
	ReviewerName  string     `json:"reviewerName,omitempty"`
	ReviewerEmail string     `json:"reviewerEmail,omitempty"`
}

// TitleOr returns the product title, or def when it is absent.
func (p Product) TitleOr(def string) string {
	if p.Title == nil {
		return def
	}
	return *p.Title
}

// BrandOr returns the product brand, or def when it is absent.
func (p Product) BrandOr(def string) string {
	if p.Brand == nil {
		return def
	}
	return *p.Brand
}

// PriceOrZero returns the product price, treating an absent price as 0.
func (p Product) PriceOrZero() float64 {
	if p.Price == nil {
		return 0
	}
	return *p.Price
}

// CartItem is a product line in a chat's cart.
type CartItem struct {
	ProductID int64
	Quantity  int
	AddedAt   time.Time
}

// MaxCartQuantity caps the quantity of a single cart line.
const MaxCartQuantity = 99
