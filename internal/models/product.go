package models

import (
	"time"
)

// UncategorizedCategory is the category reported for listing cards without a
// category badge. The catalog filter relies on it being stable.
const UncategorizedCategory = "Uncategorized"

// ListingItem is one product card from the shop listing page.
type ListingItem struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Category string `json:"category"`
	Image    string `json:"image"`
	Slug     string `json:"slug"`
}

// ProductDetail is the record extracted from a single product page.
type ProductDetail struct {
	Title            string            `json:"title"`
	Category         string            `json:"category"`
	Price            string            `json:"price"`
	ShortDescription string            `json:"shortDescription"`
	LongDescription  string            `json:"longDescription"`
	Specs            map[string]string `json:"specs"`
	Images           []string          `json:"images"`
	RelatedProducts  []RelatedProduct  `json:"relatedProducts"`
	SourceURL        string            `json:"sourceUrl"`
}

type RelatedProduct struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Image string `json:"image"`
	Price string `json:"price"`
}

// NewProductDetail returns a detail record with every collection initialised,
// so an empty page still serialises as {} and [] rather than null.
func NewProductDetail(sourceURL string) *ProductDetail {
	return &ProductDetail{
		Specs:           make(map[string]string),
		Images:          make([]string, 0),
		RelatedProducts: make([]RelatedProduct, 0),
		SourceURL:       sourceURL,
	}
}

// CatalogProduct is a listing item as persisted by the catalog sync job,
// optionally enriched with its detail page.
type CatalogProduct struct {
	Slug        string         `json:"slug"`
	Name        string         `json:"name"`
	Price       int64          `json:"price"`
	Category    string         `json:"category"`
	Image       string         `json:"image"`
	DetailURL   string         `json:"detail_url,omitempty"`
	Detail      *ProductDetail `json:"detail,omitempty"`
	SyncRunID   string         `json:"sync_run_id"`
	ScrapedAt   time.Time      `json:"scraped_at"`
	LastUpdated time.Time      `json:"last_updated"`
}

func NewCatalogProduct(item ListingItem, runID string) *CatalogProduct {
	now := time.Now()
	return &CatalogProduct{
		Slug:        item.Slug,
		Name:        item.Name,
		Price:       item.Price,
		Category:    item.Category,
		Image:       item.Image,
		SyncRunID:   runID,
		ScrapedAt:   now,
		LastUpdated: now,
	}
}

// Validate reports the reasons a catalog product cannot be stored.
func (p *CatalogProduct) Validate() []string {
	var errors []string

	if p.Slug == "" {
		errors = append(errors, "Slug is required")
	}

	if p.Name == "" {
		errors = append(errors, "Name is required")
	}

	if p.Price < 0 {
		errors = append(errors, "Price must not be negative")
	}

	return errors
}
