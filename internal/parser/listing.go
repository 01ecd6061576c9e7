package parser

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/samisuko/storefront/internal/models"
)

const (
	listingCardSelector = "ul.products > li.product"
	listingLinkSelector = ".woocommerce-LoopProduct-link.woocommerce-loop-product__link"
)

// Per-field rules for a listing card. Category defaults to the
// "Uncategorized" sentinel; every other field defaults to its zero value.
var (
	listingName = field{
		chain: chain{textOf(".woocommerce-loop-product__title")},
	}
	listingCategory = field{
		chain: chain{firstTextOf(".ast-woo-product-category")},
		def:   models.UncategorizedCategory,
	}
	listingPrice = field{
		chain: chain{rawTextOf(".price bdi")},
	}
	listingImage = chain{
		attrOf(listingLinkSelector+" img", "data-src"),
		attrOf(listingLinkSelector+" img", "src"),
	}
	listingHref = field{
		chain: chain{attrOf(listingLinkSelector, "href")},
	}
)

// ExtractListing returns one item per product card that has a name, in
// document order. Cards without a name are dropped whole.
func ExtractListing(doc *Document) []models.ListingItem {
	items := make([]models.ListingItem, 0)

	doc.All(listingCardSelector).Each(func(_ int, card *goquery.Selection) {
		item, ok := extractListingItem(card)
		if !ok {
			return
		}
		items = append(items, item)
	})

	return items
}

func extractListingItem(card *goquery.Selection) (models.ListingItem, bool) {
	name := listingName.eval(card)
	if name == "" {
		return models.ListingItem{}, false
	}

	return models.ListingItem{
		Name:     name,
		Price:    PriceToInt(listingPrice.eval(card)),
		Category: listingCategory.eval(card),
		Image:    ResolveImageSource(listingImage.eval(card)),
		Slug:     SlugFromPath(listingHref.eval(card)),
	}, true
}
