package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/samisuko/storefront/internal/models"
)

const (
	specItemSelector    = "#tab-description ul li"
	relatedItemSelector = "section.related ul.products > li"
	galleryImageWrapper = ".woocommerce-product-gallery__wrapper .woocommerce-product-gallery__image"
)

var specValuePrefix = regexp.MustCompile(`^.*?:\s*`)

// Per-field rules for a product page. Every text field defaults to "".
// The category default differs from the listing card on purpose.
var (
	detailTitle = field{
		chain: chain{firstTextOf(".product_title.entry-title")},
	}
	detailCategory = field{
		chain: chain{firstTextOf(".single-product-category a")},
	}
	detailPrice = field{
		chain: chain{firstCleanTextOf(".price .woocommerce-Price-amount")},
	}
	detailShortDescription = field{
		chain: chain{firstTextOf(".woocommerce-product-details__short-description p")},
	}
	detailLongDescription = field{
		chain: chain{cleanTextOf("#tab-description")},
	}
	// Anchors carry the full-size image; some pages omit the anchor wrapper.
	detailImages = listChain{
		attrsOf(galleryImageWrapper+" a", "href"),
		attrsOf(galleryImageWrapper+" img", "src"),
	}

	relatedTitle = field{
		chain: chain{textOf(".woocommerce-loop-product__title")},
	}
	relatedURL = field{
		chain: chain{attrOf("a.woocommerce-loop-product__link, a.ast-loop-product__link", "href")},
	}
	relatedImage = field{
		chain: chain{attrOf("img", "src")},
	}
	relatedPrice = field{
		chain: chain{cleanTextOf(".price .woocommerce-Price-amount")},
	}
)

// ExtractDetail runs every detail rule once against doc. Missing nodes never
// fail the extraction; they leave the field at its default.
func ExtractDetail(doc *Document, sourceURL string) *models.ProductDetail {
	root := doc.Root()

	detail := models.NewProductDetail(sourceURL)
	detail.Title = detailTitle.eval(root)
	detail.Category = detailCategory.eval(root)
	detail.Price = detailPrice.eval(root)
	detail.ShortDescription = detailShortDescription.eval(root)
	detail.LongDescription = detailLongDescription.eval(root)
	detail.Specs = extractSpecs(root)
	detail.Images = detailImages.eval(root)
	detail.RelatedProducts = extractRelated(root)

	return detail
}

// extractSpecs reads "<strong>Label:</strong> value" list items. Items where
// either side ends up empty are skipped.
func extractSpecs(root *goquery.Selection) map[string]string {
	specs := make(map[string]string)

	root.Find(specItemSelector).Each(func(_ int, li *goquery.Selection) {
		label, value := parseSpecItem(li)
		if label == "" || value == "" {
			return
		}
		specs[label] = value
	})

	return specs
}

func parseSpecItem(li *goquery.Selection) (string, string) {
	strong := li.Find("strong").First()
	if strong.Length() == 0 {
		return "", ""
	}

	label := strings.TrimSpace(strings.Replace(strong.Text(), ":", "", 1))
	value := strings.TrimSpace(specValuePrefix.ReplaceAllString(strings.TrimSpace(li.Text()), ""))

	return label, value
}

func extractRelated(root *goquery.Selection) []models.RelatedProduct {
	related := make([]models.RelatedProduct, 0)

	root.Find(relatedItemSelector).Each(func(_ int, li *goquery.Selection) {
		title := relatedTitle.eval(li)
		if title == "" {
			return
		}
		related = append(related, models.RelatedProduct{
			Title: title,
			URL:   relatedURL.eval(li),
			Image: relatedImage.eval(li),
			Price: relatedPrice.eval(li),
		})
	})

	return related
}
