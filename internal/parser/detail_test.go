package parser

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samisuko/storefront/internal/models"
)

const productURL = "https://samisukofurnicraftjepara.com/produk/oslo-sofa/"

func TestExtractDetail_ProductPage(t *testing.T) {
	doc := loadFixture(t, "product.html")

	detail := ExtractDetail(doc, productURL)

	assert.Equal(t, "Oslo Sofa", detail.Title)
	assert.Equal(t, "Sofa", detail.Category)
	assert.Equal(t, "Rp 12.500.000", detail.Price)
	assert.Equal(t, "Sofa tiga dudukan dari kayu jati solid.", detail.ShortDescription)
	assert.Contains(t, detail.LongDescription, "Oslo Sofa memadukan gaya Skandinavia dengan kayu jati.")
	assert.NotContains(t, detail.LongDescription, "\n")
	assert.NotContains(t, detail.LongDescription, "  ")
	assert.Equal(t, map[string]string{
		"Material":  "Solid Oak",
		"Finishing": "Natural Oil Finish",
		"Dimensi":   "210 x 85 x 80 cm",
	}, detail.Specs)
	assert.Equal(t, []string{
		"https://samisukofurnicraftjepara.com/wp-content/uploads/oslo-1.jpg",
		"https://samisukofurnicraftjepara.com/wp-content/uploads/oslo-2.jpg",
	}, detail.Images)
	assert.Equal(t, []models.RelatedProduct{
		{
			Title: "Kursi Santai",
			URL:   "https://samisukofurnicraftjepara.com/produk/kursi-santai/",
			Image: "https://samisukofurnicraftjepara.com/wp-content/uploads/kursi-santai-300x300.jpg",
			Price: "Rp 2.850.000",
		},
		{
			Title: "Bufet Oak",
			URL:   "https://samisukofurnicraftjepara.com/produk/bufet-oak/",
		},
	}, detail.RelatedProducts)
	assert.Equal(t, productURL, detail.SourceURL)
}

func TestExtractDetail_EmptyPageDefaults(t *testing.T) {
	doc, err := Parse(`<html><body><p>Halaman tidak ditemukan</p></body></html>`)
	require.NoError(t, err)

	detail := ExtractDetail(doc, productURL)

	assert.Equal(t, "", detail.Title)
	assert.Equal(t, "", detail.Category, "detail category has no sentinel default")
	assert.Equal(t, "", detail.Price)
	assert.Equal(t, "", detail.ShortDescription)
	assert.Equal(t, "", detail.LongDescription)
	assert.NotNil(t, detail.Specs)
	assert.Empty(t, detail.Specs)
	assert.NotNil(t, detail.Images)
	assert.Empty(t, detail.Images)
	assert.NotNil(t, detail.RelatedProducts)
	assert.Empty(t, detail.RelatedProducts)

	out, err := json.Marshal(detail)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"title": "", "category": "", "price": "",
		"shortDescription": "", "longDescription": "",
		"specs": {}, "images": [], "relatedProducts": [],
		"sourceUrl": "https://samisukofurnicraftjepara.com/produk/oslo-sofa/"
	}`, string(out))
}

func TestExtractDetail_GalleryFallsBackToImages(t *testing.T) {
	html := `<div class="woocommerce-product-gallery__wrapper">
		<div class="woocommerce-product-gallery__image"><img src="https://cdn.example/a.jpg"></div>
		<div class="woocommerce-product-gallery__image"><img src="https://cdn.example/b.jpg"></div>
	</div>`
	doc, err := Parse(html)
	require.NoError(t, err)

	detail := ExtractDetail(doc, productURL)

	assert.Equal(t, []string{"https://cdn.example/a.jpg", "https://cdn.example/b.jpg"}, detail.Images)
}

func TestExtractDetail_GalleryAnchorsWin(t *testing.T) {
	html := `<div class="woocommerce-product-gallery__wrapper">
		<div class="woocommerce-product-gallery__image"><a href="https://cdn.example/full-a.jpg"><img src="https://cdn.example/a.jpg"></a></div>
		<div class="woocommerce-product-gallery__image"><img src="https://cdn.example/b.jpg"></div>
	</div>`
	doc, err := Parse(html)
	require.NoError(t, err)

	detail := ExtractDetail(doc, productURL)

	assert.Equal(t, []string{"https://cdn.example/full-a.jpg"}, detail.Images)
}

func TestExtractDetail_Specs(t *testing.T) {
	tests := []struct {
		name     string
		items    string
		expected map[string]string
	}{
		{
			name:     "Bold label with colon",
			items:    `<li><strong>Material:</strong> Solid Oak</li>`,
			expected: map[string]string{"Material": "Solid Oak"},
		},
		{
			name:     "Colon outside the bold node",
			items:    `<li><strong>Berat</strong>: 45 kg</li>`,
			expected: map[string]string{"Berat": "45 kg"},
		},
		{
			name:     "Value keeps later colons",
			items:    `<li><strong>Rasio:</strong> 2:1 panjang</li>`,
			expected: map[string]string{"Rasio": "2:1 panjang"},
		},
		{
			name:     "No bold label",
			items:    `<li>Kapasitas: 6 orang</li>`,
			expected: map[string]string{},
		},
		{
			name:     "Empty value",
			items:    `<li><strong>Warna:</strong>   </li>`,
			expected: map[string]string{},
		},
		{
			name:     "Empty label",
			items:    `<li><strong>:</strong> sesuatu</li>`,
			expected: map[string]string{},
		},
		{
			name: "Malformed item does not stop the rest",
			items: `<li><strong></strong></li>
				<li><strong>Asal Kayu:</strong>
					European Oak</li>`,
			expected: map[string]string{"Asal Kayu": "European Oak"},
		},
		{
			name: "Later duplicate label overwrites",
			items: `<li><strong>Material:</strong> Jati</li>
				<li><strong>Material:</strong> Mahoni</li>`,
			expected: map[string]string{"Material": "Mahoni"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse(`<div id="tab-description"><ul>` + tt.items + `</ul></div>`)
			require.NoError(t, err)

			detail := ExtractDetail(doc, productURL)

			assert.Equal(t, tt.expected, detail.Specs)
		})
	}
}

func TestExtractDetail_SpecsOutsideDescriptionTabIgnored(t *testing.T) {
	html := `<div id="tab-additional_information"><ul><li><strong>Berat:</strong> 45 kg</li></ul></div>`
	doc, err := Parse(html)
	require.NoError(t, err)

	detail := ExtractDetail(doc, productURL)

	assert.Empty(t, detail.Specs)
}

func TestExtractDetail_Idempotent(t *testing.T) {
	doc := loadFixture(t, "product.html")

	first, err := json.Marshal(ExtractDetail(doc, productURL))
	require.NoError(t, err)
	second, err := json.Marshal(ExtractDetail(doc, productURL))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}
