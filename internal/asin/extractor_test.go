package asin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ===========================================
// Known Vector Tests
// ===========================================

func TestExtract_AmazonVectors(t *testing.T) {
	tests := []struct {
		sku        string
		identifier string
		link       string
	}{
		{"MZM-4KTCXB0CYZ-New", "B0CYZ4KTCX", "https://www.amazon.com/dp/B0CYZ4KTCX"},
		{"MZM-7TBHSB0DJ8-N", "B0DJ87TBHS", "https://www.amazon.com/dp/B0DJ87TBHS"},
		{"MZM-9866NB098S-New", "B098S9866N", "https://www.amazon.com/dp/B098S9866N"},
	}

	for _, tt := range tests {
		result, err := Extract(tt.sku)

		assert.NoError(t, err, tt.sku)
		assert.Equal(t, KindAmazon, result.Kind, tt.sku)
		assert.Equal(t, tt.identifier, result.Identifier, tt.sku)
		assert.Equal(t, tt.link, result.Link, tt.sku)
		assert.Equal(t, tt.sku, result.OriginalSKU)
		assert.False(t, result.NeedsManualReview())
	}
}

func TestExtract_EbayVectors(t *testing.T) {
	tests := []struct {
		sku        string
		identifier string
		link       string
	}{
		{"MZM-853596316522-New", "316522853596", "https://www.ebay.com/itm/316522853596"},
		{"MMS-197190135509-New", "135509197190", "https://www.ebay.com/itm/135509197190"},
	}

	for _, tt := range tests {
		result, err := Extract(tt.sku)

		assert.NoError(t, err, tt.sku)
		assert.Equal(t, KindEbay, result.Kind, tt.sku)
		assert.Equal(t, tt.identifier, result.Identifier, tt.sku)
		assert.Equal(t, tt.link, result.Link, tt.sku)
	}
}

// ===========================================
// Suffix Handling
// ===========================================

func TestExtract_SuffixCaseInsensitive(t *testing.T) {
	for _, suffix := range []string{"New", "new", "NEW", "N", "n", "nEw"} {
		result, err := Extract("X-AAAAA11111-" + suffix)

		assert.NoError(t, err)
		assert.Equal(t, KindAmazon, result.Kind, suffix)
		assert.Equal(t, "11111AAAAA", result.Identifier, suffix)
	}
}

func TestExtract_UnknownSuffix(t *testing.T) {
	for _, sku := range []string{
		"X-AAAAA11111-Used",
		"X-AAAAA11111-News",
		"X-AAAAA11111-",
		"X-AAAAA11111",
	} {
		result, err := Extract(sku)

		assert.NoError(t, err, sku)
		assert.Equal(t, KindManualReview, result.Kind, sku)
		assert.Empty(t, result.Identifier, sku)
		assert.Empty(t, result.Link, sku)
	}
}

// ===========================================
// Code Validation Boundaries
// ===========================================

func TestExtract_WrongCodeLength(t *testing.T) {
	for _, sku := range []string{
		"X-AAAA1111-New",     // 8
		"X-AAAAA1111-New",    // 9
		"X-AAAAA111111-New",  // 11
		"X-1234567890123-N",  // 13
	} {
		result, err := Extract(sku)

		assert.NoError(t, err, sku)
		assert.Equal(t, KindManualReview, result.Kind, sku)
	}
}

func TestExtract_AllDigitTenCharCode(t *testing.T) {
	// A numeric 10-char code fails the Amazon letter rule and is never
	// re-tested against the 12-digit eBay rule.
	result, err := Extract("X-1234567890-New")

	assert.NoError(t, err)
	assert.Equal(t, KindManualReview, result.Kind)
}

func TestExtract_NonDigitTwelveCharCode(t *testing.T) {
	result, err := Extract("X-12345678901A-New")

	assert.NoError(t, err)
	assert.Equal(t, KindManualReview, result.Kind)
}

func TestExtract_NonASCIILettersRejected(t *testing.T) {
	// "ééééé" is five letters but ten bytes; byte-length alone would pass
	// the Amazon rule and the half split would cut a rune in two. Only
	// ASCII letters and digits count.
	for _, sku := range []string{
		"X-ééééé-New",
		"X-ААААА-New", // five Cyrillic А, also ten bytes
	} {
		result, err := Extract(sku)

		assert.NoError(t, err, sku)
		assert.Equal(t, KindManualReview, result.Kind, sku)
		assert.Empty(t, result.Identifier, sku)
	}
}

func TestExtract_NonAlphanumericTenCharCode(t *testing.T) {
	result, err := Extract("X-AAAA!11111-New")

	assert.NoError(t, err)
	assert.Equal(t, KindManualReview, result.Kind)
}

// ===========================================
// Multi-Dash SKUs
// ===========================================

func TestExtract_CodeRejoinedBetweenFirstAndLastToken(t *testing.T) {
	// Middle tokens rejoin with dashes; the dash breaks validation and the
	// row lands in manual review.
	result, err := Extract("MZM-AAAA-1111-New")

	assert.NoError(t, err)
	assert.Equal(t, KindManualReview, result.Kind)
}

// ===========================================
// Invalid Input
// ===========================================

func TestExtract_EmptyInput(t *testing.T) {
	for _, sku := range []string{"", "   ", "\t\n"} {
		_, err := Extract(sku)

		assert.ErrorIs(t, err, ErrEmptySKU)
	}
}

func TestExtract_TrimsWhitespace(t *testing.T) {
	result, err := Extract("  MZM-4KTCXB0CYZ-New  ")

	assert.NoError(t, err)
	assert.Equal(t, "B0CYZ4KTCX", result.Identifier)
	assert.Equal(t, "MZM-4KTCXB0CYZ-New", result.OriginalSKU)
}

// ===========================================
// Properties
// ===========================================

func TestSwapHalves_TwiceIsIdentity(t *testing.T) {
	for _, code := range []string{"4KTCXB0CYZ", "853596316522", "AAAAABBBBB"} {
		assert.Equal(t, code, swapHalves(swapHalves(code)))
	}
}

func TestExtract_RoundTrip(t *testing.T) {
	// Building a SKU from the swapped halves of a known ASIN recovers it.
	canonical := "B0CYZ4KTCX"
	encoded := swapHalves(canonical)

	result, err := Extract("TSS-" + encoded + "-New")

	assert.NoError(t, err)
	assert.Equal(t, canonical, result.Identifier)
}

func TestExtract_Deterministic(t *testing.T) {
	first, err1 := Extract("MZM-4KTCXB0CYZ-New")
	second, err2 := Extract("MZM-4KTCXB0CYZ-New")

	assert.NoError(t, err1)
	assert.NoError(t, err2)
	assert.Equal(t, first, second)
}

// ===========================================
// Identifier Validation
// ===========================================

func TestValidIdentifier(t *testing.T) {
	tests := []struct {
		input string
		kind  Kind
		valid bool
	}{
		{"B0CYZ4KTCX", KindAmazon, true},
		{"316522853596", KindEbay, true},
		{"1234567890", KindManualReview, false}, // ten digits, no letter
		{"ééééé", KindManualReview, false},      // ten bytes, non-ASCII
		{"12345678901A", KindManualReview, false},
		{"B0CYZ", KindManualReview, false},
		{"", KindManualReview, false},
	}

	for _, tt := range tests {
		kind, valid := ValidIdentifier(tt.input)

		assert.Equal(t, tt.kind, kind, tt.input)
		assert.Equal(t, tt.valid, valid, tt.input)
	}
}

func TestLink_ManualReviewHasNoLink(t *testing.T) {
	assert.Empty(t, Link(KindManualReview, "whatever"))
}
