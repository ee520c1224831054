package asin

import (
	"errors"
	"fmt"
	"strings"
)

// Kind represents the marketplace an extracted identifier belongs to
type Kind string

const (
	KindAmazon       Kind = "amazon"
	KindEbay         Kind = "ebay"
	KindManualReview Kind = "manual_review"
)

const (
	amazonCodeLength = 10
	ebayCodeLength   = 12

	amazonLinkPrefix = "https://www.amazon.com/dp/"
	ebayLinkPrefix   = "https://www.ebay.com/itm/"
)

// ErrEmptySKU is returned when the input SKU is empty or whitespace-only.
// It marks a data-quality defect in the source file, distinct from the
// expected manual-review outcome for well-formed but unrecognized SKUs.
var ErrEmptySKU = errors.New("sku is empty")

// Extraction is the result of deriving a marketplace identifier from a SKU
type Extraction struct {
	Kind        Kind   `json:"kind"`
	Identifier  string `json:"identifier,omitempty"`
	Link        string `json:"link,omitempty"`
	OriginalSKU string `json:"originalSku"`
}

// NeedsManualReview reports whether no identifier could be derived
func (e Extraction) NeedsManualReview() bool {
	return e.Kind == KindManualReview
}

// Extract derives a marketplace identifier from a store SKU.
//
// SKUs follow the pattern PREFIX-CODE-SUFFIX where the suffix is "New" or
// "N" (case-insensitive). The embedded code hides the identifier with its
// two halves swapped:
//
//   - 10 alphanumeric chars with at least one letter: Amazon ASIN,
//     halves of 5. MZM-4KTCXB0CYZ-New -> B0CYZ4KTCX
//   - 12 digits: eBay item ID, halves of 6.
//     MZM-853596316522-New -> 316522853596
//
// Anything else classifies as manual review rather than an error; only an
// empty or whitespace-only SKU returns ErrEmptySKU.
func Extract(sku string) (Extraction, error) {
	trimmed := strings.TrimSpace(sku)
	if trimmed == "" {
		return Extraction{}, ErrEmptySKU
	}

	manual := Extraction{Kind: KindManualReview, OriginalSKU: trimmed}

	parts := strings.Split(trimmed, "-")
	if len(parts) < 3 {
		return manual, nil
	}

	suffix := strings.ToLower(parts[len(parts)-1])
	if suffix != "new" && suffix != "n" {
		return manual, nil
	}

	// First token is the store prefix, last is the condition suffix,
	// everything between rejoined is the encoded code.
	code := strings.Join(parts[1:len(parts)-1], "-")

	var kind Kind
	switch len(code) {
	case amazonCodeLength:
		if !isAlphanumeric(code) || !containsLetter(code) {
			return manual, nil
		}
		kind = KindAmazon
	case ebayCodeLength:
		if !isDigits(code) {
			return manual, nil
		}
		kind = KindEbay
	default:
		return manual, nil
	}

	identifier := swapHalves(code)
	return Extraction{
		Kind:        kind,
		Identifier:  identifier,
		Link:        Link(kind, identifier),
		OriginalSKU: trimmed,
	}, nil
}

// Link builds the product page URL for an extracted identifier.
// Manual-review results have no link.
func Link(kind Kind, identifier string) string {
	switch kind {
	case KindAmazon:
		return amazonLinkPrefix + identifier
	case KindEbay:
		return ebayLinkPrefix + identifier
	default:
		return ""
	}
}

// ValidIdentifier reports whether a string is a well-formed marketplace
// identifier: a 10-char alphanumeric ASIN containing a letter, or a
// 12-digit eBay item ID. Used to vet manually entered identifiers.
func ValidIdentifier(s string) (Kind, bool) {
	s = strings.TrimSpace(s)
	switch len(s) {
	case amazonCodeLength:
		if isAlphanumeric(s) && containsLetter(s) {
			return KindAmazon, true
		}
	case ebayCodeLength:
		if isDigits(s) {
			return KindEbay, true
		}
	}
	return KindManualReview, false
}

// swapHalves splits an even-length code into two halves and swaps them.
// Applying it twice yields the original code.
func swapHalves(code string) string {
	half := len(code) / 2
	return code[half:] + code[:half]
}

// Character classes are ASCII-only on purpose. Codes are measured in
// bytes and split down the middle, so a multi-byte letter would both
// defeat the length check and let swapHalves cut through a rune.
func isAlphanumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isASCIILetter(s[i]) && !isASCIIDigit(s[i]) {
			return false
		}
	}
	return s != ""
}

func containsLetter(s string) bool {
	for i := 0; i < len(s); i++ {
		if isASCIILetter(s[i]) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isASCIIDigit(s[i]) {
			return false
		}
	}
	return s != ""
}

func isASCIILetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isASCIIDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

// String implements fmt.Stringer for logging
func (e Extraction) String() string {
	if e.NeedsManualReview() {
		return fmt.Sprintf("manual_review(%s)", e.OriginalSKU)
	}
	return fmt.Sprintf("%s(%s)", e.Kind, e.Identifier)
}
