package models

import "strings"

// Store is a configured Reverb storefront. Tokens are resolved at startup
// from environment variables or Secret Manager and never persisted.
type Store struct {
	Code     string `json:"code"`
	Name     string `json:"name,omitempty"`
	APIToken string `json:"-"`
}

// HasToken reports whether a usable API token was resolved for the store
func (s Store) HasToken() bool {
	return strings.TrimSpace(s.APIToken) != ""
}

// NormalizeStoreName maps a free-form store name from a spreadsheet onto a
// configured store code. Matching is case-insensitive and tolerates the
// sheet carrying a longer label that contains the code (or vice versa).
// Returns the empty string when nothing matches.
func NormalizeStoreName(name string, codes []string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return ""
	}

	for _, code := range codes {
		if name == code {
			return code
		}
	}
	for _, code := range codes {
		if strings.Contains(name, code) || strings.Contains(code, name) {
			return code
		}
	}
	return ""
}
