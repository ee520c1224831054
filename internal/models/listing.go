package models

// UpdateRow is one spreadsheet row feeding an update run
type UpdateRow struct {
	Store       string   `json:"store"`
	SKU         string   `json:"sku"`
	Stock       *int     `json:"stock,omitempty"`
	PostedPrice *float64 `json:"postedPrice,omitempty"`
	RowNumber   int      `json:"rowNumber"`
}

// Quantity returns the stock value to write to the marketplace.
// A missing stock cell means zero inventory.
func (r UpdateRow) Quantity() int {
	if r.Stock == nil {
		return 0
	}
	return *r.Stock
}

// MatchedRow is a scrape result whose SKU yielded a valid identifier
type MatchedRow struct {
	Store       string   `json:"store"`
	SKU         string   `json:"sku"`
	Identifier  string   `json:"identifier"`
	Length      int      `json:"length"`
	Link        string   `json:"link"`
	Stock       *int     `json:"stock,omitempty"`
	PostedPrice *float64 `json:"postedPrice,omitempty"`
}

// ReviewRow is a scrape result that needs a manually entered identifier
type ReviewRow struct {
	Store string `json:"store"`
	SKU   string `json:"sku"`
}

// ScrapeResult aggregates a classification pass over one or more store files
type ScrapeResult struct {
	Matched      []MatchedRow `json:"matched"`
	ManualReview []ReviewRow  `json:"manualReview"`
	EmptySKUs    int          `json:"emptySkus"`
	TotalRows    int          `json:"totalRows"`
}
