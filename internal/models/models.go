package models

import (
	"encoding/json"

	"github.com/IBM/fp-go/v2/option"
)

// Citation records which provider answered, independent of whether any
// requirement item was extracted from its payload.
type Citation struct {
	Agency   string `json:"agency"`
	Category string `json:"category"`
	URL      string `json:"url"`
	Title    string `json:"title"`
}

// RequirementItem is one normalized unit of regulatory evidence.
type RequirementItem struct {
	Agency        string   `json:"agency"`
	Category      string   `json:"category"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Source        string   `json:"source"`
	Confidence    float64  `json:"confidence"`
	Keywords      []string `json:"keywords"`
	EffectiveDate *string  `json:"effective_date,omitempty"`
	LastUpdated   *string  `json:"last_updated,omitempty"`
}

// CollectedData holds the raw provider payloads of a single collection request.
type CollectedData struct {
	Enforcement option.Option[json.RawMessage]
	Foods       option.Option[json.RawMessage]
	Chemicals   option.Option[json.RawMessage]
	Trade       option.Option[json.RawMessage]
	Citations   []Citation
}

// Provider keys used when echoing raw payloads.
const (
	RawEnforcement = "fda_enforcement"
	RawFoods       = "usda_foods"
	RawChemicals   = "epa_chemicals"
	RawTrade       = "census_trade"
)

// Raw returns the payloads that are present, keyed by provider.
func (c CollectedData) Raw() map[string]json.RawMessage {
	raw := make(map[string]json.RawMessage, 4)
	put := func(key string, payload option.Option[json.RawMessage]) {
		if p, ok := option.Unwrap(payload); ok {
			raw[key] = p
		}
	}
	put(RawEnforcement, c.Enforcement)
	put(RawFoods, c.Foods)
	put(RawChemicals, c.Chemicals)
	put(RawTrade, c.Trade)
	return raw
}

type Requirements struct {
	TotalCount     int               `json:"total_count"`
	Certifications []RequirementItem `json:"certifications"`
	Documents      []RequirementItem `json:"documents"`
	Notices        []RequirementItem `json:"notices"`
	AllItems       []RequirementItem `json:"all_items"`
	CategoryStats  map[string]int    `json:"category_stats"`
	Citations      []Citation        `json:"citations"`
}

type Document struct {
	Product           string                     `json:"product"`
	NormalizedKeyword string                     `json:"normalized_keyword"`
	ChemicalName      string                     `json:"chemical_name"`
	HSCode            *string                    `json:"hs_code"`
	Timestamp         string                     `json:"timestamp"`
	Requirements      Requirements               `json:"requirements"`
	Citations         []Citation                 `json:"citations"`
	RawData           map[string]json.RawMessage `json:"raw_data,omitempty"`
}

type ErrorDocument struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}
