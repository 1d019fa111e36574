// Package extract turns raw provider payloads into normalized requirement
// items. Every function here is pure and never fails: payloads that do not
// decode simply produce no items, and a record that does not decode is
// skipped without affecting its siblings.
package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/IBM/fp-go/v2/array"
	F "github.com/IBM/fp-go/v2/function"
	"github.com/IBM/fp-go/v2/option"

	"github.com/Qubut/IP-Claim/packages/requirements_collector/internal/keywords"
	"github.com/Qubut/IP-Claim/packages/requirements_collector/internal/models"
)

const (
	CategoryEnforcement     = "enforcement"
	CategoryFoodData        = "food_data"
	CategoryChemicalSafety  = "chemical_safety"
	CategoryTradeStatistics = "trade_statistics"
)

const (
	confidenceEnforcement = 0.8
	confidenceFoodData    = 0.6
	confidenceChemical    = 0.7
	confidenceTrade       = 0.5
)

const maxTitle = 120

// enforcementVocabulary marks an enforcement record as regulation-relevant
// when any entry occurs in its classification or recall reason.
var enforcementVocabulary = []string{
	"enforcement",
	"import",
	"labeling",
	"compliance",
	"certificate",
	"prior notice",
	"cgmp",
	"regulation",
	"standard",
	"requirement",
	"prohibited",
	"restricted",
	"violation",
	"recall",
}

// All runs every extractor in provider order.
func All(data models.CollectedData) []models.RequirementItem {
	run := func(payload option.Option[json.RawMessage], fn func(json.RawMessage) []models.RequirementItem) []models.RequirementItem {
		return option.MonadGetOrElse(
			option.Map(fn)(payload),
			func() []models.RequirementItem { return nil },
		)
	}
	items := []models.RequirementItem{}
	items = append(items, run(data.Enforcement, Enforcement)...)
	items = append(items, run(data.Foods, FoodData)...)
	items = append(items, run(data.Chemicals, ChemicalSafety)...)
	items = append(items, run(data.Trade, TradeStatistics)...)
	return items
}

// FormatDate rewrites an 8-character YYYYMMDD date as YYYY-MM-DD; anything
// else is returned unchanged.
func FormatDate(raw string) string {
	if len(raw) != 8 {
		return raw
	}
	return raw[0:4] + "-" + raw[4:6] + "-" + raw[6:8]
}

func matchesVocabulary(text string) bool {
	lower := strings.ToLower(text)
	for _, term := range enforcementVocabulary {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

func optionalDate(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func clip(s string) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > maxTitle {
		return string(r[:maxTitle]) + "..."
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// field returns the named member of a JSON object, or nil when raw is not an
// object.
func field(raw json.RawMessage, name string) json.RawMessage {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	return obj[name]
}

// records decodes each element of a JSON array on its own.
func records[T any](raw json.RawMessage) []T {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return []T{}
	}
	out := make([]T, 0, len(elems))
	for _, elem := range elems {
		var v T
		if err := json.Unmarshal(elem, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

func Enforcement(raw json.RawMessage) []models.RequirementItem {
	return F.Pipe2(
		records[models.EnforcementRecord](field(raw, "results")),
		array.Filter(func(r models.EnforcementRecord) bool {
			return matchesVocabulary(r.Classification + " " + r.ReasonForRecall)
		}),
		array.Map(func(r models.EnforcementRecord) models.RequirementItem {
			text := r.Classification + " " + r.ReasonForRecall
			title := clip(firstNonEmpty(r.ProductDescription, "FDA enforcement action"))
			date := FormatDate(firstNonEmpty(r.RecallInitiationDate, r.ReportDate))
			return models.RequirementItem{
				Agency:        "FDA",
				Category:      CategoryEnforcement,
				Title:         title,
				Description:   strings.TrimSpace(r.ReasonForRecall),
				Source:        strings.TrimSpace("FDA Enforcement Report " + r.RecallNumber),
				Confidence:    confidenceEnforcement,
				Keywords:      keywords.FromText(text),
				EffectiveDate: optionalDate(date),
			}
		}),
	)
}

func FoodData(raw json.RawMessage) []models.RequirementItem {
	return array.Map(func(f models.FoodRecord) models.RequirementItem {
		details := []string{}
		if f.DataType != "" {
			details = append(details, "Data type: "+f.DataType)
		}
		if f.BrandOwner != "" {
			details = append(details, "Brand owner: "+f.BrandOwner)
		}
		if f.Ingredients != "" {
			details = append(details, "Ingredients: "+f.Ingredients)
		}
		return models.RequirementItem{
			Agency:      "USDA",
			Category:    CategoryFoodData,
			Title:       clip(firstNonEmpty(f.Description, "USDA food record")),
			Description: strings.Join(details, "; "),
			Source:      fmt.Sprintf("USDA FoodData Central (FDC ID %d)", f.FdcID),
			Confidence:  confidenceFoodData,
			Keywords:    keywords.FromText(f.Description),
			LastUpdated: optionalDate(f.PublishedDate),
		}
	})(records[models.FoodRecord](field(raw, "foods")))
}

// ChemicalSafety only understands an array of records; the provider's error
// object yields no items.
func ChemicalSafety(raw json.RawMessage) []models.RequirementItem {
	return array.Map(func(c models.ChemicalRecord) models.RequirementItem {
		return models.RequirementItem{
			Agency:      "EPA",
			Category:    CategoryChemicalSafety,
			Title:       clip(firstNonEmpty(c.PreferredName, c.DTXSID, "EPA chemical record")),
			Description: fmt.Sprintf("CAS RN %s, DTXSID %s", firstNonEmpty(c.CASRN, "n/a"), firstNonEmpty(c.DTXSID, "n/a")),
			Source:      "EPA CompTox Chemicals Dashboard",
			Confidence:  confidenceChemical,
			Keywords:    []string{c.PreferredName, c.CASRN},
		}
	})(records[models.ChemicalRecord](raw))
}

// TradeStatistics summarises a Census time series whose first row is the
// header. Fewer than two rows means there is no data row.
func TradeStatistics(raw json.RawMessage) []models.RequirementItem {
	var rows [][]any
	if err := json.Unmarshal(raw, &rows); err != nil || len(rows) < 2 {
		return []models.RequirementItem{}
	}
	header := cells(rows[0])
	first := cells(rows[1])
	column := func(name string) string {
		for i, h := range header {
			if strings.EqualFold(h, name) && i < len(first) {
				return first[i]
			}
		}
		return ""
	}
	commodity := firstNonEmpty(column("I_COMMODITY"), "unknown")
	period := column("time")
	description := fmt.Sprintf("%d import record(s) for HS %s", len(rows)-1, commodity)
	if d := column("I_COMMODITY_SDESC"); d != "" {
		description += " (" + d + ")"
	}
	if period != "" {
		description += " in " + period
	}
	return []models.RequirementItem{{
		Agency:      "Census",
		Category:    CategoryTradeStatistics,
		Title:       "U.S. import statistics for HS " + commodity,
		Description: description,
		Source:      "U.S. Census Bureau International Trade API",
		Confidence:  confidenceTrade,
		Keywords:    []string{commodity},
		LastUpdated: optionalDate(period),
	}}
}

func cells(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		switch t := v.(type) {
		case string:
			out[i] = t
		case nil:
			out[i] = ""
		default:
			out[i] = fmt.Sprint(t)
		}
	}
	return out
}
