package keywords

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/IBM/fp-go/v2/array"
	F "github.com/IBM/fp-go/v2/function"
)

// MaxKeywords bounds every keyword list handed to the providers.
const MaxKeywords = 5

const minTokenLen = 3

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "into": {},
	"this": {}, "that": {}, "your": {}, "our": {}, "are": {}, "was": {},
	"not": {}, "all": {}, "new": {}, "per": {}, "via": {}, "its": {},
}

// hsCategoryKeywords maps a two-character HS chapter prefix to the tokens
// that are moved to the front of a keyword list.
var hsCategoryKeywords = map[string][]string{
	"04": {"milk", "dairy", "cheese", "yogurt", "honey"},
	"09": {"tea", "coffee", "spice", "pepper"},
	"13": {"extract", "ginseng", "pectin"},
	"19": {"noodles", "snack", "cookie", "bread", "cereal"},
	"20": {"kimchi", "jam", "juice", "pickle"},
	"21": {"supplement", "sauce", "paste", "gochujang", "probiotic", "collagen", "vitamin"},
	"22": {"soju", "beverage", "drink", "water", "wine"},
	"33": {"serum", "cream", "lotion", "toner", "essence", "ampoule", "sunscreen", "cosmetics", "mask"},
	"34": {"soap", "shampoo", "cleanser", "foam", "detergent"},
}

var defaultCategoryKeywords = []string{"vitamin", "supplement", "food", "cosmetics", "cream", "serum"}

// categoryKeywords selects the priority set from the first two characters of
// the raw product name.
func categoryKeywords(productName string) map[string]struct{} {
	set := defaultCategoryKeywords
	if runes := []rune(productName); len(runes) >= 2 {
		if kws, ok := hsCategoryKeywords[string(runes[:2])]; ok {
			set = kws
		}
	}
	out := make(map[string]struct{}, len(set))
	for _, k := range set {
		out[k] = struct{}{}
	}
	return out
}

func keep(token string) bool {
	if utf8.RuneCountInString(token) < minTokenLen {
		return false
	}
	_, stop := stopwords[token]
	return !stop
}

func truncate(tokens []string) []string {
	if len(tokens) == 0 {
		return []string{}
	}
	if len(tokens) > MaxKeywords {
		return tokens[:MaxKeywords]
	}
	return tokens
}

// Heuristic is the local keyword extractor used when the keyword service is
// unavailable. It never fails; the result holds at most MaxKeywords tokens.
func Heuristic(productName string) []string {
	priority := categoryKeywords(productName)
	inSet := func(t string) bool {
		_, ok := priority[t]
		return ok
	}
	tokens := F.Pipe1(
		strings.Fields(Normalize(productName)),
		array.Filter(keep),
	)
	first := array.Filter(inSet)(tokens)
	rest := array.Filter(func(t string) bool { return !inSet(t) })(tokens)
	return truncate(append(first, rest...))
}

// FromText pulls up to MaxKeywords distinct tokens out of free English text.
func FromText(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if !keep(tok) {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
		if len(out) == MaxKeywords {
			break
		}
	}
	if out == nil {
		return []string{}
	}
	return out
}
