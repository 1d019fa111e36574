// Package keywords turns free-text product names into English search terms
// for the regulatory data providers.
package keywords

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// FallbackTerm is the search term used when a product name has no usable
// ASCII content.
const FallbackTerm = "product"

type phraseRule struct {
	phrase  string
	keyword string
}

// koreanPhrases is checked top to bottom; the first phrase contained in the
// input wins, so more specific phrases must precede the phrases they contain.
var koreanPhrases = []phraseRule{
	{"비타민c 세럼", "vitamin c serum"},
	{"비타민c", "vitamin c serum"},
	{"비타민 c", "vitamin c serum"},
	{"히알루론산", "hyaluronic acid serum"},
	{"나이아신아마이드", "niacinamide serum"},
	{"레티놀", "retinol cream"},
	{"선크림", "sunscreen"},
	{"자외선 차단제", "sunscreen"},
	{"아이크림", "eye cream"},
	{"마스크팩", "sheet mask"},
	{"클렌징 폼", "cleansing foam"},
	{"클렌저", "cleanser"},
	{"토너", "toner"},
	{"에센스", "essence"},
	{"앰플", "ampoule"},
	{"세럼", "serum"},
	{"로션", "lotion"},
	{"크림", "cream"},
	{"샴푸", "shampoo"},
	{"립스틱", "lipstick"},
	{"쿠션", "cushion foundation"},
	{"홍삼", "red ginseng"},
	{"인삼", "ginseng"},
	{"건강기능식품", "dietary supplement"},
	{"유산균", "probiotic supplement"},
	{"콜라겐", "collagen supplement"},
	{"비타민", "vitamin supplement"},
	{"김치", "kimchi"},
	{"고추장", "gochujang"},
	{"된장", "soybean paste"},
	{"라면", "instant noodles"},
	{"녹차", "green tea"},
	{"소주", "soju"},
	{"과자", "snack"},
	{"화장품", "cosmetics"},
}

// Normalize maps a product name to a lowercase English search keyword.
// Blank input yields "".
func Normalize(productName string) string {
	name := strings.ToLower(strings.TrimSpace(norm.NFC.String(productName)))
	if name == "" {
		return ""
	}
	for _, rule := range koreanPhrases {
		if strings.Contains(name, rule.phrase) {
			return rule.keyword
		}
	}
	ascii := strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII || unicode.IsControl(r) {
			return ' '
		}
		return r
	}, name)
	ascii = strings.Join(strings.Fields(ascii), " ")
	if ascii == "" {
		return FallbackTerm
	}
	return ascii
}

// SearchTerm is the primary query keyword for a normalized name.
func SearchTerm(normalized string) string {
	if strings.TrimSpace(normalized) == "" {
		return FallbackTerm
	}
	return normalized
}
