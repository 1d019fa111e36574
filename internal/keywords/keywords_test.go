package keywords

import (
	"testing"

	"github.com/IBM/fp-go/v2/option"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"korean vitamin c serum", "비타민C 세럼", "vitamin c serum"},
		{"korean phrase inside longer name", "프리미엄 비타민c 앰플", "vitamin c serum"},
		{"eye cream wins over cream", "수분 아이크림", "eye cream"},
		{"english passes through lowercased", "  Premium Vitamin C Serum ", "premium vitamin c serum"},
		{"non-ascii stripped", "Café Latte", "caf latte"},
		{"unmapped korean only", "알수없는제품", FallbackTerm},
		{"blank", "   ", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIsNFCStable(t *testing.T) {
	// decomposed jamo for 세럼 must match the composed table entry
	decomposed := "\u1109\u1166\u1105\u1165\u11b7"
	assert.Equal(t, "serum", Normalize(decomposed))
}

func TestSearchTerm(t *testing.T) {
	assert.Equal(t, "product", SearchTerm(""))
	assert.Equal(t, "product", SearchTerm(Normalize("  ")))
	assert.Equal(t, "green tea", SearchTerm("green tea"))
}

func TestToChemicalName(t *testing.T) {
	assert.Equal(t, "ascorbic acid", ToChemicalName("vitamin c serum"))
	assert.Equal(t, "ascorbic acid", ToChemicalName("vitamin c"))
	assert.Equal(t, "niacinamide", ToChemicalName("Niacinamide"))
	assert.Equal(t, "monosodium glutamate", ToChemicalName("msg"))
	assert.Equal(t, "green tea", ToChemicalName("green tea"))
	assert.Equal(t, "", ToChemicalName(""))
}

func TestToCasNumber(t *testing.T) {
	assert.Equal(t, option.Some("50-81-7"), ToCasNumber("vitamin c serum"))
	assert.Equal(t, option.Some("1314-13-2"), ToCasNumber("zinc oxide"))
	assert.Equal(t, option.None[string](), ToCasNumber("green tea"))
}

func TestHeuristic(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"category tokens first", "Premium Vitamin C Serum", []string{"vitamin", "serum", "premium"}},
		{"korean input", "비타민C 세럼", []string{"vitamin", "serum"}},
		{"stopwords and short tokens dropped", "The best oil for dry skin", []string{"best", "oil", "dry", "skin"}},
		{"capped at five", "alpha bravo charlie delta echo foxtrot golf", []string{"alpha", "bravo", "charlie", "delta", "echo"}},
		{"hs-like prefix selects category set", "33 lotion extra gentle cream", []string{"lotion", "cream", "extra", "gentle"}},
		{"blank", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Heuristic(tt.in)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), MaxKeywords)
		})
	}
}

func TestFromText(t *testing.T) {
	got := FromText("Class II: failure to meet LABELING requirement; labeling")
	assert.Equal(t, []string{"class", "failure", "meet", "labeling", "requirement"}, got)
	assert.Equal(t, []string{}, FromText(""))
	assert.Equal(t, []string{}, FromText("a an of"))
}
