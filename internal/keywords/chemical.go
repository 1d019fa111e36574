package keywords

import (
	"strings"

	"github.com/IBM/fp-go/v2/option"
)

type chemical struct {
	phrase string
	name   string
	cas    string
}

// chemicals is matched exactly first, then by the first phrase (in table
// order) contained in the keyword.
var chemicals = []chemical{
	{"vitamin c", "ascorbic acid", "50-81-7"},
	{"ascorbic acid", "ascorbic acid", "50-81-7"},
	{"vitamin e", "tocopherol", "59-02-9"},
	{"vitamin a", "retinol", "68-26-8"},
	{"retinol", "retinol", "68-26-8"},
	{"vitamin b3", "niacinamide", "98-92-0"},
	{"niacinamide", "niacinamide", "98-92-0"},
	{"vitamin b5", "panthenol", "81-13-0"},
	{"panthenol", "panthenol", "81-13-0"},
	{"vitamin d", "cholecalciferol", "67-97-0"},
	{"hyaluronic acid", "hyaluronic acid", "9004-61-9"},
	{"salicylic acid", "salicylic acid", "69-72-7"},
	{"glycolic acid", "glycolic acid", "79-14-1"},
	{"lactic acid", "lactic acid", "50-21-5"},
	{"glycerin", "glycerol", "56-81-5"},
	{"caffeine", "caffeine", "58-08-2"},
	{"zinc oxide", "zinc oxide", "1314-13-2"},
	{"titanium dioxide", "titanium dioxide", "13463-67-7"},
	{"adenosine", "adenosine", "58-61-7"},
	{"arbutin", "arbutin", "497-76-7"},
	{"methylparaben", "methylparaben", "99-76-3"},
	{"propylparaben", "propylparaben", "94-13-3"},
	{"phenoxyethanol", "2-phenoxyethanol", "122-99-6"},
	{"sodium benzoate", "sodium benzoate", "532-32-1"},
	{"potassium sorbate", "potassium sorbate", "24634-61-5"},
	{"citric acid", "citric acid", "77-92-9"},
	{"msg", "monosodium glutamate", "142-47-2"},
	{"monosodium glutamate", "monosodium glutamate", "142-47-2"},
	{"aspartame", "aspartame", "22839-47-0"},
	{"capsaicin", "capsaicin", "404-86-4"},
}

func lookupChemical(keyword string) option.Option[chemical] {
	k := strings.ToLower(strings.TrimSpace(keyword))
	if k == "" {
		return option.None[chemical]()
	}
	for _, c := range chemicals {
		if c.phrase == k {
			return option.Some(c)
		}
	}
	for _, c := range chemicals {
		if strings.Contains(k, c.phrase) {
			return option.Some(c)
		}
	}
	return option.None[chemical]()
}

// ToChemicalName resolves an ingredient phrase to its registry name, or
// returns keyword unchanged when it is not mapped.
func ToChemicalName(keyword string) string {
	return option.MonadGetOrElse(
		option.Map(func(c chemical) string { return c.name })(lookupChemical(keyword)),
		func() string { return keyword },
	)
}

// ToCasNumber resolves an ingredient phrase to its CAS registry number.
func ToCasNumber(keyword string) option.Option[string] {
	return option.Map(func(c chemical) string { return c.cas })(lookupChemical(keyword))
}
