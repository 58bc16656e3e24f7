package pricing

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrUnknownCategory = errors.New("unknown scrap category")
	ErrInvalidWeight   = errors.New("weight must be a positive number of kg")
)

type Category struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	PricePerKg  float64 `json:"price_per_kg"`
	Description string  `json:"description"`
	Unit        string  `json:"unit"`
}

// Catalog is the default price list shown to customers, in rupees per kg.
var Catalog = []Category{
	{ID: "newspaper", Name: "Newspaper", PricePerKg: 12, Description: "Old newspapers, magazines, books, notebooks", Unit: "kg"},
	{ID: "plastic", Name: "Plastic", PricePerKg: 18, Description: "PET bottles, containers, packaging materials", Unit: "kg"},
	{ID: "metal", Name: "Metal", PricePerKg: 35, Description: "Steel, iron, aluminum items, utensils", Unit: "kg"},
	{ID: "copper", Name: "Copper Wire", PricePerKg: 250, Description: "Electrical wires, cables, transformers", Unit: "kg"},
	{ID: "ewaste", Name: "E-Waste", PricePerKg: 45, Description: "Old electronics, batteries, circuit boards", Unit: "kg"},
	{ID: "cardboard", Name: "Cardboard", PricePerKg: 8, Description: "Cardboard boxes, packaging materials", Unit: "kg"},
	{ID: "glass", Name: "Glass", PricePerKg: 5, Description: "Glass bottles, jars, broken glass", Unit: "kg"},
	{ID: "fabric", Name: "Fabric", PricePerKg: 10, Description: "Old clothes, textiles, curtains", Unit: "kg"},
}

// normalize folds case, strips accents and drops everything that is not a letter or digit,
// so "Copper  wire", "copper-wire" and "Cöpper Wire" all match.
func normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	var b strings.Builder
	for _, r := range strings.ToLower(out) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Lookup finds a category by id or display name.
func Lookup(key string) (Category, error) {
	k := normalize(key)
	if k != "" {
		for _, c := range Catalog {
			if normalize(c.ID) == k || normalize(c.Name) == k {
				return c, nil
			}
		}
	}
	return Category{}, fmt.Errorf("%w: %q", ErrUnknownCategory, key)
}

// Estimate is the indicative price for weightKg of the given category, rounded to paise.
func Estimate(category string, weightKg float64) (float64, error) {
	if math.IsNaN(weightKg) || math.IsInf(weightKg, 0) || weightKg <= 0 {
		return 0, ErrInvalidWeight
	}
	c, err := Lookup(category)
	if err != nil {
		return 0, err
	}
	return math.Round(weightKg*c.PricePerKg*100) / 100, nil
}
