package hybrid

import (
	"errors"
	"fmt"
	"strings"

	"github.com/LeonardoBeccarini/agrisoil/internal/model/entities"
)

var (
	ErrEmptyCropKey  = errors.New("hybrid: crop rule without key")
	ErrDuplicateCrop = errors.New("hybrid: duplicate crop rule")
	ErrInvalidRule   = errors.New("hybrid: invalid crop rule")
)

// Catalog is the read-only registry of crop rules, keyed by lower-case crop
// identifier. A Catalog is never mutated after NewCatalog returns, so it can
// be shared between goroutines without locking.
type Catalog struct {
	order []string
	rules map[string]entities.CropRule
}

// NewCatalog validates rules and builds a catalog preserving their order.
// Soil lists are copied so later changes to the input cannot leak in.
func NewCatalog(rules []entities.CropRule) (*Catalog, error) {
	c := &Catalog{
		order: make([]string, 0, len(rules)),
		rules: make(map[string]entities.CropRule, len(rules)),
	}
	for i, r := range rules {
		key := entities.NormalizeCropKey(r.Key)
		if key == "" {
			key = entities.NormalizeCropKey(r.Name)
		}
		if key == "" {
			return nil, fmt.Errorf("rule #%d: %w", i, ErrEmptyCropKey)
		}
		if _, dup := c.rules[key]; dup {
			return nil, fmt.Errorf("%s: %w", key, ErrDuplicateCrop)
		}
		r.Key = key
		if strings.TrimSpace(r.Name) == "" {
			r.Name = displayName(key)
		}
		if err := checkRule(r); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		r.PreferredSoils = append([]string(nil), r.PreferredSoils...)
		r.AcceptableSoils = append([]string(nil), r.AcceptableSoils...)

		c.rules[key] = r
		c.order = append(c.order, key)
	}
	return c, nil
}

// MustCatalog is NewCatalog for static tables; it panics on invalid rules.
func MustCatalog(rules []entities.CropRule) *Catalog {
	c, err := NewCatalog(rules)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup finds the rule of a crop, ignoring case and surrounding spaces.
func (c *Catalog) Lookup(crop string) (entities.CropRule, bool) {
	if c == nil {
		return entities.CropRule{}, false
	}
	r, ok := c.rules[entities.NormalizeCropKey(crop)]
	return r, ok
}

// AllCrops returns the crop keys in catalog order.
func (c *Catalog) AllCrops() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.order...)
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

func checkRule(r entities.CropRule) error {
	bands := []struct {
		name       string
		acceptable entities.Range
		optimal    entities.Range
	}{
		{"ph", r.PH, r.PHOptimal},
		{"rainfall", r.Rainfall, r.RainfallOptimal},
		{"temperature", r.Temperature, r.TemperatureOptimal},
		{"humidity", r.Humidity, r.HumidityOptimal()},
	}
	for _, b := range bands {
		if !b.acceptable.Valid() || !b.optimal.Valid() {
			return fmt.Errorf("%w: inverted %s range", ErrInvalidRule, b.name)
		}
		if !b.optimal.Within(b.acceptable) {
			return fmt.Errorf("%w: optimal %s band outside acceptable range", ErrInvalidRule, b.name)
		}
	}
	if len(r.PreferredSoils) == 0 {
		return fmt.Errorf("%w: no preferred soils", ErrInvalidRule)
	}
	for _, need := range []entities.NutrientLevel{r.NitrogenNeed, r.PhosphorusNeed, r.PotassiumNeed} {
		switch need {
		case entities.NutrientLow, entities.NutrientModerate, entities.NutrientHigh:
		default:
			return fmt.Errorf("%w: unknown nutrient need %q", ErrInvalidRule, need)
		}
	}
	return nil
}

// displayName turns a catalog key into a title ("pigeonpeas" -> "Pigeonpeas").
func displayName(key string) string {
	if key == "" {
		return ""
	}
	return strings.ToUpper(key[:1]) + key[1:]
}
