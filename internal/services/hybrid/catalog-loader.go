package hybrid

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/LeonardoBeccarini/agrisoil/internal/model/entities"
)

// LoadCatalog reads crop rules from a JSON file. Two layouts are accepted:
//
//	{"rice": {"ph_min": 5, "ph_max": 8, ...}, ...}
//	[{"key": "rice", "ph": {"min": 5, "max": 8}, ...}, ...]
//
// Ranges may be nested objects or flat min/max pairs, numbers may be quoted.
// Object layouts are loaded in key order.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := ParseCatalog(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func ParseCatalog(raw []byte) (*Catalog, error) {
	// read as generic maps so field aliases can be handled
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	var records []map[string]any
	switch t := doc.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			rec, ok := t[k].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("crop %q: expected an object", k)
			}
			if str(rec["key"]) == "" {
				rec["key"] = k
			}
			records = append(records, rec)
		}
	case []any:
		for i, item := range t {
			rec, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("crop #%d: expected an object", i)
			}
			records = append(records, rec)
		}
	default:
		return nil, fmt.Errorf("decode catalog: expected an object or a list")
	}

	rules := make([]entities.CropRule, 0, len(records))
	for _, rec := range records {
		r, err := ruleFromRecord(rec)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return NewCatalog(rules)
}

// ruleFromRecord fails when one of the seven ranges is missing or not
// numeric.
func ruleFromRecord(rec map[string]any) (entities.CropRule, error) {
	r := entities.CropRule{
		Key:             firstNonEmpty(str(rec["key"]), str(rec["crop"])),
		Name:            firstNonEmpty(str(rec["name"]), str(rec["crop_name"])),
		PreferredSoils:  strList(rec["preferred_soils"]),
		AcceptableSoils: strList(rec["acceptable_soils"]),
		NitrogenNeed:    need(rec["nitrogen_need"]),
		PhosphorusNeed:  need(rec["phosphorus_need"]),
		PotassiumNeed:   need(rec["potassium_need"]),
		Description:     str(rec["description"]),
	}
	ranges := []struct {
		dst                    *entities.Range
		nested, minKey, maxKey string
	}{
		{&r.PH, "ph", "ph_min", "ph_max"},
		{&r.PHOptimal, "ph_optimal", "ph_optimal_min", "ph_optimal_max"},
		{&r.Rainfall, "rainfall", "min_rainfall", "max_rainfall"},
		{&r.RainfallOptimal, "rainfall_optimal", "optimal_rainfall_min", "optimal_rainfall_max"},
		{&r.Temperature, "temperature", "min_temperature", "max_temperature"},
		{&r.TemperatureOptimal, "temperature_optimal", "optimal_temp_min", "optimal_temp_max"},
		{&r.Humidity, "humidity", "min_humidity", "max_humidity"},
	}
	for _, rg := range ranges {
		v, ok := rangeOf(rec, rg.nested, rg.minKey, rg.maxKey)
		if !ok {
			return entities.CropRule{}, fmt.Errorf("%w: crop %q: %s range missing or not numeric", ErrInvalidRule, r.Key, rg.nested)
		}
		*rg.dst = v
	}
	return r, nil
}

// rangeOf prefers the nested {"min","max"} object and falls back to flat keys.
func rangeOf(rec map[string]any, nested, minKey, maxKey string) (entities.Range, bool) {
	lo, hi := rec[minKey], rec[maxKey]
	if m, ok := rec[nested].(map[string]any); ok {
		lo, hi = m["min"], m["max"]
	}
	minV, okMin := toF64(lo)
	maxV, okMax := toF64(hi)
	return entities.Range{Min: minV, Max: maxV}, okMin && okMax
}

// need parses "HIGH", "high", "Medium"... Missing values default to Moderate.
func need(v any) entities.NutrientLevel {
	switch strings.ToLower(str(v)) {
	case "low":
		return entities.NutrientLow
	case "high":
		return entities.NutrientHigh
	case "", "moderate", "medium":
		return entities.NutrientModerate
	default:
		return entities.NutrientLevel(str(v))
	}
}

func strList(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, x := range t {
			if s := str(x); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, s := range strings.Split(t, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// toF64 converts numbers and numeric strings ("6,5" included) to float64.
func toF64(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		if f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(t), ",", "."), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
