package hybrid

import (
	"sync"

	"github.com/LeonardoBeccarini/agrisoil/internal/model/entities"
)

const (
	low      = entities.NutrientLow
	moderate = entities.NutrientModerate
	high     = entities.NutrientHigh
)

func rng(lo, hi float64) entities.Range { return entities.Range{Min: lo, Max: hi} }

var defaultCatalog = sync.OnceValue(func() *Catalog { return MustCatalog(defaultRules()) })

// DefaultCatalog is the built-in rule table, shared by every caller.
func DefaultCatalog() *Catalog { return defaultCatalog() }

func defaultRules() []entities.CropRule {
	return []entities.CropRule{
		{
			Key:                "rice",
			Name:               "Rice",
			PH:                 rng(5, 8),
			PHOptimal:          rng(5.5, 6.5),
			PreferredSoils:     []string{"Clayey", "Loamy", "Riverine Alluvial", "Coastal Alluvial"},
			AcceptableSoils:    []string{"Silty", "Black Cotton"},
			Rainfall:           rng(150, 300),
			RainfallOptimal:    rng(180, 250),
			Temperature:        rng(20, 40),
			TemperatureOptimal: rng(22, 32),
			Humidity:           rng(70, 100),
			NitrogenNeed:       high,
			PhosphorusNeed:     moderate,
			PotassiumNeed:      moderate,
			Description:        "Paddy crop requiring flooded conditions and high water availability",
		},
		{
			Key:                "wheat",
			Name:               "Wheat",
			PH:                 rng(5.5, 8),
			PHOptimal:          rng(6, 7),
			PreferredSoils:     []string{"Loamy", "Clayey"},
			AcceptableSoils:    []string{"Silty"},
			Rainfall:           rng(50, 150),
			RainfallOptimal:    rng(75, 100),
			Temperature:        rng(10, 30),
			TemperatureOptimal: rng(12, 25),
			Humidity:           rng(50, 85),
			NitrogenNeed:       high,
			PhosphorusNeed:     moderate,
			PotassiumNeed:      low,
			Description:        "Major cereal crop preferring cool and dry conditions",
		},
		{
			Key:                "maize",
			Name:               "Maize",
			PH:                 rng(5.5, 8),
			PHOptimal:          rng(5.8, 7),
			PreferredSoils:     []string{"Loamy", "Sandy"},
			AcceptableSoils:    []string{"Clayey", "Silty"},
			Rainfall:           rng(60, 120),
			RainfallOptimal:    rng(80, 110),
			Temperature:        rng(18, 35),
			TemperatureOptimal: rng(21, 30),
			Humidity:           rng(50, 80),
			NitrogenNeed:       high,
			PhosphorusNeed:     moderate,
			PotassiumNeed:      moderate,
			Description:        "Versatile grain crop adaptable to various conditions",
		},
		{
			Key:                "cotton",
			Name:               "Cotton",
			PH:                 rng(5.5, 8.5),
			PHOptimal:          rng(6, 7.5),
			PreferredSoils:     []string{"Clayey", "Loamy"},
			AcceptableSoils:    []string{"Silty"},
			Rainfall:           rng(50, 150),
			RainfallOptimal:    rng(80, 120),
			Temperature:        rng(20, 40),
			TemperatureOptimal: rng(25, 35),
			Humidity:           rng(40, 70),
			NitrogenNeed:       high,
			PhosphorusNeed:     moderate,
			PotassiumNeed:      high,
			Description:        "Fiber crop requiring warm temperatures and moderate water",
		},
		{
			Key:                "jute",
			Name:               "Jute",
			PH:                 rng(5, 8),
			PHOptimal:          rng(6, 7),
			PreferredSoils:     []string{"Loamy", "Clayey"},
			AcceptableSoils:    []string{"Silty"},
			Rainfall:           rng(150, 250),
			RainfallOptimal:    rng(170, 230),
			Temperature:        rng(25, 38),
			TemperatureOptimal: rng(27, 35),
			Humidity:           rng(70, 90),
			NitrogenNeed:       high,
			PhosphorusNeed:     moderate,
			PotassiumNeed:      moderate,
			Description:        "Fiber crop requiring warm and humid conditions",
		},
		{
			Key:                "coffee",
			Name:               "Coffee",
			PH:                 rng(4.5, 6.5),
			PHOptimal:          rng(5, 6),
			PreferredSoils:     []string{"Loamy", "Forest Loam", "Red Loam", "Laterite"},
			AcceptableSoils:    []string{"Clayey", "Silty", "Brown Hydromorphic"},
			Rainfall:           rng(150, 300),
			RainfallOptimal:    rng(180, 250),
			Temperature:        rng(15, 30),
			TemperatureOptimal: rng(18, 25),
			Humidity:           rng(60, 90),
			NitrogenNeed:       moderate,
			PhosphorusNeed:     moderate,
			PotassiumNeed:      high,
			Description:        "Plantation crop preferring shade and consistent moisture",
		},
		{
			Key:                "banana",
			Name:               "Banana",
			PH:                 rng(5.5, 7.5),
			PHOptimal:          rng(6, 7),
			PreferredSoils:     []string{"Loamy", "Riverine Alluvial", "Coastal Alluvial"},
			AcceptableSoils:    []string{"Clayey", "Silty", "Red Loam", "Laterite"},
			Rainfall:           rng(100, 250),
			RainfallOptimal:    rng(150, 200),
			Temperature:        rng(20, 35),
			TemperatureOptimal: rng(25, 32),
			Humidity:           rng(70, 90),
			NitrogenNeed:       high,
			PhosphorusNeed:     moderate,
			PotassiumNeed:      high,
			Description:        "Tropical fruit requiring consistent warmth and moisture",
		},
		{
			Key:                "mango",
			Name:               "Mango",
			PH:                 rng(5.5, 7.5),
			PHOptimal:          rng(6, 7),
			PreferredSoils:     []string{"Loamy", "Sandy", "Red Loam", "Laterite"},
			AcceptableSoils:    []string{"Clayey", "Forest Loam", "Brown Hydromorphic"},
			Rainfall:           rng(75, 250),
			RainfallOptimal:    rng(100, 200),
			Temperature:        rng(21, 45),
			TemperatureOptimal: rng(24, 35),
			Humidity:           rng(40, 80),
			NitrogenNeed:       moderate,
			PhosphorusNeed:     low,
			PotassiumNeed:      moderate,
			Description:        "Tropical fruit tree requiring hot temperatures and seasonal rains",
		},
		{
			Key:                "apple",
			Name:               "Apple",
			PH:                 rng(5.5, 7),
			PHOptimal:          rng(6, 6.8),
			PreferredSoils:     []string{"Loamy"},
			AcceptableSoils:    []string{"Sandy", "Silty"},
			Rainfall:           rng(100, 200),
			RainfallOptimal:    rng(125, 175),
			Temperature:        rng(8, 28),
			TemperatureOptimal: rng(10, 22),
			Humidity:           rng(50, 80),
			NitrogenNeed:       moderate,
			PhosphorusNeed:     low,
			PotassiumNeed:      moderate,
			Description:        "Temperate fruit requiring cold winters for dormancy",
		},
		{
			Key:                "grapes",
			Name:               "Grapes",
			PH:                 rng(5.5, 8),
			PHOptimal:          rng(6, 7),
			PreferredSoils:     []string{"Loamy", "Sandy"},
			AcceptableSoils:    []string{"Clayey"},
			Rainfall:           rng(50, 150),
			RainfallOptimal:    rng(75, 100),
			Temperature:        rng(15, 40),
			TemperatureOptimal: rng(20, 35),
			Humidity:           rng(40, 70),
			NitrogenNeed:       moderate,
			PhosphorusNeed:     low,
			PotassiumNeed:      high,
			Description:        "Vine fruit preferring warm, dry conditions",
		},
		{
			Key:                "orange",
			Name:               "Orange",
			PH:                 rng(5, 8),
			PHOptimal:          rng(5.5, 7),
			PreferredSoils:     []string{"Loamy", "Sandy"},
			AcceptableSoils:    []string{"Clayey"},
			Rainfall:           rng(100, 200),
			RainfallOptimal:    rng(120, 180),
			Temperature:        rng(13, 38),
			TemperatureOptimal: rng(20, 30),
			Humidity:           rng(50, 80),
			NitrogenNeed:       moderate,
			PhosphorusNeed:     moderate,
			PotassiumNeed:      moderate,
			Description:        "Citrus fruit requiring subtropical climate",
		},
		{
			Key:                "papaya",
			Name:               "Papaya",
			PH:                 rng(5.5, 7.5),
			PHOptimal:          rng(6, 7),
			PreferredSoils:     []string{"Loamy", "Sandy"},
			AcceptableSoils:    []string{"Silty"},
			Rainfall:           rng(100, 250),
			RainfallOptimal:    rng(150, 200),
			Temperature:        rng(20, 38),
			TemperatureOptimal: rng(25, 32),
			Humidity:           rng(60, 85),
			NitrogenNeed:       high,
			PhosphorusNeed:     moderate,
			PotassiumNeed:      high,
			Description:        "Tropical fruit requiring warm temperatures year-round",
		},
		{
			Key:                "coconut",
			Name:               "Coconut",
			PH:                 rng(5, 8),
			PHOptimal:          rng(5.5, 7),
			PreferredSoils:     []string{"Sandy", "Loamy", "Coastal Alluvial", "Laterite", "Red Loam"},
			AcceptableSoils:    []string{"Clayey", "Riverine Alluvial"},
			Rainfall:           rng(150, 300),
			RainfallOptimal:    rng(180, 250),
			Temperature:        rng(20, 35),
			TemperatureOptimal: rng(25, 32),
			Humidity:           rng(70, 95),
			NitrogenNeed:       moderate,
			PhosphorusNeed:     low,
			PotassiumNeed:      high,
			Description:        "Coastal palm preferring sandy soils and high humidity",
		},
		{
			Key:                "chickpea",
			Name:               "Chickpea",
			PH:                 rng(5.5, 8.5),
			PHOptimal:          rng(6, 7.5),
			PreferredSoils:     []string{"Loamy", "Clayey"},
			AcceptableSoils:    []string{"Sandy", "Silty"},
			Rainfall:           rng(40, 100),
			RainfallOptimal:    rng(60, 80),
			Temperature:        rng(10, 30),
			TemperatureOptimal: rng(15, 25),
			Humidity:           rng(40, 70),
			NitrogenNeed:       low,
			PhosphorusNeed:     moderate,
			PotassiumNeed:      low,
			Description:        "Pulse crop that fixes nitrogen, prefers cool and dry conditions",
		},
		{
			Key:                "lentil",
			Name:               "Lentil",
			PH:                 rng(5.5, 8),
			PHOptimal:          rng(6, 7),
			PreferredSoils:     []string{"Loamy", "Sandy"},
			AcceptableSoils:    []string{"Clayey", "Silty"},
			Rainfall:           rng(25, 100),
			RainfallOptimal:    rng(40, 75),
			Temperature:        rng(10, 30),
			TemperatureOptimal: rng(15, 25),
			Humidity:           rng(30, 70),
			NitrogenNeed:       low,
			PhosphorusNeed:     moderate,
			PotassiumNeed:      low,
			Description:        "Pulse crop tolerant to dry conditions",
		},
		{
			Key:                "pigeonpeas",
			Name:               "Pigeonpeas",
			PH:                 rng(5, 8),
			PHOptimal:          rng(5.5, 7),
			PreferredSoils:     []string{"Loamy", "Sandy"},
			AcceptableSoils:    []string{"Clayey"},
			Rainfall:           rng(60, 150),
			RainfallOptimal:    rng(80, 120),
			Temperature:        rng(18, 35),
			TemperatureOptimal: rng(22, 30),
			Humidity:           rng(40, 80),
			NitrogenNeed:       low,
			PhosphorusNeed:     moderate,
			PotassiumNeed:      low,
			Description:        "Drought-tolerant legume for semi-arid regions",
		},
		{
			Key:                "mothbeans",
			Name:               "Mothbeans",
			PH:                 rng(5, 8.5),
			PHOptimal:          rng(6, 7.5),
			PreferredSoils:     []string{"Sandy", "Loamy"},
			AcceptableSoils:    []string{"Clayey"},
			Rainfall:           rng(25, 75),
			RainfallOptimal:    rng(35, 60),
			Temperature:        rng(24, 40),
			TemperatureOptimal: rng(28, 35),
			Humidity:           rng(30, 60),
			NitrogenNeed:       low,
			PhosphorusNeed:     low,
			PotassiumNeed:      low,
			Description:        "Highly drought-tolerant legume for arid regions",
		},
		{
			Key:                "mungbean",
			Name:               "Mungbean",
			PH:                 rng(5.5, 8),
			PHOptimal:          rng(6, 7),
			PreferredSoils:     []string{"Loamy", "Sandy"},
			AcceptableSoils:    []string{"Clayey"},
			Rainfall:           rng(50, 100),
			RainfallOptimal:    rng(60, 85),
			Temperature:        rng(20, 38),
			TemperatureOptimal: rng(25, 32),
			Humidity:           rng(50, 80),
			NitrogenNeed:       low,
			PhosphorusNeed:     moderate,
			PotassiumNeed:      low,
			Description:        "Fast-growing pulse crop for warm conditions",
		},
		{
			Key:                "blackgram",
			Name:               "Blackgram",
			PH:                 rng(5.5, 8),
			PHOptimal:          rng(6, 7),
			PreferredSoils:     []string{"Loamy", "Clayey"},
			AcceptableSoils:    []string{"Sandy", "Silty"},
			Rainfall:           rng(60, 120),
			RainfallOptimal:    rng(75, 100),
			Temperature:        rng(25, 38),
			TemperatureOptimal: rng(27, 33),
			Humidity:           rng(60, 85),
			NitrogenNeed:       low,
			PhosphorusNeed:     moderate,
			PotassiumNeed:      low,
			Description:        "Legume crop preferring warm and humid conditions",
		},
		{
			Key:                "kidneybeans",
			Name:               "Kidneybeans",
			PH:                 rng(5.5, 7.5),
			PHOptimal:          rng(6, 7),
			PreferredSoils:     []string{"Loamy"},
			AcceptableSoils:    []string{"Clayey", "Sandy"},
			Rainfall:           rng(60, 150),
			RainfallOptimal:    rng(80, 120),
			Temperature:        rng(15, 30),
			TemperatureOptimal: rng(18, 25),
			Humidity:           rng(50, 80),
			NitrogenNeed:       low,
			PhosphorusNeed:     high,
			PotassiumNeed:      moderate,
			Description:        "Bean crop preferring moderate temperatures",
		},
		{
			Key:                "pomegranate",
			Name:               "Pomegranate",
			PH:                 rng(5.5, 8),
			PHOptimal:          rng(6, 7.5),
			PreferredSoils:     []string{"Loamy", "Sandy"},
			AcceptableSoils:    []string{"Clayey"},
			Rainfall:           rng(50, 150),
			RainfallOptimal:    rng(75, 120),
			Temperature:        rng(18, 40),
			TemperatureOptimal: rng(22, 35),
			Humidity:           rng(35, 70),
			NitrogenNeed:       moderate,
			PhosphorusNeed:     low,
			PotassiumNeed:      moderate,
			Description:        "Drought-tolerant fruit tree for semi-arid regions",
		},
		{
			Key:                "watermelon",
			Name:               "Watermelon",
			PH:                 rng(5.5, 7.5),
			PHOptimal:          rng(6, 7),
			PreferredSoils:     []string{"Sandy", "Loamy"},
			AcceptableSoils:    []string{"Silty"},
			Rainfall:           rng(40, 80),
			RainfallOptimal:    rng(50, 70),
			Temperature:        rng(22, 38),
			TemperatureOptimal: rng(25, 32),
			Humidity:           rng(50, 80),
			NitrogenNeed:       moderate,
			PhosphorusNeed:     moderate,
			PotassiumNeed:      high,
			Description:        "Vine fruit requiring warm temperatures and sandy soil",
		},
		{
			Key:                "muskmelon",
			Name:               "Muskmelon",
			PH:                 rng(5.5, 7.5),
			PHOptimal:          rng(6, 6.8),
			PreferredSoils:     []string{"Sandy", "Loamy"},
			AcceptableSoils:    []string{"Silty"},
			Rainfall:           rng(35, 75),
			RainfallOptimal:    rng(45, 65),
			Temperature:        rng(20, 38),
			TemperatureOptimal: rng(24, 32),
			Humidity:           rng(45, 75),
			NitrogenNeed:       moderate,
			PhosphorusNeed:     moderate,
			PotassiumNeed:      high,
			Description:        "Melon preferring warm, dry conditions",
		},
	}
}
