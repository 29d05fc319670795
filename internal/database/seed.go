package database

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
)

// SeedResult 记录每张目录表插入的行数。
type SeedResult struct {
	Packages int
	Addons   int
	Venues   int
	Images   int
}

// SeedCatalog 在目录表为空时写入示例数据，已有数据的表保持不变。
func SeedCatalog(ctx context.Context, db *gorm.DB) (SeedResult, error) {
	var result SeedResult

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := seedIfEmpty(tx, &WeddingPackage{}, samplePackages())
		if err != nil {
			return fmt.Errorf("seed packages: %w", err)
		}
		result.Packages = n

		if n, err = seedIfEmpty(tx, &WeddingAddon{}, sampleAddons()); err != nil {
			return fmt.Errorf("seed addons: %w", err)
		}
		result.Addons = n

		if n, err = seedIfEmpty(tx, &Venue{}, sampleVenues()); err != nil {
			return fmt.Errorf("seed venues: %w", err)
		}
		result.Venues = n

		if n, err = seedIfEmpty(tx, &PortfolioImage{}, sampleImages()); err != nil {
			return fmt.Errorf("seed images: %w", err)
		}
		result.Images = n
		return nil
	})
	return result, err
}

func seedIfEmpty[T any](tx *gorm.DB, model *T, rows []T) (int, error) {
	var count int64
	if err := tx.Model(model).Count(&count).Error; err != nil {
		return 0, err
	}
	if count > 0 || len(rows) == 0 {
		return 0, nil
	}
	if err := tx.Create(&rows).Error; err != nil {
		return 0, err
	}
	return len(rows), nil
}

func featureList(items ...string) string {
	data, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func samplePackages() []WeddingPackage {
	return []WeddingPackage{
		{
			Name:        "Essentials",
			Description: "Ceremony and highlights coverage for intimate weddings.",
			Price:       250000,
			Duration:    "6 hours",
			Features:    featureList("One cinematographer", "4-5 minute highlight film", "Full ceremony edit"),
			SortOrder:   1,
		},
		{
			Name:        "Signature",
			Description: "Full-day coverage with two shooters and a feature film.",
			Price:       420000,
			Duration:    "10 hours",
			Features:    featureList("Two cinematographers", "12-15 minute feature film", "Drone coverage", "Speeches edit"),
			SortOrder:   2,
		},
		{
			Name:        "Heirloom",
			Description: "Weekend coverage including rehearsal dinner.",
			Price:       650000,
			Duration:    "2 days",
			Features:    featureList("Two cinematographers", "Documentary edit", "Rehearsal dinner coverage", "Raw footage"),
			SortOrder:   3,
		},
	}
}

func sampleAddons() []WeddingAddon {
	return []WeddingAddon{
		{Name: "Super 8 film", Description: "Hand-processed Super 8 reel.", Category: "film", Price: 95000},
		{Name: "16mm film", Description: "16mm ceremony coverage.", Category: "film", Price: 180000},
		{Name: "Same-day edit", Description: "Short edit screened at the reception.", Category: "editing", Price: 120000},
		{Name: "Extra hour", Description: "One additional hour of coverage.", Category: "coverage", Price: 35000},
		{Name: "Livestream", Description: "Ceremony livestream for remote guests.", Category: "coverage", Price: 60000},
	}
}

func sampleVenues() []Venue {
	return []Venue{
		{Name: "Harbor House", City: "Portland", State: "ME", Description: "Waterfront hall with a garden terrace."},
		{Name: "Stone Barn Estate", City: "Burlington", State: "VT", Description: "Restored 1890s barn."},
		{Name: "The Glasshouse", City: "Providence", State: "RI", Description: "Conservatory with city views."},
	}
}

func sampleImages() []PortfolioImage {
	return []PortfolioImage{
		{Title: "First look at Harbor House", Category: "wedding", URL: "/images/portfolio/harbor-first-look.jpg", SortOrder: 1},
		{Title: "Vows in the barn", Category: "wedding", URL: "/images/portfolio/barn-vows.jpg", SortOrder: 2},
		{Title: "Brand film for a coffee roaster", Category: "commercial", URL: "/images/portfolio/roaster.jpg", SortOrder: 3},
		{Title: "Documentary stills", Category: "documentary", URL: "/images/portfolio/doc-stills.jpg", SortOrder: 4},
	}
}
