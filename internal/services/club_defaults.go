package services

import (
	"fmt"

	"github.com/fairwaylabs/caddie-backend/internal/models"
	"github.com/fairwaylabs/caddie-backend/pkg/utils"
)

// ClubCatalog is the standard 15-club bag every profile is seeded with,
// in bag order.
var ClubCatalog = []models.GolfClub{
	{Name: "Driver", Category: models.CategoryWood, SortOrder: 1},
	{Name: "Madera 3", Category: models.CategoryWood, SortOrder: 2},
	{Name: "Madera 5", Category: models.CategoryWood, SortOrder: 3},
	{Name: "Híbrido 3", Category: models.CategoryHybrid, SortOrder: 4},
	{Name: "Híbrido 4", Category: models.CategoryHybrid, SortOrder: 5},
	{Name: "Hierro 4", Category: models.CategoryIron, SortOrder: 6},
	{Name: "Hierro 5", Category: models.CategoryIron, SortOrder: 7},
	{Name: "Hierro 6", Category: models.CategoryIron, SortOrder: 8},
	{Name: "Hierro 7", Category: models.CategoryIron, SortOrder: 9},
	{Name: "Hierro 8", Category: models.CategoryIron, SortOrder: 10},
	{Name: "Hierro 9", Category: models.CategoryIron, SortOrder: 11},
	{Name: "Pitching Wedge", Category: models.CategoryWedge, SortOrder: 12},
	{Name: "Gap Wedge", Category: models.CategoryWedge, SortOrder: 13},
	{Name: "Sand Wedge", Category: models.CategoryWedge, SortOrder: 14},
	{Name: "Lob Wedge", Category: models.CategoryWedge, SortOrder: 15},
}

// defaultDistances holds average carry distances in meters per gender and
// skill level, keyed by club name in catalog order
var defaultDistances = map[models.Gender]map[models.SkillLevel]map[string]float64{
	models.GenderMale: {
		models.SkillBeginner: {
			"Driver": 160, "Madera 3": 145, "Madera 5": 135,
			"Híbrido 3": 130, "Híbrido 4": 120,
			"Hierro 4": 140, "Hierro 5": 130, "Hierro 6": 120,
			"Hierro 7": 110, "Hierro 8": 100, "Hierro 9": 90,
			"Pitching Wedge": 80, "Gap Wedge": 65, "Sand Wedge": 50, "Lob Wedge": 35,
		},
		models.SkillIntermediate: {
			"Driver": 190, "Madera 3": 175, "Madera 5": 165,
			"Híbrido 3": 160, "Híbrido 4": 150,
			"Hierro 4": 170, "Hierro 5": 160, "Hierro 6": 150,
			"Hierro 7": 140, "Hierro 8": 130, "Hierro 9": 120,
			"Pitching Wedge": 110, "Gap Wedge": 95, "Sand Wedge": 80, "Lob Wedge": 65,
		},
		models.SkillAdvanced: {
			"Driver": 230, "Madera 3": 215, "Madera 5": 200,
			"Híbrido 3": 195, "Híbrido 4": 185,
			"Hierro 4": 200, "Hierro 5": 190, "Hierro 6": 180,
			"Hierro 7": 170, "Hierro 8": 160, "Hierro 9": 145,
			"Pitching Wedge": 135, "Gap Wedge": 115, "Sand Wedge": 100, "Lob Wedge": 85,
		},
		models.SkillProfessional: {
			"Driver": 270, "Madera 3": 250, "Madera 5": 235,
			"Híbrido 3": 230, "Híbrido 4": 215,
			"Hierro 4": 225, "Hierro 5": 215, "Hierro 6": 205,
			"Hierro 7": 195, "Hierro 8": 185, "Hierro 9": 170,
			"Pitching Wedge": 155, "Gap Wedge": 135, "Sand Wedge": 120, "Lob Wedge": 105,
		},
	},
	models.GenderFemale: {
		models.SkillBeginner: {
			"Driver": 130, "Madera 3": 120, "Madera 5": 110,
			"Híbrido 3": 105, "Híbrido 4": 95,
			"Hierro 4": 110, "Hierro 5": 100, "Hierro 6": 95,
			"Hierro 7": 85, "Hierro 8": 75, "Hierro 9": 65,
			"Pitching Wedge": 60, "Gap Wedge": 50, "Sand Wedge": 40, "Lob Wedge": 30,
		},
		models.SkillIntermediate: {
			"Driver": 160, "Madera 3": 150, "Madera 5": 140,
			"Híbrido 3": 135, "Híbrido 4": 125,
			"Hierro 4": 140, "Hierro 5": 130, "Hierro 6": 120,
			"Hierro 7": 110, "Hierro 8": 100, "Hierro 9": 90,
			"Pitching Wedge": 85, "Gap Wedge": 75, "Sand Wedge": 65, "Lob Wedge": 55,
		},
		models.SkillAdvanced: {
			"Driver": 190, "Madera 3": 175, "Madera 5": 165,
			"Híbrido 3": 160, "Híbrido 4": 150,
			"Hierro 4": 170, "Hierro 5": 160, "Hierro 6": 150,
			"Hierro 7": 140, "Hierro 8": 130, "Hierro 9": 120,
			"Pitching Wedge": 110, "Gap Wedge": 95, "Sand Wedge": 85, "Lob Wedge": 75,
		},
		models.SkillProfessional: {
			"Driver": 220, "Madera 3": 205, "Madera 5": 195,
			"Híbrido 3": 190, "Híbrido 4": 175,
			"Hierro 4": 195, "Hierro 5": 185, "Hierro 6": 175,
			"Hierro 7": 165, "Hierro 8": 155, "Hierro 9": 145,
			"Pitching Wedge": 130, "Gap Wedge": 115, "Sand Wedge": 105, "Lob Wedge": 95,
		},
	},
}

// DefaultDistances returns the average distance per club name for one
// gender and skill level
func DefaultDistances(gender models.Gender, skill models.SkillLevel) (map[string]float64, error) {
	byLevel, ok := defaultDistances[gender]
	if !ok {
		return nil, fmt.Errorf("%w: unknown gender %q", utils.ErrInvalidInput, gender)
	}
	distances, ok := byLevel[skill]
	if !ok {
		return nil, fmt.Errorf("%w: unknown skill level %q", utils.ErrInvalidInput, skill)
	}
	return distances, nil
}
