package models

import "strings"

// Category classifies a subscription for grouping and overlap detection.
type Category string

// Categories.
const (
	CategoryOTT          Category = "OTT"
	CategoryMusic        Category = "Music"
	CategoryProductivity Category = "Productivity"
	CategoryGaming       Category = "Gaming"
	CategoryNews         Category = "News"
	CategoryFitness      Category = "Fitness"
	CategoryCloud        Category = "Cloud"
	CategoryEducation    Category = "Education"
	CategorySoftware     Category = "Software"
	CategoryOther        Category = "Other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryOTT,
	CategoryMusic,
	CategoryProductivity,
	CategoryGaming,
	CategoryNews,
	CategoryFitness,
	CategoryCloud,
	CategoryEducation,
	CategorySoftware,
	CategoryOther,
}

var categoryIcons = map[Category]string{
	CategoryOTT:          "📺",
	CategoryMusic:        "🎵",
	CategoryProductivity: "⚡",
	CategoryGaming:       "🎮",
	CategoryNews:         "📰",
	CategoryFitness:      "🏋️",
	CategoryCloud:        "☁️",
	CategoryEducation:    "🎓",
	CategorySoftware:     "💻",
	CategoryOther:        "📦",
}

// ParseCategory matches a category name case-insensitively.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categoryIcons[c]
	return ok
}

// Icon returns the category emoji, falling back to the Other icon.
func (c Category) Icon() string {
	if icon, ok := categoryIcons[c]; ok {
		return icon
	}
	return categoryIcons[CategoryOther]
}

// CategoryNames returns the category names as strings.
func CategoryNames() []string {
	names := make([]string, len(Categories))
	for i, c := range Categories {
		names[i] = string(c)
	}
	return names
}
