// Package expiry estimates ingredient expiry dates from typical shelf life per category.
package expiry

import (
	"strings"
	"time"
)

// Expiry statuses.
const (
	StatusFresh   = "fresh"
	StatusWarning = "warning"
	StatusExpired = "expired"
)

// WarningWindowDays is how many days before expiry an ingredient is reported as "warning".
const WarningWindowDays = 2

// CategoryOther is used for unknown or empty categories.
const CategoryOther = "etc"

var shelfLifeDays = map[string]int{
	"vegetable":   7,
	"fruit":       5,
	"meat":        3,
	"fish":        2,
	"dairy":       5,
	CategoryOther: 7,
}

// Korean category names accepted by NormalizeCategory.
var categoryAliases = map[string]string{
	"채소":  "vegetable",
	"야채":  "vegetable",
	"과일":  "fruit",
	"육류":  "meat",
	"고기":  "meat",
	"생선":  "fish",
	"해산물": "fish",
	"유제품": "dairy",
	"기타":  CategoryOther,
}

// Info is the expiry estimate for one ingredient. Dates are formatted as YYYY-MM-DD.
type Info struct {
	Category       string `json:"category"`
	ShelfLifeDays  int    `json:"shelf_life_days"`
	RegisteredAt   string `json:"registered_at"`
	ExpectedExpiry string `json:"expected_expiry"`
	DaysLeft       int    `json:"days_left"`
	Status         string `json:"status"`
}

// NormalizeCategory maps a category (English, case-insensitive, or Korean) to a known key,
// returning CategoryOther for anything unknown.
func NormalizeCategory(category string) string {
	key := strings.ToLower(strings.TrimSpace(category))
	if alias, ok := categoryAliases[key]; ok {
		key = alias
	}

	if _, ok := shelfLifeDays[key]; !ok {
		return CategoryOther
	}

	return key
}

// ShelfLifeDays returns the typical shelf life in days for a category.
func ShelfLifeDays(category string) int {
	return shelfLifeDays[NormalizeCategory(category)]
}

// ExpectedExpiry returns the expiry date (UTC midnight) of an ingredient registered at registeredAt.
func ExpectedExpiry(category string, registeredAt time.Time) time.Time {
	return day(registeredAt).AddDate(0, 0, ShelfLifeDays(category))
}

// DaysLeft returns the number of calendar days from now until expiry (negative once expired).
func DaysLeft(expiry, now time.Time) int {
	return int(day(expiry).Sub(day(now)).Hours() / 24)
}

// Status classifies an expiry date relative to now.
func Status(expiry, now time.Time) string {
	switch left := DaysLeft(expiry, now); {
	case left < 0:
		return StatusExpired
	case left <= WarningWindowDays:
		return StatusWarning
	default:
		return StatusFresh
	}
}

// Evaluate builds the full expiry estimate for an ingredient.
func Evaluate(category string, registeredAt, now time.Time) Info {
	exp := ExpectedExpiry(category, registeredAt)

	return Info{
		Category:       NormalizeCategory(category),
		ShelfLifeDays:  ShelfLifeDays(category),
		RegisteredAt:   day(registeredAt).Format(time.DateOnly),
		ExpectedExpiry: exp.Format(time.DateOnly),
		DaysLeft:       DaysLeft(exp, now),
		Status:         Status(exp, now),
	}
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
