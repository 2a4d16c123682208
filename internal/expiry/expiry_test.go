package expiry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShelfLifeDays(t *testing.T) {
	tests := []struct {
		category string
		want     int
	}{
		{"vegetable", 7},
		{"Fruit", 5},
		{" MEAT ", 3},
		{"fish", 2},
		{"dairy", 5},
		{"채소", 7},
		{"야채", 7},
		{"과일", 5},
		{"고기", 3},
		{"생선", 2},
		{"유제품", 5},
		{"", 7},
		{"spaceship", 7},
	}
	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			assert.Equal(t, tt.want, ShelfLifeDays(tt.category))
		})
	}
}

func TestNormalizeCategory(t *testing.T) {
	assert.Equal(t, "vegetable", NormalizeCategory("채소"))
	assert.Equal(t, "meat", NormalizeCategory("Meat"))
	assert.Equal(t, CategoryOther, NormalizeCategory("unknown"))
}

func TestExpectedExpiry(t *testing.T) {
	registered := time.Date(2024, 2, 27, 18, 30, 0, 0, time.UTC)

	got := ExpectedExpiry("meat", registered)

	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestStatus(t *testing.T) {
	expiry := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"well before", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), StatusFresh},
		{"three days left", time.Date(2024, 3, 7, 23, 0, 0, 0, time.UTC), StatusFresh},
		{"two days left", time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), StatusWarning},
		{"expiry day", time.Date(2024, 3, 10, 22, 0, 0, 0, time.UTC), StatusWarning},
		{"day after", time.Date(2024, 3, 11, 0, 0, 1, 0, time.UTC), StatusExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(expiry, tt.now))
		})
	}
}

func TestEvaluate(t *testing.T) {
	registered := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)

	info := Evaluate("과일", registered, now)

	assert.Equal(t, Info{
		Category:       "fruit",
		ShelfLifeDays:  5,
		RegisteredAt:   "2024-03-01",
		ExpectedExpiry: "2024-03-06",
		DaysLeft:       1,
		Status:         StatusWarning,
	}, info)
}
