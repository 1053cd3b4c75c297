package standardize

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaritalStatus(t *testing.T) {
	table := Default().MaritalStatus()

	tests := map[string]string{
		"m":        "Married",
		"M":        "Married",
		" M ":      "Married",
		"s":        "Single",
		"S":        "Single",
		"":         "N/A",
		"X":        "N/A",
		"  single": "Single",
	}
	for in, want := range tests {
		assert.Equal(t, want, table.Map(in), "input %q", in)
	}
	assert.Equal(t, "N/A", table.MapNull(sql.NullString{}))
}

func TestGenderCRM(t *testing.T) {
	table := Default().GenderCRM()

	for _, in := range []string{"F", "Female", "f"} {
		assert.Equal(t, "Female", table.Map(in), in)
	}
	for _, in := range []string{"M", "MALE"} {
		assert.Equal(t, "Male", table.Map(in), in)
	}
	for _, in := range []string{"", "U", "unknown"} {
		assert.Equal(t, "N/A", table.Map(in), in)
	}
	assert.Equal(t, "N/A", table.MapNull(sql.NullString{}))
}

func TestGenderERP(t *testing.T) {
	table := Default().GenderERP()
	assert.Equal(t, "Female", table.Map(" female "))
	assert.Equal(t, "Male", table.Map("M"))
	assert.Equal(t, "N/A", table.Map(" "))
}

func TestProductLine(t *testing.T) {
	table := Default().ProductLine()

	tests := map[string]string{
		"M":  "Mountain",
		"r ": "Road",
		"S":  "Other Sales",
		"t":  "Touring",
		"":   "N/A",
		"Z":  "N/A",
	}
	for in, want := range tests {
		assert.Equal(t, want, table.Map(in), "input %q", in)
	}
}

func TestCountryPassThrough(t *testing.T) {
	table := Default().Country()

	tests := map[string]string{
		"DE":          "Germany",
		"US":          "United States",
		"USA":         "United States",
		"":            "N/A",
		"   ":         "N/A",
		"Australia":   "Australia",
		" Australia ": "Australia",
		"Germany":     "Germany",
	}
	for in, want := range tests {
		assert.Equal(t, want, table.Map(in), "input %q", in)
	}
	assert.Equal(t, "N/A", table.MapNull(sql.NullString{}))
	assert.Equal(t, "Germany", table.MapNull(sql.NullString{String: "de", Valid: true}))
}

func TestNewWithAliases(t *testing.T) {
	s, err := New(map[string]map[string]string{
		Country:       {"uk": "United Kingdom"},
		MaritalStatus: {"D": "Divorced"},
	})
	require.NoError(t, err)

	assert.Equal(t, "United Kingdom", s.Country().Map("UK"))
	assert.Equal(t, "Divorced", s.MaritalStatus().Map("d"))
	assert.Contains(t, s.MaritalStatus().Labels(), "Divorced")

	// Built-in tables are not shared between standardizers.
	assert.Equal(t, "N/A", Default().MaritalStatus().Map("D"))
}

func TestNewRejectsUnknownTable(t *testing.T) {
	_, err := New(map[string]map[string]string{"shoe_size": {"9": "Nine"}})
	assert.Error(t, err)
}

func TestLabelsAndCodes(t *testing.T) {
	s := Default()
	assert.Equal(t, []string{"Mountain", "N/A", "Other Sales", "Road", "Touring"}, s.ProductLine().Labels())
	assert.Equal(t, []string{"M", "R", "S", "T"}, s.ProductLine().Codes())
	assert.Equal(t, []string{Country, GenderCRM, GenderERP, MaritalStatus, ProductLine}, s.Names())
	assert.Nil(t, s.Table("missing"))
}
