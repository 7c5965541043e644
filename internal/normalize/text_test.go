package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases", "Joe's Pizza", "joe's pizza"},
		{"collapses whitespace", "  Joe's   Pizza \t Shop ", "joe's pizza shop"},
		{"folds accents", "Café München", "cafe munchen"},
		{"empty", "", ""},
		{"blank", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanText(tt.input))
		})
	}
}

func TestDigitsSuffix(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"formatted us number", "(555) 123-4567", "5551234567"},
		{"country code stripped", "+1 555 123 4567", "5551234567"},
		{"exactly ten digits", "5551234567", "5551234567"},
		{"too few digits", "123-4567", ""},
		{"empty", "", ""},
		{"no digits", "call us", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DigitsSuffix(tt.input))
		})
	}
}

func TestDomain(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"full url", "https://www.example.com/menu", "example.com"},
		{"http no www", "http://example.com", "example.com"},
		{"bare host", "example.com", "example.com"},
		{"uppercase", "HTTPS://WWW.Example.COM/About", "example.com"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Domain(tt.input))
		})
	}
}

func TestSplitCategories(t *testing.T) {
	assert.Equal(t, []string{"pizza", "italian"}, SplitCategories("Pizza, Italian"))
	assert.Equal(t, []string{"pizza"}, SplitCategories("Pizza, pizza,  PIZZA "))
	assert.Nil(t, SplitCategories(""))
	assert.Nil(t, SplitCategories("  ,  , "))
}

func TestTokenCount(t *testing.T) {
	assert.Equal(t, 3, TokenCount("joe's pizza shop"))
	assert.Equal(t, 0, TokenCount(""))
	assert.Equal(t, 1, TokenCount("  pizza  "))
}

func TestAlnumCollapse(t *testing.T) {
	assert.Equal(t, "joe s pizza 2", AlnumCollapse("Joe's  Pizza #2!"))
	assert.Equal(t, "", AlnumCollapse("--!!--"))
}
