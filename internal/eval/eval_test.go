package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poi-conflation/internal/records"
)

func scoreFor(r Report, attr records.Attribute) AttributeScore {
	for _, s := range r.Scores {
		if s.Attribute == attr {
			return s
		}
	}
	return AttributeScore{}
}

func TestEvaluateExactAndFuzzyMatches(t *testing.T) {
	places := []records.ConflatedPlace{
		{PlaceID: "P_1", BestName: "Joe's Pizza", BestAddress: "123 main st"},
		{PlaceID: "P_2", BestName: "joes pizza restaurant", BestAddress: "999 other rd"},
		{PlaceID: "P_3", BestName: "completely different"},
	}
	truth := []records.GroundTruth{
		{PlaceID: "P_1", Name: "joe's pizza", Address: "123 main st"},
		{PlaceID: "P_2", Name: "joes pizza restaurant!", Address: "1 unrelated way"},
		{PlaceID: "P_3", Name: "joe's pizza"},
	}

	report := Evaluate(places, truth)

	name := scoreFor(report, records.AttrName)
	assert.Equal(t, 3, name.Compared)
	assert.Equal(t, 2, name.Correct, "punctuation differences normalize away; unrelated names do not")

	addr := scoreFor(report, records.AttrAddress)
	assert.Equal(t, 2, addr.Compared)
	assert.Equal(t, 1, addr.Correct)
}

func TestEvaluateBlanksExcludedFromDenominator(t *testing.T) {
	places := []records.ConflatedPlace{
		{PlaceID: "P_1", BestName: "joe's pizza", BestPhone: ""},
	}
	truth := []records.GroundTruth{
		{PlaceID: "P_1", Name: "joe's pizza", Phone: "5551234567"},
	}

	report := Evaluate(places, truth)
	phone := scoreFor(report, records.AttrPhone)
	assert.Equal(t, 0, phone.Compared, "a blank prediction is not a wrong prediction")
	assert.Equal(t, float64(0), phone.Accuracy())
}

func TestEvaluateFieldNormalization(t *testing.T) {
	places := []records.ConflatedPlace{
		{
			PlaceID:     "P_1",
			BestName:    "n",
			BestPhone:   "+1 (555) 123-4567",
			BestWebsite: "https://www.joespizza.com/menu",
		},
	}
	truth := []records.GroundTruth{
		{
			PlaceID: "P_1",
			Name:    "n",
			Phone:   "5551234567",
			Website: "joespizza.com",
		},
	}

	report := Evaluate(places, truth)
	assert.Equal(t, 1, scoreFor(report, records.AttrPhone).Correct, "phones compare by digit suffix")
	assert.Equal(t, 1, scoreFor(report, records.AttrWebsite).Correct, "websites compare by bare domain")
}

func TestEvaluateUnknownPlaceIgnored(t *testing.T) {
	places := []records.ConflatedPlace{
		{PlaceID: "P_unknown", BestName: "anything"},
	}
	report := Evaluate(places, nil)
	require.Len(t, report.Scores, len(records.AllAttributes))
	for _, s := range report.Scores {
		assert.Equal(t, 0, s.Compared)
	}
	assert.Equal(t, float64(0), report.Overall)
}
