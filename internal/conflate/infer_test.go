package conflate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poi-conflation/internal/records"
)

func TestInferWithoutModelsMatchesRules(t *testing.T) {
	lookup := testLookup(
		records.SourceRecord{ID: "a1", Source: records.SourceYelp, Name: "yelp name", Address: "1 main st", Phone: "1112223333"},
		records.SourceRecord{ID: "omf1", Source: records.SourceOMF, Name: "omf name", Website: "https://place.example"},
	)
	triplets := []records.TripletRow{tripletWithLegs("P_1", "a1", 90, 0, "omf1", "")}

	rules := NewRuleConflator(nil, testBlockedDomains)
	inf := NewInferencer(nil, t.TempDir(), rules)
	require.NoError(t, inf.LoadModels(), "a model directory with no artifacts is not an error")

	assert.Equal(t, rules.Run(triplets, lookup), inf.Run(triplets, lookup),
		"with no models every attribute uses the rule-based selection")
}

func TestInferUsesTrainedModel(t *testing.T) {
	triplets, lookup, truth := trainingFixture(20)

	dir := t.TempDir()
	model, _, err := newTestTrainer().Train(records.AttrName, triplets, lookup, truth)
	require.NoError(t, err)
	require.NoError(t, SaveModel(ModelPath(dir, records.AttrName), model))

	inf := NewInferencer(nil, dir, NewRuleConflator(nil, nil))
	require.NoError(t, inf.LoadModels())

	places := inf.Run(triplets, lookup)
	require.Len(t, places, len(triplets))

	// Every row has a non-empty name: whatever source the model picks,
	// inference must resolve a value.
	for _, p := range places {
		assert.NotEmpty(t, p.BestName, "place %s", p.PlaceID)
		assert.NotEmpty(t, p.AttrSource[records.AttrName], "place %s", p.PlaceID)
	}
}

func TestInferPredictionOnEmptySlotFallsBack(t *testing.T) {
	fixtureTriplets, fixtureLookup, truth := trainingFixture(20)

	dir := t.TempDir()
	model, _, err := newTestTrainer().Train(records.AttrName, fixtureTriplets, fixtureLookup, truth)
	require.NoError(t, err)
	require.NoError(t, SaveModel(ModelPath(dir, records.AttrName), model))

	inf := NewInferencer(nil, dir, NewRuleConflator(nil, nil))
	require.NoError(t, inf.LoadModels())

	// Only the anchor carries a name; a prediction pointing at either map
	// source finds an empty slot and must fall back, never emit "".
	lookup := testLookup(
		records.SourceRecord{ID: "a1", Source: records.SourceYelp, Name: "the only name"},
	)
	triplets := []records.TripletRow{
		{PlaceID: "P_1", BusinessID: "a1", OMF: records.SourceLeg{ID: "ghost", Score: 95, Distance: 20, Present: true}},
	}

	places := inf.Run(triplets, lookup)
	require.Len(t, places, 1)
	assert.Equal(t, "the only name", places[0].BestName)
	assert.Equal(t, records.SourceYelp, places[0].AttrSource[records.AttrName])
}

func TestPluralityVote(t *testing.T) {
	p := records.DefaultPriority()

	assert.Equal(t, records.SourceOMF, pluralityVote(map[records.Source]int{
		records.SourceYelp: 1, records.SourceOMF: 3,
	}, p))

	// Ties go to the higher-priority source.
	assert.Equal(t, records.SourceYelp, pluralityVote(map[records.Source]int{
		records.SourceYelp: 2, records.SourceOMF: 2,
	}, p))

	assert.Equal(t, records.Source(""), pluralityVote(nil, p))
}
