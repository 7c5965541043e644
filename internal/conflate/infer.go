package conflate

import (
	"errors"
	"fmt"
	"os"

	"github.com/poi-conflation/internal/records"
)

// Inferencer applies trained per-attribute models to pick the best source
// per attribute per place. Attributes whose model artifact is missing fall
// back to the rule-based selection for that attribute only; the run never
// aborts over an absent model.
type Inferencer struct {
	Priority *records.Priority
	ModelDir string
	Rules    *RuleConflator

	models map[records.Attribute]*Model
}

// NewInferencer creates an inferencer reading model artifacts from dir.
func NewInferencer(priority *records.Priority, dir string, rules *RuleConflator) *Inferencer {
	if priority == nil {
		priority = records.DefaultPriority()
	}
	if rules == nil {
		rules = NewRuleConflator(priority, nil)
	}
	return &Inferencer{Priority: priority, ModelDir: dir, Rules: rules}
}

// LoadModels loads every available attribute model, reporting which
// attributes will use the rule-based fallback.
func (inf *Inferencer) LoadModels() error {
	inf.models = make(map[records.Attribute]*Model, len(records.AllAttributes))
	for _, attr := range records.AllAttributes {
		m, err := LoadModel(ModelPath(inf.ModelDir, attr))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				fmt.Printf("No model for %s, using rule-based fallback\n", attr)
				continue
			}
			return fmt.Errorf("failed to load %s model: %w", attr, err)
		}
		inf.models[attr] = m
	}
	return nil
}

// Run conflates every place using the loaded models. Output rows mirror the
// rule-based conflator's shape, one per distinct place_id.
func (inf *Inferencer) Run(triplets []records.TripletRow, lookup RecordLookup) []records.ConflatedPlace {
	if inf.models == nil {
		inf.models = make(map[records.Attribute]*Model)
	}

	groups, order := groupByPlace(triplets)
	out := make([]records.ConflatedPlace, 0, len(order))

	for _, placeID := range order {
		group := groups[placeID]
		first := &group[0]
		values := mergedValues(group, lookup)

		place := records.ConflatedPlace{
			PlaceID:    placeID,
			AttrSource: make(map[records.Attribute]records.Source, len(records.AllAttributes)),
		}

		votes := make(map[records.Source]int)
		for _, attr := range records.AllAttributes {
			value, source := inf.selectAttribute(attr, first, group, lookup, values)
			place.AttrSource[attr] = source
			if source != "" {
				votes[source]++
			}
			switch attr {
			case records.AttrName:
				place.BestName = value
			case records.AttrAddress:
				place.BestAddress = value
			case records.AttrPhone:
				place.BestPhone = value
			case records.AttrWebsite:
				place.BestWebsite = value
			case records.AttrCategory:
				place.BestCategory = value
			}
		}

		place.BestSource = pluralityVote(votes, inf.Priority)
		place.LatMedian, place.LonMedian = medianCoords(group)
		out = append(out, place)
	}
	return out
}

// selectAttribute predicts the winning source for one attribute and resolves
// its value. A prediction pointing at an empty slot is never a terminal
// answer: the first non-empty value in priority order is substituted.
func (inf *Inferencer) selectAttribute(
	attr records.Attribute,
	first *records.TripletRow,
	group []records.TripletRow,
	lookup RecordLookup,
	values map[records.Attribute]map[records.Source]string,
) (string, records.Source) {
	model, ok := inf.models[attr]
	if !ok {
		return inf.ruleFallback(attr, first, group, lookup, values)
	}

	fs := NewFeatureSet(attr, inf.Priority)
	predicted := model.Predict(fs.Vector(first, lookup, "", false))

	if value, ok := values[attr][predicted]; ok && value != "" {
		return value, predicted
	}
	for _, s := range inf.Priority.Order() {
		if value, ok := values[attr][s]; ok && value != "" {
			return value, s
		}
	}
	return "", ""
}

func (inf *Inferencer) ruleFallback(
	attr records.Attribute,
	first *records.TripletRow,
	group []records.TripletRow,
	lookup RecordLookup,
	values map[records.Attribute]map[records.Source]string,
) (string, records.Source) {
	switch attr {
	case records.AttrName:
		return inf.Rules.bestName(first, values[records.AttrName])
	case records.AttrAddress:
		return inf.Rules.bestByPriority(values[records.AttrAddress])
	case records.AttrPhone:
		return inf.Rules.bestPhone(group, lookup)
	case records.AttrWebsite:
		return inf.Rules.bestWebsite(values[records.AttrWebsite])
	case records.AttrCategory:
		return inf.Rules.bestCategory(values[records.AttrCategory])
	}
	return "", ""
}

func pluralityVote(votes map[records.Source]int, priority *records.Priority) records.Source {
	best := records.Source("")
	for s, n := range votes {
		if best == "" || n > votes[best] ||
			(n == votes[best] && priority.Rank(s) < priority.Rank(best)) {
			best = s
		}
	}
	return best
}
