// Package eval scores conflation output against a held-out ground truth.
package eval

import (
	"fmt"
	"sort"
	"strings"

	"github.com/poi-conflation/internal/normalize"
	"github.com/poi-conflation/internal/records"
	"github.com/poi-conflation/internal/similarity"
)

// Near-equality tolerance: a prediction counts as correct when its fuzzy
// ratio against the truth reaches this score.
const fuzzyCorrectThreshold = 90

// AttributeScore is the accuracy of one attribute over the comparable rows.
type AttributeScore struct {
	Attribute records.Attribute
	Compared  int
	Correct   int
}

// Accuracy is Correct/Compared as a percentage, 0 when nothing compared.
func (a AttributeScore) Accuracy() float64 {
	if a.Compared == 0 {
		return 0
	}
	return float64(a.Correct) / float64(a.Compared) * 100
}

// Report holds per-attribute and overall accuracy.
type Report struct {
	Scores  []AttributeScore
	Overall float64
}

// Evaluate compares conflated places to ground truth per attribute. Rows
// where either side is blank are excluded from the denominator; a prediction
// is correct when equal after field-specific normalization or nearly equal
// by fuzzy ratio.
func Evaluate(places []records.ConflatedPlace, truth []records.GroundTruth) Report {
	truthByPlace := make(map[string]records.GroundTruth, len(truth))
	for _, gt := range truth {
		truthByPlace[gt.PlaceID] = gt
	}

	scores := make(map[records.Attribute]*AttributeScore, len(records.AllAttributes))
	for _, attr := range records.AllAttributes {
		scores[attr] = &AttributeScore{Attribute: attr}
	}

	for _, p := range places {
		gt, ok := truthByPlace[p.PlaceID]
		if !ok {
			continue
		}
		for _, attr := range records.AllAttributes {
			t := normalizeField(truthValue(gt, attr), attr)
			pred := normalizeField(predictedValue(p, attr), attr)
			if t == "" || pred == "" {
				continue
			}
			score := scores[attr]
			score.Compared++
			if t == pred || similarity.Ratio(t, pred) >= fuzzyCorrectThreshold {
				score.Correct++
			}
		}
	}

	report := Report{}
	total := 0.0
	for _, attr := range records.AllAttributes {
		report.Scores = append(report.Scores, *scores[attr])
		total += scores[attr].Accuracy()
	}
	sort.SliceStable(report.Scores, func(i, j int) bool {
		return report.Scores[i].Attribute < report.Scores[j].Attribute
	})
	report.Overall = total / float64(len(records.AllAttributes))
	return report
}

// Print writes the report in the accuracy-table format.
func (r Report) Print() {
	fmt.Println("\n=== ACCURACY RESULTS ===")
	for _, s := range r.Scores {
		fmt.Printf("%-12s: %.2f%% (%d/%d)\n", s.Attribute, s.Accuracy(), s.Correct, s.Compared)
	}
	fmt.Printf("Overall Accuracy: %.2f%%\n", r.Overall)
}

func truthValue(gt records.GroundTruth, attr records.Attribute) string {
	switch attr {
	case records.AttrName:
		return gt.Name
	case records.AttrAddress:
		return gt.Address
	case records.AttrPhone:
		return gt.Phone
	case records.AttrWebsite:
		return gt.Website
	case records.AttrCategory:
		return gt.Category
	}
	return ""
}

func predictedValue(p records.ConflatedPlace, attr records.Attribute) string {
	switch attr {
	case records.AttrName:
		return p.BestName
	case records.AttrAddress:
		return p.BestAddress
	case records.AttrPhone:
		return p.BestPhone
	case records.AttrWebsite:
		return p.BestWebsite
	case records.AttrCategory:
		return p.BestCategory
	}
	return ""
}

// normalizeField applies the attribute-specific comparison normalization:
// phones compare by digit suffix, websites by bare domain, addresses as-is
// (already normalized upstream), everything else alnum-collapsed.
func normalizeField(v string, attr records.Attribute) string {
	switch attr {
	case records.AttrPhone:
		return normalize.DigitsSuffix(v)
	case records.AttrWebsite:
		return normalize.Domain(v)
	case records.AttrAddress:
		return strings.TrimSpace(v)
	default:
		return normalize.AlnumCollapse(v)
	}
}
