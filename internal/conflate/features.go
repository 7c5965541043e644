package conflate

import (
	"strings"

	"github.com/poi-conflation/internal/normalize"
	"github.com/poi-conflation/internal/records"
	"github.com/poi-conflation/internal/similarity"
)

// Distance assigned to an absent match leg in the feature vector.
const missingDistance = 99999

// FeatureSet builds per-place feature vectors for one attribute. Training
// features are supervised: each source's value is compared to the ground
// truth. Inference features substitute an unsupervised richness proxy (token
// count), since the truth is unavailable then. The asymmetry is intentional
// and must be preserved.
type FeatureSet struct {
	Attribute records.Attribute
	Priority  *records.Priority
	scorer    similarity.Scorer
}

// NewFeatureSet creates a feature builder for an attribute.
func NewFeatureSet(attr records.Attribute, priority *records.Priority) *FeatureSet {
	if priority == nil {
		priority = records.DefaultPriority()
	}
	return &FeatureSet{Attribute: attr, Priority: priority, scorer: similarity.TokenSetScorer{}}
}

// Names returns the feature column names, in vector order.
func (fs *FeatureSet) Names() []string {
	names := []string{
		"omf_score", "overpass_score",
		"omf_distance", "overpass_distance",
		"cat_overlap_omf", "cat_overlap_overpass",
	}
	for _, s := range fs.Priority.Order() {
		names = append(names,
			string(s)+"_present",
			string(s)+"_sim",
			string(s)+"_exact",
		)
	}
	return names
}

// Vector builds the feature vector for one triplet row. truth is the ground
// truth value of the attribute for training rows, or empty at inference.
func (fs *FeatureSet) Vector(t *records.TripletRow, lookup RecordLookup, truth string, training bool) []float64 {
	values := memberValues(t, lookup)[fs.Attribute]
	cats := memberValues(t, lookup)[records.AttrCategory]

	omfScore, overpassScore := 0.0, 0.0
	omfDist, overpassDist := float64(missingDistance), float64(missingDistance)
	if t.OMF.Present {
		omfScore = float64(t.OMF.Score)
		omfDist = t.OMF.Distance
	}
	if t.Overpass.Present {
		overpassScore = float64(t.Overpass.Score)
		overpassDist = t.Overpass.Distance
	}

	anchorCats := cats[records.SourceYelp]
	vec := []float64{
		omfScore, overpassScore,
		omfDist, overpassDist,
		categoryOverlap(anchorCats, cats[records.SourceOMF]),
		categoryOverlap(anchorCats, cats[records.SourceOverpass]),
	}

	cleanTruth := normalize.CleanText(truth)
	for _, s := range fs.Priority.Order() {
		value := values[s]
		present, sim, exact := 0.0, 0.0, 0.0
		if value != "" {
			present = 1
			if training {
				sim = float64(fs.scorer.Score(value, cleanTruth))
				if normalize.CleanText(value) == cleanTruth && cleanTruth != "" {
					exact = 1
				}
			} else {
				sim = float64(normalize.TokenCount(value))
			}
		}
		vec = append(vec, present, sim, exact)
	}
	return vec
}

// Label returns the training label for a row: the priority index of the
// first source whose value exactly equals the ground truth. ok is false when
// no source matches exactly; such rows are excluded from training, there is
// no unknown class.
func (fs *FeatureSet) Label(t *records.TripletRow, lookup RecordLookup, truth string) (records.Source, bool) {
	cleanTruth := normalize.CleanText(truth)
	if cleanTruth == "" {
		return "", false
	}
	values := memberValues(t, lookup)[fs.Attribute]
	for _, s := range fs.Priority.Order() {
		if v, ok := values[s]; ok && normalize.CleanText(v) == cleanTruth {
			return s, true
		}
	}
	return "", false
}

// TruthValue extracts the attribute's value from a ground-truth row.
func (fs *FeatureSet) TruthValue(gt records.GroundTruth) string {
	switch fs.Attribute {
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

// categoryOverlap is the Jaccard overlap of two comma-separated category
// strings.
func categoryOverlap(a, b string) float64 {
	setA := categorySet(a)
	setB := categorySet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for c := range setA {
		if setB[c] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union < 1 {
		union = 1
	}
	return float64(intersection) / float64(union)
}

func categorySet(s string) map[string]bool {
	out := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		if c := strings.TrimSpace(part); c != "" {
			out[c] = true
		}
	}
	return out
}
