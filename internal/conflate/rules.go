package conflate

import (
	"sort"
	"strings"

	"github.com/poi-conflation/internal/normalize"
	"github.com/poi-conflation/internal/records"
)

// RuleConflator performs deterministic, auditable attribute selection with
// fixed source priority and match-score tie-breaks. No training data needed.
type RuleConflator struct {
	Priority       *records.Priority
	BlockedDomains []string
}

// NewRuleConflator creates a rule conflator with the given priority and
// website block list.
func NewRuleConflator(priority *records.Priority, blockedDomains []string) *RuleConflator {
	if priority == nil {
		priority = records.DefaultPriority()
	}
	return &RuleConflator{Priority: priority, BlockedDomains: blockedDomains}
}

// Run conflates every place in the triplet table. The output has exactly one
// row per distinct place_id; a place where no source had data for an
// attribute gets an empty value, never a missing row.
func (rc *RuleConflator) Run(triplets []records.TripletRow, lookup RecordLookup) []records.ConflatedPlace {
	groups, order := groupByPlace(triplets)

	out := make([]records.ConflatedPlace, 0, len(order))
	for _, placeID := range order {
		group := groups[placeID]
		out = append(out, rc.conflatePlace(placeID, group, lookup))
	}
	return out
}

func (rc *RuleConflator) conflatePlace(placeID string, group []records.TripletRow, lookup RecordLookup) records.ConflatedPlace {
	// Attribute candidates are collected across every member row of the
	// place; the name rule additionally uses the first row's match scores.
	first := &group[0]
	values := mergedValues(group, lookup)

	place := records.ConflatedPlace{
		PlaceID:    placeID,
		AttrSource: make(map[records.Attribute]records.Source, len(records.AllAttributes)),
	}

	place.BestName, place.AttrSource[records.AttrName] = rc.bestName(first, values[records.AttrName])
	place.BestAddress, place.AttrSource[records.AttrAddress] = rc.bestByPriority(values[records.AttrAddress])
	place.BestPhone, place.AttrSource[records.AttrPhone] = rc.bestPhone(group, lookup)
	place.BestWebsite, place.AttrSource[records.AttrWebsite] = rc.bestWebsite(values[records.AttrWebsite])
	place.BestCategory, place.AttrSource[records.AttrCategory] = rc.bestCategory(values[records.AttrCategory])
	place.BestSource = rc.pluralitySource(place.AttrSource)
	place.LatMedian, place.LonMedian = medianCoords(group)
	return place
}

// bestName selects the source with the higher match score among the map
// catalogs, provided it carries a name; equal scores prefer OMF. Falls back
// to the anchor's own name.
func (rc *RuleConflator) bestName(t *records.TripletRow, bySource map[records.Source]string) (string, records.Source) {
	omfScore, overpassScore := 0, 0
	if t.OMF.Present {
		omfScore = t.OMF.Score
	}
	if t.Overpass.Present {
		overpassScore = t.Overpass.Score
	}

	omfName, hasOMF := bySource[records.SourceOMF]
	overpassName, hasOverpass := bySource[records.SourceOverpass]

	switch {
	case omfScore >= overpassScore && hasOMF:
		return omfName, records.SourceOMF
	case overpassScore > omfScore && hasOverpass:
		return overpassName, records.SourceOverpass
	}
	if name, ok := bySource[records.SourceYelp]; ok {
		return name, records.SourceYelp
	}
	// Partner catalogs may still have a name when the anchor does not.
	return rc.bestByPriority(bySource)
}

// bestByPriority returns the first non-empty value walking the configured
// source priority. Used for address selection: the source system always
// passed the primary address through, which was flagged as unintentional, so
// addresses now honor priority like every other attribute.
func (rc *RuleConflator) bestByPriority(bySource map[records.Source]string) (string, records.Source) {
	for _, s := range rc.rankedSources(bySource) {
		return bySource[s], s
	}
	return "", ""
}

// bestPhone normalizes every member observation to its ten-digit suffix and
// majority-votes; ties break by source priority.
func (rc *RuleConflator) bestPhone(group []records.TripletRow, lookup RecordLookup) (string, records.Source) {
	type observation struct {
		value  string
		source records.Source
	}
	var observations []observation
	for i := range group {
		values := memberValues(&group[i], lookup)
		for _, s := range records.AllSources {
			if raw, ok := values[records.AttrPhone][s]; ok {
				if digits := normalize.DigitsSuffix(raw); digits != "" {
					observations = append(observations, observation{digits, s})
				}
			}
		}
	}
	if len(observations) == 0 {
		return "", ""
	}

	counts := make(map[string]int, len(observations))
	bestValue, bestCount := "", 0
	for _, obs := range observations {
		counts[obs.value]++
		// First value to reach the top count wins count ties.
		if counts[obs.value] > bestCount {
			bestValue, bestCount = obs.value, counts[obs.value]
		}
	}

	bestSource := records.Source("")
	bestRank := int(^uint(0) >> 1)
	for _, obs := range observations {
		if obs.value != bestValue {
			continue
		}
		if r := rc.Priority.Rank(obs.source); r < bestRank {
			bestSource, bestRank = obs.source, r
		}
	}
	return bestValue, bestSource
}

// bestWebsite prefers candidates whose domain is not on the block list,
// picking by source priority; when every candidate is blocked the
// highest-priority one is still returned.
func (rc *RuleConflator) bestWebsite(bySource map[records.Source]string) (string, records.Source) {
	ranked := rc.rankedSources(bySource)
	if len(ranked) == 0 {
		return "", ""
	}
	for _, s := range ranked {
		if !rc.isBlockedDomain(bySource[s]) {
			return bySource[s], s
		}
	}
	return bySource[ranked[0]], ranked[0]
}

func (rc *RuleConflator) isBlockedDomain(url string) bool {
	domain := normalize.Domain(url)
	for _, blocked := range rc.BlockedDomains {
		if strings.Contains(domain, blocked) {
			return true
		}
	}
	return false
}

// bestCategory picks by source priority, breaking remaining ties by the
// longer category string as a specificity proxy.
func (rc *RuleConflator) bestCategory(bySource map[records.Source]string) (string, records.Source) {
	ranked := rc.rankedSources(bySource)
	if len(ranked) == 0 {
		return "", ""
	}
	best := ranked[0]
	for _, s := range ranked[1:] {
		if rc.Priority.Rank(s) == rc.Priority.Rank(best) && len(bySource[s]) > len(bySource[best]) {
			best = s
		}
	}
	return bySource[best], best
}

// pluralitySource is the diagnostic "best overall source": the source that
// won the most attributes, priority rank breaking ties.
func (rc *RuleConflator) pluralitySource(attrSource map[records.Attribute]records.Source) records.Source {
	counts := make(map[records.Source]int)
	for _, s := range attrSource {
		if s != "" {
			counts[s]++
		}
	}
	best := records.Source("")
	for s, n := range counts {
		if best == "" || n > counts[best] ||
			(n == counts[best] && rc.Priority.Rank(s) < rc.Priority.Rank(best)) {
			best = s
		}
	}
	return best
}

// rankedSources returns the sources present in bySource sorted by priority
// rank, with the source name as a stable secondary key.
func (rc *RuleConflator) rankedSources(bySource map[records.Source]string) []records.Source {
	out := make([]records.Source, 0, len(bySource))
	for s := range bySource {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := rc.Priority.Rank(out[i]), rc.Priority.Rank(out[j])
		if ri != rj {
			return ri < rj
		}
		return out[i] < out[j]
	})
	return out
}

// mergedValues unions memberValues across every row of a place group. The
// first row's value wins per (attribute, source).
func mergedValues(group []records.TripletRow, lookup RecordLookup) map[records.Attribute]map[records.Source]string {
	merged := memberValues(&group[0], lookup)
	for i := 1; i < len(group); i++ {
		values := memberValues(&group[i], lookup)
		for attr, bySource := range values {
			for s, v := range bySource {
				if _, ok := merged[attr][s]; !ok {
					merged[attr][s] = v
				}
			}
		}
	}
	return merged
}

// medianCoords takes the per-coordinate median of the group's anchor
// locations, robust to single outlier matches.
func medianCoords(group []records.TripletRow) (float64, float64) {
	lats := make([]float64, len(group))
	lons := make([]float64, len(group))
	for i, t := range group {
		lats[i] = t.Lat
		lons[i] = t.Lon
	}
	return median(lats), median(lons)
}

func median(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sorted := append([]float64(nil), v...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// groupByPlace groups triplet rows by place id, preserving first-seen order.
func groupByPlace(triplets []records.TripletRow) (map[string][]records.TripletRow, []string) {
	groups := make(map[string][]records.TripletRow)
	var order []string
	for _, t := range triplets {
		if _, ok := groups[t.PlaceID]; !ok {
			order = append(order, t.PlaceID)
		}
		groups[t.PlaceID] = append(groups[t.PlaceID], t)
	}
	return groups, order
}
