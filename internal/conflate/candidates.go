// Package conflate selects the best attribute value per place, either by
// deterministic rule or by a trained per-attribute classifier.
package conflate

import (
	"strings"

	"github.com/poi-conflation/internal/records"
)

// RecordLookup resolves full normalized records by id, per source. The
// triplet table only carries name/category for the map-catalog legs; phone,
// website and address observations come from here.
type RecordLookup map[records.Source]map[string]records.SourceRecord

// BuildLookup indexes normalized records by source and id.
func BuildLookup(recordSets ...[]records.SourceRecord) RecordLookup {
	lookup := make(RecordLookup)
	for _, set := range recordSets {
		for _, r := range set {
			bySource, ok := lookup[r.Source]
			if !ok {
				bySource = make(map[string]records.SourceRecord)
				lookup[r.Source] = bySource
			}
			bySource[r.ID] = r
		}
	}
	return lookup
}

// memberValues derives the per-source AttributeCandidate view of one triplet
// row: attribute -> source -> value, empty values omitted. Every value is
// resolved from the record lookup when possible and falls back to what the
// triplet row itself carries.
func memberValues(t *records.TripletRow, lookup RecordLookup) map[records.Attribute]map[records.Source]string {
	out := make(map[records.Attribute]map[records.Source]string, len(records.AllAttributes))
	for _, attr := range records.AllAttributes {
		out[attr] = make(map[records.Source]string, 3)
	}

	set := func(attr records.Attribute, s records.Source, value string) {
		if strings.TrimSpace(value) != "" {
			out[attr][s] = value
		}
	}
	fromRecord := func(s records.Source, r records.SourceRecord) {
		set(records.AttrName, s, r.Name)
		set(records.AttrAddress, s, r.Address)
		set(records.AttrPhone, s, r.Phone)
		set(records.AttrWebsite, s, r.Website)
		set(records.AttrCategory, s, strings.Join(r.Categories, ", "))
	}

	if r, ok := lookup.find(records.SourceYelp, t.BusinessID); ok {
		fromRecord(records.SourceYelp, r)
	} else {
		set(records.AttrName, records.SourceYelp, t.Name)
		set(records.AttrAddress, records.SourceYelp, t.Address)
		set(records.AttrCategory, records.SourceYelp, t.Category)
	}

	for _, s := range []records.Source{records.SourceOMF, records.SourceOverpass} {
		leg := t.Leg(s)
		if !leg.Present {
			continue
		}
		if r, ok := lookup.find(s, leg.ID); ok {
			fromRecord(s, r)
		} else {
			set(records.AttrName, s, leg.Name)
			set(records.AttrCategory, s, leg.Category)
		}
	}
	return out
}

func (l RecordLookup) find(s records.Source, id string) (records.SourceRecord, bool) {
	if l == nil || id == "" {
		return records.SourceRecord{}, false
	}
	bySource, ok := l[s]
	if !ok {
		return records.SourceRecord{}, false
	}
	r, ok := bySource[id]
	return r, ok
}

// Candidates flattens one triplet row into AttributeCandidate rows, one per
// (attribute, source) with a non-empty value. Diagnostic view used by the
// store and tests; the conflators consume memberValues directly.
func Candidates(t *records.TripletRow, lookup RecordLookup) []records.AttributeCandidate {
	values := memberValues(t, lookup)
	var out []records.AttributeCandidate
	for _, attr := range records.AllAttributes {
		for _, s := range records.AllSources {
			if v, ok := values[attr][s]; ok {
				out = append(out, records.AttributeCandidate{
					PlaceID:   t.PlaceID,
					Attribute: attr,
					Value:     v,
					Source:    s,
				})
			}
		}
	}
	return out
}
