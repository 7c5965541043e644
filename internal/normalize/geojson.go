package normalize

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/poi-conflation/internal/records"
)

// ReadGeoJSON parses a target-catalog GeoJSON FeatureCollection into
// normalized records for the given source. Features with a nil or non-point
// geometry are dropped. The property schema is fixed: id, name, address,
// category, phone, website; absent properties default to empty.
func ReadGeoJSON(path string, source records.Source) ([]records.SourceRecord, Stats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to read %s geojson: %w", source, err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to parse %s geojson: %w", source, err)
	}

	var stats Stats
	out := make([]records.SourceRecord, 0, len(fc.Features))

	for i, feat := range fc.Features {
		stats.RowsRead++
		if feat == nil || feat.Geometry == nil {
			stats.DroppedGeometry++
			continue
		}
		pt, ok := feat.Geometry.(orb.Point)
		if !ok {
			stats.DroppedGeometry++
			continue
		}

		id := propString(feat, "id")
		if id == "" {
			// Stable fallback so every target row stays addressable.
			id = fmt.Sprintf("%s_%d", source, i)
		}

		out = append(out, records.SourceRecord{
			ID:         id,
			Source:     source,
			Name:       CleanText(propString(feat, "name")),
			Address:    CleanText(propString(feat, "address")),
			Categories: SplitCategories(propString(feat, "category")),
			Phone:      DigitsSuffix(propString(feat, "phone")),
			Website:    CleanText(propString(feat, "website")),
			Lat:        pt.Lat(),
			Lon:        pt.Lon(),
		})
		stats.RowsKept++
	}

	return out, stats, nil
}

func propString(feat *geojson.Feature, key string) string {
	v, ok := feat.Properties[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
