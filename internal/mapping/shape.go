package mapping

import "github.com/bft-labs/topicmap/internal/domain"

// shape builds the candidate records for a resolved value. value may be nil,
// in which case every candidate carries a nil value.
//
// Signed mappings always yield two candidates, positive first. The side the
// value does not belong to gets the zero of the declared type, so a value of
// exactly zero produces zero on both sides.
func shape(def domain.Mapping, value any) []domain.Record {
	if def.Layout != domain.LayoutSigned {
		return []domain.Record{record(def.Output, value)}
	}

	if value == nil {
		return []domain.Record{record(def.Positive, nil), record(def.Negative, nil)}
	}

	pos, neg := split(value)
	return []domain.Record{record(def.Positive, pos), record(def.Negative, neg)}
}

func record(t domain.Target, value any) domain.Record {
	return domain.Record{Measurement: t.Measurement, Field: t.Field, Value: value}
}

// split returns the positive and negative side of a numeric value. Anything
// that is not a coerced number yields nil on both sides.
func split(value any) (pos, neg any) {
	switch v := value.(type) {
	case float64:
		switch {
		case v > 0:
			return v, 0.0
		case v < 0:
			return 0.0, -v
		default:
			return 0.0, 0.0
		}
	case int64:
		switch {
		case v > 0:
			return v, int64(0)
		case v < 0:
			return int64(0), -v
		default:
			return int64(0), int64(0)
		}
	}
	return nil, nil
}
