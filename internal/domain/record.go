package domain

// Record is one data point produced by the mapper.
//
// Value holds a float64, int64, bool or string matching the mapping's
// declared type. A nil Value marks a candidate that failed to resolve; the
// mapper never returns such records.
type Record struct {
	Measurement string
	Field       string
	Value       any
}

// Present reports whether the record carries a value.
func (r Record) Present() bool {
	return r.Value != nil
}
