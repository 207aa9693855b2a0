package domain

import (
	"fmt"
	"strings"
)

// ValueType is the declared type of a mapping's value.
type ValueType string

const (
	TypeFloat   ValueType = "float"
	TypeInteger ValueType = "integer"
	TypeBoolean ValueType = "boolean"
	TypeString  ValueType = "string"
)

// Valid reports whether t is one of the supported types.
func (t ValueType) Valid() bool {
	switch t {
	case TypeFloat, TypeInteger, TypeBoolean, TypeString:
		return true
	}
	return false
}

// Numeric reports whether values of type t can carry a sign.
func (t ValueType) Numeric() bool {
	return t == TypeFloat || t == TypeInteger
}

// Layout selects how a resolved value is turned into records.
type Layout int

const (
	// LayoutDefault emits one record to Measurement/Field.
	LayoutDefault Layout = iota
	// LayoutSigned routes the value to a positive or a negative field and
	// zero-fills the other one.
	LayoutSigned
)

func (l Layout) String() string {
	switch l {
	case LayoutDefault:
		return "default"
	case LayoutSigned:
		return "signed"
	default:
		return "unknown"
	}
}

// SourceKind selects where a mapping reads its raw value from.
type SourceKind int

const (
	// SourceMessage uses the whole payload as the value.
	SourceMessage SourceKind = iota
	// SourceKey looks up a top-level field of a JSON object.
	SourceKey
	// SourcePath evaluates a path query against a JSON document.
	SourcePath
	// SourceFormula evaluates an arithmetic template over a JSON document.
	SourceFormula
)

func (s SourceKind) String() string {
	switch s {
	case SourceMessage:
		return "message"
	case SourceKey:
		return "json_key"
	case SourcePath:
		return "json_path"
	case SourceFormula:
		return "json_formula"
	default:
		return "unknown"
	}
}

// JSON reports whether the source needs the payload to be a JSON document.
func (s SourceKind) JSON() bool {
	return s != SourceMessage
}

// Source is the value source of a mapping. Expr holds the key, path or
// formula template; it is empty for SourceMessage.
type Source struct {
	Kind SourceKind
	Expr string
}

// Target is a measurement/field pair.
type Target struct {
	Measurement string
	Field       string
}

func (t Target) String() string {
	return t.Measurement + ":" + t.Field
}

// Mapping is one configured rule. Build it with NewMapping.
type Mapping struct {
	Topic  string
	Type   ValueType
	Source Source
	Layout Layout

	// Output is used by LayoutDefault.
	Output Target
	// Positive and Negative are used by LayoutSigned.
	Positive Target
	Negative Target
}

// MappingSpec is the loosely typed form of a mapping as it appears in
// configuration. Empty strings mean "not set".
type MappingSpec struct {
	Topic       string
	Type        string
	JSONKey     string
	JSONPath    string
	JSONFormula string

	Measurement string
	Field       string

	MeasurementPositive string
	FieldPositive       string
	MeasurementNegative string
	FieldNegative       string
}

// signed reports whether all four signed-layout names are present.
func (s MappingSpec) signed() bool {
	return s.MeasurementPositive != "" && s.FieldPositive != "" &&
		s.MeasurementNegative != "" && s.FieldNegative != ""
}

func (s MappingSpec) source() Source {
	switch {
	case s.JSONFormula != "":
		return Source{Kind: SourceFormula, Expr: s.JSONFormula}
	case s.JSONPath != "":
		return Source{Kind: SourcePath, Expr: s.JSONPath}
	case s.JSONKey != "":
		return Source{Kind: SourceKey, Expr: s.JSONKey}
	default:
		return Source{Kind: SourceMessage}
	}
}

// NewMapping decides the layout and source of a mapping spec.
//
// A spec is signed only when all four signed names are set; anything less
// falls back to the default layout, which then needs Measurement and Field.
// Unknown type names are kept: they never produce records.
func NewMapping(spec MappingSpec) (Mapping, error) {
	topic := strings.TrimSpace(spec.Topic)
	if topic == "" {
		return Mapping{}, fmt.Errorf("%w: topic is required", ErrInvalidMapping)
	}

	m := Mapping{
		Topic:  topic,
		Type:   ValueType(strings.ToLower(strings.TrimSpace(spec.Type))),
		Source: spec.source(),
	}

	if spec.signed() {
		if !m.Type.Numeric() {
			return Mapping{}, fmt.Errorf("%w: topic %q: signed layout requires a numeric type, got %q",
				ErrInvalidMapping, topic, spec.Type)
		}
		m.Layout = LayoutSigned
		m.Positive = Target{Measurement: spec.MeasurementPositive, Field: spec.FieldPositive}
		m.Negative = Target{Measurement: spec.MeasurementNegative, Field: spec.FieldNegative}
		return m, nil
	}

	if spec.Measurement == "" || spec.Field == "" {
		return Mapping{}, fmt.Errorf("%w: topic %q: measurement and field are required", ErrInvalidMapping, topic)
	}
	m.Layout = LayoutDefault
	m.Output = Target{Measurement: spec.Measurement, Field: spec.Field}
	return m, nil
}

// Describe renders the mapping as "measurement:field (type)" or, for the
// signed layout, "measPos:fieldPos (+) measNeg:fieldNeg (-) (type)".
func (m Mapping) Describe() string {
	if m.Layout == LayoutSigned {
		return fmt.Sprintf("%s (+) %s (-) (%s)", m.Positive, m.Negative, m.Type)
	}
	return fmt.Sprintf("%s (%s)", m.Output, m.Type)
}
