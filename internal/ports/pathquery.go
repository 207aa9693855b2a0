package ports

// PathQuery selects values from a parsed JSON document.
type PathQuery interface {
	// First evaluates expr against doc and returns the first match.
	// ok is false when nothing matched. err is reserved for expressions that
	// cannot be parsed.
	First(expr string, doc any) (value any, ok bool, err error)
}
