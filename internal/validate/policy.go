package validate

// Policy selects how field-level violations are handled.
type Policy int

const (
	// Lenient strips the offending field, records an anomaly, and keeps
	// the record. This is the default.
	Lenient Policy = iota
	// Strict rejects the whole record on the first violation.
	Strict
)

func (p Policy) String() string {
	if p == Strict {
		return "strict"
	}
	return "lenient"
}
