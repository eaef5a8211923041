package index

import "fmt"

// ConditionCode identifies a per-symbol anomaly. Conditions are recorded on
// the unit and never abort indexing.
type ConditionCode string

const (
	// ConflictingDefinition: a second, different definition site was seen for
	// an already defined symbol. The first one is kept.
	ConflictingDefinition ConditionCode = "CONFLICTING_DEFINITION"
	// MalformedEvent: a visitation event was dropped because its identity
	// string was unusable.
	MalformedEvent ConditionCode = "MALFORMED_EVENT"
)

// Condition is one recorded anomaly.
type Condition struct {
	Code ConditionCode
	Kind SymbolKind
	USR  string

	// Kept is the location that stays on the record, Got the one rejected.
	Kept Location
	Got  Location

	Message string
}

func (c Condition) String() string {
	if c.Message != "" {
		return fmt.Sprintf("[%s] %s %s: %s", c.Code, c.Kind, c.USR, c.Message)
	}
	return fmt.Sprintf("[%s] %s %s: kept %s, got %s", c.Code, c.Kind, c.USR, c.Kept, c.Got)
}
