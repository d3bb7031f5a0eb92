package domain

// Condition is a tagged filter variant: a scalar means equals, a collection
// means membership.
type Condition struct {
	equals string
	anyOf  []string
	isAny  bool
}

// Equals builds a condition that matches a single exact value.
func Equals(value string) Condition {
	return Condition{equals: value}
}

// AnyOf builds a condition that matches any of the given values.
func AnyOf(values ...string) Condition {
	return Condition{anyOf: values, isAny: true}
}

// Matches reports whether the field value satisfies the condition.
func (c Condition) Matches(value string) bool {
	if c.isAny {
		for _, v := range c.anyOf {
			if v == value {
				return true
			}
		}
		return false
	}
	return c.equals == value
}

// Filter maps metadata field names to match conditions. All entries must
// hold for a chunk to pass.
type Filter map[string]Condition

// Matches resolves every condition against the metadata record. Conditions
// keyed on unknown fields never match.
func (f Filter) Matches(m ChunkMetadata) bool {
	for key, cond := range f {
		value, ok := m.Field(key)
		if !ok {
			return false
		}
		if !cond.Matches(value) {
			return false
		}
	}
	return true
}

// DocumentTypeFilter builds the common filter restricting results to a set
// of document types.
func DocumentTypeFilter(types ...string) Filter {
	if len(types) == 0 {
		return nil
	}
	if len(types) == 1 {
		return Filter{"document_type": Equals(types[0])}
	}
	return Filter{"document_type": AnyOf(types...)}
}
