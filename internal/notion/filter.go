package notion

import "errors"

// ErrFilterTooDeep is returned when a compound filter exceeds the API's
// supported nesting: at most one level of or-of-ands.
var ErrFilterTooDeep = errors.New("notion: filter nesting exceeds one level of or-of-ands")

// Filter is a database query filter. Leaves are built with the condition
// constructors below; And and Or compose them.
type Filter struct {
	leaf map[string]any
	and  []Filter
	or   []Filter
}

func leafFilter(property string, kind Kind, condition map[string]any) Filter {
	return Filter{leaf: map[string]any{
		"property":   property,
		string(kind): condition,
	}}
}

func TitleEquals(property, value string) Filter {
	return leafFilter(property, KindTitle, map[string]any{"equals": value})
}

func RichTextEquals(property, value string) Filter {
	return leafFilter(property, KindRichText, map[string]any{"equals": value})
}

func URLEquals(property, value string) Filter {
	return leafFilter(property, KindURL, map[string]any{"equals": value})
}

func CheckboxIs(property string, value bool) Filter {
	return leafFilter(property, KindCheckbox, map[string]any{"equals": value})
}

func IsNotEmpty(property string, kind Kind) Filter {
	return leafFilter(property, kind, map[string]any{"is_not_empty": true})
}

func IsEmpty(property string, kind Kind) Filter {
	return leafFilter(property, kind, map[string]any{"is_empty": true})
}

// And joins conditions that must all hold. Children must be leaves.
func And(filters ...Filter) Filter {
	if len(filters) == 1 {
		return filters[0]
	}
	return Filter{and: filters}
}

// Or joins alternatives, of which any one may hold. Children may be leaves
// or flat ands of leaves; anything deeper is rejected because the query API
// supports only one compound level inside an or.
func Or(filters ...Filter) (Filter, error) {
	if len(filters) == 1 {
		return filters[0], nil
	}
	for _, f := range filters {
		if len(f.or) > 0 {
			return Filter{}, ErrFilterTooDeep
		}
		for _, child := range f.and {
			if child.leaf == nil {
				return Filter{}, ErrFilterTooDeep
			}
		}
	}
	return Filter{or: filters}, nil
}

func (f Filter) isZero() bool {
	return f.leaf == nil && len(f.and) == 0 && len(f.or) == 0
}

func (f Filter) toWire() map[string]any {
	switch {
	case len(f.or) > 0:
		parts := make([]map[string]any, 0, len(f.or))
		for _, c := range f.or {
			parts = append(parts, c.toWire())
		}
		return map[string]any{"or": parts}
	case len(f.and) > 0:
		parts := make([]map[string]any, 0, len(f.and))
		for _, c := range f.and {
			parts = append(parts, c.toWire())
		}
		return map[string]any{"and": parts}
	default:
		return f.leaf
	}
}
