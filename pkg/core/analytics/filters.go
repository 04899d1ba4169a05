package analytics

import (
	"strings"

	"github.com/wadjakorntonsri/loopylink/pkg/core/domain"
)

// ToggleFilter applies a dashboard click on a facet value to the active filter set.
// Clicking an active filter removes it. Countries and cities accumulate; any other
// type replaces the filter of the same type.
func ToggleFilter(active []domain.Filter, f domain.Filter) []domain.Filter {
	out := make([]domain.Filter, 0, len(active)+1)
	removed := false
	for _, existing := range active {
		if existing == f {
			removed = true
			continue
		}
		out = append(out, existing)
	}
	if removed {
		return out
	}

	if f.Type != domain.FilterCountry && f.Type != domain.FilterCity {
		kept := out[:0]
		for _, existing := range out {
			if existing.Type != f.Type {
				kept = append(kept, existing)
			}
		}
		out = kept
	}
	return append(out, f)
}

// ParseFilter reads "type:value" as used in query strings.
func ParseFilter(raw string) (domain.Filter, bool) {
	typ, value, ok := strings.Cut(raw, ":")
	if !ok || value == "" {
		return domain.Filter{}, false
	}
	t := domain.FilterType(strings.ToLower(strings.TrimSpace(typ)))
	if !t.Valid() {
		return domain.Filter{}, false
	}
	return domain.Filter{Type: t, Value: value}, true
}

// matcher evaluates a filter set: values of one type OR together, types AND.
type matcher struct {
	byType map[domain.FilterType][]string
}

func newMatcher(filters []domain.Filter) matcher {
	m := matcher{byType: make(map[domain.FilterType][]string)}
	for _, f := range filters {
		m.byType[f.Type] = append(m.byType[f.Type], f.Value)
	}
	return m
}

// link reports whether a link is in scope for domain and link filters.
func (m matcher) link(l *domain.Link) bool {
	if values, ok := m.byType[domain.FilterLink]; ok && !anyOf(values, func(v string) bool { return v == l.ID }) {
		return false
	}
	if values, ok := m.byType[domain.FilterDomain]; ok && !anyOf(values, func(v string) bool { return strings.EqualFold(v, l.Domain) }) {
		return false
	}
	return true
}

// click reports whether a click passes the facet filters.
func (m matcher) click(c *domain.Click) bool {
	for typ, values := range m.byType {
		var field string
		switch typ {
		case domain.FilterDevice:
			field = c.Device
		case domain.FilterBrowser:
			field = c.Browser
		case domain.FilterOS:
			field = c.OS
		case domain.FilterCountry:
			field = c.Country
		case domain.FilterCity:
			field = c.City
		case domain.FilterReferrer:
			ref := strings.ToLower(c.Referrer)
			if !anyOf(values, func(v string) bool { return strings.Contains(ref, strings.ToLower(v)) }) {
				return false
			}
			continue
		default:
			continue
		}
		if !anyOf(values, func(v string) bool { return v == field }) {
			return false
		}
	}
	return true
}

func anyOf(values []string, pred func(string) bool) bool {
	for _, v := range values {
		if pred(v) {
			return true
		}
	}
	return false
}
