package schema

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"time"

	"github.com/mesocosm/mesocosm/internal/units"
)

// ConflictError reports two fragments claiming the same section with
// incompatible definitions.
type ConflictError struct {
	Section string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("schema: conflicting definitions for section %q", e.Section)
}

// Schema is the merged, validated set of fragments.
type Schema struct {
	fragments map[string]Fragment
	sections  []string
}

// Merge combines fragments into one schema. Identical duplicate fragments
// collapse; differing fragments for the same section conflict.
func Merge(frags ...Fragment) (*Schema, error) {
	merged := make(map[string]Fragment, len(frags))
	for _, f := range frags {
		if f.Section == "" {
			return nil, fmt.Errorf("schema: fragment with empty section name")
		}
		if err := checkKeys(f.Section, f.Keys); err != nil {
			return nil, err
		}
		if existing, ok := merged[f.Section]; ok {
			if reflect.DeepEqual(existing, f) {
				continue
			}
			return nil, &ConflictError{Section: f.Section}
		}
		merged[f.Section] = f
	}
	sections := make([]string, 0, len(merged))
	for name := range merged {
		sections = append(sections, name)
	}
	sort.Strings(sections)
	return &Schema{fragments: merged, sections: sections}, nil
}

// Fragment returns the fragment owning a section.
func (s *Schema) Fragment(section string) (Fragment, bool) {
	f, ok := s.fragments[section]
	return f, ok
}

// Sections returns the sorted section names.
func (s *Schema) Sections() []string {
	out := make([]string, len(s.sections))
	copy(out, s.sections)
	return out
}

func checkKeys(section string, keys []Key) error {
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if k.Name == "" {
			return fmt.Errorf("schema: section %s has a key with no name", section)
		}
		if seen[k.Name] {
			return fmt.Errorf("schema: section %s declares key %s twice", section, k.Name)
		}
		seen[k.Name] = true
		if len(k.Children) > 0 && k.Kind != KindMapping && k.Kind != KindMappingList {
			return fmt.Errorf("schema: section %s key %s: children need a mapping kind", section, k.Name)
		}
		if k.Kind == KindQuantity {
			if k.Dim == "" {
				return fmt.Errorf("schema: section %s key %s: quantity needs a dimension", section, k.Name)
			}
		}
		if k.Pattern != "" {
			if _, err := regexp.Compile(k.Pattern); err != nil {
				return fmt.Errorf("schema: section %s key %s: bad pattern: %w", section, k.Name, err)
			}
		}
		if k.Default != nil {
			if err := checkDefault(k); err != nil {
				return fmt.Errorf("schema: section %s key %s: %w", section, k.Name, err)
			}
		}
		if len(k.Children) > 0 {
			if err := checkKeys(section+"."+k.Name, k.Children); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkDefault(k Key) error {
	switch k.Kind {
	case KindString, KindDate:
		if _, ok := k.Default.(string); !ok {
			return fmt.Errorf("default %v is not a string", k.Default)
		}
	case KindInt:
		if _, ok := k.Default.(int); !ok {
			return fmt.Errorf("default %v is not an int", k.Default)
		}
	case KindFloat:
		switch k.Default.(type) {
		case float64, int:
		default:
			return fmt.Errorf("default %v is not a number", k.Default)
		}
	case KindBool:
		if _, ok := k.Default.(bool); !ok {
			return fmt.Errorf("default %v is not a bool", k.Default)
		}
	case KindQuantity:
		raw, ok := k.Default.(string)
		if !ok {
			return fmt.Errorf("default %v is not a quantity string", k.Default)
		}
		q, err := units.Parse(raw)
		if err != nil {
			return err
		}
		if dim, _ := q.Dim(); dim != k.Dim {
			return fmt.Errorf("default %q has dimension %s, want %s", raw, dim, k.Dim)
		}
	case KindStringList:
		if _, ok := k.Default.([]string); !ok {
			return fmt.Errorf("default %v is not a string list", k.Default)
		}
	case KindFloatList:
		if _, ok := k.Default.([]float64); !ok {
			return fmt.Errorf("default %v is not a float list", k.Default)
		}
	default:
		return fmt.Errorf("kind %s cannot carry a default", k.Kind)
	}
	return nil
}

// dateLayouts are the accepted date spellings for KindDate values.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// ParseDate reads a KindDate value, accepting either a bare date or a full
// RFC3339 timestamp. yaml decodes timestamp-shaped scalars to time.Time
// already; strings land here.
func ParseDate(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("schema: cannot parse date %q", v)
	default:
		return time.Time{}, fmt.Errorf("schema: date value %v is not a date", value)
	}
}
