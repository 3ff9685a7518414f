package schema

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/mesocosm/mesocosm/internal/units"
)

// Problem reports one value in a section that fails its key declaration.
type Problem struct {
	// Path is the dotted key path including the section name.
	Path    string
	Message string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %s", p.Path, p.Message)
}

// ApplySection checks a section document against its fragment and fills
// defaults for omitted optional keys. The returned document is a new map;
// the input is not modified. All problems are collected, not just the
// first.
func ApplySection(f Fragment, value map[string]any) (map[string]any, []Problem) {
	return applyKeys(f.Section, f.Keys, f.Open, value)
}

func applyKeys(path string, keys []Key, open bool, value map[string]any) (map[string]any, []Problem) {
	out := make(map[string]any, len(value))
	for k, v := range value {
		out[k] = v
	}
	var problems []Problem
	declared := make(map[string]bool, len(keys))
	for _, key := range keys {
		declared[key.Name] = true
		keyPath := path + "." + key.Name
		raw, present := out[key.Name]
		if !present {
			if key.Required {
				problems = append(problems, Problem{Path: keyPath, Message: "required key is missing"})
				continue
			}
			if key.Default != nil {
				out[key.Name] = key.Default
			} else if key.Kind == KindMapping && len(key.Children) > 0 {
				// Nested defaults still apply when the whole mapping is
				// omitted and no child is required.
				filled, nested := applyKeys(keyPath, key.Children, false, map[string]any{})
				if len(nested) > 0 {
					problems = append(problems, nested...)
					continue
				}
				out[key.Name] = filled
			}
			continue
		}
		checked, keyProblems := applyValue(keyPath, key, raw)
		if len(keyProblems) > 0 {
			problems = append(problems, keyProblems...)
			continue
		}
		out[key.Name] = checked
	}
	if !open {
		unknown := make([]string, 0)
		for k := range out {
			if !declared[k] {
				unknown = append(unknown, k)
			}
		}
		sort.Strings(unknown)
		for _, k := range unknown {
			problems = append(problems, Problem{Path: path + "." + k, Message: "unknown key"})
		}
	}
	return out, problems
}

func applyValue(path string, key Key, raw any) (any, []Problem) {
	fail := func(format string, args ...any) (any, []Problem) {
		return nil, []Problem{{Path: path, Message: fmt.Sprintf(format, args...)}}
	}
	switch key.Kind {
	case KindString:
		s, ok := raw.(string)
		if !ok {
			return fail("expected a string, got %T", raw)
		}
		if len(key.Choices) > 0 && !contains(key.Choices, s) {
			return fail("value %q is not one of %v", s, key.Choices)
		}
		if key.Pattern != "" {
			if !regexp.MustCompile(key.Pattern).MatchString(s) {
				return fail("value %q does not match pattern %s", s, key.Pattern)
			}
		}
		return s, nil
	case KindInt:
		n, ok := asInt(raw)
		if !ok {
			return fail("expected an integer, got %v", raw)
		}
		if p := checkRange(path, float64(n), key); p != nil {
			return nil, p
		}
		return n, nil
	case KindFloat:
		f, ok := asFloat(raw)
		if !ok {
			return fail("expected a number, got %v", raw)
		}
		if p := checkRange(path, f, key); p != nil {
			return nil, p
		}
		return f, nil
	case KindBool:
		b, ok := raw.(bool)
		if !ok {
			return fail("expected a bool, got %v", raw)
		}
		return b, nil
	case KindQuantity:
		s, ok := raw.(string)
		if !ok {
			return fail("expected a quantity string, got %v", raw)
		}
		q, err := units.Parse(s)
		if err != nil {
			return fail("%v", err)
		}
		dim, _ := q.Dim()
		if dim != key.Dim {
			return fail("quantity %q has dimension %s, want %s", s, dim, key.Dim)
		}
		if p := checkRange(path, q.Magnitude, key); p != nil {
			return nil, p
		}
		return s, nil
	case KindDate:
		if _, err := ParseDate(raw); err != nil {
			return fail("%v", err)
		}
		return raw, nil
	case KindStringList:
		list, ok := asList(raw)
		if !ok {
			return fail("expected a list of strings, got %v", raw)
		}
		out := make([]string, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return fail("element %d: expected a string, got %v", i, item)
			}
			if len(key.Choices) > 0 && !contains(key.Choices, s) {
				return fail("element %d: value %q is not one of %v", i, s, key.Choices)
			}
			out[i] = s
		}
		return out, nil
	case KindFloatList:
		list, ok := asList(raw)
		if !ok {
			return fail("expected a list of numbers, got %v", raw)
		}
		out := make([]float64, len(list))
		for i, item := range list {
			f, ok := asFloat(item)
			if !ok {
				return fail("element %d: expected a number, got %v", i, item)
			}
			out[i] = f
		}
		return out, nil
	case KindMapping:
		m, ok := asMapping(raw)
		if !ok {
			return fail("expected a mapping, got %T", raw)
		}
		return applyKeys(path, key.Children, len(key.Children) == 0, m)
	case KindMappingList:
		list, ok := asList(raw)
		if !ok {
			return fail("expected a list of mappings, got %v", raw)
		}
		var problems []Problem
		out := make([]any, len(list))
		for i, item := range list {
			m, ok := asMapping(item)
			if !ok {
				problems = append(problems, Problem{
					Path:    fmt.Sprintf("%s[%d]", path, i),
					Message: fmt.Sprintf("expected a mapping, got %T", item),
				})
				continue
			}
			checked, nested := applyKeys(fmt.Sprintf("%s[%d]", path, i), key.Children, false, m)
			problems = append(problems, nested...)
			out[i] = checked
		}
		if len(problems) > 0 {
			return nil, problems
		}
		return out, nil
	default:
		return fail("unsupported kind %s", key.Kind)
	}
}

func checkRange(path string, v float64, key Key) []Problem {
	if key.Min != nil && v < *key.Min {
		return []Problem{{Path: path, Message: fmt.Sprintf("value %g is below minimum %g", v, *key.Min)}}
	}
	if key.Max != nil && v > *key.Max {
		return []Problem{{Path: path, Message: fmt.Sprintf("value %g is above maximum %g", v, *key.Max)}}
	}
	return nil
}

func asInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	}
	return 0, false
}

func asFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// asMapping accepts both string-keyed and any-keyed maps; yaml.v3 produces
// the former for top-level documents and the latter never, but merged
// documents built in code may carry either.
func asMapping(raw any) (map[string]any, bool) {
	switch m := raw.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			s, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[s] = v
		}
		return out, true
	}
	return nil, false
}

func asList(raw any) ([]any, bool) {
	switch v := raw.(type) {
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	case []float64:
		out := make([]any, len(v))
		for i, f := range v {
			out[i] = f
		}
		return out, true
	}
	return nil, false
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
