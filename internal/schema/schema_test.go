package schema

import (
	"errors"
	"strings"
	"testing"

	"github.com/mesocosm/mesocosm/internal/units"
)

func soilFragment() Fragment {
	return Fragment{
		Section: "soil",
		Keys: []Key{
			{Name: "decay_rate", Kind: KindFloat, Default: 0.1, Min: Float(0), Max: Float(1)},
			{Name: "pools", Kind: KindInt, Required: true},
		},
	}
}

func TestMergeCollapsesIdenticalFragments(t *testing.T) {
	s, err := Merge(soilFragment(), soilFragment())
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if got := s.Sections(); len(got) != 1 || got[0] != "soil" {
		t.Fatalf("unexpected sections %v", got)
	}
}

func TestMergeConflict(t *testing.T) {
	other := soilFragment()
	other.Keys[0].Default = 0.5
	_, err := Merge(soilFragment(), other)
	if err == nil {
		t.Fatalf("expected conflict")
	}
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError got %T: %v", err, err)
	}
	if conflict.Section != "soil" {
		t.Fatalf("wrong section %q", conflict.Section)
	}
}

func TestMergeRejectsBadFragments(t *testing.T) {
	cases := []Fragment{
		{Section: ""},
		{Section: "m", Keys: []Key{{Name: "a", Kind: KindString}, {Name: "a", Kind: KindInt}}},
		{Section: "m", Keys: []Key{{Name: "a", Kind: KindString, Children: []Key{{Name: "b", Kind: KindInt}}}}},
		{Section: "m", Keys: []Key{{Name: "a", Kind: KindQuantity}}},
		{Section: "m", Keys: []Key{{Name: "a", Kind: KindString, Pattern: "("}}},
		{Section: "m", Keys: []Key{{Name: "a", Kind: KindInt, Default: "nope"}}},
		{Section: "m", Keys: []Key{{Name: "a", Kind: KindQuantity, Dim: units.DimTime, Default: "3 mm"}}},
	}
	for i, f := range cases {
		if _, err := Merge(f); err == nil {
			t.Fatalf("case %d: expected error for %+v", i, f)
		}
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2020-01-01")
	if err != nil {
		t.Fatalf("parse date failed: %v", err)
	}
	if got.Year() != 2020 || got.Month() != 1 || got.Day() != 1 {
		t.Fatalf("unexpected date %v", got)
	}
	if _, err := ParseDate("not a date"); err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(errorString(ParseDate("not a date")), "cannot parse date") {
		t.Fatalf("unexpected message")
	}
}

func errorString(_ any, err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
