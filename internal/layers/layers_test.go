package layers

import "testing"

func TestStackLayout(t *testing.T) {
	s, err := New(10, 2)
	if err != nil {
		t.Fatalf("new stack failed: %v", err)
	}
	if s.Total() != 15 {
		t.Fatalf("expected 15 layers got %d", s.Total())
	}
	if s.AboveGround() != 13 {
		t.Fatalf("expected 13 above-ground layers got %d", s.AboveGround())
	}
	if s.Above() != 0 || s.Role(0) != RoleAbove {
		t.Fatalf("above layer misplaced")
	}
	canopy := s.Canopy()
	if len(canopy) != 10 || canopy[0] != 1 || canopy[9] != 10 {
		t.Fatalf("canopy indices %v", canopy)
	}
	if s.Subcanopy() != 11 || s.Role(11) != RoleSubcanopy {
		t.Fatalf("subcanopy misplaced at %d", s.Subcanopy())
	}
	if s.Surface() != 12 || s.Role(12) != RoleSurface {
		t.Fatalf("surface misplaced at %d", s.Surface())
	}
	soil := s.Soil()
	if len(soil) != 2 || soil[0] != 13 || soil[1] != 14 {
		t.Fatalf("soil indices %v", soil)
	}
}

func TestStackRejectsBadCounts(t *testing.T) {
	if _, err := New(0, 2); err == nil {
		t.Fatalf("expected error for zero canopy layers")
	}
	if _, err := New(11, 2); err == nil {
		t.Fatalf("expected error for too many canopy layers")
	}
	if _, err := New(5, 0); err == nil {
		t.Fatalf("expected error for zero soil layers")
	}
}
