package model

import "testing"

func TestActorOwns(t *testing.T) {
	l := &Listing{Email: "Priya@Campus.edu"}
	tests := []struct {
		email    string
		expected bool
	}{
		{"priya@campus.edu", true},
		{"PRIYA@CAMPUS.EDU", true},
		{"someone@campus.edu", false},
		// Anonymous actors own nothing.
		{"", false},
	}

	for _, tt := range tests {
		got := Actor{Email: tt.email}.Owns(l)
		if got != tt.expected {
			t.Errorf("Actor{%q}.Owns = %v, want %v", tt.email, got, tt.expected)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Guard@NITJ.ac.in "); got != "guard@nitj.ac.in" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"", true},
		{"short", true},
		{"1234567", true},
		{"12345678", false},
		{"a-valid-password", false},
	}

	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
		}
	}
}

func TestItemFilterNormalize(t *testing.T) {
	f := ItemFilter{PerPage: 1000, Page: -3}
	f.Normalize()
	if f.PerPage != MaxPerPage || f.Page != 1 {
		t.Errorf("Normalize = %+v", f)
	}

	f = ItemFilter{}
	f.Normalize()
	if f.PerPage != DefaultPerPage {
		t.Errorf("expected default per page, got %d", f.PerPage)
	}
}

func TestParseItemKind(t *testing.T) {
	if k, ok := ParseItemKind("found"); !ok || k != KindFound {
		t.Errorf("ParseItemKind(found) = %q, %v", k, ok)
	}
	if _, ok := ParseItemKind("stolen"); ok {
		t.Error("expected unknown kind to be rejected")
	}
}
