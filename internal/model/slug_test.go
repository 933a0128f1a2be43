package model

import "testing"

func TestNewSlug_Valid(t *testing.T) {
	cases := []string{"a", "a1", "daily-standup", "a-b-c", "123"}
	for _, s := range cases {
		if _, err := NewSlug(s); err != nil {
			t.Errorf("NewSlug(%q) unexpected error: %v", s, err)
		}
	}
}

func TestNewSlug_Invalid(t *testing.T) {
	cases := []string{"", "Abc", "a_b", "-a", "a-", "a--b", "a b", "a.b"}
	for _, s := range cases {
		if _, err := NewSlug(s); err == nil {
			t.Errorf("NewSlug(%q) expected error, got nil", s)
		}
	}
}

func TestSlug_Equal(t *testing.T) {
	a, _ := NewSlug("foo")
	b, _ := NewSlug("foo")
	c, _ := NewSlug("bar")
	if !a.Equal(b) {
		t.Error("expected a == b")
	}
	if a.Equal(c) {
		t.Error("expected a != c")
	}
}
