package speech

import (
	"errors"
	"fmt"
	"testing"
)

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{
			name: "categorized error",
			err:  NewError(CategoryAuth, "op", "rejected", nil),
			want: CategoryAuth,
		},
		{
			name: "wrapped categorized error",
			err:  fmt.Errorf("outer: %w", NewError(CategoryRateLimit, "op", "slow down", nil)),
			want: CategoryRateLimit,
		},
		{
			name: "plain error defaults to transient",
			err:  errors.New("something odd"),
			want: CategoryTransient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CategoryOf(tt.err); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCategoryCancelsUtterance(t *testing.T) {
	tests := []struct {
		cat  Category
		want bool
	}{
		{CategoryAuth, true},
		{CategoryRateLimit, true},
		{CategoryDevice, true},
		{CategoryTransient, false},
		{CategoryCredential, false},
		{CategoryCapability, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.cat), func(t *testing.T) {
			if got := tt.cat.CancelsUtterance(); got != tt.want {
				t.Errorf("Expected %v for %v, got %v", tt.want, tt.cat, got)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewError(CategoryDevice, "open", "device gone", cause)

	if !errors.Is(err, cause) {
		t.Error("Expected errors.Is to find the cause")
	}

	var e *Error
	if !errors.As(err, &e) {
		t.Fatal("Expected errors.As to extract *Error")
	}
	if e.Op != "open" {
		t.Errorf("Expected op open, got %q", e.Op)
	}
}
