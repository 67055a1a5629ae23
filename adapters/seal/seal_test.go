package seal

import (
	"errors"
	"strings"
	"testing"
)

func TestSealer_RoundTrip(t *testing.T) {
	s := New("correct horse")
	sealed, err := s.Seal("tok_123")
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if strings.Contains(sealed, "tok_123") {
		t.Errorf("sealed value contains plaintext: %q", sealed)
	}

	plain, err := s.Open(sealed)
	if err != nil || plain != "tok_123" {
		t.Errorf("Open() = %q, %v; want tok_123", plain, err)
	}
}

func TestSealer_Disabled(t *testing.T) {
	var s Sealer
	if s.Enabled() {
		t.Error("zero Sealer should be disabled")
	}
	sealed, _ := s.Seal("tok")
	if sealed != "tok" {
		t.Errorf("Seal() = %q, want plaintext", sealed)
	}
}

func TestSealer_OpenErrors(t *testing.T) {
	sealed, _ := New("a").Seal("tok")

	tests := []struct {
		name   string
		sealer Sealer
		value  string
		want   string
		err    error
	}{
		{"wrong key", New("b"), sealed, "", ErrOpen},
		{"no key", Sealer{}, sealed, "", ErrOpen},
		{"corrupt", New("a"), prefix + "!!", "", ErrOpen},
		{"plaintext passes", New("a"), "legacy", "legacy", nil},
		{"empty", New("a"), "", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.sealer.Open(tt.value)
			if !errors.Is(err, tt.err) || got != tt.want {
				t.Errorf("Open() = %q, %v; want %q, %v", got, err, tt.want, tt.err)
			}
		})
	}
}
