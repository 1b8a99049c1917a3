package colorutil

import "testing"

func TestIsDark(t *testing.T) {
	tests := []struct {
		name string
		hex  string
		want bool
	}{
		{"black", "#000000", true},
		{"white", "#ffffff", false},
		{"navy", "001f3f", true},
		{"light gray", "#dddddd", false},
		{"shorthand dark", "#123", true},
		{"shorthand light", "fff", false},
		{"pure red", "#ff0000", true},
		{"pure green", "#00ff00", false},
		{"empty", "", false},
		{"junk", "#zzzzzz", false},
		{"wrong length", "#ffff", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDark(tt.hex); got != tt.want {
				t.Errorf("IsDark(%q) = %v, want %v", tt.hex, got, tt.want)
			}
		})
	}
}
