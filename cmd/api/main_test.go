package main

import "testing"

func TestParseTopK(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 5},
		{"3", 3},
		{"1", 1},
		{"20", 20},
		{"0", 1},
		{"-4", 1},
		{"9999", 20},
		{"not-a-number", 5},
	}
	for _, tt := range tests {
		if got := parseTopK(tt.in); got != tt.want {
			t.Errorf("parseTopK(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
