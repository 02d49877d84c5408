package utils

import (
	"reflect"
	"testing"
)

func TestFormatCOP(t *testing.T) {
	tests := []struct {
		amount int64
		want   string
	}{
		{0, "$0"},
		{500, "$500"},
		{12500, "$12.500"},
		{1250000, "$1.250.000"},
		{-45000, "-$45.000"},
	}
	for _, tt := range tests {
		if got := FormatCOP(tt.amount); got != tt.want {
			t.Errorf("FormatCOP(%d) = %q, want %q", tt.amount, got, tt.want)
		}
	}
}

func TestParseArtworkFileName(t *testing.T) {
	tests := []struct {
		name      string
		filename  string
		wantTitle string
		wantTags  []string
		wantErr   bool
	}{
		{"prefixed", "02-sunset_palm-trees.PNG", "Sunset Palm Trees", []string{"sunset", "palm", "trees"}, false},
		{"coded prefix", "IT0001_happy dog.jpg", "Happy Dog", []string{"happy", "dog"}, false},
		{"path", "designs/cat-cat.webp", "Cat Cat", []string{"cat"}, false},
		{"not an image", "notes.txt", "", nil, true},
		{"only prefix", "01-.png", "", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArtworkFileName(tt.filename)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Title != tt.wantTitle || !reflect.DeepEqual(got.Tags, tt.wantTags) {
				t.Errorf("got %q %v, want %q %v", got.Title, got.Tags, tt.wantTitle, tt.wantTags)
			}
		})
	}
}

func TestColorCodes(t *testing.T) {
	if got := MapColorToCode(" Black "); got != "BK" {
		t.Errorf("MapColorToCode(Black) = %q", got)
	}
	if got := MapColorToCode("heather blue"); got != "HEATHER_BLUE" {
		t.Errorf("unknown color code = %q", got)
	}
	if got := MapCodeToColor("wh"); got != "white" {
		t.Errorf("MapCodeToColor(wh) = %q", got)
	}
	if got := MapCodeToColor("HEATHER_BLUE"); got != "heather blue" {
		t.Errorf("unknown code = %q", got)
	}
}
