package utils

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode"
)

var (
	imageExtRegex = regexp.MustCompile(`(?i)\.(png|jpe?g|webp|gif)$`)
	// leading sort prefixes such as "01-" or "IT0001_"
	sortPrefixRegex = regexp.MustCompile(`^(?i)([a-z]{0,2}\d+)[-_ ]+`)
)

// ArtworkFileName is what can be read from an uploaded artwork file name
type ArtworkFileName struct {
	Title string
	Tags  []string
}

// ParseArtworkFileName derives a display title and tags from an image file name.
// Example: "02-sunset_palm-trees.PNG" -> Title "Sunset Palm Trees", Tags [sunset palm trees]
func ParseArtworkFileName(filename string) (*ArtworkFileName, error) {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if !imageExtRegex.MatchString(base) {
		return nil, fmt.Errorf("invalid artwork file %q: expected a png, jpg, webp or gif image", filename)
	}
	name := imageExtRegex.ReplaceAllString(base, "")
	name = sortPrefixRegex.ReplaceAllString(name, "")

	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_' || r == '.' || unicode.IsSpace(r)
	})
	if len(words) == 0 {
		return nil, fmt.Errorf("invalid artwork file %q: name has no words", filename)
	}

	parsed := &ArtworkFileName{Tags: make([]string, 0, len(words))}
	seen := make(map[string]bool, len(words))
	titled := make([]string, len(words))
	for i, w := range words {
		lower := strings.ToLower(w)
		titled[i] = capitalize(lower)
		if !seen[lower] {
			seen[lower] = true
			parsed.Tags = append(parsed.Tags, lower)
		}
	}
	parsed.Title = strings.Join(titled, " ")
	return parsed, nil
}

func capitalize(s string) string {
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
