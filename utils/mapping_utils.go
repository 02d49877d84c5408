package utils

import (
	"strings"
)

var colorCodes = map[string]string{
	"white":         "WH",
	"blanco":        "WH",
	"black":         "BK",
	"negro":         "BK",
	"red":           "RD",
	"rojo":          "RD",
	"gray":          "GR",
	"grey":          "GR",
	"gris jaspeado": "GR_JS",
	"navy":          "NV",
	"azul cielo":    "AC",
	"sky blue":      "AC",
	"yellow":        "YL",
	"amarillo":      "YL",
	"pink":          "PK",
	"rosado":        "PK",
	"green":         "GN",
	"verde militar": "VM",
}

var codeColors = map[string]string{
	"WH":    "white",
	"BK":    "black",
	"RD":    "red",
	"GR":    "gray",
	"GR_JS": "gris jaspeado",
	"NV":    "navy",
	"AC":    "sky blue",
	"YL":    "yellow",
	"PK":    "pink",
	"GN":    "green",
	"VM":    "verde militar",
}

// MapColorToCode maps garment color names to their short codes
// Input is normalized to lowercase before mapping
// Returns uppercase code; unknown colors are upper-cased with spaces replaced by '_'
func MapColorToCode(color string) string {
	colorLower := strings.ToLower(strings.TrimSpace(color))
	if code, exists := colorCodes[colorLower]; exists {
		return code
	}
	return strings.ToUpper(strings.Join(strings.Fields(colorLower), "_"))
}

// MapCodeToColor maps color codes back to their readable names
// Returns lowercase readable name
func MapCodeToColor(code string) string {
	codeUpper := strings.ToUpper(strings.TrimSpace(code))
	if color, exists := codeColors[codeUpper]; exists {
		return color
	}
	return strings.ToLower(strings.ReplaceAll(codeUpper, "_", " "))
}
