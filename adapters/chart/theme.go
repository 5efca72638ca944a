package chart

import (
	"strings"

	"behaviorkit/internal/errors"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Theme is a named styling bundle applied before drawing, independent of
// plot kind.
type Theme struct {
	Name            string
	Palette         []drawing.Color
	Background      drawing.Color
	Grid            drawing.Color
	Text            drawing.Color
	FontSize        float64
	TitleFontSize   float64
	StrokeWidth     float64
	DotWidth        float64
	MarkerFontScale float64 // significance markers relative to FontSize
}

// qualitativePalette is the eight-colour colorblind-safe set used for
// series colours in the default theme
func qualitativePalette() []drawing.Color {
	hexes := []string{"000000", "E69F00", "56B4E9", "009E73", "F0E442", "0072B2", "D55E00", "CC79A7"}
	palette := make([]drawing.Color, len(hexes))
	for i, h := range hexes {
		palette[i] = drawing.ColorFromHex(h)
	}
	return palette
}

var themeRegistry = map[string]Theme{
	"behavior": {
		Name:            "behavior",
		Palette:         qualitativePalette(),
		Background:      drawing.ColorWhite,
		Grid:            drawing.Color{R: 220, G: 220, B: 220, A: 255},
		Text:            drawing.Color{R: 51, G: 51, B: 51, A: 255},
		FontSize:        10,
		TitleFontSize:   14,
		StrokeWidth:     2,
		DotWidth:        4,
		MarkerFontScale: 1.4,
	},
	"dark": {
		Name:            "dark",
		Palette:         qualitativePalette()[1:], // black series invisible on dark
		Background:      drawing.Color{R: 30, G: 30, B: 34, A: 255},
		Grid:            drawing.Color{R: 70, G: 70, B: 76, A: 255},
		Text:            drawing.Color{R: 230, G: 230, B: 230, A: 255},
		FontSize:        10,
		TitleFontSize:   14,
		StrokeWidth:     2,
		DotWidth:        4,
		MarkerFontScale: 1.4,
	},
	"minimal": {
		Name:            "minimal",
		Palette:         []drawing.Color{drawing.ColorBlack, {R: 120, G: 120, B: 120, A: 255}, {R: 180, G: 180, B: 180, A: 255}},
		Background:      drawing.ColorWhite,
		Grid:            drawing.ColorTransparent,
		Text:            drawing.ColorBlack,
		FontSize:        9,
		TitleFontSize:   12,
		StrokeWidth:     1,
		DotWidth:        3,
		MarkerFontScale: 1.2,
	},
}

// DefaultTheme returns the behavior theme
func DefaultTheme() Theme {
	return themeRegistry["behavior"]
}

// ThemeForName resolves a theme by name
func ThemeForName(name string) (Theme, error) {
	if t, ok := themeRegistry[name]; ok {
		return t, nil
	}
	return Theme{}, errors.PlotConfigInvalidf("unknown theme %q (known: %s)", name, strings.Join(ThemeNames(), ", "))
}

// ThemeNames lists registered theme names, sorted
func ThemeNames() []string {
	names := make([]string, 0, len(themeRegistry))
	for name := range themeRegistry {
		names = append(names, name)
	}
	for i := 0; i < len(names)-1; i++ {
		for j := i + 1; j < len(names); j++ {
			if names[i] > names[j] {
				names[i], names[j] = names[j], names[i]
			}
		}
	}
	return names
}

// SeriesColor cycles the palette for the i-th series
func (t Theme) SeriesColor(i int) drawing.Color {
	return t.Palette[i%len(t.Palette)]
}
