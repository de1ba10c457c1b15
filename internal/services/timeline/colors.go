package timeline

import "sort"

// FallbackColor is used when the palette is empty.
const FallbackColor = "#718096"

// DefaultPalette is the chart palette used when none is configured.
var DefaultPalette = []string{
	"#E53E3E",
	"#DD6B20",
	"#D69E2E",
	"#38A169",
	"#319795",
	"#3182CE",
	"#5A67D8",
	"#805AD5",
	"#D53F8C",
	"#718096",
}

// AssignColors maps each distinct symbol to a palette entry. Symbols are
// sorted first, so the table depends only on the symbol set. Colors repeat
// once the palette is exhausted.
func AssignColors(symbols []string, palette []string) map[string]string {
	seen := make(map[string]bool, len(symbols))
	unique := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		unique = append(unique, s)
	}
	sort.Strings(unique)

	colors := make(map[string]string, len(unique))
	for i, s := range unique {
		if len(palette) == 0 {
			colors[s] = FallbackColor
			continue
		}
		colors[s] = palette[i%len(palette)]
	}
	return colors
}
