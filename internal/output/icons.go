package output

import "github.com/i474232898/nws-weather/internal/common"

// iconRule maps condition keywords to a glyph. Rules are checked in order and
// the first match wins, so specific phrases must precede general ones.
type iconRule struct {
	keywords []string
	glyph    string
	light    string // used instead of glyph when the condition also says "light"
}

var iconTables = map[IconSet]struct {
	rules    []iconRule
	fallback string
}{
	IconsNerdFont: {
		rules: []iconRule{
			{keywords: []string{"mostly sunny"}, glyph: "\U000F0595"},
			{keywords: []string{"sunny", "clear"}, glyph: "\U000F0599"},
			{keywords: []string{"partly"}, glyph: "\U000F0595"},
			{keywords: []string{"cloud", "overcast"}, glyph: "\U000F0590"},
			{keywords: []string{"thunder", "storm"}, glyph: "\U000F0593"},
			{keywords: []string{"rain", "showers"}, glyph: "\U000F0596", light: "\U000F0597"},
			{keywords: []string{"snow"}, glyph: "\U000F0F36", light: "\U000F0598"},
			{keywords: []string{"fog", "mist"}, glyph: "\U000F0591"},
			{keywords: []string{"wind"}, glyph: "\U000F059D"},
			{keywords: []string{"hot"}, glyph: "\U000F050F"},
			{keywords: []string{"cold"}, glyph: "\U000F0512"},
		},
		fallback: "\U000F059A",
	},
	IconsUnicode: {
		rules: []iconRule{
			{keywords: []string{"mostly sunny"}, glyph: "🌤"},
			{keywords: []string{"sunny", "clear"}, glyph: "☀"},
			{keywords: []string{"partly"}, glyph: "⛅"},
			{keywords: []string{"cloud"}, glyph: "☁"},
			{keywords: []string{"thunder"}, glyph: "⛈"},
			{keywords: []string{"rain", "showers"}, glyph: "🌧"},
			{keywords: []string{"snow"}, glyph: "❄"},
			{keywords: []string{"fog", "mist"}, glyph: "🌫"},
			{keywords: []string{"wind"}, glyph: "💨"},
		},
		fallback: "🌡",
	},
	IconsEmoji: {
		rules: []iconRule{
			{keywords: []string{"mostly sunny"}, glyph: "🌤️"},
			{keywords: []string{"sunny", "clear"}, glyph: "☀️"},
			{keywords: []string{"partly"}, glyph: "⛅"},
			{keywords: []string{"cloud"}, glyph: "☁️"},
			{keywords: []string{"thunder"}, glyph: "⛈️"},
			{keywords: []string{"rain", "showers"}, glyph: "🌧️"},
			{keywords: []string{"snow"}, glyph: "❄️"},
			{keywords: []string{"fog", "mist"}, glyph: "🌫️"},
			{keywords: []string{"wind"}, glyph: "💨"},
		},
		fallback: "🌡️",
	},
	IconsText: {
		rules: []iconRule{
			{keywords: []string{"mostly sunny"}, glyph: "M.SUN"},
			{keywords: []string{"sunny", "clear"}, glyph: "SUN"},
			{keywords: []string{"partly"}, glyph: "P.CLY"},
			{keywords: []string{"cloud"}, glyph: "CLDY"},
			{keywords: []string{"thunder"}, glyph: "THRM"},
			{keywords: []string{"rain", "showers"}, glyph: "RAIN"},
			{keywords: []string{"snow"}, glyph: "SNOW"},
			{keywords: []string{"fog", "mist"}, glyph: "FOG"},
			{keywords: []string{"wind"}, glyph: "WIND"},
		},
		fallback: "WX",
	},
}

// Icon returns the glyph for an NWS short forecast such as "Chance Light Rain".
// Unknown icon sets use the nerdfont table.
func Icon(condition string, set IconSet) string {
	table, ok := iconTables[set]
	if !ok {
		table = iconTables[IconsNerdFont]
	}

	for _, rule := range table.rules {
		if !common.HasAny(condition, rule.keywords...) {
			continue
		}
		if rule.light != "" && common.HasAny(condition, "light") {
			return rule.light
		}
		return rule.glyph
	}
	return table.fallback
}
