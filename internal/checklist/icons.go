package checklist

import "strings"

type iconRule struct {
	onItem   bool
	keywords []string
	icon     string
}

// Item keywords are checked before category keywords; first match wins.
var iconRules = []iconRule{
	{true, []string{"engine", "motor"}, "🔧"},
	{true, []string{"hydraulic", "fluid"}, "🛠️"},
	{true, []string{"brake", "stop"}, "🛑"},
	{true, []string{"light", "beam"}, "💡"},
	{true, []string{"tire", "wheel"}, "🛞"},
	{true, []string{"seat", "belt"}, "🪑"},
	{true, []string{"fire", "extinguisher"}, "🧯"},
	{true, []string{"horn", "alarm"}, "📯"},
	{true, []string{"mirror", "vision"}, "🪞"},
	{true, []string{"fuel", "gas"}, "⛽"},
	{true, []string{"battery", "electrical"}, "🔋"},
	{true, []string{"winch", "cable"}, "⚙️"},
	{true, []string{"boom", "arm"}, "🏗️"},
	{true, []string{"track", "chain"}, "🔗"},
	{false, []string{"crane", "mobile"}, "🏗️"},
	{false, []string{"engine", "mechanical"}, "⚙️"},
	{false, []string{"safety", "warning"}, "⚠️"},
	{false, []string{"electrical", "control"}, "⚡"},
	{false, []string{"hydraulic", "fluid"}, "🛠️"},
}

const defaultIcon = "📋"

// DefaultIcon picks a placeholder icon for an item without a photo.
func DefaultIcon(categoryTitle, itemText string) string {
	category := strings.ToLower(categoryTitle)
	item := strings.ToLower(itemText)
	for _, r := range iconRules {
		subject := category
		if r.onItem {
			subject = item
		}
		for _, kw := range r.keywords {
			if strings.Contains(subject, kw) {
				return r.icon
			}
		}
	}
	return defaultIcon
}
