package engine

import "strings"

// Tier is a speed/accuracy trade-off the user picks. Each tier maps to one
// model identifier per catalog.
type Tier int

const (
	HighAccuracy Tier = iota
	Fast
	Balanced
	Fastest
)

var tierNames = map[Tier]string{
	HighAccuracy: "high-accuracy",
	Fast:         "fast",
	Balanced:     "balanced",
	Fastest:      "fastest",
}

var tierLabels = map[Tier]string{
	HighAccuracy: "🎯 High Accuracy",
	Fast:         "⚡ Fast",
	Balanced:     "⚖️ Balanced",
	Fastest:      "🚀 Fastest",
}

func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return tierNames[HighAccuracy]
}

// Label is the display name used by the web UI.
func (t Tier) Label() string {
	if label, ok := tierLabels[t]; ok {
		return label
	}
	return tierLabels[HighAccuracy]
}

// Tiers lists all tiers from most accurate to fastest.
func Tiers() []Tier {
	return []Tier{HighAccuracy, Fast, Balanced, Fastest}
}

// ParseTier accepts a kebab-case name or a UI label. Unrecognized input
// silently selects HighAccuracy.
func ParseTier(s string) Tier {
	key := strings.ToLower(strings.TrimSpace(s))
	for t, name := range tierNames {
		if key == name || key == strings.ToLower(tierLabels[t]) {
			return t
		}
	}

	// labels without the leading emoji, e.g. "High Accuracy"
	key = strings.ReplaceAll(key, " ", "-")
	for t, name := range tierNames {
		if key == name {
			return t
		}
	}
	return HighAccuracy
}
