package theme

import "sort"

const Default = "trust_clarity"

type Theme struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Primary   string `json:"c1"`
	Secondary string `json:"c2"`
}

var themes = map[string]Theme{
	"trust_clarity":     {ID: "trust_clarity", Name: "Trust & Clarity", Primary: "#0F172A", Secondary: "#475569"},
	"modern_luxury":     {ID: "modern_luxury", Name: "Modern Luxury", Primary: "#1C1C1C", Secondary: "#6D6D6D"},
	"swiss_minimalist":  {ID: "swiss_minimalist", Name: "Swiss Minimalist", Primary: "#000000", Secondary: "#555555"},
	"forest_executive":  {ID: "forest_executive", Name: "Forest Executive", Primary: "#064E3B", Secondary: "#3F6258"},
	"warm_editorial":    {ID: "warm_editorial", Name: "Warm Editorial", Primary: "#4A3B32", Secondary: "#8C7B70"},
	"dark_mode_premium": {ID: "dark_mode_premium", Name: "Dark Mode Premium", Primary: "#18181B", Secondary: "#A1A1AA"},
	"slate_clay":        {ID: "slate_clay", Name: "Slate & Clay", Primary: "#334155", Secondary: "#94A3B8"},
	"royal_academic":    {ID: "royal_academic", Name: "Royal Academic", Primary: "#2E1065", Secondary: "#584A6D"},
	"industrial_chic":   {ID: "industrial_chic", Name: "Industrial Chic", Primary: "#262626", Secondary: "#737373"},
	"sunset_corporate":  {ID: "sunset_corporate", Name: "Sunset Corporate", Primary: "#7C2D12", Secondary: "#A87666"},
}

func Lookup(id string) (Theme, bool) {
	t, ok := themes[id]
	return t, ok
}

// Resolve returns the theme id to store, falling back to Default for unknown ids.
func Resolve(id string) string {
	if _, ok := themes[id]; ok {
		return id
	}
	return Default
}

func IDs() []string {
	ids := make([]string, 0, len(themes))
	for id := range themes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
