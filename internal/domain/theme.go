package domain

import "strings"

// DefaultTheme is used whenever a stored or requested theme is empty or unknown.
const DefaultTheme = "aqua"

// ThemeOption describes one storefront theme.
type ThemeOption struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Preview string `json:"preview"`
}

var ThemeOptions = []ThemeOption{
	{ID: "aqua", Name: "Aqua Flow", Preview: "linear-gradient(120deg, #0ea5e9, #38bdf8)"},
	{ID: "sunset", Name: "Sunset Amber", Preview: "linear-gradient(120deg, #fb923c, #f97316)"},
	{ID: "forest", Name: "Forest Matcha", Preview: "linear-gradient(120deg, #22c55e, #84cc16)"},
	{ID: "noir", Name: "Noir Velvet", Preview: "linear-gradient(120deg, #0f172a, #312e81)"},
	{ID: "berry", Name: "Berry Punch", Preview: "linear-gradient(120deg, #ec4899, #a855f7)"},
	{ID: "mint", Name: "Mint Breeze", Preview: "linear-gradient(120deg, #06b6d4, #22d3ee)"},
	{ID: "sand", Name: "Sandy Latte", Preview: "linear-gradient(120deg, #d97757, #f8c88c)"},
	{ID: "navy", Name: "Navy Coral", Preview: "linear-gradient(120deg, #1d4ed8, #0ea5e9)"},
}

// IsTheme reports whether id names one of ThemeOptions.
func IsTheme(id string) bool {
	for _, t := range ThemeOptions {
		if t.ID == id {
			return true
		}
	}
	return false
}

// NormalizeTheme trims id and falls back to DefaultTheme when it is empty or unknown.
func NormalizeTheme(id string) string {
	id = strings.TrimSpace(id)
	if !IsTheme(id) {
		return DefaultTheme
	}
	return id
}
