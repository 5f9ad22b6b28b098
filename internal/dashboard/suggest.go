package dashboard

import (
	"strings"

	"github.com/i474232898/weather-dashboard/internal/common"
)

const maxSuggestions = 6

// PopularCities are offered as search suggestions.
var PopularCities = []string{
	"London", "New York", "Tokyo", "Paris", "Sydney", "Berlin",
	"Toronto", "Singapore", "Dubai", "Mumbai", "Los Angeles", "Chicago",
	"Bangkok", "Rome", "Istanbul", "Madrid", "Amsterdam", "Seoul",
	"Cairo", "Rio de Janeiro", "Lima", "Lisbon", "Vienna", "Prague",
	"Budapest", "Athens", "Stockholm", "Oslo", "Helsinki", "Copenhagen",
}

// Suggest returns up to six popular cities containing input, ignoring case.
func Suggest(input string) []string {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}
	var out []string
	for _, city := range PopularCities {
		if common.ContainsFold(city, input) {
			out = append(out, city)
			if len(out) == maxSuggestions {
				break
			}
		}
	}
	return out
}
