// Package suggest ranks close matches for mistyped field names and option
// values.
package suggest

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// MaxSuggestions caps how many candidates Closest returns.
const MaxSuggestions = 3

type scored struct {
	val   string
	score float64
}

// Closest returns up to MaxSuggestions candidates near input, best first.
// Exact matches are not suggestions and yield nil.
func Closest(input string, candidates []string) []string {
	token := strings.ToLower(strings.TrimSpace(input))
	if token == "" {
		return nil
	}
	var results []scored
	for _, cand := range candidates {
		lc := strings.ToLower(cand)
		var score float64
		switch {
		case lc == token:
			return nil
		case strings.HasPrefix(lc, token) && len(token) >= 2:
			score = 0.9
		case strings.Contains(lc, token) && len(token) >= 3:
			score = 0.8
		default:
			dist := levenshtein.ComputeDistance(token, lc)
			if dist > distanceLimit(len(lc)) {
				continue
			}
			score = 0.72 - (0.08 * float64(dist))
		}
		results = append(results, scored{val: cand, score: score})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score == results[j].score {
			return results[i].val < results[j].val
		}
		return results[i].score > results[j].score
	})
	var out []string
	for _, r := range results {
		out = append(out, r.val)
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out
}

// Hint formats suggestions for an error message, or returns "".
func Hint(input string, candidates []string) string {
	s := Closest(input, candidates)
	if len(s) == 0 {
		return ""
	}
	return "did you mean " + strings.Join(s, ", ") + "?"
}

func distanceLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}
