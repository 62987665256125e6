package animation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
)

// Freeze rewrites stylesheet so that every animation is paused exactly atMs
// milliseconds into its timeline. Each animated rule gets a negative
// animation-delay (its own delay minus atMs) and a paused play state, both
// marked !important so later rules cannot resume playback.
func Freeze(stylesheet string, atMs float64) (string, error) {
	sheet, err := parser.Parse(stylesheet)
	if err != nil {
		return "", fmt.Errorf("parse stylesheet: %w", err)
	}

	walkQualified(sheet.Rules, func(rule *css.Rule) {
		timings := ruleTimings(rule.Declarations)
		if len(timings) == 0 {
			return
		}

		delays := make([]string, len(timings))
		for i, t := range timings {
			delays[i] = formatMs(t.DelayMs - atMs)
		}

		rule.Declarations = append(rule.Declarations,
			&css.Declaration{Property: "animation-delay", Value: strings.Join(delays, ", "), Important: true},
			&css.Declaration{Property: "animation-play-state", Value: "paused", Important: true},
		)
	})

	return sheet.String(), nil
}

func formatMs(ms float64) string {
	return strconv.FormatFloat(ms, 'f', -1, 64) + "ms"
}
