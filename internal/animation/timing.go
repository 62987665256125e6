// Package animation reads CSS keyframe animation timing and rewrites
// stylesheets so that every animation is paused at a given instant.
package animation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
)

// Timing is one animation applied by a rule.
type Timing struct {
	Name       string
	DurationMs float64
	DelayMs    float64
	Iterations float64
	Infinite   bool
}

// None reports a placeholder entry of animation-name: none. It applies no
// animation but still takes a position in every animation-* list.
func (t Timing) None() bool {
	return strings.EqualFold(t.Name, "none")
}

// EndMs is the instant the animation stops changing. Infinite animations
// count as a single iteration.
func (t Timing) EndMs() float64 {
	iterations := t.Iterations
	if t.Infinite {
		iterations = 1
	}
	return t.DelayMs + t.DurationMs*iterations
}

// Timings returns every animation declared by the stylesheet, in rule order.
func Timings(stylesheet string) ([]Timing, error) {
	sheet, err := parser.Parse(stylesheet)
	if err != nil {
		return nil, fmt.Errorf("parse stylesheet: %w", err)
	}

	var out []Timing
	walkQualified(sheet.Rules, func(rule *css.Rule) {
		for _, t := range ruleTimings(rule.Declarations) {
			if !t.None() {
				out = append(out, t)
			}
		}
	})
	return out, nil
}

// PlayableDuration is the end of the last animation in the stylesheet,
// rounded up to a whole millisecond. A stylesheet without animations has
// no playable duration.
func PlayableDuration(stylesheet string) (int64, error) {
	timings, err := Timings(stylesheet)
	if err != nil {
		return 0, err
	}

	var end float64
	for _, t := range timings {
		end = math.Max(end, t.EndMs())
	}
	return int64(math.Ceil(end)), nil
}

// walkQualified visits style rules, descending into conditional group rules
// but not into @keyframes blocks.
func walkQualified(rules []*css.Rule, fn func(*css.Rule)) {
	for _, rule := range rules {
		switch {
		case rule.Kind == css.QualifiedRule:
			fn(rule)
		case rule.Name == "@media" || rule.Name == "@supports" || rule.Name == "@document":
			walkQualified(rule.Rules, fn)
		}
	}
}

// ruleTimings resolves the animation declarations of one rule, one entry
// per animation name, none entries included. Later declarations override
// earlier ones; the shorthand resets every list.
func ruleTimings(decls []*css.Declaration) []Timing {
	var (
		names, durations, delays, counts []string
		seen                             bool
	)

	for _, d := range decls {
		switch strings.ToLower(d.Property) {
		case "animation":
			seen = true
			names, durations, delays, counts = nil, nil, nil, nil
			for _, item := range splitTopLevel(d.Value, ',') {
				n, dur, del, cnt := parseShorthand(item)
				names = append(names, n)
				durations = append(durations, dur)
				delays = append(delays, del)
				counts = append(counts, cnt)
			}
		case "animation-name":
			seen = true
			names = splitList(d.Value)
		case "animation-duration":
			seen = true
			durations = splitList(d.Value)
		case "animation-delay":
			seen = true
			delays = splitList(d.Value)
		case "animation-iteration-count":
			seen = true
			counts = splitList(d.Value)
		}
	}
	if !seen {
		return nil
	}

	// the name list decides how many animations there are, shorter lists repeat
	n := len(names)
	if n == 0 {
		n = max(len(durations), len(delays), len(counts))
	}
	out := make([]Timing, 0, n)
	for i := 0; i < n; i++ {
		t := Timing{Iterations: 1}
		t.Name = at(names, i)
		if v, ok := parseTime(at(durations, i)); ok {
			t.DurationMs = v
		}
		if v, ok := parseTime(at(delays, i)); ok {
			t.DelayMs = v
		}
		switch c := at(counts, i); {
		case c == "infinite":
			t.Infinite = true
		case c != "":
			if v, err := strconv.ParseFloat(c, 64); err == nil && v >= 0 {
				t.Iterations = v
			}
		}
		out = append(out, t)
	}
	return out
}

// parseShorthand pulls name, duration, delay and iteration count out of one
// `animation` shorthand item. The first time value is the duration, the
// second the delay.
func parseShorthand(item string) (name, duration, delay, count string) {
	for _, tok := range splitTopLevel(item, ' ') {
		if _, ok := parseTime(tok); ok {
			if duration == "" {
				duration = tok
			} else if delay == "" {
				delay = tok
			}
			continue
		}
		if tok == "infinite" {
			count = tok
			continue
		}
		if _, err := strconv.ParseFloat(tok, 64); err == nil {
			count = tok
			continue
		}
		if !isKeyword(tok) && name == "" {
			name = tok
		}
	}
	return name, duration, delay, count
}

var keywords = map[string]bool{
	"linear": true, "ease": true, "ease-in": true, "ease-out": true, "ease-in-out": true,
	"step-start": true, "step-end": true,
	"normal": true, "reverse": true, "alternate": true, "alternate-reverse": true,
	"none": true, "forwards": true, "backwards": true, "both": true,
	"running": true, "paused": true,
	"initial": true, "inherit": true, "unset": true,
}

func isKeyword(tok string) bool {
	t := strings.ToLower(tok)
	return keywords[t] || strings.HasPrefix(t, "cubic-bezier(") || strings.HasPrefix(t, "steps(")
}

// parseTime reads a CSS <time> ("1.5s", "200ms") as milliseconds.
func parseTime(tok string) (float64, bool) {
	tok = strings.ToLower(strings.TrimSpace(tok))
	var unit float64
	switch {
	case strings.HasSuffix(tok, "ms"):
		unit, tok = 1, strings.TrimSuffix(tok, "ms")
	case strings.HasSuffix(tok, "s"):
		unit, tok = 1000, strings.TrimSuffix(tok, "s")
	default:
		return 0, false
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, false
	}
	return v * unit, true
}

func splitList(v string) []string {
	return splitTopLevel(v, ',')
}

// splitTopLevel splits s on sep outside of parentheses, trimming blanks and
// dropping empty parts.
func splitTopLevel(s string, sep rune) []string {
	var (
		out   []string
		depth int
		cur   strings.Builder
	)
	flush := func() {
		if p := strings.TrimSpace(cur.String()); p != "" {
			out = append(out, p)
		}
		cur.Reset()
	}

	for _, r := range s {
		switch {
		case r == '(':
			depth++
		case r == ')' && depth > 0:
			depth--
		case depth == 0 && (r == sep || (sep == ' ' && (r == '\t' || r == '\n'))):
			flush()
			continue
		}
		cur.WriteRune(r)
	}
	flush()
	return out
}

func at(list []string, i int) string {
	if len(list) == 0 {
		return ""
	}
	return list[i%len(list)]
}
