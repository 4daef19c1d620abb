package app

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// TimeAgo renders a coarse relative timestamp ("2 mins ago"). A zero or
// future time renders as "just now" so a record with a missing creation time
// still displays.
func TimeAgo(t, now time.Time) string {
	if t.IsZero() || t.After(now) {
		return "just now"
	}
	seconds := now.Sub(t).Seconds()

	steps := []struct {
		unit  float64
		label string
	}{
		{31536000, "years"},
		{2592000, "months"},
		{86400, "days"},
		{3600, "hours"},
		{60, "mins"},
	}
	for _, s := range steps {
		if interval := seconds / s.unit; interval > 1 {
			return fmt.Sprintf("%d %s ago", int(interval), s.label)
		}
	}
	return "just now"
}

// Initials derives an avatar label from the first letter of up to the first
// two words of a name, uppercased.
func Initials(name string) string {
	var b strings.Builder
	words := strings.Fields(name)
	if len(words) > 2 {
		words = words[:2]
	}
	for _, w := range words {
		r, _ := utf8.DecodeRuneInString(w)
		if r == utf8.RuneError {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// EscapeHTML sanitizes store-supplied strings before they reach a rendered
// feed.
func EscapeHTML(s string) string {
	return html.EscapeString(s)
}
