package views

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"
)

// wordsPerMinute is the reading speed used by ReadingTime.
const wordsPerMinute = 200

// TagClass returns CSS classes for a tag pill, with active variant.
func TagClass(active bool) string {
	base := "inline-flex items-center rounded border border-ink dark:border-white/30 bg-stone-100 dark:bg-neutral-700 px-2.5 py-1 text-[11px] font-semibold uppercase tracking-[0.12em] hover:-translate-y-0.5 hover:shadow-sm transition"
	if active {
		base += " bg-ink dark:bg-white text-white dark:text-ink"
	}
	return base
}

// TagLink returns the home page filtered by tag, or the unfiltered home page
// when tag is the active one.
func TagLink(tag, active string) string {
	if strings.EqualFold(tag, active) {
		return "/"
	}
	return "/?tag=" + url.QueryEscape(strings.ToLower(tag))
}

// ReadingTime estimates minutes to read markdown content. Never less than one.
func ReadingTime(content string) int {
	words := len(strings.FieldsFunc(content, func(r rune) bool {
		return unicode.IsSpace(r) || r == '#' || r == '*' || r == '`'
	}))
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

// FormatDate renders t as "Jan 2, 2006". Nil renders as "Unpublished".
func FormatDate(t *time.Time) string {
	if t == nil {
		return "Unpublished"
	}
	return t.Format("Jan 2, 2006")
}

// Plural formats n with a singular or plural noun.
func Plural(n int64, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
