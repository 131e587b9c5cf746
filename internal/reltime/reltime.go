// Package reltime renders submission times relative to a clock.
package reltime

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

var supported = []language.Tag{
	language.AmericanEnglish,
	language.BritishEnglish,
	language.German,
	language.French,
	language.Japanese,
}

var matcher = language.NewMatcher(supported)

// dateLayouts holds the calendar date layout per supported tag, indexed like
// supported.
var dateLayouts = []string{
	"1/2/2006",
	"02/01/2006",
	"2.1.2006",
	"02/01/2006",
	"2006/1/2",
}

// Formatter formats times for one display locale.
type Formatter struct {
	layout string
}

// New returns a Formatter for a BCP 47 locale. Unknown or malformed locales
// fall back to en-US.
func New(locale string) Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		return Formatter{layout: dateLayouts[0]}
	}
	_, index, conf := matcher.Match(tag)
	if conf == language.No {
		index = 0
	}
	return Formatter{layout: dateLayouts[index]}
}

// Format describes t relative to now: "Just now" under a minute, then
// minutes, hours and days up to a week, then the calendar date. Times in the
// future read as "Just now".
func (f Formatter) Format(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "Just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute")
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour")
	case d < 7*24*time.Hour:
		return plural(int(d/(24*time.Hour)), "day")
	}

	layout := f.layout
	if layout == "" {
		layout = dateLayouts[0]
	}
	return t.In(now.Location()).Format(layout)
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
