// Package timefmt formats timestamps for display.
package timefmt

import (
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	day   = 24 * time.Hour
	week  = 7 * day
	month = 30 * day
	year  = 365 * day
)

var relativeMagnitudes = []humanize.RelTimeMagnitude{
	{D: time.Minute, Format: "Just now", DivBy: 1},
	{D: 2 * time.Minute, Format: "1 minute %s", DivBy: 1},
	{D: time.Hour, Format: "%d minutes %s", DivBy: time.Minute},
	{D: 2 * time.Hour, Format: "1 hour %s", DivBy: 1},
	{D: day, Format: "%d hours %s", DivBy: time.Hour},
	{D: 2 * day, Format: "1 day %s", DivBy: 1},
	{D: week, Format: "%d days %s", DivBy: day},
	{D: 2 * week, Format: "1 week %s", DivBy: 1},
	{D: month, Format: "%d weeks %s", DivBy: week},
	{D: 2 * month, Format: "1 month %s", DivBy: 1},
	{D: year, Format: "%d months %s", DivBy: month},
	{D: 2 * year, Format: "1 year %s", DivBy: 1},
	{D: math.MaxInt64, Format: "%d years %s", DivBy: year},
}

// Relative describes t relative to now, e.g. "Just now", "3 minutes ago",
// "1 week ago". Times in the future read as "Just now".
func Relative(t, now time.Time) string {
	if t.After(now) {
		t = now
	}
	return humanize.CustomRelTime(t, now, "ago", "from now", relativeMagnitudes)
}

// RelativeUnix is Relative for a Unix timestamp in seconds.
func RelativeUnix(sec int64, now time.Time) string {
	return Relative(time.Unix(sec, 0), now)
}
