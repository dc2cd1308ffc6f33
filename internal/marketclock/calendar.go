// Package marketclock answers session questions in the exchange's civil time.
package marketclock

import (
	"fmt"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"
)

const (
	DefaultTimezone = "America/New_York"
	// SessionMinutes is the length of a full regular session (9:30-16:00).
	SessionMinutes = 390
	dateLayout     = "2006-01-02"
)

// DefaultEarlyCloseDates are the 13:00 ET half days known at build time.
var DefaultEarlyCloseDates = []string{
	"2025-07-03",
	"2025-11-28",
	"2025-12-24",
	"2026-11-27",
	"2026-12-24",
	"2027-11-26",
}

// Weekdays is the fixed Mon-Sun enumeration used by the feature vector.
var Weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// Calendar 以交易所本地时间判断常规交易时段。
type Calendar struct {
	loc        *time.Location
	earlyClose map[string]struct{}
}

var (
	defaultOnce sync.Once
	defaultCal  *Calendar
)

// Default returns the process-wide New York calendar with the built-in half days.
func Default() *Calendar {
	defaultOnce.Do(func() {
		cal, err := New(DefaultTimezone, DefaultEarlyCloseDates)
		if err != nil {
			cal = &Calendar{loc: time.UTC, earlyClose: map[string]struct{}{}}
		}
		defaultCal = cal
	})
	return defaultCal
}

// New builds a calendar for the given IANA zone and early-close dates (YYYY-MM-DD).
func New(tz string, earlyCloseDates []string) (*Calendar, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", tz, err)
	}
	early := make(map[string]struct{}, len(earlyCloseDates))
	for _, raw := range earlyCloseDates {
		d := strings.TrimSpace(raw)
		if d == "" {
			continue
		}
		if _, err := time.ParseInLocation(dateLayout, d, loc); err != nil {
			return nil, fmt.Errorf("invalid early close date %q: %w", d, err)
		}
		early[d] = struct{}{}
	}
	return &Calendar{loc: loc, earlyClose: early}, nil
}

// Location returns the exchange time zone.
func (c *Calendar) Location() *time.Location { return c.loc }

// Local converts epoch milliseconds to exchange civil time.
func (c *Calendar) Local(ms int64) time.Time {
	return time.UnixMilli(ms).In(c.loc)
}

// SessionDate is the exchange-local calendar date of ms.
func (c *Calendar) SessionDate(ms int64) string {
	return c.Local(ms).Format(dateLayout)
}

// IsEarlyClose reports whether the session date closes at 13:00.
func (c *Calendar) IsEarlyClose(date string) bool {
	_, ok := c.earlyClose[date]
	return ok
}

// SessionBounds returns the regular open and close for the day containing ms.
func (c *Calendar) SessionBounds(ms int64) (open, close time.Time) {
	local := c.Local(ms)
	y, m, d := local.Date()
	open = time.Date(y, m, d, 9, 30, 0, 0, c.loc)
	closeHour := 16
	if c.IsEarlyClose(local.Format(dateLayout)) {
		closeHour = 13
	}
	close = time.Date(y, m, d, closeHour, 0, 0, 0, c.loc)
	return open, close
}

// InSession reports whether ms falls inside [open, close) on a weekday.
func (c *Calendar) InSession(ms int64) bool {
	local := c.Local(ms)
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	open, close := c.SessionBounds(ms)
	return !local.Before(open) && local.Before(close)
}

// MinutesIntoSession is minutes since 09:30 local, clamped to [0, 390].
func (c *Calendar) MinutesIntoSession(ms int64) float64 {
	open, _ := c.SessionBounds(ms)
	mins := c.Local(ms).Sub(open).Minutes()
	if mins < 0 {
		return 0
	}
	if mins > SessionMinutes {
		return SessionMinutes
	}
	return mins
}

// WeekdayIndex maps the local weekday onto Mon=0 .. Sun=6.
func (c *Calendar) WeekdayIndex(ms int64) int {
	return (int(c.Local(ms).Weekday()) + 6) % 7
}
