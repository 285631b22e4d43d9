package service

import (
	"fmt"
	"time"

	"cartographer-notify/internal/entity"
)

// QuietHoursSuppressed reports whether the delivery falls inside the
// user's quiet window at nowUTC. The [start, end) window is evaluated in
// the user's IANA timezone; start > end wraps past midnight. An effective
// priority at or above the configured bypass always breaks through; with
// no bypass configured even critical deliveries are held.
//
// Quiet-hours suppressions are dropped, not queued for after the window.
func QuietHoursSuppressed(nowUTC time.Time, qh entity.QuietHours, effective entity.Priority) bool {
	if !qh.Enabled {
		return false
	}

	if qh.BypassPriority != nil && effective.AtLeast(*qh.BypassPriority) {
		return false
	}

	loc, err := time.LoadLocation(qh.Timezone)
	if err != nil {
		// Unresolvable zone: fail open rather than silently drop.
		return false
	}

	start, err1 := parseClock(qh.Start)
	end, err2 := parseClock(qh.End)
	if err1 != nil || err2 != nil {
		return false
	}

	local := nowUTC.In(loc)
	now := local.Hour()*60 + local.Minute()

	if start <= end {
		return now >= start && now < end
	}
	// Window wraps midnight, e.g. 22:00-06:00.
	return now >= start || now < end
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("parse clock %q: out of range", s)
	}
	return h*60 + m, nil
}
