package engine

import (
	"strconv"
	"strings"
	"time"

	"github.com/portero-acs/portero/internal/portero/store"
)

// scheduleAllows evaluates a keyfob's activation schedule against the
// local wall-clock time.
//
// Rules, in order: schedule disabled allows everything; an empty day set
// allows nothing; the current weekday must be in the set; a day with no
// explicit time range is allowed whole-day; otherwise the current time
// must fall inside the window, which may wrap midnight
// (start > end means [start,24:00) U [00:00,end)).
func scheduleAllows(k *store.Keyfob, now time.Time) bool {
	if !k.ScheduleEnabled {
		return true
	}
	if strings.TrimSpace(k.ActivationDays) == "" {
		return false
	}

	weekday := strings.ToLower(now.Format("Mon"))
	if !dayInSet(k.ActivationDays, weekday) {
		return false
	}

	if k.ActivationStart == "" || k.ActivationEnd == "" {
		return true // day allowed, whole-day policy
	}

	start, ok1 := parseClock(k.ActivationStart)
	end, ok2 := parseClock(k.ActivationEnd)
	if !ok1 || !ok2 {
		// Malformed range: fail closed, consistent with the rest of the
		// actuation path.
		return false
	}

	cur := now.Hour()*60 + now.Minute()
	if start <= end {
		return start <= cur && cur < end
	}
	return cur >= start || cur < end
}

func dayInSet(csv, day string) bool {
	for _, d := range strings.Split(strings.ToLower(csv), ",") {
		if strings.TrimSpace(d) == day {
			return true
		}
	}
	return false
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(s string) (int, bool) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, false
	}
	hh, err1 := strconv.Atoi(h)
	mm, err2 := strconv.Atoi(m)
	if err1 != nil || err2 != nil || hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, false
	}
	return hh*60 + mm, true
}
