package scoring

import (
	"kinship/internal/model"
	"time"
)

const (
	nightWeekdayDelay = 480 * time.Minute // defers to roughly 09:00
	nightWeekendDelay = 120 * time.Minute
	eveningDelay      = 30 * time.Minute
	workInactiveDelay = 60 * time.Minute
	lowBatteryDelay   = 60 * time.Minute
	lowBatteryPercent = 20
)

// NotificationDelay decides how long to hold a notification. now must already be in the
// recipient's local time. A negative battery means unknown and never triggers batching.
func NotificationDelay(prefs model.UserPreferences, now time.Time, battery int) time.Duration {
	if !prefs.SmartTiming {
		return 0
	}

	var delay time.Duration
	switch h := now.Hour(); {
	case h >= 22 || h < 6:
		if isWeekend(now) {
			delay = nightWeekendDelay
		} else {
			delay = nightWeekdayDelay
		}
	case h >= 18:
		delay = eveningDelay
	case h >= 9:
		if !prefs.ActiveDuringWork {
			delay = workInactiveDelay
		}
	}

	if battery >= 0 && battery < lowBatteryPercent && delay < lowBatteryDelay {
		delay = lowBatteryDelay
	}
	return delay
}

// PredictDelivery returns now plus NotificationDelay
func PredictDelivery(prefs model.UserPreferences, now time.Time, battery int) time.Time {
	return now.Add(NotificationDelay(prefs, now, battery))
}

func isWeekend(t time.Time) bool {
	d := t.Weekday()
	return d == time.Saturday || d == time.Sunday
}

// ActiveDuringWork infers work-hour activity from an hour-of-day send histogram. ok is false
// when there are fewer than minSamples sends to judge from.
func ActiveDuringWork(hist map[int]int64, minSamples int64) (active, ok bool) {
	var total, work int64
	for h, n := range hist {
		total += n
		if h >= 9 && h < 18 {
			work += n
		}
	}
	if total < minSamples || total == 0 {
		return false, false
	}
	return float64(work)/float64(total) >= 0.3, true
}
