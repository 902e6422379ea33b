package scheduler

import "time"

type triggerKind int

const (
	triggerInterval triggerKind = iota
	triggerDaily
	triggerOnce
)

// Trigger specifies when a task runs. Construct with Every, DailyAt, or Once.
type Trigger struct {
	kind   triggerKind
	every  time.Duration
	hour   int
	minute int
	at     time.Time
}

// Every fires the task repeatedly with a fixed interval between completions.
func Every(interval time.Duration) Trigger {
	return Trigger{kind: triggerInterval, every: interval}
}

// DailyAt fires the task at the given hour:minute, today if the time has not
// yet passed, otherwise tomorrow. Only hour/minute granularity is supported.
func DailyAt(hour, minute int) Trigger {
	return Trigger{kind: triggerDaily, hour: hour, minute: minute}
}

// Once fires the task a single time at the given timestamp and never
// reschedules. A zero timestamp means immediately.
func Once(at time.Time) Trigger {
	return Trigger{kind: triggerOnce, at: at}
}

// firstRun computes the initial next-run time at registration.
func (t Trigger) firstRun(now time.Time) time.Time {
	switch t.kind {
	case triggerInterval:
		return now.Add(t.every)
	case triggerDaily:
		return t.nextDaily(now)
	default: // triggerOnce
		if t.at.IsZero() {
			return now
		}
		return t.at
	}
}

// nextRun computes the next occurrence after a completed run. The second
// return is false when the task does not reschedule.
func (t Trigger) nextRun(now time.Time) (time.Time, bool) {
	switch t.kind {
	case triggerInterval:
		return now.Add(t.every), true
	case triggerDaily:
		return t.nextDaily(now), true
	default: // triggerOnce
		return time.Time{}, false
	}
}

func (t Trigger) nextDaily(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), t.hour, t.minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
