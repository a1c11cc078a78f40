package timer

import (
	"math"
	"time"
)

// Anchor returns the instant the current active run began: the most recent
// resume, or the original start when the timer was never resumed.
func Anchor(s Snapshot) (time.Time, error) {
	if s.LastResumedTime != nil {
		return *s.LastResumedTime, nil
	}
	if s.PauseCount > 0 {
		return time.Time{}, missing(s.State, "last_resumed_time")
	}
	if s.StartTime == nil {
		return time.Time{}, missing(s.State, "start_time")
	}
	return *s.StartTime, nil
}

// RunSeconds is the length of a run from anchor to now, never negative.
func RunSeconds(anchor, now time.Time) float64 {
	d := now.Sub(anchor).Seconds()
	if d < 0 {
		return 0
	}
	return d
}

// Accrued is the total active time as of now. Paused and completed timers
// do not accrue.
func Accrued(s Snapshot, now time.Time) (float64, error) {
	if s.State != StateRunning {
		return s.ElapsedSeconds, nil
	}
	anchor, err := Anchor(s)
	if err != nil {
		return 0, err
	}
	return s.ElapsedSeconds + RunSeconds(anchor, now), nil
}

// Settle computes the final elapsed seconds and end time for a completion at now.
func Settle(s Snapshot, now time.Time) (float64, time.Time, error) {
	budget := float64(s.MaxDurationSeconds)
	total, err := Accrued(s, now)
	if err != nil {
		return 0, time.Time{}, err
	}

	// The budget ran out before anyone called complete.
	if total >= budget {
		if s.State == StatePaused {
			if s.LastPausedTime == nil {
				return 0, time.Time{}, missing(s.State, "last_paused_time")
			}
			return budget, *s.LastPausedTime, nil
		}
		return budget, now.Add(-seconds(total - budget)), nil
	}

	if s.PauseCount == 0 && s.LastPausedTime == nil {
		if s.StartTime == nil {
			return 0, time.Time{}, missing(s.State, "start_time")
		}
		return math.Min(RunSeconds(*s.StartTime, now), budget), now, nil
	}

	if s.State == StatePaused {
		if s.LastPausedTime == nil {
			return 0, time.Time{}, missing(s.State, "last_paused_time")
		}
		return s.ElapsedSeconds, *s.LastPausedTime, nil
	}
	return math.Min(total, budget), now, nil
}

// EstimatedEnd is when a running timer will exhaust its budget if left alone.
// ok is false for any state other than running.
func EstimatedEnd(s Snapshot) (end time.Time, ok bool, err error) {
	if s.State != StateRunning {
		return time.Time{}, false, nil
	}
	anchor, err := Anchor(s)
	if err != nil {
		return time.Time{}, false, err
	}
	return anchor.Add(seconds(float64(s.MaxDurationSeconds) - s.ElapsedSeconds)), true, nil
}

func seconds(f float64) time.Duration {
	return time.Duration(math.Round(f * float64(time.Second)))
}
