package model

import "queuetimer-backend/internal/timer"

// Snapshot converts the persisted rows into the timer's view of them.
func (a *Assignment) Snapshot() (timer.Snapshot, error) {
	state, err := timer.ParseState(a.State)
	if err != nil {
		return timer.Snapshot{}, err
	}
	st := a.Statistic
	return timer.Snapshot{
		State:              state,
		MaxDurationSeconds: a.MaxDurationSeconds,
		StartTime:          st.StartTime,
		ElapsedSeconds:     st.ElapsedSeconds,
		RemainingSeconds:   st.RemainingSeconds,
		LastPausedTime:     st.LastPausedTime,
		LastResumedTime:    st.LastResumedTime,
		EndTime:            st.EndTime,
		PauseCount:         st.PauseCount,
	}, nil
}

// SetSnapshot copies timer bookkeeping back onto the rows.
func (a *Assignment) SetSnapshot(s timer.Snapshot) {
	a.State = string(s.State)
	a.MaxDurationSeconds = s.MaxDurationSeconds
	a.Statistic.StartTime = s.StartTime
	a.Statistic.ElapsedSeconds = s.ElapsedSeconds
	a.Statistic.RemainingSeconds = s.RemainingSeconds
	a.Statistic.LastPausedTime = s.LastPausedTime
	a.Statistic.LastResumedTime = s.LastResumedTime
	a.Statistic.EndTime = s.EndTime
	a.Statistic.PauseCount = s.PauseCount
}
