package api

import (
	"time"

	"queuetimer-backend/internal/model"
	"queuetimer-backend/internal/parse"
	"queuetimer-backend/internal/timer"
)

type assignmentResponse struct {
	ID                        string  `json:"id"`
	Title                     string  `json:"title"`
	Duration                  string  `json:"duration"`
	MaxDurationSeconds        int64   `json:"max_duration_seconds"`
	StartTimeFormatted        *string `json:"start_time_formatted"`
	ElapsedTimeFormatted      *string `json:"elapsed_time_formatted"`
	EndTimeFormatted          *string `json:"end_time_formatted"`
	EstimatedEndTimeFormatted *string `json:"estimated_end_time_formatted"`
	PauseCount                int     `json:"pause_count"`
	State                     string  `json:"state"`
	IsStarted                 bool    `json:"is_started"`
	IsPaused                  bool    `json:"is_paused"`
	IsComplete                bool    `json:"is_complete"`
}

// presentAssignment renders a with clock times in the owner's timezone.
func presentAssignment(a *model.Assignment, tz string) (assignmentResponse, error) {
	snap, err := a.Snapshot()
	if err != nil {
		return assignmentResponse{}, err
	}

	resp := assignmentResponse{
		ID:                 a.ID,
		Title:              a.Title,
		Duration:           parse.FormatHM(a.MaxDurationSeconds),
		MaxDurationSeconds: a.MaxDurationSeconds,
		PauseCount:         snap.PauseCount,
		State:              string(snap.State),
		IsStarted:          snap.State.Started(),
		IsPaused:           snap.State.Paused(),
		IsComplete:         snap.State.Complete(),
	}

	if resp.StartTimeFormatted, err = localClock(snap.StartTime, tz); err != nil {
		return assignmentResponse{}, err
	}
	if resp.EndTimeFormatted, err = localClock(snap.EndTime, tz); err != nil {
		return assignmentResponse{}, err
	}
	if snap.ElapsedSeconds > 0 {
		elapsed := parse.FormatHMS(snap.ElapsedSeconds)
		resp.ElapsedTimeFormatted = &elapsed
	}

	end, ok, err := timer.EstimatedEnd(snap)
	if err != nil {
		return assignmentResponse{}, err
	}
	if ok {
		if resp.EstimatedEndTimeFormatted, err = localClock(&end, tz); err != nil {
			return assignmentResponse{}, err
		}
	}
	return resp, nil
}

func localClock(t *time.Time, tz string) (*string, error) {
	if t == nil {
		return nil, nil
	}
	s, err := parse.FormatClock(*t, tz)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
