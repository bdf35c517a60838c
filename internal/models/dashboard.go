package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// MetricSnapshot holds the simulated sensor readings, each in [0,100].
type MetricSnapshot struct {
	Fire   int `json:"fire"`
	Smoke  int `json:"smoke"`
	Hazard int `json:"hazard"`
}

// PlaybackState is the mock video player position.
type PlaybackState struct {
	ProgressPercent int  `json:"progress_percent"` // 0..100
	IsPlaying       bool `json:"is_playing"`
}

// ClockDisplay is the wall-clock projection shown in the header.
type ClockDisplay struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// ClockAt projects t onto a ClockDisplay in t's own location.
func ClockAt(t time.Time) ClockDisplay {
	return ClockDisplay{Hours: t.Hour(), Minutes: t.Minute()}
}

// String formats the clock as zero-padded HH:MM.
func (c ClockDisplay) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hours, c.Minutes)
}

func (c ClockDisplay) MarshalJSON() ([]byte, error) {
	type plain ClockDisplay
	return json.Marshal(struct {
		plain
		Text string `json:"text"`
	}{plain(c), c.String()})
}

// Alert is one line of the dashboard alert feed.
type Alert struct {
	Time    string `json:"time"`
	Message string `json:"message"`
	Type    string `json:"type"` // fire | normal | emergency
}

// DashboardSnapshot is everything the rendering layer needs for one view.
type DashboardSnapshot struct {
	ViewID    string            `json:"view_id"`
	Clock     ClockDisplay      `json:"clock"`
	Metrics   MetricSnapshot    `json:"metrics"`
	Playback  PlaybackState     `json:"playback"`
	Nav       []string          `json:"nav"`
	ActiveNav int               `json:"active_nav"`
	Alerts    []Alert           `json:"alerts"`
	Faults    map[string]string `json:"faults,omitempty"` // task name -> scheduling error
	UpdatedAt time.Time         `json:"updated_at"`
}
