package service

import "time"

// TimelineQuery selects timeline events. Zero bounds are open, an empty Type
// matches every type and a zero Limit returns everything in range.
type TimelineQuery struct {
	From  time.Time // inclusive
	To    time.Time // inclusive
	Type  string    // one of models.EventTypes, case-insensitive
	Limit int       // keep only the most recent Limit events
}

// NavigateResult tells the rendering layer where a link leads.
type NavigateResult struct {
	Link string `json:"link"`
	Path string `json:"path"`
}
