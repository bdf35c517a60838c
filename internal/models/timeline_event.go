package models

import "time"

// Timeline event types.
const (
	EventViewMounted     = "VIEW_MOUNTED"
	EventViewUnmounted   = "VIEW_UNMOUNTED"
	EventPlaybackToggled = "PLAYBACK_TOGGLED"
	EventNavSelected     = "NAV_SELECTED"
	EventCodeIssued      = "CODE_ISSUED"
	EventCodeResent      = "CODE_RESENT"
	EventCodeExpired     = "CODE_EXPIRED"
	EventCodeCancelled   = "CODE_CANCELLED"
	EventFormSubmitted   = "FORM_SUBMITTED"
	EventNavigated       = "NAVIGATED"
)

var eventTypes = []string{
	EventViewMounted, EventViewUnmounted, EventPlaybackToggled, EventNavSelected,
	EventCodeIssued, EventCodeResent, EventCodeExpired, EventCodeCancelled,
	EventFormSubmitted, EventNavigated,
}

// EventTypes lists every type the timeline records.
func EventTypes() []string {
	return append([]string(nil), eventTypes...)
}

func ValidEventType(t string) bool {
	for _, known := range eventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// TimelineEvent is a single entry of the event log / timeline tab.
type TimelineEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
