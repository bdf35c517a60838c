package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// CountdownDisplay is the remaining validity of a one-time code.
type CountdownDisplay struct {
	RemainingSeconds int `json:"remaining_seconds"`
}

// String formats the countdown as zero-padded MM:SS.
func (c CountdownDisplay) String() string {
	s := c.RemainingSeconds
	if s < 0 {
		s = 0
	}
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}

func (c CountdownDisplay) MarshalJSON() ([]byte, error) {
	type plain CountdownDisplay
	return json.Marshal(struct {
		plain
		Text string `json:"text"`
	}{plain(c), c.String()})
}

// Verification flow states.
const (
	FlowRunning   = "RUNNING"
	FlowExpired   = "EXPIRED"
	FlowCancelled = "CANCELLED"
)

// VerificationStatus is the read-only projection of a verification flow.
type VerificationStatus struct {
	FlowID    string           `json:"flow_id"`
	Screen    string           `json:"screen"`
	Countdown CountdownDisplay `json:"countdown"`
	State     string           `json:"state"`      // RUNNING | EXPIRED | CANCELLED
	CanSubmit bool             `json:"can_submit"` // false only when expiry blocks submission
	IssuedAt  time.Time        `json:"issued_at"`
}
