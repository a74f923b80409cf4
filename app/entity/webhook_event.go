package entity

import "time"

type WebhookOutcome string

const (
	WebhookOutcomeApplied WebhookOutcome = "applied"
	WebhookOutcomeIgnored WebhookOutcome = "ignored"
	WebhookOutcomeDropped WebhookOutcome = "dropped"
)

type WebhookEvent struct {
	ID          string
	ExternalID  string
	Provider    string
	EventType   string
	PayloadJSON string
	Attempts    int32
	LastError   *string
	Outcome     *WebhookOutcome
	ReceivedAt  time.Time
	ClaimedAt   *time.Time
	ProcessedAt *time.Time
}

func (e *WebhookEvent) Processed() bool {
	return e.ProcessedAt != nil
}
