package entity

import "time"

type AuditLog struct {
	ID          string
	Action      string
	EntityType  string
	EntityID    string
	ActorRef    *string
	DetailsJSON string
	CreatedAt   time.Time
}
