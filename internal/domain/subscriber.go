package domain

import "time"

// SubscriberStatus enumerates the states a subscriber can be in.
type SubscriberStatus string

const (
	SubscriberActive       SubscriberStatus = "active"
	SubscriberUnsubscribed SubscriberStatus = "unsubscribed"
)

// Subscriber represents a single newsletter recipient.
type Subscriber struct {
	ID              string           `json:"id" db:"id"`
	Name            string           `json:"name" db:"name"`
	Email           string           `json:"email" db:"email"`
	ProgramInterest string           `json:"program_interest" db:"program_interest"`
	Status          SubscriberStatus `json:"status" db:"status"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
}

// IsActive returns true if the subscriber is eligible to receive campaigns.
func (s *Subscriber) IsActive() bool {
	return s.Status == SubscriberActive
}
