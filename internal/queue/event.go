// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names used by both the publisher and the consumer.
const (
	UserRegisteredQueue = "user.registered"
	PhotoSubmittedQueue = "photo.submitted"
)

// UserRegisteredEvent is published after a registration commits. The
// consumer turns it into the welcome mail; delivery failures never roll
// back the user row.
type UserRegisteredEvent struct {
	UserID       uint64 `json:"user_id"`
	Email        string `json:"email"`
	Firstname    string `json:"firstname"`
	Subject      string `json:"subject"`
	RegisteredAt string `json:"registered_at"`
}

// PhotoSubmittedEvent is published after a photographer's photo commits,
// addressed to the product's owner.
type PhotoSubmittedEvent struct {
	PhotoID     uint64 `json:"photo_id"`
	ProductID   uint64 `json:"product_id"`
	ProductName string `json:"product_name"`
	OwnerID     uint64 `json:"owner_id"`
	OwnerEmail  string `json:"owner_email"`
	PhotoURL    string `json:"photo_url"`
	SubmittedAt string `json:"submitted_at"`
}
