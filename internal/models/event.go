package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer carries the identity the issuance workflow needs: an opaque id
// (never an email, codes must not be enumerable from customer data) and the
// customer group used for eligibility checks.
type Customer struct {
	ID      uuid.UUID `json:"id"`
	GroupID int64     `json:"group_id"`
}

// EventType identifies a customer lifecycle event on the wire.
type EventType string

const (
	EventTypeCustomerRegistered EventType = "customer.registered"
	EventTypeCustomerUpdated    EventType = "customer.updated"
)

// Event is a customer lifecycle event consumed from Kafka.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Type      EventType `json:"type"`
	Customer  Customer  `json:"customer"`
	Timestamp time.Time `json:"timestamp"`
}
