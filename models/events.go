package models

import "time"

// ConversionEvent is published to Kafka when a cart session converts.
// Downstream consumers (analytics, fulfillment) key on the session token.
type ConversionEvent struct {
	Event       string    `json:"event"` // e.g. "cart.converted"
	Token       string    `json:"token"`
	Email       string    `json:"email"`
	Items       PlanItems `json:"items"`
	ConvertedAt time.Time `json:"converted_at"`
}
