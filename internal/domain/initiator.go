package domain

import "time"

// Initiator is an external principal allowed to submit processing jobs.
type Initiator struct {
	ID        int64     `json:"id"`
	Key       string    `json:"initiator_key"`
	CreatedAt time.Time `json:"created_at"`
}
