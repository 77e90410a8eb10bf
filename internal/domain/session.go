package domain

import "time"

// Session is a client-held conversation. The server never stores it; the id
// only travels with each turn for logging.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Messages  []Message `json:"messages,omitempty"`
}
