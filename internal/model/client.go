package model

// Client is a registered entity whose violation cases are tracked.
// Clients are read-only to the sync engine: it matches respondent names
// against them but never mutates them.
type Client struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	AKAs   []string `json:"akas,omitempty"`
	UserID string   `json:"user_id"`
}
