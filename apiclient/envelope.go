package apiclient

import "encoding/json"

// Envelope is the uniform response wrapper every endpoint returns. Data stays
// raw until the caller names a concrete payload type.
type Envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data,omitempty"`
	Message    string          `json:"message,omitempty"`
	Error      string          `json:"error,omitempty"`
	Details    []FieldError    `json:"details,omitempty"`
	Pagination *Pagination     `json:"pagination,omitempty"`
}

// message prefers the error field over the informational message.
func (e Envelope) message() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

// Pagination describes a list window. NextCursor is set by keyset endpoints
// and empty elsewhere.
type Pagination struct {
	Total      int    `json:"total"`
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
	NextOffset int    `json:"next_offset,omitempty"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}
