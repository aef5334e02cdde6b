package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// Request is one HTTP call carried over the tunnel
type Request struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method"`
	URL    string          `json:"url"`
	Body   json.RawMessage `json:"body,omitempty"`
}

// Response is the reply to a Request
type Response struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// Validate checks the request can be turned into an HTTP request
func (r *Request) Validate() error {
	if r.Method == "" {
		return errors.New("method is required")
	}
	if !strings.HasPrefix(r.URL, "/") {
		return errors.New("url must be an absolute path")
	}
	return nil
}

// ParseRequest parses a tunnel request from raw bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	req.Method = strings.ToUpper(req.Method)
	return &req, nil
}

// NewErrorResponse creates a response carrying a plain error message
func NewErrorResponse(id json.RawMessage, status int, message string) *Response {
	body, _ := json.Marshal(map[string]string{
		"status":  http.StatusText(status),
		"message": message,
	})
	return &Response{ID: id, Status: status, Body: body}
}

// Bytes returns the response as JSON bytes
func (r *Response) Bytes() ([]byte, error) {
	return json.Marshal(r)
}
