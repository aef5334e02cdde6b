package ws

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// responseBuffer collects what an http.Handler writes for one tunnel request
type responseBuffer struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newResponseBuffer() *responseBuffer {
	return &responseBuffer{header: make(http.Header)}
}

func (b *responseBuffer) Header() http.Header {
	return b.header
}

func (b *responseBuffer) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}

func (b *responseBuffer) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

// response converts the buffered output into a tunnel response.
// Non-JSON bodies are sent as a JSON string.
func (b *responseBuffer) response(id json.RawMessage) *Response {
	status := b.status
	if status == 0 {
		status = http.StatusOK
	}

	body := b.body.Bytes()
	if len(body) == 0 {
		body = []byte("null")
	} else if !json.Valid(body) {
		body, _ = json.Marshal(b.body.String())
	}

	return &Response{ID: id, Status: status, Body: body}
}
