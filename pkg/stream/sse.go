package stream

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/roamkit/roamkit/pkg/domain"
)

// SSESink writes frames as Server-Sent Events, one JSON object per
// data line, flushing after each frame so clients see progress live.
type SSESink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSESink prepares the response for event streaming. It fails when
// the ResponseWriter cannot flush.
func NewSSESink(w http.ResponseWriter) (*SSESink, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported by transport")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return &SSESink{w: w, flusher: flusher}, nil
}

// Send implements Sink.
func (s *SSESink) Send(event domain.StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return domain.ErrStreamAbort
	}
	s.flusher.Flush()
	return nil
}
