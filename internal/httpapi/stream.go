package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Auth-Wave/authwave-backend/internal/project"
)

// handleProjectLogStream tails a project's security log over Server-Sent
// Events. Events appended while the connection is open are pushed as they
// happen; history stays behind the paginated query endpoint.
func (a *API) handleProjectLogStream(w http.ResponseWriter, r *http.Request, p *project.Project) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if a.stream == nil {
		writeError(w, r, http.StatusServiceUnavailable, "streaming disabled")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch := a.stream.Subscribe(ctx, p.ID)

	// Initial comment establishes the stream for the client.
	_, _ = w.Write([]byte(": stream started\n\n"))
	flusher.Flush()

	for event := range ch {
		payload, err := json.Marshal(event)
		if err != nil {
			continue
		}
		_, _ = w.Write([]byte("data: "))
		_, _ = w.Write(payload)
		_, _ = w.Write([]byte("\n\n"))
		flusher.Flush()
	}
}
