package server

import (
	"fmt"
	"net/http"

	"github.com/juanrdzmb/fitsmartv3/internal/flow"
)

// handleSessionEvents streams session snapshots as server-sent events. The
// current snapshot is sent first; the stream ends when the client leaves
// or a terminal results state is reached.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	c, ok := s.session(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, unsubscribe := c.Subscribe()
	defer unsubscribe()

	send := func(snap flow.Snapshot) bool {
		fmt.Fprintf(w, "event: status\ndata: %s\n\n", mustJSON(snap))
		done := finished(snap)
		if done {
			fmt.Fprint(w, "event: complete\ndata: {}\n\n")
		}
		flusher.Flush()
		return done
	}

	if send(c.Snapshot()) {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case snap := <-ch:
			if send(snap) {
				return
			}
		}
	}
}

func finished(snap flow.Snapshot) bool {
	switch snap.State.(type) {
	case flow.ShowingResults, flow.ShowingVideoResults:
		return true
	}
	return false
}
