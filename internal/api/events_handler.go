package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"smartparking/internal/syncbus"
)

const heartbeatInterval = 25 * time.Second

type EventsHandler struct {
	Bus *syncbus.Bus
}

func NewEventsHandler(bus *syncbus.Bus) *EventsHandler {
	return &EventsHandler{Bus: bus}
}

// Stream pushes bus events to the client as Server-Sent Events until it
// disconnects. Each event only says what kind of change happened and in which
// lot; clients re-fetch.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub := h.Bus.Subscribe()
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			// Booking ids stay private to their owners; clients re-fetch anyway.
			ev.BookingID = ""
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.Seq, ev.Kind, data)
			flusher.Flush()
		}
	}
}
