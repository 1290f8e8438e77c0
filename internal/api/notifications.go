package api

import (
	"net/http"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/mzanotto/funkostore/internal/notify"
)

// NotificationsHandler streams catalog change events to subscribers.
type NotificationsHandler struct {
	Relay *notify.Relay
}

// Stream handles GET /api/notifications as a server-sent-events stream.
// The subscription lasts until the client disconnects; missed events are
// not replayed.
func (h *NotificationsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	sub, cancel := h.Relay.Subscribe()
	defer cancel()

	sse := datastar.NewSSE(w, r)
	for {
		select {
		case <-r.Context().Done():
			return
		case n, ok := <-sub:
			if !ok {
				return
			}
			if err := sse.MarshalAndPatchSignals(n); err != nil {
				return
			}
		}
	}
}
