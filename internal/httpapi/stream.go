package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"endlessessentials.app/internal/obs"
)

// paymentStream serves payment events as Server-Sent Events.
func (a *API) paymentStream(w http.ResponseWriter, r *http.Request) {
	if a.hub == nil {
		writeError(w, r, http.StatusServiceUnavailable, "streaming disabled")
		return
	}
	rc := http.NewResponseController(w)
	// The server write timeout would otherwise cut the stream.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := a.hub.Subscribe(r.Context())

	_, _ = w.Write([]byte(": stream started\n\n"))
	if err := rc.Flush(); err != nil {
		obs.Logger().WarnContext(r.Context(), "streaming unsupported", obs.Err(err))
		return
	}

	for evt := range ch {
		payload, err := json.Marshal(evt)
		if err != nil {
			continue
		}
		_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, payload)
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
