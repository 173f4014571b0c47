package httpx

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/eelab/labdesk/internal/domain/gate"
)

// ToastEvent is the client-side event name the layout script listens for.
const ToastEvent = "showToast"

// IsHTMX reports whether the request was initiated by htmx (Hx-Request: true).
func IsHTMX(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Hx-Request"), "true")
}

// IsHistoryRestore reports true when htmx is restoring history (Hx-History-Restore-Request: true).
func IsHistoryRestore(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Hx-History-Restore-Request"), "true")
}

// WantsPartial returns true when the handler should return only the main fragment.
func WantsPartial(r *http.Request) bool {
	return IsHTMX(r) && !IsHistoryRestore(r)
}

// SetHXRedirect instructs htmx to redirect the browser to the given URL.
func SetHXRedirect(w http.ResponseWriter, url string) { w.Header().Set("Hx-Redirect", url) }

// SetHXTrigger triggers a client-side event with optional payload.
// It sets the Hx-Trigger response header as a JSON object: {"<event>": <payload>}.
// If payload is nil, the value true is used for the event.
func SetHXTrigger(w http.ResponseWriter, event string, payload any) {
	var value any = true
	if payload != nil {
		value = payload
	}
	b, err := json.Marshal(map[string]any{event: value})
	if err != nil {
		w.Header().Set("Hx-Trigger", "{\""+event+"\":true}")
		return
	}
	w.Header().Set("Hx-Trigger", string(b))
}

// toastPayload is the showToast event body consumed by static/js/app.js.
type toastPayload struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// TriggerToast shows n as a toast after the htmx swap.
func TriggerToast(w http.ResponseWriter, n gate.Notice) {
	SetHXTrigger(w, ToastEvent, toastPayload{Message: n.Message, Type: string(n.Severity)})
}
