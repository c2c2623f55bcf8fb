// Package notify implements the cross-cutting notification queues drained
// by the tick loop, and the SSE broker that fans drained notices out to
// connected UI clients.
package notify

// Severity distinguishes error notices from informational messages.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityMessage Severity = "message"
)

// maxScreenDetail is the longest raw detail text shown on screen; anything
// longer is replaced with a pointer to the diagnostics log.
const maxScreenDetail = 200

// detailPlaceholder is shown when the raw detail exceeds maxScreenDetail.
const detailPlaceholder = "Open the diagnostics log for details"

// Notice is a single transient user-facing message. Errors carry the raw
// failure text in Detail and an optional StyleHint for the UI widget;
// informational messages use Text only.
type Notice struct {
	Text      string `json:"text"`
	Detail    string `json:"detail,omitempty"`
	StyleHint string `json:"style_hint,omitempty"`
}

// ScreenDetail returns the detail text fit for on-screen display: the raw
// text when short, a generic placeholder otherwise. The full text always
// goes to the diagnostic sink regardless.
func (n Notice) ScreenDetail() string {
	if len(n.Detail) > maxScreenDetail {
		return detailPlaceholder
	}
	return n.Detail
}

// Entry is one drained notice together with the source and slot it was
// queued under.
type Entry struct {
	Source string `json:"source"`
	Slot   string `json:"slot"`
	Notice Notice `json:"notice"`
}
