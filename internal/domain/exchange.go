package domain

import "time"

// ResourceType is the lower-case resource tag of a network exchange ("xhr", "fetch", "document", ...).
type ResourceType string

const (
	ResourceDocument  ResourceType = "document"
	ResourceScript    ResourceType = "script"
	ResourceImage     ResourceType = "image"
	ResourceXHR       ResourceType = "xhr"
	ResourceFetch     ResourceType = "fetch"
	ResourceWebSocket ResourceType = "websocket"
	ResourceOther     ResourceType = "other"
)

// CapturedExchange is one completed network exchange observed while capture was armed.
type CapturedExchange struct {
	URL        string       `json:"url"`
	Method     string       `json:"method"`
	TimeStamp  float64      `json:"timeStamp"` // completion time, ms since epoch
	Type       ResourceType `json:"type"`
	StatusCode int          `json:"statusCode"`
	StatusLine string       `json:"statusLine"`
}

// Completed returns TimeStamp as a UTC time.
func (e CapturedExchange) Completed() time.Time {
	ms := int64(e.TimeStamp)
	frac := e.TimeStamp - float64(ms)
	return time.UnixMilli(ms).Add(time.Duration(frac * float64(time.Millisecond))).UTC()
}

// EpochMillis converts t into the float millisecond form used by TimeStamp.
func EpochMillis(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Millisecond)
}
