package export

import (
	"time"

	"github.com/Sangdi-IT/yq-monitor/internal/domain"
)

// Minimal HAR 1.2 structs for the capture export.
type Document struct {
	Log Log `json:"log"`
}

type Log struct {
	Version string  `json:"version"`
	Creator Creator `json:"creator"`
	Pages   []Page  `json:"pages"`
	Entries []Entry `json:"entries"`
}

type Creator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Page is never populated; the capture export always writes an empty page list.
type Page struct {
	ID string `json:"id"`
}

type Entry struct {
	StartedDateTime string   `json:"startedDateTime"`
	Request         Request  `json:"request"`
	Response        Response `json:"response"`
}

type Request struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

type Response struct {
	Status     int    `json:"status"`
	StatusText string `json:"statusText"`
}

const (
	HARVersion     = "1.2"
	CreatorName    = "Feed Capture Extension"
	CreatorVersion = "1.0"
)

// isoMillis matches JavaScript's Date.prototype.toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

func FormatISO(t time.Time) string { return t.UTC().Format(isoMillis) }

// Build maps records 1:1 onto log entries.
func Build(records []domain.CapturedExchange) Document {
	entries := make([]Entry, 0, len(records))
	for _, r := range records {
		entries = append(entries, Entry{
			StartedDateTime: FormatISO(r.Completed()),
			Request:         Request{Method: r.Method, URL: r.URL},
			Response:        Response{Status: r.StatusCode, StatusText: r.StatusLine},
		})
	}
	return Document{Log: Log{
		Version: HARVersion,
		Creator: Creator{Name: CreatorName, Version: CreatorVersion},
		Pages:   []Page{},
		Entries: entries,
	}}
}
