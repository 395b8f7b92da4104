package domain

import "time"

type ExportKind string

const (
	ExportCapture ExportKind = "capture"
	ExportHAR     ExportKind = "har"
)

// ExportRecord describes one saved log document.
type ExportRecord struct {
	ID        string     `json:"id"`
	Kind      ExportKind `json:"kind"`
	Filename  string     `json:"filename"`
	Location  string     `json:"location"`
	Count     int        `json:"count"`
	CreatedAt time.Time  `json:"createdAt"`
}
