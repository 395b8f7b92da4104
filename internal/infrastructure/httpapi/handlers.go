package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Sangdi-IT/yq-monitor/internal/domain"
	"github.com/Sangdi-IT/yq-monitor/internal/export"
	"github.com/Sangdi-IT/yq-monitor/internal/usecase"
)

// handleV1Messages accepts the capture and clicking trigger messages.
func (d *Deps) handleV1Messages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "use POST", nil)
		return
	}
	var msg domain.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", "invalid json", nil)
		return
	}
	if msg.Interval < 0 || msg.Interval > usecase.MaxClickIntervalMs {
		writeError(w, http.StatusBadRequest, "BAD_VALUE", "interval out of range", map[string]any{"interval": msg.Interval, "max": usecase.MaxClickIntervalMs})
		return
	}
	resp, err := d.Svc.Handle(r.Context(), msg)
	if err != nil {
		if errors.Is(err, usecase.ErrBadInterval) {
			writeError(w, http.StatusBadRequest, "BAD_VALUE", err.Error(), nil)
			return
		}
		if errors.Is(err, usecase.ErrUnknownMessage) {
			writeError(w, http.StatusBadRequest, "BAD_MESSAGE", err.Error(), msg)
			return
		}
		writeError(w, http.StatusInternalServerError, "EXPORT_FAILED", err.Error(), nil)
		return
	}
	d.Logger.Info().Str("action", msg.Action).Str("type", msg.Type).Str("status", resp.Status).Msg("message handled")
	writeJSON(w, http.StatusOK, resp)
}

func (d *Deps) handleV1Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "use GET", nil)
		return
	}
	writeJSON(w, http.StatusOK, d.Svc.Status())
}

// handleV1HAR downloads the current capture on GET and saves the host HAR on POST.
func (d *Deps) handleV1HAR(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Disposition", "attachment; filename="+export.DefaultFilename(time.Now()))
		writeJSON(w, http.StatusOK, d.Svc.CurrentLog())
	case http.MethodPost:
		var in struct {
			Filename string `json:"filename"`
		}
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				writeError(w, http.StatusBadRequest, "BAD_JSON", "invalid json", nil)
				return
			}
		}
		rec, err := d.Svc.ExportHAR(r.Context(), in.Filename)
		if err != nil {
			if errors.Is(err, usecase.ErrNoHARSource) {
				writeError(w, http.StatusServiceUnavailable, "HAR_UNAVAILABLE", err.Error(), nil)
				return
			}
			writeError(w, http.StatusBadGateway, "HAR_EXPORT_FAILED", err.Error(), nil)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "use GET/POST", nil)
	}
}

// handleV1Exports lists the export history on GET and clears it on DELETE.
func (d *Deps) handleV1Exports(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodDelete {
		if err := d.Svc.ClearExports(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, "EXPORTS_CLEAR_FAILED", err.Error(), nil)
			return
		}
		d.Logger.Info().Msg("export history cleared")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "use GET/DELETE", nil)
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	offset, _ := strconv.Atoi(q.Get("offset"))
	f := usecase.ExportFilter{Q: q.Get("q"), Limit: limit, Offset: offset}
	if k := q.Get("kind"); k != "" {
		kind := domain.ExportKind(k)
		f.Kind = &kind
	}
	items, total, err := d.Svc.ListExports(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "EXPORTS_LIST_FAILED", err.Error(), nil)
		return
	}
	next := ""
	if offset+limit < total {
		next = strconv.Itoa(offset + limit)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": total, "next": next})
}

// handleV1MonitorStream forwards notifications as server-sent events.
func (d *Deps) handleV1MonitorStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "STREAM_UNSUPPORTED", "stream unsupported", nil)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// the server write timeout must not cut the stream
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	sub := d.Monitor.Subscribe()
	defer d.Monitor.Unsubscribe(sub)
	enc := json.NewEncoder(w)
	_ = writeSSE(w, flusher, "status", d.Svc.Status(), enc)
	for {
		select {
		case <-r.Context().Done():
			return
		case n := <-sub:
			_ = writeSSE(w, flusher, n.Type, n, enc)
		}
	}
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, event string, data any, enc *json.Encoder) error {
	if _, err := w.Write([]byte("event: " + event + "\ndata: ")); err != nil {
		return err
	}
	// Encode terminates the line
	if err := enc.Encode(data); err != nil {
		return err
	}
	_, err := w.Write([]byte("\n"))
	flusher.Flush()
	return err
}
