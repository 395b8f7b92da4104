// Package notes pulls note cards out of captured feed responses in a HAR file.
package notes

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

const readableLayout = "2006-01-02 15:04:05"

var ErrNoNotes = errors.New("no notes to save")

// Note is one note card as sent by the feed API, plus the derived fields
// unified_title, readable_time and readable_current_time.
type Note map[string]any

type harFile struct {
	Log struct {
		Entries []harEntry `json:"entries"`
	} `json:"log"`
}

// harEntry accepts both standard entries and flat {url, content} ones.
type harEntry struct {
	URL     string      `json:"url"`
	Content *harContent `json:"content"`
	Request *struct {
		URL string `json:"url"`
	} `json:"request"`
	Response *struct {
		Content *harContent `json:"content"`
	} `json:"response"`
}

type harContent struct {
	Text *string `json:"text"`
}

func (e harEntry) body() (string, bool) {
	c := e.Content
	if c == nil && e.Response != nil {
		c = e.Response.Content
	}
	if c == nil || c.Text == nil {
		return "", false
	}
	return *c.Text, true
}

func (e harEntry) url() string {
	if e.URL != "" {
		return e.URL
	}
	if e.Request != nil {
		return e.Request.URL
	}
	return ""
}

type Extractor struct {
	loc    *time.Location
	logger *zerolog.Logger
}

func NewExtractor(logger *zerolog.Logger) (*Extractor, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		return nil, fmt.Errorf("load time zone: %w", err)
	}
	return &Extractor{loc: loc, logger: logger}, nil
}

// Extract reads a HAR document and returns every note card found in its response bodies.
func (x *Extractor) Extract(r io.Reader) ([]Note, error) {
	var h harFile
	if err := json.NewDecoder(r).Decode(&h); err != nil {
		return nil, fmt.Errorf("read har: %w", err)
	}
	x.logger.Info().Int("entries", len(h.Log.Entries)).Msg("har loaded")
	out := make([]Note, 0)
	for _, e := range h.Log.Entries {
		text, ok := e.body()
		if !ok {
			continue
		}
		cards := x.fromBody(text, e.url())
		if len(cards) > 0 {
			x.logger.Debug().Str("url", e.url()).Int("notes", len(cards)).Msg("notes extracted")
			out = append(out, cards...)
		}
	}
	for _, n := range out {
		n["unified_title"] = unifiedTitle(n)
		x.addReadableTime(n, "time", "readable_time")
		x.addReadableTime(n, "current_time", "readable_current_time")
	}
	x.logger.Info().Int("notes", len(out)).Msg("extraction finished")
	return out, nil
}

func (x *Extractor) fromBody(text, url string) []Note {
	doc, err := decodeJSON([]byte(text))
	if err != nil {
		raw, ok := decodeBase64(text)
		if !ok {
			x.logger.Warn().Str("url", url).Msg("body is neither json nor base64 json, skipped")
			return nil
		}
		if doc, err = decodeJSON(raw); err != nil {
			x.logger.Warn().Str("url", url).Msg("body is neither json nor base64 json, skipped")
			return nil
		}
	}
	return noteCards(doc)
}

func decodeJSON(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// decodeBase64 repairs missing padding before decoding; the result must be UTF-8.
func decodeBase64(s string) ([]byte, bool) {
	s = strings.TrimSpace(s)
	if pad := len(s) % 4; pad != 0 {
		s += strings.Repeat("=", 4-pad)
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil || !utf8.Valid(b) {
		return nil, false
	}
	return b, true
}

// noteCards collects data.items[].note_card where model_type is "note".
func noteCards(doc any) []Note {
	root, ok := doc.(map[string]any)
	if !ok {
		return nil
	}
	data, _ := root["data"].(map[string]any)
	items, _ := data["items"].([]any)
	var out []Note
	for _, it := range items {
		item, ok := it.(map[string]any)
		if !ok || item["model_type"] != "note" {
			continue
		}
		if card, ok := item["note_card"].(map[string]any); ok {
			out = append(out, Note(card))
		}
	}
	return out
}

func unifiedTitle(n Note) string {
	for _, k := range []string{"display_title", "title"} {
		if s, ok := n[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func (x *Extractor) addReadableTime(n Note, field, readable string) {
	v, ok := n[field]
	if !ok {
		return
	}
	ms, err := millis(v)
	if err != nil {
		x.logger.Warn().Str("field", field).Interface("value", v).Msg("timestamp not convertible")
		return
	}
	n[readable] = time.UnixMilli(ms).In(x.loc).Format(readableLayout)
}

func millis(v any) (int64, error) {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		f, err := t.Float64()
		return int64(f), err
	case float64:
		return int64(t), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(t), 10, 64)
	}
	return 0, fmt.Errorf("unsupported timestamp type %T", v)
}

// Save writes notes as indented JSON. Non-ASCII text is written as is.
func Save(w io.Writer, notes []Note) error {
	if len(notes) == 0 {
		return ErrNoNotes
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(notes)
}

// DefaultOutputName derives "<har base name>_content.json".
func DefaultOutputName(harPath string) string {
	base := filepath.Base(harPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "_content.json"
}
