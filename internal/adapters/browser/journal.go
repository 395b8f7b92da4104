package browser

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/har"
	"github.com/chromedp/cdproto/network"

	"github.com/Sangdi-IT/yq-monitor/internal/domain"
	"github.com/Sangdi-IT/yq-monitor/internal/export"
	obs "github.com/Sangdi-IT/yq-monitor/internal/infrastructure/observability"
	"github.com/Sangdi-IT/yq-monitor/pkg/shared/redact"
)

var ErrNetworkDisabled = errors.New("network observation is not enabled")

type inflight struct {
	url        string
	method     string
	typ        network.ResourceType
	wall       time.Time
	mono       time.Time
	reqHeaders network.Headers

	responded   bool
	status      int64
	statusText  string
	protocol    string
	mimeType    string
	respHeaders network.Headers
}

// journal follows request lifecycles by id. Finished requests become captured
// exchanges and HAR entries; failed ones are dropped.
type journal struct {
	mu       sync.Mutex
	enabled  bool
	sanitize bool
	open     map[network.RequestID]*inflight
	entries  []*har.Entry
	sink     func(domain.CapturedExchange)
}

func newJournal(sink func(domain.CapturedExchange)) *journal {
	return &journal{open: make(map[network.RequestID]*inflight), sink: sink}
}

func (j *journal) enable() {
	j.mu.Lock()
	j.enabled = true
	j.mu.Unlock()
}

func (j *journal) handle(ev any) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		j.requestWillBeSent(e)
	case *network.EventResponseReceived:
		j.responseReceived(e)
	case *network.EventLoadingFinished:
		j.loadingFinished(e)
	case *network.EventLoadingFailed:
		j.mu.Lock()
		delete(j.open, e.RequestID)
		j.mu.Unlock()
	}
}

func (j *journal) requestWillBeSent(e *network.EventRequestWillBeSent) {
	if e.Request == nil {
		return
	}
	f := &inflight{
		url:        e.Request.URL,
		method:     e.Request.Method,
		typ:        e.Type,
		reqHeaders: e.Request.Headers,
		wall:       time.Now(),
	}
	if e.WallTime != nil {
		f.wall = e.WallTime.Time()
	}
	if e.Timestamp != nil {
		f.mono = e.Timestamp.Time()
	}
	// a redirect reuses the request id; the new hop replaces the old one
	j.mu.Lock()
	j.open[e.RequestID] = f
	j.mu.Unlock()
}

func (j *journal) responseReceived(e *network.EventResponseReceived) {
	if e.Response == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	f, ok := j.open[e.RequestID]
	if !ok {
		return
	}
	f.responded = true
	f.status = e.Response.Status
	f.statusText = e.Response.StatusText
	f.protocol = e.Response.Protocol
	f.mimeType = e.Response.MimeType
	f.respHeaders = e.Response.Headers
	if e.Type != "" {
		f.typ = e.Type
	}
}

func (j *journal) loadingFinished(e *network.EventLoadingFinished) {
	j.mu.Lock()
	f, ok := j.open[e.RequestID]
	if !ok {
		j.mu.Unlock()
		return
	}
	delete(j.open, e.RequestID)
	completed := time.Now()
	if e.Timestamp != nil && !f.mono.IsZero() {
		completed = f.wall.Add(e.Timestamp.Time().Sub(f.mono))
	}
	j.entries = append(j.entries, f.harEntry(completed, e.EncodedDataLength, j.sanitize))
	j.mu.Unlock()

	if j.sink != nil {
		j.sink(f.exchange(completed))
	}
}

func (f *inflight) exchange(completed time.Time) domain.CapturedExchange {
	return domain.CapturedExchange{
		URL:        f.url,
		Method:     f.method,
		TimeStamp:  domain.EpochMillis(completed),
		Type:       resourceType(f.typ),
		StatusCode: int(f.status),
		StatusLine: statusLine(f.protocol, f.status, f.statusText),
	}
}

func (f *inflight) harEntry(completed time.Time, encodedLength float64, sanitize bool) *har.Entry {
	elapsed := float64(completed.Sub(f.wall)) / float64(time.Millisecond)
	if elapsed < 0 {
		elapsed = 0
	}
	version := httpVersion(f.protocol)
	return &har.Entry{
		StartedDateTime: export.FormatISO(f.wall),
		Time:            elapsed,
		Request: &har.Request{
			Method:      f.method,
			URL:         f.url,
			HTTPVersion: version,
			Cookies:     []*har.Cookie{},
			Headers:     nameValues(f.reqHeaders, sanitize),
			QueryString: queryString(f.url),
			HeadersSize: -1,
			BodySize:    -1,
		},
		Response: &har.Response{
			Status:      f.status,
			StatusText:  f.statusText,
			HTTPVersion: version,
			Cookies:     []*har.Cookie{},
			Headers:     nameValues(f.respHeaders, sanitize),
			Content:     &har.Content{Size: int64(encodedLength), MimeType: f.mimeType},
			HeadersSize: -1,
			BodySize:    int64(encodedLength),
		},
		Cache:   &har.Cache{},
		Timings: &har.Timings{Wait: elapsed},
	}
}

// snapshot assembles the HAR of every finished request so far.
func (j *journal) snapshot() (*har.HAR, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.enabled {
		return nil, ErrNetworkDisabled
	}
	entries := make([]*har.Entry, len(j.entries))
	copy(entries, j.entries)
	return &har.HAR{Log: &har.Log{
		Version: export.HARVersion,
		Creator: &har.Creator{Name: "yq-monitor", Version: obs.Version},
		Entries: entries,
	}}, nil
}

func resourceType(t network.ResourceType) domain.ResourceType {
	if t == "" {
		return domain.ResourceOther
	}
	return domain.ResourceType(strings.ToLower(string(t)))
}

func httpVersion(protocol string) string {
	p := strings.ToLower(protocol)
	switch {
	case p == "" || p == "http/1.1":
		return "HTTP/1.1"
	case p == "http/1.0":
		return "HTTP/1.0"
	case p == "h2":
		return "HTTP/2"
	case strings.HasPrefix(p, "h3"), p == "quic":
		return "HTTP/3"
	}
	return strings.ToUpper(protocol)
}

func statusLine(protocol string, status int64, text string) string {
	return strings.TrimSpace(fmt.Sprintf("%s %d %s", httpVersion(protocol), status, text))
}

func nameValues(h network.Headers, sanitize bool) []*har.NameValuePair {
	out := make([]*har.NameValuePair, 0, len(h))
	for k, v := range h {
		val := fmt.Sprint(v)
		if sanitize {
			val = redact.Header(k, val)
		}
		out = append(out, &har.NameValuePair{Name: k, Value: val})
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}

func queryString(raw string) []*har.NameValuePair {
	out := []*har.NameValuePair{}
	u, err := url.Parse(raw)
	if err != nil {
		return out
	}
	for k, vs := range u.Query() {
		for _, v := range vs {
			out = append(out, &har.NameValuePair{Name: k, Value: v})
		}
	}
	sort.SliceStable(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}
