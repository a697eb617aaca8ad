package item

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"time"
)

// FetchItem is an HTTP request dispatched to a Fetch Worker.
//
// Transport-level failures (DNS, connection refused, reset, context
// deadline exceeded) are surfaced through Err — StatusCode stays at its
// zero value in that case. A completed HTTP round trip, even one with a
// 4xx/5xx status, is not itself an error: callers check Err first, then
// inspect StatusCode.
//
// ResponseHeader is recorded on every completed round trip regardless of
// status, matching the original dpxdt client's unconditional
// item.headers = conn.info(). Response is only populated when StatusCode
// is 200 — a non-2xx response carries its status code and headers with no
// body, mirroring conn.read() being gated the same way.
type FetchItem struct {
	Base

	URL     string
	Method  string
	Header  http.Header
	Body    []byte
	Timeout time.Duration

	StatusCode     int
	Response       []byte
	ResponseHeader http.Header

	jsonCached bool
	jsonValue  any
	jsonErr    error
}

// NewFetch builds a FetchItem for a GET request against url. Method,
// Header, Body, and Timeout can be set on the returned item before it is
// yielded.
func NewFetch(url string) *FetchItem {
	return &FetchItem{
		Base:   NewBase(KindFetch),
		URL:    url,
		Method: http.MethodGet,
	}
}

// JSON lazily decodes Response as JSON the first time it is called and
// caches the result, mirroring the original client's json property. It
// only attempts the decode when ResponseHeader's Content-Type is
// application/json; otherwise it returns an error without touching
// Response. Safe to call repeatedly — the decode runs at most once.
func (f *FetchItem) JSON() (any, error) {
	if f.jsonCached {
		return f.jsonValue, f.jsonErr
	}
	f.jsonCached = true

	ct := f.ResponseHeader.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil || mediaType != "application/json" {
		f.jsonErr = fmt.Errorf("fetch: response content type %q is not application/json", ct)
		return nil, f.jsonErr
	}

	if err := json.Unmarshal(f.Response, &f.jsonValue); err != nil {
		f.jsonErr = fmt.Errorf("fetch: decoding response as json: %w", err)
		f.jsonValue = nil
		return nil, f.jsonErr
	}
	return f.jsonValue, nil
}
