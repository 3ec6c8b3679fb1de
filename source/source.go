// Copyright 2022 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package source

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/fetch"
	"github.com/stockparfait/logging"
	"github.com/stockparfait/macro/metrics"
	"github.com/stockparfait/macro/window"
)

// AuthKind is the convention for passing the credential to the provider.
type AuthKind string

// Values of AuthKind.
const (
	AuthNone   = AuthKind("none")
	AuthHeader = AuthKind("header") // raw credential in a header
	AuthBearer = AuthKind("bearer") // "Authorization: Bearer <credential>"
	AuthQuery  = AuthKind("query")  // credential as a query parameter
)

// DefaultTimeout of a single API call.
const DefaultTimeout = 30 * time.Second

// Record is a single raw observation as decoded from JSON.
type Record map[string]any

// Endpoint describes how to query one provider.
type Endpoint struct {
	URL        string
	Credential string
	Auth       AuthKind
	// AuthParam is the header name for AuthHeader (default "Authorization") or
	// the query parameter name for AuthQuery.
	AuthParam  string
	Params     url.Values // fixed query parameters
	StartParam string     // query parameter for the window start
	EndParam   string     // query parameter for the window end
	// DateLayout formats window bounds, e.g. "2006-01-02", "2006-01", "2006".
	DateLayout         string
	Timeout            time.Duration // per call; 0 means DefaultTimeout
	InsecureSkipVerify bool
}

// Check the endpoint for consistency.
func (e *Endpoint) Check() error {
	if e.URL == "" {
		return errors.Reason("endpoint URL is required")
	}
	if _, err := url.Parse(e.URL); err != nil {
		return errors.Annotate(err, "invalid endpoint URL '%s'", e.URL)
	}
	switch e.Auth {
	case AuthNone, "":
	case AuthHeader, AuthBearer:
		if e.Credential == "" {
			return errors.Reason("auth '%s' requires a credential", e.Auth)
		}
	case AuthQuery:
		if e.Credential == "" || e.AuthParam == "" {
			return errors.Reason("auth 'query' requires a credential and auth_param")
		}
	default:
		return errors.Reason("unsupported auth kind: '%s'", e.Auth)
	}
	if (e.StartParam != "" || e.EndParam != "") && e.DateLayout == "" {
		return errors.Reason("date layout is required for window parameters")
	}
	return nil
}

// Query returns the query values for the window. Each call creates a new
// object, so the caller is free to modify it.
func (e *Endpoint) Query(w window.Window) url.Values {
	v := make(url.Values)
	for k, vs := range e.Params {
		v[k] = append([]string{}, vs...)
	}
	if e.StartParam != "" {
		v.Set(e.StartParam, w.Start.Format(e.DateLayout))
	}
	if e.EndParam != "" {
		v.Set(e.EndParam, w.End.Format(e.DateLayout))
	}
	if e.Auth == AuthQuery {
		v.Set(e.AuthParam, e.Credential)
	}
	return v
}

// Header returns the request header carrying the credential, if any.
func (e *Endpoint) Header() http.Header {
	h := make(http.Header)
	switch e.Auth {
	case AuthHeader:
		name := e.AuthParam
		if name == "" {
			name = "Authorization"
		}
		h.Set(name, e.Credential)
	case AuthBearer:
		h.Set("Authorization", "Bearer "+e.Credential)
	}
	return h
}

func (e *Endpoint) timeout() time.Duration {
	if e.Timeout <= 0 {
		return DefaultTimeout
	}
	return e.Timeout
}

// Result of fetching a single window. A nil Payload means the window is
// absent, and Err says why.
type Result struct {
	Window  window.Window
	Payload any
	Err     error
}

// Absent reports whether the window yielded no payload.
func (r Result) Absent() bool { return r.Payload == nil }

// NoDataError is returned when every window of a series came back absent or
// yielded no records.
type NoDataError struct {
	Endpoint string
	Windows  int
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no data fetched from %s for %d window(s)", e.Endpoint, e.Windows)
}

// Sleeper pauses between calls. It must return early with an error when the
// context is canceled.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Fetcher queries one endpoint sequentially, one call per window, pausing
// between calls.
type Fetcher struct {
	Name     string // series name, for logs and metrics
	Endpoint Endpoint
	Pacing   time.Duration
	Sleep    Sleeper
}

// NewFetcher creates a Fetcher with the default sleeper.
func NewFetcher(name string, e Endpoint, pacing time.Duration) *Fetcher {
	return &Fetcher{Name: name, Endpoint: e, Pacing: pacing, Sleep: Sleep}
}

// maxErrorBody bounds how much of a failed response is quoted in the error.
const maxErrorBody = 512

// fetchOne makes a single GET for the window, bounded by the endpoint's
// timeout. There are no retries: a failed call is an absent window.
func (f *Fetcher) fetchOne(ctx context.Context, w window.Window) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, f.Endpoint.timeout())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Endpoint.URL, nil)
	if err != nil {
		return nil, errors.Annotate(err, "failed to create request for %s", f.Endpoint.URL)
	}
	q := req.URL.Query()
	for k, vs := range f.Endpoint.Query(w) {
		q[k] = vs
	}
	req.URL.RawQuery = q.Encode()
	for k, vs := range f.Endpoint.Header() {
		req.Header[k] = vs
	}
	client := http.DefaultClient
	if c := fetch.GetClient(ctx); c != nil {
		client = c
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Annotate(err, "failed to fetch %s for %s", f.Endpoint.URL, w)
	}
	defer resp.Body.Close()
	if !fetch.ResponseOK(resp) {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, errors.Reason("%s for %s: response code %s, body: %s",
			f.Endpoint.URL, w, resp.Status, string(body))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Annotate(err, "failed to read response from %s for %s", f.Endpoint.URL, w)
	}
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, errors.Annotate(err, "malformed JSON from %s for %s", f.Endpoint.URL, w)
	}
	if payload == nil {
		return nil, errors.Reason("null response from %s for %s", f.Endpoint.URL, w)
	}
	return payload, nil
}

// insecureClient derives a client from c that skips TLS verification, for
// providers with broken certificate chains. The transport of c is cloned, so
// its proxy and root CAs survive. A transport other than *http.Transport is
// kept as is.
func insecureClient(c *http.Client) *http.Client {
	if c == nil {
		c = http.DefaultClient
	}
	var tr *http.Transport
	switch t := c.Transport.(type) {
	case nil:
		tr = http.DefaultTransport.(*http.Transport).Clone()
	case *http.Transport:
		tr = t.Clone()
	default:
		return c
	}
	if tr.TLSClientConfig == nil {
		tr.TLSClientConfig = &tls.Config{}
	}
	tr.TLSClientConfig.InsecureSkipVerify = true // #nosec G402
	client := *c
	client.Transport = tr
	return &client
}

// FetchAll makes one call per window, in order, and returns one Result per
// window. A failed call is logged and recorded as an absent result without
// aborting the loop. The error is *NoDataError when all windows are absent, or
// the context error when canceled while pacing.
func (f *Fetcher) FetchAll(ctx context.Context, windows []window.Window) ([]Result, error) {
	if f.Endpoint.InsecureSkipVerify {
		ctx = fetch.UseClient(ctx, insecureClient(fetch.GetClient(ctx)))
	}
	sleep := f.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	m := metrics.Get(ctx)
	results := make([]Result, 0, len(windows))
	present := 0
	for i, w := range windows {
		payload, err := f.fetchOne(ctx, w)
		results = append(results, Result{Window: w, Payload: payload, Err: err})
		if err != nil {
			logging.Warningf(ctx, "%s [%d/%d] %s: %s", f.Name, i+1, len(windows), w, err.Error())
			m.Windows.WithLabelValues(f.Name, metrics.StatusFailed).Inc()
		} else {
			logging.Debugf(ctx, "%s [%d/%d] %s: fetched", f.Name, i+1, len(windows), w)
			m.Windows.WithLabelValues(f.Name, metrics.StatusOK).Inc()
			present++
		}
		if i < len(windows)-1 && f.Pacing > 0 {
			if err := sleep(ctx, f.Pacing); err != nil {
				return results, errors.Annotate(err, "%s: interrupted after %d of %d windows",
					f.Name, i+1, len(windows))
			}
		}
	}
	if present == 0 {
		return results, &NoDataError{Endpoint: f.Endpoint.URL, Windows: len(windows)}
	}
	return results, nil
}
