package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Request describes one API call. Path is relative to the client's base URL.
// Body, when non-nil, is sent as JSON.
type Request struct {
	Method string
	Path   string
	Body   any
	Header http.Header
}

// call is a request on its way through the session guard. body is encoded once so a
// retry sends exactly the same bytes.
type call struct {
	req            *Request
	body           []byte
	alreadyRetried bool
}

type response struct {
	status int
	body   []byte
}

func newCall(req *Request) (*call, error) {
	cl := &call{req: req}
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s %s body: %w", req.Method, req.Path, err)
		}
		cl.body = b
	}
	return cl, nil
}

// send performs one HTTP exchange with the given bearer token ("" sends none).
func (c *Client) send(ctx context.Context, cl *call, token string) (*response, error) {
	var body io.Reader
	if cl.body != nil {
		body = bytes.NewReader(cl.body)
	}
	req, err := http.NewRequestWithContext(ctx, cl.req.Method, c.baseURL+cl.req.Path, body)
	if err != nil {
		log.Error().Err(err).Str("method", cl.req.Method).Str("path", cl.req.Path).Msg("Failed to create HTTP request object")
		return nil, err
	}
	for k, vs := range c.header {
		req.Header[k] = append([]string(nil), vs...)
	}
	for k, vs := range cl.req.Header {
		req.Header[k] = append([]string(nil), vs...)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Bool("retry", cl.alreadyRetried).Msg("Sending HTTP request")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Str("method", req.Method).Str("url", req.URL.String()).Msg("HTTP request failed")
		return nil, &NetworkError{Method: cl.req.Method, Path: cl.req.Path, Err: err}
	}
	defer closeResponseBody(resp)

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error().Err(err).Str("url", req.URL.String()).Msg("Failed to read response body")
		return nil, &NetworkError{Method: cl.req.Method, Path: cl.req.Path, Err: err}
	}
	log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Int("status", resp.StatusCode).Msg("HTTP request finished")
	return &response{status: resp.StatusCode, body: b}, nil
}

// finish turns a response into the caller's result: an APIError for non-2xx
// statuses, otherwise the JSON body decoded into out (when out is non-nil).
func finish(cl *call, resp *response, out any) error {
	if resp.status < 200 || resp.status >= 300 {
		return newAPIError(cl.req.Method, cl.req.Path, resp.status, resp.body)
	}
	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		log.Error().Err(err).Str("body_preview", string(resp.body[:min(len(resp.body), 200)])).Msg("Failed to parse response JSON")
		return fmt.Errorf("failed to parse %s %s response: %w", cl.req.Method, cl.req.Path, err)
	}
	return nil
}

// closeResponseBody drains and closes the body so the connection can be reused.
func closeResponseBody(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.CopyN(io.Discard, resp.Body, 1024*1024)
	_ = resp.Body.Close()
}
