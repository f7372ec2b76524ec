package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ValentinKolb/dCouch/lib/store"
	"github.com/ValentinKolb/dCouch/rpc/common"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/pkg/errors"
)

var (
	Logger = logger.GetLogger("rpc")
)

const unixPrefix = "unix://"

// RemoteError is an error answer of the server that is not a store domain
// error (bad_request or internal_error).
type RemoteError struct {
	Status int
	Kind   string
	Reason string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Reason)
}

// Client talks to a dCouch (or CouchDB 0.10 compatible) server over HTTP.
//
// Thread-safety: A Client is safe for concurrent use.
type Client struct {
	config  common.ClientConfig
	baseURL *url.URL
	http    *http.Client
}

// NewClient creates a client for config.Endpoint, which is either a URL
// (http://host:port), a host:port pair or unix:///path/to.sock.
func NewClient(config common.ClientConfig) (*Client, error) {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	var base *url.URL
	if socketPath, ok := strings.CutPrefix(config.Endpoint, unixPrefix); ok {
		dialer := &net.Dialer{}
		transport.DialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialer.DialContext(ctx, "unix", socketPath)
		}
		base = &url.URL{Scheme: "http", Host: "unix"}
	} else {
		endpoint := config.Endpoint
		if !strings.Contains(endpoint, "://") {
			endpoint = "http://" + endpoint
		}
		parsed, err := url.Parse(endpoint)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid endpoint %s", config.Endpoint)
		}
		base = parsed
	}

	if config.RetryCount < 1 {
		config.RetryCount = 1
	}

	return &Client{
		config:  config,
		baseURL: base,
		http: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(config.TimeoutSecond) * time.Second,
		},
	}, nil
}

// Close releases idle connections
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// --------------------------------------------------------------------------
// Request helper
// --------------------------------------------------------------------------

// request describes one call
type request struct {
	method string
	path   []string // unescaped path segments
	query  url.Values
	header http.Header
	body   []byte
}

// invoke sends req and decodes a successful answer into out (if not nil).
// Error answers are decoded into *store.Error for domain errors and
// *RemoteError for everything else.
func (c *Client) invoke(ctx context.Context, req request, out interface{}) error {
	u := *c.baseURL
	segments := make([]string, len(req.path))
	for i, s := range req.path {
		segments[i] = url.PathEscape(s)
	}
	u.RawPath = strings.TrimSuffix(u.Path, "/") + "/" + strings.Join(segments, "/")
	u.Path, _ = url.PathUnescape(u.RawPath)
	u.RawQuery = req.query.Encode()

	var (
		resp *http.Response
		err  error
	)
	for i := 0; i < c.config.RetryCount; i++ {
		var httpReq *http.Request
		httpReq, err = http.NewRequestWithContext(ctx, req.method, u.String(), bytes.NewReader(req.body))
		if err != nil {
			return errors.Wrap(err, "create request")
		}
		for key, values := range req.header {
			httpReq.Header[key] = values
		}
		if req.body != nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}

		resp, err = c.http.Do(httpReq)
		if err == nil {
			break
		}
		Logger.Debugf("%s %s failed (attempt %d): %v", req.method, u.Path, i+1, err)
	}
	if err != nil {
		return errors.Wrapf(err, "%s %s", req.method, u.Path)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			Logger.Errorf("Failed to close response body: %v", err)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	if resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	return errors.Wrap(json.Unmarshal(data, out), "decode response")
}

// decodeError turns an error answer into an error value
func decodeError(status int, data []byte) error {
	var body struct {
		Error  string `json:"error"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		return &RemoteError{Status: status, Kind: http.StatusText(status), Reason: strings.TrimSpace(string(data))}
	}
	switch kind := store.Kind(body.Error); kind {
	case store.KindNotFound, store.KindConflict, store.KindValidationFailed:
		return store.NewError(kind, body.Reason)
	default:
		return &RemoteError{Status: status, Kind: body.Error, Reason: body.Reason}
	}
}

// rawJSON marshals v unless it already is encoded
func rawJSON(v interface{}) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case json.RawMessage:
		return t, nil
	case string:
		return []byte(t), nil
	default:
		data, err := json.Marshal(v)
		return data, errors.Wrap(err, "encode document")
	}
}
