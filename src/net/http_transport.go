package net

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/mosaicnetworks/murmur/src/timeline"
	"github.com/sirupsen/logrus"
)

const (
	// maxBodySize limits the size of a pushed snapshot.
	maxBodySize = 8 << 20

	contentTypeJSON = "application/json"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error  string `json:"error,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// HTTPTransport implements the Transport interface over HTTP. The server side
// turns requests into RPCs on the consumer channel, the client side issues
// requests to other nodes' servers.
type HTTPTransport struct {
	listener      net.Listener
	advertiseAddr string
	server        *http.Server
	client        *http.Client

	consumeCh chan RPC

	// timeout bounds outgoing requests, and the time the server waits for the
	// node to answer an RPC.
	timeout time.Duration

	shutdown     bool
	shutdownCh   chan struct{}
	shutdownLock sync.Mutex

	// etags holds the last timeline body fetched from each URL, so that
	// GetTimeline can revalidate it with If-None-Match.
	etags     map[string]cachedTimeline
	etagsLock sync.Mutex

	logger *logrus.Entry
}

// cachedTimeline is a snapshot body and the ETag it was served with.
type cachedTimeline struct {
	etag string
	body []byte
}

// NewHTTPTransport binds bindAddr and returns a transport that is ready to
// Listen. If advertiseAddr is empty, the address of the listener is
// advertised.
func NewHTTPTransport(
	bindAddr string,
	advertiseAddr string,
	timeout time.Duration,
	logger *logrus.Entry,
) (*HTTPTransport, error) {

	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	list, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}

	if advertiseAddr == "" {
		advertiseAddr = list.Addr().String()
	}

	trans := &HTTPTransport{
		listener:      list,
		advertiseAddr: advertiseAddr,
		client: &http.Client{
			Timeout: timeout,
		},
		consumeCh:  make(chan RPC),
		timeout:    timeout,
		shutdownCh: make(chan struct{}),
		etags:      make(map[string]cachedTimeline),
		logger:     logger.WithField("prefix", "http-transport"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("PUT /timeline/{user}", trans.handlePush)
	mux.HandleFunc("GET /timeline/{user}", trans.handleTimeline)
	mux.HandleFunc("GET /timeline/last-update/{user}", trans.handleLastUpdate)

	trans.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: timeout,
	}

	return trans, nil
}

// Listen implements the Transport interface. It serves requests until the
// transport is closed.
func (t *HTTPTransport) Listen() {
	err := t.server.Serve(t.listener)
	if err != nil && err != http.ErrServerClosed {
		t.logger.WithError(err).Error("Listen")
	}
}

// Consumer implements the Transport interface.
func (t *HTTPTransport) Consumer() <-chan RPC {
	return t.consumeCh
}

// LocalAddr implements the Transport interface.
func (t *HTTPTransport) LocalAddr() string {
	return t.listener.Addr().String()
}

// AdvertiseAddr implements the Transport interface.
func (t *HTTPTransport) AdvertiseAddr() string {
	return t.advertiseAddr
}

// IsShutdown is used to check if the transport is shutdown.
func (t *HTTPTransport) IsShutdown() bool {
	select {
	case <-t.shutdownCh:
		return true
	default:
		return false
	}
}

// Close implements the Transport interface.
func (t *HTTPTransport) Close() error {
	t.shutdownLock.Lock()
	defer t.shutdownLock.Unlock()

	if t.shutdown {
		return nil
	}

	close(t.shutdownCh)
	t.shutdown = true

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	err := t.server.Shutdown(ctx)
	t.client.CloseIdleConnections()

	// the listener is not owned by the server until Listen is called
	t.listener.Close()

	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

/*******************************************************************************
Client
*******************************************************************************/

// PushTimeline implements the Transport interface.
func (t *HTTPTransport) PushTimeline(ctx context.Context, target string, args *PushRequest, resp *PushResponse) error {
	return t.do(ctx, http.MethodPut, timelineURL(target, "/timeline/", args.User), args.Payload, resp)
}

// GetTimeline implements the Transport interface. A body fetched earlier from
// the same URL is revalidated with If-None-Match and reused on 304.
func (t *HTTPTransport) GetTimeline(ctx context.Context, target string, args *TimelineRequest, resp *TimelineResponse) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	u := timelineURL(target, "/timeline/", args.User)

	t.etagsLock.Lock()
	cached, hasCached := t.etags[u]
	t.etagsLock.Unlock()

	header := http.Header{}
	if hasCached {
		header.Set("If-None-Match", cached.etag)
	}

	res, err := t.send(ctx, http.MethodGet, u, nil, header)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	var body []byte
	switch {
	case res.StatusCode == http.StatusNotModified && hasCached:
		body = cached.body
	case res.StatusCode == http.StatusOK:
		body, err = io.ReadAll(io.LimitReader(res.Body, maxBodySize))
		if err != nil {
			return err
		}
		t.remember(u, res.Header.Get("ETag"), body)
	default:
		t.remember(u, "", nil)
		return statusError(res)
	}

	snap := &timeline.Snapshot{}
	if err := decodeFrom(bytes.NewReader(body), snap); err != nil {
		return err
	}
	resp.Snapshot = snap
	return nil
}

// remember records the body served at u under etag. An empty etag forgets u.
func (t *HTTPTransport) remember(u string, etag string, body []byte) {
	t.etagsLock.Lock()
	defer t.etagsLock.Unlock()

	if etag == "" {
		delete(t.etags, u)
		return
	}
	t.etags[u] = cachedTimeline{etag: etag, body: body}
}

// GetLastUpdate implements the Transport interface.
func (t *HTTPTransport) GetLastUpdate(ctx context.Context, target string, args *LastUpdateRequest, resp *LastUpdateResponse) error {
	return t.do(ctx, http.MethodGet, timelineURL(target, "/timeline/last-update/", args.User), nil, resp)
}

func timelineURL(target string, prefix string, user string) string {
	u := url.URL{
		Scheme:  "http",
		Host:    target,
		Path:    prefix + user,
		RawPath: prefix + url.PathEscape(user),
	}
	return u.String()
}

func (t *HTTPTransport) do(ctx context.Context, method string, target string, body []byte, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	res, err := t.send(ctx, method, target, body, nil)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return statusError(res)
	}

	return decodeFrom(res.Body, out)
}

// send issues a request with the given extra headers. The caller closes the
// response body.
func (t *HTTPTransport) send(ctx context.Context, method string, target string, body []byte, header http.Header) (*http.Response, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if body != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}

	return t.client.Do(req)
}

// statusError maps a non-200 response to an error.
func statusError(res *http.Response) error {
	msg := http.StatusText(res.StatusCode)

	var body errorResponse
	if err := decodeFrom(io.LimitReader(res.Body, 4096), &body); err == nil {
		if body.Reason != "" {
			msg = body.Reason
		} else if body.Error != "" {
			msg = body.Error
		}
	}

	switch res.StatusCode {
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrRejected, msg)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrBadRequest, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	default:
		return fmt.Errorf("unexpected status %d: %s", res.StatusCode, msg)
	}
}

/*******************************************************************************
Server
*******************************************************************************/

func (t *HTTPTransport) handlePush(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		t.writeError(w, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	if len(payload) > maxBodySize {
		t.writeError(w, fmt.Errorf("%w: body exceeds %d bytes", ErrBadRequest, maxBodySize))
		return
	}

	resp, err := t.dispatch(r.Context(), &PushRequest{User: user, Payload: payload})
	if err != nil {
		t.writeError(w, err)
		return
	}

	pushResp, ok := resp.(*PushResponse)
	if !ok {
		t.writeError(w, fmt.Errorf("unexpected response type %T", resp))
		return
	}

	if !pushResp.Accepted {
		t.writeJSON(w, http.StatusForbidden, pushResp)
		return
	}

	t.writeJSON(w, http.StatusOK, pushResp)
}

func (t *HTTPTransport) handleTimeline(w http.ResponseWriter, r *http.Request) {
	resp, err := t.dispatch(r.Context(), &TimelineRequest{User: r.PathValue("user")})
	if err != nil {
		t.writeError(w, err)
		return
	}

	tlResp, ok := resp.(*TimelineResponse)
	if !ok || tlResp.Snapshot == nil {
		t.writeError(w, fmt.Errorf("unexpected response %#v", resp))
		return
	}

	body, err := encodeBytes(tlResp.Snapshot)
	if err != nil {
		t.writeError(w, err)
		return
	}

	etag := fmt.Sprintf("\"%016x\"", xxhash.Sum64(body))
	w.Header().Set("ETag", etag)

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (t *HTTPTransport) handleLastUpdate(w http.ResponseWriter, r *http.Request) {
	resp, err := t.dispatch(r.Context(), &LastUpdateRequest{User: r.PathValue("user")})
	if err != nil {
		t.writeError(w, err)
		return
	}

	t.writeJSON(w, http.StatusOK, resp)
}

// dispatch hands the command to the node and waits for its answer.
func (t *HTTPTransport) dispatch(ctx context.Context, command interface{}) (interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	respCh := make(chan RPCResponse, 1)
	rpc := RPC{
		Command:  command,
		RespChan: respCh,
	}

	select {
	case t.consumeCh <- rpc:
	case <-t.shutdownCh:
		return nil, ErrTransportShutdown
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case resp := <-respCh:
		return resp.Response, resp.Error
	case <-t.shutdownCh:
		return nil, ErrTransportShutdown
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *HTTPTransport) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrBadRequest):
		code = http.StatusBadRequest
	case errors.Is(err, ErrRejected):
		code = http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrTransportShutdown),
		errors.Is(err, context.DeadlineExceeded):
		code = http.StatusServiceUnavailable
	}

	if code == http.StatusInternalServerError {
		t.logger.WithError(err).Error("Handling request")
	} else {
		t.logger.WithError(err).WithField("code", code).Debug("Handling request")
	}

	t.writeJSON(w, code, &errorResponse{Error: err.Error()})
}

func (t *HTTPTransport) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	body, err := encodeBytes(v)
	if err != nil {
		t.logger.WithError(err).Error("Encoding response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(code)
	w.Write(body)
}
