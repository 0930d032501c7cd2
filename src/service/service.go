package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/mosaicnetworks/murmur/src/node"
	"github.com/mosaicnetworks/murmur/src/timeline"
	"github.com/sirupsen/logrus"
)

// Service exposes the local user's operations over HTTP: posting, following,
// reading the merged timeline, forcing a sync and reading stats. It is meant
// to listen on a local address, separate from the transport.
type Service struct {
	bindAddress string
	node        *node.Node
	mux         *http.ServeMux
	server      *http.Server
	logger      *logrus.Entry
}

// NewService ...
func NewService(bindAddress string, n *node.Node, logger *logrus.Entry) *Service {
	service := Service{
		bindAddress: bindAddress,
		node:        n,
		mux:         http.NewServeMux(),
		logger:      logger.WithField("prefix", "service"),
	}

	service.registerHandlers()

	service.server = &http.Server{
		Addr:    bindAddress,
		Handler: service.mux,
	}

	return &service
}

func (s *Service) registerHandlers() {
	s.logger.Debug("Registering murmur API handlers")
	s.mux.HandleFunc("POST /messages", s.makeHandler(s.PostMessage))
	s.mux.HandleFunc("GET /merged", s.makeHandler(s.GetMerged))
	s.mux.HandleFunc("POST /follow/{user}", s.makeHandler(s.Follow))
	s.mux.HandleFunc("POST /sync", s.makeHandler(s.Sync))
	s.mux.HandleFunc("GET /following", s.makeHandler(s.GetFollowing))
	s.mux.HandleFunc("GET /stats", s.makeHandler(s.GetStats))
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}
}

// Handler returns the handler serving the API.
func (s *Service) Handler() http.Handler {
	return s.mux
}

// Serve calls ListenAndServe. This is a blocking call.
func (s *Service) Serve() {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving murmur API")

	err := s.server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error(err)
	}
}

// Shutdown stops the server gracefully.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type postMessageRequest struct {
	Content string `json:"content"`
}

type postMessageResponse struct {
	Message timeline.Message `json:"message"`
	Push    pushResult       `json:"push"`
}

type pushResult struct {
	node.PushReport
	Failed []string `json:"failed"`
}

func newPushResult(report node.PushReport) pushResult {
	res := pushResult{
		PushReport: report,
		Failed:     []string{},
	}
	for addr := range report.Failed {
		res.Failed = append(res.Failed, addr)
	}
	sort.Strings(res.Failed)
	return res
}

// PostMessage appends a message, stamped with the current time, to the local
// timeline and propagates it.
func (s *Service) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, "empty content", http.StatusBadRequest)
		return
	}

	msg := timeline.Message{
		Content:   req.Content,
		Timestamp: time.Now().Unix(),
	}

	stored, report, err := s.node.PostNewMessage(r.Context(), msg)
	if err != nil {
		s.logger.WithError(err).Error("Posting message")

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	writeJSON(w, http.StatusOK, postMessageResponse{
		Message: stored,
		Push:    newPushResult(report),
	})
}

// GetMerged returns the merged view of the local and followed timelines.
func (s *Service) GetMerged(w http.ResponseWriter, r *http.Request) {
	merged, err := s.node.GetMergedTimeline()
	if err != nil {
		s.logger.WithError(err).Error("Merging timelines")

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	writeJSON(w, http.StatusOK, merged)
}

type followResponse struct {
	User   string `json:"user"`
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
}

// Follow starts following the user named in the path.
func (s *Service) Follow(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")

	res, err := s.node.FollowUser(r.Context(), user)

	resp := followResponse{
		User:   user,
		Result: res.String(),
	}
	if err != nil {
		resp.Error = err.Error()
	}

	status := http.StatusOK
	switch {
	case errors.Is(err, node.ErrFollowSelf):
		status = http.StatusBadRequest
	case res == node.NoUserFound:
		status = http.StatusNotFound
	case res == node.NoAvailablePeerFound:
		status = http.StatusBadGateway
	}

	writeJSON(w, status, resp)
}

type syncResponse struct {
	Updated   []string          `json:"updated"`
	Unchanged []string          `json:"unchanged"`
	Failed    map[string]string `json:"failed"`
	Push      pushResult        `json:"push"`
}

// Sync runs an anti-entropy round immediately.
func (s *Service) Sync(w http.ResponseWriter, r *http.Request) {
	report := s.node.SyncTimeline(r.Context())

	resp := syncResponse{
		Updated:   report.Updated,
		Unchanged: report.Unchanged,
		Failed:    make(map[string]string),
		Push:      newPushResult(report.Push),
	}
	for user, err := range report.Failed {
		resp.Failed[user] = err.Error()
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetFollowing returns the followed users.
func (s *Service) GetFollowing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.node.GetFollowed())
}

// GetStats ...
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.node.GetStats())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
