package sse

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const writeTimeout = 60 * time.Second

// UserResolver extracts the caller's user ID from a request.
// An empty result rejects the connection.
type UserResolver func(r *http.Request) string

// Handler serves GET /api/v1/events.
//
// Query parameter topics takes a comma separated list such as
// "catalog,library" to narrow the stream. A reconnecting client sends
// Last-Event-ID and receives the buffered events it missed.
type Handler struct {
	manager *Manager
	user    UserResolver
	logger  *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(manager *Manager, user UserResolver, logger *slog.Logger) *Handler {
	return &Handler{manager: manager, user: user, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.Context().Err() != nil {
		return
	}

	sub, err := subscriptionFrom(r, h.user(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if sub.UserID == "" {
		http.Error(w, "Missing user identity", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	stream := &frameWriter{w: w, rc: http.NewResponseController(w)}
	if err := stream.rc.Flush(); err != nil {
		h.logger.Error("response does not support streaming", slog.String("error", err.Error()))
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	client, err := h.manager.Connect(sub)
	if err != nil {
		h.logger.Error("register client", slog.String("error", err.Error()))
		http.Error(w, "Failed to establish connection", http.StatusInternalServerError)
		return
	}
	defer h.manager.Disconnect(client.ID)

	log := h.logger.With(slog.String("client_id", client.ID))

	if err := stream.write(0, "connected", map[string]any{
		"client_id": client.ID,
		"topics":    sub.Topics,
	}); err != nil {
		log.Warn("initial frame failed", slog.String("error", err.Error()))
		return
	}

	for {
		select {
		case evt, ok := <-client.EventChan:
			if !ok {
				return
			}
			if err := stream.write(evt.Seq, string(evt.Type), evt); err != nil {
				log.Info("client went away", slog.String("error", err.Error()))
				return
			}
		case <-client.Done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// subscriptionFrom reads topics and Last-Event-ID from r.
func subscriptionFrom(r *http.Request, userID string) (Subscription, error) {
	sub := Subscription{UserID: userID}

	for t := range strings.SplitSeq(r.URL.Query().Get("topics"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			sub.Topics = append(sub.Topics, t)
		}
	}

	if last := r.Header.Get("Last-Event-ID"); last != "" {
		n, err := strconv.ParseUint(last, 10, 64)
		if err != nil {
			return sub, fmt.Errorf("invalid Last-Event-ID %q", last)
		}
		sub.LastEventID = n
	}
	return sub, nil
}

// frameWriter writes text/event-stream frames and flushes each one.
type frameWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

// write sends one frame. A zero seq omits the id field.
func (f *frameWriter) write(seq uint64, name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	var b strings.Builder
	if seq > 0 {
		fmt.Fprintf(&b, "id: %d\n", seq)
	}
	fmt.Fprintf(&b, "event: %s\ndata: %s\n\n", name, payload)
	if _, err := f.w.Write([]byte(b.String())); err != nil {
		return err
	}
	if err := f.rc.Flush(); err != nil {
		return err
	}
	// httptest recorders and some proxies do not support deadlines.
	_ = f.rc.SetWriteDeadline(time.Now().Add(writeTimeout))
	return nil
}
