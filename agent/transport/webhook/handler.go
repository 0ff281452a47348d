package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
	sessionx "github.com/tanpawarit/dikas-orlando/agent/session"
)

const maxBodyBytes = 1 << 20

type Config struct {
	Addr           string        `envconfig:"ADDR" split_words:"true" default:":8080"`
	RatePerMinute  int           `envconfig:"RATE_PER_MINUTE" split_words:"true" default:"20"`
	RateBurst      int           `envconfig:"RATE_BURST" split_words:"true" default:"5"`
	ProcessTimeout time.Duration `envconfig:"PROCESS_TIMEOUT" split_words:"true" default:"2m"`
}

// Inbound processes one user message; the conversation service satisfies it.
type Inbound interface {
	HandleInbound(ctx context.Context, phone, text string) (contractx.AgentResponse, error)
}

// Enqueuer runs jobs per key in arrival order.
type Enqueuer interface {
	Enqueue(key string, job sessionx.Job) error
}

// ReceivedMessage is the subset of the Z-API "on message received" callback
// the router needs.
type ReceivedMessage struct {
	Phone     string `json:"phone"`
	FromMe    bool   `json:"fromMe"`
	IsGroup   bool   `json:"isGroup"`
	Type      string `json:"type"`
	MessageID string `json:"messageId"`
	Text      *struct {
		Message string `json:"message"`
	} `json:"text"`
}

func (m ReceivedMessage) body() string {
	if m.Text == nil {
		return ""
	}
	return strings.TrimSpace(m.Text.Message)
}

type Handler struct {
	inbound Inbound
	queue   Enqueuer
	limiter *phoneLimiter
	timeout time.Duration
	now     func() time.Time
}

func NewHandler(inbound Inbound, queue Enqueuer, cfg Config) (*Handler, error) {
	if inbound == nil || queue == nil {
		return nil, errors.New("webhook needs an inbound handler and a queue")
	}
	timeout := cfg.ProcessTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Handler{
		inbound: inbound,
		queue:   queue,
		limiter: newPhoneLimiter(cfg.RatePerMinute, cfg.RateBurst),
		timeout: timeout,
		now:     time.Now,
	}, nil
}

// Router mounts the webhook and health endpoints. ctx bounds background
// housekeeping.
func (h *Handler) Router(ctx context.Context) http.Handler {
	go h.limiter.run(ctx)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)
	r.Post("/webhook/zapi", h.receive)
	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	var msg ReceivedMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&msg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "invalid", "error": "malformed payload"})
		return
	}

	phone := strings.TrimSpace(msg.Phone)
	text := msg.body()
	switch {
	case msg.FromMe:
		writeJSON(w, http.StatusOK, ignored("from_me"))
		return
	case msg.IsGroup:
		writeJSON(w, http.StatusOK, ignored("group"))
		return
	case phone == "" || text == "":
		writeJSON(w, http.StatusOK, ignored("empty"))
		return
	}

	if !h.limiter.Allow(phone, h.now()) {
		log.Warn().Str("phone", phone).Msg("inbound message rate limited")
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"status": "rate_limited"})
		return
	}

	key := contractx.SessionKeyForPhone(phone)
	err := h.queue.Enqueue(key, func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, h.timeout)
		defer cancel()
		if _, err := h.inbound.HandleInbound(ctx, phone, text); err != nil {
			log.Error().Err(err).Str("session_key", key).Str("message_id", msg.MessageID).Msg("handle inbound message")
		}
	})
	if err != nil {
		log.Error().Err(err).Str("session_key", key).Msg("enqueue inbound message")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "busy"})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func ignored(reason string) map[string]string {
	return map[string]string{"status": "ignored", "reason": reason}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}
