package http

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tzrikka/herald/pkg/config"
	"github.com/tzrikka/herald/pkg/events"
	"github.com/tzrikka/herald/pkg/slack"
)

const (
	timeout = 3 * time.Second
	maxSize = 1 << 20 // 1 MiB.
)

type httpServer struct {
	addr string // To initialize the HTTP server.
	path string // Slack Events API request URL path.

	signingSecret string
	registry      *events.Registry
}

func newHTTPServer(cfg config.HTTPConfig, signingSecret string, r *events.Registry) *httpServer {
	return &httpServer{
		addr: net.JoinHostPort(cfg.ListenAddr, strconv.Itoa(cfg.ListenPort)),
		path: cfg.RequestHandlerPath,

		signingSecret: signingSecret,
		registry:      r,
	}
}

// Run starts an HTTP server to receive Slack Events API requests.
// This is blocking, until the context is canceled or the server fails.
func Run(ctx context.Context, cfg config.HTTPConfig, signingSecret string, r *events.Registry) error {
	return newHTTPServer(cfg, signingSecret, r).run(ctx)
}

func (s *httpServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+s.path, s.eventsHandler)
	mux.HandleFunc("GET /healthz", healthzHandler)
	return mux
}

func (s *httpServer) run(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.handler(),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info().Msgf("HTTP server listening on %s, Slack events path: %s", s.addr, s.path)
	err := server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Err(err).Send()
		return err
	}

	return nil
}

// eventsHandler checks and processes incoming asynchronous
// Events API notifications from Slack. Every verified event is answered with
// [http.StatusOK], even if it's ignored or malformed, to prevent redeliveries.
func (s *httpServer) eventsHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	l := zerolog.Ctx(r.Context()).With().Str("http_method", r.Method).Str("url_path", r.URL.EscapedPath()).Logger()
	l.Info().Msg("received HTTP request")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSize))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			l.Warn().Int64("limit", mbe.Limit).Msg("HTTP request body too large")
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		l.Warn().Err(err).Msg("failed to read HTTP request body")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if statusCode := slack.CheckRequest(l, r.Header, body, s.signingSecret); statusCode != http.StatusOK {
		// Logging already done in [slack.CheckRequest].
		w.WriteHeader(statusCode)
		return
	}

	m, err := slack.DecodeBody(body)
	if err != nil {
		l.Warn().Err(err).Send()
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if challenge, ok := slack.Challenge(m); ok {
		l.Debug().Str("event_type", slack.TypeURLVerification).Msg("replied to Slack URL verification event")
		w.Header().Add("Content-Type", "text/plain")
		_, _ = w.Write([]byte(challenge))
		return
	}

	e, err := slack.EnvelopeFromBody(m)
	if err != nil {
		l.Warn().Err(err).Msg("ignoring Slack request")
		w.WriteHeader(http.StatusOK)
		return
	}

	if n := r.Header.Get("X-Slack-Retry-Num"); n != "" {
		reason := r.Header.Get("X-Slack-Retry-Reason")
		l = l.With().Str("retry_num", n).Str("retry_reason", reason).Logger()

		// The previous delivery was processed, just not answered in time.
		if reason == "http_timeout" {
			l.Info().Str("event_id", e.ID).Str("event_type", e.Type).Msg("ignoring Slack redelivery after timeout")
			w.WriteHeader(http.StatusOK)
			return
		}
	}

	res := s.registry.Dispatch(l.WithContext(r.Context()), e)
	l.Debug().Str("event_id", e.ID).Str("event_type", e.Type).Stringer("result", res).Send()
	w.WriteHeader(http.StatusOK)
}

func healthzHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Healthy"))
}
