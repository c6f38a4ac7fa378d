// Package httpapi exposes the assistant session over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"askd/internal/session"
	"askd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
// *session.Session satisfies it.
type Service interface {
	Load(ctx context.Context, onProgress session.ProgressFunc) error
	GenerateReply(ctx context.Context, message string) (session.Reply, error)
	Dispose()
	Status() types.StatusResponse
	IsReady() bool
}

// ModelLister is optionally implemented by a Service to expose GET /models.
type ModelLister interface {
	Models() []types.Model
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(middleware.Compress(5))
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(inflightMiddleware)
		r.Post("/load", handleLoad(svc))
		r.Post("/chat", handleChat(svc))
		r.Post("/dispose", handleDispose(svc))
		r.Get("/status", handleStatus(svc))
		if ml, ok := svc.(ModelLister); ok {
			r.Get("/models", handleModels(ml))
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// handleLoad godoc
// @Summary      Load the model
// @Description  Starts (or joins) model acquisition and streams progress as NDJSON. The last line is a LoadResult.
// @Tags         session
// @Produce      application/x-ndjson
// @Success      200  {object}  types.LoadProgress
// @Router       /load [post]
func handleLoad(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		flush := func() {}
		if f, ok := w.(http.Flusher); ok {
			flush = f.Flush
		}
		out := io.Writer(w)
		if requestLogLevel(r) >= LevelDebug {
			out = io.MultiWriter(w, &loggingLineWriter{prefix: "load"})
		}
		enc := json.NewEncoder(out)
		var mu sync.Mutex
		emit := func(v any) {
			mu.Lock()
			defer mu.Unlock()
			_ = enc.Encode(v)
			flush()
		}

		start := time.Now()
		if e := requestLog(r, LevelInfo); e != nil {
			e.Msg("load start")
		}
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		err := svc.Load(ctx, func(p session.Progress) { emit(session.ToLoadProgress(p)) })
		if err != nil && (r.Context().Err() != nil || serverBaseCtx.Err() != nil) {
			// Client gone or shutting down; the load itself continues.
			return
		}

		res := types.LoadResult{Done: err == nil, State: svc.Status().State}
		if err != nil {
			kind, _ := session.LoadErrorKindOf(err)
			res.Error = err.Error()
			res.Kind = string(kind)
			res.Retryable = kind.Retryable()
		} else {
			res.Welcome = welcome
		}
		emit(res)
		if e := requestLog(r, LevelInfo); e != nil {
			e.Bool("ok", err == nil).Str("kind", res.Kind).Dur("dur", time.Since(start)).Msg("load end")
		}
	}
}

// handleChat godoc
// @Summary      Ask a question
// @Description  Answers one question from the profile document. Only one answer is generated at a time.
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        request  body      types.ChatRequest  true  "Question"
// @Success      200      {object}  types.ChatResponse
// @Failure      400      {object}  types.ErrorResponse
// @Failure      409      {object}  types.ErrorResponse
// @Failure      429      {object}  types.ErrorResponse
// @Router       /chat [post]
func handleChat(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			IncrementRejection("empty_message")
			writeJSONErrorKind(w, http.StatusBadRequest, "message is required", "empty_message")
			return
		}

		start := time.Now()
		if e := requestLog(r, LevelInfo); e != nil {
			e.Int("chars", len(req.Message)).Msg("chat start")
		}
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if chatTimeout > 0 {
			var tcancel context.CancelFunc
			ctx, tcancel = context.WithTimeout(ctx, chatTimeout)
			defer tcancel()
		}
		reply, err := svc.GenerateReply(ctx, req.Message)
		if err != nil {
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			status, kind := errorStatus(err)
			if status == http.StatusConflict || status == http.StatusTooManyRequests {
				IncrementRejection(kind)
			}
			writeJSONErrorKind(w, status, err.Error(), kind)
			if e := requestLog(r, LevelError); e != nil {
				e.Int("status", status).Dur("dur", time.Since(start)).Err(err).Msg("chat end")
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(types.ChatResponse{Reply: reply.Text, Fallback: reply.Fallback}); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
		if e := requestLog(r, LevelInfo); e != nil {
			e.Int("status", http.StatusOK).Bool("fallback", reply.Fallback).Dur("dur", time.Since(start)).Msg("chat end")
		}
	}
}

// handleDispose godoc
// @Summary      Release the model
// @Description  Cancels any in-flight load and frees the model. Idempotent.
// @Tags         session
// @Success      204
// @Router       /dispose [post]
func handleDispose(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.Dispose()
		if e := requestLog(r, LevelInfo); e != nil {
			e.Msg("disposed")
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleStatus godoc
// @Summary      Session status
// @Tags         session
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Router       /status [get]
func handleStatus(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := svc.Status()
		if st.Ready {
			st.Welcome = welcome
		}
		now := time.Now()
		st.UptimeSeconds = int64(now.Sub(startTime) / time.Second)
		st.ServerTimeUnix = now.Unix()
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(st); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		}
	}
}

// handleModels godoc
// @Summary      Model catalog
// @Tags         models
// @Produce      json
// @Success      200  {object}  map[string][]types.Model
// @Router       /models [get]
func handleModels(ml ModelLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]any{"models": ml.Models()}); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		}
	}
}
