package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"uniraid-battle-service/internal/app"
	"uniraid-battle-service/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// SnapshotLoader reads the last snapshot published for a boss, possibly by
// another instance.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context, bossID string) (domain.BattleSnapshot, error)
}

// NewRouter mounts the REST and WebSocket routes. metrics and snapshots may be nil.
func NewRouter(service *app.BattleService, ws *WSHandler, metrics http.Handler, snapshots SnapshotLoader, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// The upgrade needs the raw writer, so /ws stays outside the logged group.
	r.Get("/ws", ws.ServeWS)

	r.Group(func(r chi.Router) {
		r.Use(requestLogger(log))
		r.Get("/healthz", Healthz)
		r.Get("/battles/{bossID}", BattleSnapshot(service, snapshots))
		if metrics != nil {
			r.Method(http.MethodGet, "/metrics", metrics)
		}
	})
	return r
}

func Healthz(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

// BattleSnapshot serves the state of a boss fight without revival codes. When
// this process runs no battle for the boss it falls back to snapshots.
func BattleSnapshot(service *app.BattleService, snapshots SnapshotLoader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bossID := chi.URLParam(r, "bossID")
		snap, err := service.Snapshot(r.Context(), bossID)
		if errors.Is(err, domain.ErrSessionNotFound) && snapshots != nil {
			snap, err = snapshots.LoadSnapshot(r.Context(), bossID)
		}
		if errors.Is(err, domain.ErrSessionNotFound) {
			http.Error(w, "no live battle", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snap.ForPlayer(""))
	}
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.Int("status", ww.Status()),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("latency", time.Since(start)),
			}
			switch {
			case ww.Status() >= http.StatusInternalServerError:
				log.Error("request handled", fields...)
			case ww.Status() >= http.StatusBadRequest:
				log.Warn("request handled", fields...)
			default:
				log.Debug("request handled", fields...)
			}
		})
	}
}
