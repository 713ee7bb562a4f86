package controllers

import (
	"context"
	"net/http"

	"github.com/mrdelgado-dev/bookbarn-backend/api/responses"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/config"
	pkgerrors "github.com/mrdelgado-dev/bookbarn-backend/pkg/errors"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-BookBarn-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness; a reachable database is the gate.
func HealthReady(cfg *config.Config, database pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-BookBarn-Env", cfg.App.Env)
		if database != nil {
			if err := database.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unreachable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
