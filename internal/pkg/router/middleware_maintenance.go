package router

import (
	"net/http"

	"github.com/samber/lo"
	"github.com/shandysiswandi/phoneverify/internal/pkg/config"
)

// middlewareMaintenance answers 503 for routes listed in
// app.maintenance.endpoints. The list is read per request so a config reload
// takes effect without a restart.
func middlewareMaintenance(cfg config.Config) Middleware {
	if cfg == nil {
		return nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if lo.Contains(cfg.GetArray("app.maintenance.endpoints"), matchedRoutePath(r)) {
				writeJSON(w, errorResponse{Message: "service is under maintenance"}, http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
