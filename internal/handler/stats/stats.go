// Package stats serves the registry's live view over HTTP for dashboards
// and the monitor command.
package stats

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gridline/table-sync-service/internal/domain/model"
)

// Provider is implemented by the session registry.
type Provider interface {
	Stats() model.RegistryStats
}

type Handler struct {
	logger   *slog.Logger
	provider Provider
}

func NewHandler(logger *slog.Logger, provider Provider) *Handler {
	return &Handler{logger: logger, provider: provider}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.provider.Stats()); err != nil {
		h.logger.Error("stats encode failed", "error", err)
	}
}
