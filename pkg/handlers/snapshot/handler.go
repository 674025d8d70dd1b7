package snapshot

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/de-tools/spend-atlas/pkg/adapters"
	"github.com/de-tools/spend-atlas/pkg/models/api"
	"github.com/de-tools/spend-atlas/pkg/models/domain"
	"github.com/de-tools/spend-atlas/pkg/store"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

const maxRunLimit = 200

type SnapshotReader interface {
	Latest(ctx context.Context) (*domain.Snapshot, error)
}

type RunLister interface {
	List(ctx context.Context, limit int) ([]domain.RunRecord, error)
}

type Trigger interface {
	Trigger() bool
}

type CredentialStatus interface {
	Status(ctx context.Context) (map[domain.ProviderID]domain.CredentialState, error)
}

type Handler struct {
	snapshots   SnapshotReader
	runs        RunLister
	trigger     Trigger
	credentials CredentialStatus
}

func NewHandler(snapshots SnapshotReader, runs RunLister, trigger Trigger, credentials CredentialStatus) *Handler {
	return &Handler{
		snapshots:   snapshots,
		runs:        runs,
		trigger:     trigger,
		credentials: credentials,
	}
}

func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	snapshot, err := h.snapshots.Latest(ctx)
	if errors.Is(err, store.ErrNotFound) {
		writeError(ctx, w, http.StatusNotFound, "no snapshot available yet, trigger a refresh")
		return
	}
	if err != nil {
		logger.Error().Err(err).Msg("failed to load snapshot")
		writeError(ctx, w, http.StatusInternalServerError, "failed to load snapshot")
		return
	}

	writeJSON(ctx, w, http.StatusOK, adapters.MapDomainSnapshotToApi(snapshot))
}

// Refresh always answers 202; the status tells whether a run was started or absorbed.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := "absorbed"
	if h.trigger.Trigger() {
		status = "started"
	}
	zerolog.Ctx(ctx).Info().Str("status", status).Msg("manual refresh requested")

	writeJSON(ctx, w, http.StatusAccepted, api.RefreshResponse{Status: status})
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxRunLimit {
			writeError(ctx, w, http.StatusBadRequest, "limit must be an integer between 1 and 200")
			return
		}
		limit = n
	}

	runs, err := h.runs.List(ctx, limit)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list runs")
		writeError(ctx, w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	response := make([]api.RunRecord, 0, len(runs))
	for _, run := range runs {
		response = append(response, adapters.MapDomainRunToApi(run))
	}
	writeJSON(ctx, w, http.StatusOK, response)
}

func (h *Handler) CredentialStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status, err := h.credentials.Status(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to read credential status")
		writeError(ctx, w, http.StatusInternalServerError, "failed to read credential status")
		return
	}
	writeJSON(ctx, w, http.StatusOK, adapters.MapCredentialStatusToApi(status))
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	writeJSON(ctx, w, status, errorResponse{Error: message})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to encode response")
	}
}
