// Package handler provides the HTTP handlers of the provider API.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/pwscontext/pwscontext/internal/api/middleware"
	"github.com/pwscontext/pwscontext/internal/api/models"
	"github.com/pwscontext/pwscontext/internal/api/response"
	"github.com/pwscontext/pwscontext/internal/ngsi"
	"github.com/pwscontext/pwscontext/internal/weather"
)

const (
	// maxQueryBody bounds the size of a query request body.
	maxQueryBody = 1 << 20

	// DefaultQueryTimeout bounds the resolution of all entities of one query.
	DefaultQueryTimeout = 30 * time.Second
)

// ObservationSource resolves a station to its current WeatherObserved entity.
type ObservationSource interface {
	Observed(ctx context.Context, stationID string) (*weather.WeatherObserved, error)
}

// QueryHandler serves the context broker query operation.
type QueryHandler struct {
	source   ObservationSource
	timeout  time.Duration
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewQueryHandler creates a new QueryHandler. A timeout of zero uses
// DefaultQueryTimeout.
func NewQueryHandler(source ObservationSource, timeout time.Duration, logger zerolog.Logger) *QueryHandler {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &QueryHandler{
		source:   source,
		timeout:  timeout,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// Query handles POST /v2/op/query.
//
// Entities are resolved one after the other in request order. The first
// failure ends the request; partial results are never returned. Upstream work
// shares one deadline so a slow or throttled upstream cannot hold the
// response past the server write timeout.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	log := h.logger.With().Str("request_id", middleware.GetRequestID(r.Context())).Logger()

	var req models.QueryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQueryBody)).Decode(&req); err != nil {
		log.Debug().Err(err).Msg("malformed query body")
		response.Status(w, r, http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Debug().Err(err).Msg("invalid query body")
		response.Status(w, r, http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	entities := make([]ngsi.Normalizer, 0, len(req.Entities))
	for _, ref := range req.Entities {
		if ref.Type != weather.EntityType {
			log.Debug().Str("entity_id", ref.ID).Str("entity_type", ref.Type).Msg("unsupported entity type")
			response.Status(w, r, http.StatusBadRequest)
			return
		}

		stationID, ok := weather.StationIDFromEntityID(ref.ID)
		if !ok {
			log.Debug().Str("entity_id", ref.ID).Msg("entity id carries no station id")
			response.Status(w, r, http.StatusBadRequest)
			return
		}

		observed, err := h.source.Observed(ctx, stationID)
		if err != nil {
			h.writeError(w, r, log, stationID, err)
			return
		}
		entities = append(entities, observed)
	}

	response.JSON(w, r, http.StatusOK, ngsi.Project(entities, req.Attrs, log))
}

func (h *QueryHandler) writeError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, stationID string, err error) {
	kind := weather.KindOf(err)

	status := http.StatusInternalServerError
	event := log.Error()
	if kind == weather.KindNotFound {
		status = http.StatusNotFound
		event = log.Info()
	}

	event.Err(err).
		Str("station_id", stationID).
		Str("error_kind", string(kind)).
		Msg("query failed")

	response.ErrorKind(w, r, status, string(kind))
}
