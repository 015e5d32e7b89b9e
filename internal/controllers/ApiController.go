package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cast"

	"mtad/internal/models"
	"mtad/internal/providers"
	"mtad/internal/services"
)

const maxRequestBodySize = 1 << 20 // 1 MB

const defaultTopPathsLimit = 10

type ApiController struct {
	logger  providers.Logger
	service services.JourneyServiceInterface
	reports services.ReportServiceInterface
	cache   providers.CacheProviderInterface
}

func NewApiController(logger providers.Logger, service services.JourneyServiceInterface, reports services.ReportServiceInterface, cache providers.CacheProviderInterface) *ApiController {
	return &ApiController{
		logger:  logger,
		service: service,
		reports: reports,
		cache:   cache,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps the service error taxonomy onto HTTP statuses: validation
// failures 400, missing journeys 404, capacity limits 422.
func (ac *ApiController) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrUnknownChannel),
		errors.Is(err, services.ErrUnknownConversionType),
		errors.Is(err, services.ErrUnknownModel):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrJourneyNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrTouchPointLimit),
		errors.Is(err, models.ErrJourneyLimit):
		status = http.StatusUnprocessableEntity
	}

	gson, merr := json.Marshal(errorResponse{Error: err.Error()})
	if merr != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

func (ac *ApiController) writeJSON(w http.ResponseWriter, status int, payload any) {
	gson, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

func (ac *ApiController) serveFromCacheOrCompute(w http.ResponseWriter, cacheKey string, compute func() (any, error)) {
	if data, ok := ac.cache.Get(cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	result, err := compute()
	if err != nil {
		ac.writeError(w, err)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ac.cache.Set(cacheKey, gson)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

// parseWindow reads the start/end query parameters. RFC 3339 is the primary
// format, unix seconds the fallback.
func parseWindow(r *http.Request) (start, end time.Time, err error) {
	start, err = parseQueryTime(r, "start")
	if err != nil {
		return
	}
	end, err = parseQueryTime(r, "end")
	return
}

func parseQueryTime(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: missing %q parameter", services.ErrValidation, name)
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if secs, err := cast.ToInt64E(raw); err == nil && secs > 0 {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: invalid %q parameter", services.ErrValidation, name)
}

func (ac *ApiController) ReceiveTouchPoint(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload services.TouchPointInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	summary, err := ac.service.RecordTouchPoint(&payload)
	if err != nil {
		ac.logger.Debugf(providers.TypePost, "touchpoint rejected: %s", err)
		ac.writeError(w, err)
		return
	}
	ac.writeJSON(w, http.StatusCreated, summary)
}

func (ac *ApiController) ReceiveConversion(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload services.ConversionInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	summary, err := ac.service.RecordConversion(&payload)
	if err != nil {
		ac.logger.Debugf(providers.TypePost, "conversion rejected: %s", err)
		ac.writeError(w, err)
		return
	}
	ac.writeJSON(w, http.StatusOK, summary)
}

func (ac *ApiController) GetReport(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseWindow(r)
	if err != nil {
		ac.writeError(w, err)
		return
	}
	model := r.URL.Query().Get("model")
	if model == "" {
		model = models.ModelLastTouch
	}
	cacheKey := fmt.Sprintf("report:%s:%d:%d", model, start.Unix(), end.Unix())
	ac.serveFromCacheOrCompute(w, cacheKey, func() (any, error) {
		return ac.reports.GetAttributionReport(start, end, model)
	})
}

func (ac *ApiController) GetFunnel(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseWindow(r)
	if err != nil {
		ac.writeError(w, err)
		return
	}
	cacheKey := fmt.Sprintf("funnel:%d:%d", start.Unix(), end.Unix())
	ac.serveFromCacheOrCompute(w, cacheKey, func() (any, error) {
		return ac.reports.GetConversionFunnel(start, end), nil
	})
}

func (ac *ApiController) GetTopPaths(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseWindow(r)
	if err != nil {
		ac.writeError(w, err)
		return
	}
	limit := defaultTopPathsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit = cast.ToInt(raw)
		if limit <= 0 {
			limit = defaultTopPathsLimit
		}
	}
	cacheKey := fmt.Sprintf("paths:%d:%d:%d", start.Unix(), end.Unix(), limit)
	ac.serveFromCacheOrCompute(w, cacheKey, func() (any, error) {
		return ac.reports.GetTopConversionPaths(start, end, limit), nil
	})
}

func (ac *ApiController) CompareModels(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseWindow(r)
	if err != nil {
		ac.writeError(w, err)
		return
	}
	cacheKey := fmt.Sprintf("compare:%d:%d", start.Unix(), end.Unix())
	ac.serveFromCacheOrCompute(w, cacheKey, func() (any, error) {
		return ac.reports.CompareAttributionModels(start, end)
	})
}

func (ac *ApiController) GetJourney(w http.ResponseWriter, r *http.Request) {
	patientID := r.URL.Query().Get("p")
	if patientID == "" {
		ac.writeError(w, fmt.Errorf("%w: missing %q parameter", services.ErrValidation, "p"))
		return
	}
	j, ok := ac.service.GetJourney(patientID)
	if !ok {
		ac.writeError(w, fmt.Errorf("%w: patient %s", services.ErrJourneyNotFound, patientID))
		return
	}
	ac.writeJSON(w, http.StatusOK, j)
}
