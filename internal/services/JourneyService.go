package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/gookit/validate"
	"github.com/spf13/cast"

	"mtad/internal/attribution"
	"mtad/internal/models"
	"mtad/internal/structures"
)

var (
	ErrValidation            = errors.New("validation failed")
	ErrUnknownChannel        = errors.New("unrecognized channel")
	ErrUnknownConversionType = errors.New("unrecognized conversion type")
	ErrUnknownModel          = errors.New("unrecognized attribution model")
	ErrJourneyNotFound       = errors.New("journey not found")
	ErrTouchPointLimit       = errors.New("touchpoint capacity reached")
)

// TouchPointInput is the raw touchpoint payload from the ingestion boundary.
// PageViews and Interactions are pointers so an absent field can take its
// default (1 and 0) while an explicit zero stays zero.
type TouchPointInput struct {
	PatientID       string `json:"patientId" validate:"required"`
	Channel         string `json:"channel" validate:"required"`
	Timestamp       string `json:"timestamp"`
	Medium          string `json:"medium"`
	Source          string `json:"source"`
	Campaign        string `json:"campaign"`
	Content         string `json:"content"`
	Keyword         string `json:"keyword"`
	LandingPage     string `json:"landingPage"`
	PageViews       *int   `json:"pageViews"`
	Interactions    *int   `json:"interactions"`
	SessionDuration int    `json:"sessionDuration"`
	Device          string `json:"device"`
}

// ConversionInput is the raw conversion payload. Reference is an opaque
// external id (e.g. a booking id), stored but never interpreted. The
// revenue fields come from the external lifetime-value source and are only
// used as report multipliers.
type ConversionInput struct {
	PatientID        string   `json:"patientId" validate:"required"`
	ConversionDate   string   `json:"conversionDate"`
	ConversionType   string   `json:"conversionType"`
	Reference        string   `json:"reference"`
	LifetimeValue    *float64 `json:"lifetimeValue"`
	FirstYearRevenue *float64 `json:"firstYearRevenue"`
}

type JourneyServiceInterface interface {
	RecordTouchPoint(in *TouchPointInput) (*models.JourneySummary, error)
	RecordConversion(in *ConversionInput) (*models.JourneySummary, error)
	GetJourney(patientID string) (*models.Journey, bool)
	JourneyCounts() (total, converted int)
	GetSnapshot() *models.Storage
	PutJourneys(journeys map[string]*models.Journey)
	EvictStale() int
}

type JourneyService struct {
	conf  *structures.Config
	calc  *attribution.Calculator
	store *models.JourneyStore
	cold  models.ColdStorageInterface
}

func NewJourneyService(conf *structures.Config, calc *attribution.Calculator, cold models.ColdStorageInterface) JourneyServiceInterface {
	return &JourneyService{
		conf:  conf,
		calc:  calc,
		store: models.NewJourneyStore(conf.Attribution.MaxJourneys),
		cold:  cold,
	}
}

// RecordTouchPoint appends one touchpoint to the patient's journey, creating
// the journey on first contact, and recomputes all attribution models over
// the full sequence. Validation failures leave the journey untouched.
func (js *JourneyService) RecordTouchPoint(in *TouchPointInput) (*models.JourneySummary, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if !models.IsRecognizedChannel(in.Channel) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, in.Channel)
	}

	ts, err := parseTimestamp(in.Timestamp, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	pageViews := 1
	if in.PageViews != nil {
		if *in.PageViews < 0 {
			return nil, fmt.Errorf("%w: pageViews must be >= 0", ErrValidation)
		}
		pageViews = *in.PageViews
	}
	interactions := 0
	if in.Interactions != nil {
		if *in.Interactions < 0 {
			return nil, fmt.Errorf("%w: interactions must be >= 0", ErrValidation)
		}
		interactions = *in.Interactions
	}
	if in.SessionDuration < 0 {
		return nil, fmt.Errorf("%w: sessionDuration must be >= 0", ErrValidation)
	}

	tp := &models.TouchPoint{
		Timestamp:       ts,
		Channel:         in.Channel,
		Medium:          in.Medium,
		Source:          in.Source,
		Campaign:        in.Campaign,
		Content:         in.Content,
		Keyword:         in.Keyword,
		LandingPage:     in.LandingPage,
		PageViews:       pageViews,
		Interactions:    interactions,
		SessionDuration: in.SessionDuration,
		Device:          in.Device,
	}

	js.restoreFromCold(in.PatientID)

	var summary *models.JourneySummary
	_, err = js.store.Mutate(in.PatientID, true, func(j *models.Journey) error {
		if limit := js.conf.Attribution.MaxTouchPoints; limit > 0 && len(j.TouchPoints) >= limit {
			return fmt.Errorf("%w: patient %s", ErrTouchPointLimit, in.PatientID)
		}
		j.AddTouchPoint(tp)
		js.calc.Recompute(j)
		summary = j.Summary()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// RecordConversion marks the patient's journey converted and recomputes with
// the true conversion instant, the only point where time decay leaves its
// linear fallback. Re-converting refreshes the conversion metadata but the
// Converted flag never flips back.
func (js *JourneyService) RecordConversion(in *ConversionInput) (*models.JourneySummary, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	conversionType := in.ConversionType
	if conversionType == "" {
		conversionType = models.ConversionGeneric
	} else if !models.IsRecognizedConversionType(conversionType) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConversionType, conversionType)
	}

	date, err := parseTimestamp(in.ConversionDate, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if in.LifetimeValue != nil && *in.LifetimeValue < 0 {
		return nil, fmt.Errorf("%w: lifetimeValue must be >= 0", ErrValidation)
	}
	if in.FirstYearRevenue != nil && *in.FirstYearRevenue < 0 {
		return nil, fmt.Errorf("%w: firstYearRevenue must be >= 0", ErrValidation)
	}

	js.restoreFromCold(in.PatientID)

	var summary *models.JourneySummary
	found, err := js.store.Mutate(in.PatientID, false, func(j *models.Journey) error {
		j.MarkConverted(date, conversionType, in.Reference)
		if in.LifetimeValue != nil {
			j.LifetimeValue = *in.LifetimeValue
		}
		if in.FirstYearRevenue != nil {
			j.FirstYearRevenue = *in.FirstYearRevenue
		}
		js.calc.Recompute(j)
		summary = j.Summary()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: patient %s", ErrJourneyNotFound, in.PatientID)
	}
	return summary, nil
}

func (js *JourneyService) GetJourney(patientID string) (*models.Journey, bool) {
	js.restoreFromCold(patientID)
	return js.store.Get(patientID)
}

func (js *JourneyService) JourneyCounts() (total, converted int) {
	return js.store.Counts()
}

func (js *JourneyService) GetSnapshot() *models.Storage {
	return &models.Storage{
		Version:  models.StorageVersion,
		Journeys: js.store.Snapshot(),
	}
}

func (js *JourneyService) PutJourneys(journeys map[string]*models.Journey) {
	js.store.Put(journeys)
}

// EvictStale moves idle unconverted journeys to cold storage and reports how
// many were evicted.
func (js *JourneyService) EvictStale() int {
	if js.cold == nil {
		return 0
	}
	evicted := js.store.EvictStale(time.Now(), js.conf.Attribution.Retention)
	for patientID, j := range evicted {
		js.cold.Evict(patientID, j)
	}
	return len(evicted)
}

// restoreFromCold pulls a previously evicted journey back into the hot store
// before a read or mutation for its patient.
func (js *JourneyService) restoreFromCold(patientID string) {
	if js.cold == nil || js.store.Has(patientID) || !js.cold.Has(patientID) {
		return
	}
	j, err := js.cold.Restore(patientID)
	if err != nil || j == nil {
		return
	}
	js.store.PutIfAbsent(patientID, j)
}

func validateStruct(in any) error {
	v := validate.Struct(in)
	if !v.Validate() {
		return fmt.Errorf("%w: %s", ErrValidation, v.Errors.One())
	}
	return nil
}

// parseTimestamp accepts RFC 3339 with a unix-seconds fallback; an empty
// value takes the provided default.
func parseTimestamp(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if secs, err := cast.ToInt64E(raw); err == nil && secs > 0 {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: invalid timestamp %q", ErrValidation, raw)
}
