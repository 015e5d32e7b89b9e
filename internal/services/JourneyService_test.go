package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtad/internal/attribution"
	"mtad/internal/models"
	"mtad/internal/structures"
)

func newService(conf *structures.Config, cold models.ColdStorageInterface) JourneyServiceInterface {
	if conf == nil {
		conf = &structures.Config{}
	}
	return NewJourneyService(conf, attribution.NewCalculator(conf), cold)
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func touchPoint(patientID, channel, ts string) *TouchPointInput {
	return &TouchPointInput{PatientID: patientID, Channel: channel, Timestamp: ts}
}

func TestRecordTouchPoint_CreatesJourney(t *testing.T) {
	svc := newService(nil, nil)

	summary, err := svc.RecordTouchPoint(touchPoint("p1", models.ChannelOrganicSearch, "2025-03-01T10:00:00Z"))
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, "p1", summary.PatientID)
	assert.Equal(t, models.ChannelOrganicSearch, summary.FirstTouchChannel)
	assert.Equal(t, 1, summary.PathLength)

	j, ok := svc.GetJourney("p1")
	require.True(t, ok)
	assert.Len(t, j.TouchPoints, 1)
	assert.InDelta(t, 1.0, j.TouchPoints[0].Credits[models.ModelLinear], 1e-9)
}

func TestRecordTouchPoint_Defaults(t *testing.T) {
	svc := newService(nil, nil)

	_, err := svc.RecordTouchPoint(touchPoint("p1", models.ChannelEmail, "2025-03-01T10:00:00Z"))
	require.NoError(t, err)

	j, _ := svc.GetJourney("p1")
	assert.Equal(t, 1, j.TouchPoints[0].PageViews)
	assert.Zero(t, j.TouchPoints[0].Interactions)
}

func TestRecordTouchPoint_ExplicitZeroPageViews(t *testing.T) {
	svc := newService(nil, nil)

	in := touchPoint("p1", models.ChannelEmail, "2025-03-01T10:00:00Z")
	in.PageViews = intPtr(0)
	in.Interactions = intPtr(3)
	_, err := svc.RecordTouchPoint(in)
	require.NoError(t, err)

	j, _ := svc.GetJourney("p1")
	assert.Zero(t, j.TouchPoints[0].PageViews)
	assert.Equal(t, 3, j.TouchPoints[0].Interactions)
}

func TestRecordTouchPoint_MissingPatientID(t *testing.T) {
	svc := newService(nil, nil)

	_, err := svc.RecordTouchPoint(touchPoint("", models.ChannelEmail, ""))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRecordTouchPoint_UnknownChannel(t *testing.T) {
	svc := newService(nil, nil)

	_, err := svc.RecordTouchPoint(touchPoint("p1", "skywriting", ""))
	assert.ErrorIs(t, err, ErrUnknownChannel)
	_, ok := svc.GetJourney("p1")
	assert.False(t, ok)
}

func TestRecordTouchPoint_NegativeCounters(t *testing.T) {
	svc := newService(nil, nil)

	in := touchPoint("p1", models.ChannelEmail, "")
	in.PageViews = intPtr(-1)
	_, err := svc.RecordTouchPoint(in)
	assert.ErrorIs(t, err, ErrValidation)

	in = touchPoint("p1", models.ChannelEmail, "")
	in.SessionDuration = -5
	_, err = svc.RecordTouchPoint(in)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRecordTouchPoint_UnixTimestampFallback(t *testing.T) {
	svc := newService(nil, nil)

	in := touchPoint("p1", models.ChannelEmail, "1740823200") // 2025-03-01T10:00:00Z
	_, err := svc.RecordTouchPoint(in)
	require.NoError(t, err)

	j, _ := svc.GetJourney("p1")
	assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), j.TouchPoints[0].Timestamp)
}

func TestRecordTouchPoint_InvalidTimestamp(t *testing.T) {
	svc := newService(nil, nil)

	_, err := svc.RecordTouchPoint(touchPoint("p1", models.ChannelEmail, "yesterday"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRecordTouchPoint_EmptyTimestampUsesNow(t *testing.T) {
	svc := newService(nil, nil)

	before := time.Now().UTC().Add(-time.Second)
	_, err := svc.RecordTouchPoint(touchPoint("p1", models.ChannelEmail, ""))
	require.NoError(t, err)

	j, _ := svc.GetJourney("p1")
	assert.True(t, j.TouchPoints[0].Timestamp.After(before))
}

func TestRecordTouchPoint_TouchPointLimit(t *testing.T) {
	conf := &structures.Config{}
	conf.Attribution.MaxTouchPoints = 2
	svc := newService(conf, nil)

	for i := 0; i < 2; i++ {
		_, err := svc.RecordTouchPoint(touchPoint("p1", models.ChannelEmail, ""))
		require.NoError(t, err)
	}
	_, err := svc.RecordTouchPoint(touchPoint("p1", models.ChannelEmail, ""))
	assert.ErrorIs(t, err, ErrTouchPointLimit)
}

func TestRecordTouchPoint_JourneyLimit(t *testing.T) {
	conf := &structures.Config{}
	conf.Attribution.MaxJourneys = 1
	svc := newService(conf, nil)

	_, err := svc.RecordTouchPoint(touchPoint("p1", models.ChannelEmail, ""))
	require.NoError(t, err)
	_, err = svc.RecordTouchPoint(touchPoint("p2", models.ChannelEmail, ""))
	assert.ErrorIs(t, err, models.ErrJourneyLimit)
}

func TestRecordConversion_MarksJourney(t *testing.T) {
	svc := newService(nil, nil)

	_, err := svc.RecordTouchPoint(touchPoint("p1", models.ChannelOrganicSearch, "2025-03-01T10:00:00Z"))
	require.NoError(t, err)
	_, err = svc.RecordTouchPoint(touchPoint("p1", models.ChannelEmail, "2025-03-03T10:00:00Z"))
	require.NoError(t, err)

	summary, err := svc.RecordConversion(&ConversionInput{
		PatientID:      "p1",
		ConversionDate: "2025-03-05T10:00:00Z",
		ConversionType: models.ConversionAppointment,
		Reference:      "booking-7",
		LifetimeValue:  floatPtr(2400),
	})
	require.NoError(t, err)
	assert.True(t, summary.Converted)

	j, _ := svc.GetJourney("p1")
	assert.True(t, j.Converted)
	assert.Equal(t, models.ConversionAppointment, j.ConversionType)
	assert.Equal(t, "booking-7", j.ConversionRef)
	assert.InDelta(t, 2400.0, j.LifetimeValue, 1e-9)
	assert.Equal(t, 4, j.JourneyDuration)

	// time decay now anchors on the conversion instant, not the linear fallback
	assert.Greater(t,
		j.TouchPoints[1].Credits[models.ModelTimeDecay],
		j.TouchPoints[0].Credits[models.ModelTimeDecay])
}

func TestRecordConversion_DefaultsToGenericType(t *testing.T) {
	svc := newService(nil, nil)

	_, err := svc.RecordTouchPoint(touchPoint("p1", models.ChannelEmail, ""))
	require.NoError(t, err)

	_, err = svc.RecordConversion(&ConversionInput{PatientID: "p1"})
	require.NoError(t, err)

	j, _ := svc.GetJourney("p1")
	assert.Equal(t, models.ConversionGeneric, j.ConversionType)
}

func TestRecordConversion_UnknownType(t *testing.T) {
	svc := newService(nil, nil)

	_, err := svc.RecordTouchPoint(touchPoint("p1", models.ChannelEmail, ""))
	require.NoError(t, err)

	_, err = svc.RecordConversion(&ConversionInput{PatientID: "p1", ConversionType: "won_lottery"})
	assert.ErrorIs(t, err, ErrUnknownConversionType)
}

func TestRecordConversion_UnknownPatient(t *testing.T) {
	svc := newService(nil, nil)

	_, err := svc.RecordConversion(&ConversionInput{PatientID: "ghost"})
	assert.ErrorIs(t, err, ErrJourneyNotFound)
	_, ok := svc.GetJourney("ghost")
	assert.False(t, ok)
}

func TestRecordConversion_NegativeRevenue(t *testing.T) {
	svc := newService(nil, nil)

	_, err := svc.RecordTouchPoint(touchPoint("p1", models.ChannelEmail, ""))
	require.NoError(t, err)

	_, err = svc.RecordConversion(&ConversionInput{PatientID: "p1", LifetimeValue: floatPtr(-1)})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRecordConversion_RefreshKeepsRevenue(t *testing.T) {
	svc := newService(nil, nil)

	_, err := svc.RecordTouchPoint(touchPoint("p1", models.ChannelEmail, "2025-03-01T10:00:00Z"))
	require.NoError(t, err)

	_, err = svc.RecordConversion(&ConversionInput{
		PatientID:      "p1",
		ConversionDate: "2025-03-02T10:00:00Z",
		LifetimeValue:  floatPtr(1000),
	})
	require.NoError(t, err)

	// second conversion without revenue fields keeps the stored values
	_, err = svc.RecordConversion(&ConversionInput{
		PatientID:      "p1",
		ConversionDate: "2025-03-10T10:00:00Z",
		ConversionType: models.ConversionReactivated,
	})
	require.NoError(t, err)

	j, _ := svc.GetJourney("p1")
	assert.True(t, j.Converted)
	assert.Equal(t, models.ConversionReactivated, j.ConversionType)
	assert.InDelta(t, 1000.0, j.LifetimeValue, 1e-9)
	assert.Equal(t, time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC), *j.ConversionDate)
}

func TestGetSnapshot_IsDeepCopy(t *testing.T) {
	svc := newService(nil, nil)

	_, err := svc.RecordTouchPoint(touchPoint("p1", models.ChannelEmail, ""))
	require.NoError(t, err)

	snap := svc.GetSnapshot()
	assert.Equal(t, models.StorageVersion, snap.Version)
	require.Contains(t, snap.Journeys, "p1")
	snap.Journeys["p1"].TouchPoints[0].Channel = "mutated"

	j, _ := svc.GetJourney("p1")
	assert.Equal(t, models.ChannelEmail, j.TouchPoints[0].Channel)
}

func TestPutJourneys_RestoresState(t *testing.T) {
	svc := newService(nil, nil)

	restored := models.NewJourney("p1")
	restored.AddTouchPoint(&models.TouchPoint{
		Timestamp: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Channel:   models.ChannelReferral,
	})
	svc.PutJourneys(map[string]*models.Journey{"p1": restored})

	total, converted := svc.JourneyCounts()
	assert.Equal(t, 1, total)
	assert.Zero(t, converted)
	j, ok := svc.GetJourney("p1")
	require.True(t, ok)
	assert.Equal(t, models.ChannelReferral, j.FirstTouchChannel)
}

func TestEvictStale_HandsOffToColdStorage(t *testing.T) {
	conf := &structures.Config{}
	conf.Attribution.Retention = time.Hour
	cold := newMemColdStorage()
	svc := newService(conf, cold)

	old := time.Now().UTC().Add(-48 * time.Hour).Format(time.RFC3339)
	_, err := svc.RecordTouchPoint(touchPoint("stale", models.ChannelEmail, old))
	require.NoError(t, err)
	_, err = svc.RecordTouchPoint(touchPoint("fresh", models.ChannelEmail, ""))
	require.NoError(t, err)

	n := svc.EvictStale()
	assert.Equal(t, 1, n)
	assert.True(t, cold.Has("stale"))
	total, _ := svc.JourneyCounts()
	assert.Equal(t, 1, total)
}

func TestRecordTouchPoint_RestoresFromColdStorage(t *testing.T) {
	cold := newMemColdStorage()
	evicted := models.NewJourney("p1")
	evicted.AddTouchPoint(&models.TouchPoint{
		Timestamp: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		Channel:   models.ChannelOrganicSearch,
		PageViews: 1,
	})
	cold.Evict("p1", evicted)

	svc := newService(nil, cold)
	_, err := svc.RecordTouchPoint(touchPoint("p1", models.ChannelEmail, "2025-03-05T10:00:00Z"))
	require.NoError(t, err)

	j, ok := svc.GetJourney("p1")
	require.True(t, ok)
	assert.Len(t, j.TouchPoints, 2)
	assert.Equal(t, models.ChannelOrganicSearch, j.FirstTouchChannel)
	assert.False(t, cold.Has("p1"))
}

func TestGetJourney_RestoresFromColdStorage(t *testing.T) {
	cold := newMemColdStorage()
	cold.Evict("p1", models.NewJourney("p1"))

	svc := newService(nil, cold)
	_, ok := svc.GetJourney("p1")
	assert.True(t, ok)
}

// memColdStorage is a minimal in-process models.ColdStorageInterface.
type memColdStorage struct {
	entries map[string]*models.Journey
}

func newMemColdStorage() *memColdStorage {
	return &memColdStorage{entries: make(map[string]*models.Journey)}
}

func (m *memColdStorage) Has(patientID string) bool {
	_, ok := m.entries[patientID]
	return ok
}

func (m *memColdStorage) Evict(patientID string, j *models.Journey) {
	m.entries[patientID] = j
}

func (m *memColdStorage) Restore(patientID string) (*models.Journey, error) {
	j, ok := m.entries[patientID]
	if !ok {
		return nil, nil
	}
	delete(m.entries, patientID)
	return j, nil
}
