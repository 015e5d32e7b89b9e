package testutil

import (
	"sync"

	"mtad/internal/models"
	"mtad/internal/providers"
	"mtad/internal/services"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// MockJourneyService implements services.JourneyServiceInterface.
type MockJourneyService struct {
	mu               sync.Mutex
	TouchPointCalls  []*services.TouchPointInput
	ConversionCalls  []*services.ConversionInput
	Summary          *models.JourneySummary
	Err              error
	Journeys         map[string]*models.Journey
	PutCalls         []map[string]*models.Journey
	EvictStaleResult int
	TotalCount       int
	ConvertedCount   int
}

func (m *MockJourneyService) RecordTouchPoint(in *services.TouchPointInput) (*models.JourneySummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TouchPointCalls = append(m.TouchPointCalls, in)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Summary, nil
}

func (m *MockJourneyService) RecordConversion(in *services.ConversionInput) (*models.JourneySummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ConversionCalls = append(m.ConversionCalls, in)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Summary, nil
}

func (m *MockJourneyService) GetJourney(patientID string) (*models.Journey, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.Journeys[patientID]
	return j, ok
}

func (m *MockJourneyService) JourneyCounts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.TotalCount, m.ConvertedCount
}

func (m *MockJourneyService) GetSnapshot() *models.Storage {
	m.mu.Lock()
	defer m.mu.Unlock()
	journeys := m.Journeys
	if journeys == nil {
		journeys = make(map[string]*models.Journey)
	}
	return &models.Storage{Version: models.StorageVersion, Journeys: journeys}
}

func (m *MockJourneyService) PutJourneys(journeys map[string]*models.Journey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PutCalls = append(m.PutCalls, journeys)
}

func (m *MockJourneyService) EvictStale() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.EvictStaleResult
}

// MockColdStorage implements models.ColdStorageInterface in memory.
type MockColdStorage struct {
	mu       sync.Mutex
	Entries  map[string]*models.Journey
	Evicted  []string
	Restored []string
}

func NewMockColdStorage() *MockColdStorage {
	return &MockColdStorage{Entries: make(map[string]*models.Journey)}
}

func (m *MockColdStorage) Has(patientID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Entries[patientID]
	return ok
}

func (m *MockColdStorage) Evict(patientID string, j *models.Journey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries[patientID] = j
	m.Evicted = append(m.Evicted, patientID)
}

func (m *MockColdStorage) Restore(patientID string) (*models.Journey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.Entries[patientID]
	if !ok {
		return nil, nil
	}
	delete(m.Entries, patientID)
	m.Restored = append(m.Restored, patientID)
	return j, nil
}
