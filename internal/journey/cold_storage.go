package journey

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"mtad/internal/journey/interfaces"
	"mtad/internal/models"
	"mtad/internal/providers"
	"mtad/internal/structures"
)

const coldFileName = "journeys.cold.zst"

// ColdEntry is a single evicted journey in cold storage.
type ColdEntry struct {
	Journey   *models.Journey `json:"journey"`
	EvictedAt time.Time       `json:"evicted_at"`
}

// ColdFile is the on-disk format of the cold store.
type ColdFile struct {
	Entries map[string]*ColdEntry `json:"entries"`
}

// ColdStorage keeps stale unconverted journeys out of the hot store.
// Implements models.ColdStorageInterface (Has, Evict, Restore); Flush and
// RestoreIndex are called by the scheduler and at startup. Evict and Restore
// touch memory only; Flush is the single place that writes to disk.
type ColdStorage struct {
	mu         sync.RWMutex
	dir        string
	index      map[string]struct{}   // patient ids present in cold storage
	pending    map[string]*ColdEntry // evicted, not yet flushed
	restored   map[string]struct{}   // restored, pending lazy delete
	loaded     *ColdFile             // cached cold file
	coldTTL    time.Duration
	compressor interfaces.CompressorInterface
	logger     providers.Logger
}

func NewColdStorage(conf *structures.Config, compressor interfaces.CompressorInterface, logger providers.Logger) *ColdStorage {
	return &ColdStorage{
		dir:        conf.Attribution.ColdDir,
		index:      make(map[string]struct{}),
		pending:    make(map[string]*ColdEntry),
		restored:   make(map[string]struct{}),
		coldTTL:    conf.Attribution.ColdTTL,
		compressor: compressor,
		logger:     logger,
	}
}

// Has checks whether a patient's journey sits in cold storage. RLock only,
// this is on the ingestion hot path.
func (cs *ColdStorage) Has(patientID string) bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	_, ok := cs.index[patientID]
	return ok
}

// Evict buffers a journey for the next flush. No disk I/O.
func (cs *ColdStorage) Evict(patientID string, j *models.Journey) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.pending[patientID] = &ColdEntry{
		Journey:   j,
		EvictedAt: time.Now(),
	}
	cs.index[patientID] = struct{}{}
}

// Restore retrieves a journey from cold storage, checking the pending buffer
// before lazily loading the cold file. Disk deletion is deferred to Flush.
func (cs *ColdStorage) Restore(patientID string) (*models.Journey, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if entry, ok := cs.pending[patientID]; ok {
		delete(cs.pending, patientID)
		delete(cs.index, patientID)
		return entry.Journey, nil
	}

	coldFile := cs.getOrLoadColdFile()
	if coldFile == nil {
		delete(cs.index, patientID)
		return nil, nil
	}

	entry, ok := coldFile.Entries[patientID]
	if !ok {
		delete(cs.index, patientID)
		return nil, nil
	}

	cs.restored[patientID] = struct{}{}
	delete(cs.index, patientID)

	return entry.Journey, nil
}

// Flush merges pending evictions and lazy deletes into the cold file, drops
// entries older than coldTTL, and rewrites the file atomically. An empty
// cold file is removed instead of written.
func (cs *ColdStorage) Flush() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if len(cs.pending) == 0 && len(cs.restored) == 0 {
		return nil
	}

	coldFile := cs.getOrLoadColdFile()
	if coldFile == nil {
		coldFile = &ColdFile{Entries: make(map[string]*ColdEntry)}
	}

	for patientID := range cs.restored {
		delete(coldFile.Entries, patientID)
	}
	for patientID, entry := range cs.pending {
		coldFile.Entries[patientID] = entry
	}

	if cs.coldTTL > 0 {
		now := time.Now()
		for patientID, entry := range coldFile.Entries {
			if now.Sub(entry.EvictedAt) > cs.coldTTL {
				delete(coldFile.Entries, patientID)
				delete(cs.index, patientID)
			}
		}
	}

	if len(coldFile.Entries) > 0 {
		if err := cs.writeColdFile(coldFile); err != nil {
			return err
		}
		cs.loaded = coldFile
	} else {
		os.Remove(cs.coldFilePath())
		cs.loaded = nil
	}

	// Commit: clear buffers only after a successful write
	cs.pending = make(map[string]*ColdEntry)
	cs.restored = make(map[string]struct{})
	return nil
}

// RestoreIndex rebuilds the in-memory patient index from the cold file.
// Called once at startup.
func (cs *ColdStorage) RestoreIndex() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if err := os.MkdirAll(cs.dir, 0755); err != nil {
		return err
	}

	coldFile := cs.getOrLoadColdFile()
	if coldFile == nil {
		return nil
	}
	for patientID := range coldFile.Entries {
		cs.index[patientID] = struct{}{}
	}
	cs.logger.Infof(providers.TypeApp, "Cold storage index restored: %d journeys", len(cs.index))
	return nil
}

// getOrLoadColdFile returns the cached cold file, loading it from disk on
// first use. Caller must hold cs.mu.
func (cs *ColdStorage) getOrLoadColdFile() *ColdFile {
	if cs.loaded != nil {
		return cs.loaded
	}

	data, err := os.ReadFile(cs.coldFilePath())
	if err != nil {
		return nil
	}
	decompressed, err := cs.compressor.Decompress(data)
	if err != nil {
		cs.logger.Errorf(providers.TypeApp, "Cold file decompress failed: %s", err)
		return nil
	}
	var coldFile ColdFile
	if err := json.Unmarshal(decompressed, &coldFile); err != nil {
		cs.logger.Errorf(providers.TypeApp, "Cold file unmarshal failed: %s", err)
		return nil
	}
	if coldFile.Entries == nil {
		coldFile.Entries = make(map[string]*ColdEntry)
	}
	cs.loaded = &coldFile
	return cs.loaded
}

func (cs *ColdStorage) writeColdFile(coldFile *ColdFile) error {
	jsonData, err := json.Marshal(coldFile)
	if err != nil {
		return err
	}
	data, err := cs.compressor.Compress(jsonData)
	if err != nil {
		return err
	}

	path := cs.coldFilePath()
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func (cs *ColdStorage) coldFilePath() string {
	return filepath.Join(cs.dir, coldFileName)
}
