package journey

import (
	"os"

	json "github.com/goccy/go-json"

	"mtad/internal/journey/interfaces"
	"mtad/internal/models"
	"mtad/internal/providers"
	"mtad/internal/services"
)

// FileManager persists the journey store as a zstd-compressed JSON snapshot.
// Writes go through a tmp file and an atomic rename, so a crash mid-save
// never corrupts the previous snapshot.
type FileManager struct {
	service    services.JourneyServiceInterface
	compressor interfaces.CompressorInterface
	logger     providers.Logger
}

func NewFileManager(compressor interfaces.CompressorInterface, service services.JourneyServiceInterface, logger providers.Logger) *FileManager {
	return &FileManager{
		compressor: compressor,
		service:    service,
		logger:     logger,
	}
}

func (f *FileManager) SaveToFile(fileName string) error {
	storage := f.service.GetSnapshot()

	jsonData, err := json.Marshal(storage)
	if err != nil {
		return err
	}
	data, err := f.compressor.Compress(jsonData)
	if err != nil {
		return err
	}

	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, fileName)
}

func (f *FileManager) Close() {
	f.compressor.Close()
}

// LoadFromFile restores the journey store from disk. A missing file is not
// an error (fresh start). Unversioned v1 files, a bare patientId → journey
// map, are migrated transparently.
func (f *FileManager) LoadFromFile(fileName string) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	decompressedData, err := f.compressor.Decompress(data)
	if err != nil {
		return err
	}

	// Current format: versioned envelope
	var storage models.Storage
	if err := json.Unmarshal(decompressedData, &storage); err == nil && storage.Journeys != nil {
		f.service.PutJourneys(storage.Journeys)
		return nil
	}

	// Old format: bare journey map without the envelope
	f.logger.Warnf(providers.TypeApp, "Inconsistent DB found, try to migrate from old data format")
	var journeys map[string]*models.Journey
	if err := json.Unmarshal(decompressedData, &journeys); err != nil {
		f.logger.Warnf(providers.TypeApp, "Migration failed")
		return err
	}
	f.logger.Warnf(providers.TypeApp, "Migration from v1 format successful")
	f.service.PutJourneys(journeys)

	return nil
}
