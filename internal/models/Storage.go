package models

// StorageVersion is the current snapshot envelope version.
const StorageVersion = 2

// Storage is the on-disk snapshot envelope. Version 1 files were a bare
// patientId → journey map without the envelope; FileManager migrates them
// on load.
type Storage struct {
	Version  int                 `json:"version"`
	Journeys map[string]*Journey `json:"journeys"`
}
