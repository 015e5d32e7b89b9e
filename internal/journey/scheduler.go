package journey

import (
	"sync"
	"time"

	"github.com/roylee0704/gron"

	"mtad/internal/journey/interfaces"
	"mtad/internal/providers"
	"mtad/internal/services"
	"mtad/internal/structures"
)

// Scheduler drives the background jobs: periodic snapshot persistence and
// stale-journey eviction to cold storage. Jobs serialize on opsMu so a slow
// save never overlaps an eviction sweep.
type Scheduler struct {
	config      *structures.Config
	logger      providers.Logger
	service     services.JourneyServiceInterface
	fileManager *FileManager
	cold        *ColdStorage
	metrics     providers.MetricsProviderInterface
	cron        *gron.Cron
	opsMu       sync.Mutex
}

func (s *Scheduler) save() error {
	start := time.Now()
	err := s.fileManager.SaveToFile(s.config.Persistence.FilePath)
	s.metrics.ObservePersistenceDuration(time.Since(start))
	return err
}

func (s *Scheduler) Init() {
	s.cron = gron.New()

	s.cron.AddFunc(gron.Every(s.config.Persistence.SaveInterval), func() {
		s.opsMu.Lock()
		defer s.opsMu.Unlock()

		err := s.save()
		if err != nil {
			s.logger.Errorf(providers.TypeApp, "Error while persisting data: %s", err)
			return
		}
		s.logger.Infof(providers.TypeApp, "Persisted data to file %s", s.config.Persistence.FilePath)
	})

	if interval := s.config.Attribution.EvictionInterval; interval > 0 && s.config.Attribution.Retention > 0 {
		s.cron.AddFunc(gron.Every(interval), func() {
			s.opsMu.Lock()
			defer s.opsMu.Unlock()

			evicted := s.service.EvictStale()
			if evicted > 0 {
				s.logger.Infof(providers.TypeApp, "Evicted %d stale journeys to cold storage", evicted)
			}
			if err := s.cold.Flush(); err != nil {
				s.logger.Errorf(providers.TypeApp, "Cold storage flush error: %s", err)
			}
		})
	}

	s.cron.Start()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Scheduler) Restore() error {
	if err := s.cold.RestoreIndex(); err != nil {
		return err
	}
	return s.fileManager.LoadFromFile(s.config.Persistence.FilePath)
}

func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	s.logger.Infof(providers.TypeApp, "Persisting journeys to file...")
	if err := s.save(); err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while persisting data: %s", err)
		return err
	}
	return s.cold.Flush()
}

func NewScheduler(config *structures.Config, logger providers.Logger, service services.JourneyServiceInterface, fileManager *FileManager, cold *ColdStorage, metrics providers.MetricsProviderInterface) interfaces.SchedulerInterface {
	return &Scheduler{
		config:      config,
		logger:      logger,
		service:     service,
		fileManager: fileManager,
		cold:        cold,
		metrics:     metrics,
	}
}
