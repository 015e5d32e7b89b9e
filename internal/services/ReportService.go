package services

import (
	"fmt"
	"sort"
	"time"

	"mtad/internal/models"
)

type ReportServiceInterface interface {
	GetAttributionReport(start, end time.Time, model string) (*models.ChannelReport, error)
	GetConversionFunnel(start, end time.Time) *models.FunnelMetrics
	GetTopConversionPaths(start, end time.Time, limit int) []*models.PathStat
	CompareAttributionModels(start, end time.Time) (map[string]*models.ChannelReport, error)
}

// ReportService folds persisted journeys into read-side aggregates. It works
// on store snapshots and never mutates a journey.
type ReportService struct {
	service JourneyServiceInterface
}

func NewReportService(service JourneyServiceInterface) ReportServiceInterface {
	return &ReportService{service: service}
}

// GetAttributionReport rolls converted journeys whose conversion date falls
// in [start, end] into per-channel revenue and touchpoint buckets under the
// given model. The binary Conversions tally exists only for first/last touch;
// AttributedConversions carries the credit sum for every model.
func (rs *ReportService) GetAttributionReport(start, end time.Time, model string) (*models.ChannelReport, error) {
	if !models.IsRecognizedModel(model) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}

	report := &models.ChannelReport{
		Model:     model,
		StartDate: start,
		EndDate:   end,
		Channels:  make(map[string]*models.ChannelPerformance),
	}

	var pathLenSum, durationSum int
	for _, j := range rs.service.GetSnapshot().Journeys {
		if !j.Converted || j.ConversionDate == nil || !inRange(*j.ConversionDate, start, end) {
			continue
		}
		report.TotalConversions++
		report.TotalRevenue += j.LifetimeValue
		pathLenSum += j.PathLength
		durationSum += j.JourneyDuration

		for _, tp := range j.TouchPoints {
			perf := channelPerf(report, tp.Channel)
			credit := tp.Credits[model]
			perf.Revenue += credit * j.LifetimeValue
			perf.TouchPoints++
			perf.AttributedConversions += credit
		}

		switch model {
		case models.ModelFirstTouch:
			channelPerf(report, j.FirstTouchChannel).Conversions++
		case models.ModelLastTouch:
			channelPerf(report, j.LastTouchChannel).Conversions++
		}
	}

	if report.TotalConversions > 0 {
		report.AvgPathLength = float64(pathLenSum) / float64(report.TotalConversions)
		report.AvgJourneyDuration = float64(durationSum) / float64(report.TotalConversions)
	}
	return report, nil
}

// GetConversionFunnel covers journeys started in [start, end]: how many
// converted, how many were multi-touch, and the timing averages over the
// converted subset.
func (rs *ReportService) GetConversionFunnel(start, end time.Time) *models.FunnelMetrics {
	f := &models.FunnelMetrics{}

	var durationSum, firstSum, lastSum float64
	for _, j := range rs.service.GetSnapshot().Journeys {
		if !inRange(j.JourneyStartDate, start, end) {
			continue
		}
		f.TotalJourneys++
		if j.PathLength >= 2 {
			f.MultiTouch++
		}
		if j.Converted {
			f.Conversions++
			durationSum += float64(j.JourneyDuration)
			if j.TimeToConversion != nil {
				firstSum += j.TimeToConversion.HoursFromFirstTouch
				lastSum += j.TimeToConversion.HoursFromLastTouch
			}
		}
	}

	if f.TotalJourneys > 0 {
		f.ConversionRate = 100 * float64(f.Conversions) / float64(f.TotalJourneys)
		f.MultiTouchRate = 100 * float64(f.MultiTouch) / float64(f.TotalJourneys)
	}
	if f.Conversions > 0 {
		f.AvgJourneyDuration = durationSum / float64(f.Conversions)
		f.AvgHoursFromFirstTouch = firstSum / float64(f.Conversions)
		f.AvgHoursFromLastTouch = lastSum / float64(f.Conversions)
	}
	return f
}

// GetTopConversionPaths groups converted journeys by their conversion path,
// sorted by occurrence count descending (path ascending on ties, so the
// order is stable), truncated to limit.
func (rs *ReportService) GetTopConversionPaths(start, end time.Time, limit int) []*models.PathStat {
	type pathAgg struct {
		count       int
		ltvSum      float64
		durationSum float64
	}
	groups := make(map[string]*pathAgg)

	for _, j := range rs.service.GetSnapshot().Journeys {
		if !j.Converted || j.ConversionDate == nil || !inRange(*j.ConversionDate, start, end) {
			continue
		}
		agg, ok := groups[j.ConversionPath]
		if !ok {
			agg = &pathAgg{}
			groups[j.ConversionPath] = agg
		}
		agg.count++
		agg.ltvSum += j.LifetimeValue
		agg.durationSum += float64(j.JourneyDuration)
	}

	stats := make([]*models.PathStat, 0, len(groups))
	for path, agg := range groups {
		stats = append(stats, &models.PathStat{
			Path:               path,
			Count:              agg.count,
			AvgLifetimeValue:   agg.ltvSum / float64(agg.count),
			AvgJourneyDuration: agg.durationSum / float64(agg.count),
		})
	}
	sort.Slice(stats, func(i, k int) bool {
		if stats[i].Count != stats[k].Count {
			return stats[i].Count > stats[k].Count
		}
		return stats[i].Path < stats[k].Path
	})

	if limit > 0 && len(stats) > limit {
		stats = stats[:limit]
	}
	return stats
}

// CompareAttributionModels runs the channel report once per model.
func (rs *ReportService) CompareAttributionModels(start, end time.Time) (map[string]*models.ChannelReport, error) {
	reports := make(map[string]*models.ChannelReport, len(models.ModelNames()))
	for _, name := range models.ModelNames() {
		report, err := rs.GetAttributionReport(start, end, name)
		if err != nil {
			return nil, err
		}
		reports[name] = report
	}
	return reports, nil
}

func channelPerf(report *models.ChannelReport, channel string) *models.ChannelPerformance {
	perf, ok := report.Channels[channel]
	if !ok {
		perf = &models.ChannelPerformance{}
		report.Channels[channel] = perf
	}
	return perf
}

func inRange(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
