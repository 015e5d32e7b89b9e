package models

import "time"

// ChannelPerformance is one channel's row in an attribution report.
// Conversions is the whole-conversion tally and is only populated for the
// first_touch and last_touch models; AttributedConversions (the credit sum)
// is the model-consistent counterpart populated for every model.
type ChannelPerformance struct {
	Revenue               float64 `json:"revenue"`
	TouchPoints           int     `json:"touch_points"`
	Conversions           int     `json:"conversions"`
	AttributedConversions float64 `json:"attributed_conversions"`
}

type ChannelReport struct {
	Model              string                         `json:"model"`
	StartDate          time.Time                      `json:"start_date"`
	EndDate            time.Time                      `json:"end_date"`
	TotalConversions   int                            `json:"total_conversions"`
	TotalRevenue       float64                        `json:"total_revenue"`
	Channels           map[string]*ChannelPerformance `json:"channels"`
	AvgPathLength      float64                        `json:"avg_path_length"`
	AvgJourneyDuration float64                        `json:"avg_journey_duration"`
}

// FunnelMetrics covers journeys started in the report window. Rates are
// percentages, zero when the denominator is zero.
type FunnelMetrics struct {
	TotalJourneys          int     `json:"total_journeys"`
	Conversions            int     `json:"conversions"`
	MultiTouch             int     `json:"multi_touch"`
	ConversionRate         float64 `json:"conversion_rate"`
	MultiTouchRate         float64 `json:"multi_touch_rate"`
	AvgJourneyDuration     float64 `json:"avg_journey_duration"`
	AvgHoursFromFirstTouch float64 `json:"avg_hours_from_first_touch"`
	AvgHoursFromLastTouch  float64 `json:"avg_hours_from_last_touch"`
}

// PathStat is one conversion-path group in the top-paths report.
type PathStat struct {
	Path               string  `json:"path"`
	Count              int     `json:"count"`
	AvgLifetimeValue   float64 `json:"avg_lifetime_value"`
	AvgJourneyDuration float64 `json:"avg_journey_duration"`
}
