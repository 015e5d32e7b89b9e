package models

import (
	"sync"
	"time"
)

// Conversion types recognized at the ingestion boundary.
const (
	ConversionGeneric     = "converted"
	ConversionAppointment = "appointment_booked"
	ConversionAccount     = "account_created"
	ConversionReactivated = "reactivated"
)

func IsRecognizedConversionType(ct string) bool {
	switch ct {
	case ConversionGeneric, ConversionAppointment, ConversionAccount, ConversionReactivated:
		return true
	}
	return false
}

// PathSeparator joins channel names into the human-readable conversion path.
const PathSeparator = " > "

type TimeToConversion struct {
	HoursFromFirstTouch float64 `json:"hours_from_first_touch"`
	HoursFromLastTouch  float64 `json:"hours_from_last_touch"`
}

// Journey is the ordered acquisition history of one patient. One journey per
// patient; mutations must go through JourneyStore.Mutate, which serializes
// them on the journey's own mutex.
type Journey struct {
	mu sync.Mutex

	PatientID         string            `json:"patient_id"`
	TouchPoints       []*TouchPoint     `json:"touch_points"`
	JourneyStartDate  time.Time         `json:"journey_start_date"`
	Converted         bool              `json:"converted"`
	ConversionDate    *time.Time        `json:"conversion_date,omitempty"`
	ConversionType    string            `json:"conversion_type,omitempty"`
	ConversionRef     string            `json:"conversion_ref,omitempty"`
	JourneyDuration   int               `json:"journey_duration"`
	LifetimeValue     float64           `json:"lifetime_value"`
	FirstYearRevenue  float64           `json:"first_year_revenue"`
	FirstTouchChannel string            `json:"first_touch_channel"`
	LastTouchChannel  string            `json:"last_touch_channel"`
	ChannelCounts     map[string]int    `json:"channel_counts"`
	Campaigns         []string          `json:"campaigns,omitempty"`
	PrimaryCampaign   string            `json:"primary_campaign,omitempty"`
	ConversionPath    string            `json:"conversion_path"`
	PathLength        int               `json:"path_length"`
	TimeToConversion  *TimeToConversion `json:"time_to_conversion,omitempty"`
	EngagementScore   int               `json:"engagement_score"`
}

func NewJourney(patientID string) *Journey {
	return &Journey{
		PatientID:     patientID,
		ChannelCounts: make(map[string]int),
	}
}

// AddTouchPoint inserts tp at its chronological position (appending when it
// is the newest, which is the common case) and refreshes the summary fields
// derived from the sequence. Late-arriving touchpoints are accepted and
// slotted in; equal timestamps keep insertion order.
func (j *Journey) AddTouchPoint(tp *TouchPoint) {
	idx := len(j.TouchPoints)
	for idx > 0 && j.TouchPoints[idx-1].Timestamp.After(tp.Timestamp) {
		idx--
	}
	j.TouchPoints = append(j.TouchPoints, nil)
	copy(j.TouchPoints[idx+1:], j.TouchPoints[idx:])
	j.TouchPoints[idx] = tp

	j.JourneyStartDate = j.TouchPoints[0].Timestamp
	j.FirstTouchChannel = j.TouchPoints[0].Channel
	j.LastTouchChannel = j.TouchPoints[len(j.TouchPoints)-1].Channel

	if j.ChannelCounts == nil {
		j.ChannelCounts = make(map[string]int)
	}
	j.ChannelCounts[tp.Channel]++

	if tp.Campaign != "" {
		seen := false
		for _, c := range j.Campaigns {
			if c == tp.Campaign {
				seen = true
				break
			}
		}
		if !seen {
			j.Campaigns = append(j.Campaigns, tp.Campaign)
		}
		if j.PrimaryCampaign == "" {
			j.PrimaryCampaign = tp.Campaign
		}
	}
}

// MarkConverted flips the journey to converted and derives the conversion
// timing fields. Converted is a one-way transition; calling this again
// refreshes the conversion metadata and timings but never unsets the flag.
func (j *Journey) MarkConverted(date time.Time, conversionType, ref string) {
	j.Converted = true
	j.ConversionDate = &date
	j.ConversionType = conversionType
	if ref != "" {
		j.ConversionRef = ref
	}
	j.JourneyDuration = int(date.Sub(j.JourneyStartDate).Hours() / 24)

	if n := len(j.TouchPoints); n > 0 {
		j.TimeToConversion = &TimeToConversion{
			HoursFromFirstTouch: date.Sub(j.TouchPoints[0].Timestamp).Hours(),
			HoursFromLastTouch:  date.Sub(j.TouchPoints[n-1].Timestamp).Hours(),
		}
	}
}

// LastTouchTime reports the timestamp of the newest touchpoint. Zero when the
// journey has no touchpoints yet.
func (j *Journey) LastTouchTime() time.Time {
	if n := len(j.TouchPoints); n > 0 {
		return j.TouchPoints[n-1].Timestamp
	}
	return time.Time{}
}

// Clone deep-copies the journey. Snapshots handed to persistence and
// reporting are clones, so readers never observe an in-flight mutation.
func (j *Journey) Clone() *Journey {
	cp := &Journey{
		PatientID:         j.PatientID,
		JourneyStartDate:  j.JourneyStartDate,
		Converted:         j.Converted,
		ConversionType:    j.ConversionType,
		ConversionRef:     j.ConversionRef,
		JourneyDuration:   j.JourneyDuration,
		LifetimeValue:     j.LifetimeValue,
		FirstYearRevenue:  j.FirstYearRevenue,
		FirstTouchChannel: j.FirstTouchChannel,
		LastTouchChannel:  j.LastTouchChannel,
		PrimaryCampaign:   j.PrimaryCampaign,
		ConversionPath:    j.ConversionPath,
		PathLength:        j.PathLength,
		EngagementScore:   j.EngagementScore,
	}
	if j.ConversionDate != nil {
		d := *j.ConversionDate
		cp.ConversionDate = &d
	}
	if j.TimeToConversion != nil {
		t := *j.TimeToConversion
		cp.TimeToConversion = &t
	}
	cp.TouchPoints = make([]*TouchPoint, len(j.TouchPoints))
	for i, tp := range j.TouchPoints {
		cp.TouchPoints[i] = tp.Clone()
	}
	cp.ChannelCounts = make(map[string]int, len(j.ChannelCounts))
	for k, v := range j.ChannelCounts {
		cp.ChannelCounts[k] = v
	}
	if j.Campaigns != nil {
		cp.Campaigns = append([]string(nil), j.Campaigns...)
	}
	return cp
}

// JourneySummary is the condensed view returned to the ingestion boundary
// after a mutation.
type JourneySummary struct {
	PatientID         string     `json:"patient_id"`
	FirstTouchChannel string     `json:"first_touch_channel"`
	LastTouchChannel  string     `json:"last_touch_channel"`
	ConversionPath    string     `json:"conversion_path"`
	PathLength        int        `json:"path_length"`
	Converted         bool       `json:"converted"`
	ConversionType    string     `json:"conversion_type,omitempty"`
	PrimaryCampaign   string     `json:"primary_campaign,omitempty"`
	EngagementScore   int        `json:"engagement_score"`
	JourneyStartDate  time.Time  `json:"journey_start_date"`
	ConversionDate    *time.Time `json:"conversion_date,omitempty"`
}

func (j *Journey) Summary() *JourneySummary {
	s := &JourneySummary{
		PatientID:         j.PatientID,
		FirstTouchChannel: j.FirstTouchChannel,
		LastTouchChannel:  j.LastTouchChannel,
		ConversionPath:    j.ConversionPath,
		PathLength:        j.PathLength,
		Converted:         j.Converted,
		ConversionType:    j.ConversionType,
		PrimaryCampaign:   j.PrimaryCampaign,
		EngagementScore:   j.EngagementScore,
		JourneyStartDate:  j.JourneyStartDate,
	}
	if j.ConversionDate != nil {
		d := *j.ConversionDate
		s.ConversionDate = &d
	}
	return s
}
