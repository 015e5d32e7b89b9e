package models

import "time"

// Attribution model names, used as keys of TouchPoint.Credits.
const (
	ModelFirstTouch    = "first_touch"
	ModelLastTouch     = "last_touch"
	ModelLinear        = "linear"
	ModelTimeDecay     = "time_decay"
	ModelPositionBased = "position_based"
	ModelCustom        = "custom"
)

func ModelNames() []string {
	return []string{
		ModelFirstTouch,
		ModelLastTouch,
		ModelLinear,
		ModelTimeDecay,
		ModelPositionBased,
		ModelCustom,
	}
}

func IsRecognizedModel(name string) bool {
	switch name {
	case ModelFirstTouch, ModelLastTouch, ModelLinear, ModelTimeDecay, ModelPositionBased, ModelCustom:
		return true
	}
	return false
}

// Marketing channels recognized at the ingestion boundary.
const (
	ChannelOrganicSearch = "organic_search"
	ChannelPaidSearch    = "paid_search"
	ChannelSocialOrganic = "social_organic"
	ChannelSocialPaid    = "social_paid"
	ChannelEmail         = "email"
	ChannelDirect        = "direct"
	ChannelReferral      = "referral"
	ChannelReviewSites   = "review_sites"
	ChannelMarketplace   = "marketplace"
	ChannelRetargeting   = "retargeting"
	ChannelDisplay       = "display"
	ChannelVideo         = "video"
	ChannelAffiliate     = "affiliate"
	ChannelSms           = "sms"
	ChannelPrint         = "print"
	ChannelRadio         = "radio"
	ChannelTv            = "tv"
	ChannelEvents        = "events"
	ChannelSyndication   = "content_syndication"
	ChannelOther         = "other"
)

var recognizedChannels = map[string]struct{}{
	ChannelOrganicSearch: {},
	ChannelPaidSearch:    {},
	ChannelSocialOrganic: {},
	ChannelSocialPaid:    {},
	ChannelEmail:         {},
	ChannelDirect:        {},
	ChannelReferral:      {},
	ChannelReviewSites:   {},
	ChannelMarketplace:   {},
	ChannelRetargeting:   {},
	ChannelDisplay:       {},
	ChannelVideo:         {},
	ChannelAffiliate:     {},
	ChannelSms:           {},
	ChannelPrint:         {},
	ChannelRadio:         {},
	ChannelTv:            {},
	ChannelEvents:        {},
	ChannelSyndication:   {},
	ChannelOther:         {},
}

func IsRecognizedChannel(channel string) bool {
	_, ok := recognizedChannels[channel]
	return ok
}

// TouchPoint is a single recorded marketing interaction. It is owned by its
// parent Journey and immutable once recorded, except for Credits, which are
// recomputed by the attribution calculator on every journey mutation.
type TouchPoint struct {
	Timestamp       time.Time          `json:"timestamp"`
	Channel         string             `json:"channel"`
	Medium          string             `json:"medium,omitempty"`
	Source          string             `json:"source,omitempty"`
	Campaign        string             `json:"campaign,omitempty"`
	Content         string             `json:"content,omitempty"`
	Keyword         string             `json:"keyword,omitempty"`
	LandingPage     string             `json:"landing_page,omitempty"`
	PageViews       int                `json:"page_views"`
	Interactions    int                `json:"interactions"`
	SessionDuration int                `json:"session_duration,omitempty"`
	Device          string             `json:"device,omitempty"`
	Credits         map[string]float64 `json:"credits,omitempty"`
}

func (tp *TouchPoint) Clone() *TouchPoint {
	cp := *tp
	if tp.Credits != nil {
		cp.Credits = make(map[string]float64, len(tp.Credits))
		for k, v := range tp.Credits {
			cp.Credits[k] = v
		}
	}
	return &cp
}
