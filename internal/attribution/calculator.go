package attribution

import (
	"math"
	"strings"
	"time"

	"mtad/internal/models"
	"mtad/internal/structures"
)

// DefaultHalfLifeDays is the time-decay half-life used when the config does
// not override it.
const DefaultHalfLifeDays = 7.0

// defaultChannelWeights drives the custom (channel-weighted) model. Channels
// absent from the table weigh 1.0.
var defaultChannelWeights = map[string]float64{
	models.ChannelReferral:      1.8,
	models.ChannelPaidSearch:    1.5,
	models.ChannelMarketplace:   1.4,
	models.ChannelSocialPaid:    1.3,
	models.ChannelReviewSites:   1.2,
	models.ChannelOrganicSearch: 1.0,
	models.ChannelEmail:         0.8,
	models.ChannelSocialOrganic: 0.7,
	models.ChannelDirect:        0.5,
}

// Calculator assigns per-touchpoint credit under all six attribution models.
// Recompute is a pure function of journey state: it never reads the clock,
// so recomputing an unchanged journey yields identical credit vectors.
type Calculator struct {
	halfLifeDays float64
	weights      map[string]float64
}

func NewCalculator(conf *structures.Config) *Calculator {
	halfLife := conf.Attribution.HalfLifeDays
	if halfLife <= 0 {
		halfLife = DefaultHalfLifeDays
	}
	return &Calculator{
		halfLifeDays: halfLife,
		weights:      defaultChannelWeights,
	}
}

// Recompute re-derives every model's credit vector over the full touchpoint
// sequence, then rebuilds the conversion path, path length and engagement
// score. The caller persists; the calculator only mutates in place. A journey
// with no touchpoints is left untouched.
func (c *Calculator) Recompute(j *models.Journey) {
	n := len(j.TouchPoints)
	if n == 0 {
		return
	}

	for _, tp := range j.TouchPoints {
		tp.Credits = make(map[string]float64, 6)
	}

	c.applyFirstTouch(j.TouchPoints)
	c.applyLastTouch(j.TouchPoints)
	c.applyLinear(j.TouchPoints)
	c.applyTimeDecay(j.TouchPoints, j.ConversionDate)
	c.applyPositionBased(j.TouchPoints)
	c.applyCustom(j.TouchPoints)

	channels := make([]string, n)
	for i, tp := range j.TouchPoints {
		channels[i] = tp.Channel
	}
	j.ConversionPath = strings.Join(channels, models.PathSeparator)
	j.PathLength = n
	j.EngagementScore = Score(j)
}

func (c *Calculator) applyFirstTouch(tps []*models.TouchPoint) {
	for i, tp := range tps {
		if i == 0 {
			tp.Credits[models.ModelFirstTouch] = 1.0
		} else {
			tp.Credits[models.ModelFirstTouch] = 0
		}
	}
}

func (c *Calculator) applyLastTouch(tps []*models.TouchPoint) {
	last := len(tps) - 1
	for i, tp := range tps {
		if i == last {
			tp.Credits[models.ModelLastTouch] = 1.0
		} else {
			tp.Credits[models.ModelLastTouch] = 0
		}
	}
}

func (c *Calculator) applyLinear(tps []*models.TouchPoint) {
	share := 1.0 / float64(len(tps))
	for _, tp := range tps {
		tp.Credits[models.ModelLinear] = share
	}
}

// applyTimeDecay weights each touchpoint by 0.5^(daysAgo/halfLife) relative
// to the conversion instant. Before conversion there is no reference instant,
// so the model degrades to linear credit.
func (c *Calculator) applyTimeDecay(tps []*models.TouchPoint, conversion *time.Time) {
	if conversion == nil {
		share := 1.0 / float64(len(tps))
		for _, tp := range tps {
			tp.Credits[models.ModelTimeDecay] = share
		}
		return
	}

	weights := make([]float64, len(tps))
	var sum float64
	for i, tp := range tps {
		daysAgo := conversion.Sub(tp.Timestamp).Hours() / 24.0
		weights[i] = math.Pow(0.5, daysAgo/c.halfLifeDays)
		sum += weights[i]
	}
	for i, tp := range tps {
		tp.Credits[models.ModelTimeDecay] = weights[i] / sum
	}
}

func (c *Calculator) applyPositionBased(tps []*models.TouchPoint) {
	n := len(tps)
	switch n {
	case 1:
		tps[0].Credits[models.ModelPositionBased] = 1.0
	case 2:
		tps[0].Credits[models.ModelPositionBased] = 0.5
		tps[1].Credits[models.ModelPositionBased] = 0.5
	default:
		middle := 0.2 / float64(n-2)
		for i, tp := range tps {
			if i == 0 || i == n-1 {
				tp.Credits[models.ModelPositionBased] = 0.4
			} else {
				tp.Credits[models.ModelPositionBased] = middle
			}
		}
	}
}

func (c *Calculator) applyCustom(tps []*models.TouchPoint) {
	weights := make([]float64, len(tps))
	var sum float64
	for i, tp := range tps {
		weights[i] = c.channelWeight(tp.Channel)
		sum += weights[i]
	}
	for i, tp := range tps {
		tp.Credits[models.ModelCustom] = weights[i] / sum
	}
}

func (c *Calculator) channelWeight(channel string) float64 {
	if w, ok := c.weights[channel]; ok {
		return w
	}
	return 1.0
}
