package attribution

import "mtad/internal/models"

// Score derives the bounded [0,100] engagement score from touchpoint volume,
// page views, interactions and conversion status.
//
//	min(5N, 30) + min(2·Σviews, 20) + min(5·Σinteractions, 25) + 25·converted
//
// capped at 100.
func Score(j *models.Journey) int {
	var pageViews, interactions int
	for _, tp := range j.TouchPoints {
		pageViews += tp.PageViews
		interactions += tp.Interactions
	}

	score := min(5*len(j.TouchPoints), 30)
	score += min(2*pageViews, 20)
	score += min(5*interactions, 25)
	if j.Converted {
		score += 25
	}
	return min(score, 100)
}
