// Package scorer aggregates per-item AI scores into section percentages
// and a weighted overall score for one conversation.
package scorer

import (
	"github.com/tigerroll/scorin/pkg/assess/core/domain/model"
	"github.com/tigerroll/scorin/pkg/assess/engine/analyzer"
	"github.com/tigerroll/scorin/pkg/assess/support/util/logger"
)

// SectionScore is the aggregated result of one framework section.
type SectionScore struct {
	SectionID string  `json:"sectionId"`
	// Percentage is achieved/maximum within the section, in percent.
	Percentage float64 `json:"percentage"`
	Weight     float64 `json:"weight"`
}

// Summary is the aggregated assessment of one conversation.
type Summary struct {
	// Overall is the weight-averaged section percentage, 0-100.
	Overall  float64        `json:"overall"`
	Passed   bool           `json:"passed"`
	Sections []SectionScore `json:"sections"`
}

// Aggregate folds the reported item scores into section percentages and
// the weighted overall score. Scores are looked up per (sectionId,
// itemId); an item the response omitted counts as zero against its
// maximum. Sections whose items sum to a zero maximum are excluded from
// both the section list and the weighted average, as are zero-weight
// sections in the average.
func Aggregate(framework *model.Framework, scores []analyzer.ItemScore) Summary {
	reported := make(map[string]float64, len(scores))
	for _, s := range scores {
		reported[s.SectionID+"\x00"+s.ItemID] = s.Score
	}

	var summary Summary
	var weightedSum, weightTotal float64
	for _, section := range framework.Sections {
		var achieved, maximum float64
		for _, item := range section.Items {
			max := item.Type.MaxScore()
			maximum += max

			score, ok := reported[section.ID+"\x00"+item.ID]
			if !ok {
				logger.Debugf("No score reported for item %s/%s; counting as 0.", section.ID, item.ID)
				continue
			}
			achieved += clamp(score, 0, max)
		}
		if maximum == 0 {
			continue
		}

		pct := achieved / maximum * 100
		summary.Sections = append(summary.Sections, SectionScore{
			SectionID:  section.ID,
			Percentage: pct,
			Weight:     section.Weight,
		})
		weightedSum += pct * section.Weight
		weightTotal += section.Weight
	}

	if weightTotal > 0 {
		summary.Overall = weightedSum / weightTotal
	}
	summary.Passed = summary.Overall >= framework.PassingScore
	return summary
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
