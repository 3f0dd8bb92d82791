package scorer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/scorin/pkg/assess/core/domain/model"
	"github.com/tigerroll/scorin/pkg/assess/engine/analyzer"
	"github.com/tigerroll/scorin/pkg/assess/engine/scorer"
)

func TestAggregateSingleSection(t *testing.T) {
	// One section, weight 100: a binary hit and a scale_5 miss of 2 points.
	// Achieved 4 of maximum 8 yields a 50% section and overall score.
	framework := &model.Framework{
		ID:           "fw-1",
		PassingScore: 70,
		Sections: []model.FrameworkSection{
			{
				ID:     "s1",
				Weight: 100,
				Items: []model.FrameworkItem{
					{ID: "i1", Type: model.ItemTypeBinary},
					{ID: "i2", Type: model.ItemTypeScale5},
					{ID: "i3", Type: model.ItemTypeNAAllowed},
				},
			},
		},
	}
	// Maximum: 1 + 5 + 5 = 11; achieved: 1 + 3 + 1.5 = 5.5.
	scores := []analyzer.ItemScore{
		{SectionID: "s1", ItemID: "i1", Score: 1},
		{SectionID: "s1", ItemID: "i2", Score: 3},
		{SectionID: "s1", ItemID: "i3", Score: 1.5},
	}

	summary := scorer.Aggregate(framework, scores)
	require.Len(t, summary.Sections, 1)
	assert.InDelta(t, 50.0, summary.Sections[0].Percentage, 1e-9)
	assert.InDelta(t, 50.0, summary.Overall, 1e-9)
	assert.False(t, summary.Passed)
}

func TestAggregateWeightedSections(t *testing.T) {
	framework := &model.Framework{
		ID:           "fw-2",
		PassingScore: 60,
		Sections: []model.FrameworkSection{
			{ID: "a", Weight: 75, Items: []model.FrameworkItem{{ID: "i1", Type: model.ItemTypeBinary}}},
			{ID: "b", Weight: 25, Items: []model.FrameworkItem{{ID: "i1", Type: model.ItemTypeBinary}}},
		},
	}
	scores := []analyzer.ItemScore{
		{SectionID: "a", ItemID: "i1", Score: 1},
		{SectionID: "b", ItemID: "i1", Score: 0},
	}

	summary := scorer.Aggregate(framework, scores)
	// 100% * 0.75 + 0% * 0.25 = 75.
	assert.InDelta(t, 75.0, summary.Overall, 1e-9)
	assert.True(t, summary.Passed)
}

func TestAggregateMissingScoresCountAsZero(t *testing.T) {
	framework := &model.Framework{
		ID: "fw-3",
		Sections: []model.FrameworkSection{
			{ID: "s1", Weight: 100, Items: []model.FrameworkItem{
				{ID: "i1", Type: model.ItemTypeBinary},
				{ID: "i2", Type: model.ItemTypeBinary},
			}},
		},
	}
	scores := []analyzer.ItemScore{{SectionID: "s1", ItemID: "i1", Score: 1}}

	summary := scorer.Aggregate(framework, scores)
	assert.InDelta(t, 50.0, summary.Overall, 1e-9)
}

func TestAggregateExcludesZeroMaxSections(t *testing.T) {
	// A section with no items has a zero maximum and must not appear in
	// the section list nor drag the weighted average down.
	framework := &model.Framework{
		ID: "fw-4",
		Sections: []model.FrameworkSection{
			{ID: "empty", Weight: 50, Items: nil},
			{ID: "real", Weight: 50, Items: []model.FrameworkItem{{ID: "i1", Type: model.ItemTypeBinary}}},
		},
	}
	scores := []analyzer.ItemScore{{SectionID: "real", ItemID: "i1", Score: 1}}

	summary := scorer.Aggregate(framework, scores)
	require.Len(t, summary.Sections, 1)
	assert.Equal(t, "real", summary.Sections[0].SectionID)
	assert.InDelta(t, 100.0, summary.Overall, 1e-9)
}

func TestAggregateClampsOutOfRangeScores(t *testing.T) {
	framework := &model.Framework{
		ID: "fw-5",
		Sections: []model.FrameworkSection{
			{ID: "s1", Weight: 100, Items: []model.FrameworkItem{
				{ID: "i1", Type: model.ItemTypeBinary},
				{ID: "i2", Type: model.ItemTypeBinary},
			}},
		},
	}
	scores := []analyzer.ItemScore{
		{SectionID: "s1", ItemID: "i1", Score: 7},  // clamped to 1
		{SectionID: "s1", ItemID: "i2", Score: -3}, // clamped to 0
	}

	summary := scorer.Aggregate(framework, scores)
	assert.InDelta(t, 50.0, summary.Overall, 1e-9)
}

func TestAggregateAllSectionsEmpty(t *testing.T) {
	framework := &model.Framework{
		ID:       "fw-6",
		Sections: []model.FrameworkSection{{ID: "s1", Weight: 100}},
	}
	summary := scorer.Aggregate(framework, nil)
	assert.Empty(t, summary.Sections)
	assert.Zero(t, summary.Overall)
	assert.True(t, summary.Passed) // passing score 0
}

func TestItemTypeMaxScore(t *testing.T) {
	assert.Equal(t, 1.0, model.ItemTypeBinary.MaxScore())
	assert.Equal(t, 3.0, model.ItemTypeScale3.MaxScore())
	assert.Equal(t, 5.0, model.ItemTypeScale5.MaxScore())
	assert.Equal(t, 5.0, model.ItemTypeNAAllowed.MaxScore())
	assert.Equal(t, 1.0, model.ItemType("mystery").MaxScore())
}
