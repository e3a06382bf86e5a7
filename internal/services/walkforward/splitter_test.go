package walkforward

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinWalk/internal/domain/models"
)

func TestSplitIndexCount(t *testing.T) {
	splits, err := SplitIndex(10, SplitConfig{WindowLen: 5, SegmentLens: []int{1}, Count: 2})
	require.NoError(t, err)
	require.Len(t, splits, 2)

	assert.Equal(t, models.IndexRange{Start: 0, End: 5}, splits[0].Window)
	assert.Equal(t, models.IndexRange{Start: 0, End: 4}, splits[0].InSample)
	assert.Equal(t, models.IndexRange{Start: 4, End: 5}, splits[0].OutSample)

	assert.Equal(t, models.IndexRange{Start: 5, End: 10}, splits[1].Window)
	assert.Equal(t, models.IndexRange{Start: 5, End: 9}, splits[1].InSample)
	assert.Equal(t, models.IndexRange{Start: 9, End: 10}, splits[1].OutSample)
}

func TestSplitIndexSegmentsCoverWindow(t *testing.T) {
	configs := []SplitConfig{
		{WindowLen: 30, SegmentLens: []int{7}, Count: 5},
		{WindowLen: 30, SegmentLens: []int{10, 5}, Count: 4},
		{WindowLen: 12, SegmentLens: []int{3}, Stride: 5},
		{WindowLen: 12, SegmentLens: []int{3}, Stride: 5, Placement: models.PlacementRightToLeft},
	}
	for _, cfg := range configs {
		splits, err := SplitIndex(64, cfg)
		require.NoError(t, err)
		for i, sp := range splits {
			assert.Equal(t, i, sp.ID)
			assert.Equal(t, cfg.WindowLen, sp.Window.Len())
			assert.False(t, sp.InSample.Overlaps(sp.OutSample))
			assert.Equal(t, sp.InSample.End, sp.OutSample.Start)
			assert.Equal(t, sp.Window.Start, sp.InSample.Start)
			assert.Equal(t, sp.Window.End, sp.OutSample.End)
			assert.Equal(t, cfg.SegmentLens[len(cfg.SegmentLens)-1], sp.OutSample.Len())

			pos := sp.Window.Start
			for _, seg := range sp.Segments {
				assert.Equal(t, pos, seg.Start)
				pos = seg.End
			}
			assert.Equal(t, sp.Window.End, pos)

			if i > 0 {
				assert.Greater(t, sp.Window.Start, splits[i-1].Window.Start)
			}
		}
	}
}

func TestSplitIndexRemainderGoesToFirstSegment(t *testing.T) {
	splits, err := SplitIndex(730, SplitConfig{WindowLen: 730, SegmentLens: []int{180}, Count: 1})
	require.NoError(t, err)
	require.Len(t, splits, 1)
	assert.Equal(t, 550, splits[0].InSample.Len())
	assert.Equal(t, 180, splits[0].OutSample.Len())
	assert.Len(t, splits[0].Segments, 2)
}

func TestSplitIndexDeterministic(t *testing.T) {
	cfg := SplitConfig{WindowLen: 17, SegmentLens: []int{4}, Count: 6}
	a, err := SplitIndex(100, cfg)
	require.NoError(t, err)
	b, err := SplitIndex(100, cfg)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSplitIndexCountSpansSeries(t *testing.T) {
	splits, err := SplitIndex(100, SplitConfig{WindowLen: 20, SegmentLens: []int{5}, Count: 3})
	require.NoError(t, err)
	require.Len(t, splits, 3)
	assert.Equal(t, 0, splits[0].Window.Start)
	assert.Equal(t, 40, splits[1].Window.Start)
	assert.Equal(t, 100, splits[2].Window.End)
}

func TestSplitIndexSingleWindowPlacement(t *testing.T) {
	ltr, err := SplitIndex(10, SplitConfig{WindowLen: 4, SegmentLens: []int{1}, Count: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, ltr[0].Window.Start)

	rtl, err := SplitIndex(10, SplitConfig{WindowLen: 4, SegmentLens: []int{1}, Count: 1, Placement: models.PlacementRightToLeft})
	require.NoError(t, err)
	assert.Equal(t, 6, rtl[0].Window.Start)
}

func TestSplitIndexStride(t *testing.T) {
	ltr, err := SplitIndex(11, SplitConfig{WindowLen: 4, SegmentLens: []int{1}, Stride: 3})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3, 6}, windowStartsOf(ltr))

	rtl, err := SplitIndex(11, SplitConfig{WindowLen: 4, SegmentLens: []int{1}, Stride: 3, Placement: models.PlacementRightToLeft})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4, 7}, windowStartsOf(rtl))
	assert.Equal(t, 11, rtl[len(rtl)-1].Window.End)
}

func TestSplitIndexInsufficientData(t *testing.T) {
	_, err := SplitIndex(4, SplitConfig{WindowLen: 5, SegmentLens: []int{1}, Count: 1})
	var ide *InsufficientDataError
	require.True(t, errors.As(err, &ide))
	assert.Equal(t, 4, ide.Have)
	assert.Equal(t, 5, ide.Need)

	_, err = SplitIndex(10, SplitConfig{WindowLen: 5, SegmentLens: []int{1}, Count: 7})
	require.True(t, errors.As(err, &ide))
	assert.Equal(t, 11, ide.Need)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestSplitIndexInvalidConfig(t *testing.T) {
	cases := map[string]SplitConfig{
		"window too short":  {WindowLen: 1, SegmentLens: []int{1}, Count: 1},
		"no segments":       {WindowLen: 5, Count: 1},
		"zero segment":      {WindowLen: 5, SegmentLens: []int{0}, Count: 1},
		"segments too long": {WindowLen: 5, SegmentLens: []int{3, 3}, Count: 1},
		"no in-sample room": {WindowLen: 5, SegmentLens: []int{5}, Count: 1},
		"count and stride":  {WindowLen: 5, SegmentLens: []int{1}, Count: 1, Stride: 1},
		"neither":           {WindowLen: 5, SegmentLens: []int{1}},
		"negative stride":   {WindowLen: 5, SegmentLens: []int{1}, Stride: -1},
		"unknown placement": {WindowLen: 5, SegmentLens: []int{1}, Count: 1, Placement: "middle"},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := SplitIndex(100, cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func windowStartsOf(splits models.SplitSet) []int {
	out := make([]int, len(splits))
	for i, sp := range splits {
		out[i] = sp.Window.Start
	}
	return out
}
