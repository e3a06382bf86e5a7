package walkforward

import (
	"math"

	"FinWalk/internal/domain/models"
)

// SplitConfig describes how windows are laid over a series.
//
// SegmentLens lists the fixed segment lengths of a window; the last one is the
// out-of-sample segment. Whatever is left of WindowLen is prepended to the
// first segment, so []int{180} on a 730-bar window yields 550 in-sample bars
// followed by 180 out-of-sample bars.
//
// Exactly one of Count and Stride must be positive. Count spreads that many
// windows evenly between the first and last possible start. Stride steps
// windows from the anchored end; the remainder is dropped at the other end.
type SplitConfig struct {
	WindowLen   int
	SegmentLens []int
	Placement   models.Placement
	Count       int
	Stride      int
}

func (c SplitConfig) validate() error {
	if c.WindowLen < 2 {
		return invalid("window_len", "must be at least 2, got %d", c.WindowLen)
	}
	if len(c.SegmentLens) == 0 {
		return invalid("segment_lens", "at least the out-of-sample length is required")
	}
	sum := 0
	for _, l := range c.SegmentLens {
		if l <= 0 {
			return invalid("segment_lens", "lengths must be positive, got %v", c.SegmentLens)
		}
		sum += l
	}
	if sum > c.WindowLen {
		return invalid("segment_lens", "sum %d exceeds window_len %d", sum, c.WindowLen)
	}
	if sum == c.WindowLen && len(c.SegmentLens) < 2 {
		return invalid("segment_lens", "no room left for an in-sample segment")
	}
	switch {
	case c.Count < 0 || c.Stride < 0:
		return invalid("count_or_stride", "must not be negative")
	case c.Count > 0 && c.Stride > 0:
		return invalid("count_or_stride", "count and stride are mutually exclusive")
	case c.Count == 0 && c.Stride == 0:
		return invalid("count_or_stride", "either count or stride is required")
	}
	switch c.Placement {
	case "", models.PlacementLeftToRight, models.PlacementRightToLeft:
	default:
		return invalid("placement", "unknown placement %q", c.Placement)
	}
	return nil
}

// SplitSeries partitions the index of series into walk-forward splits.
func SplitSeries(series models.Series, cfg SplitConfig) (models.SplitSet, error) {
	return SplitIndex(series.Len(), cfg)
}

// SplitIndex partitions an index domain of length n. The result is a pure
// function of its inputs.
func SplitIndex(n int, cfg SplitConfig) (models.SplitSet, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if n < cfg.WindowLen {
		return nil, &InsufficientDataError{Have: n, Need: cfg.WindowLen, Detail: "series shorter than window_len"}
	}
	starts, err := windowStarts(n, cfg)
	if err != nil {
		return nil, err
	}

	layout := segmentLayout(cfg.WindowLen, cfg.SegmentLens)
	splits := make(models.SplitSet, 0, len(starts))
	for id, start := range starts {
		segs := make([]models.IndexRange, len(layout))
		pos := start
		for i, l := range layout {
			segs[i] = models.IndexRange{Start: pos, End: pos + l}
			pos += l
		}
		oos := segs[len(segs)-1]
		splits = append(splits, models.Split{
			ID:        id,
			Window:    models.IndexRange{Start: start, End: start + cfg.WindowLen},
			Segments:  segs,
			InSample:  models.IndexRange{Start: start, End: oos.Start},
			OutSample: oos,
		})
	}
	return splits, nil
}

func segmentLayout(windowLen int, lens []int) []int {
	sum := 0
	for _, l := range lens {
		sum += l
	}
	out := make([]int, 0, len(lens)+1)
	if rem := windowLen - sum; rem > 0 {
		out = append(out, rem)
	}
	return append(out, lens...)
}

func windowStarts(n int, cfg SplitConfig) ([]int, error) {
	w := cfg.WindowLen
	available := n - w + 1
	rtl := cfg.Placement == models.PlacementRightToLeft

	if cfg.Count > 0 {
		if cfg.Count > available {
			return nil, &InsufficientDataError{
				Have:   n,
				Need:   w + cfg.Count - 1,
				Detail: "not enough observations for the requested number of windows",
			}
		}
		if cfg.Count == 1 {
			if rtl {
				return []int{n - w}, nil
			}
			return []int{0}, nil
		}
		last := float64(available - 1)
		starts := make([]int, cfg.Count)
		for i := range starts {
			starts[i] = int(math.RoundToEven(float64(i) * last / float64(cfg.Count-1)))
		}
		return starts, nil
	}

	starts := make([]int, 0, available/cfg.Stride+1)
	if rtl {
		for s := n - w; s >= 0; s -= cfg.Stride {
			starts = append(starts, s)
		}
		for i, j := 0, len(starts)-1; i < j; i, j = i+1, j-1 {
			starts[i], starts[j] = starts[j], starts[i]
		}
		return starts, nil
	}
	for s := 0; s+w <= n; s += cfg.Stride {
		starts = append(starts, s)
	}
	return starts, nil
}
