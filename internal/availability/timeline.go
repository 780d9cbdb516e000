package availability

import (
	"time"

	"github.com/dukerupert/roomboard/internal/model"
	"github.com/dukerupert/roomboard/internal/timeutil"
)

type BlockState string

const (
	BlockPast    BlockState = "past"
	BlockCurrent BlockState = "current"
	BlockFuture  BlockState = "future"
)

// Window is the visible part of a day in a timeline, in minutes since midnight.
type Window struct {
	From int
	To   int
}

var DefaultWindow = Window{From: 8 * 60, To: 20 * 60}

// Block positions one event inside a timeline window as percentages.
type Block struct {
	Event     model.Event `json:"event"`
	OffsetPct float64     `json:"offset_pct"`
	WidthPct  float64     `json:"width_pct"`
	State     BlockState  `json:"state"`
}

// Hours returns the whole hours to label along the window.
func (w Window) Hours() []int {
	var hours []int
	for m := w.From; m <= w.To; m += 60 {
		if m%60 == 0 {
			hours = append(hours, m/60)
		}
	}
	return hours
}

// Timeline lays out the events of now's day inside the window. Blocks that
// spill past the window are clamped; events fully outside it are dropped.
func Timeline(events []model.Event, now time.Time, w Window) []Block {
	span := w.To - w.From
	if span <= 0 {
		return nil
	}
	var blocks []Block
	for _, e := range TodaysMeetings(events, now) {
		start := timeutil.WallMinutesSince(now, e.StartTime)
		end := timeutil.WallMinutesSince(now, e.EndTime)
		if end <= w.From || start >= w.To {
			continue
		}
		start = max(start, w.From)
		end = min(end, w.To)

		blocks = append(blocks, Block{
			Event:     e,
			OffsetPct: pct(start-w.From, span),
			WidthPct:  pct(end-start, span),
			State:     blockState(e, now),
		})
	}
	return blocks
}

// NowOffsetPct places now on the window, or returns false when now lies
// outside it.
func NowOffsetPct(now time.Time, w Window) (float64, bool) {
	m := timeutil.MinutesOfDay(now)
	if m < w.From || m > w.To || w.To <= w.From {
		return 0, false
	}
	return pct(m-w.From, w.To-w.From), true
}

func blockState(e model.Event, now time.Time) BlockState {
	switch {
	case e.Contains(now):
		return BlockCurrent
	case e.EndTime.Before(now):
		return BlockPast
	default:
		return BlockFuture
	}
}

func pct(part, whole int) float64 {
	return float64(part) * 100 / float64(whole)
}
