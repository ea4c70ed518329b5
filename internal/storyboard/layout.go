package storyboard

import (
	"math"
	"time"
)

// Layout describes the sprite-sheet geometry for one media item. All
// geometry is derived before ffmpeg runs so the cue file and the tile
// filter always agree.
type Layout struct {
	TileWidth  int
	TileHeight int
	Columns    int
	Rows       int
	FrameCount int
	Interval   time.Duration
	Duration   time.Duration
}

// PosterTimestamp picks the poster frame time: 30 seconds in, or 30% of
// the duration for shorter media, never earlier than 0.1 seconds.
func PosterTimestamp(duration time.Duration) time.Duration {
	ts := 30 * time.Second
	if duration < 30*time.Second {
		ts = time.Duration(float64(duration) * 0.3)
	}
	if ts < 100*time.Millisecond {
		ts = 100 * time.Millisecond
	}
	return ts
}

// PlanLayout computes the sprite geometry for a source of the given
// dimensions. One frame per segment up to capacity; when capped, frames
// are spread uniformly so the cue ranges still cover the full duration.
// Tile height follows the source aspect ratio at the fixed tile width,
// rounded to an even pixel count for the encoder.
func PlanLayout(duration time.Duration, segmentCount, srcWidth, srcHeight, tileWidth, columns, capacity int) (Layout, bool) {
	if duration <= 0 || segmentCount <= 0 || srcWidth <= 0 || srcHeight <= 0 || columns <= 0 || capacity <= 0 {
		return Layout{}, false
	}
	frames := segmentCount
	if frames > capacity {
		frames = capacity
	}
	height := int(math.Round(float64(tileWidth)*float64(srcHeight)/float64(srcWidth)/2)) * 2
	if height < 2 {
		height = 2
	}
	rows := (frames + columns - 1) / columns
	return Layout{
		TileWidth:  tileWidth,
		TileHeight: height,
		Columns:    columns,
		Rows:       rows,
		FrameCount: frames,
		Interval:   duration / time.Duration(frames),
		Duration:   duration,
	}, true
}

// CueRange returns the [start, end) time range covered by frame i. The
// last frame's range is stretched to the exact media duration so cues
// stay contiguous and gap-free despite interval truncation.
func (l Layout) CueRange(i int) (time.Duration, time.Duration) {
	start := time.Duration(i) * l.Interval
	end := start + l.Interval
	if i == l.FrameCount-1 {
		end = l.Duration
	}
	return start, end
}

// CueRect returns the pixel rectangle of frame i within the sprite.
func (l Layout) CueRect(i int) (x, y, w, h int) {
	return (i % l.Columns) * l.TileWidth, (i / l.Columns) * l.TileHeight, l.TileWidth, l.TileHeight
}
