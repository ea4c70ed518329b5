package storyboard

import (
	"bufio"
	"fmt"
	"io"
	"time"
)

// WriteVTT writes the WebVTT cue file mapping each time range to its
// sub-rectangle of the sprite image. spriteRef is the cue target,
// typically the sprite's file name relative to the manifest.
func WriteVTT(w io.Writer, spriteRef string, layout Layout) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprint(bw, "WEBVTT\n"); err != nil {
		return err
	}
	for i := 0; i < layout.FrameCount; i++ {
		start, end := layout.CueRange(i)
		x, y, width, height := layout.CueRect(i)
		if _, err := fmt.Fprintf(bw, "\n%s --> %s\n%s#xywh=%d,%d,%d,%d\n",
			vttTimestamp(start), vttTimestamp(end), spriteRef, x, y, width, height); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func vttTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d.%03d", ms/3600000, ms/60000%60, ms/1000%60, ms%1000)
}
