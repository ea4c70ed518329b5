package storyboard

import (
	"strings"
	"testing"
	"time"
)

func TestWriteVTT(t *testing.T) {
	layout, ok := PlanLayout(12*time.Second, 2, 1280, 720, 160, 10, 100)
	if !ok {
		t.Fatal("expected a layout")
	}

	var buf strings.Builder
	if err := WriteVTT(&buf, "sprite.jpg", layout); err != nil {
		t.Fatalf("WriteVTT: %v", err)
	}
	out := buf.String()

	if !strings.HasPrefix(out, "WEBVTT\n") {
		t.Fatalf("missing WEBVTT header:\n%s", out)
	}
	if got := strings.Count(out, "-->"); got != layout.FrameCount {
		t.Fatalf("cue count = %d, want %d", got, layout.FrameCount)
	}
	if !strings.Contains(out, "00:00:00.000 --> 00:00:06.000") {
		t.Fatalf("missing first cue range:\n%s", out)
	}
	if !strings.Contains(out, "00:00:06.000 --> 00:00:12.000") {
		t.Fatalf("missing second cue range:\n%s", out)
	}
	if !strings.Contains(out, "sprite.jpg#xywh=0,0,160,90") {
		t.Fatalf("missing first tile rect:\n%s", out)
	}
	if !strings.Contains(out, "sprite.jpg#xywh=160,0,160,90") {
		t.Fatalf("missing second tile rect:\n%s", out)
	}
}

func TestVTTTimestampFormatsHours(t *testing.T) {
	got := vttTimestamp(time.Hour + 23*time.Minute + 45*time.Second + 678*time.Millisecond)
	if got != "01:23:45.678" {
		t.Fatalf("vttTimestamp = %q", got)
	}
	if got := vttTimestamp(-time.Second); got != "00:00:00.000" {
		t.Fatalf("negative timestamp = %q, want clamp to zero", got)
	}
}
