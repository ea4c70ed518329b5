package media_test

import (
	"testing"

	"riptide/internal/media"
)

func TestProcessingStageAdvances(t *testing.T) {
	order := []media.ProcessingStage{
		media.StageUploaded,
		media.StageTranscoding,
		media.StageTranscoded,
		media.StageComplete,
	}
	for i, from := range order {
		for j, to := range order {
			want := j > i
			if got := from.Advances(to); got != want {
				t.Errorf("%s.Advances(%s) = %v, want %v", from, to, got, want)
			}
		}
	}
	if media.StageComplete.Advances("bogus") {
		t.Error("unknown stage must never be an advance")
	}
}

func TestParseProcessingStage(t *testing.T) {
	stage, ok := media.ParseProcessingStage(" Transcoding ")
	if !ok || stage != media.StageTranscoding {
		t.Fatalf("ParseProcessingStage = (%s, %v)", stage, ok)
	}
	if _, ok := media.ParseProcessingStage("encoding"); ok {
		t.Fatal("unknown stage must not parse")
	}
}

func TestStreamingPrefix(t *testing.T) {
	asset := media.MediaAsset{ID: "m-1", OrgID: "o-1"}
	want := "orgs/o-1/uploads/m-1/streaming/"
	if got := asset.StreamingPrefix(); got != want {
		t.Fatalf("StreamingPrefix = %q, want %q", got, want)
	}
}

func TestJobStateTerminal(t *testing.T) {
	cases := map[media.JobState]bool{
		media.JobQueued:    false,
		media.JobRunning:   false,
		media.JobSucceeded: true,
		media.JobFailed:    true,
	}
	for state, want := range cases {
		if got := state.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", state, got, want)
		}
	}
}
