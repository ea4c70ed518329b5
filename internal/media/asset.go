package media

import (
	"fmt"
	"strings"
)

// ProcessingStage is the asset-level coarse progress marker, distinct from the
// job's fine-grained percentage.
type ProcessingStage string

const (
	StageUploaded    ProcessingStage = "uploaded"
	StageTranscoding ProcessingStage = "transcoding"
	StageTranscoded  ProcessingStage = "transcoded"
	StageComplete    ProcessingStage = "complete"
)

var stageOrder = map[ProcessingStage]int{
	StageUploaded:    0,
	StageTranscoding: 1,
	StageTranscoded:  2,
	StageComplete:    3,
}

// ParseProcessingStage converts a string into a known ProcessingStage.
func ParseProcessingStage(value string) (ProcessingStage, bool) {
	normalized := ProcessingStage(strings.ToLower(strings.TrimSpace(value)))
	_, ok := stageOrder[normalized]
	return normalized, ok
}

// Advances reports whether moving from s to next is a forward transition.
// The worker never rolls processing_stage back.
func (s ProcessingStage) Advances(next ProcessingStage) bool {
	from, okFrom := stageOrder[s]
	to, okTo := stageOrder[next]
	return okFrom && okTo && to > from
}

// AssetStatus values the worker writes.
const (
	AssetStatusReady = "ready"
)

// MediaAsset is the source/target video artifact. Created by the ingestion
// path; this worker only mutates it during job execution and never deletes it.
type MediaAsset struct {
	ID              string
	OrgID           string
	Bucket          string
	StoragePath     string
	FileName        string
	ProcessingStage ProcessingStage
	Status          string
	StreamingReady  bool

	ThumbnailPath         string
	ThumbnailSpritePath   string
	ThumbnailVTTPath      string
	ThumbnailFrameCount   int
	ThumbnailIntervalSecs float64
	ThumbnailWidth        int
	ThumbnailHeight       int

	TranscodeProgress int
}

// SourceKey is the object key of the uploaded input.
func (a *MediaAsset) SourceKey() string {
	return a.StoragePath
}

// StreamingPrefix is the deterministic per-organization/per-asset key prefix
// all streaming outputs publish under.
func (a *MediaAsset) StreamingPrefix() string {
	return StreamingPrefix(a.OrgID, a.ID)
}

// StreamingPrefix builds the canonical output prefix for an asset.
func StreamingPrefix(orgID, mediaID string) string {
	return fmt.Sprintf("orgs/%s/uploads/%s/streaming/", orgID, mediaID)
}

// AssetUpdate is a partial update applied to an asset record; nil fields are
// left untouched.
type AssetUpdate struct {
	ProcessingStage *ProcessingStage
	Status          *string
	StreamingReady  *bool

	ThumbnailPath         *string
	ThumbnailSpritePath   *string
	ThumbnailVTTPath      *string
	ThumbnailFrameCount   *int
	ThumbnailIntervalSecs *float64
	ThumbnailWidth        *int
	ThumbnailHeight       *int

	TranscodeProgress *int
}
