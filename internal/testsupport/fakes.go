package testsupport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"riptide/internal/media"
	"riptide/internal/services"
)

// FakeStore is an in-memory record store that applies partial updates the
// same way the SQL implementation does and remembers everything it was told,
// so tests can assert on persistence order.
type FakeStore struct {
	mu     sync.Mutex
	jobs   map[string]*media.Job
	assets map[string]*media.MediaAsset

	// Mutation history, in application order.
	JobUpdates   []media.JobUpdate
	AssetUpdates []media.AssetUpdate

	// StageWrites records every processing_stage value written.
	StageWrites []media.ProcessingStage
	// ProgressWrites records every transcode_progress value written.
	ProgressWrites []int

	// Error hooks. When set, the hook decides per call whether the write
	// fails; the update is not applied on failure.
	UpdateJobErr   func(id string, update media.JobUpdate) error
	UpdateAssetErr func(id string, update media.AssetUpdate) error
}

// NewFakeStore returns an empty FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		jobs:   make(map[string]*media.Job),
		assets: make(map[string]*media.MediaAsset),
	}
}

// AddJob seeds a job record.
func (s *FakeStore) AddJob(job media.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := job
	s.jobs[job.ID] = &copied
}

// AddAsset seeds an asset record.
func (s *FakeStore) AddAsset(asset media.MediaAsset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := asset
	s.assets[asset.ID] = &copied
}

// Job returns a copy of the stored job.
func (s *FakeStore) Job(id string) (media.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return media.Job{}, false
	}
	return *job, true
}

// Asset returns a copy of the stored asset.
func (s *FakeStore) Asset(id string) (media.MediaAsset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	asset, ok := s.assets[id]
	if !ok {
		return media.MediaAsset{}, false
	}
	return *asset, true
}

func (s *FakeStore) GetJob(ctx context.Context, id string) (*media.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "store", "get job", id, nil)
	}
	copied := *job
	return &copied, nil
}

func (s *FakeStore) UpdateJob(ctx context.Context, id string, update media.JobUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UpdateJobErr != nil {
		if err := s.UpdateJobErr(id, update); err != nil {
			return err
		}
	}
	job, ok := s.jobs[id]
	if !ok {
		return services.Wrap(services.ErrNotFound, "store", "update job", id, nil)
	}
	if update.State != nil {
		job.State = *update.State
	}
	if update.Attempt != nil {
		job.Attempt = *update.Attempt
	}
	if update.Progress != nil {
		job.Progress = *update.Progress
	}
	if update.StartedAt != nil {
		at := *update.StartedAt
		job.StartedAt = &at
	}
	if update.FinishedAt != nil {
		at := *update.FinishedAt
		job.FinishedAt = &at
	}
	if update.ErrorCode != nil {
		job.ErrorCode = *update.ErrorCode
	}
	if update.ErrorMessage != nil {
		job.ErrorMessage = *update.ErrorMessage
	}
	if update.CorrelationID != nil {
		job.CorrelationID = *update.CorrelationID
	}
	s.JobUpdates = append(s.JobUpdates, update)
	return nil
}

func (s *FakeStore) GetAsset(ctx context.Context, id, orgID string) (*media.MediaAsset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	asset, ok := s.assets[id]
	if !ok || asset.OrgID != orgID {
		return nil, services.Wrap(services.ErrNotFound, "store", "get asset", id, nil)
	}
	copied := *asset
	return &copied, nil
}

func (s *FakeStore) UpdateAsset(ctx context.Context, id, orgID string, update media.AssetUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UpdateAssetErr != nil {
		if err := s.UpdateAssetErr(id, update); err != nil {
			return err
		}
	}
	asset, ok := s.assets[id]
	if !ok || asset.OrgID != orgID {
		return services.Wrap(services.ErrNotFound, "store", "update asset", id, nil)
	}
	if update.ProcessingStage != nil {
		asset.ProcessingStage = *update.ProcessingStage
		s.StageWrites = append(s.StageWrites, *update.ProcessingStage)
	}
	if update.Status != nil {
		asset.Status = *update.Status
	}
	if update.StreamingReady != nil {
		asset.StreamingReady = *update.StreamingReady
	}
	if update.ThumbnailPath != nil {
		asset.ThumbnailPath = *update.ThumbnailPath
	}
	if update.ThumbnailSpritePath != nil {
		asset.ThumbnailSpritePath = *update.ThumbnailSpritePath
	}
	if update.ThumbnailVTTPath != nil {
		asset.ThumbnailVTTPath = *update.ThumbnailVTTPath
	}
	if update.ThumbnailFrameCount != nil {
		asset.ThumbnailFrameCount = *update.ThumbnailFrameCount
	}
	if update.ThumbnailIntervalSecs != nil {
		asset.ThumbnailIntervalSecs = *update.ThumbnailIntervalSecs
	}
	if update.ThumbnailWidth != nil {
		asset.ThumbnailWidth = *update.ThumbnailWidth
	}
	if update.ThumbnailHeight != nil {
		asset.ThumbnailHeight = *update.ThumbnailHeight
	}
	if update.TranscodeProgress != nil {
		asset.TranscodeProgress = *update.TranscodeProgress
		s.ProgressWrites = append(s.ProgressWrites, *update.TranscodeProgress)
	}
	s.AssetUpdates = append(s.AssetUpdates, update)
	return nil
}

// FakeObjectStore keeps objects in memory keyed by bucket/key and copies
// them through the filesystem like the real store.
type FakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	// UploadErrFor fails uploads whose file name matches.
	UploadErrFor string
	// DownloadErr fails every download when set.
	DownloadErr error

	UploadedKeys []string
}

// NewFakeObjectStore returns an empty FakeObjectStore.
func NewFakeObjectStore() *FakeObjectStore {
	return &FakeObjectStore{objects: make(map[string][]byte)}
}

// Put seeds an object.
func (s *FakeObjectStore) Put(bucket, key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+key] = append([]byte(nil), data...)
}

// Object returns a stored object's bytes.
func (s *FakeObjectStore) Object(bucket, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[bucket+"/"+key]
	return data, ok
}

func (s *FakeObjectStore) Download(ctx context.Context, bucket, key, localPath string) error {
	s.mu.Lock()
	data, ok := s.objects[bucket+"/"+key]
	err := s.DownloadErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("object %s/%s not found", bucket, key)
	}
	if mkErr := os.MkdirAll(filepath.Dir(localPath), 0o755); mkErr != nil {
		return mkErr
	}
	return os.WriteFile(localPath, data, 0o644)
}

func (s *FakeObjectStore) Upload(ctx context.Context, localPath, bucket, key string) error {
	s.mu.Lock()
	failFor := s.UploadErrFor
	s.mu.Unlock()
	if failFor != "" && filepath.Base(key) == failFor {
		return fmt.Errorf("upload %s/%s: injected failure", bucket, key)
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+key] = data
	s.UploadedKeys = append(s.UploadedKeys, key)
	return nil
}
