// Package filesync owns the local mirror of the remote file collection and
// orchestrates every remote file operation against it.
package filesync

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/drivelink/drivelink/internal/api"
	"github.com/drivelink/drivelink/internal/constants"
	"github.com/drivelink/drivelink/internal/events"
	"github.com/drivelink/drivelink/internal/logging"
	"github.com/drivelink/drivelink/internal/models"
	"github.com/drivelink/drivelink/internal/session"
	"github.com/drivelink/drivelink/internal/util/tags"
)

// UploadRequest describes one file in an upload batch.
type UploadRequest struct {
	Name    string
	Size    int64
	Tags    []string
	Content io.Reader
}

// UploadResult reports the outcome of one file in a batch.
type UploadResult struct {
	TaskID string
	Name   string
	Record *models.FileRecord
	Err    error
}

// ListChangedEvent is published whenever the owned collection is replaced
// or respliced.
type ListChangedEvent struct {
	events.BaseEvent
	Files []models.FileRecord
	Query string
}

// Syncer is the single owner of the local file collection. All reads return
// copies; the slice is replaced wholesale by list reconciliation and
// respliced only by Reorder.
//
// Staleness is handled with two counters. Each List call takes a query
// generation; a response that is no longer the newest generation is
// discarded, so a slow earlier query can never overwrite a later one. The
// session epoch is snapshotted the same way so responses that complete
// after a logout are dropped instead of leaking another session's listing.
type Syncer struct {
	client  *api.Client
	session *session.Manager
	bus     *events.EventBus
	logger  *logging.Logger

	semaphore chan struct{}

	mu       sync.RWMutex
	files    []models.FileRecord
	query    string
	queryGen uint64
}

// NewSyncer creates a Syncer. maxConcurrent bounds parallel transfers and
// is clamped to the supported range.
func NewSyncer(client *api.Client, sess *session.Manager, bus *events.EventBus, logger *logging.Logger, maxConcurrent int) *Syncer {
	if maxConcurrent < constants.MinMaxConcurrent {
		maxConcurrent = constants.DefaultMaxConcurrent
	}
	if maxConcurrent > constants.MaxMaxConcurrent {
		maxConcurrent = constants.MaxMaxConcurrent
	}
	return &Syncer{
		client:    client,
		session:   sess,
		bus:       bus,
		logger:    logger,
		semaphore: make(chan struct{}, maxConcurrent),
	}
}

// Files returns a copy of the current collection.
func (s *Syncer) Files() []models.FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.files)
}

// Query returns the query string of the last applied listing.
func (s *Syncer) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// List fetches the remote collection filtered by query and replaces the
// local one. Last query wins: when calls overlap, only the response of the
// newest call is applied. The returned slice reflects what was fetched even
// when a newer call made the result stale.
func (s *Syncer) List(ctx context.Context, query string) ([]models.FileRecord, error) {
	s.mu.Lock()
	s.queryGen++
	gen := s.queryGen
	s.mu.Unlock()
	epoch := s.session.Epoch()

	records, err := s.client.ListFiles(ctx, query)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].Tags == nil {
			records[i].Tags = []string{}
		}
	}

	s.mu.Lock()
	if gen != s.queryGen || epoch != s.session.Epoch() {
		s.mu.Unlock()
		s.logger.Debug().Str("query", query).Msg("discarding stale list response")
		return records, nil
	}
	s.files = records
	s.query = query
	snapshot := cloneRecords(s.files)
	s.mu.Unlock()

	s.publishListChanged(snapshot, query)
	return cloneRecords(records), nil
}

// UploadBatch uploads the given files concurrently, bounded by the
// semaphore. Each file is an independent unit: it gets its own task ID,
// reports its own lifecycle events, and a failure never aborts siblings.
// After every upload settles the collection is refreshed exactly once with
// the current query. Results come back in request order.
func (s *Syncer) UploadBatch(ctx context.Context, requests []UploadRequest) []UploadResult {
	if len(requests) == 0 {
		return nil
	}

	results := make([]UploadResult, len(requests))
	var wg sync.WaitGroup

	for i, req := range requests {
		wg.Add(1)
		go func(i int, req UploadRequest) {
			defer wg.Done()
			results[i] = s.uploadOne(ctx, req)
		}(i, req)
	}
	wg.Wait()

	if _, err := s.List(ctx, s.Query()); err != nil {
		s.logger.Warn().Err(err).Msg("post-upload list refresh failed")
	}
	return results
}

// uploadOne runs a single upload under a semaphore slot and reports its
// lifecycle on the bus.
func (s *Syncer) uploadOne(ctx context.Context, req UploadRequest) UploadResult {
	taskID := uuid.NewString()
	result := UploadResult{TaskID: taskID, Name: req.Name}

	s.publishTransfer(events.EventTransferStarted, "upload", taskID, req.Name, req.Size, 0, nil)

	select {
	case s.semaphore <- struct{}{}:
	case <-ctx.Done():
		result.Err = ctx.Err()
		s.publishTransfer(events.EventTransferFailed, "upload", taskID, req.Name, req.Size, 0, result.Err)
		return result
	}
	defer func() { <-s.semaphore }()

	progress := func(fraction float64) {
		s.publishTransfer(events.EventTransferProgress, "upload", taskID, req.Name, req.Size, fraction, nil)
	}

	record, err := s.client.UploadFile(ctx, req.Name, req.Content, tags.Normalize(req.Tags), progress)
	if err != nil {
		result.Err = err
		s.logger.Debug().Err(err).Str("name", req.Name).Msg("upload failed")
		s.publishTransfer(events.EventTransferFailed, "upload", taskID, req.Name, req.Size, 0, err)
		s.notify(events.NoticeError, fmt.Sprintf("Failed to upload %s: %s", req.Name, err))
		return result
	}

	result.Record = record
	s.publishTransfer(events.EventTransferCompleted, "upload", taskID, req.Name, req.Size, 1, nil)
	s.notify(events.NoticeSuccess, fmt.Sprintf("Uploaded %s", req.Name))
	return result
}

// Delete removes a file remotely, then refreshes the collection. The caller
// has already confirmed the deletion; a failure leaves the local collection
// untouched.
func (s *Syncer) Delete(ctx context.Context, fileID string) error {
	if err := s.client.DeleteFile(ctx, fileID); err != nil {
		s.notify(events.NoticeError, fmt.Sprintf("Failed to delete file: %s", err))
		return err
	}
	s.notify(events.NoticeSuccess, "File deleted")
	if _, err := s.List(ctx, s.Query()); err != nil {
		s.logger.Warn().Err(err).Msg("post-delete list refresh failed")
	}
	return nil
}

// Download streams a file into dst, reporting progress on the bus. There is
// no partial-download recovery: a mid-stream failure surfaces as an error
// and whatever dst received stays as-is.
func (s *Syncer) Download(ctx context.Context, fileID, name string, dst io.Writer) error {
	taskID := uuid.NewString()

	body, size, err := s.client.DownloadFile(ctx, fileID)
	if err != nil {
		s.publishTransfer(events.EventTransferFailed, "download", taskID, name, 0, 0, err)
		s.notify(events.NoticeError, fmt.Sprintf("Failed to download %s: %s", name, err))
		return err
	}
	defer body.Close()

	s.publishTransfer(events.EventTransferStarted, "download", taskID, name, size, 0, nil)

	written, err := io.Copy(dst, s.progressCopier(body, taskID, name, size))
	if err != nil {
		s.publishTransfer(events.EventTransferFailed, "download", taskID, name, size, 0, err)
		s.notify(events.NoticeError, fmt.Sprintf("Failed to download %s: %s", name, err))
		return fmt.Errorf("download of %s failed after %d bytes: %w", name, written, err)
	}

	s.publishTransfer(events.EventTransferCompleted, "download", taskID, name, size, 1, nil)
	s.notify(events.NoticeSuccess, fmt.Sprintf("Downloaded %s", name))
	return nil
}

// UpdateTags replaces a file's tags remotely. Only a confirmed success
// refreshes the collection, so a failure leaves the previously displayed
// tags in place.
func (s *Syncer) UpdateTags(ctx context.Context, fileID string, newTags []string) error {
	if err := s.client.UpdateFileTags(ctx, fileID, tags.Normalize(newTags)); err != nil {
		s.notify(events.NoticeError, fmt.Sprintf("Failed to update tags: %s", err))
		return err
	}
	s.notify(events.NoticeSuccess, "Tags updated")
	if _, err := s.List(ctx, s.Query()); err != nil {
		s.logger.Warn().Err(err).Msg("post-update list refresh failed")
	}
	return nil
}

// Rename renames a file remotely and refreshes the collection on success.
func (s *Syncer) Rename(ctx context.Context, fileID, newName string) error {
	if _, err := s.client.RenameFile(ctx, fileID, newName); err != nil {
		s.notify(events.NoticeError, fmt.Sprintf("Failed to rename file: %s", err))
		return err
	}
	s.notify(events.NoticeSuccess, fmt.Sprintf("Renamed to %s", newName))
	if _, err := s.List(ctx, s.Query()); err != nil {
		s.logger.Warn().Err(err).Msg("post-rename list refresh failed")
	}
	return nil
}

// ShareURL returns the public view link for a file.
func (s *Syncer) ShareURL(fileID string) string {
	return s.client.ShareURL(fileID)
}

// Reorder moves the record at src to dst, applied locally and immediately.
// Ordering is presentation state for this client session only: the server
// has no order field and the next List discards the arrangement. Moves that
// change nothing (src == dst, or either index out of range) are no-ops.
func (s *Syncer) Reorder(src, dst int) bool {
	s.mu.Lock()
	if src == dst || src < 0 || dst < 0 || src >= len(s.files) || dst >= len(s.files) {
		s.mu.Unlock()
		return false
	}

	moved := s.files[src]
	s.files = append(s.files[:src], s.files[src+1:]...)
	rest := append(s.files[:dst:dst], moved)
	s.files = append(rest, s.files[dst:]...)
	snapshot := cloneRecords(s.files)
	query := s.query
	s.mu.Unlock()

	s.publishListChanged(snapshot, query)
	return true
}

func (s *Syncer) publishListChanged(files []models.FileRecord, query string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(&ListChangedEvent{
		BaseEvent: events.BaseEvent{EventType: events.EventFileListChanged, Time: time.Now()},
		Files:     files,
		Query:     query,
	})
}

func (s *Syncer) publishTransfer(eventType events.EventType, taskType, taskID, name string, size int64, progress float64, err error) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(&events.TransferEvent{
		BaseEvent: events.BaseEvent{EventType: eventType, Time: time.Now()},
		TaskID:    taskID,
		TaskType:  taskType,
		Name:      name,
		Size:      size,
		Progress:  progress,
		Error:     err,
	})
}

func (s *Syncer) notify(level events.NoticeLevel, message string) {
	if s.bus != nil {
		s.bus.PublishNotice(level, message)
	}
}

// progressCopier wraps r so reads report cumulative progress for a download.
func (s *Syncer) progressCopier(r io.Reader, taskID, name string, total int64) io.Reader {
	return &downloadProgressReader{
		r:       r,
		total:   total,
		publish: func(fraction float64) { s.publishTransfer(events.EventTransferProgress, "download", taskID, name, total, fraction, nil) },
	}
}

type downloadProgressReader struct {
	r       io.Reader
	total   int64
	read    int64
	publish func(float64)
}

func (d *downloadProgressReader) Read(b []byte) (int, error) {
	n, err := d.r.Read(b)
	if n > 0 && d.total > 0 {
		d.read += int64(n)
		d.publish(float64(d.read) / float64(d.total))
	}
	return n, err
}

func cloneRecords(records []models.FileRecord) []models.FileRecord {
	out := make([]models.FileRecord, len(records))
	for i := range records {
		out[i] = records[i].Clone()
	}
	return out
}
