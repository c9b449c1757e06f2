// Package services implements the presigned upload lifecycle: issuing upload
// grants, completing uploads when storage reports them and purging expired
// grants. The task table is the only shared state between the three, and
// every status change is a conditional write on a Pending row.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/docbox/internal/common"
	"github.com/dmitrijs2005/docbox/internal/dbx"
	"github.com/dmitrijs2005/docbox/internal/logging"
	sc "github.com/dmitrijs2005/docbox/internal/server/config"
	"github.com/dmitrijs2005/docbox/internal/server/events"
	"github.com/dmitrijs2005/docbox/internal/server/models"
	"github.com/dmitrijs2005/docbox/internal/server/processing"
	"github.com/dmitrijs2005/docbox/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/docbox/internal/server/search"
	"github.com/dmitrijs2005/docbox/internal/server/storage"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/multierr"
)

const (
	octetStream = "application/octet-stream"

	// DefaultDownloadExpiry applies when a download request names none.
	DefaultDownloadExpiry = 900 * time.Second
)

var (
	withTx = func(ctx context.Context, db dbx.DB, fn func(ctx context.Context, tx dbx.DBTX) error) error {
		return dbx.WithTx(ctx, db, nil, fn)
	}

	// newObjectID names uploaded objects; ULIDs are unique and time ordered.
	newObjectID = func() string {
		return ulid.Make().String()
	}
)

// CompleteOutcome reports what Complete did with a notification.
type CompleteOutcome int

const (
	// OutcomeIgnored: no Pending task matched, or another process won the race.
	OutcomeIgnored CompleteOutcome = iota
	OutcomeCompleted
	OutcomeFailed
)

func (o CompleteOutcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeFailed:
		return "failed"
	default:
		return "ignored"
	}
}

// TenantResources are the per-tenant handles the completion path needs.
type TenantResources struct {
	DB      dbx.DB
	Storage storage.Storage
	Search  search.Index
	Events  events.Publisher
}

type PresignedService struct {
	repomanager repomanager.RepositoryManager
	processor   processing.Processor
	log         logging.Logger

	maxFileSize int64
	expiry      time.Duration
	now         func() time.Time
}

func NewPresignedService(rm repomanager.RepositoryManager, processor processing.Processor, cfg *sc.Config, log logging.Logger) *PresignedService {
	return &PresignedService{
		repomanager: rm,
		processor:   processor,
		log:         log,
		maxFileSize: cfg.MaxFileSizeBytes,
		expiry:      cfg.PresignedUploadExpiry,
		now:         time.Now,
	}
}

type InitiateRequest struct {
	Scope               string
	FolderID            uuid.UUID
	Name                string
	Mime                string
	Size                int64
	ParentID            *uuid.UUID
	ProcessingConfig    json.RawMessage
	DisableMimeSniffing bool
	CreatedBy           *string
}

type InitiateResult struct {
	Task    *models.PresignedUploadTask
	Request *storage.PresignedRequest
}

func (s *PresignedService) validate(req InitiateRequest) error {
	switch {
	case !models.ValidScope(req.Scope):
		return common.Validation("invalid document box scope")
	case req.Name == "":
		return common.Validation("file name is required")
	case req.Size < 1:
		return common.Validation("file size must be at least 1 byte")
	case req.Size > s.maxFileSize:
		return common.Validation("file size is larger than the maximum allowed size (requested: %s, maximum: %s)",
			humanize.Bytes(uint64(req.Size)), humanize.Bytes(uint64(s.maxFileSize)))
	}
	return nil
}

// contentType resolves the stored mime type. A generic octet-stream is
// replaced by the type implied by the file extension unless sniffing is off.
func contentType(req InitiateRequest) string {
	m := req.Mime
	if m == "" {
		m = octetStream
	}
	if m == octetStream && !req.DisableMimeSniffing {
		if byExt := mime.TypeByExtension(filepath.Ext(req.Name)); byExt != "" {
			return byExt
		}
	}
	return m
}

// Initiate records a Pending task in db and returns the signed upload the
// client performs against st. No file bytes pass through this call.
func (s *PresignedService) Initiate(ctx context.Context, db dbx.DBTX, st storage.Storage, req InitiateRequest) (*InitiateResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	if _, err := s.repomanager.Folders(db).FindInScope(ctx, req.Scope, req.FolderID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound("unknown target folder")
		}
		return nil, common.Infrastructure(fmt.Errorf("load folder: %w", err))
	}

	now := s.now().UTC()
	task := &models.PresignedUploadTask{
		ID:               uuid.New(),
		DocumentBox:      req.Scope,
		FolderID:         req.FolderID,
		FileKey:          fmt.Sprintf("%s/%s", req.Scope, newObjectID()),
		Name:             req.Name,
		Mime:             contentType(req),
		Size:             req.Size,
		Status:           models.TaskPending,
		ProcessingConfig: req.ProcessingConfig,
		ParentID:         req.ParentID,
		CreatedBy:        req.CreatedBy,
		CreatedAt:        now,
		ExpiresAt:        now.Add(s.expiry),
	}

	if err := s.repomanager.PresignedTasks(db).Create(ctx, task); err != nil {
		return nil, common.Infrastructure(fmt.Errorf("create task: %w", err))
	}

	signed, err := st.PresignPut(ctx, task.FileKey, task.Size, task.Mime, s.expiry)
	if err != nil {
		// Nobody can upload to the key. If the delete fails too, the sweep
		// removes the row once it expires.
		if _, derr := s.repomanager.PresignedTasks(db).Delete(ctx, task.ID); derr != nil {
			s.log.Warn(ctx, "failed to delete unreachable task", "task_id", task.ID, "error", derr)
		}
		return nil, common.Infrastructure(fmt.Errorf("presign upload: %w", err))
	}

	s.log.Info(ctx, "presigned upload created", "task_id", task.ID, "file_key", task.FileKey, "size", task.Size)
	return &InitiateResult{Task: task, Request: signed}, nil
}

// Complete finalizes the Pending task uploading to key. Keys without a
// Pending task are ignored, which makes redelivered notifications no-ops.
func (s *PresignedService) Complete(ctx context.Context, res TenantResources, key string) (CompleteOutcome, error) {
	log := s.log.With("file_key", key)
	tasks := s.repomanager.PresignedTasks(res.DB)

	task, err := tasks.FindPendingByFileKey(ctx, key)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			log.Debug(ctx, "no pending task for object")
			return OutcomeIgnored, nil
		}
		return OutcomeIgnored, fmt.Errorf("find pending task: %w", err)
	}
	log = log.With("task_id", task.ID)

	if _, err := s.repomanager.Folders(res.DB).FindInScope(ctx, task.DocumentBox, task.FolderID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return s.fail(ctx, log, res.DB, task, "folder missing")
		}
		return OutcomeIgnored, fmt.Errorf("load folder: %w", err)
	}

	out, err := s.process(ctx, res.Storage, task)
	if err != nil {
		return s.fail(ctx, log, res.DB, task, err.Error())
	}

	fileID := uuid.New()
	now := s.now().UTC()

	generated, err := s.storeGenerated(ctx, res.Storage, task, fileID, out.Generated, now)
	if err != nil {
		s.deleteObjects(ctx, log, res.Storage, generated)
		return s.fail(ctx, log, res.DB, task, "failed to store generated files")
	}

	file := &models.File{
		ID:        fileID,
		Name:      task.Name,
		Mime:      task.Mime,
		FolderID:  task.FolderID,
		Hash:      out.Hash,
		Size:      out.Size,
		FileKey:   task.FileKey,
		ParentID:  task.ParentID,
		CreatedBy: task.CreatedBy,
		CreatedAt: now,
	}

	err = withTx(ctx, res.DB, func(ctx context.Context, tx dbx.DBTX) error {
		// The transition goes first so a lost race aborts before any insert.
		if err := s.repomanager.PresignedTasks(tx).MarkCompleted(ctx, task.ID, fileID); err != nil {
			return err
		}
		if err := s.repomanager.Files(tx).Create(ctx, file); err != nil {
			return err
		}
		for _, g := range generated {
			if err := s.repomanager.GeneratedFiles(tx).Create(ctx, g); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.deleteObjects(ctx, log, res.Storage, generated)
		if errors.Is(err, common.ErrNotPending) {
			log.Info(ctx, "task no longer pending, completion skipped")
			return OutcomeIgnored, nil
		}
		return OutcomeIgnored, fmt.Errorf("complete task: %w", err)
	}

	log.Info(ctx, "presigned upload completed", "file_id", fileID)
	s.announce(ctx, log, res, task.DocumentBox, file)
	return OutcomeCompleted, nil
}

func (s *PresignedService) process(ctx context.Context, st storage.Storage, task *models.PresignedUploadTask) (*processing.Output, error) {
	body, err := st.Get(ctx, task.FileKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	defer body.Close()

	return s.processor.Process(ctx, body, task.Mime, task.ProcessingConfig)
}

// storeGenerated uploads artifacts under {scope}/generated/. The returned
// records cover every object written, also on error, so callers can clean up.
func (s *PresignedService) storeGenerated(ctx context.Context, st storage.Storage, task *models.PresignedUploadTask,
	fileID uuid.UUID, items []processing.Generated, now time.Time) ([]*models.GeneratedFile, error) {
	stored := make([]*models.GeneratedFile, 0, len(items))
	for _, g := range items {
		rec := &models.GeneratedFile{
			ID:        uuid.New(),
			FileID:    fileID,
			Type:      g.Type,
			Mime:      g.Mime,
			Hash:      g.Hash,
			FileKey:   fmt.Sprintf("%s/generated/%s", task.DocumentBox, newObjectID()),
			CreatedAt: now,
		}
		if err := st.Put(ctx, rec.FileKey, rec.Mime, g.Bytes); err != nil {
			return stored, err
		}
		stored = append(stored, rec)
	}
	return stored, nil
}

func (s *PresignedService) deleteObjects(ctx context.Context, log logging.Logger, st storage.Storage, items []*models.GeneratedFile) {
	for _, g := range items {
		if err := st.Delete(ctx, g.FileKey); err != nil {
			log.Warn(ctx, "failed to delete generated file", "generated_key", g.FileKey, "error", err)
		}
	}
}

// fail moves task to Failed. The uploaded object stays for inspection.
func (s *PresignedService) fail(ctx context.Context, log logging.Logger, db dbx.DBTX, task *models.PresignedUploadTask, reason string) (CompleteOutcome, error) {
	if err := s.repomanager.PresignedTasks(db).MarkFailed(ctx, task.ID, reason); err != nil {
		if errors.Is(err, common.ErrNotPending) {
			log.Info(ctx, "task no longer pending, failure not recorded")
			return OutcomeIgnored, nil
		}
		return OutcomeIgnored, fmt.Errorf("mark task failed: %w", err)
	}
	log.Warn(ctx, "presigned upload failed", "reason", reason)
	return OutcomeFailed, nil
}

// announce indexes the new file and publishes FILE_CREATED. Both are best
// effort: the file already exists.
func (s *PresignedService) announce(ctx context.Context, log logging.Logger, res TenantResources, scope string, file *models.File) {
	if res.Search != nil {
		if err := res.Search.IndexDocument(ctx, search.FileDocument(scope, file)); err != nil {
			log.Error(ctx, "failed to index file", "file_id", file.ID, "error", err)
		}
	}
	if res.Events != nil {
		err := res.Events.Publish(ctx, events.Event{Type: events.FileCreated, DocumentBox: scope, Data: file})
		if err != nil {
			log.Error(ctx, "failed to publish file created event", "file_id", file.ID, "error", err)
		}
	}
}

// ErrPurgeIncomplete wraps the per-task failures of a purge that otherwise ran
// to the end. The rows it did delete stay deleted.
var ErrPurgeIncomplete = errors.New("expired task purge incomplete")

// PurgeExpired deletes every task that expired before now, in any status.
// Objects of tasks that were not Completed at deletion time are removed from
// st. Per-task failures are collected and do not stop the sweep; the count is
// the number of rows this call deleted.
func (s *PresignedService) PurgeExpired(ctx context.Context, db dbx.DBTX, st storage.Storage, now time.Time) (int, error) {
	tasks := s.repomanager.PresignedTasks(db)

	expired, err := tasks.FindExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("find expired tasks: %w", err)
	}

	var (
		deleted int
		errs    error
	)
	for _, task := range expired {
		// The status returned by the delete is current, unlike the one read above.
		status, err := tasks.Delete(ctx, task.ID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				continue
			}
			s.log.Error(ctx, "failed to delete expired task", "task_id", task.ID, "error", err)
			errs = multierr.Append(errs, fmt.Errorf("delete task %s: %w", task.ID, err))
			continue
		}
		deleted++

		if status == models.TaskCompleted {
			continue
		}
		if err := st.Delete(ctx, task.FileKey); err != nil {
			s.log.Warn(ctx, "failed to delete expired upload", "task_id", task.ID, "file_key", task.FileKey, "error", err)
			errs = multierr.Append(errs, fmt.Errorf("delete object %s: %w", task.FileKey, err))
		}
	}

	if deleted > 0 {
		s.log.Info(ctx, "expired presigned tasks purged", "count", deleted)
	}
	if errs != nil {
		return deleted, fmt.Errorf("%w: %w", ErrPurgeIncomplete, errs)
	}
	return deleted, nil
}

// StatusResult is the client view of a task.
type StatusResult struct {
	Status    models.TaskStatus
	File      *models.File
	Generated []*models.GeneratedFile
	Error     string
}

// Status reports task taskID of scope.
func (s *PresignedService) Status(ctx context.Context, db dbx.DBTX, scope string, taskID uuid.UUID) (*StatusResult, error) {
	task, err := s.repomanager.PresignedTasks(db).FindInScope(ctx, scope, taskID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound("unknown task")
		}
		return nil, common.Infrastructure(err)
	}

	result := &StatusResult{Status: task.Status}
	switch task.Status {
	case models.TaskFailed:
		if task.Error != nil {
			result.Error = *task.Error
		}
	case models.TaskCompleted:
		if task.FileID == nil {
			return nil, common.Infrastructure(fmt.Errorf("completed task %s has no file", task.ID))
		}
		file, err := s.repomanager.Files(db).FindByID(ctx, *task.FileID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, common.NotFound("file no longer exists")
			}
			return nil, common.Infrastructure(err)
		}
		generated, err := s.repomanager.GeneratedFiles(db).ListByFile(ctx, file.ID)
		if err != nil {
			return nil, common.Infrastructure(err)
		}
		result.File = file
		result.Generated = generated
	}
	return result, nil
}

// PresignDownload signs a GET for file fileID of scope. A non-positive
// expiry means DefaultDownloadExpiry.
func (s *PresignedService) PresignDownload(ctx context.Context, db dbx.DBTX, st storage.Storage, scope string, fileID uuid.UUID, expiry time.Duration) (*storage.PresignedRequest, error) {
	file, err := s.repomanager.Files(db).FindInScope(ctx, scope, fileID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound("unknown file")
		}
		return nil, common.Infrastructure(err)
	}
	if expiry <= 0 {
		expiry = DefaultDownloadExpiry
	}

	signed, err := st.PresignGet(ctx, file.FileKey, expiry)
	if err != nil {
		return nil, common.Infrastructure(err)
	}
	return signed, nil
}
