package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"flowLedger/client/backend"
	"flowLedger/client/cache"
	"flowLedger/client/converter"
	"flowLedger/client/dto"
	"flowLedger/client/kafka"
	"flowLedger/client/metrics"
	"flowLedger/client/middleware"
	"flowLedger/client/models"
	"flowLedger/client/poller"
	"flowLedger/client/repository"
	"flowLedger/client/validation"
)

var (
	// ErrMissingResult is returned with the record when a task reports
	// success but carries no result payload.
	ErrMissingResult   = errors.New("task succeeded without a result")
	ErrHistoryDisabled = errors.New("import history is not configured")
)

// TaskAPI is the part of the backend client the importer drives.
type TaskAPI interface {
	backend.StatusReader
	CreateImportTask(ctx context.Context, kind models.ImportKind, filename string, body io.Reader) (*dto.TaskHandle, error)
}

// Upload is one local file to import.
type Upload struct {
	Filename string
	Size     int64
	Body     io.ReadSeeker
}

// Options wires the optional integrations. Nil fields are skipped.
type Options struct {
	Poller      poller.Config
	MaxFileSize int64
	Receipts    *converter.ReceiptConverter
	Repo        repository.Repository
	Cache       *cache.StatusCache
	Producer    kafka.Producer
	Metrics     *metrics.Metrics
}

// Importer uploads files, waits for the resulting backend task and keeps the
// local history, status cache and event stream in step with what it observes.
type Importer struct {
	api         TaskAPI
	poll        poller.Config
	maxFileSize int64
	receipts    *converter.ReceiptConverter
	repo        repository.Repository
	cache       *cache.StatusCache
	producer    kafka.Producer
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

func NewImporter(api TaskAPI, opts Options, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Poller.Retryable == nil {
		opts.Poller.Retryable = backend.IsTransient
	}
	return &Importer{
		api:         api,
		poll:        opts.Poller,
		maxFileSize: opts.MaxFileSize,
		receipts:    opts.Receipts,
		repo:        opts.Repo,
		cache:       opts.Cache,
		producer:    opts.Producer,
		metrics:     opts.Metrics,
		logger:      logger,
	}
}

func (s *Importer) ImportReceipt(ctx context.Context, up Upload) (*dto.TaskStatus[dto.ReceiptRecognition], error) {
	return runImport[dto.ReceiptRecognition](ctx, s, models.ImportReceipt, up)
}

func (s *Importer) ImportDeposit(ctx context.Context, up Upload) (*dto.TaskStatus[dto.DepositImportResult], error) {
	return runImport[dto.DepositImportResult](ctx, s, models.ImportDeposit, up)
}

func (s *Importer) ImportExchangeRates(ctx context.Context, up Upload) (*dto.TaskStatus[dto.ExchangeRateImportResult], error) {
	return runImport[dto.ExchangeRateImportResult](ctx, s, models.ImportExchangeRate, up)
}

// Import runs one upload of any kind and reports the outcome without the
// typed payload. It is what batch imports and the CLI use.
func (s *Importer) Import(ctx context.Context, kind models.ImportKind, up Upload) (*Result, error) {
	switch kind {
	case models.ImportReceipt:
		rec, err := s.ImportReceipt(ctx, up)
		return newResult(kind, up.Filename, rec, err), err
	case models.ImportDeposit:
		rec, err := s.ImportDeposit(ctx, up)
		return newResult(kind, up.Filename, rec, err), err
	case models.ImportExchangeRate:
		rec, err := s.ImportExchangeRates(ctx, up)
		return newResult(kind, up.Filename, rec, err), err
	default:
		return nil, fmt.Errorf("unknown import kind %q", kind)
	}
}

// Wait polls an already created task. The kind is taken from the history
// when the task was submitted from here.
func (s *Importer) Wait(ctx context.Context, taskID string) (*dto.TaskStatus[json.RawMessage], error) {
	kind := models.ImportKind("unknown")
	var run *models.ImportRun

	if s.repo != nil {
		found, err := s.repo.GetRunByTaskID(ctx, taskID)
		switch {
		case err == nil:
			run = found
			kind = found.Kind
		case !errors.Is(err, repository.ErrRunNotFound):
			s.logger.Warn("Failed to look up import run", zap.String("task_id", taskID), zap.Error(err))
		}
	}

	return waitTask[json.RawMessage](ctx, s, kind, run, taskID)
}

// Status reads a task's current state once. With cached set, the last
// snapshot a poll stored is returned when there is one.
func (s *Importer) Status(ctx context.Context, taskID string, cached bool) (*dto.TaskStatus[json.RawMessage], error) {
	if cached && s.cache != nil {
		rec, err := s.cache.Get(ctx, taskID)
		if err == nil {
			return rec, nil
		}
		s.logger.Debug("Status cache miss", zap.String("task_id", taskID), zap.Error(err))
	}

	var rec dto.TaskStatus[json.RawMessage]
	if err := s.api.GetTaskStatus(ctx, taskID, &rec); err != nil {
		return nil, err
	}

	s.cacheSnapshot(ctx, taskID, &rec)
	return &rec, nil
}

func (s *Importer) History(ctx context.Context, limit int) ([]*models.ImportRun, error) {
	if s.repo == nil {
		return nil, ErrHistoryDisabled
	}
	return s.repo.ListRuns(ctx, limit)
}

func runImport[T any](ctx context.Context, s *Importer, kind models.ImportKind, up Upload) (*dto.TaskStatus[T], error) {
	ctx, traceID := middleware.EnsureTraceID(ctx)
	logger := s.logger.With(
		zap.String("trace_id", traceID),
		zap.String("kind", string(kind)),
		zap.String("filename", up.Filename),
	)

	filename, body, err := s.prepare(kind, up)
	if err != nil {
		logger.Warn("Upload rejected", zap.Error(err))
		return nil, err
	}

	run := s.recordRun(ctx, logger, &models.ImportRun{
		TraceID:  traceID,
		Kind:     kind,
		Filename: up.Filename,
		Size:     up.Size,
		Status:   models.StatusQueued,
	})

	handle, err := s.api.CreateImportTask(ctx, kind, filename, body)
	if err != nil {
		s.finishRun(ctx, run, models.StatusFailed, err.Error())
		logger.Error("Failed to create import task", zap.Error(err))
		return nil, fmt.Errorf("create %s import: %w", kind, err)
	}

	logger.Info("Import task created", zap.String("task_id", handle.TaskID))

	if run != nil {
		run.TaskID = handle.TaskID
		if err := s.repo.SetTaskID(ctx, run.ID, handle.TaskID); err != nil {
			logger.Warn("Failed to attach task id", zap.Error(err))
		}
	}

	rec, err := waitTask[T](ctx, s, kind, run, handle.TaskID)
	if err != nil {
		return nil, err
	}

	if rec.Result == nil {
		return rec, fmt.Errorf("task %s: %w", rec.TaskID, ErrMissingResult)
	}

	return rec, nil
}

func waitTask[T any](ctx context.Context, s *Importer, kind models.ImportKind, run *models.ImportRun, taskID string) (*dto.TaskStatus[T], error) {
	filename := ""
	if run != nil {
		filename = run.Filename
	}

	var last models.TaskStatus
	p := poller.New[T](s.poll, s.logger.With(zap.String("kind", string(kind)))).
		WithObserver(func(rec *dto.TaskStatus[T]) {
			s.metrics.ObservePoll(kind, rec.Status)
			s.cacheSnapshot(ctx, taskID, rec)

			if rec.Status != last {
				last = rec.Status
				s.publish(ctx, kind, filename, rec.Status, rec.Progress, rec.ErrorMessage(), taskID)
			}
		})

	start := time.Now()
	s.metrics.StartWait(kind)

	rec, err := p.Wait(ctx, taskID, backend.StatusFetcher[T](s.api))

	var failed *poller.FailedError[T]
	switch {
	case err == nil:
		s.metrics.FinishWait(kind, metrics.OutcomeSucceeded, time.Since(start))
		s.finishRun(ctx, run, models.StatusSucceeded, "")
	case errors.As(err, &failed):
		s.metrics.FinishWait(kind, metrics.OutcomeFailed, time.Since(start))
		s.finishRun(ctx, run, models.StatusFailed, failed.Message())
	case errors.Is(err, poller.ErrTaskTimeout):
		s.metrics.FinishWait(kind, metrics.OutcomeTimeout, time.Since(start))
		if last != "" {
			s.finishRun(ctx, run, last, err.Error())
		}
	default:
		s.metrics.FinishWait(kind, metrics.OutcomeError, time.Since(start))
	}

	return rec, err
}

// prepare validates the upload and returns the name and body to send.
// Receipt images are downscaled when a converter is configured.
func (s *Importer) prepare(kind models.ImportKind, up Upload) (string, io.Reader, error) {
	if up.Body == nil {
		return "", nil, fmt.Errorf("%s: %w", up.Filename, validation.ErrEmptyFile)
	}

	fileType, err := validation.ValidateUpload(kind, up.Filename, up.Size, s.maxFileSize, up.Body)
	if err != nil {
		return "", nil, err
	}

	if kind != models.ImportReceipt || s.receipts == nil || !validation.IsAllowedImageType(fileType) {
		return up.Filename, up.Body, nil
	}

	data, err := s.receipts.Prepare(up.Body)
	if err != nil {
		return "", nil, fmt.Errorf("prepare receipt %s: %w", up.Filename, err)
	}

	name := strings.TrimSuffix(up.Filename, filepath.Ext(up.Filename)) + ".jpg"
	return name, bytes.NewReader(data), nil
}

// recordRun stores run in the history and returns it, or nil when there is
// no history to write to.
func (s *Importer) recordRun(ctx context.Context, logger *zap.Logger, run *models.ImportRun) *models.ImportRun {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.CreateRun(ctx, run); err != nil {
		logger.Warn("Failed to record import run", zap.Error(err))
		return nil
	}
	return run
}

func (s *Importer) finishRun(ctx context.Context, run *models.ImportRun, status models.TaskStatus, errMsg string) {
	if run == nil || s.repo == nil {
		return
	}
	if err := s.repo.UpdateRunStatus(ctx, run.ID, status, errMsg); err != nil {
		s.logger.Warn("Failed to update import run",
			zap.String("run_id", run.ID),
			zap.Error(err),
		)
	}
}

func (s *Importer) cacheSnapshot(ctx context.Context, taskID string, snapshot any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, taskID, snapshot); err != nil {
		s.logger.Warn("Failed to cache task status", zap.String("task_id", taskID), zap.Error(err))
	}
}

func (s *Importer) publish(ctx context.Context, kind models.ImportKind, filename string, status models.TaskStatus, progress float64, errMsg, taskID string) {
	if s.producer == nil {
		return
	}

	event := &kafka.TaskEvent{
		TaskID:   taskID,
		TraceID:  middleware.GetTraceID(ctx),
		Kind:     kind,
		Filename: filename,
		Status:   status,
		Progress: progress,
		Error:    errMsg,
		At:       time.Now().UTC(),
	}

	if err := s.producer.PublishTaskEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish task event", zap.String("task_id", taskID), zap.Error(err))
	}
}
