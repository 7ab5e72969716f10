package records

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	errMissingRepository = errors.New("repository is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew = "records.service.new"
	opList       = "records.list"
	opCreate     = "records.create"
	opUpdate     = "records.update"
	opDelete     = "records.delete"

	reasonMissingRepository = "missing_repository"
	reasonMissingIDProvider = "missing_id_provider"
	reasonInvalidID         = "invalid_id"
	reasonInvalidRecord     = "invalid_record"
	reasonNotFound          = "not_found"
	reasonIDGeneration      = "id_generation_failed"
	reasonQueryFailed       = "query_failed"
	reasonInsertFailed      = "insert_failed"
	reasonReplaceFailed     = "replace_failed"
	reasonRemoveFailed      = "remove_failed"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ServiceConfig describes the dependencies of a collection service.
type ServiceConfig[R Record] struct {
	Kind       Kind
	Repository Repository[R]
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service applies CRUD operations to one collection.
type Service[R Record, P Entity[R]] struct {
	kind       Kind
	repository Repository[R]
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService validates dependencies and builds a collection service.
func NewService[R Record, P Entity[R]](cfg ServiceConfig[R]) (*Service[R, P], error) {
	if cfg.Repository == nil {
		return nil, newServiceError(opServiceNew, reasonMissingRepository, errMissingRepository)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, reasonMissingIDProvider, errMissingIDProvider)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service[R, P]{
		kind:       cfg.Kind,
		repository: cfg.Repository,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// Kind returns the collection served.
func (s *Service[R, P]) Kind() Kind {
	return s.kind
}

// List returns the full collection ordered by creation.
func (s *Service[R, P]) List(ctx context.Context) ([]R, error) {
	if s.repository == nil {
		return nil, newServiceError(opList, reasonMissingRepository, errMissingRepository)
	}
	items, err := s.repository.List(ctx)
	if err != nil {
		s.logError(opList, reasonQueryFailed, err)
		return nil, newServiceError(opList, reasonQueryFailed, err)
	}
	return items, nil
}

// Create assigns a fresh identifier to the record and stores it.
func (s *Service[R, P]) Create(ctx context.Context, record R) (R, error) {
	var zero R
	if s.repository == nil {
		return zero, newServiceError(opCreate, reasonMissingRepository, errMissingRepository)
	}
	entity := P(&record)
	if err := entity.Canonicalize(); err != nil {
		return zero, newServiceError(opCreate, reasonInvalidRecord, err)
	}
	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreate, reasonIDGeneration, err)
		return zero, newServiceError(opCreate, reasonIDGeneration, err)
	}
	entity.SetRecordID(id)
	if err := s.repository.Insert(ctx, record); err != nil {
		s.logError(opCreate, reasonInsertFailed, err, zap.String("record_id", id))
		return zero, newServiceError(opCreate, reasonInsertFailed, err)
	}
	return record, nil
}

// Update replaces every field of an existing record.
func (s *Service[R, P]) Update(ctx context.Context, rawID string, record R) (R, error) {
	var zero R
	if s.repository == nil {
		return zero, newServiceError(opUpdate, reasonMissingRepository, errMissingRepository)
	}
	id, err := NewRecordID(rawID)
	if err != nil {
		return zero, newServiceError(opUpdate, reasonInvalidID, err)
	}
	entity := P(&record)
	if err := entity.Canonicalize(); err != nil {
		return zero, newServiceError(opUpdate, reasonInvalidRecord, err)
	}
	entity.SetRecordID(id)
	if err := s.repository.Replace(ctx, id, record); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return zero, newServiceError(opUpdate, reasonNotFound, err)
		}
		s.logError(opUpdate, reasonReplaceFailed, err, zap.String("record_id", id))
		return zero, newServiceError(opUpdate, reasonReplaceFailed, err)
	}
	return record, nil
}

// Delete removes a record by identifier.
func (s *Service[R, P]) Delete(ctx context.Context, rawID string) error {
	if s.repository == nil {
		return newServiceError(opDelete, reasonMissingRepository, errMissingRepository)
	}
	id, err := NewRecordID(rawID)
	if err != nil {
		return newServiceError(opDelete, reasonInvalidID, err)
	}
	if err := s.repository.Remove(ctx, id); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return newServiceError(opDelete, reasonNotFound, err)
		}
		s.logError(opDelete, reasonRemoveFailed, err, zap.String("record_id", id))
		return newServiceError(opDelete, reasonRemoveFailed, err)
	}
	return nil
}

func (s *Service[R, P]) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service[R, P]) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
		zap.String("collection", s.kind.Collection()),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("records service error", attrs...)
}
