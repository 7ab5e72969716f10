// Package listsync keeps a remote collection snapshot and a single edit form
// consistent across create, update and delete round trips.
//
// A Controller owns three pieces of state: the collection snapshot with its
// loading flag, the form draft, and the in-flight marker. Every successful
// mutation resets the draft (submit only) and then re-fetches the whole
// collection; failures leave both the draft and the snapshot untouched.
package listsync

import (
	"context"
	"errors"
	"sync"

	"github.com/MarcoPoloResearchLab/schoolboard/internal/records"
	"go.uber.org/zap"
)

const (
	opLoad   = "load"
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
)

var (
	// ErrBusy is returned when a remote operation is issued while another one is in flight.
	ErrBusy = errors.New("listsync: remote operation in flight")
	// ErrClosed is returned by operations on, or responses arriving after, a closed controller.
	ErrClosed = errors.New("listsync: controller closed")

	errMissingEndpoint = errors.New("listsync: endpoint is required")
	errMissingFields   = errors.New("listsync: schema declares no fields")
)

// Endpoint is the remote CRUD surface of one collection.
type Endpoint[R records.Record] interface {
	List(ctx context.Context) ([]R, error)
	Create(ctx context.Context, fields map[string]string) error
	Update(ctx context.Context, id string, fields map[string]string) error
	Delete(ctx context.Context, id string) error
}

// Config describes one controller instance.
type Config[R records.Record] struct {
	Schema   records.Schema
	Endpoint Endpoint[R]
	Logger   *zap.Logger
}

// State is a point-in-time copy of everything a presentation layer binds to.
type State[R records.Record] struct {
	Records   []R
	Loading   bool
	Busy      bool
	Mode      Mode
	EditingID string
	Fields    map[string]string
	LastError error
}

// Controller is the list-form synchronization state machine for one collection.
type Controller[R records.Record] struct {
	schema      records.Schema
	endpoint    Endpoint[R]
	logger      *zap.Logger
	broadcaster *broadcaster[R]

	mu      sync.Mutex
	items   []R
	loading bool
	busy    bool
	draft   draft
	lastErr error
	closed  bool
}

// NewController builds a controller in its initial state: loading, empty snapshot, empty create-mode form.
func NewController[R records.Record](cfg Config[R]) (*Controller[R], error) {
	if cfg.Endpoint == nil {
		return nil, errMissingEndpoint
	}
	if len(cfg.Schema.Fields) == 0 {
		return nil, errMissingFields
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller[R]{
		schema:      cfg.Schema,
		endpoint:    cfg.Endpoint,
		logger:      logger.With(zap.String("collection", cfg.Schema.Kind.Collection())),
		broadcaster: newBroadcaster[R](),
		items:       []R{},
		loading:     true,
		draft:       newDraft(cfg.Schema),
	}, nil
}

// State returns a copy of the current controller state.
func (c *Controller[R]) State() State[R] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller[R]) stateLocked() State[R] {
	items := make([]R, len(c.items))
	copy(items, c.items)
	return State[R]{
		Records:   items,
		Loading:   c.loading,
		Busy:      c.busy,
		Mode:      c.draft.mode(),
		EditingID: c.draft.editingID,
		Fields:    c.draft.fields(),
		LastError: c.lastErr,
	}
}

// Schema returns the schema the form is built from.
func (c *Controller[R]) Schema() records.Schema {
	return c.schema
}

// Find looks a record up in the current snapshot.
func (c *Controller[R]) Find(id string) (R, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range c.items {
		if item.RecordID() == id {
			return item, true
		}
	}
	var zero R
	return zero, false
}

// Subscribe streams state copies after every change until ctx ends or the controller closes.
func (c *Controller[R]) Subscribe(ctx context.Context) (<-chan State[R], func()) {
	return c.broadcaster.subscribe(ctx)
}

// Load re-fetches the whole collection and replaces the snapshot.
func (c *Controller[R]) Load(ctx context.Context) error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()
	return c.refresh(ctx)
}

// Submit creates or updates a record from the form, depending on the form's mode.
// On success the form is reset and the collection reloaded; on failure nothing changes.
func (c *Controller[R]) Submit(ctx context.Context) error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()

	c.mu.Lock()
	editingID := c.draft.editingID
	fields := c.draft.fields()
	c.mu.Unlock()

	operation := opCreate
	var err error
	if editingID != "" {
		operation = opUpdate
		err = c.endpoint.Update(ctx, editingID, fields)
	} else {
		err = c.endpoint.Create(ctx, fields)
	}
	if err != nil {
		return c.fail(operation, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.draft.reset()
	c.lastErr = nil
	c.mu.Unlock()
	c.notify()

	return c.refresh(ctx)
}

// Delete removes the record and reloads the collection. The form is left as is,
// even when it was editing the deleted record.
func (c *Controller[R]) Delete(ctx context.Context, id string) error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()

	if err := c.endpoint.Delete(ctx, id); err != nil {
		return c.fail(opDelete, err, zap.String("record_id", id))
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.lastErr = nil
	c.mu.Unlock()

	return c.refresh(ctx)
}

// Edit replaces the form with the record's values and switches it to edit mode.
func (c *Controller[R]) Edit(record R) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.draft.beginEdit(record)
	c.mu.Unlock()
	c.notify()
}

// SetField updates one form field. Values are not validated.
func (c *Controller[R]) SetField(name, value string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	err := c.draft.setField(name, value)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.notify()
	return nil
}

// Cancel clears the form back to an empty create-mode draft.
func (c *Controller[R]) Cancel() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.draft.reset()
	c.mu.Unlock()
	c.notify()
}

// Close tears the controller down. Responses still in flight are discarded.
func (c *Controller[R]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.broadcaster.close()
}

func (c *Controller[R]) acquire() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	c.busy = true
	c.mu.Unlock()
	c.notify()
	return nil
}

func (c *Controller[R]) release() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.busy = false
	c.mu.Unlock()
	c.notify()
}

// refresh must run while the caller holds the in-flight marker.
func (c *Controller[R]) refresh(ctx context.Context) error {
	items, err := c.endpoint.List(ctx)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.logger.Debug("discarding response for closed controller", zap.String("operation", opLoad))
		return ErrClosed
	}
	c.loading = false
	if err != nil {
		c.lastErr = err
		c.mu.Unlock()
		c.report(opLoad, err)
		c.notify()
		return err
	}
	snapshot := make([]R, len(items))
	copy(snapshot, items)
	c.items = snapshot
	c.lastErr = nil
	c.mu.Unlock()
	c.notify()
	return nil
}

func (c *Controller[R]) fail(operation string, err error, fields ...zap.Field) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.logger.Debug("discarding response for closed controller", zap.String("operation", operation))
		return ErrClosed
	}
	c.lastErr = err
	c.mu.Unlock()
	c.report(operation, err, fields...)
	c.notify()
	return err
}

func (c *Controller[R]) report(operation string, err error, fields ...zap.Field) {
	attrs := []zap.Field{zap.String("operation", operation), zap.Error(err)}
	attrs = append(attrs, fields...)
	c.logger.Error("remote operation failed", attrs...)
}

func (c *Controller[R]) notify() {
	c.broadcaster.publish(c.State())
}
