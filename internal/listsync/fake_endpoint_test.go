package listsync

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/MarcoPoloResearchLab/schoolboard/internal/records"
	"go.uber.org/zap"
)

var errRemoteUnavailable = errors.New("remote unavailable")

type endpointCall struct {
	method string
	id     string
	fields map[string]string
}

// fakeEndpoint records every call and serves a mutable in-memory collection.
// When gate is set, Create blocks after signalling entered until gate yields.
type fakeEndpoint[R records.Record] struct {
	mu        sync.Mutex
	calls     []endpointCall
	items     []R
	listErr   error
	createErr error
	updateErr error
	deleteErr error
	entered   chan struct{}
	gate      chan struct{}
}

func (f *fakeEndpoint[R]) record(call endpointCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeEndpoint[R]) List(ctx context.Context) ([]R, error) {
	f.record(endpointCall{method: http.MethodGet})
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	items := make([]R, len(f.items))
	copy(items, f.items)
	return items, nil
}

func (f *fakeEndpoint[R]) Create(ctx context.Context, fields map[string]string) error {
	f.record(endpointCall{method: http.MethodPost, fields: fields})
	if f.gate != nil {
		f.entered <- struct{}{}
		<-f.gate
	}
	return f.createErr
}

func (f *fakeEndpoint[R]) Update(ctx context.Context, id string, fields map[string]string) error {
	f.record(endpointCall{method: http.MethodPut, id: id, fields: fields})
	return f.updateErr
}

func (f *fakeEndpoint[R]) Delete(ctx context.Context, id string) error {
	f.record(endpointCall{method: http.MethodDelete, id: id})
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	remaining := f.items[:0:0]
	for _, item := range f.items {
		if item.RecordID() != id {
			remaining = append(remaining, item)
		}
	}
	f.items = remaining
	return nil
}

func (f *fakeEndpoint[R]) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	methods := make([]string, 0, len(f.calls))
	for _, call := range f.calls {
		methods = append(methods, call.method)
	}
	return methods
}

func (f *fakeEndpoint[R]) callAt(t *testing.T, index int) endpointCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if index >= len(f.calls) {
		t.Fatalf("expected call %d, only %d recorded", index, len(f.calls))
	}
	return f.calls[index]
}

func (f *fakeEndpoint[R]) resetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func mustController[R records.Record](t *testing.T, schema records.Schema, endpoint Endpoint[R]) *Controller[R] {
	t.Helper()
	controller, err := NewController(Config[R]{
		Schema:   schema,
		Endpoint: endpoint,
		Logger:   zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("unexpected controller error: %v", err)
	}
	t.Cleanup(controller.Close)
	return controller
}

func mustSetField[R records.Record](t *testing.T, controller *Controller[R], name, value string) {
	t.Helper()
	if err := controller.SetField(name, value); err != nil {
		t.Fatalf("unexpected set field error: %v", err)
	}
}

func assertMethods(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, got)
	}
	for index := range want {
		if got[index] != want[index] {
			t.Fatalf("expected calls %v, got %v", want, got)
		}
	}
}

func assertEmptyCreateForm[R records.Record](t *testing.T, state State[R], schema records.Schema) {
	t.Helper()
	if state.Mode != ModeCreating || state.EditingID != "" {
		t.Fatalf("expected create mode, got %s editing %q", state.Mode, state.EditingID)
	}
	if len(state.Fields) != len(schema.Fields) {
		t.Fatalf("expected %d fields, got %#v", len(schema.Fields), state.Fields)
	}
	for _, field := range schema.Fields {
		if value, ok := state.Fields[field]; !ok || value != "" {
			t.Fatalf("expected field %s to be empty, got %q", field, value)
		}
	}
}
