package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MarcoPoloResearchLab/schoolboard/internal/records"
)

type capturedRequest struct {
	method string
	path   string
	body   map[string]string
}

func newRecordingServer(t *testing.T, status int, responseBody string) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	captured := &[]capturedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entry := capturedRequest{method: r.Method, path: r.URL.Path}
		payload, _ := io.ReadAll(r.Body)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &entry.body); err != nil {
				t.Errorf("unexpected request body %q: %v", payload, err)
			}
		}
		*captured = append(*captured, entry)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, responseBody)
	}))
	t.Cleanup(server.Close)
	return server, captured
}

func mustClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(ClientConfig{BaseURL: baseURL})
	if err != nil {
		t.Fatalf("unexpected client error: %v", err)
	}
	return client
}

func TestNewClientRejectsRelativeBaseURL(t *testing.T) {
	if _, err := NewClient(ClientConfig{}); !errors.Is(err, errMissingBaseURL) {
		t.Fatalf("expected missing base url error, got %v", err)
	}
	if _, err := NewClient(ClientConfig{BaseURL: "localhost:3000"}); !errors.Is(err, errInvalidBaseURL) {
		t.Fatalf("expected invalid base url error, got %v", err)
	}
}

func TestEndpointListDecodesCollection(t *testing.T) {
	server, captured := newRecordingServer(t, http.StatusOK, `[{"_id":"n1","notice":"Old text"},{"_id":"n2","notice":"Second"}]`)
	endpoint := NewEndpoint[records.Notice](mustClient(t, server.URL+"/"), records.KindNotice)

	items, err := endpoint.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(items) != 2 || items[0].ID != "n1" || items[1].Notice != "Second" {
		t.Fatalf("unexpected items: %#v", items)
	}
	if len(*captured) != 1 || (*captured)[0].method != http.MethodGet || (*captured)[0].path != "/general-notices" {
		t.Fatalf("unexpected requests: %#v", *captured)
	}
}

func TestEndpointListTreatsNullAsEmpty(t *testing.T) {
	server, _ := newRecordingServer(t, http.StatusOK, `null`)
	endpoint := NewEndpoint[records.Announcement](mustClient(t, server.URL), records.KindAnnouncement)

	items, err := endpoint.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", items)
	}
}

func TestEndpointMutationsAddressCollection(t *testing.T) {
	server, captured := newRecordingServer(t, http.StatusOK, `{}`)
	endpoint := NewEndpoint[records.Student](mustClient(t, server.URL), records.KindStudent)
	ctx := context.Background()
	fields := map[string]string{"name": "Ana", "birthDate": "2010-01-01", "registrationNumber": "42", "class": "5A"}

	if err := endpoint.Create(ctx, fields); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if err := endpoint.Update(ctx, "s1", fields); err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	if err := endpoint.Delete(ctx, "s1"); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}

	expected := []struct {
		method  string
		path    string
		hasBody bool
	}{
		{http.MethodPost, "/students", true},
		{http.MethodPut, "/students/s1", true},
		{http.MethodDelete, "/students/s1", false},
	}
	if len(*captured) != len(expected) {
		t.Fatalf("expected %d requests, got %d", len(expected), len(*captured))
	}
	for index, want := range expected {
		got := (*captured)[index]
		if got.method != want.method || got.path != want.path {
			t.Fatalf("request %d: got %s %s, want %s %s", index, got.method, got.path, want.method, want.path)
		}
		if want.hasBody && got.body["registrationNumber"] != "42" {
			t.Fatalf("request %d: unexpected body %#v", index, got.body)
		}
		if !want.hasBody && got.body != nil {
			t.Fatalf("request %d: expected no body, got %#v", index, got.body)
		}
	}
}

func TestEndpointKeepsIDWithinCollection(t *testing.T) {
	server, captured := newRecordingServer(t, http.StatusNoContent, ``)
	endpoint := NewEndpoint[records.Announcement](mustClient(t, server.URL), records.KindAnnouncement)
	ctx := context.Background()

	for _, rawID := range []string{"..", ".", "../students", "a/b", "  "} {
		err := endpoint.Delete(ctx, rawID)
		var remoteErr *Error
		if !errors.As(err, &remoteErr) || remoteErr.Code != "invalid_id" || !errors.Is(err, records.ErrInvalidRecordID) {
			t.Fatalf("delete %q: expected invalid id error, got %v", rawID, err)
		}
		if err := endpoint.Update(ctx, rawID, map[string]string{"announcement": "X"}); !errors.Is(err, records.ErrInvalidRecordID) {
			t.Fatalf("update %q: expected invalid id error, got %v", rawID, err)
		}
	}
	if len(*captured) != 0 {
		t.Fatalf("rejected ids must not reach the server, got %#v", *captured)
	}

	if err := endpoint.Delete(ctx, "a9?force=1#top"); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	if err := endpoint.Update(ctx, "a 9", map[string]string{"announcement": "X"}); err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	if len(*captured) != 2 {
		t.Fatalf("expected two requests, got %#v", *captured)
	}
	if got := (*captured)[0].path; got != "/announcements/a9?force=1#top" {
		t.Fatalf("expected id escaped as one segment, got %q", got)
	}
	if got := (*captured)[1].path; got != "/announcements/a 9" {
		t.Fatalf("expected id escaped as one segment, got %q", got)
	}
}

func TestEndpointReportsStatusAndCode(t *testing.T) {
	server, _ := newRecordingServer(t, http.StatusNotFound, `{"error":"not_found"}`)
	endpoint := NewEndpoint[records.Announcement](mustClient(t, server.URL), records.KindAnnouncement)

	err := endpoint.Delete(context.Background(), "a9")
	var remoteErr *Error
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if remoteErr.Status != http.StatusNotFound || remoteErr.Code != "not_found" || remoteErr.Operation != OperationDelete {
		t.Fatalf("unexpected error fields: %#v", remoteErr)
	}
}

func TestEndpointReportsMalformedList(t *testing.T) {
	server, _ := newRecordingServer(t, http.StatusOK, `{"not":"a list"}`)
	endpoint := NewEndpoint[records.Notice](mustClient(t, server.URL), records.KindNotice)

	_, err := endpoint.List(context.Background())
	var remoteErr *Error
	if !errors.As(err, &remoteErr) || remoteErr.Code != "malformed_response" {
		t.Fatalf("expected malformed response error, got %v", err)
	}
}

func TestEndpointReportsTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	endpoint := NewEndpoint[records.Notice](mustClient(t, baseURL), records.KindNotice)
	_, err := endpoint.List(context.Background())
	var remoteErr *Error
	if !errors.As(err, &remoteErr) || remoteErr.Status != 0 || remoteErr.Unwrap() == nil {
		t.Fatalf("expected transport error, got %v", err)
	}
}
