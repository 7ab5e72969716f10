// Package remote talks to the CRUD endpoint family exposed for every collection:
// GET/POST on /{collection} and PUT/DELETE on /{collection}/{id}.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/schoolboard/internal/records"
	"go.uber.org/zap"
)

const (
	OperationList   = "list"
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"

	jsonContentType    = "application/json"
	maxErrorBodyBytes  = 4 << 10
	defaultHTTPTimeout = 10 * time.Second
)

var (
	errMissingBaseURL = errors.New("remote: base url is required")
	errInvalidBaseURL = errors.New("remote: base url must be absolute")
)

// Error reports a failed remote operation. Transport failures, non-success
// statuses and undecodable bodies all surface as *Error.
type Error struct {
	Operation  string
	Collection string
	Status     int
	Code       string
	err        error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Code != "":
		return fmt.Sprintf("remote %s %s: status %d: %s", e.Operation, e.Collection, e.Status, e.Code)
	case e.Status != 0:
		return fmt.Sprintf("remote %s %s: status %d", e.Operation, e.Collection, e.Status)
	default:
		return fmt.Sprintf("remote %s %s: %v", e.Operation, e.Collection, e.err)
	}
}

func (e *Error) Unwrap() error {
	return e.err
}

// ClientConfig describes how to reach the backend.
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client holds the process-wide base URL and HTTP transport shared by every endpoint.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient validates the configuration and builds a client.
func NewClient(cfg ClientConfig) (*Client, error) {
	rawBaseURL := strings.TrimSpace(cfg.BaseURL)
	if rawBaseURL == "" {
		return nil, errMissingBaseURL
	}
	baseURL, err := url.Parse(strings.TrimRight(rawBaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidBaseURL, err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("%w: %q", errInvalidBaseURL, rawBaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{baseURL: baseURL, httpClient: httpClient, logger: logger}, nil
}

// Endpoint addresses one collection of records of type R.
type Endpoint[R records.Record] struct {
	client     *Client
	collection string
}

// NewEndpoint binds an endpoint to the kind's collection path.
func NewEndpoint[R records.Record](client *Client, kind records.Kind) *Endpoint[R] {
	return &Endpoint[R]{client: client, collection: kind.Collection()}
}

// List fetches the full collection.
func (e *Endpoint[R]) List(ctx context.Context) ([]R, error) {
	var items []R
	if err := e.do(ctx, OperationList, http.MethodGet, "", nil, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []R{}
	}
	return items, nil
}

// Create posts a new record built from the field values.
func (e *Endpoint[R]) Create(ctx context.Context, fields map[string]string) error {
	return e.do(ctx, OperationCreate, http.MethodPost, "", fields, nil)
}

// Update replaces the fields of the record addressed by id.
func (e *Endpoint[R]) Update(ctx context.Context, rawID string, fields map[string]string) error {
	id, err := records.NewRecordID(rawID)
	if err != nil {
		return e.failure(OperationUpdate, 0, "invalid_id", err)
	}
	return e.do(ctx, OperationUpdate, http.MethodPut, id, fields, nil)
}

// Delete removes the record addressed by id.
func (e *Endpoint[R]) Delete(ctx context.Context, rawID string) error {
	id, err := records.NewRecordID(rawID)
	if err != nil {
		return e.failure(OperationDelete, 0, "invalid_id", err)
	}
	return e.do(ctx, OperationDelete, http.MethodDelete, id, nil, nil)
}

func (e *Endpoint[R]) resourceURL(id string) string {
	if id == "" {
		return e.client.baseURL.JoinPath(e.collection).String()
	}
	return e.client.baseURL.JoinPath(e.collection, url.PathEscape(id)).String()
}

func (e *Endpoint[R]) do(ctx context.Context, operation, method, id string, body any, decodeInto any) error {
	var requestBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return e.failure(operation, 0, "", err)
		}
		requestBody = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, e.resourceURL(id), requestBody)
	if err != nil {
		return e.failure(operation, 0, "", err)
	}
	request.Header.Set("Accept", jsonContentType)
	if requestBody != nil {
		request.Header.Set("Content-Type", jsonContentType)
	}

	response, err := e.client.httpClient.Do(request)
	if err != nil {
		return e.failure(operation, 0, "", err)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return e.failure(operation, response.StatusCode, readErrorCode(response.Body), nil)
	}

	if decodeInto == nil {
		_, _ = io.Copy(io.Discard, response.Body)
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(decodeInto); err != nil {
		return e.failure(operation, response.StatusCode, "malformed_response", err)
	}
	return nil
}

func (e *Endpoint[R]) failure(operation string, status int, code string, cause error) error {
	remoteErr := &Error{
		Operation:  operation,
		Collection: e.collection,
		Status:     status,
		Code:       code,
		err:        cause,
	}
	e.client.logger.Debug("remote operation failed",
		zap.String("operation", operation),
		zap.String("collection", e.collection),
		zap.Int("status", status),
		zap.String("code", code),
		zap.Error(cause))
	return remoteErr
}

func readErrorCode(body io.Reader) string {
	payload, err := io.ReadAll(io.LimitReader(body, maxErrorBodyBytes))
	if err != nil || len(payload) == 0 {
		return ""
	}
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return ""
	}
	return envelope.Error
}
