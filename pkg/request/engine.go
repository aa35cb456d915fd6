// Package request implements the single-resource request engine: the
// loading, data, metadata and error lifecycle of one endpoint binding.
package request

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/listsync/pkg/logging"
	"github.com/Sternrassler/listsync/pkg/query"
	"github.com/Sternrassler/listsync/pkg/transport"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// DefaultPageSize is the page size reported in metadata before the first
// paginated response arrives.
const DefaultPageSize = 10

var (
	// ErrNoTransport is returned when an engine is built without a transport.
	ErrNoTransport = errors.New("transport is required")

	// ErrEmptyResponse is recorded when the transport returns neither a
	// response nor an error.
	ErrEmptyResponse = errors.New("transport returned no response")
)

var validate = validator.New()

// Metadata is the pagination state reported by the server. Page is 1-based;
// Page == 0 means the binding has not been paginated yet.
type Metadata struct {
	Count     int `json:"count"`
	Total     int `json:"total"`
	Page      int `json:"page"`
	PageCount int `json:"pageCount"`
}

// InitialMetadata returns the metadata of a binding that has not received
// a paginated response.
func InitialMetadata(pageSize int) Metadata {
	return Metadata{
		Count:     pageSize,
		Total:     0,
		Page:      0,
		PageCount: 1,
	}
}

// Config holds the configuration of one endpoint binding.
type Config[T any] struct {
	// Endpoint is the resource address. Empty turns every fetch into a no-op.
	Endpoint string

	// QueryParams is the initial parameter mapping.
	QueryParams query.Params `validate:"-"`

	// Lazy suppresses the fetch normally performed by New.
	Lazy bool

	// DefaultData is reported as Data until the first successful fetch.
	DefaultData T `validate:"-"`

	// PageSize seeds Metadata.Count (default: DefaultPageSize).
	PageSize int `validate:"gte=0"`

	// Logger overrides the component logger. It is used as is; the
	// endpoint field is only added to the default logger.
	Logger *zerolog.Logger `validate:"-"`
}

// FetchOptions describe a parameter update applied by Fetch.
type FetchOptions struct {
	// QueryParams is a partial update, deep-merged onto the current mapping.
	QueryParams query.Params

	// OverrideQueryParams replaces the current mapping with QueryParams.
	OverrideQueryParams bool
}

// Snapshot is published to observers each time Data changes.
type Snapshot[T any] struct {
	Data     T
	Metadata Metadata
	// Seq is the sequence number of the fetch that produced Data.
	Seq uint64
}

// State is a point-in-time copy of the engine state.
type State[T any] struct {
	Loading     bool
	Data        T
	Metadata    Metadata
	Err         error
	QueryParams query.Params
}

// Engine owns the fetch lifecycle of one endpoint binding. It is safe for
// concurrent use; only the most recently issued fetch may update the state.
type Engine[T any] struct {
	transport transport.Transport
	endpoint  string
	logger    zerolog.Logger

	mu       sync.Mutex
	loading  bool
	data     T
	metadata Metadata
	err      error
	params   query.Params
	seq      uint64

	// notifyMu serializes observer calls so snapshots arrive in commit order.
	notifyMu  sync.Mutex
	obsMu     sync.Mutex
	observers map[int]func(Snapshot[T])
	nextObs   int
}

// New creates an engine bound to cfg.Endpoint. Unless cfg.Lazy is set it
// performs one fetch with the configured parameters before returning; the
// outcome of that fetch is recorded in the engine state.
func New[T any](ctx context.Context, tr transport.Transport, cfg Config[T]) (*Engine[T], error) {
	if tr == nil {
		return nil, ErrNoTransport
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid request config: %w", err)
	}

	pageSize := cfg.PageSize
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}

	logger := logging.NewLogger("request-engine").With().Str("endpoint", cfg.Endpoint).Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	e := &Engine[T]{
		transport: tr,
		endpoint:  cfg.Endpoint,
		logger:    logger,
		data:      cfg.DefaultData,
		metadata:  InitialMetadata(pageSize),
		params:    query.Clone(cfg.QueryParams),
		observers: make(map[int]func(Snapshot[T])),
	}

	if !cfg.Lazy {
		e.Fetch(ctx, nil)
	}

	return e, nil
}

// Fetch composes opts with the current parameters and performs the call.
// It reports whether the response was applied. Failures are recorded in
// Err and never returned; a response superseded by a later fetch is
// discarded and reported as false.
func (e *Engine[T]) Fetch(ctx context.Context, opts *FetchOptions) bool {
	if e.endpoint == "" {
		fetchTotal.WithLabelValues(outcomeSkipped).Inc()
		e.logger.Debug().Msg("Fetch skipped, no endpoint configured")
		return false
	}

	e.mu.Lock()
	params := e.params
	if opts != nil && opts.QueryParams != nil {
		if opts.OverrideQueryParams {
			params = query.Clone(opts.QueryParams)
		} else {
			params = query.Merge(e.params, opts.QueryParams)
		}
		e.params = params
	}
	e.loading = true
	e.err = nil
	e.seq++
	seq := e.seq
	e.mu.Unlock()

	e.logger.Debug().
		Uint64("seq", seq).
		Str("key", query.Key(e.endpoint, params)).
		Msg("Fetching")

	start := time.Now()
	resp, err := e.transport.Get(ctx, e.endpoint, query.Clone(params))
	fetchDuration.Observe(time.Since(start).Seconds())

	var data T
	if err == nil {
		data, err = e.decode(resp)
	}

	e.mu.Lock()
	if seq != e.seq {
		latest := e.seq
		e.mu.Unlock()
		fetchTotal.WithLabelValues(outcomeStale).Inc()
		e.logger.Debug().
			Uint64("seq", seq).
			Uint64("latest_seq", latest).
			Msg("Discarding superseded response")
		return false
	}

	if err != nil {
		e.loading = false
		e.err = err
		e.mu.Unlock()
		fetchTotal.WithLabelValues(outcomeFailure).Inc()
		e.logger.Warn().
			Err(err).
			Uint64("seq", seq).
			Dur("duration", time.Since(start)).
			Msg("Fetch failed")
		return false
	}

	if resp.HasPage() {
		e.metadata = Metadata{
			Count:     resp.Count,
			Total:     resp.Total,
			Page:      resp.Page,
			PageCount: resp.PageCount,
		}
	}
	e.loading = false
	// Data is assigned last so observers never see it while loading.
	e.data = data
	snap := Snapshot[T]{Data: data, Metadata: e.metadata, Seq: seq}
	e.mu.Unlock()

	fetchTotal.WithLabelValues(outcomeSuccess).Inc()
	e.logger.Debug().
		Uint64("seq", seq).
		Int("page", snap.Metadata.Page).
		Int("page_count", snap.Metadata.PageCount).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	e.notify(snap)
	return true
}

func (e *Engine[T]) decode(resp *transport.Response) (T, error) {
	var out T
	if resp == nil {
		return out, ErrEmptyResponse
	}
	if len(resp.Data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return out, fmt.Errorf("decode %s payload: %w", e.endpoint, err)
	}
	return out, nil
}

// Subscribe registers fn to be called with a snapshot every time Data
// changes. Calls happen after the state is committed, outside the engine
// lock. The returned function removes the subscription.
func (e *Engine[T]) Subscribe(fn func(Snapshot[T])) (unsubscribe func()) {
	e.obsMu.Lock()
	id := e.nextObs
	e.nextObs++
	e.observers[id] = fn
	e.obsMu.Unlock()

	return func() {
		e.obsMu.Lock()
		delete(e.observers, id)
		e.obsMu.Unlock()
	}
}

func (e *Engine[T]) notify(snap Snapshot[T]) {
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()

	e.obsMu.Lock()
	fns := make([]func(Snapshot[T]), 0, len(e.observers))
	for _, fn := range e.observers {
		fns = append(fns, fn)
	}
	e.obsMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Endpoint returns the bound resource address.
func (e *Engine[T]) Endpoint() string {
	return e.endpoint
}

// Loading reports whether a fetch is in flight.
func (e *Engine[T]) Loading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loading
}

// Data returns the last successful payload or the configured default.
func (e *Engine[T]) Data() T {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.data
}

// Metadata returns the last reported pagination metadata.
func (e *Engine[T]) Metadata() Metadata {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.metadata
}

// Err returns the last failure, or nil.
func (e *Engine[T]) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// QueryParams returns a copy of the current parameter mapping.
func (e *Engine[T]) QueryParams() query.Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	return query.Clone(e.params)
}

// State returns a copy of the full engine state.
func (e *Engine[T]) State() State[T] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State[T]{
		Loading:     e.loading,
		Data:        e.data,
		Metadata:    e.metadata,
		Err:         e.err,
		QueryParams: query.Clone(e.params),
	}
}

// SetLoading overrides the loading flag. The next fetch resets it.
func (e *Engine[T]) SetLoading(loading bool) {
	e.mu.Lock()
	e.loading = loading
	e.mu.Unlock()
}

// SetData replaces Data and notifies observers as a fetch would.
func (e *Engine[T]) SetData(data T) {
	e.mu.Lock()
	e.data = data
	snap := Snapshot[T]{Data: data, Metadata: e.metadata, Seq: e.seq}
	e.mu.Unlock()

	e.notify(snap)
}

// SetMetadata overrides the pagination metadata.
func (e *Engine[T]) SetMetadata(md Metadata) {
	e.mu.Lock()
	e.metadata = md
	e.mu.Unlock()
}

// SetError overrides the recorded error. The next fetch clears it.
func (e *Engine[T]) SetError(err error) {
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
}
