package pagination

import (
	"context"
	"fmt"
	"sync"

	"github.com/Sternrassler/listsync/pkg/listview"
	"github.com/Sternrassler/listsync/pkg/logging"
	"github.com/Sternrassler/listsync/pkg/query"
	"github.com/Sternrassler/listsync/pkg/request"
	"github.com/Sternrassler/listsync/pkg/transport"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// DefaultPageSize is the limit used when neither the query parameters nor
// the configuration name one.
const DefaultPageSize = request.DefaultPageSize

var validate = validator.New()

// RefreshStatus is the state of the refresh indicator.
type RefreshStatus int

const (
	// RefreshInactive means no refresh is in flight.
	RefreshInactive RefreshStatus = iota
	// RefreshActive is a refresh with a visible indicator.
	RefreshActive
	// RefreshSilentActive is a refresh without a visible indicator.
	RefreshSilentActive
)

// String returns the status name.
func (s RefreshStatus) String() string {
	switch s {
	case RefreshActive:
		return "active"
	case RefreshSilentActive:
		return "silentActive"
	default:
		return "inactive"
	}
}

// Config holds the configuration of a paginated endpoint binding.
type Config[T any] struct {
	// Endpoint is the resource address.
	Endpoint string

	// QueryParams are extra parameters sent with every page. A "limit"
	// entry takes precedence over PageSize.
	QueryParams query.Params `validate:"-"`

	// PageSize is the requested page size (default: DefaultPageSize).
	PageSize int `validate:"gte=0"`

	// Transform is applied to every raw page before it is merged.
	Transform func(page []T) []T `validate:"-"`

	// Merge writes a page into the sequence (default: OffsetMerge).
	Merge MergeStrategy[T] `validate:"-"`

	// DefaultItems are shown until the first page arrives.
	DefaultItems []T `validate:"-"`

	// Lazy suppresses the initial page 1 fetch.
	Lazy bool

	// Logger overrides the component logger.
	Logger *zerolog.Logger `validate:"-"`
}

// RefreshOptions describe a refresh.
type RefreshOptions struct {
	// ShowRefreshing selects the visible refresh indicator.
	ShowRefreshing bool

	// QueryParams is merged with {page: 1} before fetching.
	QueryParams query.Params

	// OverrideQueryParams replaces the current mapping instead of merging.
	OverrideQueryParams bool
}

// State is a point-in-time copy of the paginated state.
type State[T any] struct {
	request.State[[]T]
	Items         []T
	RefreshStatus RefreshStatus
}

// Engine accumulates the pages of one endpoint into a single randomly
// indexable sequence. It is safe for concurrent use.
type Engine[T any] struct {
	req       *request.Engine[[]T]
	transport transport.Transport
	limit     int
	transform func([]T) []T
	merge     MergeStrategy[T]
	logger    zerolog.Logger

	mu      sync.Mutex
	items   []T
	refresh RefreshStatus
	lastSeq uint64
}

// New creates a pagination engine. The underlying request engine is bound
// with the caller's parameters plus {page: 1, limit}. Unless cfg.Lazy is set,
// page 1 is fetched before New returns.
func New[T any](ctx context.Context, tr transport.Transport, cfg Config[T]) (*Engine[T], error) {
	if tr == nil {
		return nil, request.ErrNoTransport
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid pagination config: %w", err)
	}

	limit, err := resolveLimit(cfg.QueryParams, cfg.PageSize)
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger("pagination-engine")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	logger = logger.With().Str("endpoint", cfg.Endpoint).Int("limit", limit).Logger()

	params := query.Merge(cfg.QueryParams, query.Params{
		query.KeyPage:  1,
		query.KeyLimit: limit,
	})

	req, err := request.New(ctx, tr, request.Config[[]T]{
		Endpoint:    cfg.Endpoint,
		QueryParams: params,
		Lazy:        true,
		DefaultData: cfg.DefaultItems,
		PageSize:    limit,
		Logger:      &logger,
	})
	if err != nil {
		return nil, err
	}

	merge := cfg.Merge
	if merge == nil {
		merge = OffsetMerge[T]
	}

	e := &Engine[T]{
		req:       req,
		transport: tr,
		limit:     limit,
		transform: cfg.Transform,
		merge:     merge,
		logger:    logger,
	}

	e.onData(request.Snapshot[[]T]{Data: cfg.DefaultItems, Metadata: req.Metadata()})
	req.Subscribe(e.onData)

	if !cfg.Lazy {
		req.Fetch(ctx, nil)
	}

	return e, nil
}

func resolveLimit(params query.Params, pageSize int) (int, error) {
	pp, err := query.DecodePage(params)
	if err != nil {
		return 0, fmt.Errorf("invalid pagination params: %w", err)
	}
	switch {
	case pp.Limit > 0:
		return pp.Limit, nil
	case pageSize > 0:
		return pageSize, nil
	default:
		return DefaultPageSize, nil
	}
}

// onData merges the raw page of a committed response.
func (e *Engine[T]) onData(snap request.Snapshot[[]T]) {
	page := snap.Data
	if e.transform != nil {
		page = e.transform(page)
	}

	e.mu.Lock()
	if snap.Seq < e.lastSeq {
		e.mu.Unlock()
		return
	}
	e.lastSeq = snap.Seq
	e.items = e.merge(e.items, page, snap.Metadata.Page, e.limit)
	e.refresh = RefreshInactive
	size := len(e.items)
	e.mu.Unlock()

	pagesMerged.Inc()
	e.logger.Debug().
		Int("page", snap.Metadata.Page).
		Int("received", len(page)).
		Int("items", size).
		Msg("Page merged")
}

// Fetch forwards to the underlying request engine.
func (e *Engine[T]) Fetch(ctx context.Context, opts *request.FetchOptions) bool {
	return e.req.Fetch(ctx, opts)
}

// FetchMore requests the page after the last one received. It is a no-op
// returning false once the last page has been reached.
func (e *Engine[T]) FetchMore(ctx context.Context) bool {
	md := e.req.Metadata()
	if md.Page >= md.PageCount {
		fetchMoreSkipped.Inc()
		e.logger.Debug().
			Int("page", md.Page).
			Int("page_count", md.PageCount).
			Msg("Fetch more skipped, last page reached")
		return false
	}

	return e.req.Fetch(ctx, &request.FetchOptions{
		QueryParams: query.Params{query.KeyPage: md.Page + 1},
	})
}

// Refresh reloads from page 1. The refresh status is active or silentActive
// while the fetch runs and inactive afterwards, whatever the outcome.
func (e *Engine[T]) Refresh(ctx context.Context, opts *RefreshOptions) bool {
	if opts == nil {
		opts = &RefreshOptions{}
	}

	status := RefreshSilentActive
	if opts.ShowRefreshing {
		status = RefreshActive
	}
	e.setRefresh(status)
	refreshTotal.WithLabelValues(status.String()).Inc()

	params := query.Merge(opts.QueryParams, query.Params{query.KeyPage: 1})
	ok := e.req.Fetch(ctx, &request.FetchOptions{
		QueryParams:         params,
		OverrideQueryParams: opts.OverrideQueryParams,
	})

	e.setRefresh(RefreshInactive)
	return ok
}

// EndReached is the scroll continuation hook: it fetches the next page when
// one exists and nothing is loading.
func (e *Engine[T]) EndReached(ctx context.Context, distanceFromEnd int) bool {
	md := e.req.Metadata()
	if md.Page < md.PageCount && !e.req.Loading() {
		e.logger.Debug().
			Int("distance_from_end", distanceFromEnd).
			Int("next_page", md.Page+1).
			Msg("End reached, fetching more")
		return e.FetchMore(ctx)
	}
	return false
}

// ReplacePage writes items at the slots of the given 1-based page using the
// engine's merge strategy and limit. Page 1 replaces the whole sequence.
func (e *Engine[T]) ReplacePage(page int, items []T) {
	e.mu.Lock()
	e.items = e.merge(e.items, items, page, e.limit)
	e.mu.Unlock()
}

// Reset empties the sequence and clears the refresh indicator.
func (e *Engine[T]) Reset() {
	e.mu.Lock()
	e.items = nil
	e.refresh = RefreshInactive
	e.mu.Unlock()
}

func (e *Engine[T]) setRefresh(status RefreshStatus) {
	e.mu.Lock()
	e.refresh = status
	e.mu.Unlock()
}

// Items returns a copy of the accumulated sequence.
func (e *Engine[T]) Items() []T {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]T, len(e.items))
	copy(out, e.items)
	return out
}

// Len returns the length of the accumulated sequence.
func (e *Engine[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.items)
}

// RefreshStatus returns the refresh indicator state.
func (e *Engine[T]) RefreshStatus() RefreshStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.refresh
}

// Limit returns the page size used for offsets.
func (e *Engine[T]) Limit() int {
	return e.limit
}

// Loading reports whether a fetch is in flight.
func (e *Engine[T]) Loading() bool { return e.req.Loading() }

// Err returns the last failure, or nil.
func (e *Engine[T]) Err() error { return e.req.Err() }

// Metadata returns the last reported pagination metadata.
func (e *Engine[T]) Metadata() request.Metadata { return e.req.Metadata() }

// QueryParams returns a copy of the current parameter mapping.
func (e *Engine[T]) QueryParams() query.Params { return e.req.QueryParams() }

// SetLoading overrides the loading flag.
func (e *Engine[T]) SetLoading(loading bool) { e.req.SetLoading(loading) }

// SetMetadata overrides the pagination metadata. It changes which page
// FetchMore requests next.
func (e *Engine[T]) SetMetadata(md request.Metadata) { e.req.SetMetadata(md) }

// SetError overrides the recorded error.
func (e *Engine[T]) SetError(err error) { e.req.SetError(err) }

// State returns a copy of the full paginated state.
func (e *Engine[T]) State() State[T] {
	base := e.req.State()

	e.mu.Lock()
	defer e.mu.Unlock()
	items := make([]T, len(e.items))
	copy(items, e.items)
	return State[T]{
		State:         base,
		Items:         items,
		RefreshStatus: e.refresh,
	}
}

// ViewState implements listview.Source.
func (e *Engine[T]) ViewState() listview.ViewState[T] {
	st := e.State()
	return listview.ViewState[T]{
		Items:          st.Items,
		Loading:        st.Loading,
		Err:            st.Err,
		Refreshing:     st.RefreshStatus == RefreshActive,
		RefreshPending: st.RefreshStatus != RefreshInactive,
	}
}
