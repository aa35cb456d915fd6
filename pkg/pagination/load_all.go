package pagination

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/listsync/pkg/query"
	"github.com/Sternrassler/listsync/pkg/request"
)

// LoadConfig holds configuration for LoadAll.
type LoadConfig struct {
	// MaxConcurrency is the maximum number of parallel page requests.
	MaxConcurrency int
	// Timeout per page fetch.
	Timeout time.Duration
}

// DefaultLoadConfig returns a conservative LoadAll configuration.
func DefaultLoadConfig() LoadConfig {
	return LoadConfig{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
	}
}

type pageResult[T any] struct {
	page  int
	items []T
	err   error
}

// LoadAll fetches every page after the last received one with a worker pool
// and writes each into its offset slots as it arrives, in whatever order the
// pages complete. Page 1 is fetched first when nothing was loaded yet.
//
// Afterwards the metadata points at the last page of the contiguous prefix
// that was written, so FetchMore resumes at the first missing page. A
// refresh issued while LoadAll runs wins: remaining pages are discarded.
// It returns the number of pages written.
func (e *Engine[T]) LoadAll(ctx context.Context, cfg LoadConfig) (int, error) {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultLoadConfig().MaxConcurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultLoadConfig().Timeout
	}

	start := time.Now()

	md := e.req.Metadata()
	if md.Page == 0 {
		if !e.req.Fetch(ctx, nil) {
			if err := e.req.Err(); err != nil {
				return 0, fmt.Errorf("fetch first page: %w", err)
			}
			return 0, nil
		}
		md = e.req.Metadata()
	}

	if md.Page >= md.PageCount {
		return 0, nil
	}

	e.mu.Lock()
	seq := e.lastSeq
	e.mu.Unlock()

	params := e.req.QueryParams()
	endpoint := e.req.Endpoint()
	total := md.PageCount - md.Page

	e.logger.Info().
		Int("from_page", md.Page+1).
		Int("page_count", md.PageCount).
		Int("workers", cfg.MaxConcurrency).
		Msg("Starting parallel page load")

	pageQueue := make(chan int, total)
	results := make(chan pageResult[T], total)

	for page := md.Page + 1; page <= md.PageCount; page++ {
		pageQueue <- page
	}
	close(pageQueue)

	var wg sync.WaitGroup
	for i := 0; i < cfg.MaxConcurrency; i++ {
		wg.Add(1)
		go e.loadWorker(ctx, cfg.Timeout, endpoint, params, pageQueue, results, &wg, i)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	written := make(map[int]bool, total)
	var firstErr error
	for res := range results {
		if res.err != nil {
			e.logger.Warn().
				Err(res.err).
				Int("page", res.page).
				Msg("Page load failed")
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}

		if !e.writePage(seq, res.page, res.items) {
			e.logger.Debug().
				Int("page", res.page).
				Msg("Discarding loaded page, sequence was refreshed")
			continue
		}
		written[res.page] = true
		pagesMerged.Inc()
	}

	last := md.Page
	for written[last+1] {
		last++
	}

	e.mu.Lock()
	stale := e.lastSeq != seq
	e.mu.Unlock()
	if !stale {
		md.Page = last
		e.req.SetMetadata(md)
	}

	e.logger.Info().
		Int("pages", len(written)).
		Int("total", total).
		Int("items", e.Len()).
		Dur("duration", time.Since(start)).
		Msg("Parallel page load complete")

	if firstErr != nil {
		return len(written), fmt.Errorf("load pages (%d/%d written): %w", len(written), total, firstErr)
	}
	return len(written), nil
}

// loadWorker fetches pages from the queue.
func (e *Engine[T]) loadWorker(ctx context.Context, timeout time.Duration, endpoint string, params query.Params, pageQueue <-chan int, results chan<- pageResult[T], wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	pagesProcessed := 0

	for page := range pageQueue {
		select {
		case <-ctx.Done():
			results <- pageResult[T]{page: page, err: ctx.Err()}
			continue
		default:
		}

		items, err := e.loadPage(ctx, timeout, endpoint, params, page)
		results <- pageResult[T]{page: page, items: items, err: err}
		pagesProcessed++
	}

	if pagesProcessed > 0 {
		e.logger.Debug().
			Int("worker_id", workerID).
			Int("pages_processed", pagesProcessed).
			Msg("Worker completed")
	}
}

func (e *Engine[T]) loadPage(ctx context.Context, timeout time.Duration, endpoint string, params query.Params, page int) ([]T, error) {
	pageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := e.transport.Get(pageCtx, endpoint, query.Merge(params, query.Params{query.KeyPage: page}))
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, request.ErrEmptyResponse
	}

	var items []T
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &items); err != nil {
			return nil, fmt.Errorf("decode page %d: %w", page, err)
		}
	}
	if e.transform != nil {
		items = e.transform(items)
	}
	return items, nil
}

// writePage merges a loaded page unless a newer response was merged since
// the load started.
func (e *Engine[T]) writePage(seq uint64, page int, items []T) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastSeq != seq {
		return false
	}
	e.items = e.merge(e.items, items, page, e.limit)
	return true
}
