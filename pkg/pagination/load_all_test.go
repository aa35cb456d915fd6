package pagination

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sternrassler/listsync/pkg/query"
	"github.com/Sternrassler/listsync/pkg/transport"
)

func TestDefaultLoadConfig(t *testing.T) {
	cfg := DefaultLoadConfig()
	if cfg.MaxConcurrency != 4 {
		t.Errorf("MaxConcurrency = %d, want 4", cfg.MaxConcurrency)
	}
	if cfg.Timeout != 15*time.Second {
		t.Errorf("Timeout = %v, want 15s", cfg.Timeout)
	}
}

func TestLoadAll(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		limit     int
		lazy      bool
		wantPages int
	}{
		{"from first page", 95, 10, false, 9},
		{"lazy engine", 25, 10, true, 2},
		{"single page", 7, 10, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, &dataset{total: tt.total}, Config[int]{PageSize: tt.limit, Lazy: tt.lazy})

			pages, err := e.LoadAll(context.Background(), LoadConfig{MaxConcurrency: 3})
			if err != nil {
				t.Fatalf("LoadAll() error = %v", err)
			}
			if pages != tt.wantPages {
				t.Errorf("LoadAll() pages = %d, want %d", pages, tt.wantPages)
			}

			items := e.Items()
			if len(items) != tt.total {
				t.Fatalf("Len() = %d, want %d", len(items), tt.total)
			}
			for i, v := range items {
				if v != i {
					t.Fatalf("items[%d] = %d", i, v)
				}
			}

			md := e.Metadata()
			if md.Page != md.PageCount {
				t.Errorf("Metadata().Page = %d, want %d", md.Page, md.PageCount)
			}
			if e.FetchMore(context.Background()) {
				t.Error("FetchMore() after LoadAll = true")
			}
		})
	}
}

func TestLoadAll_PartialFailure(t *testing.T) {
	d := &dataset{total: 50}
	e := newEngine(t, d, Config[int]{PageSize: 10})

	inner := d
	failing := transport.Func(func(ctx context.Context, endpoint string, params query.Params) (*transport.Response, error) {
		pp, _ := query.DecodePage(params)
		if pp.Page == 3 {
			return nil, errors.New("page 3 unavailable")
		}
		return inner.Get(ctx, endpoint, params)
	})
	e.transport = failing

	pages, err := e.LoadAll(context.Background(), LoadConfig{MaxConcurrency: 2})
	if err == nil {
		t.Fatal("LoadAll() error = nil, want page 3 failure")
	}
	if pages != 3 {
		t.Errorf("LoadAll() pages = %d, want 3", pages)
	}

	// the contiguous prefix ends at page 2, so FetchMore resumes at 3
	if md := e.Metadata(); md.Page != 2 {
		t.Errorf("Metadata().Page = %d, want 2", md.Page)
	}
	if e.Len() != 50 {
		t.Errorf("Len() = %d, want 50", e.Len())
	}
}

func TestLoadAll_Cancelled(t *testing.T) {
	e := newEngine(t, &dataset{total: 40}, Config[int]{PageSize: 10})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pages, err := e.LoadAll(ctx, LoadConfig{MaxConcurrency: 1})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("LoadAll() error = %v, want context.Canceled", err)
	}
	if pages != 0 {
		t.Errorf("LoadAll() pages = %d, want 0", pages)
	}
	if md := e.Metadata(); md.Page != 1 {
		t.Errorf("Metadata().Page = %d, want 1", md.Page)
	}
}

func TestLoadAll_RefreshWins(t *testing.T) {
	ctx := context.Background()
	d := &dataset{total: 45}
	e := newEngine(t, d, Config[int]{})

	gate := newPageGate(2)
	d.hook = gate.hook

	type result struct {
		pages int
		err   error
	}
	done := make(chan result, 1)
	go func() {
		pages, err := e.LoadAll(ctx, LoadConfig{MaxConcurrency: 1, Timeout: 5 * time.Second})
		done <- result{pages, err}
	}()
	gate.wait(t)

	if !e.Refresh(ctx, &RefreshOptions{ShowRefreshing: true}) {
		t.Fatalf("Refresh() = false, err = %v", e.Err())
	}
	close(gate.release)

	res := <-done
	if res.err != nil {
		t.Fatalf("LoadAll() error = %v", res.err)
	}
	if res.pages != 0 {
		t.Errorf("LoadAll() wrote %d pages after a refresh, want 0", res.pages)
	}
	if e.Len() != 10 {
		t.Errorf("Len() = %d, want 10", e.Len())
	}
	if got := e.Metadata().Page; got != 1 {
		t.Errorf("Metadata().Page = %d, want 1", got)
	}
	if e.RefreshStatus() != RefreshInactive {
		t.Errorf("RefreshStatus() = %v, want inactive", e.RefreshStatus())
	}
}
