package pagination

import (
	"context"

	"github.com/Sternrassler/listsync/pkg/listview"
)

// RenderList binds a list view to the engine. It returns nil when props is
// nil. Pulling to refresh runs a visible refresh before the caller's
// OnRefresh; reaching the end fetches the next page when one exists and
// nothing is loading, then forwards to the caller's OnEndReached.
func (e *Engine[T]) RenderList(ctx context.Context, props *listview.Props[T]) *listview.View[T] {
	if props == nil {
		return nil
	}

	bound := *props

	onEndReached := props.OnEndReached
	bound.OnEndReached = func(distanceFromEnd int) {
		e.EndReached(ctx, distanceFromEnd)
		if onEndReached != nil {
			onEndReached(distanceFromEnd)
		}
	}

	onRefresh := props.OnRefresh
	bound.OnRefresh = func() {
		e.Refresh(ctx, &RefreshOptions{ShowRefreshing: true})
		if onRefresh != nil {
			onRefresh()
		}
	}

	return listview.New[T](e, bound)
}
