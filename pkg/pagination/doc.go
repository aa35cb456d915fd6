// Package pagination accumulates the pages of a paginated endpoint into one
// stable, randomly indexable sequence.
//
// An Engine wraps a request.Engine bound with {page: 1, limit} and merges
// every committed response into its items: page 1 replaces the sequence,
// page p > 1 is written at (p-1)*limit without disturbing other indices.
//
// Example usage:
//
//	eng, err := pagination.New(ctx, httpClient, pagination.Config[Order]{
//		Endpoint: "/v1/orders",
//		PageSize: 20,
//	})
//	if err != nil {
//		return err
//	}
//	eng.FetchMore(ctx)                                       // page 2
//	eng.Refresh(ctx, &pagination.RefreshOptions{ShowRefreshing: true})
//	view := eng.RenderList(ctx, &listview.Props[Order]{...})  // bubbletea model
//
// The engine:
//   - Fetches page 1 at construction unless Lazy is set
//   - Requests page+1 on FetchMore or EndReached while pages remain
//   - Tracks a three-state refresh indicator (inactive, active, silentActive)
//   - Applies only the most recently issued response
//   - Can load every remaining page in parallel with LoadAll
package pagination
