// Package transport defines the GET capability the request engines consume
// and the paginated response envelope it returns.
package transport

import (
	"context"
	"encoding/json"

	"github.com/Sternrassler/listsync/pkg/query"
)

// Transport performs a GET against an endpoint with the given query parameters.
type Transport interface {
	Get(ctx context.Context, endpoint string, params query.Params) (*Response, error)
}

// Func adapts an ordinary function to the Transport interface.
type Func func(ctx context.Context, endpoint string, params query.Params) (*Response, error)

// Get calls f.
func (f Func) Get(ctx context.Context, endpoint string, params query.Params) (*Response, error) {
	return f(ctx, endpoint, params)
}

// Response is the envelope returned by a paginated resource.
//
//	{"data": [...], "count": 10, "total": 25, "page": 1, "pageCount": 3}
//
// Only Data is mandatory. A positive Page is the signal that the pagination
// fields are meaningful.
type Response struct {
	Data      json.RawMessage `json:"data"`
	Count     int             `json:"count,omitempty"`
	Total     int             `json:"total,omitempty"`
	Page      int             `json:"page,omitempty"`
	PageCount int             `json:"pageCount,omitempty"`
}

// HasPage reports whether the response carries pagination metadata.
func (r *Response) HasPage() bool {
	return r != nil && r.Page > 0
}
