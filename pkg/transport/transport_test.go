package transport

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Sternrassler/listsync/pkg/query"
)

func TestFunc_Get(t *testing.T) {
	var gotEndpoint string
	var gotParams query.Params

	tr := Func(func(ctx context.Context, endpoint string, params query.Params) (*Response, error) {
		gotEndpoint = endpoint
		gotParams = params
		return &Response{Data: json.RawMessage(`[]`)}, nil
	})

	resp, err := tr.Get(context.Background(), "/v1/items", query.Params{"page": 1})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(resp.Data) != "[]" {
		t.Errorf("Data = %s, want []", resp.Data)
	}
	if gotEndpoint != "/v1/items" {
		t.Errorf("endpoint = %q", gotEndpoint)
	}
	if gotParams["page"] != 1 {
		t.Errorf("params = %v", gotParams)
	}
}

func TestResponse_UnmarshalEnvelope(t *testing.T) {
	body := `{"data":[{"id":"a"}],"count":10,"total":25,"page":2,"pageCount":3}`

	var resp Response
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}

	if resp.Count != 10 || resp.Total != 25 || resp.Page != 2 || resp.PageCount != 3 {
		t.Errorf("metadata = %+v", resp)
	}
	if string(resp.Data) != `[{"id":"a"}]` {
		t.Errorf("Data = %s", resp.Data)
	}
	if !resp.HasPage() {
		t.Error("HasPage() = false, want true")
	}
}

func TestResponse_HasPage(t *testing.T) {
	tests := []struct {
		name string
		resp *Response
		want bool
	}{
		{name: "nil response", resp: nil, want: false},
		{name: "no page", resp: &Response{Data: json.RawMessage(`{}`)}, want: false},
		{name: "page zero", resp: &Response{Page: 0, PageCount: 3}, want: false},
		{name: "page one", resp: &Response{Page: 1, PageCount: 1}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resp.HasPage(); got != tt.want {
				t.Errorf("HasPage() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestError(t *testing.T) {
	inner := errors.New("connection reset")

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "status only",
			err:  &Error{StatusCode: 404, Message: "404 Not Found"},
			want: "transport error (status 404): 404 Not Found",
		},
		{
			name: "wrapped cause",
			err:  &Error{Message: "request failed", Err: inner},
			want: "transport error (status 0): request failed: connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}

	wrapped := &Error{Message: "request failed", Err: inner}
	if !errors.Is(wrapped, inner) {
		t.Error("errors.Is should find the wrapped cause")
	}
	var te *Error
	if !errors.As(error(wrapped), &te) {
		t.Error("errors.As should match *Error")
	}
}
