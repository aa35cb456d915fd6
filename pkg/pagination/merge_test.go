package pagination

import (
	"reflect"
	"testing"
)

func TestOffsetMerge(t *testing.T) {
	tests := []struct {
		name    string
		items   []int
		page    []int
		pageNum int
		limit   int
		want    []int
	}{
		{
			name:    "first page replaces",
			items:   []int{9, 9, 9, 9},
			page:    []int{1, 2},
			pageNum: 1,
			limit:   2,
			want:    []int{1, 2},
		},
		{
			name:    "unpaginated response replaces",
			items:   []int{9, 9},
			page:    []int{1},
			pageNum: 0,
			limit:   2,
			want:    []int{1},
		},
		{
			name:    "next page appends at offset",
			items:   []int{1, 2},
			page:    []int{3, 4},
			pageNum: 2,
			limit:   2,
			want:    []int{1, 2, 3, 4},
		},
		{
			name:    "short last page",
			items:   []int{1, 2, 3, 4},
			page:    []int{5},
			pageNum: 3,
			limit:   2,
			want:    []int{1, 2, 3, 4, 5},
		},
		{
			name:    "out of order leaves gap",
			items:   []int{1, 2},
			page:    []int{5, 6},
			pageNum: 3,
			limit:   2,
			want:    []int{1, 2, 0, 0, 5, 6},
		},
		{
			name:    "refetched middle page overwrites in place",
			items:   []int{1, 2, 3, 4, 5, 6},
			page:    []int{30, 40},
			pageNum: 2,
			limit:   2,
			want:    []int{1, 2, 30, 40, 5, 6},
		},
		{
			name:    "shorter middle page keeps tail",
			items:   []int{1, 2, 3, 4, 5, 6},
			page:    []int{30},
			pageNum: 2,
			limit:   2,
			want:    []int{1, 2, 30, 4, 5, 6},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := append([]int(nil), tt.items...)
			got := OffsetMerge(tt.items, tt.page, tt.pageNum, tt.limit)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("OffsetMerge() = %v, want %v", got, tt.want)
			}
			if !reflect.DeepEqual(tt.items, before) {
				t.Errorf("OffsetMerge() modified its input: %v", tt.items)
			}
		})
	}
}

func TestOffsetMerge_KPages(t *testing.T) {
	const limit = 7
	var items []int
	for k := 1; k <= 5; k++ {
		page := make([]int, limit)
		for i := range page {
			page[i] = (k-1)*limit + i
		}
		items = OffsetMerge(items, page, k, limit)

		if len(items) != k*limit {
			t.Fatalf("after %d pages len = %d, want %d", k, len(items), k*limit)
		}
		for i, v := range items {
			if v != i {
				t.Fatalf("after %d pages items[%d] = %d", k, i, v)
			}
		}
	}
}

func TestAppendMerge(t *testing.T) {
	items := AppendMerge[int](nil, []int{1, 2}, 1, 2)
	items = AppendMerge(items, []int{3}, 5, 2)
	if want := []int{1, 2, 3}; !reflect.DeepEqual(items, want) {
		t.Errorf("AppendMerge() = %v, want %v", items, want)
	}
}
