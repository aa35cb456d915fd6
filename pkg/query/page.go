package query

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Reserved pagination keys.
const (
	KeyPage  = "page"
	KeyLimit = "limit"
)

// PageParams are the pagination fields of a Params mapping.
type PageParams struct {
	Page  int `mapstructure:"page"`
	Limit int `mapstructure:"limit"`
}

// DecodePage reads page and limit from p. Values may be ints, floats or
// numeric strings; absent keys decode to zero.
func DecodePage(p Params) (PageParams, error) {
	var out PageParams
	if len(p) == 0 {
		return out, nil
	}
	if err := mapstructure.WeakDecode(map[string]any(p), &out); err != nil {
		return PageParams{}, fmt.Errorf("decode page params: %w", err)
	}
	return out, nil
}
