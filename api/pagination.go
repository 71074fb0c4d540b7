package api

import (
	"net/url"
	"strconv"
)

// SortDir is a paged list sort direction.
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// PageParams selects one page of a paged list. Zero-valued fields are left
// out of the query so the backend applies its defaults. Page is 0-based;
// set HasPage to send page=0 explicitly.
type PageParams struct {
	Page      int
	HasPage   bool
	Size      int
	SortBy    string
	SortDir   SortDir
	DateFrom  string
	DateTo    string
	Search    string
	DrinkType DrinkType
}

// Values encodes the set fields as query parameters.
func (p PageParams) Values() url.Values {
	v := url.Values{}
	if p.HasPage || p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Size > 0 {
		v.Set("size", strconv.Itoa(p.Size))
	}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("sortBy", p.SortBy)
	set("sortDir", string(p.SortDir))
	set("dateFrom", p.DateFrom)
	set("dateTo", p.DateTo)
	set("search", p.Search)
	set("drinkType", string(p.DrinkType))
	return v
}

// Page is the backend's paged list envelope.
type Page[T any] struct {
	Content       []T  `json:"content"`
	Page          int  `json:"page"`
	Size          int  `json:"size"`
	TotalElements int  `json:"totalElements"`
	TotalPages    int  `json:"totalPages"`
	First         bool `json:"first"`
	Last          bool `json:"last"`
}

// Next returns params for the following page, or false on the last page.
func (p Page[T]) Next(params PageParams) (PageParams, bool) {
	if p.Last {
		return params, false
	}
	params.Page = p.Page + 1
	params.HasPage = true
	return params, true
}
