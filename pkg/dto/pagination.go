package dto

type Filter struct {
	Limit  int    `query:"limit"`
	Page   int    `query:"page"`
	Q      string `query:"q"`
	Status string `query:"status"`
}

// Normalize applies the default page size and clamps out-of-range values.
func (f *Filter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
}

func (f Filter) Offset() int {
	return (f.Page - 1) * f.Limit
}

type PaginationMetadata struct {
	TotalCount int64 `json:"total_count"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
}

type PaginationResponse struct {
	Metadata PaginationMetadata `json:"_metadata"`
	Records  interface{}        `json:"records"`
}
