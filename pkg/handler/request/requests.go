package request

// Structure for listing OTUs
type OTUListRequest struct {
	Order_By  OTUField `json:"order_by"`  // Field to order results by
	Order_Dir string   `json:"order_dir"` // Sort direction: asc or desc
	Page      int      `json:"page"`      // Page number for pagination (starting at 1)
	Page_Size int      `json:"page_size"` // Number of results per page
}

func (r OTUListRequest) Offset() int {
	if r.Page < 1 {
		return 0
	}
	return (r.Page - 1) * r.Page_Size
}

func (r OTUListRequest) Direction() string {
	if r.Order_Dir == "desc" {
		return "DESC"
	}
	return "ASC"
}
