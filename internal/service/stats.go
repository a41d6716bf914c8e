package service

import "github.com/iliyamo/fest-registration/internal/model"

// Stats summarises a set of registrations for the dashboard.  Revenue only
// counts approved groups; pending and rejected amounts are reported
// separately and never contribute to TotalRevenue.
type Stats struct {
	Total          int   `json:"total"`
	Pending        int   `json:"pending"`
	Approved       int   `json:"approved"`
	Rejected       int   `json:"rejected"`
	TotalRevenue   int64 `json:"total_revenue"`
	PendingAmount  int64 `json:"pending_amount"`
	RejectedAmount int64 `json:"rejected_amount"`
}

// ComputeStats derives Stats from recs alone.  There are no stored
// counters, so the numbers can always be rebuilt from the records.
func ComputeStats(recs []model.Registration) Stats {
	var s Stats
	for _, r := range recs {
		s.Total++
		switch r.Status {
		case model.StatusPending:
			s.Pending++
			s.PendingAmount += r.TotalAmount
		case model.StatusApproved:
			s.Approved++
			s.TotalRevenue += r.TotalAmount
		case model.StatusRejected:
			s.Rejected++
			s.RejectedAmount += r.TotalAmount
		}
	}
	return s
}
