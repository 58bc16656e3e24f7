package dashboard

import "github.com/example/scrap-bidding/internal/models"

// CustomerSummary is the stat strip on the customer dashboard.
func CustomerSummary(reqs []models.ScrapRequest) models.CustomerSummary {
	s := models.CustomerSummary{TotalRequests: len(reqs)}
	for _, r := range reqs {
		switch r.Status {
		case models.RequestPending, "":
			s.PendingRequests++
		case models.RequestCompleted:
			s.CompletedRequests++
			s.TotalEarnings += r.FinalAmount
		}
	}
	return s
}
