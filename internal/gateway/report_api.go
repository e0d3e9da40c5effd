package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/smarttransit/busticket-client/internal/models"
)

// ReportAPI covers /reports. Date-ranged reports go through GetOrPost.
type ReportAPI struct {
	client *Client
}

// Sales returns revenue between two dates (YYYY-MM-DD)
// GET|POST /reports/sales
func (a *ReportAPI) Sales(ctx context.Context, startDate, endDate string) (models.Report, error) {
	return a.ranged(ctx, "/reports/sales", startDate, endDate)
}

// Occupancy returns seat utilisation between two dates
// GET|POST /reports/occupancy
func (a *ReportAPI) Occupancy(ctx context.Context, startDate, endDate string) (models.Report, error) {
	return a.ranged(ctx, "/reports/occupancy", startDate, endDate)
}

// RoutePerformance returns per-route figures between two dates
// GET|POST /reports/route-performance
func (a *ReportAPI) RoutePerformance(ctx context.Context, startDate, endDate string) (models.Report, error) {
	return a.ranged(ctx, "/reports/route-performance", startDate, endDate)
}

// DailySettlement returns the settlement of one day
// GET|POST /reports/daily-settlement
func (a *ReportAPI) DailySettlement(ctx context.Context, date string) (models.Report, error) {
	report := models.Report{}
	if err := a.client.GetOrPost(ctx, "/reports/daily-settlement", map[string]string{"date": date}, &report); err != nil {
		return nil, err
	}
	return report, nil
}

// Dashboard returns the admin dashboard figures
// GET /reports/dashboard
func (a *ReportAPI) Dashboard(ctx context.Context) (models.Report, error) {
	report := models.Report{}
	if err := a.client.Do(ctx, http.MethodGet, "/reports/dashboard", nil, &report); err != nil {
		return nil, err
	}
	return report, nil
}

// Download returns the report document for a date range
// GET /reports/download
func (a *ReportAPI) Download(ctx context.Context, startDate, endDate string) ([]byte, string, error) {
	return a.client.Raw(ctx, http.MethodGet, "/reports/download", WithQuery(url.Values{
		"startDate": []string{startDate},
		"endDate":   []string{endDate},
	}))
}

func (a *ReportAPI) ranged(ctx context.Context, path, startDate, endDate string) (models.Report, error) {
	report := models.Report{}
	params := map[string]string{"startDate": startDate, "endDate": endDate}
	if err := a.client.GetOrPost(ctx, path, params, &report); err != nil {
		return nil, err
	}
	return report, nil
}
