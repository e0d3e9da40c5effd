package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-client/internal/gateway"
	"github.com/smarttransit/busticket-client/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	dateLayout         = "2006-01-02"
	defaultReportRange = 30 * 24 * time.Hour
)

// DateRange is an inclusive pair of YYYY-MM-DD dates
type DateRange struct {
	Start string `json:"startDate" form:"startDate"`
	End   string `json:"endDate" form:"endDate"`
}

// Overview combines the admin dashboards
type Overview struct {
	Range            DateRange     `json:"range"`
	Dashboard        models.Report `json:"dashboard"`
	Sales            models.Report `json:"sales"`
	Occupancy        models.Report `json:"occupancy"`
	RoutePerformance models.Report `json:"routePerformance"`
}

// ReportDocument is a downloadable report
type ReportDocument struct {
	Data        []byte
	ContentType string
	Filename    string
}

// ReportService reads back-office reports
type ReportService struct {
	api    *gateway.API
	logger *logrus.Logger
	now    func() time.Time
}

// NewReportService creates a new ReportService
func NewReportService(api *gateway.API, logger *logrus.Logger) *ReportService {
	return &ReportService{api: api, logger: logger, now: time.Now}
}

// Resolve fills a missing range with the last 30 days and checks the dates
func (s *ReportService) Resolve(r DateRange) (DateRange, error) {
	today := s.now()
	if r.End == "" {
		r.End = today.Format(dateLayout)
	}
	end, err := time.Parse(dateLayout, r.End)
	if err != nil {
		return r, newValidationError("endDate", "End date must be YYYY-MM-DD")
	}
	if r.Start == "" {
		r.Start = end.Add(-defaultReportRange).Format(dateLayout)
	}
	start, err := time.Parse(dateLayout, r.Start)
	if err != nil {
		return r, newValidationError("startDate", "Start date must be YYYY-MM-DD")
	}
	if start.After(end) {
		return r, newValidationError("startDate", "Start date must not be after end date")
	}
	return r, nil
}

// Sales returns revenue figures
func (s *ReportService) Sales(ctx context.Context, r DateRange) (models.Report, error) {
	r, err := s.Resolve(r)
	if err != nil {
		return nil, err
	}
	return s.api.Reports.Sales(ctx, r.Start, r.End)
}

// Occupancy returns seat utilisation figures
func (s *ReportService) Occupancy(ctx context.Context, r DateRange) (models.Report, error) {
	r, err := s.Resolve(r)
	if err != nil {
		return nil, err
	}
	return s.api.Reports.Occupancy(ctx, r.Start, r.End)
}

// RoutePerformance returns per-route figures
func (s *ReportService) RoutePerformance(ctx context.Context, r DateRange) (models.Report, error) {
	r, err := s.Resolve(r)
	if err != nil {
		return nil, err
	}
	return s.api.Reports.RoutePerformance(ctx, r.Start, r.End)
}

// DailySettlement returns one day's settlement, today by default
func (s *ReportService) DailySettlement(ctx context.Context, date string) (models.Report, error) {
	if date == "" {
		date = s.now().Format(dateLayout)
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, newValidationError("date", "Date must be YYYY-MM-DD")
	}
	return s.api.Reports.DailySettlement(ctx, date)
}

// Dashboard returns the dashboard figures
func (s *ReportService) Dashboard(ctx context.Context) (models.Report, error) {
	return s.api.Reports.Dashboard(ctx)
}

// Overview fetches the dashboard and the three ranged reports concurrently
func (s *ReportService) Overview(ctx context.Context, r DateRange) (*Overview, error) {
	r, err := s.Resolve(r)
	if err != nil {
		return nil, err
	}

	overview := &Overview{Range: r}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		overview.Dashboard, err = s.api.Reports.Dashboard(gctx)
		return err
	})
	g.Go(func() (err error) {
		overview.Sales, err = s.api.Reports.Sales(gctx, r.Start, r.End)
		return err
	})
	g.Go(func() (err error) {
		overview.Occupancy, err = s.api.Reports.Occupancy(gctx, r.Start, r.End)
		return err
	})
	g.Go(func() (err error) {
		overview.RoutePerformance, err = s.api.Reports.RoutePerformance(gctx, r.Start, r.End)
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.WithError(err).Warn("Report overview incomplete")
		return nil, err
	}
	return overview, nil
}

// Download returns the report document of a range
func (s *ReportService) Download(ctx context.Context, r DateRange) (*ReportDocument, error) {
	r, err := s.Resolve(r)
	if err != nil {
		return nil, err
	}

	data, contentType, err := s.api.Reports.Download(ctx, r.Start, r.End)
	if err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = "application/pdf"
	}

	return &ReportDocument{
		Data:        data,
		ContentType: contentType,
		Filename:    fmt.Sprintf("report_%s_%s.pdf", r.Start, r.End),
	}, nil
}
