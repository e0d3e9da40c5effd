package services

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2024, 5, 31, 15, 0, 0, 0, time.UTC)
}

func TestResolve(t *testing.T) {
	svc := NewReportService(nil, testLogger())
	svc.now = fixedNow

	tests := []struct {
		name    string
		in      DateRange
		want    DateRange
		wantErr string
	}{
		{"defaults to last 30 days", DateRange{}, DateRange{Start: "2024-05-01", End: "2024-05-31"}, ""},
		{"start from end", DateRange{End: "2024-03-31"}, DateRange{Start: "2024-03-01", End: "2024-03-31"}, ""},
		{"explicit", DateRange{Start: "2024-01-01", End: "2024-01-02"}, DateRange{Start: "2024-01-01", End: "2024-01-02"}, ""},
		{"bad end", DateRange{End: "31/05/2024"}, DateRange{}, "endDate"},
		{"bad start", DateRange{Start: "yesterday"}, DateRange{}, "startDate"},
		{"inverted", DateRange{Start: "2024-06-01", End: "2024-05-01"}, DateRange{}, "startDate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Resolve(tt.in)
			if tt.wantErr != "" {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.wantErr, verr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func reportBackend(r *gin.RouterGroup) {
	ranged := func(name string) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"report":    name,
				"startDate": c.Query("startDate"),
				"endDate":   c.Query("endDate"),
			})
		}
	}
	r.GET("/reports/sales", ranged("sales"))
	r.GET("/reports/occupancy", ranged("occupancy"))
	r.GET("/reports/route-performance", ranged("route-performance"))
	r.GET("/reports/dashboard", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"totalBookings": 12})
	})
	r.GET("/reports/download", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/pdf", []byte("%PDF-report"))
	})
}

func TestOverview(t *testing.T) {
	api, _ := setupServiceTest(t, reportBackend)
	svc := NewReportService(api, testLogger())
	svc.now = fixedNow

	overview, err := svc.Overview(authedContext(), DateRange{})
	require.NoError(t, err)

	assert.Equal(t, DateRange{Start: "2024-05-01", End: "2024-05-31"}, overview.Range)
	assert.Equal(t, 12.0, overview.Dashboard["totalBookings"])
	assert.Equal(t, "sales", overview.Sales["report"])
	assert.Equal(t, "2024-05-01", overview.Sales["startDate"])
	assert.Equal(t, "occupancy", overview.Occupancy["report"])
	assert.Equal(t, "route-performance", overview.RoutePerformance["report"])
}

func TestOverview_FailsWhenOneReportFails(t *testing.T) {
	api, _ := setupServiceTest(t, func(r *gin.RouterGroup) {
		r.GET("/reports/sales", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) })
		r.GET("/reports/route-performance", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) })
		r.GET("/reports/dashboard", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) })
		r.GET("/reports/occupancy", func(c *gin.Context) {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Occupancy report unavailable"})
		})
	})

	_, err := NewReportService(api, testLogger()).Overview(authedContext(), DateRange{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Occupancy report unavailable")
}

func TestDailySettlement_PostFallback(t *testing.T) {
	var posted map[string]string
	api, _ := setupServiceTest(t, func(r *gin.RouterGroup) {
		r.POST("/reports/daily-settlement", func(c *gin.Context) {
			require.NoError(t, c.ShouldBindJSON(&posted))
			c.JSON(http.StatusOK, gin.H{"settled": 4500})
		})
	})
	svc := NewReportService(api, testLogger())
	svc.now = fixedNow

	report, err := svc.DailySettlement(authedContext(), "")
	require.NoError(t, err)

	assert.Equal(t, "2024-05-31", posted["date"])
	assert.Equal(t, 4500.0, report["settled"])
}

func TestInvalidRangeNeverCallsBackend(t *testing.T) {
	api, _ := setupServiceTest(t, func(r *gin.RouterGroup) {
		r.Any("/*path", func(c *gin.Context) {
			t.Errorf("unexpected call to %s", c.Request.URL.Path)
		})
	})
	svc := NewReportService(api, testLogger())

	_, err := svc.Overview(authedContext(), DateRange{Start: "2024-05-01", End: "2024-04-01"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestDownload(t *testing.T) {
	api, _ := setupServiceTest(t, reportBackend)
	svc := NewReportService(api, testLogger())

	doc, err := svc.Download(authedContext(), DateRange{Start: "2024-05-01", End: "2024-05-31"})
	require.NoError(t, err)

	assert.Equal(t, "report_2024-05-01_2024-05-31.pdf", doc.Filename)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.Equal(t, []byte("%PDF-report"), doc.Data)
}
