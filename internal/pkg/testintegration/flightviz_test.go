package testintegration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fredbi/flightviz/internal/pkg/chart"
	"github.com/fredbi/flightviz/internal/pkg/config"
	"github.com/fredbi/flightviz/internal/pkg/dashboard"
	"github.com/fredbi/flightviz/internal/pkg/model"
	"github.com/fredbi/flightviz/internal/pkg/prepare"
	"github.com/fredbi/flightviz/internal/pkg/source"

	"github.com/go-openapi/testify/v2/assert"
	"github.com/go-openapi/testify/v2/require"
)

var route = model.Route{Origin: "JFK", Destination: "LAX"}

// row is a generated flight, as expected once prepared.
type row struct {
	departure time.Time
	delay     float64
}

func TestFlightviz(t *testing.T) {
	workDir := t.TempDir()
	dataDir := filepath.Join(workDir, "data")
	rows := generateRows()

	t.Run("should load config", func(t *testing.T) {
		cfg, err := config.LoadDefaults()
		require.NoError(t, err)
		require.NotNil(t, cfg)
		cfg.Data.Dir = dataDir

		writeData(t, workDir, "test_config.json", cfg)

		t.Run("should prepare data", func(t *testing.T) {
			p := prepare.New(prepare.WithLocation(cfg.TimeLocation()))
			require.NoError(t, p.ParseInput(strings.NewReader(generateCSV(rows))))
			require.NoError(t, p.WriteDir(cfg.Data.Dir))

			report := p.Report()
			require.NoError(t, report.Err())
			assert.Equal(t, len(rows)+1, report.Parsed)
			assert.Equal(t, 2, report.Routes)

			writeData(t, workDir, "test_report.json", report)

			t.Run("should load the dashboard", func(t *testing.T) {
				dash, err := dashboard.New(cfg, source.NewDirSource(cfg.Data.Dir))
				require.NoError(t, err)
				require.NoError(t, dash.Start(context.Background()))

				v := dash.View()
				require.True(t, v.Ready)
				assert.Equal(t, []string{"BOS", "JFK"}, v.Origins)
				require.NoError(t, dash.SelectRoute(context.Background(), route))
				require.Equal(t, len(rows), dash.View().Total)

				t.Run("should filter like a brute force scan", func(t *testing.T) {
					for _, tc := range []struct {
						name    string
						filters map[config.DimensionName]dashboard.FilterRequest
						accept  func(row) bool
					}{
						{
							name: "weekends",
							filters: map[config.DimensionName]dashboard.FilterRequest{
								config.DimensionDayOfWeek: {Keys: dashboard.Values{"Saturdays", "Sundays"}},
							},
							accept: func(r row) bool {
								return r.departure.Weekday() == time.Saturday || r.departure.Weekday() == time.Sunday
							},
						},
						{
							name: "morning delays in the first week",
							filters: map[config.DimensionName]dashboard.FilterRequest{
								config.DimensionTime:      {Range: dashboard.Values{"2017-01-01", "2017-01-08"}},
								config.DimensionHourOfDay: {Range: dashboard.Values{"6", "12"}},
								config.DimensionDelay:     {Range: dashboard.Values{"0", ""}},
							},
							accept: func(r row) bool {
								return r.departure.Day() < 8 && r.departure.Hour() >= 6 && r.departure.Hour() < 12 && r.delay >= 0
							},
						},
						{
							name: "end of month",
							filters: map[config.DimensionName]dashboard.FilterRequest{
								config.DimensionDayOfMonth: {Range: dashboard.Values{"25", "32"}},
							},
							accept: func(r row) bool {
								return r.departure.Day() >= 25
							},
						},
					} {
						t.Run(tc.name, func(t *testing.T) {
							_, err := dash.ClearAll()
							require.NoError(t, err)

							for dimension, req := range tc.filters {
								_, err := dash.SetFilter(dimension, req)
								require.NoError(t, err)
							}

							v := dash.View()
							assert.Equal(t, countRows(rows, tc.accept), v.Selected)

							for _, chartView := range v.Charts {
								if chartView.Filter != "" {
									continue
								}

								var total int
								for _, bar := range chartView.Bars {
									total += bar.Count
								}
								assert.Equal(t, v.Selected, total, "chart %s", chartView.ID)
							}

							writeData(t, workDir, "test_view.json", v)
						})
					}
				})

				t.Run("should build page", func(t *testing.T) {
					page := chart.New(cfg).BuildPage(dash.View())
					require.Len(t, page.Charts, 1+len(cfg.Charts))

					t.Run("should render page", func(t *testing.T) {
						var buf bytes.Buffer
						require.NoError(t, page.Render(&buf))
						assert.Contains(t, buf.String(), "echarts")

						writeResult(t, workDir, "test_html.html", &buf)
					})
				})
			})
		})
	})
}

// generateRows yields flights from JFK to LAX over January 2017, at various hours and delays.
func generateRows() []row {
	var rows []row

	for day := 1; day <= 31; day++ {
		for hour := 5; hour < 23; hour += 3 {
			departure := time.Date(2017, time.January, day, hour, 30, 0, 0, time.UTC)
			rows = append(rows, row{
				departure: departure,
				delay:     float64((day*7+hour*3)%60 - 20),
			})
		}
	}

	return rows
}

func generateCSV(rows []row) string {
	var b strings.Builder

	b.WriteString("FL_DATE,ORIGIN,DEST,CRS_DEP_TIME,ARR_DELAY,CRS_ELAPSED_TIME\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%s,%s,%s,%s,%.0f,360\n",
			r.departure.Format(model.DateLayout), route.Origin, route.Destination, r.departure.Format("1504"), r.delay)
	}
	// another route
	b.WriteString("2017-01-03,BOS,JFK,0700,5,75\n")

	return b.String()
}

func countRows(rows []row, accept func(row) bool) int {
	var n int
	for _, r := range rows {
		if accept(r) {
			n++
		}
	}

	return n
}

func writeData(t *testing.T, dir, name string, data any) {
	t.Helper()

	buf, err := json.MarshalIndent(data, "", "  ")
	require.NoError(t, err)

	rdr := bytes.NewReader(buf)
	writeResult(t, dir, name, rdr)
}

func writeResult(t *testing.T, dir, name string, rdr io.Reader) {
	t.Helper()

	file, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer file.Close()

	_, err = io.Copy(file, rdr)
	require.NoError(t, err)
}
