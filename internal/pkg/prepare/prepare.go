// Package prepare converts a CSV export of flights into the columnar JSON layout served by the directory source.
//
// The input is expected to carry the columns ORIGIN, DEST, FL_DATE, CRS_DEP_TIME, ARR_DELAY and CRS_ELAPSED_TIME.
package prepare

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/fredbi/flightviz/internal/pkg/model"
	"github.com/fredbi/flightviz/internal/pkg/source"
)

// ErrRejectedRows is reported when some input rows could not be parsed.
var ErrRejectedRows = errors.New("some rows were rejected")

// Input columns.
const (
	colOrigin          = "ORIGIN"
	colDestination     = "DEST"
	colDate            = "FL_DATE"
	colDepartureTime   = "CRS_DEP_TIME"
	colArrivalDelay    = "ARR_DELAY"
	colElapsedDuration = "CRS_ELAPSED_TIME"

	departureLayout = model.DateLayout + "1504"
	ratioDecimals   = 100
)

// Report allows to inspect the outcome of a preparation.
type Report struct {
	AnalyzedFiles []string `json:"analyzed_files"`
	Processed     int      `json:"processed_rows"`
	Parsed        int      `json:"parsed_rows"`
	MissingDelay  int      `json:"missing_delay_rows"`
	Failed        int      `json:"failed_rows"`
	Origins       int      `json:"origins"`
	Routes        int      `json:"routes"`
}

// Err yields [ErrRejectedRows] when some rows failed to parse.
func (r Report) Err() error {
	if r.Failed == 0 {
		return nil
	}

	return fmt.Errorf("%w: failed to parse %d of %d rows", ErrRejectedRows, r.Failed, r.Processed)
}

// columns of the flights of a route.
type columns struct {
	departedOn     []int64
	delayInMinutes []float64
	delayRatio     []float64
}

// Preparer accumulates flights parsed from CSV input, then writes them as columnar JSON files.
type Preparer struct {
	options

	routes map[model.Route]*columns
	report Report
	l      *slog.Logger
}

// New [Preparer] ready to parse CSV files.
func New(opts ...Option) *Preparer {
	return &Preparer{
		options: optionsWithDefaults(opts),
		routes:  make(map[model.Route]*columns),
		l:       slog.Default().With(slog.String("module", "prepare")),
	}
}

// ParseFiles parses CSV files. The file "-" stands for the standard input.
func (p *Preparer) ParseFiles(files ...string) error {
	for _, file := range files {
		var (
			reader io.ReadCloser
			err    error
		)

		if file == "-" {
			reader = os.Stdin
		} else {
			reader, err = os.Open(file)
			if err != nil {
				return fmt.Errorf("input file %q: %w", file, err)
			}
		}

		err = p.ParseInput(reader)
		if file != "-" {
			_ = reader.Close()
		}

		if err != nil {
			return fmt.Errorf("input file %q: %w", file, err)
		}

		p.report.AnalyzedFiles = append(p.report.AnalyzedFiles, file)
	}

	p.l.Info("flight input parsed", slog.Int("parsed_files", len(files)))

	return nil
}

// ParseInput parses CSV input with a header row.
//
// Rows which cannot be parsed are skipped and counted. A missing arrival delay is taken as no delay.
func (p *Preparer) ParseInput(r io.Reader) error {
	reader := csv.NewReader(r)
	reader.Comma = p.delimiter
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}

	index, err := indexHeader(header)
	if err != nil {
		return err
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		p.report.Processed++

		if err != nil {
			p.reject(line, record, err)

			continue
		}

		if err = p.parseRow(index, record); err != nil {
			p.reject(line, record, err)

			continue
		}

		p.report.Parsed++
	}

	return nil
}

// Report produces a [Report] of the parsed input.
func (p *Preparer) Report() Report {
	r := p.report
	r.Routes = len(p.routes)

	origins := make(map[string]struct{}, len(p.routes))
	for route := range p.routes {
		origins[route.Origin] = struct{}{}
	}
	r.Origins = len(origins)

	return r
}

// Connections computed from the parsed routes, with sorted destinations.
func (p *Preparer) Connections() source.Connections {
	connections := make(source.Connections)
	for route := range p.routes {
		connections[route.Origin] = append(connections[route.Origin], route.Destination)
	}

	for origin := range connections {
		slices.Sort(connections[origin])
	}

	return connections
}

// WriteDir writes the connections and the columns of every route into a directory.
//
// The directory is created if needed. Column files left over from a previous preparation are removed.
func (p *Preparer) WriteDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	stale, err := filepath.Glob(filepath.Join(dir, "p-*.json"))
	if err != nil {
		return err
	}
	for _, file := range stale {
		if err := os.Remove(file); err != nil {
			return fmt.Errorf("removing stale column file: %w", err)
		}
	}

	if err := writeJSON(filepath.Join(dir, source.ConnectionsFile), p.Connections()); err != nil {
		return err
	}

	for route, cols := range p.routes {
		for column, data := range map[string]any{
			source.ColumnDepartedOn:     cols.departedOn,
			source.ColumnDelayInMinutes: cols.delayInMinutes,
			source.ColumnDelayRatio:     cols.delayRatio,
		} {
			if err := writeJSON(filepath.Join(dir, source.ColumnFile(route, column)), data); err != nil {
				return err
			}
		}
	}

	report := p.Report()
	p.l.Info("prepared data written",
		slog.String("dir", dir),
		slog.Int("processed_rows", report.Processed),
		slog.Int("routes", report.Routes),
	)

	if report.MissingDelay > 0 {
		p.l.Info("coerced missing delay to 0",
			slog.Int("rows", report.MissingDelay),
			slog.String("share", percentOf(report.MissingDelay, report.Processed)),
		)
	}

	if report.Failed > 0 {
		p.l.Warn("failed to parse rows",
			slog.Int("rows", report.Failed),
			slog.String("share", percentOf(report.Failed, report.Processed)),
		)
	}

	return nil
}

func (p *Preparer) parseRow(index map[string]int, record []string) error {
	field := func(name string) string {
		return strings.TrimSpace(record[index[name]])
	}

	route := model.Route{Origin: field(colOrigin), Destination: field(colDestination)}
	if route.Origin == "" || route.Destination == "" {
		return errors.New("missing origin or destination")
	}

	departure, err := parseDeparture(field(colDate), field(colDepartureTime), p.location)
	if err != nil {
		return err
	}

	var (
		delay   float64
		missing bool
	)
	if raw := field(colArrivalDelay); raw == "" {
		missing = true
	} else {
		delay, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", colArrivalDelay, err)
		}
	}

	duration, err := strconv.ParseFloat(field(colElapsedDuration), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", colElapsedDuration, err)
	}
	if duration == 0 {
		return fmt.Errorf("invalid %s: zero duration", colElapsedDuration)
	}

	ratio := math.Round(delay/duration*ratioDecimals) / ratioDecimals
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) || math.IsInf(delay, 0) {
		return errors.New("delay ratio is not a finite number")
	}

	if missing {
		p.report.MissingDelay++
	}

	cols, ok := p.routes[route]
	if !ok {
		cols = &columns{}
		p.routes[route] = cols
	}

	cols.departedOn = append(cols.departedOn, departure.Unix())
	cols.delayInMinutes = append(cols.delayInMinutes, delay)
	cols.delayRatio = append(cols.delayRatio, ratio)

	return nil
}

func (p *Preparer) reject(line int, record []string, err error) {
	p.report.Failed++
	p.l.Warn("error parsing row, skipping",
		slog.Int("row", line),
		slog.String("record", strings.Join(record, string(p.delimiter))),
		slog.String("error", err.Error()),
	)
}

func indexHeader(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToUpper(strings.TrimSpace(name))] = i
	}

	for _, required := range []string{colOrigin, colDestination, colDate, colDepartureTime, colArrivalDelay, colElapsedDuration} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("missing required column %q in header", required)
		}
	}

	return index, nil
}

// parseDeparture combines a date like "2017-01-31" and a scheduled time like "1605" or "605".
func parseDeparture(date, hhmm string, loc *time.Location) (time.Time, error) {
	const hhmmWidth = 4
	if len(hhmm) < hhmmWidth {
		hhmm = strings.Repeat("0", hhmmWidth-len(hhmm)) + hhmm
	}

	departure, err := time.ParseInLocation(departureLayout, date+hhmm, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid departure %q %q: %w", date, hhmm, err)
	}

	return departure, nil
}

func writeJSON(file string, data any) error {
	content, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding %q: %w", file, err)
	}

	if err := os.WriteFile(file, content, 0o600); err != nil {
		return fmt.Errorf("writing %q: %w", file, err)
	}

	return nil
}

func percentOf(n, total int) string {
	if total == 0 {
		return "0.00%"
	}

	return strconv.FormatFloat(float64(n)*model.RatioPercentFactor/float64(total), 'f', 2, 64) + "%"
}
