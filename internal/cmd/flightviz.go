// Package cmd owns the implementation details of the CLI command.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"

	"github.com/fredbi/flightviz/internal/pkg/chart"
	"github.com/fredbi/flightviz/internal/pkg/config"
	"github.com/fredbi/flightviz/internal/pkg/dashboard"
	"github.com/fredbi/flightviz/internal/pkg/image"
	"github.com/fredbi/flightviz/internal/pkg/metric"
	"github.com/fredbi/flightviz/internal/pkg/model"
	"github.com/fredbi/flightviz/internal/pkg/prepare"
	"github.com/fredbi/flightviz/internal/pkg/server"
	"github.com/fredbi/flightviz/internal/pkg/source"
	"github.com/gin-gonic/gin"
)

// Command holds command line flags and executes the flightviz command.
//
// It knows how to load a configuration file in a [config.Config] and manage CLI flag configuration overrides.
//
// The main purpose of this package is to deal with io's: opening and closing files, serving, and trapping signals.
//
// The command runs in one of these modes:
//
//   - prepare: CSV files passed as arguments are converted into the data directory
//   - serve: the dashboard is served over HTTP until interrupted
//   - report: the view of the dashboard is printed as JSON
//   - render (default): the dashboard is rendered as an HTML page, and optionally a PNG image
type Command struct {
	Config      string
	DataDir     string
	Origin      string
	Destination string
	Mode        string
	Filters     FilterFlags
	OutputFile  string
	Png         bool
	Report      bool
	Serve       string
	Prepare     bool
	PrintConfig bool
	Demo        bool
	L           *slog.Logger

	stdout io.Writer
}

// FilterFlags collects repeated -filter flags.
type FilterFlags []string

// String representation of the flag.
func (f *FilterFlags) String() string {
	return strings.Join(*f, " ")
}

// Set adds a filter expression, after checking its syntax.
func (f *FilterFlags) Set(expr string) error {
	if _, _, err := dashboard.ParseFilter(expr); err != nil {
		return err
	}

	*f = append(*f, expr)

	return nil
}

// NewCommand builds a CLI command with registered flags and an injected logger.
func NewCommand() *Command {
	// inject a structured logger
	cli := &Command{
		L: slog.Default().With(slog.String("module", "main")),
	}

	cli.registerFlags()

	return cli
}

// Parse command line flags and arguments.
func (*Command) Parse() error {
	return flag.CommandLine.Parse(os.Args[1:])
}

// Fatalf logs an error message then exits. The output is spewed on both stderr and the structured logger output.
func (c *Command) Fatalf(err error) {
	c.L.Error(err.Error())
	log.Fatalf("%v", err)
}

// Execute the CLI with flags and extra arguments.
//
// If no argument is passed, command line arguments (i.e. [os.Args]) are used.
// Arguments are CSV input files when preparing data, and are ignored otherwise.
func (c *Command) Execute(args ...string) error {
	if args == nil { // passing explicit args allows for testing Execute without altering [os.Args]
		args = c.args()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, cleanup, err := c.prepareConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	switch {
	case c.PrintConfig:
		return cfg.EncodeYAML(c.output())

	case c.Prepare:
		if len(args) == 0 { // no file is provided: assume stdin
			args = append(args, "-")
		}

		return c.prepare(cfg, args)
	}

	// 1. load the flights of the selected route, then apply the filters
	dash, err := c.startDashboard(ctx, cfg)
	if err != nil {
		return err
	}

	if c.Serve != "" {
		if !c.Report {
			gin.SetMode(gin.ReleaseMode)
		}

		return server.New(cfg, dash, server.WithAddress(c.Serve)).Run(ctx)
	}

	if c.Report {
		// just want to report about the content of the dashboard
		enc := json.NewEncoder(c.output())
		enc.SetIndent("", " ")

		return enc.Encode(dash.View())
	}

	// 2. render the page as HTML, possibly to stdout, possibly to temp file
	htmlWriter, htmlCloser, err := getWriter(cfg.Outputs.HTMLFile, "HTML", c.output())
	if err != nil {
		return err
	}

	if err := chart.New(cfg).Render(htmlWriter, dash.View()); err != nil {
		htmlCloser()
		return fmt.Errorf("rendering page: %w", err)
	}

	htmlCloser()

	if cfg.Outputs.PngFile == "" {
		// html only: we're done
		return nil
	}

	// 3. convert the HTML page to a PNG image
	htmlReader, htmlCloser, err := getReader(cfg.Outputs.HTMLFile, "HTML")
	if err != nil {
		return err
	}
	defer htmlCloser()

	pngWriter, pngCloser, err := getWriter(cfg.Outputs.PngFile, "PNG", c.output())
	if err != nil {
		return err
	}

	defer pngCloser()

	r := image.New(image.WithScreenshot(cfg.Render.Screenshot))

	if err = r.Render(ctx, pngWriter, htmlReader); err != nil {
		return fmt.Errorf("rendering image: %w", err)
	}

	return nil
}

func (*Command) args() []string {
	return flag.CommandLine.Args()
}

func (c *Command) output() io.Writer {
	if c.stdout != nil {
		return c.stdout
	}

	return os.Stdout
}

func (c *Command) registerFlags() {
	defaults := Command{
		Config:     "",
		OutputFile: "-",
		Png:        false,
		Report:     false,
	}

	flag.StringVar(&c.Config, "config", defaults.Config, "config file (defaults to the embedded configuration)")
	flag.StringVar(&c.Config, "c", defaults.Config, "config file (shorthand)")
	flag.StringVar(&c.DataDir, "data", defaults.DataDir, "data directory, overrides data.dir")
	flag.StringVar(&c.DataDir, "d", defaults.DataDir, "data directory (shorthand)")
	flag.StringVar(&c.Origin, "origin", defaults.Origin, "origin airport (defaults to the first origin)")
	flag.StringVar(&c.Destination, "destination", defaults.Destination, "destination airport (defaults to the first destination of the origin)")
	flag.StringVar(&c.Mode, "mode", defaults.Mode, fmt.Sprintf("delay metric, one of %v", metric.AllModes()))
	flag.Var(&c.Filters, "filter", "filter like dimension=lo:hi or dimension=k1,k2 (repeatable)")
	flag.StringVar(&c.OutputFile, "output", defaults.OutputFile, "file output or - for standard output")
	flag.StringVar(&c.OutputFile, "o", defaults.OutputFile, "file output or - for standard output (shorthand)")
	flag.BoolVar(&c.Png, "png", defaults.Png, "enable PNG screenshot output")
	flag.BoolVar(&c.Report, "r", defaults.Report, "report the dashboard as JSON, no rendering (shorthand)")
	flag.BoolVar(&c.Report, "report", defaults.Report, "report the dashboard as JSON, no rendering")
	flag.StringVar(&c.Serve, "serve", defaults.Serve, "serve the dashboard over HTTP on this address, e.g. :8080")
	flag.BoolVar(&c.Prepare, "prepare", defaults.Prepare, "prepare the data directory from CSV files passed as arguments")
	flag.BoolVar(&c.PrintConfig, "print-config", defaults.PrintConfig, "print the effective configuration as YAML")
	flag.BoolVar(&c.Demo, "demo", defaults.Demo, "use the built-in demo flights instead of the data directory")
}

func (c *Command) prepareConfig() (cfg *config.Config, cleanup func(), err error) {
	if c.Config == "" {
		cfg, err = config.LoadDefaults()
	} else {
		cfg, err = config.Load(c.Config)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	if err = c.setConfig(cfg); err != nil {
		return nil, nil, fmt.Errorf("preparing config: %w", err)
	}

	if cfg.Outputs.IsTemp {
		cleanup = func() {
			_ = os.Remove(cfg.Outputs.HTMLFile)
		}

		return cfg, cleanup, err
	}

	return cfg, func() {}, err
}

// apply CLI flags overrides to YAML config.
func (c *Command) setConfig(cfg *config.Config) error {
	if c.DataDir != "" {
		cfg.Data.Dir = c.DataDir
	}

	if c.Mode != "" {
		mode, err := metric.ParseMode(c.Mode)
		if err != nil {
			return err
		}
		cfg.Mode = mode
	}

	if c.Destination != "" && c.Origin == "" {
		return errors.New("a destination requires an origin")
	}
	cfg.Route = model.Route{Origin: c.Origin, Destination: c.Destination}

	if c.OutputFile != "" && c.OutputFile != "-" {
		// an outfile is defined: infer the PNG file from the HTML file provided
		cfg.Outputs.HTMLFile = inferHTMLFile(c.OutputFile)
		if cfg.Outputs.PngFile == "" && c.Png {
			cfg.Outputs.PngFile = inferImageFile(cfg.Outputs.HTMLFile)
		}
	}

	if c.Report || c.Prepare || c.PrintConfig || c.Serve != "" {
		return nil
	}

	switch {
	case cfg.Outputs.HTMLFile == "" && cfg.Outputs.PngFile == "":
		c.L.Info("output sent to standard output as HTML, no PNG image rendered")
		if c.Png {
			c.L.Info("set an output file to render a PNG image")
		}
		cfg.Outputs.HTMLFile = "-"
	case cfg.Outputs.HTMLFile == "" && cfg.Outputs.PngFile != "":
		c.L.Info("HTML generated as a temporary file to produce PNG")
		tmp, err := os.CreateTemp("", "flightviz.*.html")
		if err != nil {
			return err
		}
		cfg.Outputs.HTMLFile = tmp.Name()
		cfg.Outputs.IsTemp = true
		_ = tmp.Close()
	}

	return nil
}

// prepare converts CSV files into the data directory, then reports about the outcome.
//
// Rejected rows make the command fail once the data directory is written.
func (c *Command) prepare(cfg *config.Config, args []string) error {
	p := prepare.New(prepare.WithLocation(cfg.TimeLocation()))
	if err := p.ParseFiles(args...); err != nil {
		return fmt.Errorf("parsing files: %w", err)
	}

	if err := p.WriteDir(cfg.Data.Dir); err != nil {
		return fmt.Errorf("writing data: %w", err)
	}

	report := p.Report()
	if c.Report {
		enc := json.NewEncoder(c.output())
		enc.SetIndent("", " ")

		if err := enc.Encode(report); err != nil {
			return err
		}
	}

	return report.Err()
}

func (c *Command) source(cfg *config.Config) source.Source {
	if c.Demo {
		c.L.Info("using demo flights")

		return source.Demo(cfg.TimeLocation())
	}

	c.L.Info("using data directory", slog.String("dir", cfg.Data.Dir))

	return source.NewDirSource(cfg.Data.Dir)
}

// startDashboard loads the selected route, then applies the filters of the command line.
func (c *Command) startDashboard(ctx context.Context, cfg *config.Config) (*dashboard.Controller, error) {
	dash, err := dashboard.New(cfg, c.source(cfg))
	if err != nil {
		return nil, err
	}

	if err := dash.Start(ctx); err != nil {
		return nil, fmt.Errorf("loading flights: %w", err)
	}

	for _, expr := range c.Filters {
		dimension, req, err := dashboard.ParseFilter(expr)
		if err != nil {
			return nil, err
		}

		if _, err := dash.SetFilter(dimension, req); err != nil {
			return nil, fmt.Errorf("filter %q: %w", expr, err)
		}
	}

	return dash, nil
}

func getReader(file, kind string) (rdr *os.File, cleanup func(), err error) {
	rdr, err = os.Open(file)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s file: %q: %w", kind, file, err)
	}

	cleanup = func() {
		_ = rdr.Close()
	}

	return rdr, cleanup, nil
}

func getWriter(file, kind string, stdout io.Writer) (wrt io.Writer, cleanup func(), err error) {
	if file == "-" {
		return stdout, func() {}, nil
	}

	f, err := os.Create(file)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s file for writing: %q: %w", kind, file, err)
	}

	cleanup = func() {
		_ = f.Close()
	}

	return f, cleanup, nil
}

func inferHTMLFile(base string) string {
	ext := path.Ext(base)
	image, _ := strings.CutSuffix(base, ext)

	return image + ".html"
}

func inferImageFile(base string) string {
	ext := path.Ext(base)
	image, _ := strings.CutSuffix(base, ext)

	return image + ".png"
}
