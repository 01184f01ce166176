package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pagerender/pagerender/internal/config"
	"github.com/pagerender/pagerender/internal/imageio"
	"github.com/pagerender/pagerender/internal/observability"
	"github.com/pagerender/pagerender/internal/rasterize"
	"github.com/pagerender/pagerender/internal/rendering"
)

var renderCmd = &cobra.Command{
	Use:   "render <file.pdf>",
	Short: "Render document pages to image files",
	Long: `Renders the selected pages of a document to PNG or JPEG files named <stem>-<page>.<ext>.
Pages that fail are reported with their failure category and the command exits non-zero,
but every other page is still written.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

var (
	renderPages     string
	renderDPI       float64
	renderWidth     int
	renderHeight    int
	renderCrop      string
	renderGray      bool
	renderAntialias bool
	renderFormat    string
	renderQuality   int
	renderWorkers   int
	renderOutDir    string
	renderConfig    string
	renderVerbose   bool
	renderMaxPixels int
	renderTimeout   time.Duration
)

func init() {
	renderCmd.Flags().StringVarP(&renderPages, "pages", "p", "", "Pages to render, e.g. 1,3-5 (default: all)")
	renderCmd.Flags().Float64Var(&renderDPI, "dpi", rendering.DefaultDPI, "Resolution in dots per inch")
	renderCmd.Flags().IntVar(&renderWidth, "width", 0, "Target width in pixels (keeps aspect ratio if --height is unset)")
	renderCmd.Flags().IntVar(&renderHeight, "height", 0, "Target height in pixels (keeps aspect ratio if --width is unset)")
	renderCmd.Flags().StringVar(&renderCrop, "crop", "", "Crop rectangle x0,y0,x1,y1 in rendered pixels")
	renderCmd.Flags().BoolVar(&renderGray, "gray", false, "Convert pages to grayscale")
	renderCmd.Flags().BoolVar(&renderAntialias, "antialias", true, "Use high-quality interpolation when scaling")
	renderCmd.Flags().StringVarP(&renderFormat, "format", "f", "png", "Output format: png or jpeg")
	renderCmd.Flags().IntVarP(&renderQuality, "quality", "q", imageio.DefaultJPEGQuality, "JPEG quality (1-100)")
	renderCmd.Flags().IntVarP(&renderWorkers, "workers", "w", 0, "Pages rendered concurrently (default: one per CPU)")
	renderCmd.Flags().StringVarP(&renderOutDir, "out", "o", ".", "Output directory")
	renderCmd.Flags().StringVarP(&renderConfig, "config", "c", "", "Path to JSON config file")
	renderCmd.Flags().BoolVarP(&renderVerbose, "verbose", "v", false, "Print render settings and a summary")
	renderCmd.Flags().IntVar(&renderMaxPixels, "max-pixels", 0, "Refuse pages larger than this many pixels (default: 200000000)")
	renderCmd.Flags().DurationVar(&renderTimeout, "timeout", 0, "Give up on pages not started within this duration (0 = no limit)")

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := resolveRenderConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if renderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, renderTimeout)
		defer cancel()
	}

	report, err := renderDocument(ctx, args[0], renderPages, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	if report.failed > 0 {
		return fmt.Errorf("%d of %d pages failed to render", report.failed, report.total)
	}
	return nil
}

// resolveRenderConfig merges the config file, explicitly set flags and defaults,
// in increasing order of precedence: defaults, file, flags.
func resolveRenderConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if renderConfig != "" {
		loaded, err := config.LoadConfig(renderConfig)
		if err != nil {
			return config.Config{}, err
		}
		cfg = *loaded
	}

	flags := cmd.Flags()
	if flags.Changed("dpi") {
		cfg.DPI = renderDPI
	}
	if flags.Changed("width") {
		cfg.Width = renderWidth
	}
	if flags.Changed("height") {
		cfg.Height = renderHeight
	}
	if flags.Changed("crop") {
		crop, err := parseCrop(renderCrop)
		if err != nil {
			return config.Config{}, err
		}
		cfg.Crop = crop
	}
	if flags.Changed("gray") {
		cfg.Gray = renderGray
	}
	if flags.Changed("antialias") {
		antialias := renderAntialias
		cfg.Antialias = &antialias
	}
	if flags.Changed("format") {
		cfg.Format = renderFormat
	}
	if flags.Changed("quality") {
		cfg.JPEGQuality = renderQuality
	}
	if flags.Changed("workers") {
		cfg.Workers = renderWorkers
	}
	if flags.Changed("out") {
		cfg.OutputDir = renderOutDir
	}
	if flags.Changed("verbose") {
		cfg.Verbose = renderVerbose
	}
	if flags.Changed("max-pixels") {
		cfg.MaxPixels = renderMaxPixels
	}

	merged := cfg.MergeWithDefaults(config.Defaults())
	if err := merged.Validate(); err != nil {
		return config.Config{}, err
	}
	return merged, nil
}

type renderReport struct {
	runID   string
	total   int
	failed  int
	written []string
}

// renderDocument renders the selected pages of path into cfg.OutputDir. Page
// failures are reported on errOut and counted; only failures that stop the
// whole run (bad page selection, unreadable document, unwritable output) are
// returned as errors.
func renderDocument(ctx context.Context, path, pageSpec string, cfg config.Config, out, errOut io.Writer) (*renderReport, error) {
	start := time.Now()
	report := &renderReport{runID: uuid.New().String()}
	printer := observability.NewPrinter(out)

	format, err := imageio.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	var doc *rasterize.Document
	err = rendering.Protect(func() error {
		var err error
		doc, err = rasterize.Open(path)
		return err
	})
	if err != nil {
		var failure *rendering.RenderFailure
		if cfg.Verbose && errors.As(err, &failure) {
			printer.PrintFailure(failure)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if err := doc.Close(); err != nil {
			fmt.Fprintf(errOut, "Warning: failed to close %s: %v\n", path, err)
		}
	}()

	indices, err := parsePageSpec(pageSpec, doc.NumPages())
	if err != nil {
		return nil, err
	}

	pages := make([]rendering.Page, 0, len(indices))
	for _, i := range indices {
		page, err := doc.Page(i)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}

	opts := cfg.ToOptions()
	if cfg.Verbose {
		printer.PrintOptions(path, doc.NumPages(), opts)
	}

	renderer := rasterize.NewRenderer()
	if cfg.MaxPixels > 0 {
		renderer.MaxPixels = cfg.MaxPixels
	}
	guard := rendering.NewGuard(renderer)

	results := guard.RenderPages(ctx, pages, opts, cfg.Workers)
	report.total = len(results)

	for _, failure := range rendering.Failures(results) {
		report.failed++
		fmt.Fprintf(errOut, "page %d: %s (%s): %s\n", failure.Page+1, failure.Kind, failure.Origin, failure.Message)
	}

	report.written, err = imageio.WritePages(cfg.OutputDir, imageio.Stem(path), results, doc.NumPages(), format, cfg.JPEGQuality)
	if err != nil {
		return nil, err
	}

	if cfg.Verbose {
		printer.PrintResults(results)
		printer.PrintSummary(report.runID, results, time.Since(start))
	}
	for _, file := range report.written {
		_, _ = fmt.Fprintf(out, "%s\n", file)
	}

	return report, nil
}
