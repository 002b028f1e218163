package report

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/shopspring/decimal"

	"vacancy-stats/models"
	"vacancy-stats/storage"
	"vacancy-stats/utils"
)

//go:embed templates/report.html
var templateFS embed.FS

var reportTemplate = template.Must(
	template.New("report.html").
		Funcs(template.FuncMap{"percent": percent}).
		ParseFS(templateFS, "templates/report.html"),
)

var (
	_ storage.StatisticsWriter = (*ExcelWriter)(nil)
	_ storage.StatisticsWriter = (*PDFWriter)(nil)
)

// PDFWriter renders the statistics as an HTML page and prints it to PDF
// with headless Chrome.
type PDFWriter struct {
	path      string
	chromeBin string
	timeout   time.Duration
	logger    *utils.Logger
}

// NewPDFWriter creates a writer for path. chromeBin may be empty, in which
// case a browser is looked up on the system.
func NewPDFWriter(path, chromeBin string, logger *utils.Logger) *PDFWriter {
	return &PDFWriter{
		path:      path,
		chromeBin: FindChromeBinary(chromeBin),
		timeout:   60 * time.Second,
		logger:    logger,
	}
}

// Path returns the output file path.
func (w *PDFWriter) Path() string { return w.path }

type yearRow struct {
	Year           int
	Salary         int
	FilteredSalary int
	Count          int
	FilteredCount  int
}

type reportView struct {
	VacancyName string
	Total       int
	Rejected    int
	Years       []yearRow
	Salaries    []models.AreaSalary
	Shares      []models.AreaShare
}

// RenderHTML writes the HTML report for stats to out.
func RenderHTML(out io.Writer, stats *models.Statistics) error {
	view := reportView{
		VacancyName: stats.VacancyName,
		Total:       stats.Total,
		Rejected:    stats.Rejected,
		Salaries:    stats.TopSalaryByArea,
		Shares:      stats.TopShareByArea,
	}
	for _, yv := range stats.SalaryByYear {
		row := yearRow{Year: yv.Year, Salary: yv.Value}
		row.Count, _ = models.ValueFor(stats.CountByYear, yv.Year)
		row.FilteredSalary, _ = models.ValueFor(stats.FilteredSalaryByYear, yv.Year)
		row.FilteredCount, _ = models.ValueFor(stats.FilteredCountByYear, yv.Year)
		view.Years = append(view.Years, row)
	}
	return reportTemplate.Execute(out, view)
}

// WriteStatistics renders stats and prints it to the output file.
func (w *PDFWriter) WriteStatistics(stats *models.Statistics) error {
	var html bytes.Buffer
	if err := RenderHTML(&html, stats); err != nil {
		return fmt.Errorf("pdf: render html: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	pdf, err := w.print(ctx, html.String())
	if err != nil {
		return fmt.Errorf("pdf: print: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("pdf: create dir: %w", err)
	}
	if err := os.WriteFile(w.path, pdf, 0o644); err != nil {
		return fmt.Errorf("pdf: write %q: %w", w.path, err)
	}
	w.logger.Info("[pdf] Report saved to %s (%d bytes)", w.path, len(pdf))
	return nil
}

func (w *PDFWriter) print(ctx context.Context, html string) ([]byte, error) {
	w.logger.Debug("[pdf] Using browser binary: %s", w.chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if w.chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(w.chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	return pdf, err
}

// FindChromeBinary returns configured when set, otherwise the first
// Chrome or Chromium found on PATH or in the usual install locations.
// An empty result lets chromedp use its own default.
func FindChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func percent(share decimal.Decimal) string {
	return share.Shift(2).StringFixed(2) + "%"
}
