// Package cbr downloads daily exchange rates published by the Central Bank
// of Russia as XML.
package cbr

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"

	"vacancy-stats/models"
	"vacancy-stats/utils"
)

// DefaultBaseURL is the daily rates endpoint.
const DefaultBaseURL = "https://www.cbr.ru/scripts/XML_daily.asp"

// rateDecimals is the precision kept for a per-unit rate.
const rateDecimals = 6

// ErrBadStatus is returned for a non-200 response.
var ErrBadStatus = errors.New("cbr: unexpected status")

// valCurs mirrors the ValCurs document.
type valCurs struct {
	Date    string   `xml:"Date,attr"`
	Valutes []valute `xml:"Valute"`
}

type valute struct {
	CharCode string `xml:"CharCode"`
	Nominal  string `xml:"Nominal"`
	Value    string `xml:"Value"`
}

// Options configures a Client.
type Options struct {
	BaseURL        string
	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int
	RetryDelay     time.Duration
	HTTPClient     *http.Client
}

// Client fetches monthly rate snapshots.
type Client struct {
	baseURL        string
	http           *http.Client
	maxConcurrency int
	rateLimitMs    int
	retry          *utils.RetryConfig
	logger         *utils.Logger
}

// New creates a Client.
func New(opts Options, logger *utils.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:        opts.BaseURL,
		http:           opts.HTTPClient,
		maxConcurrency: opts.MaxConcurrency,
		rateLimitMs:    opts.RateLimitMs,
		retry: &utils.RetryConfig{
			MaxAttempts: opts.MaxRetries,
			BaseDelay:   opts.RetryDelay,
			Logger:      logger,
		},
		logger: logger,
	}
}

// FetchHistory downloads the month-end rates of every month in
// months, keeping only codes. Requests run on a rate-limited worker pool;
// each result lands in its own slot so months keep their input order.
func (c *Client) FetchHistory(ctx context.Context, months []time.Time, codes []string) (*models.RateHistory, error) {
	results := make([]models.MonthlyRates, len(months))
	errs := make([]error, len(months))
	requested := utils.NewKeySet[string]()
	pool := utils.NewWorkerPool(c.maxConcurrency, c.rateLimitMs)

	for i, month := range months {
		if !requested.Add(month.Format("2006-01")) {
			continue
		}
		pool.Submit(func() {
			results[i], errs[i] = c.FetchMonth(ctx, month, codes)
		})
	}
	pool.Wait()
	c.logger.Debug("[cbr] Requested %d distinct months", requested.Size())

	h := &models.RateHistory{Codes: codes}
	for i := range months {
		if errs[i] != nil {
			return nil, errs[i]
		}
		if results[i].Month != "" {
			h.Months = append(h.Months, results[i])
		}
	}
	c.logger.Info("[cbr] Fetched %d monthly snapshots for %d currencies", len(h.Months), len(codes))
	return h, nil
}

// FetchMonth downloads the rates in force on the last day of month. The
// snapshot is stored under month, so a vacancy is priced at its month's
// closing rate.
func (c *Client) FetchMonth(ctx context.Context, month time.Time, codes []string) (models.MonthlyRates, error) {
	url := fmt.Sprintf("%s?date_req=%s", c.baseURL, RequestDate(month))
	key := month.Format("2006-01")

	var doc *valCurs
	err := c.retry.Do(ctx, "cbr-"+key, func() error {
		var err error
		doc, err = c.get(ctx, url)
		return err
	})
	if err != nil {
		return models.MonthlyRates{}, err
	}

	rates, err := extractRates(doc, codes)
	if err != nil {
		return models.MonthlyRates{}, fmt.Errorf("cbr: %s: %w", key, err)
	}
	c.logger.Debug("[cbr] %s: %d of %d rates", key, len(rates), len(codes))
	return models.MonthlyRates{Month: key, Rates: rates}, nil
}

// RequestDate formats the last day of month's calendar month as the
// service expects it, e.g. "28/02/2003".
func RequestDate(month time.Time) string {
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 1, -1).Format("02/01/2006")
}

func (c *Client) get(ctx context.Context, url string) (*valCurs, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, utils.Permanent(err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, utils.Permanent(err)
		}
		return nil, err
	}
	return decode(resp.Body)
}

func decode(r io.Reader) (*valCurs, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		switch strings.ToLower(label) {
		case "windows-1251", "cp1251":
			return charmap.Windows1251.NewDecoder().Reader(input), nil
		case "utf-8", "":
			return input, nil
		}
		return nil, fmt.Errorf("cbr: unsupported charset %q", label)
	}

	var doc valCurs
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("cbr: decode: %w", err)
	}
	return &doc, nil
}

// extractRates returns Value/Nominal for each wanted code, rounded to six
// places. Codes absent from doc are absent from the result.
func extractRates(doc *valCurs, codes []string) (map[string]decimal.Decimal, error) {
	wanted := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		wanted[c] = struct{}{}
	}

	rates := make(map[string]decimal.Decimal, len(codes))
	for _, v := range doc.Valutes {
		if _, ok := wanted[v.CharCode]; !ok {
			continue
		}
		value, err := decimal.NewFromString(strings.Replace(strings.TrimSpace(v.Value), ",", ".", 1))
		if err != nil {
			return nil, fmt.Errorf("bad value %q for %s", v.Value, v.CharCode)
		}
		nominal, err := decimal.NewFromString(strings.TrimSpace(v.Nominal))
		if err != nil || nominal.IsZero() {
			return nil, fmt.Errorf("bad nominal %q for %s", v.Nominal, v.CharCode)
		}
		rates[v.CharCode] = value.DivRound(nominal, rateDecimals+2).RoundBank(rateDecimals)
	}
	return rates, nil
}
