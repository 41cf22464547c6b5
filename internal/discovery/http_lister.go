package discovery

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/vtecchio/dadosbr-pipeline/internal/models"
)

// Fetcher downloads one URL fully into memory.
type Fetcher interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// DirectoryLister answers "what remote periods and files exist". The HTTP
// variant scrapes the mirror's directory-listing pages; the object-store
// variant lists already-persisted prefixes. Keeping the fragile page parsing
// behind this interface means a remote layout change touches one type.
type DirectoryLister interface {
	ListPeriods(ctx context.Context) ([]models.Period, error)
	ListFiles(ctx context.Context, period models.Period) ([]models.RemoteFile, error)
}

// Archive name patterns published by the Receita Federal mirror.
var (
	EmpresasPattern         = regexp.MustCompile(`(?i)^Empresas\d*\.zip$`)
	EstabelecimentosPattern = regexp.MustCompile(`(?i)^Estabelecimentos\d*\.zip$`)
	ReceitaArchivePattern   = regexp.MustCompile(`(?i)^(Empresas|Estabelecimentos)\d*\.zip$`)
)

var periodHrefPattern = regexp.MustCompile(`^\d{4}-\d{2}/$`)

// HTTPLister discovers year-month folders on a remote HTTP directory listing.
type HTTPLister struct {
	fetcher       Fetcher
	baseURL       string
	window        models.Window
	allowedMonths map[string]bool
	filePattern   *regexp.Regexp
}

func NewHTTPLister(fetcher Fetcher, baseURL string, window models.Window, allowedMonths []string, filePattern *regexp.Regexp) *HTTPLister {
	months := make(map[string]bool, len(allowedMonths))
	for _, m := range allowedMonths {
		months[m] = true
	}
	if filePattern == nil {
		filePattern = ReceitaArchivePattern
	}
	return &HTTPLister{
		fetcher:       fetcher,
		baseURL:       strings.TrimSuffix(baseURL, "/") + "/",
		window:        window,
		allowedMonths: months,
		filePattern:   filePattern,
	}
}

// ListPeriods fetches the root listing and returns the in-window year-month
// folders, ascending. Entries that do not match the period naming pattern are
// silently excluded; that is a tolerance policy, not a data-integrity signal.
func (l *HTTPLister) ListPeriods(ctx context.Context) ([]models.Period, error) {
	page, err := l.fetcher.Download(ctx, l.baseURL)
	if err != nil {
		return nil, &models.DiscoveryError{URL: l.baseURL, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, &models.DiscoveryError{URL: l.baseURL, Err: err}
	}

	var periods []models.Period
	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || !periodHrefPattern.MatchString(href) {
			return
		}
		period, err := models.ParseMonthPeriod(href)
		if err != nil {
			return
		}
		if !l.window.Contains(period) {
			return
		}
		if len(l.allowedMonths) > 0 && !l.allowedMonths[period.String()[5:]] {
			return
		}
		periods = append(periods, period)
	})

	sort.Slice(periods, func(i, j int) bool {
		return periods[i].Compare(periods[j]) < 0
	})
	return periods, nil
}

// ListFiles fetches one period's listing page and returns the matching
// archives, deduplicated and sorted lexically. An existing-but-empty period
// yields an empty slice, not an error.
func (l *HTTPLister) ListFiles(ctx context.Context, period models.Period) ([]models.RemoteFile, error) {
	folderURL := l.baseURL + period.String() + "/"

	page, err := l.fetcher.Download(ctx, folderURL)
	if err != nil {
		var notFound *models.NotFoundError
		if errors.As(err, &notFound) {
			return nil, err
		}
		return nil, &models.DiscoveryError{URL: folderURL, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, &models.DiscoveryError{URL: folderURL, Err: err}
	}

	seen := make(map[string]bool)
	var names []string
	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || !l.filePattern.MatchString(href) || seen[href] {
			return
		}
		seen[href] = true
		names = append(names, href)
	})
	sort.Strings(names)

	files := make([]models.RemoteFile, 0, len(names))
	for _, name := range names {
		files = append(files, models.RemoteFile{
			Name:       name,
			URL:        folderURL + name,
			DestPrefix: period.String(),
			MarkerStem: name,
		})
	}
	return files, nil
}
