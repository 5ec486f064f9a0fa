package crawler

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/quailhollow/docsearch/pkg/models"
)

// Fetcher issues a single GET and returns the status code and body.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (int, []byte, error)
}

// HTTPFetcher implements Fetcher over net/http with a per-request
// timeout. Docs portals frequently sit behind self-signed certs, so
// verification can be disabled via DOCSEARCH_SKIP_TLS_VERIFY.
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	transport := &http.Transport{}
	if skipTLS, _ := strconv.ParseBool(os.Getenv("DOCSEARCH_SKIP_TLS_VERIFY")); skipTLS {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout, Transport: transport},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, u string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

// Crawler walks a documentation site breadth first from a seed URL and
// splits every reachable same-scope page into heading-delimited
// passages. Crawl state (visited set, frontier) lives for one
// invocation only.
type Crawler struct {
	Seed     string
	Fetcher  Fetcher
	Limiter  *rate.Limiter
	MaxPages int
}

// New creates a Crawler with a default fetcher, a polite request rate
// and a page bound so an external site graph cannot run us forever.
func New(seed string, fetchTimeout time.Duration, maxPages int) *Crawler {
	return &Crawler{
		Seed:     seed,
		Fetcher:  NewHTTPFetcher(fetchTimeout),
		Limiter:  rate.NewLimiter(rate.Limit(4), 1),
		MaxPages: maxPages,
	}
}

// Passages crawls from the seed and returns one passage per heading
// section, in emission order. Page fetch or parse failures are logged
// and skipped; they never abort the crawl.
func (c *Crawler) Passages(ctx context.Context) ([]models.Passage, error) {
	seed := strings.TrimSuffix(c.Seed, "/")
	base, err := url.Parse(seed)
	if err != nil {
		return nil, err
	}

	visited := make(map[string]struct{})
	frontier := []string{seed}
	var passages []models.Passage
	pages := 0
	idx := 0

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return passages, err
		}

		u := frontier[0]
		frontier = frontier[1:]
		if _, ok := visited[u]; ok {
			continue
		}
		visited[u] = struct{}{}

		if c.MaxPages > 0 && pages >= c.MaxPages {
			log.Warn().Int("max_pages", c.MaxPages).Msg("crawl page bound reached, stopping")
			break
		}
		pages++

		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return passages, err
			}
		}

		status, body, err := c.Fetcher.Fetch(ctx, u)
		if err != nil {
			log.Warn().Err(err).Str("url", u).Msg("could not fetch docs page")
			continue
		}
		if status < 200 || status >= 300 {
			log.Warn().Int("status", status).Str("url", u).Msg("could not fetch docs page")
			continue
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			log.Warn().Err(err).Str("url", u).Msg("could not parse docs page")
			continue
		}

		pageURL, err := url.Parse(u)
		if err != nil {
			pageURL = base
		}

		doc.Find("h1, h2, h3").Each(func(_ int, h *goquery.Selection) {
			p, ok := sectionPassage(h, idx)
			if !ok {
				return
			}
			passages = append(passages, p)
			idx++
		})

		doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			next, ok := resolveInScope(pageURL, base, href)
			if !ok {
				return
			}
			if _, seen := visited[next]; !seen {
				frontier = append(frontier, next)
			}
		})
	}

	log.Info().Int("pages", pages).Int("passages", len(passages)).Msg("docs crawl finished")
	return passages, nil
}

// sectionPassage collects the heading's following siblings up to the
// next heading and joins their text. Sections with no body are skipped.
func sectionPassage(h *goquery.Selection, idx int) (models.Passage, bool) {
	title := strings.TrimSpace(h.Text())
	var parts []string
	h.NextUntil("h1, h2, h3").Each(func(_ int, sib *goquery.Selection) {
		if t := strings.TrimSpace(sib.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		return models.Passage{}, false
	}
	return models.Passage{
		Source:  models.SourceDocs,
		DocID:   strconv.Itoa(idx),
		Content: title + "\n\n" + strings.Join(parts, "\n\n"),
	}, true
}

// resolveInScope resolves href against the current page and keeps only
// links on the seed's host under the seed's path prefix. Fragments are
// dropped so anchors don't re-enqueue a page already seen.
func resolveInScope(pageURL, base *url.URL, href string) (string, bool) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	full := pageURL.ResolveReference(ref)
	full.Fragment = ""
	if full.Host != base.Host || !strings.HasPrefix(full.Path, base.Path) {
		return "", false
	}
	return full.String(), true
}
