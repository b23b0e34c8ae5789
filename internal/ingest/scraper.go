package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"webpagegenie/internal/config"
	"webpagegenie/internal/logger"
	"webpagegenie/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	"github.com/chromedp/chromedp"
	colly "github.com/gocolly/colly/v2"
	"golang.org/x/net/html/charset"
)

var httpTransport = &http.Transport{
	DisableCompression: false,
}

var (
	hexColorRe   = regexp.MustCompile(`#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})\b`)
	fontFamilyRe = regexp.MustCompile(`font-family\s*:\s*([^;}{"]+)`)
)

const (
	maxDesignItems = 20
	browserUA      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

// Scraper fetches a reference URL and extracts its design data: title,
// headings, asset URLs, fonts, colors, images and main text. That data
// feeds page-creation prompts so new pages can follow an existing look.
type Scraper struct {
	cfg *config.Config
}

func NewScraper(cfg *config.Config) *Scraper {
	return &Scraper{cfg: cfg}
}

// Scrape fetches rawURL and returns its design data. When JS rendering
// is enabled the page is first loaded in headless Chrome; the plain
// fetch is the fallback.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (*models.ScrapedSite, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	target := parsed.String()

	if s.cfg.ScrapeRenderJS {
		if site, err := s.scrapeRendered(ctx, target); err == nil {
			return site, nil
		} else {
			logger.Warn("JS render failed, falling back to plain fetch", "url", target, "error", err)
		}
	}
	return s.scrapePlain(ctx, target)
}

func (s *Scraper) scrapeRendered(ctx context.Context, target string) (*models.ScrapedSite, error) {
	timeout := s.cfg.ScrapeTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	renderCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	htmlText, err := renderPageHTML(renderCtx, target, s.cfg.NetworkIdleWait)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return nil, err
	}
	return extractDesignData(doc.Selection, target), nil
}

func (s *Scraper) scrapePlain(ctx context.Context, target string) (*models.ScrapedSite, error) {
	parsed, _ := url.Parse(target)
	hostname := strings.ToLower(parsed.Hostname())
	hostClean := strings.TrimPrefix(hostname, "www.")

	c := colly.NewCollector(
		colly.AllowedDomains(hostname, hostClean, "www."+hostClean),
		colly.MaxDepth(1),
	)
	c.WithTransport(httpTransport)
	c.UserAgent = browserUA
	if s.cfg.ScrapeTimeout > 0 {
		c.SetRequestTimeout(s.cfg.ScrapeTimeout)
	} else {
		c.SetRequestTimeout(60 * time.Second)
	}
	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       1 * time.Second,
	})

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
		r.Headers.Set("Accept-Encoding", "gzip, deflate, br")
		r.Headers.Set("Upgrade-Insecure-Requests", "1")
	})

	// Brotli is not decoded by the standard transport and charset may
	// not be UTF-8, so fix up the body before parsing.
	c.OnResponse(func(r *colly.Response) {
		contentType := r.Headers.Get("Content-Type")
		if contentType != "" && !strings.Contains(contentType, "text/html") &&
			!strings.Contains(contentType, "application/xhtml+xml") {
			return
		}
		var bodyReader io.Reader = bytes.NewReader(r.Body)
		if strings.Contains(r.Headers.Get("Content-Encoding"), "br") {
			if decompressed, err := io.ReadAll(brotli.NewReader(bodyReader)); err == nil {
				r.Body = decompressed
				bodyReader = bytes.NewReader(decompressed)
			}
		}
		if len(r.Body) > 0 {
			if utf8Reader, err := charset.NewReader(bodyReader, contentType); err == nil {
				if decoded, err := io.ReadAll(utf8Reader); err == nil && len(decoded) > 0 {
					r.Body = decoded
				}
			}
		}
	})

	var (
		mu   sync.Mutex
		site *models.ScrapedSite
	)
	c.OnHTML("html", func(e *colly.HTMLElement) {
		mu.Lock()
		defer mu.Unlock()
		if site != nil {
			return
		}
		site = extractDesignData(e.DOM, e.Request.URL.String())
	})

	var fetchErr error
	c.OnError(func(r *colly.Response, err error) {
		if r.StatusCode == http.StatusForbidden {
			fetchErr = fmt.Errorf("access forbidden (403): the site blocked the scraper")
			return
		}
		if r.StatusCode == http.StatusTooManyRequests {
			fetchErr = fmt.Errorf("rate limited (429): try again later")
			return
		}
		fetchErr = fmt.Errorf("fetch %s: %w", r.Request.URL, err)
	})

	if err := c.Visit(target); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	if site == nil {
		if fetchErr != nil {
			return nil, fetchErr
		}
		return nil, fmt.Errorf("no HTML content at %s", target)
	}
	return site, nil
}

// extractDesignData reads everything the creation prompt cares about
// out of a parsed document.
func extractDesignData(sel *goquery.Selection, pageURL string) *models.ScrapedSite {
	site := &models.ScrapedSite{
		URL:       pageURL,
		Title:     strings.TrimSpace(sel.Find("title").First().Text()),
		ScrapedAt: time.Now(),
	}

	sel.Find("h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
		if len(site.Headings) >= maxDesignItems {
			return
		}
		if text := normalizeSpace(s.Text()); text != "" {
			site.Headings = append(site.Headings, text)
		}
	})

	sel.Find("link[rel='stylesheet'][href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href = strings.TrimSpace(href); href == "" || len(site.Stylesheets) >= maxDesignItems {
			return
		}
		site.Stylesheets = append(site.Stylesheets, resolveRef(pageURL, href))
		if strings.Contains(strings.ToLower(href), "fonts.googleapis") {
			site.Fonts = append(site.Fonts, href)
		}
	})

	sel.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if src = strings.TrimSpace(src); src != "" && len(site.Scripts) < maxDesignItems {
			site.Scripts = append(site.Scripts, resolveRef(pageURL, src))
		}
	})

	sel.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if src = strings.TrimSpace(src); src == "" || strings.HasPrefix(src, "data:") {
			return
		}
		if len(site.Images) >= maxDesignItems {
			return
		}
		alt, _ := s.Attr("alt")
		site.Images = append(site.Images, models.ScrapedImage{
			URL: resolveRef(pageURL, src),
			Alt: strings.TrimSpace(alt),
		})
	})

	var styleText strings.Builder
	sel.Find("style").Each(func(_ int, s *goquery.Selection) {
		styleText.WriteString(s.Text())
		styleText.WriteString("\n")
	})
	sel.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		inline, _ := s.Attr("style")
		styleText.WriteString(inline)
		styleText.WriteString(";")
	})
	site.Colors = uniqueLimited(hexColorRe.FindAllString(styleText.String(), -1), maxDesignItems)
	for _, m := range fontFamilyRe.FindAllStringSubmatch(styleText.String(), -1) {
		if len(site.Fonts) >= maxDesignItems {
			break
		}
		site.Fonts = append(site.Fonts, normalizeSpace(m[1]))
	}
	site.Fonts = uniqueLimited(site.Fonts, maxDesignItems)

	site.Text = extractMainText(sel)
	return site
}

// extractMainText prefers semantic content containers and falls back to
// the whole body.
func extractMainText(sel *goquery.Selection) string {
	doc := sel.Clone()
	doc.Find("script, style, nav, footer, header, aside, .nav, .navbar, .footer, .sidebar").Remove()

	selectors := []string{"main", "article", "[role='main']", ".content", "#content", "body"}

	var content strings.Builder
	for _, selector := range selectors {
		found := false
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if len(text) > 100 {
				content.WriteString(text)
				content.WriteString("\n\n")
				found = true
			}
		})
		if found {
			break
		}
	}
	if content.Len() == 0 {
		content.WriteString(doc.Find("body").Text())
	}

	lines := strings.Split(content.String(), "\n")
	var cleaned []string
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}

// renderPageHTML loads the page in headless Chrome and returns its
// rendered markup. Ready and network-idle waits soft-fail so a page
// that never settles still returns whatever rendered.
func renderPageHTML(ctx context.Context, target string, networkIdleAfter time.Duration) (string, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(browserUA),
	)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	if err := chromedp.Run(browserCtx, chromedp.Navigate(target)); err != nil {
		return "", err
	}

	readyCtx, cancelReady := context.WithTimeout(browserCtx, 10*time.Second)
	_ = chromedp.Run(readyCtx, chromedp.WaitReady("body", chromedp.ByQuery))
	cancelReady()
	if networkIdleAfter > 0 {
		idleCap := networkIdleAfter
		if idleCap > 5*time.Second {
			idleCap = 5 * time.Second
		}
		idleCtx, cancelIdle := context.WithTimeout(browserCtx, idleCap+1*time.Second)
		_ = chromedp.Run(idleCtx, waitIdle(idleCap))
		cancelIdle()
	}

	var htmlText string
	if err := chromedp.Run(browserCtx, chromedp.OuterHTML("html", &htmlText, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return htmlText, nil
}

// waitIdle resolves once no resource activity has been seen for d,
// tracked in-page via PerformanceObserver.
func waitIdle(d time.Duration) chromedp.ActionFunc {
	js := `(function(waitMs){
      return new Promise((resolve)=>{
        if (!('PerformanceObserver' in window)) {
          setTimeout(resolve, waitMs);
          return;
        }
        let last = Date.now();
        const obs = new PerformanceObserver(()=>{ last = Date.now(); });
        try { obs.observe({entryTypes:['resource','navigation']}); } catch(e) {}
        const tick = () => {
          if (Date.now()-last >= waitMs) { try { obs.disconnect(); } catch(e){} resolve(); return; }
          setTimeout(tick, 100);
        };
        tick();
      });
    })(%d);`
	return func(ctx context.Context) error {
		return chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf(js, int(d.Milliseconds())), nil))
	}
}

func resolveRef(pageURL, ref string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ref
	}
	resolved, err := base.Parse(ref)
	if err != nil {
		return ref
	}
	return resolved.String()
}

func uniqueLimited(items []string, limit int) []string {
	seen := map[string]bool{}
	var out []string
	for _, item := range items {
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
		if len(out) >= limit {
			break
		}
	}
	return out
}
