package validator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"webpagegenie/internal/logger"
	"webpagegenie/models"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// BrowserValidator loads generated pages in headless Chrome and captures
// console errors, uncaught exceptions, and the rendered DOM. When Chrome
// is unavailable it degrades to static checks only and says so, rather
// than failing the pipeline.
type BrowserValidator struct {
	networkIdleAfter time.Duration
}

func NewBrowserValidator(networkIdleAfter time.Duration) *BrowserValidator {
	if networkIdleAfter <= 0 {
		networkIdleAfter = 1200 * time.Millisecond
	}
	return &BrowserValidator{networkIdleAfter: networkIdleAfter}
}

// ValidatePage checks the page at url. htmlText is the generated markup
// the static checks run against; they need no browser and always run.
func (bv *BrowserValidator) ValidatePage(ctx context.Context, url, htmlText string) models.ValidationResult {
	result := models.ValidationResult{
		ConsoleErrors: []string{},
		PageErrors:    []string{},
		StaticIssues:  StaticCheck(htmlText),
	}

	dom, consoleErrs, pageErrs, err := bv.loadInBrowser(ctx, url)
	if err != nil {
		logger.Warn("Headless browser unavailable, static checks only", "error", err)
		result.Status = models.ValidationUnavailable
		result.OK = false
		return result
	}

	result.DOM = dom
	result.ConsoleErrors = consoleErrs
	result.PageErrors = pageErrs
	if len(result.Issues()) == 0 {
		result.Status = models.ValidationOK
		result.OK = true
	} else {
		result.Status = models.ValidationErrors
		result.OK = false
	}
	return result
}

func (bv *BrowserValidator) loadInBrowser(ctx context.Context, url string) (dom string, consoleErrs, pageErrs []string, err error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
	)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	consoleErrs = []string{}
	pageErrs = []string{}
	var mu sync.Mutex

	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *runtime.EventConsoleAPICalled:
			if e.Type != runtime.APITypeError && e.Type != runtime.APITypeWarning {
				return
			}
			mu.Lock()
			consoleErrs = append(consoleErrs, formatConsoleArgs(e.Args))
			mu.Unlock()
		case *runtime.EventExceptionThrown:
			mu.Lock()
			pageErrs = append(pageErrs, e.ExceptionDetails.Error())
			mu.Unlock()
		}
	})

	if err := chromedp.Run(browserCtx, chromedp.Navigate(url)); err != nil {
		return "", nil, nil, err
	}

	// Ready check and network idle are soft-fail: a page that never
	// settles still gets its DOM read.
	readyCtx, cancelReady := context.WithTimeout(browserCtx, 10*time.Second)
	_ = chromedp.Run(readyCtx, chromedp.WaitReady("body", chromedp.ByQuery))
	cancelReady()
	idleCtx, cancelIdle := context.WithTimeout(browserCtx, bv.networkIdleAfter+5*time.Second)
	_ = chromedp.Run(idleCtx, waitForNetworkIdle(bv.networkIdleAfter))
	cancelIdle()

	if err := chromedp.Run(browserCtx, chromedp.OuterHTML("html", &dom, chromedp.ByQuery)); err != nil {
		return "", nil, nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	return dom, consoleErrs, pageErrs, nil
}

// waitForNetworkIdle resolves once no resource activity has been observed
// for d, tracked in-page via PerformanceObserver.
func waitForNetworkIdle(d time.Duration) chromedp.ActionFunc {
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
		return chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf(js, int(d.Milliseconds())), nil,
			func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
				return p.WithAwaitPromise(true)
			}))
	}
}

func formatConsoleArgs(args []*runtime.RemoteObject) string {
	if len(args) == 0 {
		return "console error"
	}
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		if a.Value != nil {
			out += string(a.Value)
		} else if a.Description != "" {
			out += a.Description
		}
	}
	return out
}
