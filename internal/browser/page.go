// internal/browser/page.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/inspector"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pypi-token-client/internal/browser/dom"
	"github.com/xkilldash9x/pypi-token-client/internal/config"
)

// Page is the small set of tab operations the token client performs. Every
// call blocks until the browser has finished the step or ctx ends.
type Page interface {
	// Navigate loads url and waits until the document is ready.
	Navigate(ctx context.Context, url string) error
	// Snapshot captures the current URL and serialized DOM.
	Snapshot(ctx context.Context) (*dom.Snapshot, error)
	// Fill sets the value of the input matching selector.
	Fill(ctx context.Context, selector, value string) error
	// SelectOption picks the option with the given value in a <select>.
	SelectOption(ctx context.Context, selector, value string) error
	// Click clicks the element matching selector without waiting for a
	// navigation.
	Click(ctx context.Context, selector string) error
	// Submit presses Enter in the field matching selector and waits for the
	// resulting navigation and DOM-ready.
	Submit(ctx context.Context, selector string) error
	// WaitClosed blocks until the user closes the tab or ctx ends.
	WaitClosed(ctx context.Context) error
}

const closePollInterval = time.Second

type chromePage struct {
	tabCtx context.Context
	cfg    config.BrowserConfig
	logger *zap.Logger
}

func newChromePage(tabCtx context.Context, cfg config.BrowserConfig, logger *zap.Logger) *chromePage {
	return &chromePage{tabCtx: tabCtx, cfg: cfg, logger: logger.Named("page")}
}

// --- Context plumbing ---

// runCtx ties an operation to both the tab and the caller, bounded by timeout.
func (p *chromePage) runCtx(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	combined, cancelCombined := CombineContext(p.tabCtx, ctx)
	if timeout <= 0 {
		// Unbounded: only the tab or the caller can end it.
		return combined, cancelCombined
	}
	timed, cancelTimed := context.WithTimeout(combined, timeout)
	return timed, func() {
		cancelTimed()
		cancelCombined()
	}
}

func (p *chromePage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := p.runCtx(ctx, timeout)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// --- Page actions ---

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	p.logger.Debug("Navigating.", zap.String("url", url))
	err := p.run(ctx, p.cfg.NavigationTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (p *chromePage) Snapshot(ctx context.Context) (*dom.Snapshot, error) {
	var location, html string
	// One round trip, so the URL and the markup describe the same document.
	err := p.run(ctx, p.cfg.ActionTimeout,
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to capture page: %w", err)
	}
	return dom.NewSnapshot(location, html)
}

func (p *chromePage) Fill(ctx context.Context, selector, value string) error {
	if err := p.run(ctx, p.cfg.ActionTimeout, chromedp.SetValue(selector, value, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to fill %s: %w", selector, err)
	}
	return nil
}

func (p *chromePage) SelectOption(ctx context.Context, selector, value string) error {
	// Setting the value of a <select> picks the matching option.
	if err := p.run(ctx, p.cfg.ActionTimeout, chromedp.SetValue(selector, value, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to select %q in %s: %w", value, selector, err)
	}
	return nil
}

func (p *chromePage) Click(ctx context.Context, selector string) error {
	if err := p.run(ctx, p.cfg.ActionTimeout, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to click %s: %w", selector, err)
	}
	return nil
}

func (p *chromePage) Submit(ctx context.Context, selector string) error {
	runCtx, cancel := p.runCtx(ctx, p.cfg.NavigationTimeout)
	defer cancel()

	// RunResponse returns once the main frame has navigated and loaded.
	if _, err := chromedp.RunResponse(runCtx, chromedp.SendKeys(selector, kb.Enter, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to submit form via %s: %w", selector, err)
	}
	// The response arrives before the new DOM is usable.
	if err := chromedp.Run(runCtx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("page did not become ready after submitting %s: %w", selector, err)
	}
	return nil
}

// --- Waiting for the user ---

func (p *chromePage) WaitClosed(ctx context.Context) error {
	// Closing the tab detaches the inspector. Not every Chromium build
	// reports that, so the target list is polled as well.
	closed := make(chan struct{})
	var once sync.Once
	markClosed := func() { once.Do(func() { close(closed) }) }

	chromedp.ListenTarget(p.tabCtx, func(ev interface{}) {
		if _, ok := ev.(*inspector.EventDetached); ok {
			markClosed()
		}
	})

	ticker := time.NewTicker(closePollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return nil
		case <-p.tabCtx.Done():
			// The whole browser went away.
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !p.tabAlive(ctx) {
				return nil
			}
		}
	}
}

// tabAlive reports whether the tab is still among the browser's targets.
func (p *chromePage) tabAlive(ctx context.Context) bool {
	c := chromedp.FromContext(p.tabCtx)
	if c == nil || c.Target == nil {
		return false
	}
	runCtx, cancel := p.runCtx(ctx, p.cfg.ActionTimeout)
	defer cancel()
	infos, err := chromedp.Targets(runCtx)
	if err != nil {
		// A caller cancellation is reported by WaitClosed itself; any other
		// failure means the browser is no longer answering.
		return ctx.Err() != nil
	}
	for _, info := range infos {
		if info.TargetID == c.Target.TargetID {
			return true
		}
	}
	return false
}
