// internal/browser/manager.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pypi-token-client/internal/config"
)

// ErrUnexpectedPageCount means the fresh browser did not come up with exactly
// one tab. Everything downstream assumes a single page, so this is fatal.
var ErrUnexpectedPageCount = errors.New("unexpected number of pages in new browser context")

const (
	shutdownTimeout = 10 * time.Second
	// abortTimeout bounds the cleanup of a browser that never started.
	abortTimeout = 2 * time.Second
)

// Instance is a running browser reduced to what the token client needs: its
// only page and a way to shut it down.
type Instance interface {
	Page() Page
	Close() error
}

// Opener starts an Instance. Launch is the production implementation; tests
// substitute fakes.
type Opener func(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (Instance, error)

// Manager owns one Chromium process (or one persistent profile) with a single
// tab. It is closed exactly once.
type Manager struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	page          *chromePage

	closeOnce sync.Once
	closeErr  error
}

var _ Instance = (*Manager)(nil)

// Launch starts Chromium according to cfg. With cfg.PersistDir set the profile
// lives in that directory and survives restarts; otherwise chromedp uses a
// temporary profile that is removed on Close.
//
// ctx bounds the lifetime of the whole browser, not just the launch.
func Launch(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Manager, error) {
	logger = logger.Named("browser")

	if cfg.PersistDir != "" {
		if err := os.MkdirAll(cfg.PersistDir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create browser profile directory: %w", err)
		}
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, DefaultAllocatorOptions(cfg)...)
	sugar := logger.Sugar()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	m := &Manager{
		logger:        logger,
		cfg:           cfg,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}

	// The first Run starts the process. It must not get a deadline of its own:
	// canceling the context of the first Run tears the browser down.
	logger.Debug("Launching browser.",
		zap.Bool("headless", cfg.Headless),
		zap.String("persist_dir", cfg.PersistDir))
	if err := chromedp.Run(browserCtx); err != nil {
		// Nothing is running, so there is nothing to Cancel gracefully.
		m.abort()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	if err := m.checkSinglePage(); err != nil {
		m.shutdown()
		return nil, err
	}

	m.page = newChromePage(browserCtx, cfg, logger)
	logger.Info("Browser ready.", zap.Bool("headless", cfg.Headless))
	return m, nil
}

// LaunchInstance adapts Launch to the Opener signature.
func LaunchInstance(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (Instance, error) {
	m, err := Launch(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// --- Launch checks ---

func (m *Manager) checkSinglePage() error {
	infos, err := chromedp.Targets(m.browserCtx)
	if err != nil {
		return fmt.Errorf("failed to list browser targets: %w", err)
	}
	pages := 0
	for _, info := range infos {
		if info.Type == "page" {
			pages++
		}
	}
	if pages != 1 {
		return fmt.Errorf("%w: found %d", ErrUnexpectedPageCount, pages)
	}
	return nil
}

// Page returns the browser's only tab.
func (m *Manager) Page() Page { return m.page }

// --- Shutdown ---

// Close shuts the browser down and releases the temporary profile, if any.
// It is safe to call more than once.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.closeErr = m.shutdown()
		m.logger.Debug("Browser closed.")
	})
	return m.closeErr
}

// abort releases the contexts of a launch that failed before a browser was
// allocated. The cancel func returned by chromedp.NewContext waits for the
// allocation to finish, which never happens when the executable could not be
// started, so that wait is bounded.
func (m *Manager) abort() {
	// Canceling the allocator first kills a half-started process, if any.
	m.allocCancel()

	done := make(chan struct{})
	go func() {
		m.browserCancel()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(abortTimeout):
		m.logger.Debug("Gave up waiting for the failed browser launch to be released.")
	}
}

func (m *Manager) shutdown() error {
	// chromedp.Cancel closes the browser gracefully and waits for it, which
	// can hang on a wedged process; bound it.
	done := make(chan error, 1)
	go func() { done <- chromedp.Cancel(m.browserCtx) }()

	var err error
	select {
	case err = <-done:
	case <-time.After(shutdownTimeout):
		err = fmt.Errorf("browser did not exit within %s", shutdownTimeout)
	}
	// Release the tab context before the allocator that owns the process.
	m.browserCancel()
	m.allocCancel()

	if errors.Is(err, context.Canceled) {
		// The parent context is gone, which already stopped the browser.
		return nil
	}
	return err
}
