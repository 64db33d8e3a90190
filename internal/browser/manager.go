// Package browser manages a shared headless Chrome instance and hands out
// scoped page handles for website inspection.
//
// The manager starts the browser lazily on first acquisition. Every handle is
// tracked in an active set and must be closed by its caller; Close force-closes
// anything left open and logs a warning, so a leaked page never outlives the
// manager.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/restaurantgrader/restaurantgrader/internal/metrics"
)

// Config controls browser startup and page defaults.
type Config struct {
	UserAgent         string
	NavigationTimeout time.Duration
	ViewportWidth     int64
	ViewportHeight    int64
	MaxPages          int
}

// Manager owns the allocator, the browser process, and the active page set.
type Manager struct {
	cfg     Config
	logger  *zap.Logger
	limiter chan struct{}

	mu            sync.Mutex
	started       bool
	closed        bool
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	active        map[*Page]struct{}
	nextID        int

	// Injected for tests; production values are set in NewManager.
	launch  func() (context.Context, context.CancelFunc, context.CancelFunc, error)
	newTab  func(parent context.Context) (context.Context, context.CancelFunc)
	runPing func(ctx context.Context) error
}

// Page is a scoped handle to one browser tab. Close is idempotent and must be
// called on every exit path; WithPage does this for you.
type Page struct {
	id        int
	ctx       context.Context
	cancel    context.CancelFunc
	mgr       *Manager
	closeOnce sync.Once
}

// NewManager constructs a Manager. The browser process is not started until
// the first page is acquired.
func NewManager(cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}
	if cfg.ViewportWidth <= 0 {
		cfg.ViewportWidth = 375
	}
	if cfg.ViewportHeight <= 0 {
		cfg.ViewportHeight = 667
	}
	var limiter chan struct{}
	if cfg.MaxPages > 0 {
		limiter = make(chan struct{}, cfg.MaxPages)
	}
	m := &Manager{
		cfg:     cfg,
		logger:  logger,
		limiter: limiter,
		active:  make(map[*Page]struct{}),
	}
	m.launch = m.launchChrome
	m.newTab = func(parent context.Context) (context.Context, context.CancelFunc) {
		return chromedp.NewContext(parent)
	}
	m.runPing = func(ctx context.Context) error {
		if err := chromedp.Run(ctx); err != nil {
			return fmt.Errorf("start browser: %w", err)
		}
		return nil
	}
	return m
}

func (m *Manager) launchChrome() (context.Context, context.CancelFunc, context.CancelFunc, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.WindowSize(int(m.cfg.ViewportWidth), int(m.cfg.ViewportHeight)),
	)
	if m.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(m.cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	return browserCtx, browserCancel, allocCancel, nil
}

// NavigationTimeout reports the configured per-page navigation budget.
func (m *Manager) NavigationTimeout() time.Duration {
	return m.cfg.NavigationTimeout
}

// Viewport reports the configured mobile viewport dimensions.
func (m *Manager) Viewport() (int64, int64) {
	return m.cfg.ViewportWidth, m.cfg.ViewportHeight
}

func (m *Manager) ensureStarted() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("browser manager is closed")
	}
	if m.started {
		return nil
	}
	browserCtx, browserCancel, allocCancel, err := m.launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	if err := m.runPing(browserCtx); err != nil {
		browserCancel()
		if allocCancel != nil {
			allocCancel()
		}
		return err
	}
	m.browserCtx = browserCtx
	m.browserCancel = browserCancel
	m.allocCancel = allocCancel
	m.started = true
	return nil
}

// AcquirePage starts the browser if needed and returns a tracked page handle.
// The caller owns the handle and must Close it.
func (m *Manager) AcquirePage(ctx context.Context) (*Page, error) {
	if err := m.acquireSlot(ctx); err != nil {
		return nil, err
	}
	if err := m.ensureStarted(); err != nil {
		m.releaseSlot()
		return nil, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.releaseSlot()
		return nil, fmt.Errorf("browser manager is closed")
	}
	tabCtx, tabCancel := m.newTab(m.browserCtx)
	m.nextID++
	page := &Page{id: m.nextID, ctx: tabCtx, cancel: tabCancel, mgr: m}
	m.active[page] = struct{}{}
	metrics.SetBrowserActivePages(len(m.active))
	m.mu.Unlock()

	return page, nil
}

// WithPage acquires a page, runs fn against its context, and guarantees the
// page is released on every exit path, including panics.
func (m *Manager) WithPage(ctx context.Context, fn func(pageCtx context.Context) error) error {
	page, err := m.AcquirePage(ctx)
	if err != nil {
		return err
	}
	defer page.Close()

	pageCtx, cancel := context.WithTimeout(page.Context(), m.cfg.NavigationTimeout)
	defer cancel()

	if err := fn(pageCtx); err != nil {
		return err
	}
	return nil
}

// Context exposes the chromedp tab context for running actions.
func (p *Page) Context() context.Context {
	return p.ctx
}

// Close releases the tab and removes it from the manager's active set.
func (p *Page) Close() {
	p.closeOnce.Do(func() {
		p.cancel()
		p.mgr.forget(p)
		p.mgr.releaseSlot()
	})
}

func (m *Manager) forget(p *Page) {
	m.mu.Lock()
	delete(m.active, p)
	metrics.SetBrowserActivePages(len(m.active))
	m.mu.Unlock()
}

// ActivePages returns the number of outstanding page handles.
func (m *Manager) ActivePages() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// Close force-closes leaked pages, then shuts down the browser and allocator.
// Individual close failures do not stop the remaining teardown.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	leaked := make([]*Page, 0, len(m.active))
	for p := range m.active {
		leaked = append(leaked, p)
	}
	m.active = make(map[*Page]struct{})
	metrics.SetBrowserActivePages(0)
	browserCancel := m.browserCancel
	allocCancel := m.allocCancel
	m.started = false
	m.mu.Unlock()

	if len(leaked) > 0 {
		m.logger.Warn("force-closing leaked browser pages", zap.Int("count", len(leaked)))
		for _, p := range leaked {
			p.closeOnce.Do(func() {
				p.cancel()
				m.releaseSlot()
			})
		}
	}
	if browserCancel != nil {
		browserCancel()
	}
	if allocCancel != nil {
		allocCancel()
	}
}

func (m *Manager) acquireSlot(ctx context.Context) error {
	if m.limiter == nil {
		return nil
	}
	select {
	case m.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("page slot wait canceled: %w", ctx.Err())
	}
}

func (m *Manager) releaseSlot() {
	if m.limiter == nil {
		return
	}
	select {
	case <-m.limiter:
	default:
	}
}
