package chromedp_browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/user/goldwatch/internal/repository"
)

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

// networkAlmostIdle is Chrome's lifecycle event for "no more than two
// in-flight requests for 500ms".
const networkAlmostIdle = "networkAlmostIdle"

// ErrIdleTimeout is returned when the page never reports network idle.
var ErrIdleTimeout = errors.New("timed out waiting for network idle")

// Options configures the headless browser.
type Options struct {
	PageLoadTimeout time.Duration
	SettleDelay     time.Duration
	WindowWidth     int
	WindowHeight    int

	// UserAgents is sampled once per session. Empty means a built-in list.
	UserAgents []string
	// Proxies are used round-robin, one per session. Empty means direct.
	Proxies []string
}

// Launcher starts chromedp browser sessions.
type Launcher struct {
	opts     Options
	rotation *rotation
}

var _ repository.BrowserLauncher = (*Launcher)(nil)

// NewLauncher creates a launcher, filling zero options with defaults.
func NewLauncher(opts Options) *Launcher {
	if opts.PageLoadTimeout <= 0 {
		opts.PageLoadTimeout = 60 * time.Second
	}
	if len(opts.UserAgents) == 0 {
		opts.UserAgents = defaultUserAgents
	}
	if opts.WindowWidth <= 0 || opts.WindowHeight <= 0 {
		opts.WindowWidth, opts.WindowHeight = 1920, 1080
	}
	return &Launcher{opts: opts, rotation: newRotation(opts.Proxies, opts.UserAgents)}
}

// allocatorOptions returns the exec allocator flags for one session.
func allocatorOptions(opts Options, userAgent, proxy string) []chromedp.ExecAllocatorOption {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
		chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
	)
	if proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(proxy))
	}
	return allocOpts
}

// Launch starts Chrome and opens the single tab reused for every target.
func (l *Launcher) Launch(ctx context.Context) (repository.Browser, error) {
	userAgent, proxy := l.rotation.userAgent(), l.rotation.proxy()
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocatorOptions(l.opts, userAgent, proxy)...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		slog.Debug(fmt.Sprintf(format, args...))
	}))

	// The first Run starts the browser process.
	if err := chromedp.Run(browserCtx, page.SetLifecycleEventsEnabled(true)); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	slog.Info("Browser launched", "user_agent", userAgent, "proxy", proxy != "")

	return &Browser{
		ctx:    browserCtx,
		cancel: func() { cancelBrowser(); cancelAlloc() },
		opts:   l.opts,
	}, nil
}

// Browser is one chromedp tab. It is not safe for concurrent use.
type Browser struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   Options
}

// Screenshot navigates to url, waits for networkAlmostIdle, sleeps the settle
// delay and returns a full-page PNG.
func (b *Browser) Screenshot(ctx context.Context, url string) ([]byte, error) {
	// Lifecycle listeners are removed when listenCtx is cancelled.
	listenCtx, stopListening := context.WithCancel(b.ctx)
	defer stopListening()

	watcher := newIdleWatcher(mainFrameID(b.ctx))
	chromedp.ListenTarget(listenCtx, watcher.handle)

	taskCtx, cancel := context.WithTimeout(listenCtx, b.opts.PageLoadTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var buf []byte
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(url),
		waitForIdle(watcher.idle),
		chromedp.Sleep(b.opts.SettleDelay),
		chromedp.FullScreenshot(&buf, 100),
	)
	if err != nil {
		return nil, fmt.Errorf("capture %s: %w", url, err)
	}
	return buf, nil
}

// mainFrameID returns the top-level frame of the tab. A page target's id
// doubles as its main frame id.
func mainFrameID(ctx context.Context) cdp.FrameID {
	c := chromedp.FromContext(ctx)
	if c == nil || c.Target == nil {
		return ""
	}
	return cdp.FrameID(c.Target.TargetID)
}

// idleWatcher turns main-frame lifecycle events into a single idle signal.
// Events from iframes are ignored. An empty frame accepts every frame.
type idleWatcher struct {
	frame cdp.FrameID
	idle  chan struct{}
}

func newIdleWatcher(frame cdp.FrameID) *idleWatcher {
	return &idleWatcher{frame: frame, idle: make(chan struct{}, 1)}
}

func (w *idleWatcher) handle(ev any) {
	e, ok := ev.(*page.EventLifecycleEvent)
	if !ok || (w.frame != "" && e.FrameID != w.frame) {
		return
	}
	switch e.Name {
	case "init":
		// A new document started loading; forget idle signals from the old one.
		select {
		case <-w.idle:
		default:
		}
	case networkAlmostIdle:
		select {
		case w.idle <- struct{}{}:
		default:
		}
	}
}

func waitForIdle(idle <-chan struct{}) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		select {
		case <-idle:
			return nil
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrIdleTimeout
			}
			return ctx.Err()
		}
	}
}

// Close kills the browser process.
func (b *Browser) Close() error {
	b.cancel()
	return nil
}
