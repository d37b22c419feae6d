package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// webdriverMask hides the automation signal exposed by headless Chrome. It is
// installed once, before any navigation, so it applies to every document.
const webdriverMask = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`

const opTimeout = 10 * time.Second

// Options configures the Chrome session.
type Options struct {
	Headless  bool
	Proxy     string // ip:port, empty for none
	UserAgent string // empty for the default desktop agent
}

// Chrome drives a single headless Chrome page through chromedp.
type Chrome struct {
	ctx           context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
}

var _ Session = (*Chrome)(nil)

// NewChrome launches a browser and prepares a page context. The returned
// session owns the browser process; Close tears it down.
func NewChrome(parent context.Context, opts Options) (*Chrome, error) {
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(ua),
	)
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	install := chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(webdriverMask).Do(ctx)
		return err
	})
	if err := chromedp.Run(browserCtx, install); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	return &Chrome{ctx: browserCtx, browserCancel: browserCancel, allocCancel: allocCancel}, nil
}

// Close shuts the browser down.
func (c *Chrome) Close() {
	c.browserCancel()
	c.allocCancel()
}

func (c *Chrome) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opCtx, cancel := context.WithTimeout(c.ctx, timeout)
	defer cancel()
	return chromedp.Run(opCtx, actions...)
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	return c.run(ctx, time.Minute, chromedp.Navigate(url))
}

func (c *Chrome) WaitReady(ctx context.Context, selector string, timeout time.Duration) error {
	return c.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery))
}

func (c *Chrome) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return c.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (c *Chrome) Query(ctx context.Context, selector string) ([]Element, error) {
	var count int
	script := fmt.Sprintf(`document.querySelectorAll(%q).length`, selector)
	if err := c.run(ctx, opTimeout, chromedp.Evaluate(script, &count)); err != nil {
		return nil, err
	}

	elements := make([]Element, count)
	for i := range elements {
		elements[i] = &chromeElement{session: c, root: selector, index: i}
	}
	return elements, nil
}

func (c *Chrome) OuterHTML(ctx context.Context, selector string) (string, error) {
	var html string
	if err := c.run(ctx, opTimeout, chromedp.OuterHTML(selector, &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (c *Chrome) Click(ctx context.Context, selector string) error {
	return c.run(ctx, opTimeout, chromedp.Click(selector, chromedp.ByQuery))
}

func (c *Chrome) Run(ctx context.Context, script string) error {
	return c.run(ctx, opTimeout, chromedp.Evaluate(script, nil))
}

// chromeElement addresses the index-th match of a selector. Scoped reads and
// clicks compile to querySelectorAll scripts so no CDP node handle is held
// across page mutations.
type chromeElement struct {
	session *Chrome
	root    string
	index   int
}

func (e *chromeElement) eval(ctx context.Context, expr string) (string, error) {
	script := fmt.Sprintf(`(() => {
		const root = document.querySelectorAll(%q)[%d];
		if (!root) return "";
		%s
	})()`, e.root, e.index, expr)

	var out string
	if err := e.session.run(ctx, opTimeout, chromedp.Evaluate(script, &out)); err != nil {
		return "", err
	}
	if out == "" {
		return "", ErrNotFound
	}
	return out, nil
}

func scoped(selector string) string {
	return fmt.Sprintf(`const el = %q === "" ? root : root.querySelector(%q);
		if (!el) return "";`, selector, selector)
}

func (e *chromeElement) Text(ctx context.Context, selector string) (string, error) {
	return e.eval(ctx, scoped(selector)+`
		return (el.textContent || "").trim();`)
}

func (e *chromeElement) Attribute(ctx context.Context, selector, name string) (string, error) {
	return e.eval(ctx, scoped(selector)+fmt.Sprintf(`
		return el.getAttribute(%q) || "";`, name))
}

// Click dispatches a synthesized click, matching how the reveal buttons are
// activated on the target site regardless of overlay state.
func (e *chromeElement) Click(ctx context.Context, selector string) error {
	_, err := e.eval(ctx, scoped(selector)+`
		el.click();
		return "ok";`)
	return err
}
