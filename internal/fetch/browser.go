package fetch

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/jonathan/siteqa/internal/logging"
)

// RenderedPage is what a headless browser saw after the page settled.
type RenderedPage struct {
	Title string
	HTML  string
}

// Renderer renders JavaScript-heavy pages in a headless browser.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (*RenderedPage, error)
}

// ChromeRenderer renders pages with a local Chrome/Chromium through chromedp.
// Each Render call starts its own browser so concurrent callers never share tabs.
type ChromeRenderer struct {
	allocatorOptions []chromedp.ExecAllocatorOption
}

// NewChromeRenderer creates a renderer using headless Chrome.
func NewChromeRenderer() *ChromeRenderer {
	return &ChromeRenderer{
		allocatorOptions: append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(DefaultUserAgent),
		),
	}
}

// Render navigates to pageURL, waits until the network is idle and returns the title and outer HTML.
// The caller's context bounds the whole render, including browser start-up.
func (r *ChromeRenderer) Render(ctx context.Context, pageURL string) (*RenderedPage, error) {
	logging.Debugf("[BROWSER] Starting headless browser for: %s", pageURL)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, r.allocatorOptions...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	rendered := &RenderedPage{}
	err := chromedp.Run(browserCtx,
		navigateUntilNetworkIdle(pageURL),
		chromedp.Title(&rendered.Title),
		chromedp.OuterHTML("html", &rendered.HTML, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("browser rendering failed: %w", err)
	}

	logging.Debugf("[BROWSER] Rendered HTML: %d bytes", len(rendered.HTML))
	return rendered, nil
}

// navigateUntilNetworkIdle loads pageURL and blocks until Chrome reports the networkIdle lifecycle event.
func navigateUntilNetworkIdle(pageURL string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		idle := make(chan struct{})
		var once sync.Once

		listenCtx, stopListening := context.WithCancel(ctx)
		defer stopListening()
		chromedp.ListenTarget(listenCtx, func(ev any) {
			if e, ok := ev.(*page.EventLifecycleEvent); ok && e.Name == "networkIdle" {
				once.Do(func() { close(idle) })
			}
		})

		if err := page.SetLifecycleEventsEnabled(true).Do(ctx); err != nil {
			return err
		}
		if err := chromedp.Navigate(pageURL).Do(ctx); err != nil {
			return err
		}

		select {
		case <-idle:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}
