// Package image converts the HTML page of the dashboard into a PNG screenshot.
package image

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/device"
)

// Renderer knows how to take a screenshot from a HTML input and writes it as PNG.
type Renderer struct {
	options

	l *slog.Logger
}

// New builds an image [Renderer] from HTML.
func New(opts ...Option) *Renderer {
	return &Renderer{
		options: optionsWithDefaults(opts),
		l:       slog.Default().With(slog.String("module", "image")),
	}
}

// Render a PNG image as a screenshot from a HTML input [io.Reader].
//
// The headless browser is stopped when ctx is done.
func (r *Renderer) Render(ctx context.Context, dest io.Writer, source io.Reader) error {
	screenshot, err := r.screenshot(ctx, source)
	if err != nil {
		return fmt.Errorf("taking screenshot: %w", err)
	}

	_, err = dest.Write(screenshot)
	if err != nil {
		return fmt.Errorf("writing screenshot: %w", err)
	}

	r.l.Info("screenshot taken", slog.Int("bytes", len(screenshot)))

	return nil
}

func (r *Renderer) screenshot(ctx context.Context, reader io.Reader) ([]byte, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}

	browserCtx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	const qualityPNG = 100 // 100 to force PNG

	actions := []chromedp.Action{
		chromedp.Emulate(device.Info{
			Height:    r.Height,
			Width:     r.Width,
			Landscape: true,
		}),
		// the page is escaped: a raw '#' would truncate the data URL
		chromedp.Navigate("data:text/html;charset=utf-8," + url.PathEscape(string(content))),
	}

	if r.WaitSelector != "" && len(content) > 0 {
		actions = append(actions, chromedp.WaitVisible(r.WaitSelector, chromedp.ByQuery))
	}

	var screenshot []byte
	actions = append(actions,
		chromedp.Sleep(r.SleepDuration), // charts are animated
		chromedp.FullScreenshot(&screenshot, qualityPNG),
	)

	if err := chromedp.Run(browserCtx, actions...); err != nil {
		return nil, err
	}

	return screenshot, nil
}
