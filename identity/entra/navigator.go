package entra

import (
	"context"
	"io"

	"github.com/pkg/browser"
)

// Navigator opens a URL for the user.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, url string) error

func (f NavigatorFunc) Navigate(ctx context.Context, url string) error {
	return f(ctx, url)
}

// BrowserNavigator opens URLs in the system browser.
type BrowserNavigator struct{}

// NewBrowserNavigator returns a navigator whose launcher output is discarded
// so it cannot draw over a terminal UI.
func NewBrowserNavigator() BrowserNavigator {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	return BrowserNavigator{}
}

func (BrowserNavigator) Navigate(_ context.Context, url string) error {
	return browser.OpenURL(url)
}
