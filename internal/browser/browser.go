package browser

import (
	"fmt"
	"io"
	"sync"

	"github.com/pkg/browser"
)

var quietOnce sync.Once

// quiet discards the opener's own output so it cannot draw over the TUI.
func quiet() {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

// Open opens url in the platform's default browser.
func Open(url string) error {
	quietOnce.Do(quiet)
	if err := browser.OpenURL(url); err != nil {
		return fmt.Errorf("opening browser: %w", err)
	}
	return nil
}
