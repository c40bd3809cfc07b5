// Package xbrowser opens URLs in the user's browser.
package xbrowser

import (
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/pkg/browser"

	"oss.terrastruct.com/xos"
)

// Disabled is the browser value that opens nothing.
const Disabled = "0"

// OpenURL opens url with the browser command b, falling back to $BROWSER and then to the
// system default. b or $BROWSER set to Disabled opens nothing.
func OpenURL(ctx context.Context, env *xos.Env, b, url string) error {
	if b == "" {
		b = env.Getenv("BROWSER")
	}
	switch b {
	case Disabled:
		return nil
	case "":
		browser.Stdout = io.Discard
		browser.Stderr = io.Discard
		return browser.OpenURL(url)
	}

	browserSh := fmt.Sprintf("%s \"$1\"", b)
	cmd := exec.CommandContext(ctx, "sh", "-c", browserSh, "--", url)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to run %v (out: %q): %w", cmd.Args, out, err)
	}
	return nil
}
