// internal/browser/options.go
package browser

import (
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/pypi-token-client/internal/config"
)

// flag is one Chromium command line switch.
type flag struct {
	name  string
	value interface{}
}

// allocatorFlags lists the command line switches derived from cfg.
func allocatorFlags(cfg config.BrowserConfig) []flag {
	flags := []flag{
		{"no-first-run", true},
		{"no-default-browser-check", true},
		{"no-sandbox", true},
		{"disable-gpu", true},
		{"disable-dev-shm-usage", true},
		// Keep Chromium away from the desktop keyring; the profile only
		// stores cookies.
		{"password-store", "basic"},
		{"use-mock-keychain", true},
	}
	// Later entries win, so user Args can override anything above.
	if cfg.Headless {
		flags = append(flags, flag{"headless", true}, flag{"hide-scrollbars", true}, flag{"mute-audio", true})
	}

	// Args accept both "--name" and "name=value" spellings.
	for _, arg := range cfg.Args {
		arg = strings.TrimLeft(strings.TrimSpace(arg), "-")
		if arg == "" {
			continue
		}
		if key, value, found := strings.Cut(arg, "="); found {
			flags = append(flags, flag{key, value})
		} else {
			flags = append(flags, flag{arg, true})
		}
	}
	return flags
}

// DefaultAllocatorOptions translates cfg into exec allocator options.
func DefaultAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	var opts []chromedp.ExecAllocatorOption
	for _, f := range allocatorFlags(cfg) {
		opts = append(opts, chromedp.Flag(f.name, f.value))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	// Without a user data dir chromedp picks a throwaway profile.
	if cfg.PersistDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.PersistDir))
	}
	return opts
}
