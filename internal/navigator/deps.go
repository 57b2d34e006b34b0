package navigator

import (
	"context"
	"time"

	"github.com/tinytelemetry/edetail/internal/model"
)

// ContentFetcher retrieves a page fragment by content reference. It is
// called off the scheduler loop.
type ContentFetcher interface {
	Fetch(ctx context.Context, ref string) (string, error)
}

// Menu is the drawer state the navigator updates after a successful load.
type Menu interface {
	Hide()
	Highlight(id string, ancestors []string, hasChildren bool)
	ClearButtonBar()
}

// Overlay is closed on same-page requests and after every load.
type Overlay interface {
	Hide()
}

// Beacon receives pageview events.
type Beacon interface {
	Track(eventType, value, id string)
}

// Config holds the navigator timing and retry policy.
type Config struct {
	LockNav      bool
	FetchTimeout time.Duration
	RevealDelay  time.Duration
	SettleDelay  time.Duration

	// RetryLimit bounds consecutive fetch retries of one request. Zero
	// retries forever without delay.
	RetryLimit   int
	RetryInitial time.Duration
	RetryMax     time.Duration
}

// DefaultConfig returns the stock timings.
func DefaultConfig() Config {
	return Config{
		LockNav:      model.DefaultLockNav,
		FetchTimeout: model.DefaultFetchTimeout,
		RevealDelay:  model.DefaultRevealDelay,
		SettleDelay:  model.DefaultSettleDelay,
		RetryLimit:   model.DefaultRetryLimit,
		RetryInitial: model.DefaultRetryInitial,
		RetryMax:     model.DefaultRetryMax,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = d.FetchTimeout
	}
	if c.RevealDelay < 0 {
		c.RevealDelay = 0
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	}
	if c.RetryLimit < 0 {
		c.RetryLimit = 0
	}
	if c.RetryInitial <= 0 {
		c.RetryInitial = d.RetryInitial
	}
	if c.RetryMax < c.RetryInitial {
		c.RetryMax = c.RetryInitial
	}
	return c
}

type nopMenu struct{}

func (nopMenu) Hide() {}
func (nopMenu) Highlight(string, []string, bool) {}
func (nopMenu) ClearButtonBar() {}

type nopOverlay struct{}

func (nopOverlay) Hide() {}

type nopBeacon struct{}

func (nopBeacon) Track(string, string, string) {}
