package model

import "time"

// Shared defaults used by both the server and client binaries.
const (
	DefaultPrimary    = "splash"
	DefaultTransition = TransitionR2L
	DefaultSwipePath  = "default"
	DefaultLockNav    = true

	// DefaultFetchTimeout bounds page, overlay and sitemap requests.
	DefaultFetchTimeout = 300 * time.Millisecond
	// DefaultRevealDelay is the pause before the loading marker leaves the incoming surface.
	DefaultRevealDelay = 10 * time.Millisecond
	// DefaultSettleDelay is the pause before the outgoing surface is hidden again.
	DefaultSettleDelay = 500 * time.Millisecond

	DefaultRetryLimit   = 8
	DefaultRetryInitial = 100 * time.Millisecond
	DefaultRetryMax     = 2 * time.Second

	DefaultSitemapPath = "js/sitemap.json"
	DefaultAPIPort     = 3000
)
