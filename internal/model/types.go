package model

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the type of a sitemap entry.
type Kind string

const (
	KindPage   Kind = "page"
	KindHidden Kind = "hidden"
	KindHeader Kind = "header"
	KindButton Kind = "button"
)

// ParseKind normalizes a sitemap "type" value. The legacy "slide" spelling
// and an empty value both mean a regular page.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "page", "slide":
		return KindPage, nil
	case "hidden":
		return KindHidden, nil
	case "header":
		return KindHeader, nil
	case "button":
		return KindButton, nil
	}
	return "", fmt.Errorf("unknown page kind %q", s)
}

// Fetchable reports whether entries of this kind carry a content fragment.
func (k Kind) Fetchable() bool {
	return k == KindPage || k == KindHidden
}

// Transition is the visual direction applied when surfaces are swapped.
type Transition string

const (
	TransitionFade Transition = "FADE"
	TransitionL2R  Transition = "L2R"
	TransitionR2L  Transition = "R2L"
	TransitionT2B  Transition = "T2B"
	TransitionB2T  Transition = "B2T"
	TransitionNone Transition = "NONE"
)

// Transitions lists every supported transition kind.
var Transitions = []Transition{
	TransitionFade, TransitionL2R, TransitionR2L, TransitionT2B, TransitionB2T, TransitionNone,
}

// ParseTransition is case-insensitive; empty means NONE.
func ParseTransition(s string) (Transition, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return TransitionNone, nil
	}
	for _, t := range Transitions {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown transition %q", s)
}

// Arrow is a compact glyph for status lines.
func (t Transition) Arrow() string {
	switch t {
	case TransitionL2R:
		return "→"
	case TransitionR2L:
		return "←"
	case TransitionT2B:
		return "↓"
	case TransitionB2T:
		return "↑"
	case TransitionFade:
		return "◌"
	default:
		return "·"
	}
}

// TrackEvent is one clickstream entry emitted by the tracking beacon.
type TrackEvent struct {
	EventID     string    `json:"event_id,omitempty"`
	Type        string    `json:"type" binding:"required"`
	Description string    `json:"description"`
	ID          string    `json:"id" binding:"required"`
	Session     string    `json:"session,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// TrackResult is the opaque result object handed to tracking callbacks.
type TrackResult map[string]any

// PageviewCount is the number of pageview events recorded for one page id.
type PageviewCount struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Count       int64  `json:"count"`
}
