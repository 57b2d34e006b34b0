package tracking

import (
	"context"

	"github.com/tinytelemetry/edetail/internal/model"
)

// TrackPath is the server endpoint that accepts events.
const TrackPath = "/api/track"

// Poster is satisfied by fetch.Client.
type Poster interface {
	PostJSON(ctx context.Context, path string, in, out any) error
}

// HTTPTransport posts events to the content server.
type HTTPTransport struct {
	Client Poster
}

func (t HTTPTransport) Send(ctx context.Context, ev *model.TrackEvent) (model.TrackResult, error) {
	var out model.TrackResult
	if err := t.Client.PostJSON(ctx, TrackPath, ev, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = model.TrackResult{}
	}
	return out, nil
}
