package status

import (
	"context"

	statusclient "github.com/opsconductor/conductor/internal/clients/status"
	"github.com/opsconductor/conductor/internal/observability"
	"github.com/opsconductor/conductor/internal/release/state"
)

// Sink is the post-tick hook the controller calls after every tree tick:
// it renders the current state, and if the rendering changed since the
// last call, posts (first call) or updates (subsequent calls) the pinned
// status message. It never blocks tree progress — client errors are
// logged by the caller and otherwise swallowed.
type Sink struct {
	client   statusclient.Client
	channel  string
	metrics  *observability.Metrics
	lastText string
}

// NewSink builds a Sink posting to channel via client. A nil client
// yields a Sink whose Refresh is a no-op, as in dry runs.
func NewSink(client statusclient.Client, channel string, metrics *observability.Metrics) *Sink {
	return &Sink{client: client, channel: channel, metrics: metrics}
}

// Refresh renders doc and posts or updates the pinned message if the
// rendering changed. It writes the resulting thread/message timestamps
// back into doc.Meta.Ephemeral so a later tick's Update targets the
// same message; those coordinates are never persisted.
func (s *Sink) Refresh(ctx context.Context, doc *state.ReleaseState) error {
	if s.client == nil {
		return nil
	}

	text := Render(doc)
	if text == s.lastText {
		return nil
	}

	eph := &doc.Meta.Ephemeral
	if eph.StatusMessageTS == "" {
		channel, ts, err := s.client.Post(ctx, statusclient.Message{
			Channel:  s.channel,
			ThreadTS: eph.StatusThreadTS,
			Text:     text,
		})
		if err != nil {
			s.count("status_post_failed_total")
			return err
		}
		eph.StatusChannel = channel
		eph.StatusMessageTS = ts
		if eph.StatusThreadTS == "" {
			eph.StatusThreadTS = ts
		}
	} else {
		err := s.client.Update(ctx, statusclient.Message{
			Channel:   eph.StatusChannel,
			MessageTS: eph.StatusMessageTS,
			Text:      text,
		})
		if err != nil {
			s.count("status_update_failed_total")
			return err
		}
	}

	s.lastText = text
	s.count("status_refresh_total")
	return nil
}

func (s *Sink) count(name string) {
	if s.metrics != nil {
		s.metrics.Inc(name)
	}
}
