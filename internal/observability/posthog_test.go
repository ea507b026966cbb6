package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	distinctID string
	event      string
	props      EventProperties
}

type recorder struct {
	events []recordedEvent
}

func (r *recorder) Capture(_ context.Context, distinctID, event string, props EventProperties) error {
	r.events = append(r.events, recordedEvent{distinctID, event, props})
	return nil
}

func TestDisabledClientIsNoop(t *testing.T) {
	client, err := NewPostHogClient(PostHogConfig{Enabled: false})
	require.NoError(t, err)
	assert.False(t, client.IsEnabled())
	assert.NoError(t, client.Capture(context.Background(), "system", "anything", nil))
	assert.NoError(t, client.Shutdown(context.Background()))
}

func TestEnabledClientRequiresKey(t *testing.T) {
	_, err := NewPostHogClient(PostHogConfig{Enabled: true})
	assert.Error(t, err)
}

func TestTrackHelpers(t *testing.T) {
	ctx := context.Background()
	r := &recorder{}

	TrackArticleGenerated(ctx, r, "a1b2c3d4", "agents-2025", "AI agents", true)
	TrackDuplicateSkipped(ctx, r, "a1b2c3d4", "Agents", "title similarity")
	TrackSaveFailed(ctx, r, "a1b2c3d4", "agents-2025", errors.New("disk full"))
	TrackMediaGenerated(ctx, r, "flux-schnell", "image", 2, 1500)
	TrackAutorunCompleted(ctx, r, 2, 1, 1, 30000)

	require.Len(t, r.events, 5)
	assert.Equal(t, EventArticleGenerated, r.events[0].event)
	assert.Equal(t, "system", r.events[0].distinctID)
	assert.Equal(t, true, r.events[0].props["saved"])
	assert.Equal(t, EventArticleDuplicateSkipped, r.events[1].event)
	assert.Equal(t, "disk full", r.events[2].props["error_message"])
	assert.Equal(t, "flux-schnell", r.events[3].props["model"])
	assert.Equal(t, EventAutorunCompleted, r.events[4].event)
}

func TestNoopTracker(t *testing.T) {
	var tr Tracker = Noop{}
	assert.NoError(t, tr.Capture(context.Background(), "system", "x", nil))
}
