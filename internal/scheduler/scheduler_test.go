package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTimezone(t *testing.T) {
	s, err := New("America/New_York")
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", s.location.String())

	s, err = New("")
	require.NoError(t, err)
	assert.Equal(t, "UTC", s.location.String())

	_, err = New("Invalid/Zone")
	assert.Error(t, err)
}

func TestExpression(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "09:00", want: "0 9 * * *"},
		{in: "14:30", want: "30 14 * * *"},
		{in: "7:05", want: "5 7 * * *"},
		{in: "0 9 * * *", want: "0 9 * * *"},
		{in: "*/15 * * * *", want: "*/15 * * * *"},
		{in: "25:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Expression(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScheduleReplacesEntry(t *testing.T) {
	s, err := New("UTC")
	require.NoError(t, err)

	require.NoError(t, s.Schedule(context.Background(), "08:00", func(context.Context) {}))
	first := s.entryID

	require.NoError(t, s.Schedule(context.Background(), "10:00", func(context.Context) {}))
	assert.NotEqual(t, first, s.entryID)
	assert.Len(t, s.cron.Entries(), 1)
	assert.Equal(t, "0 10 * * *", s.expr)

	assert.Error(t, s.Schedule(context.Background(), "99:99", func(context.Context) {}))
	assert.Equal(t, "0 10 * * *", s.expr)
}

func TestRunStopsWithContext(t *testing.T) {
	s, err := New("UTC")
	require.NoError(t, err)
	require.NoError(t, s.Schedule(context.Background(), "09:00", func(context.Context) {}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return !s.Next().IsZero() }, time.Second, 10*time.Millisecond)
	next := s.Next()
	assert.Equal(t, 9, next.Hour())
	assert.Equal(t, 0, next.Minute())

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
