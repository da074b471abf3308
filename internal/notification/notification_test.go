package notification

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAlertBuffers(t *testing.T) {
	svc := NewService()

	svc.SendAlert(context.Background(), "reserve ratio warning", "ratio 0.98 below target")

	alerts := svc.Recent()
	require.Len(t, alerts, 1)
	assert.Equal(t, "reserve ratio warning", alerts[0].Title)
	assert.False(t, alerts[0].CreatedAt.IsZero())
}

func TestBufferDropsOldestBeyondCapacity(t *testing.T) {
	svc := NewService()

	for i := 0; i < 150; i++ {
		svc.SendAlert(context.Background(), fmt.Sprintf("alert %d", i), "msg")
	}

	alerts := svc.Recent()
	require.Len(t, alerts, 100)
	assert.Equal(t, "alert 50", alerts[0].Title)
	assert.Equal(t, "alert 149", alerts[99].Title)
}

func TestRecentReturnsCopy(t *testing.T) {
	svc := NewService()
	svc.SendAlert(context.Background(), "a", "m")

	first := svc.Recent()
	first[0].Title = "mutated"

	assert.Equal(t, "a", svc.Recent()[0].Title)
}
