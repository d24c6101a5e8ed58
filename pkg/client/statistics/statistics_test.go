package statistics

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distcompute/dcctl/internal/testutil/fakebackend"
	"github.com/distcompute/dcctl/pkg/client"
)

func TestService_Get(t *testing.T) {
	backend := fakebackend.New()
	defer backend.Close()
	conn, err := client.NewConnection(backend.Details(), nil)
	require.NoError(t, err)
	svc := NewService(conn, time.Minute)

	stats, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Statistics{Nodes: 3, Earnings: 12.5}, stats)

	_, err = svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, backend.RequestCount(http.MethodGet+" "+statisticsPath))

	svc.Invalidate()
	_, err = svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, backend.RequestCount(http.MethodGet+" "+statisticsPath))
}

func TestService_DefaultsOnError(t *testing.T) {
	backend := fakebackend.New()
	defer backend.Close()
	backend.FailStatistics(true)
	conn, err := client.NewConnection(backend.Details(), nil)
	require.NoError(t, err)
	svc := NewService(conn, time.Minute)

	stats, err := svc.Get(context.Background())
	assert.Error(t, err)
	assert.Equal(t, Statistics{}, stats)

	backend.FailStatistics(false)
	stats, err = svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Nodes)
}
