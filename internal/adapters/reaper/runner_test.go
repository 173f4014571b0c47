package reaper

import (
	"context"
	"testing"
	"time"

	"github.com/eelab/labdesk/config"
	"github.com/eelab/labdesk/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func testAuditConfig() config.AuditConfig {
	return config.AuditConfig{Retention: 24 * time.Hour, ReapInterval: time.Hour, ReapBatch: 2}
}

func TestNewRunner_RequiresStorage(t *testing.T) {
	_, err := NewRunner(RunnerOptions{Config: testAuditConfig()})
	require.Error(t, err)
}

func TestNewRunner_RejectsZeroRetention(t *testing.T) {
	ctrl := gomock.NewController(t)
	_, err := NewRunner(RunnerOptions{Repo: mocks.NewMockAccessEventRepository(ctrl)})
	require.ErrorContains(t, err, "wire audit reaper")
}

func TestRunner_PruneDeletesInBatches(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockAccessEventRepository(ctrl)
	gomock.InOrder(
		repo.EXPECT().DeleteOlderThan(gomock.Any(), gomock.Any(), 2).Return(int64(2), nil),
		repo.EXPECT().DeleteOlderThan(gomock.Any(), gomock.Any(), 2).Return(int64(1), nil),
	)

	r, err := NewRunner(RunnerOptions{Repo: repo, Config: testAuditConfig()})
	require.NoError(t, err)

	n, err := r.Prune(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestRunner_RunStopsOnCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockAccessEventRepository(ctrl)
	repo.EXPECT().DeleteOlderThan(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(0), nil).AnyTimes()

	r, err := NewRunner(RunnerOptions{Repo: repo, Config: testAuditConfig()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, r.Run(ctx))
}
