package jobs_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/salesflow/salesflow-api/internal/auth"
	"github.com/salesflow/salesflow-api/internal/config"
	"github.com/salesflow/salesflow-api/internal/domain"
	"github.com/salesflow/salesflow-api/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type fakeSnapshots struct {
	mu         sync.Mutex
	captureErr error
	tokens     []string
	triggers   []domain.SnapshotTrigger
	pruned     []int
}

func (f *fakeSnapshots) Capture(ctx context.Context, trigger domain.SnapshotTrigger) (*domain.PipelineSnapshotDTO, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, auth.TokenFromContext(ctx))
	f.triggers = append(f.triggers, trigger)
	if f.captureErr != nil {
		return nil, f.captureErr
	}
	return &domain.PipelineSnapshotDTO{PipelineSnapshot: domain.PipelineSnapshot{ID: uuid.New()}}, nil
}

func (f *fakeSnapshots) Prune(ctx context.Context, retentionDays int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pruned = append(f.pruned, retentionDays)
	return 0, nil
}

type fakeAudit struct {
	calls int
}

func (f *fakeAudit) CleanupOldLogs(ctx context.Context, retentionDays int) (int64, error) {
	f.calls++
	return 0, nil
}

func TestSnapshotJob_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("captures a scheduled snapshot and prunes", func(t *testing.T) {
		snapshots := &fakeSnapshots{}
		audit := &fakeAudit{}
		job := jobs.NewSnapshotJob(snapshots, audit, 90, zap.NewNop())

		require.NoError(t, job.Run(ctx))
		assert.Equal(t, jobs.SnapshotJobName, job.Name())
		assert.Equal(t, []domain.SnapshotTrigger{domain.SnapshotTriggerScheduled}, snapshots.triggers)
		assert.Equal(t, []int{90}, snapshots.pruned)
		assert.Equal(t, 1, audit.calls)
	})

	t.Run("retention runs after a failed capture", func(t *testing.T) {
		snapshots := &fakeSnapshots{captureErr: errors.New("backend down")}
		err := jobs.NewSnapshotJob(snapshots, nil, 30, zap.NewNop()).Run(ctx)
		assert.ErrorContains(t, err, "backend down")
		assert.Equal(t, []int{30}, snapshots.pruned)
	})

	t.Run("no retention configured", func(t *testing.T) {
		snapshots := &fakeSnapshots{}
		audit := &fakeAudit{}
		require.NoError(t, jobs.NewSnapshotJob(snapshots, audit, 0, zap.NewNop()).Run(ctx))
		assert.Empty(t, snapshots.pruned)
		assert.Zero(t, audit.calls)
	})
}

func (f *fakeSnapshots) captured() ([]string, []domain.SnapshotTrigger) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tokens...), append([]domain.SnapshotTrigger(nil), f.triggers...)
}

func TestScheduler_RegisterAndStatus(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := jobs.NewScheduler(&config.JobsConfig{SnapshotToken: "svc-token", JobTimeoutSecs: 5}, zap.NewNop())
	job := jobs.NewSnapshotJob(&fakeSnapshots{}, nil, 0, zap.NewNop())

	require.NoError(t, s.Register(job, "0 0 6 * * *"))
	assert.Error(t, s.Register(job, "0 0 6 * * *"))
	assert.Error(t, s.Register(namedJob("bad"), "not a cron"))

	statuses := s.Status()
	require.Len(t, statuses, 1)
	assert.Equal(t, jobs.SnapshotJobName, statuses[0].Name)
	assert.Equal(t, "0 0 6 * * *", statuses[0].Schedule)
	assert.Nil(t, statuses[0].LastRun)
	assert.Nil(t, statuses[0].NextRun)

	s.Start()
	status := s.Status()[0]
	require.NotNil(t, status.NextRun)
	assert.Equal(t, 6, status.NextRun.Hour())
	<-s.Stop().Done()
}

func TestScheduler_RunsWithServiceToken(t *testing.T) {
	defer goleak.VerifyNone(t)

	snapshots := &fakeSnapshots{captureErr: errors.New("backend down")}
	s := jobs.NewScheduler(&config.JobsConfig{SnapshotToken: "svc-token", JobTimeoutSecs: 5}, zap.NewNop())
	require.NoError(t, s.Register(jobs.NewSnapshotJob(snapshots, nil, 0, zap.NewNop()), "@every 1s"))

	s.Start()
	require.Eventually(t, func() bool {
		status := s.Status()[0]
		return status.LastRun != nil && !status.Running
	}, 5*time.Second, 50*time.Millisecond)
	<-s.Stop().Done()

	tokens, triggers := snapshots.captured()
	require.NotEmpty(t, tokens)
	assert.Equal(t, "svc-token", tokens[0])
	assert.Equal(t, domain.SnapshotTriggerScheduled, triggers[0])
	assert.Contains(t, s.Status()[0].LastError, "backend down")
}

type namedJob string

func (n namedJob) Name() string                  { return string(n) }
func (n namedJob) Run(ctx context.Context) error { return nil }
