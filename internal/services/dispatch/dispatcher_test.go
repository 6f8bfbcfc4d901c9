package dispatch_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/openscribe/consult-api/internal/models"
	"github.com/openscribe/consult-api/internal/services/dispatch"
	"github.com/openscribe/consult-api/internal/services/jobs"
)

type fakeQueue struct {
	enqueued []models.JobPayload
	err      error
}

func (f *fakeQueue) EnqueueUniqueJob(ctx context.Context, jobType models.JobType, payload models.JobPayload, uniqueKey string, opts ...jobs.JobOption) (*models.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.enqueued = append(f.enqueued, payload)
	return &models.Job{Model: gorm.Model{ID: uint(len(f.enqueued))}, Type: jobType, Payload: payload}, nil
}

func TestDispatchCompletedQueuesLetter(t *testing.T) {
	queue := &fakeQueue{}
	d := dispatch.NewDispatcher(queue, nil)

	recording := &models.Recording{
		ID:     "rec-1",
		Status: models.RecordingStatusTranscribed,
	}
	require.NoError(t, d.DispatchCompleted(context.Background(), recording))

	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, "rec-1", queue.enqueued[0]["recording_id"])
}

func TestDispatchCompletedRejectsWrongState(t *testing.T) {
	queue := &fakeQueue{}
	d := dispatch.NewDispatcher(queue, nil)

	recording := &models.Recording{
		ID:     "rec-1",
		Status: models.RecordingStatusTranscribing,
	}
	assert.Error(t, d.DispatchCompleted(context.Background(), recording))
	assert.Empty(t, queue.enqueued)
}

func TestDispatchCompletedPropagatesQueueError(t *testing.T) {
	queue := &fakeQueue{err: errors.New("queue unavailable")}
	d := dispatch.NewDispatcher(queue, nil)

	recording := &models.Recording{
		ID:     "rec-1",
		Status: models.RecordingStatusTranscribed,
	}
	assert.Error(t, d.DispatchCompleted(context.Background(), recording))
}
