package recordings_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openscribe/consult-api/internal/models"
	"github.com/openscribe/consult-api/internal/services/recordings"
)

func newRepository(t *testing.T) recordings.Repository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Recording{}))

	return recordings.NewRepository(db)
}

func seedRecording(t *testing.T, repo recordings.Repository, status models.RecordingStatus) *models.Recording {
	t.Helper()

	recording := &models.Recording{
		OwnerID:      "owner-1",
		ClientRef:    uuid.NewString(),
		CaptureMode:  models.CaptureModeAmbient,
		ConsentBasis: models.ConsentBasisVerbal,
		Status:       status,
	}
	require.NoError(t, repo.Create(context.Background(), recording))
	return recording
}

func TestCreateDuplicateClientRef(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()

	clientRef := uuid.NewString()
	first := &models.Recording{
		OwnerID:      "owner-1",
		ClientRef:    clientRef,
		CaptureMode:  models.CaptureModeAmbient,
		ConsentBasis: models.ConsentBasisVerbal,
		Status:       models.RecordingStatusUploading,
	}
	require.NoError(t, repo.Create(ctx, first))

	dup := &models.Recording{
		OwnerID:      "owner-1",
		ClientRef:    clientRef,
		CaptureMode:  models.CaptureModeAmbient,
		ConsentBasis: models.ConsentBasisVerbal,
		Status:       models.RecordingStatusUploading,
	}
	err := repo.Create(ctx, dup)
	assert.ErrorIs(t, err, recordings.ErrDuplicateClientRef)
}

func TestUpdateStatusIf(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()
	recording := seedRecording(t, repo, models.RecordingStatusUploading)

	// Guard matches: transition applies
	err := repo.UpdateStatusIf(ctx, recording.ID,
		[]models.RecordingStatus{models.RecordingStatusUploading},
		map[string]interface{}{"status": models.RecordingStatusUploaded})
	require.NoError(t, err)

	current, err := repo.GetByID(ctx, recording.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RecordingStatusUploaded, current.Status)

	// Guard no longer matches: conflict, state unchanged
	err = repo.UpdateStatusIf(ctx, recording.ID,
		[]models.RecordingStatus{models.RecordingStatusUploading},
		map[string]interface{}{"status": models.RecordingStatusUploaded})
	assert.ErrorIs(t, err, recordings.ErrStateConflict)

	// Missing row reports not found, not conflict
	err = repo.UpdateStatusIf(ctx, uuid.NewString(),
		[]models.RecordingStatus{models.RecordingStatusUploading},
		map[string]interface{}{"status": models.RecordingStatusUploaded})
	assert.ErrorIs(t, err, recordings.ErrRecordingNotFound)
}

func TestSoftDeleteIf(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()

	deletable := seedRecording(t, repo, models.RecordingStatusFailed)
	require.NoError(t, repo.SoftDeleteIf(ctx, deletable.ID,
		[]models.RecordingStatus{models.RecordingStatusFailed}))

	_, err := repo.GetByID(ctx, deletable.ID)
	assert.ErrorIs(t, err, recordings.ErrRecordingNotFound)

	retained := seedRecording(t, repo, models.RecordingStatusTranscribed)
	err = repo.SoftDeleteIf(ctx, retained.ID,
		[]models.RecordingStatus{models.RecordingStatusFailed})
	assert.ErrorIs(t, err, recordings.ErrStateConflict)
}

func TestListByOwner(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()

	seedRecording(t, repo, models.RecordingStatusUploading)
	seedRecording(t, repo, models.RecordingStatusUploaded)

	other := &models.Recording{
		OwnerID:      "owner-2",
		ClientRef:    uuid.NewString(),
		CaptureMode:  models.CaptureModeDictation,
		ConsentBasis: models.ConsentBasisWritten,
		Status:       models.RecordingStatusUploading,
	}
	require.NoError(t, repo.Create(ctx, other))

	mine, err := repo.ListByOwner(ctx, "owner-1", 0)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	theirs, err := repo.ListByOwner(ctx, "owner-2", 0)
	require.NoError(t, err)
	assert.Len(t, theirs, 1)
}
