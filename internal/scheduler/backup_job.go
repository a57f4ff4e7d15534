package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// backupTimeout bounds one backup upload.
const backupTimeout = 15 * time.Minute

// BackupService defines the contract for off-site backup operations.
// Used by the job to enable testing with mocks.
type BackupService interface {
	CreateAndUploadBackup(ctx context.Context) error
	RotateOldBackups(ctx context.Context, retainCount int) error
}

// BackupJob uploads a nightly snapshot and rotates old archives.
type BackupJob struct {
	service     BackupService
	retainCount int
	log         zerolog.Logger
}

// NewBackupJob creates a new backup job
func NewBackupJob(service BackupService, retainCount int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service:     service,
		retainCount: retainCount,
		log:         log.With().Str("job", "backup").Logger(),
	}
}

// Run executes the backup job
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()

	if err := j.service.CreateAndUploadBackup(ctx); err != nil {
		return err
	}

	if err := j.service.RotateOldBackups(ctx, j.retainCount); err != nil {
		// The snapshot is safely uploaded; rotation retries tomorrow.
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}

	return nil
}

// Name returns the job name for scheduler
func (j *BackupJob) Name() string {
	return "backup"
}
