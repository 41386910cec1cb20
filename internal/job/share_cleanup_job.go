package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/obsilock/obsilock/internal/pkg/timeutil"
	"github.com/obsilock/obsilock/internal/repo"
)

// ShareCleanupJob purges shares that are both revoked and past expiry.
// Live or merely expired shares are kept so their audit trail and the
// 410 reason reported to the public stay intact.
type ShareCleanupJob struct {
	shares *repo.ShareRepo
}

func NewShareCleanupJob(shares *repo.ShareRepo) *ShareCleanupJob {
	return &ShareCleanupJob{shares: shares}
}

func (j *ShareCleanupJob) Name() string {
	return "share_cleanup"
}

func (j *ShareCleanupJob) Run(ctx context.Context) error {
	removed, err := j.shares.DeleteExpiredRevoked(ctx, timeutil.NowUnix())
	if err != nil {
		return err
	}
	if removed > 0 {
		logutil.GetLogger(ctx).Info("purged dead shares", zap.Int64("count", removed))
	}
	return nil
}
