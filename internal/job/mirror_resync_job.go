package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type MirrorSyncer interface {
	ResyncMirror(ctx context.Context) (int, error)
}

// MirrorResyncJob rewrites the fast-path mirror from the durable store so a
// mirror that fell behind (for example after a quota trim) converges again.
type MirrorResyncJob struct {
	store MirrorSyncer
}

func NewMirrorResyncJob(store MirrorSyncer) *MirrorResyncJob {
	return &MirrorResyncJob{store: store}
}

func (j *MirrorResyncJob) Name() string {
	return "mirror_resync"
}

func (j *MirrorResyncJob) Run(ctx context.Context) error {
	if j.store == nil {
		return nil
	}
	n, err := j.store.ResyncMirror(ctx)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Debug("mirror resynced", zap.Int("banks", n))
	return nil
}
