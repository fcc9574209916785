package inbox

import (
	"context"

	"github.com/bookdrop/bookdrop/pkg/jobs"
	"github.com/robinjoseph08/golib/logger"
)

// JobEnqueuer queues an import job per archive, skipping archives that
// already have one pending or running. The job removes the archive when it
// finishes so the inbox drains.
func JobEnqueuer(svc *jobs.Service) EnqueueFunc {
	return func(ctx context.Context, path string) error {
		active, err := svc.HasActiveImportForArchive(ctx, path)
		if err != nil {
			return err
		}
		if active {
			logger.FromContext(ctx).Debug("archive already queued")
			return nil
		}
		_, err = svc.EnqueueArchiveImport(ctx, path, true)
		return err
	}
}
