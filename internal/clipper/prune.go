package clipper

import (
	"context"
	"time"

	"clipper/internal/store"
)

// PruneInput controls one prune run. Only files older than OlderThan are
// considered; zero means every unattached file.
type PruneInput struct {
	OlderThan time.Duration
	BatchSize int
	Apply     bool
}

// PruneResult reports one prune run.
type PruneResult struct {
	CandidateCount int  `json:"candidate_count" yaml:"candidate_count"`
	DeletedCount   int  `json:"deleted_count" yaml:"deleted_count"`
	VetoedCount    int  `json:"vetoed_count" yaml:"vetoed_count"`
	FailedCount    int  `json:"failed_count" yaml:"failed_count"`
	DryRun         bool `json:"dry_run" yaml:"dry_run"`
}

// Prune sweeps files that no owner references. Without Apply it only
// counts them. Deletions run through the delete hooks, so a processor can
// keep a file.
func (s *Service) Prune(ctx context.Context, in PruneInput) (PruneResult, error) {
	result := PruneResult{DryRun: !in.Apply}
	batchSize := in.BatchSize
	if batchSize <= 0 {
		batchSize = s.pruneBatchSize
	}
	filter := store.ListFilesFilter{Unattached: true}
	if in.OlderThan > 0 {
		filter.CreatedBefore = time.Now().UTC().Add(-in.OlderThan)
	}

	if !in.Apply {
		files, err := s.files.ListFiles(ctx, filter)
		if err != nil {
			return result, err
		}
		result.CandidateCount = len(files)
		return result, nil
	}

	filter.Limit = batchSize
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		files, err := s.files.ListFiles(ctx, filter)
		if err != nil {
			return result, err
		}
		if len(files) == 0 {
			return result, nil
		}
		result.CandidateCount += len(files)

		for i := range files {
			file := &files[i]
			// Files that survive this pass are not listed again.
			filter.AfterID = file.ID

			deleted, err := s.Delete(ctx, file, nil)
			switch {
			case err != nil:
				result.FailedCount++
				s.logger.Warn("prune delete failed", "file_id", file.ID, "error", err)
			case !deleted:
				result.VetoedCount++
			default:
				result.DeletedCount++
			}
		}
	}
}
