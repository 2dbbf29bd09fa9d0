package clipper

import (
	"context"
	"io"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"clipper/internal/models"
)

const defaultWarmConcurrency = 4

// WarmResult reports one warm run.
type WarmResult struct {
	Resolved int `json:"resolved" yaml:"resolved"`
	Failed   int `json:"failed" yaml:"failed"`
}

// Warm resolves opts for every file with at most concurrency resolutions
// in flight, so later reads are cache hits. A failing file is counted and
// does not stop the others.
func (s *Service) Warm(ctx context.Context, files []models.File, opts models.Options, concurrency int) (WarmResult, error) {
	if concurrency <= 0 {
		concurrency = defaultWarmConcurrency
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var resolved, failed atomic.Int64
	for i := range files {
		file := &files[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := s.warmOne(gctx, file, opts); err != nil {
				failed.Add(1)
				s.logger.Warn("warm failed", "file_id", file.ID, "error", err)
				return nil
			}
			resolved.Add(1)
			return nil
		})
	}
	err := g.Wait()
	return WarmResult{Resolved: int(resolved.Load()), Failed: int(failed.Load())}, err
}

func (s *Service) warmOne(ctx context.Context, file *models.File, opts models.Options) error {
	rc, err := s.Resolve(ctx, file, opts)
	if err != nil {
		return err
	}
	defer rc.Close()
	_, err = io.Copy(io.Discard, rc)
	return err
}
