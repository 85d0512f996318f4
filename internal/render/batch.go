package render

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Job is one file-to-file render in a batch.
type Job struct {
	Src      string `json:"src"`
	Dst      string `json:"dst"`
	Config   Config `json:"-"`
	Override bool   `json:"override"`
}

// Result pairs a Job with its outcome. Exactly one of Output and Err is set.
type Result struct {
	Job    Job
	Output *Output
	Err    error
}

// Batch renders jobs concurrently on at most workers goroutines. workers <= 0
// uses GOMAXPROCS. Results are returned in job order.
//
// Jobs are independent: a failed job does not stop the others. Once ctx is
// done no further jobs are started and each unstarted job reports ctx.Err();
// renders already running finish normally.
func (r *Renderer) Batch(ctx context.Context, jobs []Job, workers int) []Result {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([]Result, len(jobs))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, job := range jobs {
		results[i].Job = job
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			out, err := r.RenderFile(job.Src, job.Dst, job.Config, job.Override)
			if err != nil {
				r.logger.Warn("batch job failed", zap.String("src", job.Src), zap.Error(err))
			}
			results[i].Output, results[i].Err = out, err
			return nil
		})
	}
	_ = g.Wait()

	return results
}
