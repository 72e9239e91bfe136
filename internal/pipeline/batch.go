package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// BatchOptions pace a multi-project run. Size bounds in-flight projects per
// batch; delays stagger launches so the upstream APIs are not slammed.
type BatchOptions struct {
	Size            int
	ProjectDelay    time.Duration
	InterBatchDelay time.Duration
	ProjectTimeout  time.Duration
}

// RunBatch analyzes projects in batches of opts.Size, each project under its
// own deadline. The returned slice is index-aligned with projects; a project
// that panics or overruns its deadline yields a FAILED entry, never a gap.
func (o *Orchestrator) RunBatch(ctx context.Context, projects []Project, opts BatchOptions) []*RunResult {
	if opts.Size < 1 {
		opts.Size = 1
	}
	results := make([]*RunResult, len(projects))

	for start := 0; start < len(projects); start += opts.Size {
		end := start + opts.Size
		if end > len(projects) {
			end = len(projects)
		}
		batchNum := start/opts.Size + 1
		o.logger.Info("starting batch", "batch", batchNum, "projects", end-start)

		g, batchCtx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Size)
		for i := start; i < end; i++ {
			i := i
			stagger := time.Duration(i-start) * opts.ProjectDelay
			g.Go(func() error {
				if stagger > 0 {
					select {
					case <-time.After(stagger):
					case <-batchCtx.Done():
						results[i] = &RunResult{Project: projects[i].Name, State: StateFailed, Err: batchCtx.Err()}
						return nil
					}
				}
				results[i] = o.runGuarded(batchCtx, projects[i], opts.ProjectTimeout)
				return nil
			})
		}
		_ = g.Wait() // per-project failures live in results

		if end < len(projects) && opts.InterBatchDelay > 0 {
			select {
			case <-time.After(opts.InterBatchDelay):
			case <-ctx.Done():
				for i := end; i < len(projects); i++ {
					results[i] = &RunResult{Project: projects[i].Name, State: StateFailed, Err: ctx.Err()}
				}
				return results
			}
		}
	}
	return results
}

// runGuarded runs one project under its deadline with panic containment.
func (o *Orchestrator) runGuarded(ctx context.Context, p Project, timeout time.Duration) (res *RunResult) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("project analysis panicked", "project", p.Name, "panic", r)
			res = &RunResult{
				Project: p.Name,
				State:   StateFailed,
				Err:     fmt.Errorf("analysis panicked: %v", r),
			}
			o.metrics.ProjectsTotal.WithLabelValues("failed").Inc()
		}
	}()

	projCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		projCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return o.AnalyzeProject(projCtx, p)
}
