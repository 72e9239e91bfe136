package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"catalyst/internal/config"
	"catalyst/internal/question"
	"catalyst/internal/scoring"
)

// runQuestions evaluates all six diagnostic questions concurrently and
// returns exactly six results sorted by question id. One question's failure,
// timeout, or panic never touches its siblings; each degrades in place.
func (o *Orchestrator) runQuestions(ctx context.Context, project, generalResearch string) []question.Result {
	specs := config.Questions()
	results := make([]question.Result, len(specs))

	g := &errgroup.Group{}
	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			results[i] = o.evaluateGuarded(ctx, project, spec, generalResearch)
			return nil
		})
	}
	_ = g.Wait() // failures are captured inside each result

	scoring.Sort(results)
	for _, r := range results {
		if !r.Success {
			o.metrics.DegradedResultsTotal.WithLabelValues(degradedReason(r)).Inc()
		}
	}
	return results
}

// evaluateGuarded runs one evaluation with a hard per-task deadline and panic
// containment. A task that overruns the deadline gets a synthetic timeout
// result; the stray goroutine is left to finish against its canceled context.
func (o *Orchestrator) evaluateGuarded(ctx context.Context, project string, spec config.QuestionSpec, generalResearch string) question.Result {
	taskCtx, cancel := context.WithTimeout(ctx, o.opts.QuestionTimeout)
	defer cancel()

	done := make(chan question.Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				o.logger.Error("question evaluator panicked", "project", project, "question_id", spec.ID, "panic", r)
				done <- question.Failed(spec,
					fmt.Sprintf("Evaluation aborted by internal error: %v", r),
					fmt.Sprintf("panic: %v", r))
			}
		}()
		done <- o.evaluator.Evaluate(taskCtx, project, spec, generalResearch)
	}()

	select {
	case r := <-done:
		return r
	case <-taskCtx.Done():
		o.logger.Warn("question evaluation timed out", "project", project, "question_id", spec.ID, "timeout", o.opts.QuestionTimeout)
		return question.Failed(spec, "Question evaluation timed out", "Timeout")
	}
}

func degradedReason(r question.Result) string {
	switch r.Error {
	case "Timeout":
		return "timeout"
	default:
		if len(r.Error) >= 6 && r.Error[:6] == "panic:" {
			return "panic"
		}
		return "upstream"
	}
}
