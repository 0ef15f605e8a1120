// Package grader turns one submission into one verdict.
//
// The pipeline for a job is strictly sequential: look up the language,
// load the problem, write the source into a fresh workspace, compile if
// the language requires it, then run the test cases in stored order and
// stop at the first failure. Every fault the submitter cannot fix
// becomes a System Error verdict; the only errors returned to the
// caller are context cancellation and transient infrastructure
// failures, which merit a redelivery instead of a verdict.
package grader

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"judgeworker/internal/language"
	"judgeworker/internal/model"
	"judgeworker/internal/problem"
	"judgeworker/internal/sandbox"
	appErr "judgeworker/pkg/errors"
	"judgeworker/pkg/utils/logger"
)

const (
	// compileWallLimit bounds the compile step regardless of the
	// per-problem run limit.
	compileWallLimit = 5 * time.Second

	// messageLimit bounds the stderr carried inside a verdict.
	messageLimit = 8 * 1024

	// ceilingSlack pads the per-job hard ceiling beyond the sum of the
	// individual sandbox fences.
	ceilingSlack = 10 * time.Second
)

// Sandbox runs one command in isolation.
type Sandbox interface {
	Run(ctx context.Context, req sandbox.Request) (sandbox.Result, error)
}

// Config holds grader dependencies and limits.
type Config struct {
	Registry  *language.Registry
	Problems  problem.Repository
	Sandbox   Sandbox
	WorkRoot  string
	WallLimit time.Duration
	MemLimit  int64
}

// Grader grades jobs. Safe for concurrent use; concurrent jobs never
// share a workspace.
type Grader struct {
	registry  *language.Registry
	problems  problem.Repository
	sandbox   Sandbox
	workRoot  string
	wallLimit time.Duration
	memLimit  int64
}

// New validates the configuration and builds a Grader.
func New(cfg Config) (*Grader, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("language registry is required")
	}
	if cfg.Problems == nil {
		return nil, fmt.Errorf("problem repository is required")
	}
	if cfg.Sandbox == nil {
		return nil, fmt.Errorf("sandbox is required")
	}
	if cfg.WallLimit <= 0 {
		return nil, fmt.Errorf("wall limit must be positive")
	}
	if cfg.MemLimit <= 0 {
		return nil, fmt.Errorf("memory limit must be positive")
	}
	if cfg.WorkRoot == "" {
		cfg.WorkRoot = os.TempDir()
	}
	return &Grader{
		registry:  cfg.Registry,
		problems:  cfg.Problems,
		sandbox:   cfg.Sandbox,
		workRoot:  cfg.WorkRoot,
		wallLimit: cfg.WallLimit,
		memLimit:  cfg.MemLimit,
	}, nil
}

// Grade runs the full pipeline for one job and produces its verdict.
func (g *Grader) Grade(ctx context.Context, job model.Job) (model.Verdict, error) {
	spec, err := g.registry.Lookup(job.Language)
	if err != nil {
		logger.Warn(ctx, "unsupported language", zap.String("language", job.Language))
		return model.SystemError("Unsupported language"), nil
	}

	prob, err := g.problems.LoadProblem(ctx, job.ProblemID)
	if err != nil {
		if ctx.Err() != nil {
			return model.Verdict{}, ctx.Err()
		}
		switch appErr.GetCode(err) {
		case appErr.ProblemNotFound:
			logger.Warn(ctx, "problem not found", zap.Int64("problem_id", job.ProblemID))
			return model.SystemError("Problem or test cases not found"), nil
		case appErr.TestCasesMissing:
			logger.Warn(ctx, "problem has no test cases", zap.Int64("problem_id", job.ProblemID))
			return model.SystemError("No test cases found for problem"), nil
		default:
			return model.Verdict{}, err
		}
	}

	// Bound the whole job: the per-run fences should fire long before
	// this does.
	runCtx, cancel := context.WithTimeout(ctx, g.ceiling(spec, len(prob.TestCases)))
	defer cancel()

	verdict, err := g.gradeInWorkspace(runCtx, job, spec, prob)
	if err != nil {
		if ctx.Err() != nil {
			return model.Verdict{}, ctx.Err()
		}
		if runCtx.Err() != nil {
			logger.Error(ctx, "job exceeded its time budget",
				zap.Int64("problem_id", job.ProblemID),
				zap.Int("test_cases", len(prob.TestCases)))
			return model.SystemError("Judging exceeded its time budget"), nil
		}
		return model.Verdict{}, err
	}
	return verdict, nil
}

// ceiling is the hard per-job deadline: every sandbox fence plus slack.
func (g *Grader) ceiling(spec language.Spec, cases int) time.Duration {
	d := time.Duration(cases)*(g.wallLimit+time.Second) + ceilingSlack
	if spec.Compiled() {
		d += compileWallLimit + time.Second
	}
	return d
}

func (g *Grader) gradeInWorkspace(ctx context.Context, job model.Job, spec language.Spec, prob *problem.Problem) (model.Verdict, error) {
	workspace, removeWorkspace, err := createWorkspace(g.workRoot, job.SubmissionID)
	if err != nil {
		logger.Error(ctx, "create workspace failed", zap.Error(err))
		return model.SystemError("Failed to prepare submission workspace"), nil
	}
	defer removeWorkspace()

	sourcePath := filepath.Join(workspace, spec.SourceFile)
	if err := os.WriteFile(sourcePath, []byte(job.Code), 0644); err != nil {
		logger.Error(ctx, "write source failed", zap.Error(err))
		return model.SystemError("Failed to prepare submission workspace"), nil
	}

	if spec.Compiled() {
		verdict, ok, err := g.compile(ctx, spec, workspace)
		if err != nil || !ok {
			return verdict, err
		}
	}

	return g.runCases(ctx, spec, workspace, prob)
}

// compile runs the language's compile command. ok=false means a verdict
// was produced and grading stops.
func (g *Grader) compile(ctx context.Context, spec language.Spec, workspace string) (model.Verdict, bool, error) {
	argv, err := spec.CompileArgv()
	if err != nil {
		logger.Error(ctx, "compile command invalid", zap.String("language", spec.Name), zap.Error(err))
		return model.SystemError("Judge system error"), false, nil
	}

	res, err := g.sandbox.Run(ctx, sandbox.Request{
		Argv:      argv,
		Workspace: workspace,
		Stdin:     "",
		WallLimit: compileWallLimit,
		MemLimit:  g.memLimit,
	})
	if err != nil {
		if ctx.Err() != nil {
			return model.Verdict{}, false, err
		}
		logger.Error(ctx, "compile sandbox failed", zap.Error(err))
		return model.CompileError(truncateMessage(err.Error())), false, nil
	}

	switch res.Kind {
	case sandbox.KindTimeout:
		return model.CompileError("compilation timed out"), false, nil
	case sandbox.KindMemoryExceeded:
		return model.CompileError("compilation exceeded the memory limit"), false, nil
	}
	if res.ExitCode != 0 {
		return model.CompileError(truncateMessage(res.Stderr)), false, nil
	}
	return model.Verdict{}, true, nil
}

func (g *Grader) runCases(ctx context.Context, spec language.Spec, workspace string, prob *problem.Problem) (model.Verdict, error) {
	argv, err := spec.RunArgv()
	if err != nil {
		logger.Error(ctx, "run command invalid", zap.String("language", spec.Name), zap.Error(err))
		return model.SystemError("Judge system error"), nil
	}

	var maxElapsed time.Duration
	for i, tc := range prob.TestCases {
		caseNo := i + 1
		res, err := g.sandbox.Run(ctx, sandbox.Request{
			Argv:      argv,
			Workspace: workspace,
			Stdin:     decodePayload(tc.InputData),
			WallLimit: g.wallLimit,
			MemLimit:  g.memLimit,
		})
		if err != nil {
			if ctx.Err() != nil {
				return model.Verdict{}, err
			}
			logger.Error(ctx, "sandbox run failed", zap.Int("case", caseNo), zap.Error(err))
			return model.SystemError("Sandbox execution failed"), nil
		}

		if res.Elapsed > maxElapsed {
			maxElapsed = res.Elapsed
		}

		switch res.Kind {
		case sandbox.KindTimeout:
			return model.TimeLimitExceeded(caseNo), nil
		case sandbox.KindMemoryExceeded:
			return model.MemoryLimitExceeded(caseNo), nil
		}
		if res.ExitCode != 0 {
			return model.RuntimeError(caseNo, truncateMessage(res.Stderr)), nil
		}
		if !outputMatches(res.Stdout, decodePayload(tc.OutputData)) {
			return model.WrongAnswer(caseNo), nil
		}
	}

	return model.Accepted(roundSeconds(maxElapsed)), nil
}

// roundSeconds reports a duration as seconds rounded to 4 decimals.
func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*10000) / 10000
}

func truncateMessage(s string) string {
	if len(s) <= messageLimit {
		return s
	}
	return s[:messageLimit]
}
