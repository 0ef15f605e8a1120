//go:build !linux

package sandbox

import (
	"context"

	appErr "judgeworker/pkg/errors"
)

// Run is only implemented on Linux.
func (r *Runner) Run(ctx context.Context, req Request) (Result, error) {
	return Result{}, appErr.New(appErr.SandboxFailure).WithMessage("sandbox runner is only supported on linux")
}
