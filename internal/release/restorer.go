package release

import (
	"context"

	"github.com/pkg/errors"
)

// Restorer remembers the branch a run started on.
type Restorer struct {
	vcs    VCS
	branch string
}

// Capture records the current branch. It must be called before any checkout.
func Capture(vcs VCS) (*Restorer, error) {
	branch, err := vcs.CurrentBranch()
	if err != nil {
		return nil, errors.Wrap(err, "capture original branch")
	}
	return &Restorer{vcs: vcs, branch: branch}, nil
}

func (r *Restorer) Branch() string { return r.branch }

// Restore checks the original branch back out. It ignores cancellation of ctx
// so an interrupted run still leaves the working copy where it was found.
func (r *Restorer) Restore(ctx context.Context) error {
	if err := r.vcs.Checkout(context.WithoutCancel(ctx), r.branch); err != nil {
		return errors.Wrapf(err, "restore branch %s", r.branch)
	}
	rlog.Info("Restored branch %s", r.branch)
	return nil
}
