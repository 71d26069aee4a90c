package release

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"tagdeploy/internal/logger"
	"tagdeploy/internal/prompt"
)

var rlog = logger.PackageLogger("release", "🏷️ RELEASE")

// ErrTagCreationDeclined ends the run when the requested tag is missing and
// the operator refuses to create it.
var ErrTagCreationDeclined = errors.New("tag creation declined")

// VCS is the subset of the working copy the selector drives.
type VCS interface {
	CurrentBranch() (string, error)
	Checkout(ctx context.Context, ref string) error
	Merge(ctx context.Context, branch string) error
	CreateTag(ctx context.Context, name, message string) error
}

type State int

const (
	NotCheckedOut State = iota
	CheckedOut
	TagMissing
	TagCreated
	Aborted
)

func (s State) String() string {
	switch s {
	case NotCheckedOut:
		return "not-checked-out"
	case CheckedOut:
		return "checked-out"
	case TagMissing:
		return "tag-missing"
	case TagCreated:
		return "tag-created"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Selector puts the working copy on a release tag, offering to cut the tag
// when it does not exist yet.
type Selector struct {
	VCS        VCS
	Prompter   prompt.Prompter
	MainBranch string
}

// Select checks out tag. originalBranch is the branch the run started on; it
// is the branch merged into MainBranch when the operator asks for it.
//
// The returned state is CheckedOut or TagCreated on success. Aborted always
// comes with ErrTagCreationDeclined; any other error leaves the state where
// the failure happened.
func (s *Selector) Select(ctx context.Context, tag, originalBranch string) (State, error) {
	err := s.VCS.Checkout(ctx, tag)
	if err == nil {
		rlog.Info("Checked out %s", tag)
		return CheckedOut, nil
	}
	rlog.Debug("checkout %s: %v", tag, err)

	state := TagMissing
	create, err := s.Prompter.Confirm(fmt.Sprintf("A tag %s não existe. Deseja criá-la?", tag), false)
	if err != nil {
		return state, err
	}
	if !create {
		return Aborted, ErrTagCreationDeclined
	}

	message, err := s.Prompter.Input(prompt.Question{
		Message: fmt.Sprintf("Mensagem da tag %s", tag),
		Default: tag,
	})
	if err != nil {
		return state, err
	}

	if originalBranch != s.MainBranch {
		if err := s.moveToMain(ctx, originalBranch); err != nil {
			return state, err
		}
	}

	if err := s.VCS.CreateTag(ctx, tag, message); err != nil {
		return state, errors.Wrapf(err, "create tag %s", tag)
	}
	rlog.Success("Created tag %s", tag)

	if err := s.VCS.Checkout(ctx, tag); err != nil {
		return state, errors.Wrapf(err, "checkout new tag %s", tag)
	}
	return TagCreated, nil
}

func (s *Selector) moveToMain(ctx context.Context, originalBranch string) error {
	switchMain, err := s.Prompter.Confirm(
		fmt.Sprintf("Você está em %s. Mudar para %s antes de criar a tag?", originalBranch, s.MainBranch), true)
	if err != nil || !switchMain {
		return err
	}
	if err := s.VCS.Checkout(ctx, s.MainBranch); err != nil {
		return errors.Wrapf(err, "checkout %s", s.MainBranch)
	}

	merge, err := s.Prompter.Confirm(
		fmt.Sprintf("Fazer merge de %s em %s?", originalBranch, s.MainBranch), true)
	if err != nil || !merge {
		return err
	}
	if err := s.VCS.Merge(ctx, originalBranch); err != nil {
		return errors.Wrapf(err, "merge %s into %s", originalBranch, s.MainBranch)
	}
	rlog.Info("Merged %s into %s", originalBranch, s.MainBranch)
	return nil
}
