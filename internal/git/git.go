package git

import (
	"bytes"
	"context"
	"os/exec"
	"sort"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/pkg/errors"
	"golang.org/x/mod/semver"

	"tagdeploy/internal/logger"
)

var gitlog = logger.PackageLogger("git", "🔀 GIT")

// ErrDetachedHead is returned by CurrentBranch when HEAD does not point at a
// branch, so there is nothing to restore to.
var ErrDetachedHead = errors.New("HEAD is detached")

// Repository is a local working copy. Queries go through go-git; anything that
// touches the worktree runs the git binary so hooks, merge strategies and the
// operator's identity behave exactly as on the command line.
type Repository struct {
	dir  string
	repo *gogit.Repository

	// TagOrder decides which tag Tags lists first. The zero value is OrderByDate.
	TagOrder TagOrder
}

// TagOrder is how "latest" is defined for tags.
type TagOrder string

const (
	OrderByDate    TagOrder = "date"
	OrderByVersion TagOrder = "version"
)

// ParseTagOrder maps a config string onto a TagOrder.
func ParseTagOrder(s string) (TagOrder, error) {
	switch TagOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrderByDate:
		return OrderByDate, nil
	case OrderByVersion:
		return OrderByVersion, nil
	}
	return "", errors.Errorf("unknown tag order %q", s)
}

// Open opens the working copy rooted at dir.
func Open(dir string) (*Repository, error) {
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "open repository %s", dir)
	}
	return &Repository{dir: dir, repo: repo}, nil
}

func (r *Repository) CurrentBranch() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", errors.Wrap(err, "resolve HEAD")
	}
	if !head.Name().IsBranch() {
		return "", ErrDetachedHead
	}
	return head.Name().Short(), nil
}

type datedTag struct {
	name string
	when time.Time
}

// Tags lists tag names, most recent first. Annotated tags are dated by their
// tagger, lightweight tags by the commit they point at. With OrderByVersion
// the highest semantic version comes first instead, whatever its date.
func (r *Repository) Tags() ([]string, error) {
	iter, err := r.repo.Tags()
	if err != nil {
		return nil, errors.Wrap(err, "list tags")
	}

	var tags []datedTag
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		t := datedTag{name: ref.Name().Short()}
		if obj, err := r.repo.TagObject(ref.Hash()); err == nil {
			t.when = obj.Tagger.When
		} else if c, err := r.repo.CommitObject(ref.Hash()); err == nil {
			t.when = c.Committer.When
		}
		tags = append(tags, t)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "walk tags")
	}

	if r.TagOrder == OrderByVersion {
		sortByVersion(tags)
	} else {
		sortByDate(tags)
	}

	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.name
	}
	return names, nil
}

func sortByDate(tags []datedTag) {
	sort.SliceStable(tags, func(i, j int) bool {
		if !tags[i].when.Equal(tags[j].when) {
			return tags[i].when.After(tags[j].when)
		}
		return tags[i].name > tags[j].name
	})
}

// sortByVersion puts valid versions first, highest first. "1.2" counts as
// "v1.2". Anything else follows, newest first.
func sortByVersion(tags []datedTag) {
	sortByDate(tags)
	sort.SliceStable(tags, func(i, j int) bool {
		vi, vj := canonicalVersion(tags[i].name), canonicalVersion(tags[j].name)
		if vi == "" || vj == "" {
			return vi != "" && vj == ""
		}
		return semver.Compare(vi, vj) > 0
	})
}

func canonicalVersion(tag string) string {
	if !strings.HasPrefix(tag, "v") {
		tag = "v" + tag
	}
	if !semver.IsValid(tag) {
		return ""
	}
	return tag
}

// LatestTag returns the most recent tag, or false when the repository has none.
func (r *Repository) LatestTag() (string, bool, error) {
	tags, err := r.Tags()
	if err != nil || len(tags) == 0 {
		return "", false, err
	}
	return tags[0], true, nil
}

func (r *Repository) Checkout(ctx context.Context, ref string) error {
	_, err := r.run(ctx, "checkout", ref)
	return err
}

// Merge merges branch into the current branch.
func (r *Repository) Merge(ctx context.Context, branch string) error {
	_, err := r.run(ctx, "merge", branch)
	return err
}

// CreateTag creates an annotated tag at HEAD.
func (r *Repository) CreateTag(ctx context.Context, name, message string) error {
	_, err := r.run(ctx, "tag", "-a", name, "-m", message)
	return err
}

// IsDirty reports whether the worktree has uncommitted changes.
func (r *Repository) IsDirty(ctx context.Context) (bool, error) {
	out, err := r.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

func (r *Repository) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	gitlog.Debug("git %s", strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", errors.Errorf("git %s failed: %s", args[0], msg)
	}
	return strings.TrimSpace(stdout.String()), nil
}
