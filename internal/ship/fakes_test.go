package ship

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"tagdeploy/internal/archive"
	"tagdeploy/internal/remote"
	"tagdeploy/internal/sshconfig"
)

type fakeRepo struct {
	branch string
	tags   map[string]bool
	order  []string
	head   string
	calls  []string
	dirty  bool
}

func newFakeRepo(branch string, tags ...string) *fakeRepo {
	r := &fakeRepo{branch: branch, head: branch, tags: make(map[string]bool)}
	for _, t := range tags {
		r.tags[t] = true
		r.order = append([]string{t}, r.order...)
	}
	return r
}

func (r *fakeRepo) CurrentBranch() (string, error) { return r.head, nil }

func (r *fakeRepo) Checkout(_ context.Context, ref string) error {
	r.calls = append(r.calls, "checkout "+ref)
	if r.tags[ref] || ref == "master" || ref == r.branch {
		r.head = ref
		return nil
	}
	return errors.Errorf("pathspec '%s' did not match", ref)
}

func (r *fakeRepo) Merge(_ context.Context, branch string) error {
	r.calls = append(r.calls, "merge "+branch)
	return nil
}

func (r *fakeRepo) CreateTag(_ context.Context, name, message string) error {
	r.calls = append(r.calls, "tag "+name)
	r.tags[name] = true
	r.order = append([]string{name}, r.order...)
	return nil
}

func (r *fakeRepo) LatestTag() (string, bool, error) {
	if len(r.order) == 0 {
		return "", false, nil
	}
	return r.order[0], true, nil
}

func (r *fakeRepo) IsDirty(context.Context) (bool, error) { return r.dirty, nil }

// fakeArchiver writes an empty archive where the real one would go.
type fakeArchiver struct {
	fs      afero.Fs
	created []string
}

func (a *fakeArchiver) Create(_ context.Context, root, tag string) (*archive.Result, error) {
	path := root + "/" + archive.Name(root, tag)
	if err := afero.WriteFile(a.fs, path, []byte("PK"), 0o644); err != nil {
		return nil, err
	}
	a.created = append(a.created, path)
	return &archive.Result{Path: path}, nil
}

type fakeResolver map[string]*sshconfig.Host

func (f fakeResolver) Resolve(name string) (*sshconfig.Host, error) {
	if h, ok := f[name]; ok {
		return h, nil
	}
	return nil, &sshconfig.UnknownHostError{Name: name}
}

// fakeServer simulates just enough of a remote filesystem for the deploy
// commands: which folders exist and where the uploaded archive is.
type fakeServer struct {
	folders map[string]bool
	files   map[string]bool
	cmds    []string
	uploads []string
	dials   int
	closed  int

	failCmd    string
	failUpload error
}

func newFakeServer(folders ...string) *fakeServer {
	s := &fakeServer{folders: make(map[string]bool), files: make(map[string]bool)}
	for _, f := range folders {
		s.folders[f] = true
	}
	return s
}

func (s *fakeServer) Dial(context.Context, *sshconfig.Host) (remote.Session, error) {
	s.dials++
	return &fakeSession{server: s}, nil
}

type fakeSession struct {
	server *fakeServer
}

func (f *fakeSession) PutFile(_ context.Context, local, remotePath string) error {
	f.server.uploads = append(f.server.uploads, local)
	if f.server.failUpload != nil {
		return f.server.failUpload
	}
	f.server.files[remotePath] = true
	return nil
}

func (f *fakeSession) Exec(_ context.Context, cmd string) (*remote.Result, error) {
	s := f.server
	s.cmds = append(s.cmds, cmd)
	if s.failCmd != "" && strings.Contains(cmd, s.failCmd) {
		return &remote.Result{Code: 1, Stderr: "boom"}, nil
	}

	switch {
	case strings.HasPrefix(cmd, `[ -d "`):
		folder := strings.TrimSuffix(strings.TrimPrefix(cmd, `[ -d "`), `" ] && echo true`)
		if s.folders[folder] {
			return &remote.Result{Stdout: "true\n"}, nil
		}
		return &remote.Result{Code: 1}, nil
	case strings.HasPrefix(cmd, "rm -f "):
		delete(s.files, strings.TrimPrefix(cmd, "rm -f "))
	case strings.HasPrefix(cmd, "sudo mv "):
		var name, dest string
		fmt.Sscanf(cmd, "sudo mv %s %s", &name, &dest)
		delete(s.files, name)
		s.files[dest+name] = true
	}
	return &remote.Result{}, nil
}

func (f *fakeSession) ExecIn(ctx context.Context, cmd, cwd string) (*remote.Result, error) {
	res, err := f.Exec(ctx, remote.InDir(cwd, cmd))
	if err == nil && strings.Contains(cmd, "sudo rm ") {
		for name := range f.server.files {
			if strings.HasPrefix(name, cwd+"/") {
				delete(f.server.files, name)
			}
		}
	}
	return res, err
}

func (f *fakeSession) Close() error {
	f.server.closed++
	return nil
}
