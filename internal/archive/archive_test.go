package archive

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagdeploy/internal/prompt/prompttest"
)

type fakeRunner struct {
	code int
	dir  string
	tool string
	args []string
}

func (f *fakeRunner) Run(_ context.Context, dir, tool string, args ...string) (int, error) {
	f.dir, f.tool, f.args = dir, tool, args
	return f.code, nil
}

func TestName(t *testing.T) {
	cases := []struct {
		path, tag, want string
	}{
		{"/home/u/app", "v2.0", "app_v2.0.zip"},
		{"/home/u/app/", "v2.0", "app_v2.0.zip"},
		{"relative/site", "1.0.0", "site_1.0.0.zip"},
		{"/srv/api", "release/1.2", "api_release/1.2.zip"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Name(c.path, c.tag), c.path)
	}
}

func TestParseIgnore(t *testing.T) {
	in := strings.Join([]string{
		"# deps",
		"/vendor/",
		"node_modules",
		"",
		"!keep.me",
		".env",
		"vendor",
		"../outside",
		"public/build/",
	}, "\n")

	got, err := ParseIgnore(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"vendor", "node_modules", ".env", "public/build"}, got)
}

func TestLoadCandidatesMissingFile(t *testing.T) {
	got, err := LoadCandidates(afero.NewMemMapFs(), "/p", ".gitignore")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCreateWithoutIgnoreFile(t *testing.T) {
	runner := &fakeRunner{}
	p := &prompttest.Scripted{}
	a := &Archiver{
		Tool: "zip", Runner: runner, Fs: afero.NewMemMapFs(), Prompter: p,
		Out: &bytes.Buffer{}, LogStorage: "storage/logs", IgnoreFile: ".gitignore",
	}

	res, err := a.Create(context.Background(), "/home/u/app", "v2.0")
	require.NoError(t, err)

	assert.Equal(t, "/home/u/app/app_v2.0.zip", res.Path)
	assert.Equal(t, "/home/u/app", runner.dir)
	assert.Equal(t, "zip", runner.tool)
	assert.Equal(t, []string{"-r", "app_v2.0.zip", "./", "-x",
		".git", ".git/*", "storage/logs/*", "app_v2.0.zip"}, runner.args)
	assert.Empty(t, p.Asked)
}

func TestCreateOffersIgnoreEntries(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/home/u/app/.gitignore", []byte("vendor/\nnode_modules\n.env\n"), 0o644))

	runner := &fakeRunner{}
	p := &prompttest.Scripted{Selections: [][]string{{"node_modules"}}}
	a := &Archiver{
		Tool: "zip", Runner: runner, Fs: fs, Prompter: p,
		Out: &bytes.Buffer{}, LogStorage: "storage/logs", IgnoreFile: ".gitignore",
	}

	res, err := a.Create(context.Background(), "/home/u/app", "v2.0")
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"vendor", "node_modules", ".env"}}, p.Offered)
	assert.Contains(t, runner.args, "node_modules")
	assert.Contains(t, runner.args, "node_modules/*")
	assert.NotContains(t, runner.args, "vendor")
	assert.Equal(t, res.Excluded, runner.args[4:])
}

func TestCreateKeepsGoingOnNonZeroExit(t *testing.T) {
	runner := &fakeRunner{code: 12}
	a := &Archiver{
		Tool: "zip", Runner: runner, Fs: afero.NewMemMapFs(), Prompter: &prompttest.Scripted{},
		Out: &bytes.Buffer{}, IgnoreFile: ".gitignore",
	}

	res, err := a.Create(context.Background(), "/p/app", "v1")
	require.NoError(t, err)
	assert.Equal(t, 12, res.ExitCode)
}

func TestExecRunnerReportsExitCode(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	code, err := ExecRunner{}.Run(context.Background(), t.TempDir(), "sh", "-c", "exit 3")
	require.NoError(t, err)
	assert.Equal(t, 3, code)

	_, err = ExecRunner{}.Run(context.Background(), t.TempDir(), "definitely-not-a-real-tool-xyz")
	assert.Error(t, err)
}
