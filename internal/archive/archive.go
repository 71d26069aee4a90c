package archive

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"tagdeploy/internal/logger"
	"tagdeploy/internal/progress"
	"tagdeploy/internal/prompt"
)

var alog = logger.PackageLogger("archive", "📦 ARCHIVE")

// Name is "<last path component>_<tag>.zip". The tag is substituted as-is.
func Name(projectPath, tag string) string {
	return filepath.Base(filepath.Clean(projectPath)) + "_" + tag + ".zip"
}

// Runner starts the archive tool. A non-zero exit is reported through the
// exit code, not the error; the error is reserved for failing to run at all.
type Runner interface {
	Run(ctx context.Context, dir, tool string, args ...string) (int, error)
}

type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir, tool string, args ...string) (int, error) {
	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Dir = dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return -1, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		alog.Debug("%s stderr: %s", tool, strings.TrimSpace(stderr.String()))
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, errors.Wrapf(err, "run %s", tool)
	}
	return 0, nil
}

// Result describes the archive produced for a release.
type Result struct {
	Path     string
	ExitCode int
	Excluded []string
}

type Archiver struct {
	Tool       string
	Runner     Runner
	Fs         afero.Fs
	Prompter   prompt.Prompter
	Out        io.Writer
	LogStorage string
	IgnoreFile string
}

func (a *Archiver) baseExcludes(name string) []string {
	ex := []string{".git", ".git/*"}
	if ls := strings.Trim(a.LogStorage, "/"); ls != "" {
		ex = append(ex, ls+"/*")
	}
	return append(ex, name)
}

// Create archives root into root/Name(root, tag). Version-control metadata and
// the log storage are always left out; entries from the ignore file are
// offered to the operator as additional exclusions.
//
// A non-zero exit of the archive tool is logged and returned in the result
// but does not fail the call.
func (a *Archiver) Create(ctx context.Context, root, tag string) (*Result, error) {
	name := Name(root, tag)
	excludes := a.baseExcludes(name)

	candidates, err := LoadCandidates(a.Fs, root, a.IgnoreFile)
	if err != nil {
		return nil, err
	}
	if len(candidates) > 0 {
		selected, err := a.Prompter.MultiSelect(
			"Itens do "+a.IgnoreFile+" que NÃO devem ir para o pacote", candidates)
		if err != nil {
			return nil, err
		}
		for _, entry := range selected {
			excludes = append(excludes, Patterns(entry)...)
		}
	}

	args := append([]string{"-r", name, "./", "-x"}, excludes...)
	alog.Debug("%s %s", a.Tool, strings.Join(args, " "))

	var code int
	err = progress.Run(a.Out, "Compactando "+name, func() error {
		var runErr error
		code, runErr = a.Runner.Run(ctx, root, a.Tool, args...)
		return runErr
	})
	if err != nil {
		return nil, err
	}
	if code != 0 {
		alog.Warn("%s exited with code %d; continuing with %s", a.Tool, code, name)
	}

	return &Result{
		Path:     filepath.Join(root, name),
		ExitCode: code,
		Excluded: excludes,
	}, nil
}
