package ship

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"tagdeploy/internal/archive"
	"tagdeploy/internal/logger"
	"tagdeploy/internal/release"
	"tagdeploy/internal/sshconfig"
)

// SuccessMessage is printed once the release is live.
const SuccessMessage = "Projeto enviado para produção!"

var (
	shiplog = logger.PackageLogger("ship", "🚢 SHIP")

	successColor = color.New(color.FgGreen, color.Bold)
	infoColor    = color.New(color.FgCyan, color.Bold)
	warnColor    = color.New(color.FgYellow, color.Bold)
)

// Repo is the working copy a run operates on.
type Repo interface {
	release.VCS
	TagSource
	IsDirty(ctx context.Context) (bool, error)
}

type Archiver interface {
	Create(ctx context.Context, root, tag string) (*archive.Result, error)
}

type HostResolver interface {
	Resolve(name string) (*sshconfig.Host, error)
}

// Pipeline wires the stages of a run. Stages execute strictly one after the
// other: collect, select version, archive, restore branch, resolve host,
// deploy.
type Pipeline struct {
	Collector  *Collector
	OpenRepo   func(projectPath string) (Repo, error)
	MainBranch string
	Archiver   Archiver
	Resolver   HostResolver
	Deployer   *Deployer
	Out        io.Writer
}

// Run performs one release. Every terminal condition is returned as an error;
// deciding the exit status is left to the caller.
func (p *Pipeline) Run(ctx context.Context) error {
	sel, err := p.Collector.Collect()
	if err != nil {
		return err
	}

	repo, err := p.OpenRepo(sel.ProjectPath)
	if err != nil {
		return err
	}

	built, err := p.buildRelease(ctx, repo, sel)
	if err != nil {
		return err
	}

	host, err := p.Resolver.Resolve(sel.Server)
	if err != nil {
		return err
	}

	infoColor.Fprintf(p.Out, "Enviando %s (%s) para %s:%s\n", sel.ProjectPath, sel.Tag, host.Alias, sel.RemoteFolder)
	if err := p.Deployer.Deploy(ctx, host, built.Path, sel.RemoteFolder); err != nil {
		return err
	}

	successColor.Fprintln(p.Out, SuccessMessage)
	return nil
}

// buildRelease checks out the tag and archives it, then puts the working
// copy back on the branch it started on whatever happened in between.
func (p *Pipeline) buildRelease(ctx context.Context, repo Repo, sel *Selection) (res *archive.Result, err error) {
	restorer, err := release.Capture(repo)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Append(err, restorer.Restore(ctx))
	}()

	if dirty, dErr := repo.IsDirty(ctx); dErr == nil && dirty {
		warnColor.Fprintf(p.Out, "Há alterações não commitadas em %s\n", sel.ProjectPath)
	}

	selector := &release.Selector{
		VCS:        repo,
		Prompter:   p.Collector.Prompter,
		MainBranch: p.MainBranch,
	}
	state, err := selector.Select(ctx, sel.Tag, restorer.Branch())
	if err != nil {
		return nil, err
	}
	shiplog.Debug("version selector finished in state %s", state)

	res, err = p.Archiver.Create(ctx, sel.ProjectPath, sel.Tag)
	if err != nil {
		return nil, errors.Wrap(err, "create archive")
	}
	if res.ExitCode != 0 {
		warnColor.Fprintf(p.Out, "O compactador terminou com código %d\n", res.ExitCode)
	}
	fmt.Fprintf(p.Out, "Pacote %s criado\n", res.Path)
	return res, nil
}
