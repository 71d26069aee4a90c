/*
Copyright © 2025 Yussuf
*/
package cmd

import (
	"os"
	"os/signal"
	"os/user"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"tagdeploy/internal/archive"
	"tagdeploy/internal/config"
	"tagdeploy/internal/failfast"
	"tagdeploy/internal/git"
	"tagdeploy/internal/logger"
	"tagdeploy/internal/prompt"
	"tagdeploy/internal/remote"
	"tagdeploy/internal/ship"
	"tagdeploy/internal/sshconfig"
)

const dialTimeout = 30 * time.Second

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tagdeploy",
	Short: "Ship a tagged release of a project to a server over ssh",
	Long: `tagdeploy asks which project, tag, server and folder to use, checks the tag
out (offering to create it), zips the tree, uploads it over ssh and unpacks it
in the target folder. The working copy is put back on its original branch.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDeploy,
}

// Execute runs the root command and is the only place the process exits.
func Execute() {
	err := rootCmd.Execute()
	if code := failfast.Report(os.Stderr, err); code != 0 {
		os.Exit(code)
	}
}

func runDeploy(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	pipeline, err := newPipeline(cmd)
	if err != nil {
		return err
	}
	return pipeline.Run(ctx)
}

func newPipeline(cmd *cobra.Command) (*ship.Pipeline, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.Wrap(err, "locate home directory")
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "locate working directory")
	}

	fs := afero.NewOsFs()
	settings, err := config.Load(fs, home)
	if err != nil {
		return nil, err
	}
	level, err := logger.ParseLevel(settings.LogLevel)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)
	logger.SetOutput(cmd.ErrOrStderr())

	tagOrder, err := git.ParseTagOrder(settings.TagOrder)
	if err != nil {
		return nil, err
	}

	out := cmd.OutOrStdout()
	prompter := prompt.NewCLIPrompter(cmd.InOrStdin(), out)

	return &ship.Pipeline{
		Collector: &ship.Collector{
			Prompter:   prompter,
			Fs:         fs,
			Cwd:        cwd,
			DefaultTag: settings.DefaultTag,
			OpenTags: func(dir string) (ship.TagSource, error) {
				repo, err := git.Open(dir)
				if err != nil {
					return nil, err
				}
				repo.TagOrder = tagOrder
				return repo, nil
			},
		},
		OpenRepo: func(dir string) (ship.Repo, error) {
			repo, err := git.Open(dir)
			if err != nil {
				return nil, err
			}
			repo.TagOrder = tagOrder
			return repo, nil
		},
		MainBranch: settings.MainBranch,
		Archiver: &archive.Archiver{
			Tool:       settings.ArchiveTool,
			Runner:     archive.ExecRunner{},
			Fs:         fs,
			Prompter:   prompter,
			Out:        out,
			LogStorage: settings.LogStorage,
			IgnoreFile: settings.IgnoreFile,
		},
		Resolver: &sshconfig.Resolver{
			Fs:          fs,
			Path:        settings.SSHConfig,
			Home:        home,
			DefaultUser: currentUser(),
		},
		Deployer: &ship.Deployer{
			Dialer: &remote.SSHDialer{
				Fs:         fs,
				KnownHosts: settings.KnownHosts,
				Timeout:    dialTimeout,
			},
			Prompter:      prompter,
			Fs:            fs,
			Out:           out,
			RemoteArchive: settings.RemoteArchive,
			EnvSource:     settings.EnvSource,
			EnvTarget:     settings.EnvTarget,
			WritableDirs:  settings.WritableDirs,
		},
		Out: out,
	}, nil
}

func currentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}
