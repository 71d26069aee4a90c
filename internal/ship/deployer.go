package ship

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"tagdeploy/internal/progress"
	"tagdeploy/internal/prompt"
	"tagdeploy/internal/remote"
	"tagdeploy/internal/sshconfig"
)

// MissingFolderError means the target folder does not exist on the server.
// The tool never creates it.
type MissingFolderError struct {
	Server string
	Folder string
}

func (e *MissingFolderError) Error() string {
	return fmt.Sprintf("a pasta %s não existe em %s", e.Folder, e.Server)
}

type Deployer struct {
	Dialer   remote.Dialer
	Prompter prompt.Prompter
	Fs       afero.Fs
	Out      io.Writer

	RemoteArchive string
	EnvSource     string
	EnvTarget     string
	WritableDirs  []string
}

// Deploy uploads archivePath to host and unpacks it into folder. The local
// archive is removed once the upload finished, successful or not, and the
// session is always closed.
func (d *Deployer) Deploy(ctx context.Context, host *sshconfig.Host, archivePath, folder string) (err error) {
	var sess remote.Session
	err = progress.Run(d.Out, "Conectando a "+host.Alias, func() error {
		var dialErr error
		sess, dialErr = d.Dialer.Dial(ctx, host)
		return dialErr
	})
	if err != nil {
		return errors.Wrapf(err, "connect to %s", host.Alias)
	}
	defer func() {
		err = multierr.Append(err, errors.Wrap(sess.Close(), "close session"))
	}()

	if err := d.upload(ctx, sess, archivePath); err != nil {
		return err
	}

	exists, err := d.folderExists(ctx, sess, folder)
	if err != nil {
		return err
	}
	if !exists {
		color.New(color.FgRed, color.Bold).Fprintf(d.Out, "A pasta %s não existe no servidor %s\n", folder, host.Alias)
		missing := &MissingFolderError{Server: host.Alias, Folder: folder}
		cmd := "rm -f " + d.RemoteArchive
		res, rmErr := sess.Exec(ctx, cmd)
		if rmErr == nil {
			rmErr = res.Check(cmd)
		}
		return multierr.Append(missing, errors.Wrap(rmErr, "remove uploaded archive"))
	}

	err = progress.Run(d.Out, "Descompactando em "+folder, func() error {
		return d.unpack(ctx, sess, folder)
	})
	if err != nil {
		return err
	}

	promote, err := d.Prompter.Confirm(
		fmt.Sprintf("Copiar %s para %s em %s?", d.EnvSource, d.EnvTarget, folder), false)
	if err != nil {
		return err
	}
	if promote {
		cmd := fmt.Sprintf(`sudo cp "%s" "%s"; sudo chmod 777 -R %s`,
			d.EnvSource, d.EnvTarget, strings.Join(d.WritableDirs, " "))
		if err := d.run(ctx, sess, cmd, folder); err != nil {
			return err
		}
		shiplog.Info("Promoted %s and relaxed permissions on %s", d.EnvSource, strings.Join(d.WritableDirs, ", "))
	}
	return nil
}

func (d *Deployer) upload(ctx context.Context, sess remote.Session, archivePath string) error {
	err := progress.Run(d.Out, "Enviando "+archivePath, func() error {
		return sess.PutFile(ctx, archivePath, d.RemoteArchive)
	})
	if rmErr := d.Fs.Remove(archivePath); rmErr != nil {
		err = multierr.Append(err, errors.Wrap(rmErr, "remove local archive"))
	}
	return errors.Wrap(err, "upload archive")
}

func (d *Deployer) folderExists(ctx context.Context, sess remote.Session, folder string) (bool, error) {
	res, err := sess.Exec(ctx, fmt.Sprintf(`[ -d "%s" ] && echo true`, folder))
	if err != nil {
		return false, errors.Wrap(err, "check remote folder")
	}
	return strings.TrimSpace(res.Stdout) == "true", nil
}

func (d *Deployer) unpack(ctx context.Context, sess remote.Session, folder string) error {
	mv := fmt.Sprintf("sudo mv %s %s/", d.RemoteArchive, folder)
	if err := d.run(ctx, sess, mv, ""); err != nil {
		return err
	}
	unzip := fmt.Sprintf("sudo unzip -o %s; sudo rm %s", d.RemoteArchive, d.RemoteArchive)
	return d.run(ctx, sess, unzip, folder)
}

// run executes command, in cwd when it is set, and fails on a non-zero exit.
func (d *Deployer) run(ctx context.Context, sess remote.Session, command, cwd string) error {
	var (
		res *remote.Result
		err error
	)
	if cwd == "" {
		res, err = sess.Exec(ctx, command)
	} else {
		res, err = sess.ExecIn(ctx, command, cwd)
	}
	if err != nil {
		return err
	}
	return res.Check(command)
}
