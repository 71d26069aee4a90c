package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"golang.org/x/crypto/ssh"

	"tagdeploy/internal/logger"
)

var sshlog = logger.PackageLogger("remote", "🛰️ SSH")

// Result is the outcome of a remote command that ran to completion.
type Result struct {
	Stdout string
	Stderr string
	Code   int
}

// CommandError reports a remote command that exited non-zero.
type CommandError struct {
	Command string
	Code    int
	Stderr  string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("remote command %q exited with code %d", e.Command, e.Code)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Check turns a non-zero exit into a *CommandError.
func (r *Result) Check(command string) error {
	if r.Code == 0 {
		return nil
	}
	return &CommandError{Command: command, Code: r.Code, Stderr: strings.TrimSpace(r.Stderr)}
}

// Session is one remote-shell connection. Exec errors are transport failures
// only; a command that runs and fails is reported through Result.Code.
type Session interface {
	PutFile(ctx context.Context, localPath, remotePath string) error
	Exec(ctx context.Context, command string) (*Result, error)
	ExecIn(ctx context.Context, command, cwd string) (*Result, error)
	Close() error
}

// Quote wraps s in single quotes for a POSIX shell.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// InDir runs command inside cwd. The command is grouped so that none of its
// ";"-separated steps run when the cd fails.
func InDir(cwd, command string) string {
	return fmt.Sprintf("cd %s && { %s; }", Quote(cwd), command)
}

type sshSession struct {
	fs     afero.Fs
	client *ssh.Client
	sftp   *sftp.Client
}

func (s *sshSession) Exec(ctx context.Context, command string) (*Result, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return nil, errors.Wrap(err, "open ssh channel")
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = sess.Signal(ssh.SIGKILL)
			_ = sess.Close()
		case <-done:
		}
	}()

	sshlog.Debug("exec: %s", command)
	err = sess.Run(command)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
	var exitErr *ssh.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.Code = exitErr.ExitStatus()
	default:
		return nil, errors.Wrapf(err, "run %q", command)
	}
	return res, nil
}

func (s *sshSession) ExecIn(ctx context.Context, command, cwd string) (*Result, error) {
	return s.Exec(ctx, InDir(cwd, command))
}

func (s *sshSession) PutFile(ctx context.Context, localPath, remotePath string) error {
	if s.sftp == nil {
		c, err := sftp.NewClient(s.client)
		if err != nil {
			return errors.Wrap(err, "start sftp subsystem")
		}
		s.sftp = c
	}

	src, err := s.fs.Open(localPath)
	if err != nil {
		return errors.Wrapf(err, "open %s", localPath)
	}
	defer src.Close()

	dst, err := s.sftp.Create(remotePath)
	if err != nil {
		return errors.Wrapf(err, "create remote %s", remotePath)
	}

	n, err := io.Copy(dst, &ctxReader{ctx: ctx, r: src})
	err = multierr.Append(err, dst.Close())
	if err != nil {
		return errors.Wrapf(err, "upload %s", localPath)
	}
	sshlog.Debug("uploaded %s -> %s (%d bytes)", localPath, remotePath, n)
	return nil
}

func (s *sshSession) Close() error {
	var err error
	if s.sftp != nil {
		err = multierr.Append(err, s.sftp.Close())
	}
	return multierr.Append(err, s.client.Close())
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
