package remote

import (
	"context"
	"net"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"tagdeploy/internal/sshconfig"
)

// Dialer opens sessions from resolved host descriptors.
type Dialer interface {
	Dial(ctx context.Context, host *sshconfig.Host) (Session, error)
}

type SSHDialer struct {
	Fs afero.Fs
	// KnownHosts is used for host key verification when it exists.
	KnownHosts string
	Timeout    time.Duration
}

func (d *SSHDialer) Dial(ctx context.Context, host *sshconfig.Host) (Session, error) {
	auth, err := authMethods(d.Fs, host.IdentityFile)
	if err != nil {
		return nil, err
	}
	hostKeys, err := hostKeyCallback(d.KnownHosts)
	if err != nil {
		return nil, err
	}

	cfg := &ssh.ClientConfig{
		User:            host.User,
		Auth:            auth,
		HostKeyCallback: hostKeys,
		Timeout:         d.Timeout,
	}

	addr := host.Addr()
	nd := net.Dialer{Timeout: d.Timeout}
	conn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "ssh handshake with %s", addr)
	}
	sshlog.Info("Connected to %s as %s", addr, host.User)
	return &sshSession{fs: d.Fs, client: ssh.NewClient(c, chans, reqs)}, nil
}

// authMethods prefers the alias' key file and adds the running ssh-agent, if
// any. A passphrase-protected key is left to the agent.
func authMethods(fs afero.Fs, keyPath string) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	pem, err := afero.ReadFile(fs, keyPath)
	if err != nil {
		return nil, errors.Wrapf(err, "read private key %s", keyPath)
	}
	signer, err := ssh.ParsePrivateKey(pem)
	var missing *ssh.PassphraseMissingError
	switch {
	case err == nil:
		methods = append(methods, ssh.PublicKeys(signer))
	case errors.As(err, &missing):
		sshlog.Warn("%s is passphrase protected, relying on ssh-agent", keyPath)
	default:
		return nil, errors.Wrapf(err, "parse private key %s", keyPath)
	}

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}

	if len(methods) == 0 {
		return nil, errors.Errorf("no usable credentials for %s", keyPath)
	}
	return methods, nil
}

func hostKeyCallback(path string) (ssh.HostKeyCallback, error) {
	cb, err := knownhosts.New(path)
	if err == nil {
		return cb, nil
	}
	if os.IsNotExist(errors.Cause(err)) || errors.Is(err, os.ErrNotExist) {
		sshlog.Warn("%s not found, host key will not be verified", path)
		return ssh.InsecureIgnoreHostKey(), nil
	}
	return nil, errors.Wrapf(err, "load %s", path)
}
