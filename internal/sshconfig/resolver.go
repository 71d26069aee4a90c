package sshconfig

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/kevinburke/ssh_config"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"tagdeploy/internal/config"
	"tagdeploy/internal/logger"
)

var hlog = logger.PackageLogger("sshconfig", "🗝️ HOSTS")

const defaultPort = 22

// Host is a ready-to-use connection descriptor for one alias.
type Host struct {
	Alias        string
	Address      string
	IdentityFile string
	User         string
	Port         int
}

func (h *Host) Addr() string {
	return net.JoinHostPort(h.Address, strconv.Itoa(h.Port))
}

// UnknownHostError means no Host block lists the alias.
type UnknownHostError struct {
	Name string
}

func (e *UnknownHostError) Error() string {
	return fmt.Sprintf("servidor %q não encontrado na configuração ssh", e.Name)
}

// InvalidHostError means the alias exists but cannot be connected to as written.
type InvalidHostError struct {
	Name   string
	Field  string
	Reason string
}

func (e *InvalidHostError) Error() string {
	return fmt.Sprintf("servidor %q: %s %s", e.Name, e.Field, e.Reason)
}

type Resolver struct {
	Fs   afero.Fs
	Path string
	Home string
	// DefaultUser is used when the alias has no User.
	DefaultUser string
}

// Resolve reads the alias file and returns the connection descriptor for name.
func (r *Resolver) Resolve(name string) (*Host, error) {
	f, err := r.Fs.Open(r.Path)
	if err != nil {
		if os.IsNotExist(err) {
			hlog.Warn("%s does not exist", r.Path)
			return nil, &UnknownHostError{Name: name}
		}
		return nil, errors.Wrapf(err, "open %s", r.Path)
	}
	defer f.Close()

	cfg, err := ssh_config.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", r.Path)
	}
	return Lookup(cfg, name, r.Home, r.DefaultUser)
}

// Lookup finds the Host block whose patterns include name verbatim. Keys are
// matched case-insensitively and the first occurrence of a key wins, as in ssh.
// User and Port fall back to whatever other blocks (e.g. "Host *") provide.
func Lookup(cfg *ssh_config.Config, name, home, defaultUser string) (*Host, error) {
	block := findBlock(cfg, name)
	if block == nil {
		return nil, &UnknownHostError{Name: name}
	}

	fields := make(map[string]string)
	for _, node := range block.Nodes {
		kv, ok := node.(*ssh_config.KV)
		if !ok {
			continue
		}
		key := strings.ToLower(kv.Key)
		if _, seen := fields[key]; !seen {
			fields[key] = strings.TrimSpace(kv.Value)
		}
	}

	h := &Host{Alias: name, Port: defaultPort}

	// Without HostName ssh dials the alias itself.
	h.Address = name
	addrs := strings.FieldsFunc(fields["hostname"], func(r rune) bool { return r == ' ' || r == ',' })
	if len(addrs) > 0 {
		h.Address = addrs[0]
	}

	identity := strings.Trim(fields["identityfile"], `"`)
	if identity == "" {
		return nil, &InvalidHostError{Name: name, Field: "IdentityFile", Reason: "ausente"}
	}
	h.IdentityFile = config.ExpandHome(identity, home)

	h.User = fields["user"]
	if h.User == "" {
		h.User, _ = cfg.Get(name, "User")
	}
	if h.User == "" {
		h.User = defaultUser
	}
	if h.User == "" {
		return nil, &InvalidHostError{Name: name, Field: "User", Reason: "ausente"}
	}

	port := fields["port"]
	if port == "" {
		port, _ = cfg.Get(name, "Port")
	}
	if port != "" {
		p, err := strconv.Atoi(port)
		if err != nil || p <= 0 || p > 65535 {
			return nil, &InvalidHostError{Name: name, Field: "Port", Reason: "inválida: " + port}
		}
		h.Port = p
	}

	hlog.Debug("%s -> %s@%s key=%s", name, h.User, h.Addr(), h.IdentityFile)
	return h, nil
}

func findBlock(cfg *ssh_config.Config, name string) *ssh_config.Host {
	for _, host := range cfg.Hosts {
		for _, pat := range host.Patterns {
			if pat.String() == name {
				return host
			}
		}
	}
	return nil
}
