package remote

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func TestQuote(t *testing.T) {
	assert.Equal(t, `'/var/www/app'`, Quote("/var/www/app"))
	assert.Equal(t, `'it'\''s'`, Quote("it's"))
}

func TestInDir(t *testing.T) {
	assert.Equal(t, `cd '/var/www/app' && { sudo unzip -o project.zip; sudo rm project.zip; }`,
		InDir("/var/www/app", "sudo unzip -o project.zip; sudo rm project.zip"))
}

func TestInDirSkipsEveryStepWhenCdFails(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	marker := filepath.Join(dir, "ran")

	script := InDir(filepath.Join(dir, "missing"), "true; touch "+Quote(marker))
	err := exec.Command("sh", "-c", script).Run()
	assert.Error(t, err)
	assert.NoFileExists(t, marker)
}

func TestResultCheck(t *testing.T) {
	ok := &Result{Code: 0}
	assert.NoError(t, ok.Check("true"))

	failed := &Result{Code: 2, Stderr: "mv: cannot stat\n"}
	err := failed.Check("sudo mv project.zip /x/")

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 2, cmdErr.Code)
	assert.Equal(t, "mv: cannot stat", cmdErr.Stderr)
	assert.Contains(t, err.Error(), "sudo mv project.zip /x/")
}

func writeKey(t *testing.T, fs afero.Fs, path string, passphrase string) {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var block *pem.Block
	if passphrase == "" {
		block, err = ssh.MarshalPrivateKey(priv, "test")
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, "test", []byte(passphrase))
	}
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, path, pem.EncodeToMemory(block), 0o600))
}

func TestAuthMethodsFromKeyFile(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	fs := afero.NewMemMapFs()
	writeKey(t, fs, "/home/u/.ssh/prod.pem", "")

	methods, err := authMethods(fs, "/home/u/.ssh/prod.pem")
	require.NoError(t, err)
	assert.Len(t, methods, 1)
}

func TestAuthMethodsPassphraseWithoutAgent(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	fs := afero.NewMemMapFs()
	writeKey(t, fs, "/k", "secret")

	_, err := authMethods(fs, "/k")
	assert.ErrorContains(t, err, "no usable credentials")
}

func TestAuthMethodsMissingKey(t *testing.T) {
	_, err := authMethods(afero.NewMemMapFs(), "/missing")
	assert.ErrorContains(t, err, "read private key")
}

func TestHostKeyCallback(t *testing.T) {
	cb, err := hostKeyCallback(filepath.Join(t.TempDir(), "known_hosts"))
	require.NoError(t, err)
	assert.NotNil(t, cb)

	path := filepath.Join(t.TempDir(), "known_hosts")
	require.NoError(t, os.WriteFile(path, []byte("example.com ssh-ed25519 !!!notbase64!!!\n"), 0o600))
	_, err = hostKeyCallback(path)
	assert.Error(t, err)
}
