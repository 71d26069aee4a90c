package ship

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"tagdeploy/internal/prompt"
)

// Selection is what the operator chose to ship. It is not modified after
// Collect returns.
type Selection struct {
	ProjectPath  string
	RemoteFolder string
	Tag          string
	Server       string
}

// TagSource supplies the default release tag.
type TagSource interface {
	LatestTag() (string, bool, error)
}

type Collector struct {
	Prompter prompt.Prompter
	Fs       afero.Fs
	// Cwd is the default project path and names the default remote folder.
	Cwd        string
	DefaultTag string
	// OpenTags opens the tag history of the chosen project.
	OpenTags func(projectPath string) (TagSource, error)
}

// RemoteFolderFor is the remote folder offered for a project directory.
func RemoteFolderFor(dir string) string {
	return "/var/www/" + filepath.Base(filepath.Clean(dir))
}

// Collect asks, in order, for the project path, the remote folder, the tag
// and the server. Invalid answers are asked again.
func (c *Collector) Collect() (*Selection, error) {
	project, err := c.Prompter.Input(prompt.Question{
		Message:  "Caminho do projeto",
		Default:  c.Cwd,
		Validate: c.validateProject,
	})
	if err != nil {
		return nil, err
	}
	project = c.absolute(project)

	folder, err := c.Prompter.Input(prompt.Question{
		Message: "Pasta no servidor",
		Default: RemoteFolderFor(c.Cwd),
	})
	if err != nil {
		return nil, err
	}

	tag, err := c.Prompter.Input(prompt.Question{
		Message: "Tag da versão",
		Default: c.defaultTag(project),
	})
	if err != nil {
		return nil, err
	}

	server, err := c.Prompter.Input(prompt.Question{Message: "Servidor (alias do ssh config)"})
	if err != nil {
		return nil, err
	}

	return &Selection{ProjectPath: project, RemoteFolder: folder, Tag: tag, Server: server}, nil
}

func (c *Collector) absolute(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.Cwd, p)
}

func (c *Collector) validateProject(p string) error {
	if err := prompt.NonEmpty(p); err != nil {
		return err
	}
	ok, err := afero.Exists(c.Fs, c.absolute(p))
	if err != nil {
		return errors.Wrap(err, "verificar caminho")
	}
	if !ok {
		return errors.Errorf("o caminho %s não existe", p)
	}
	return nil
}

func (c *Collector) defaultTag(project string) string {
	if c.OpenTags == nil {
		return c.DefaultTag
	}
	src, err := c.OpenTags(project)
	if err != nil {
		shiplog.Warn("Could not read tags of %s: %v", project, err)
		return c.DefaultTag
	}
	latest, ok, err := src.LatestTag()
	if err != nil {
		shiplog.Warn("Could not read tags of %s: %v", project, err)
		return c.DefaultTag
	}
	if !ok {
		return c.DefaultTag
	}
	return latest
}
