package archive

import (
	"bufio"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// ParseIgnore turns ignore-file lines into exclusion candidates. Blank lines,
// comments and negations are dropped, a trailing slash is removed, duplicates
// keep their first position, and entries that leave the project root are
// rejected.
func ParseIgnore(r io.Reader) ([]string, error) {
	var out []string
	seen := make(map[string]bool)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}

		entry := strings.TrimPrefix(line, "/")
		entry = strings.TrimSuffix(entry, "/")
		if entry == "" {
			continue
		}
		cleaned := path.Clean(entry)
		if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
			continue
		}
		if seen[cleaned] {
			continue
		}
		seen[cleaned] = true
		out = append(out, cleaned)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read ignore file")
	}
	return out, nil
}

// LoadCandidates reads root/ignoreFile. A missing file yields no candidates.
func LoadCandidates(fs afero.Fs, root, ignoreFile string) ([]string, error) {
	f, err := fs.Open(filepath.Join(root, ignoreFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "open %s", ignoreFile)
	}
	defer f.Close()
	return ParseIgnore(f)
}

// Patterns converts a candidate into the archive tool's exclusion patterns,
// covering both a file and a directory of that name.
func Patterns(entry string) []string {
	return []string{entry, entry + "/*"}
}
