package resolve

import (
	"io/fs"
	"os"
	"path/filepath"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/standardbeagle/pf/pkg/pathutil"
)

// walk discovers files under an explicitly named directory. The root itself
// is walked regardless of its name; the ignore set prunes only descendants.
// Discovery order is the walk's lexical order, which keeps output stable
// across runs and engines.
func (r *resolver) walk(root string) {
	var gi *ignore.GitIgnore
	if r.opts.Gitignore {
		gi = loadGitignore(root)
	}

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are not the user's problem
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			if r.ignored(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		// Symlinks are kept when they lead to files; a link to a
		// directory is neither walked nor a candidate.
		if d.Type()&fs.ModeSymlink != 0 {
			fi, err := os.Stat(path)
			if err != nil || fi.IsDir() {
				return nil
			}
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		r.addFile(pathutil.Join(root, rel))
		return nil
	})
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
