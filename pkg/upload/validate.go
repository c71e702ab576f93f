package upload

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// SupportedExtensions are the file types accepted for vector store indexing.
var SupportedExtensions = map[string]bool{
	".pdf":  true,
	".txt":  true,
	".docx": true,
	".doc":  true,
	".rtf":  true,
}

var ErrUnsupportedType = errors.New("unsupported file type")

// Exclusion is a path that was rejected before submission.
type Exclusion struct {
	Path string
	Err  error
}

func (e Exclusion) File() string { return filepath.Base(e.Path) }

// Supported reports whether the file's extension is accepted.
func Supported(path string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// ValidateFiles splits paths into those that can be uploaded and those that
// cannot. Repeated paths are only considered once.
func ValidateFiles(paths []string) (valid []string, excluded []Exclusion) {
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		if !Supported(p) {
			excluded = append(excluded, Exclusion{Path: p, Err: ErrUnsupportedType})
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			excluded = append(excluded, Exclusion{Path: p, Err: errors.Wrap(err, "checking file")})
			continue
		}
		if info.IsDir() {
			excluded = append(excluded, Exclusion{Path: p, Err: errors.New("is a directory")})
			continue
		}
		valid = append(valid, p)
	}
	return valid, excluded
}

// SplitList parses a comma separated list of paths, dropping empty entries.
func SplitList(list string) []string {
	var ret []string
	for _, p := range strings.Split(list, ",") {
		if p = strings.TrimSpace(p); p != "" {
			ret = append(ret, p)
		}
	}
	return ret
}
