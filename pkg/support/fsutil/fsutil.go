// Package fsutil contains small file-system helpers used by the conversion
// tool.
package fsutil

import (
	"os"
	"os/user"
	"path"
	"strings"

	"github.com/pkg/errors"
)

// FileExists returns whether the file or directory exists, or an error if the
// filesystem check itself failed.
func FileExists(p string) (bool, error) {
	_, err := os.Stat(p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, errors.Wrapf(err, "failed to stat %q", p)
}

// MustFileExists is like FileExists, panicking on filesystem errors.
func MustFileExists(p string) bool {
	exists, err := FileExists(p)
	if err != nil {
		panic(err)
	}
	return exists
}

// ReplaceTildeInDir replaces a leading "~" (or "~user") in dir by the home
// directory. Any other dir is returned unchanged.
func ReplaceTildeInDir(dir string) (string, error) {
	if dir == "" || dir[0] != '~' {
		return dir, nil
	}
	var userName string
	if dir != "~" && !strings.HasPrefix(dir, "~/") {
		sepIdx := strings.IndexRune(dir, '/')
		if sepIdx == -1 {
			userName = dir[1:]
		} else {
			userName = dir[1:sepIdx]
		}
	}
	var usr *user.User
	var err error
	if userName == "" {
		usr, err = user.Current()
	} else {
		usr, err = user.Lookup(userName)
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to find home directory for path %q", dir)
	}
	return path.Join(usr.HomeDir, dir[1+len(userName):]), nil
}

// MustReplaceTildeInDir is like ReplaceTildeInDir, panicking on lookup errors
// (e.g. an unknown "~user").
func MustReplaceTildeInDir(dir string) string {
	expanded, err := ReplaceTildeInDir(dir)
	if err != nil {
		panic(err)
	}
	return expanded
}
