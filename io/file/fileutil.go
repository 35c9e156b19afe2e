// Package file is the single entrypoint for filesystem access under the
// datadir. It standardizes permissions: directories are created 0700 and
// files written 0600, and reads refuse to follow paths that stat oddly.
package file

import (
	"os"
	"os/user"
	"path"
	"path/filepath"
	"strings"

	"github.com/azzam1122112-dot/school-display/config/params"
	"github.com/pkg/errors"
)

// ExpandPath given a string which may be a relative path.
// 1. replace tilde with users home dir
// 2. expands embedded environment variables
// 3. cleans the path, e.g. /a/b/../c -> /a/c
func ExpandPath(p string) (string, error) {
	if strings.HasPrefix(p, "~/") || strings.HasPrefix(p, "~\\") {
		if home := HomeDir(); home != "" {
			p = home + p[1:]
		}
	}
	return filepath.Abs(path.Clean(os.ExpandEnv(p)))
}

// HomeDir returns the home directory of the current user, preferring $HOME
// over the passwd database.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// MkdirAll takes in a path, expands it if necessary, and creates the
// directory accordingly with standardized permissions. A directory that
// already exists with looser permissions is rejected rather than adopted.
func MkdirAll(dirPath string) error {
	exists, err := HasDir(dirPath)
	if err != nil {
		return err
	}
	if exists {
		info, err := os.Stat(dirPath)
		if err != nil {
			return err
		}
		if info.Mode().Perm() != params.DisplayIoConfig().ReadWriteExecutePermissions {
			return errors.New("dir already exists without proper 0700 permissions")
		}
	}
	return os.MkdirAll(dirPath, params.DisplayIoConfig().ReadWriteExecutePermissions)
}

// WriteFile writes data with standardized 0600 permissions, refusing to
// clobber a file that already exists with different permissions.
func WriteFile(file string, data []byte) error {
	exists, err := Exists(file)
	if err != nil {
		return err
	}
	if exists {
		info, err := os.Stat(file)
		if err != nil {
			return err
		}
		if info.Mode() != params.DisplayIoConfig().ReadWritePermissions {
			return errors.New("file already exists without proper 0600 permissions")
		}
	}
	return os.WriteFile(file, data, params.DisplayIoConfig().ReadWritePermissions)
}

// ReadFileAsBytes expands a file name's absolute path and reads it as bytes.
func ReadFileAsBytes(filename string) ([]byte, error) {
	filePath, err := filepath.Abs(filename)
	if err != nil {
		return nil, errors.Wrap(err, "could not determine absolute path of file")
	}
	return os.ReadFile(filepath.Clean(filePath))
}

// Exists returns true if a file is not a directory and exists at the
// specified path.
func Exists(filename string) (bool, error) {
	filePath, err := ExpandPath(filename)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info != nil && !info.IsDir(), nil
}

// HasDir checks if a directory exists at the specified path.
func HasDir(dirPath string) (bool, error) {
	fullPath, err := ExpandPath(dirPath)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info != nil && info.IsDir(), nil
}
