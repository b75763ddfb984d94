// Package filex contains filesystem helpers for saving downloaded artifacts.
package filex

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// maxCollisions bounds the "name (n).ext" search in WriteAtomic.
const maxCollisions = 1000

// EnsureDir creates dir (relative paths resolve against the working
// directory) and returns its absolute path.
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}
	return abs, nil
}

// SafeBaseName reduces name to its last path element so a server-supplied
// file name can never escape the target directory. Empty, "." and ".."
// results are replaced with fallback.
func SafeBaseName(name, fallback string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := strings.TrimSpace(filepath.Base(filepath.FromSlash(name)))
	switch base {
	case "", ".", "..", string(filepath.Separator):
		return fallback
	}
	return base
}

// CandidateName returns name for n == 0 and "stem (n).ext" otherwise.
func CandidateName(name string, n int) string {
	if n == 0 {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s (%d)%s", stem, n, ext)
}

// linkFn is a test seam for filesystems without hard links.
var linkFn = os.Link

// WriteAtomic streams r into a temporary file inside dir and then links it
// under the first free CandidateName of name. Existing files are never
// overwritten. The temporary file is always removed. It returns the final
// path.
func WriteAtomic(dir, name string, r io.Reader) (string, error) {
	tmp, err := os.CreateTemp(dir, ".pvault-*.part")
	if err != nil {
		return "", fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp: %w", err)
	}

	claim, fallback := linkFn, false
	for n := 0; n < maxCollisions; n++ {
		final := filepath.Join(dir, CandidateName(name, n))
		err := claim(tmpName, final)
		if err == nil {
			return final, nil
		}
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if fallback || !isLinkUnsupported(err) {
			return "", fmt.Errorf("claim %s: %w", final, err)
		}
		// FAT, exFAT and some network mounts: reserve the name, then
		// rename the temp file over the reservation.
		claim, fallback = claimAndRename, true
		n--
	}
	return "", fmt.Errorf("no free name for %s in %s", name, dir)
}

func claimAndRename(tmpName, final string) error {
	f, err := os.OpenFile(final, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o660)
	if err != nil {
		return err
	}
	_ = f.Close()
	if err := os.Rename(tmpName, final); err != nil {
		_ = os.Remove(final)
		return fmt.Errorf("rename %s: %w", final, err)
	}
	return nil
}

// isLinkUnsupported reports link failures that mean the filesystem cannot
// hard link at all, as opposed to a problem with this particular name.
func isLinkUnsupported(err error) bool {
	return errors.Is(err, errors.ErrUnsupported) ||
		errors.Is(err, syscall.EPERM) ||
		errors.Is(err, syscall.ENOTSUP) ||
		errors.Is(err, syscall.EOPNOTSUPP) ||
		errors.Is(err, syscall.ENOSYS) ||
		errors.Is(err, syscall.EXDEV) ||
		errors.Is(err, syscall.EMLINK)
}
