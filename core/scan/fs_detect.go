package scan

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"
)

// DetectFilesystem returns the filesystem type under root, or an error
// wrapping ErrUnsupportedFilesystem when the walker should not trust it.
func DetectFilesystem(ctx context.Context, root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	var mounts []Mount
	switch runtime.GOOS {
	case "linux":
		mounts = systemMounts()
	case "darwin":
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		out, err := exec.CommandContext(ctx, "mount").Output()
		if err != nil {
			return "", fmt.Errorf("read mount table: %w", err)
		}
		mounts = ParseDarwinMounts(string(out))
	case "windows":
		// Local fixed drives are NTFS in practice.
		return "ntfs", nil
	default:
		return "", fmt.Errorf("%w: %s is not supported", ErrUnsupportedFilesystem, runtime.GOOS)
	}

	m, ok := MountFor(mounts, filepath.ToSlash(abs))
	if !ok {
		return "", fmt.Errorf("%w: no mount found for %s", ErrUnsupportedFilesystem, abs)
	}
	return m.FSType, CheckFilesystem(m.FSType)
}
