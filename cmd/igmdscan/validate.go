package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/walteh/igmdscan/pkg/config"
	"gitlab.com/tozd/go/errors"
)

// validateDirectories enforces the startup directory contract: the scan
// root must exist, the destination is created if absent, and neither may
// nest inside the other. The miss log may not live inside either tree.
func validateDirectories(scanDir, destDir, missLogPath string) error {
	info, err := os.Stat(scanDir)
	if err != nil {
		return errors.Errorf("scan directory %s does not exist: %w", scanDir, err)
	}
	if !info.IsDir() {
		return errors.Errorf("scan directory %s is not a directory", scanDir)
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return errors.Errorf("creating destination directory %s: %w", destDir, err)
	}

	nested, err := isNested(scanDir, destDir)
	if err != nil {
		return err
	}
	if nested {
		return errors.New("destination directory must not be inside the scan directory (or vice versa)")
	}

	if missLogPath != "" {
		inScan, err := pathInside(scanDir, missLogPath)
		if err != nil {
			return err
		}
		inDest, err := pathInside(destDir, missLogPath)
		if err != nil {
			return err
		}
		if inScan || inDest {
			return errors.New("log file must not be inside the scan or destination directories")
		}
	}

	return nil
}

// checkDependencies verifies external binaries needed for the run
func checkDependencies(cfg *config.Config) error {
	if cfg.MissLogPath == "" {
		return nil
	}
	if _, err := exec.LookPath(cfg.ExifTool.Path); err != nil {
		return errors.Errorf("%s is not installed or not found in PATH: %w", cfg.ExifTool.Path, err)
	}
	return nil
}

// isNested reports whether either directory contains the other
func isNested(a, b string) (bool, error) {
	aInB, err := pathInside(b, a)
	if err != nil {
		return false, err
	}
	bInA, err := pathInside(a, b)
	if err != nil {
		return false, err
	}
	return aInB || bInA, nil
}

// pathInside reports whether path is dir itself or nested under it
func pathInside(dir, path string) (bool, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false, errors.Errorf("resolving %s: %w", dir, err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, errors.Errorf("resolving %s: %w", path, err)
	}

	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false, nil
	}
	return rel == "." || (!strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != ".."), nil
}
