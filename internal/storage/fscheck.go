package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNetworkFilesystem is returned when the database would live on a network
// mount, where SQLite file locks are unreliable.
var ErrNetworkFilesystem = errors.New("database is on a network filesystem")

var networkFilesystems = map[string]bool{
	"afpfs":  true,
	"cifs":   true,
	"nfs":    true,
	"nfs4":   true,
	"smbfs":  true,
	"smb2":   true,
	"webdav": true,
}

type fsDetector func(path string) (string, error)

func checkLocalFilesystem(dbPath string) error {
	return checkLocalFilesystemWith(dbPath, detectFilesystemType)
}

func checkLocalFilesystemWith(dbPath string, detect fsDetector) error {
	if dbPath == "" {
		return fmt.Errorf("sqlite path is empty")
	}
	probe, err := existingAncestor(dbPath)
	if err != nil {
		return fmt.Errorf("resolve database path %q: %w", dbPath, err)
	}
	fsType, err := detect(probe)
	if err != nil {
		return fmt.Errorf("detect filesystem for %q: %w", probe, err)
	}
	if isNetworkFilesystem(fsType) {
		return fmt.Errorf("%w: %q is on %s; point state.path or WAYPOINT_DB at a local disk", ErrNetworkFilesystem, dbPath, fsType)
	}
	return nil
}

// existingAncestor walks up from path to the first component that exists,
// so a database that is not created yet is checked where it will land.
func existingAncestor(path string) (string, error) {
	p, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	for {
		_, err := os.Stat(p)
		switch {
		case err == nil:
			return p, nil
		case !errors.Is(err, os.ErrNotExist):
			return "", err
		}
		parent := filepath.Dir(p)
		if parent == p {
			return "", fmt.Errorf("no existing ancestor of %q", path)
		}
		p = parent
	}
}

func isNetworkFilesystem(fsType string) bool {
	return networkFilesystems[strings.ToLower(strings.TrimSpace(fsType))]
}
