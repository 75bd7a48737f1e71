package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DirStore maps volumes to the immediate subdirectories of a root
// directory, the way mounted media appear under /Volumes or /media. A
// directory vanishing between calls models the medium being pulled.
type DirStore struct {
	root string
}

// NewDirStore creates a store rooted at the given mount directory.
func NewDirStore(root string) *DirStore {
	return &DirStore{root: root}
}

func (d *DirStore) ListVolumes() ([]VolumeInfo, error) {
	entries, err := os.ReadDir(d.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: mount root %s", ErrMediumUnavailable, d.root)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: list volumes: %v", ErrIOFailure, err)
	}

	var volumes []VolumeInfo
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		volumes = append(volumes, VolumeInfo{
			ID:   e.Name(),
			Path: filepath.Join(d.root, e.Name()),
		})
	}
	return volumes, nil
}

func (d *DirStore) ReadFile(volumeID, name string) ([]byte, error) {
	dir, err := d.volumePath(volumeID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		// The volume existed a moment ago; distinguish a missing file from
		// the medium having been pulled between the two calls.
		if _, statErr := os.Stat(dir); statErr != nil {
			return nil, fmt.Errorf("%w: volume %s removed during read", ErrMediumUnavailable, volumeID)
		}
		return nil, fmt.Errorf("%w: %s on volume %s", ErrNotFound, name, volumeID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrIOFailure, name, err)
	}
	return data, nil
}

func (d *DirStore) WriteFile(volumeID, name string, data []byte) error {
	dir, err := d.volumePath(volumeID)
	if err != nil {
		return err
	}

	// Write-then-rename so a torn write never leaves a half-written
	// envelope on the medium.
	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		if _, statErr := os.Stat(dir); statErr != nil {
			return fmt.Errorf("%w: volume %s removed during write", ErrMediumUnavailable, volumeID)
		}
		return fmt.Errorf("%w: create temp file: %v", ErrIOFailure, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: write %s: %v", ErrIOFailure, name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: close %s: %v", ErrIOFailure, name, err)
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, name)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: rename %s: %v", ErrIOFailure, name, err)
	}
	return nil
}

func (d *DirStore) volumePath(volumeID string) (string, error) {
	if volumeID == "" || volumeID != filepath.Base(volumeID) {
		return "", fmt.Errorf("%w: invalid volume id %q", ErrIOFailure, volumeID)
	}
	dir := filepath.Join(d.root, volumeID)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: volume %s", ErrMediumUnavailable, volumeID)
	}
	return dir, nil
}
