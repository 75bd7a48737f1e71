// Package storage models removable media: volumes that appear and
// disappear, each holding flat files such as the sealed key envelope. The
// signing core reads and writes through the VolumeStore interface and
// never touches mount plumbing directly.
package storage

import "errors"

var (
	// ErrMediumUnavailable reports that the volume is gone or was removed
	// mid-operation. The caller may retry after the medium is reinserted.
	ErrMediumUnavailable = errors.New("medium unavailable")

	// ErrIOFailure reports a read or write failure on a present medium.
	ErrIOFailure = errors.New("i/o failure")

	// ErrNotFound reports a file that does not exist on a present volume.
	ErrNotFound = errors.New("file not found on volume")
)

// VolumeInfo identifies an attached volume.
type VolumeInfo struct {
	ID   string
	Path string
}

// VolumeStore is the removable-media collaborator contract.
type VolumeStore interface {
	// ListVolumes enumerates currently attached volumes.
	ListVolumes() ([]VolumeInfo, error)
	// ReadFile reads a named file from a volume.
	ReadFile(volumeID, name string) ([]byte, error)
	// WriteFile writes a named file to a volume atomically; a failed
	// write leaves no partial file behind.
	WriteFile(volumeID, name string, data []byte) error
}
