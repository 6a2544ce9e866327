package incusapi

import (
	"io"
	"os"
	"time"
)

// ServerInfo exposes key server metadata we care about.
type ServerInfo struct {
	ServerVersion string
	// Auth is "trusted" when the daemon accepted our credentials.
	Auth string
}

// File types reported by the Incus file API.
const (
	FileTypeFile      = "file"
	FileTypeDirectory = "directory"
	FileTypeSymlink   = "symlink"
	// FileTypeOther covers FIFOs, sockets and devices.
	FileTypeOther = "other"
)

// FileInfo describes a path inside an instance.
type FileInfo struct {
	Type    string
	Mode    os.FileMode
	Size    int64
	ModTime time.Time
	// Entries lists child names when Type is FileTypeDirectory.
	Entries []string
}

// Client is a narrow interface over the Incus API used by our app.
// Keep it small and focused on what we actually need so it stays mockable.
type Client interface {
	// Server
	Server() (ServerInfo, error)

	// Instance files. For files the returned reader holds the content, for
	// symlinks it holds the link target and for directories it is nil.
	// Missing paths yield an error matching os.ErrNotExist.
	GetInstanceFile(project, instance, path string) (io.ReadCloser, FileInfo, error)
	// StatInstanceFile describes path without following a final symlink
	// and without transferring any content. Entries is left empty.
	StatInstanceFile(project, instance, path string) (FileInfo, error)

	Close() error
}
