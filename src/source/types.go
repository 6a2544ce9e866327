package source

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"syscall"
	"time"
)

// Entry represents a single item in a directory listing of a source tree.
// Symbolic links are already resolved: IsDir, Regular, Size and Mode
// describe the link target. Dangling is set when the target could not be
// resolved (missing, a link loop or not permitted). Entries that are
// neither directories nor regular files are FIFOs, sockets or devices.
type Entry struct {
	Name     string
	IsDir    bool
	Regular  bool
	Size     int64
	Mode     os.FileMode
	ModTime  time.Time
	Dangling bool
}

// Source is a readable file tree rooted at some path on an endpoint.
// Paths passed to ReadDir and Open are slash-separated and relative to the
// root; "" names the root itself and ".." segments are resolved against it.
type Source interface {
	// ReadDir lists a directory, sorted by name.
	ReadDir(rel string) ([]Entry, error)
	// Open opens a file for reading, following symbolic links.
	Open(rel string) (io.ReadCloser, error)
	// RealPath returns the location rel resolves to with every symbolic
	// link in it followed. Two paths naming the same directory share it.
	RealPath(rel string) (string, error)
	Close() error
	String() string
}

var (
	// ErrUnreachable is wrapped by errors returned when a source cannot be
	// opened or its root cannot be enumerated.
	ErrUnreachable = errors.New("source unreachable")
	// ErrIdentityVerification is wrapped by errors returned when the remote
	// endpoint fails identity verification.
	ErrIdentityVerification = errors.New("remote identity verification failed")
	// ErrLinkLoop is wrapped when symbolic link resolution exceeds MaxLinkHops.
	ErrLinkLoop = errors.New("too many levels of symbolic links")
)

// Unresolvable reports whether err, returned while resolving a single
// entry, means the entry cannot be followed rather than that the listing
// itself failed.
func Unresolvable(err error) bool {
	return errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrPermission) ||
		errors.Is(err, ErrLinkLoop) ||
		errors.Is(err, syscall.ELOOP)
}

// Options control how a source is opened.
type Options struct {
	// VerifyIdentity requires the endpoint to prove its identity before
	// any file is read.
	VerifyIdentity bool
	// KnownHostsFile is the OpenSSH known_hosts file used for host key checks.
	KnownHostsFile string
	// KeyFile is the private key used for SSH public key authentication.
	KeyFile string
}
