package collect

import "fmt"

// SourceUnreachableError reports that the remote tree could not be opened,
// enumerated or read.
type SourceUnreachableError struct {
	Source string
	Path   string
	Err    error
}

func (e *SourceUnreachableError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("source unreachable: %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("source unreachable: %s: %s: %v", e.Source, e.Path, e.Err)
}

func (e *SourceUnreachableError) Unwrap() error { return e.Err }

// IdentityVerificationError reports that the remote endpoint failed identity
// verification. Nothing has been transferred when it is returned.
type IdentityVerificationError struct {
	Source string
	Err    error
}

func (e *IdentityVerificationError) Error() string {
	return fmt.Sprintf("identity verification failed: %s: %v", e.Source, e.Err)
}

func (e *IdentityVerificationError) Unwrap() error { return e.Err }

// DestinationWriteError reports a failed write below the local log root.
type DestinationWriteError struct {
	Path string
	Err  error
}

func (e *DestinationWriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *DestinationWriteError) Unwrap() error { return e.Err }

// PathConflictError reports that a directory was required where a
// non-directory exists.
type PathConflictError struct {
	Path string
	// Conflict is the existing non-directory; it may be a parent of Path.
	Conflict string
}

func (e *PathConflictError) Error() string {
	if e.Conflict != "" && e.Conflict != e.Path {
		return fmt.Sprintf("path conflict: %s: %s exists and is not a directory", e.Path, e.Conflict)
	}
	return fmt.Sprintf("path conflict: %s exists and is not a directory", e.Path)
}

// SnapshotMissingError reports a database file absent from the source.
type SnapshotMissingError struct {
	LogicalName LogicalName
	Path        string
	Err         error
}

func (e *SnapshotMissingError) Error() string {
	return fmt.Sprintf("snapshot %s missing: %s", e.LogicalName, e.Path)
}

func (e *SnapshotMissingError) Unwrap() error { return e.Err }

// CompressionError reports a single file that could not be compressed.
type CompressionError struct {
	Path string
	Err  error
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("compress %s: %v", e.Path, e.Err)
}

func (e *CompressionError) Unwrap() error { return e.Err }

// readError marks a failure on the source side of a copy.
type readError struct{ err error }

func (e *readError) Error() string { return e.err.Error() }
func (e *readError) Unwrap() error { return e.err }
