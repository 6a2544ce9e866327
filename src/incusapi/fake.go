package incusapi

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"time"
)

// FakeClient is an in-memory implementation for unit tests.
type FakeClient struct {
	ServerVersionStr string
	AuthStr          string
	// Files maps "project/instance:/abs/path" to a node.
	Files map[string]FakeFile
	// Downloads counts file bodies handed out by GetInstanceFile.
	Downloads int
	Closed    bool
}

// FakeFile is a node in the fake instance filesystem. Directories are
// implied by the paths of their children.
type FakeFile struct {
	Data    []byte
	Target  string // set for symlinks
	Special bool   // FIFO, socket or device
	ModTime time.Time
}

func NewFake() *FakeClient {
	return &FakeClient{AuthStr: "trusted", Files: map[string]FakeFile{}}
}

// AddFile registers a regular file.
func (f *FakeClient) AddFile(project, instance, p string, data []byte) {
	f.Files[fakeKey(project, instance, p)] = FakeFile{Data: data}
}

// AddSymlink registers a symlink pointing at target.
func (f *FakeClient) AddSymlink(project, instance, p, target string) {
	f.Files[fakeKey(project, instance, p)] = FakeFile{Target: target}
}

// AddSpecial registers a node that is neither a file nor a directory.
func (f *FakeClient) AddSpecial(project, instance, p string) {
	f.Files[fakeKey(project, instance, p)] = FakeFile{Special: true}
}

func (f *FakeClient) Server() (ServerInfo, error) {
	return ServerInfo{ServerVersion: f.ServerVersionStr, Auth: f.AuthStr}, nil
}

func (f *FakeClient) GetInstanceFile(project, instance, p string) (io.ReadCloser, FileInfo, error) {
	info, err := f.StatInstanceFile(project, instance, p)
	if err != nil {
		return nil, FileInfo{}, err
	}
	node := f.Files[fakeKey(project, instance, p)]
	switch info.Type {
	case FileTypeSymlink:
		return io.NopCloser(strings.NewReader(node.Target)), info, nil
	case FileTypeFile:
		f.Downloads++
		return io.NopCloser(bytes.NewReader(node.Data)), info, nil
	case FileTypeDirectory:
		info.Entries = f.children(project, instance, p)
		return nil, info, nil
	default:
		return nil, info, nil
	}
}

func (f *FakeClient) StatInstanceFile(project, instance, p string) (FileInfo, error) {
	if node, ok := f.Files[fakeKey(project, instance, p)]; ok {
		switch {
		case node.Target != "":
			return FileInfo{Type: FileTypeSymlink, Mode: 0o777, Size: int64(len(node.Target)), ModTime: node.ModTime}, nil
		case node.Special:
			return FileInfo{Type: FileTypeOther, Mode: 0o644, ModTime: node.ModTime}, nil
		default:
			return FileInfo{Type: FileTypeFile, Mode: 0o644, Size: int64(len(node.Data)), ModTime: node.ModTime}, nil
		}
	}
	if len(f.children(project, instance, p)) == 0 {
		return FileInfo{}, &NotFoundError{Resource: "file", Name: fmt.Sprintf("%s/%s:%s", project, instance, path.Clean(p))}
	}
	return FileInfo{Type: FileTypeDirectory, Mode: 0o755}, nil
}

func (f *FakeClient) Close() error {
	f.Closed = true
	return nil
}

func (f *FakeClient) children(project, instance, p string) []string {
	prefix := fakeKey(project, instance, p)
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	seen := map[string]struct{}{}
	for k := range f.Files {
		if rest, ok := strings.CutPrefix(k, prefix); ok {
			name, _, _ := strings.Cut(rest, "/")
			seen[name] = struct{}{}
		}
	}
	entries := make([]string, 0, len(seen))
	for name := range seen {
		entries = append(entries, name)
	}
	sort.Strings(entries)
	return entries
}

func fakeKey(project, instance, p string) string {
	return project + "/" + instance + ":" + path.Clean(p)
}

type NotFoundError struct{ Resource, Name string }

func (e *NotFoundError) Error() string { return e.Resource + " not found: " + e.Name }
func (e *NotFoundError) Unwrap() error { return os.ErrNotExist }
