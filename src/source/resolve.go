package source

import (
	"fmt"
	"os"
	"path"
	"strings"
)

// MaxLinkHops bounds symbolic link resolution, matching the kernel's ELOOP limit.
const MaxLinkHops = 40

// LinkResolver is the part of a remote filesystem ResolvePath needs.
type LinkResolver interface {
	// Lstat describes p without following a final symbolic link.
	Lstat(p string) (os.FileMode, error)
	// ReadLink returns the target stored in the symbolic link p.
	ReadLink(p string) (string, error)
}

// ResolvePath canonicalizes the absolute slash path p component by
// component, following every symbolic link on the way.
func ResolvePath(fsys LinkResolver, p string) (string, error) {
	if !path.IsAbs(p) {
		return "", fmt.Errorf("resolve %s: path is not absolute", p)
	}
	todo := strings.Split(path.Clean(p), "/")
	cur := "/"
	hops := 0
	for len(todo) > 0 {
		name := todo[0]
		todo = todo[1:]
		switch name {
		case "", ".":
			continue
		case "..":
			cur = path.Dir(cur)
			continue
		}
		next := path.Join(cur, name)
		mode, err := fsys.Lstat(next)
		if err != nil {
			return "", err
		}
		if mode&os.ModeSymlink == 0 {
			cur = next
			continue
		}
		if hops++; hops > MaxLinkHops {
			return "", fmt.Errorf("%w: %s", ErrLinkLoop, p)
		}
		dest, err := fsys.ReadLink(next)
		if err != nil {
			return "", err
		}
		if path.IsAbs(dest) {
			cur = "/"
		}
		todo = append(strings.Split(dest, "/"), todo...)
	}
	return cur, nil
}
