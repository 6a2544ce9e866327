package instance

import (
	"fmt"
	"io"
	"os"
	"path"
	"sort"

	"artifact-collector/src/incusapi"
	"artifact-collector/src/source"
	"artifact-collector/src/target"
)

// Source implements source.Source for a tree inside an Incus instance.
type Source struct {
	client   incusapi.Client
	project  string
	instance string
	root     string
	label    string
}

// Open checks the incus target t and returns a Source reading through client.
// With opts.VerifyIdentity the daemon must report the connection as trusted.
func Open(client incusapi.Client, t target.Target, opts source.Options) (*Source, error) {
	if t.Scheme != "incus" {
		return nil, fmt.Errorf("%w: not an incus target: %s", source.ErrUnreachable, t)
	}
	if opts.VerifyIdentity {
		info, err := client.Server()
		if err != nil {
			return nil, fmt.Errorf("%w: query incus server: %v", source.ErrUnreachable, err)
		}
		if info.Auth != "trusted" {
			return nil, fmt.Errorf("%w: incus server reports auth %q", source.ErrIdentityVerification, info.Auth)
		}
	}
	s := &Source{client: client, project: t.Project, instance: t.Instance, root: t.Path, label: t.String()}
	info, _, err := s.stat(t.Path)
	if err == nil && info.Type != incusapi.FileTypeDirectory {
		err = fmt.Errorf("root is not a directory: %s", t.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: stat root: %v", source.ErrUnreachable, err)
	}
	return s, nil
}

// ReadDir lists rel using file metadata only; no file content is fetched.
func (s *Source) ReadDir(rel string) ([]source.Entry, error) {
	info, dir, err := s.stat(s.abs(rel))
	if err != nil {
		return nil, err
	}
	if info.Type != incusapi.FileTypeDirectory {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}
	names, err := s.list(dir)
	if err != nil {
		return nil, err
	}
	entries := make([]source.Entry, 0, len(names))
	for _, name := range names {
		e := source.Entry{Name: name}
		child, _, err := s.stat(path.Join(dir, name))
		switch {
		case err == nil:
			e.IsDir = child.Type == incusapi.FileTypeDirectory
			e.Regular = child.Type == incusapi.FileTypeFile
			e.Size = child.Size
			e.Mode = child.Mode
			e.ModTime = child.ModTime
		case source.Unresolvable(err):
			e.Dangling = true
		default:
			return nil, err
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (s *Source) Open(rel string) (io.ReadCloser, error) {
	p := s.abs(rel)
	for hop := 0; hop < source.MaxLinkHops; hop++ {
		rc, info, err := s.client.GetInstanceFile(s.project, s.instance, p)
		if err != nil {
			return nil, err
		}
		switch info.Type {
		case incusapi.FileTypeFile:
			return rc, nil
		case incusapi.FileTypeSymlink:
			next, err := readLink(rc, p)
			if err != nil {
				return nil, err
			}
			p = next
		default:
			if rc != nil {
				rc.Close()
			}
			return nil, fmt.Errorf("not a regular file: %s", p)
		}
	}
	return nil, fmt.Errorf("%w: %s", source.ErrLinkLoop, s.abs(rel))
}

func (s *Source) RealPath(rel string) (string, error) {
	return source.ResolvePath(linkResolver{s}, s.abs(rel))
}

func (s *Source) Close() error { return s.client.Close() }

func (s *Source) String() string { return s.label }

func (s *Source) abs(rel string) string {
	return path.Join(s.root, rel)
}

func (s *Source) list(dir string) ([]string, error) {
	rc, info, err := s.client.GetInstanceFile(s.project, s.instance, dir)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		rc.Close()
	}
	if info.Type != incusapi.FileTypeDirectory {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}
	return info.Entries, nil
}

// stat describes p, following symlinks, and returns the final info together
// with the resolved path.
func (s *Source) stat(p string) (incusapi.FileInfo, string, error) {
	for hop := 0; hop < source.MaxLinkHops; hop++ {
		info, err := s.client.StatInstanceFile(s.project, s.instance, p)
		if err != nil {
			return incusapi.FileInfo{}, p, err
		}
		if info.Type != incusapi.FileTypeSymlink {
			return info, p, nil
		}
		dest, err := s.linkTarget(p)
		if err != nil {
			return incusapi.FileInfo{}, p, err
		}
		p = joinLink(p, dest)
	}
	return incusapi.FileInfo{}, p, fmt.Errorf("%w: %s", source.ErrLinkLoop, p)
}

// linkTarget returns the raw target stored in the symlink link.
func (s *Source) linkTarget(link string) (string, error) {
	rc, info, err := s.client.GetInstanceFile(s.project, s.instance, link)
	if err != nil {
		return "", err
	}
	if rc == nil {
		return "", fmt.Errorf("not a symlink: %s", link)
	}
	defer rc.Close()
	if info.Type != incusapi.FileTypeSymlink {
		return "", fmt.Errorf("not a symlink: %s", link)
	}
	b, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read link %s: %w", link, err)
	}
	return string(b), nil
}

// readLink consumes a symlink body and resolves it relative to the link's directory.
func readLink(rc io.ReadCloser, link string) (string, error) {
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read link %s: %w", link, err)
	}
	return joinLink(link, string(b)), nil
}

func joinLink(link, dest string) string {
	if !path.IsAbs(dest) {
		dest = path.Join(path.Dir(link), dest)
	}
	return path.Clean(dest)
}

type linkResolver struct{ s *Source }

func (l linkResolver) Lstat(p string) (os.FileMode, error) {
	info, err := l.s.client.StatInstanceFile(l.s.project, l.s.instance, p)
	if err != nil {
		return 0, err
	}
	switch info.Type {
	case incusapi.FileTypeDirectory:
		return os.ModeDir | info.Mode, nil
	case incusapi.FileTypeSymlink:
		return os.ModeSymlink | info.Mode, nil
	}
	return info.Mode, nil
}

func (l linkResolver) ReadLink(p string) (string, error) { return l.s.linkTarget(p) }
