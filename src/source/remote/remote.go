package remote

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"sort"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"artifact-collector/src/source"
	"artifact-collector/src/target"
)

const connectTimeout = 10 * time.Second

// Source implements source.Source over SFTP on an SSH connection.
type Source struct {
	root   string
	label  string
	conn   *ssh.Client
	client *sftp.Client
}

// Dial connects to the ssh target t. When opts.VerifyIdentity is set the
// server host key must be listed in opts.KnownHostsFile; otherwise any host
// key is accepted.
func Dial(t target.Target, opts source.Options) (*Source, error) {
	if t.Scheme != "ssh" {
		return nil, fmt.Errorf("%w: not an ssh target: %s", source.ErrUnreachable, t)
	}

	hostKeys := &hostKeyChecker{}
	if opts.VerifyIdentity {
		if opts.KnownHostsFile == "" {
			return nil, fmt.Errorf("%w: host key verification requested but no known_hosts file configured", source.ErrIdentityVerification)
		}
		cb, err := knownhosts.New(opts.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("%w: load known_hosts %s: %v", source.ErrIdentityVerification, opts.KnownHostsFile, err)
		}
		hostKeys.verify = cb
	}

	auth, err := authMethods(opts.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", source.ErrUnreachable, err)
	}

	user := t.User
	if user == "" {
		user = os.Getenv("USER")
	}
	conn, err := ssh.Dial("tcp", t.Address(), &ssh.ClientConfig{
		User:            user,
		Auth:            auth,
		HostKeyCallback: hostKeys.check,
		Timeout:         connectTimeout,
	})
	if err != nil {
		if hostKeys.err != nil {
			return nil, fmt.Errorf("%w: %s: %v", source.ErrIdentityVerification, t.Address(), hostKeys.err)
		}
		return nil, fmt.Errorf("%w: ssh %s: %v", source.ErrUnreachable, t.Address(), err)
	}

	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: start sftp on %s: %v", source.ErrUnreachable, t.Address(), err)
	}

	info, err := client.Stat(t.Path)
	if err == nil && !info.IsDir() {
		err = fmt.Errorf("root is not a directory: %s", t.Path)
	}
	if err != nil {
		client.Close()
		conn.Close()
		return nil, fmt.Errorf("%w: stat root: %v", source.ErrUnreachable, err)
	}

	return &Source{root: t.Path, label: t.String(), conn: conn, client: client}, nil
}

func (s *Source) ReadDir(rel string) ([]source.Entry, error) {
	dir := s.abs(rel)
	infos, err := s.client.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	entries := make([]source.Entry, 0, len(infos))
	for _, info := range infos {
		e := source.Entry{Name: info.Name()}
		if info.Mode()&os.ModeSymlink != 0 {
			target, err := s.client.Stat(path.Join(dir, info.Name()))
			if err != nil {
				if !unresolvable(err) {
					return nil, err
				}
				e.Dangling = true
				entries = append(entries, e)
				continue
			}
			info = target
		}
		e.IsDir = info.IsDir()
		e.Regular = info.Mode().IsRegular()
		e.Size = info.Size()
		e.Mode = info.Mode()
		e.ModTime = info.ModTime()
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (s *Source) Open(rel string) (io.ReadCloser, error) {
	return s.client.Open(s.abs(rel))
}

func (s *Source) RealPath(rel string) (string, error) {
	return source.ResolvePath(linkResolver{s.client}, s.abs(rel))
}

func (s *Source) Close() error {
	err := s.client.Close()
	if cerr := s.conn.Close(); err == nil {
		err = cerr
	}
	return err
}

func (s *Source) String() string { return s.label }

func (s *Source) abs(rel string) string {
	return path.Join(s.root, rel)
}

// unresolvable also covers failures the server reports for the link target
// itself, such as ELOOP, which arrive as a generic SFTP status.
func unresolvable(err error) bool {
	var status *sftp.StatusError
	return source.Unresolvable(err) || errors.As(err, &status)
}

type linkResolver struct{ c *sftp.Client }

func (l linkResolver) Lstat(p string) (os.FileMode, error) {
	info, err := l.c.Lstat(p)
	if err != nil {
		return 0, err
	}
	return info.Mode(), nil
}

func (l linkResolver) ReadLink(p string) (string, error) { return l.c.ReadLink(p) }

// hostKeyChecker remembers why a host key was rejected so Dial can tell an
// identity failure apart from other handshake errors.
type hostKeyChecker struct {
	verify ssh.HostKeyCallback
	err    error
}

func (h *hostKeyChecker) check(hostname string, remote net.Addr, key ssh.PublicKey) error {
	if h.verify == nil {
		return nil
	}
	if err := h.verify(hostname, remote, key); err != nil {
		h.err = err
		return err
	}
	return nil
}

func authMethods(keyFile string) ([]ssh.AuthMethod, error) {
	if keyFile == "" {
		return nil, nil
	}
	pem, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("read ssh key %s: %w", keyFile, err)
	}
	signer, err := ssh.ParsePrivateKey(pem)
	if err != nil {
		return nil, fmt.Errorf("parse ssh key %s: %w", keyFile, err)
	}
	return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
}
