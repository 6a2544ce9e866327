package remote

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"artifact-collector/src/collect"
	"artifact-collector/src/source"
	"artifact-collector/src/target"
)

func newHostKey(t *testing.T) ssh.Signer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)
	return signer
}

// startSFTPServer runs an in-process SSH server that accepts any client and
// serves the sftp subsystem from the local filesystem.
func startSFTPServer(t *testing.T, hostKey ssh.Signer) string {
	t.Helper()
	cfg := &ssh.ServerConfig{NoClientAuth: true}
	cfg.AddHostKey(hostKey)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			nc, err := ln.Accept()
			if err != nil {
				return
			}
			go serveConn(nc, cfg)
		}
	}()
	return ln.Addr().String()
}

func serveConn(nc net.Conn, cfg *ssh.ServerConfig) {
	_, chans, reqs, err := ssh.NewServerConn(nc, cfg)
	if err != nil {
		nc.Close()
		return
	}
	go ssh.DiscardRequests(reqs)
	for nch := range chans {
		if nch.ChannelType() != "session" {
			nch.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		ch, requests, err := nch.Accept()
		if err != nil {
			continue
		}
		go func(in <-chan *ssh.Request) {
			for req := range in {
				ok := req.Type == "subsystem" && len(req.Payload) > 4 && string(req.Payload[4:]) == "sftp"
				req.Reply(ok, nil)
			}
		}(requests)
		go func() {
			defer ch.Close()
			srv, err := sftp.NewServer(ch)
			if err != nil {
				return
			}
			_ = srv.Serve()
			srv.Close()
		}()
	}
}

func writeKnownHosts(t *testing.T, addr string, key ssh.PublicKey) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "known_hosts")
	line := knownhosts.Line([]string{knownhosts.Normalize(addr)}, key)
	require.NoError(t, os.WriteFile(p, []byte(line+"\n"), 0o600))
	return p
}

func workspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "logs", "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "logs", "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "logs", "sub", "b.txt"), []byte("beta"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join(root, "logs", "a.txt"), filepath.Join(root, "logs", "link.txt")))
	return root
}

func parse(t *testing.T, addr, root string) target.Target {
	t.Helper()
	tgt, err := target.Parse("ssh://tester@" + addr + filepath.ToSlash(root))
	require.NoError(t, err)
	return tgt
}

func TestDial_ReadsTreeWithoutVerification(t *testing.T) {
	addr := startSFTPServer(t, newHostKey(t))
	root := workspace(t)

	s, err := Dial(parse(t, addr, root), source.Options{})
	require.NoError(t, err)
	defer s.Close()

	entries, err := s.ReadDir("logs")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "a.txt", entries[0].Name)
	assert.Equal(t, "link.txt", entries[1].Name)
	assert.False(t, entries[1].IsDir)
	assert.Equal(t, int64(5), entries[1].Size)
	assert.True(t, entries[2].IsDir)

	rc, err := s.Open("logs/sub/b.txt")
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "beta", string(b))
}

func TestDial_VerifiesKnownHost(t *testing.T) {
	hostKey := newHostKey(t)
	addr := startSFTPServer(t, hostKey)
	root := workspace(t)
	kh := writeKnownHosts(t, addr, hostKey.PublicKey())

	s, err := Dial(parse(t, addr, root), source.Options{VerifyIdentity: true, KnownHostsFile: kh})
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestDial_RejectsMismatchedHostKey(t *testing.T) {
	addr := startSFTPServer(t, newHostKey(t))
	root := workspace(t)
	kh := writeKnownHosts(t, addr, newHostKey(t).PublicKey())

	_, err := Dial(parse(t, addr, root), source.Options{VerifyIdentity: true, KnownHostsFile: kh})
	require.Error(t, err)
	assert.True(t, errors.Is(err, source.ErrIdentityVerification))
	assert.False(t, errors.Is(err, source.ErrUnreachable))
}

func TestDial_RequiresKnownHostsWhenVerifying(t *testing.T) {
	addr := startSFTPServer(t, newHostKey(t))
	_, err := Dial(parse(t, addr, t.TempDir()), source.Options{VerifyIdentity: true})
	assert.True(t, errors.Is(err, source.ErrIdentityVerification))
}

func TestDial_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = Dial(parse(t, addr, "/srv"), source.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, source.ErrUnreachable))
}

func TestDial_RootMustBeDirectory(t *testing.T) {
	addr := startSFTPServer(t, newHostKey(t))
	root := workspace(t)

	_, err := Dial(parse(t, addr, filepath.Join(root, "logs", "a.txt")), source.Options{})
	assert.True(t, errors.Is(err, source.ErrUnreachable))
}

func TestCollect_OverSFTP(t *testing.T) {
	addr := startSFTPServer(t, newHostKey(t))
	root := workspace(t)
	logs := filepath.Join(root, "logs")
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(logs, "dangling")))
	require.NoError(t, os.Symlink(".", filepath.Join(logs, "loop")))
	require.NoError(t, os.Symlink("self", filepath.Join(logs, "self")))
	require.NoError(t, syscall.Mkfifo(filepath.Join(logs, "pipe"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README"), []byte("skip"), 0o644))

	remoteRoot := "ssh://tester@" + addr + filepath.ToSlash(root)
	opener := func(uri string, verify bool) (source.Source, error) {
		tgt, err := target.Parse(uri)
		if err != nil {
			return nil, err
		}
		return Dial(tgt, source.Options{VerifyIdentity: verify})
	}

	local := t.TempDir()
	spec := collect.TransferSpec{RemoteRoot: remoteRoot, LocalRoot: local}
	c := collect.New(zerolog.Nop())
	src, err := c.Connect(opener, spec)
	require.NoError(t, err)
	defer src.Close()

	done := make(chan struct{})
	var n int
	go func() {
		defer close(done)
		n, err = c.Collect(src, spec)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("collect did not finish")
	}
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := os.ReadFile(filepath.Join(local, "logs", "link.txt"))
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(got))
	assert.FileExists(t, filepath.Join(local, "logs", "a.txt"))
	assert.FileExists(t, filepath.Join(local, "logs", "sub", "b.txt"))
	for _, skipped := range []string{"dangling", "self", "pipe", "loop"} {
		assert.NoFileExists(t, filepath.Join(local, "logs", skipped))
		assert.NoDirExists(t, filepath.Join(local, "logs", skipped))
	}
	assert.NoFileExists(t, filepath.Join(local, "README"))

	loop, err := src.RealPath("logs/loop/loop")
	require.NoError(t, err)
	logsReal, err := src.RealPath("logs")
	require.NoError(t, err)
	assert.Equal(t, logsReal, loop)
}
