package target

import (
	"fmt"
	"net"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// Target represents a parsed source URI.
// Examples:
//
//	dir:/home/zuul/workspace
//	ssh://zuul@build-1.example.org:22/home/zuul/workspace
//	incus:ci/builder-1:/home/zuul/workspace
type Target struct {
	// Raw is the original input string.
	Raw string
	// Scheme is the transport scheme (dir, ssh or incus).
	Scheme string
	// Value is the scheme-specific value.
	Value string

	// Path is the cleaned absolute path of the tree root on the endpoint.
	Path string
	// DirPath is set when Scheme == "dir" and mirrors Path using the local separator.
	DirPath string

	// User, Host and Port are set for ssh targets.
	User string
	Host string
	Port string

	// Project and Instance are set for incus targets.
	Project  string
	Instance string
}

// SupportedSchemes lists the schemes the parser accepts.
var SupportedSchemes = map[string]struct{}{
	"dir":   {},
	"ssh":   {},
	"incus": {},
}

const (
	defaultSSHPort      = "22"
	defaultIncusProject = "default"
)

// Parse parses a source URI like "dir:/path" into a Target structure.
func Parse(raw string) (Target, error) {
	t := Target{Raw: raw}
	s := strings.TrimSpace(raw)
	if s == "" {
		return t, fmt.Errorf("source must not be empty; expected format 'dir:/path'")
	}
	// Expect <scheme>:<value>
	i := strings.Index(s, ":")
	if i <= 0 || i == len(s)-1 {
		return t, fmt.Errorf("invalid source %q; expected format '<scheme>:<value>' (e.g., 'dir:/path')", raw)
	}
	scheme := strings.ToLower(strings.TrimSpace(s[:i]))
	val := strings.TrimSpace(s[i+1:])
	if _, ok := SupportedSchemes[scheme]; !ok {
		return t, fmt.Errorf("unsupported source scheme %q", scheme)
	}
	t.Scheme = scheme
	t.Value = val

	switch scheme {
	case "dir":
		clean := filepath.Clean(val)
		if !filepath.IsAbs(clean) {
			return t, fmt.Errorf("directory source must be an absolute path: %q", val)
		}
		t.DirPath = clean
		t.Path = filepath.ToSlash(clean)
		t.Value = clean
	case "ssh":
		u, err := url.Parse(scheme + ":" + val)
		if err != nil {
			return t, fmt.Errorf("invalid ssh source %q: %w", raw, err)
		}
		if u.Host == "" {
			return t, fmt.Errorf("ssh source must include a host: %q", raw)
		}
		t.Host = u.Hostname()
		t.Port = u.Port()
		if t.Port == "" {
			t.Port = defaultSSHPort
		}
		if u.User != nil {
			t.User = u.User.Username()
		}
		if u.Path == "" || !path.IsAbs(u.Path) {
			return t, fmt.Errorf("ssh source must include an absolute path: %q", raw)
		}
		t.Path = path.Clean(u.Path)
	case "incus":
		// [project/]instance:/path
		j := strings.Index(val, ":")
		if j <= 0 {
			return t, fmt.Errorf("invalid incus source %q; expected 'incus:[project/]instance:/path'", raw)
		}
		ref, p := val[:j], val[j+1:]
		t.Project = defaultIncusProject
		t.Instance = ref
		if k := strings.Index(ref, "/"); k >= 0 {
			t.Project, t.Instance = ref[:k], ref[k+1:]
		}
		if t.Project == "" || t.Instance == "" {
			return t, fmt.Errorf("incus source must name a project and instance: %q", raw)
		}
		if !path.IsAbs(p) {
			return t, fmt.Errorf("incus source path must be absolute: %q", raw)
		}
		t.Path = path.Clean(p)
	}
	return t, nil
}

// IsSupported returns true if the scheme is recognized.
func IsSupported(scheme string) bool {
	_, ok := SupportedSchemes[strings.ToLower(scheme)]
	return ok
}

// Address returns host:port for ssh targets.
func (t Target) Address() string {
	return net.JoinHostPort(t.Host, t.Port)
}

// Join returns a copy of t rooted at rel resolved against t.Path.
// rel may climb out of the root with "..".
func (t Target) Join(rel string) Target {
	out := t
	out.Path = path.Clean(path.Join(t.Path, filepath.ToSlash(rel)))
	if t.Scheme == "dir" {
		out.DirPath = filepath.FromSlash(out.Path)
		out.Value = out.DirPath
	}
	out.Raw = out.String()
	return out
}

// String returns a canonical string form of the target.
func (t Target) String() string {
	switch t.Scheme {
	case "dir":
		if t.DirPath != "" {
			return fmt.Sprintf("%s:%s", t.Scheme, t.DirPath)
		}
	case "ssh":
		if t.Host != "" {
			u := url.URL{Scheme: "ssh", Host: t.Address(), Path: t.Path}
			if t.User != "" {
				u.User = url.User(t.User)
			}
			return u.String()
		}
	case "incus":
		if t.Instance != "" {
			return fmt.Sprintf("incus:%s/%s:%s", t.Project, t.Instance, t.Path)
		}
	}
	if t.Scheme != "" {
		return fmt.Sprintf("%s:%s", t.Scheme, t.Value)
	}
	return t.Raw
}
