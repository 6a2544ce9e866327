package incusapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	incuscli "github.com/lxc/incus/client"
	"github.com/lxc/incus/shared/api"
	"github.com/pkg/sftp"
)

// RealClient wraps the official Incus Go client.
type RealClient struct {
	c incuscli.InstanceServer
	// sftp holds one file session per "project/instance", used for metadata.
	sftp map[string]*sftp.Client
}

// ConnectLocal connects to the local Incus via the UNIX socket.
func ConnectLocal() (*RealClient, error) {
	c, err := incuscli.ConnectIncusUnix("", nil)
	if err != nil {
		return nil, err
	}
	return &RealClient{c: c, sftp: map[string]*sftp.Client{}}, nil
}

func (r *RealClient) Server() (ServerInfo, error) {
	s, _, err := r.c.GetServer()
	if err != nil {
		return ServerInfo{}, err
	}
	return ServerInfo{ServerVersion: s.Environment.ServerVersion, Auth: s.Auth}, nil
}

func (r *RealClient) GetInstanceFile(project, instance, path string) (io.ReadCloser, FileInfo, error) {
	content, resp, err := r.c.UseProject(project).GetInstanceFile(instance, path)
	if err != nil {
		if api.StatusErrorCheck(err, http.StatusNotFound) {
			return nil, FileInfo{}, fmt.Errorf("%s/%s:%s: %w", project, instance, path, os.ErrNotExist)
		}
		return nil, FileInfo{}, err
	}
	info := FileInfo{Type: resp.Type, Mode: os.FileMode(resp.Mode), Entries: resp.Entries}
	return content, info, nil
}

// StatInstanceFile uses the instance's SFTP endpoint, which reports size
// and modification time that the file API omits.
func (r *RealClient) StatInstanceFile(project, instance, path string) (FileInfo, error) {
	sc, err := r.sftpClient(project, instance)
	if err != nil {
		return FileInfo{}, err
	}
	fi, err := sc.Lstat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return FileInfo{}, fmt.Errorf("%s/%s:%s: %w", project, instance, path, os.ErrNotExist)
		}
		return FileInfo{}, err
	}
	return FileInfo{
		Type:    fileType(fi.Mode()),
		Mode:    fi.Mode().Perm(),
		Size:    fi.Size(),
		ModTime: fi.ModTime(),
	}, nil
}

func (r *RealClient) Close() error {
	var errs []error
	for k, sc := range r.sftp {
		errs = append(errs, sc.Close())
		delete(r.sftp, k)
	}
	return errors.Join(errs...)
}

func (r *RealClient) sftpClient(project, instance string) (*sftp.Client, error) {
	key := project + "/" + instance
	if sc, ok := r.sftp[key]; ok {
		return sc, nil
	}
	sc, err := r.c.UseProject(project).GetInstanceFileSFTP(instance)
	if err != nil {
		return nil, fmt.Errorf("open sftp for %s: %w", key, err)
	}
	r.sftp[key] = sc
	return sc, nil
}

func fileType(m os.FileMode) string {
	switch {
	case m.IsDir():
		return FileTypeDirectory
	case m&os.ModeSymlink != 0:
		return FileTypeSymlink
	case m.IsRegular():
		return FileTypeFile
	default:
		return FileTypeOther
	}
}
