package cli

import (
	"fmt"

	"artifact-collector/src/collect"
	"artifact-collector/src/config"
	"artifact-collector/src/incusapi"
	"artifact-collector/src/source"
	"artifact-collector/src/source/directory"
	"artifact-collector/src/source/instance"
	"artifact-collector/src/source/remote"
	"artifact-collector/src/target"
)

// sourceOpener dispatches on the URI scheme to the matching source implementation.
func sourceOpener(cfg *config.Config) collect.OpenFunc {
	return func(remoteRoot string, verifyIdentity bool) (source.Source, error) {
		t, err := target.Parse(remoteRoot)
		if err != nil {
			return nil, err
		}
		opts := source.Options{
			VerifyIdentity: verifyIdentity,
			KnownHostsFile: cfg.KnownHosts,
			KeyFile:        cfg.SSHKey,
		}
		switch t.Scheme {
		case "dir":
			s, err := directory.New(t.DirPath)
			if err != nil {
				return nil, err
			}
			return s, nil
		case "ssh":
			s, err := remote.Dial(t, opts)
			if err != nil {
				return nil, err
			}
			return s, nil
		case "incus":
			client, err := incusapi.ConnectLocal()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", source.ErrUnreachable, err)
			}
			s, err := instance.Open(client, t, opts)
			if err != nil {
				client.Close()
				return nil, err
			}
			return s, nil
		default:
			return nil, fmt.Errorf("unsupported source: %s", t.Scheme)
		}
	}
}
