//go:build integration

package cli_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectFromIncusInstance(t *testing.T) {
	if os.Getenv("INCUS_TESTS") != "1" {
		t.Skip("INCUS_TESTS=1 not set; skipping integration test")
	}
	clearEnv(t)

	proj := "itest-collect-" + time.Now().UTC().Format("20060102T150405")
	runCmd(t, "incus", "project", "create", proj)
	t.Cleanup(func() { _ = exec.Command("incus", "project", "delete", proj).Run() })

	inst := "icollect"
	runCmd(t, "incus", "--project", proj, "launch", "images:alpine/3.18", inst)
	t.Cleanup(func() { _ = exec.Command("incus", "--project", proj, "delete", "--force", inst).Run() })

	runCmd(t, "incus", "--project", proj, "exec", inst, "--", "sh", "-lc", `
mkdir -p /home/zuul/src/workspace/logs/nested /home/zuul/data/ovs
echo job > /home/zuul/src/workspace/logs/job-output.txt
echo nested > /home/zuul/src/workspace/logs/nested/syslog.txt
echo skip > /home/zuul/src/workspace/README
for db in conf ovnnb_db ovnsb_db; do echo "$db" > /home/zuul/data/ovs/$db.db; done
`)

	logRoot := t.TempDir()
	_, stderr, err := run(t, "collect",
		"--source", "incus:"+proj+"/"+inst+":/home/zuul/src/workspace",
		"--log-root", logRoot,
		"--verify-host-key",
		"--checksums",
	)
	require.NoError(t, err, "stderr=%s", stderr)

	got, err := os.ReadFile(filepath.Join(logRoot, "logs", "job-output.txt"))
	require.NoError(t, err)
	assert.Equal(t, "job\n", string(got))
	assert.FileExists(t, filepath.Join(logRoot, "logs", "nested", "syslog.txt"))
	assert.NoFileExists(t, filepath.Join(logRoot, "README"))
	for _, n := range []string{"conf", "ovnnb_db", "ovnsb_db"} {
		assert.FileExists(t, filepath.Join(logRoot, "logs", "ovs_dbs", n+".txt.gz"))
	}

	out, _, err := run(t, "verify", "--log-root", logRoot)
	require.NoError(t, err)
	assert.NotContains(t, out, "mismatch")
}

func runCmd(t *testing.T, name string, args ...string) string {
	t.Helper()
	cmd := exec.Command(name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("%s %v: %v\n%s", name, args, err, string(out))
	}
	return string(out)
}
