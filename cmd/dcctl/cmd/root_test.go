package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distcompute/dcctl/internal/dcctl"
	"github.com/distcompute/dcctl/internal/testutil/fakebackend"
	"github.com/distcompute/dcctl/pkg/client/session"
)

type cli struct {
	t       *testing.T
	backend *fakebackend.Backend
	store   *session.MemoryStore
	config  string
}

func newCli(t *testing.T) *cli {
	backend := fakebackend.New()
	t.Cleanup(backend.Close)
	backend.AddUser("alice", "alice@example.com", "secret1", "user")
	config := filepath.Join(t.TempDir(), "dcctl.yaml")
	require.NoError(t, os.WriteFile(config, []byte("chunkSize: 100\ntimeout: 5s\ntokenStore: memory\n"), 0o644))
	return &cli{t: t, backend: backend, store: session.NewMemoryStore(), config: config}
}

// run executes one dcctl invocation and returns what it printed.
func (c *cli) run(args ...string) (string, error) {
	out := new(bytes.Buffer)
	app := &dcctl.App{
		Params: &dcctl.Params{TokenStore: c.store},
		Out:    out,
	}
	cmd := rootCmdWithApp(app)
	cmd.SetArgs(append(args, "--baseUrl", c.backend.URL, "--config", c.config))
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	err := cmd.Execute()
	return out.String(), err
}

func TestLoginAndWhoAmI(t *testing.T) {
	c := newCli(t)

	out, err := c.run("login", "alice", "--password", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Login successful\n", out)

	out, err = c.run("whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as alice")

	_, err = c.run("logout")
	require.NoError(t, err)

	_, err = c.run("whoami")
	assert.EqualError(t, err, "not logged in, please run 'dcctl login' first")
}

func TestLoginReadsPasswordFromInput(t *testing.T) {
	c := newCli(t)
	out := new(bytes.Buffer)
	app := &dcctl.App{Params: &dcctl.Params{TokenStore: c.store}, Out: out}
	cmd := rootCmdWithApp(app)
	cmd.SetArgs([]string{"login", "alice", "--baseUrl", c.backend.URL, "--config", c.config})
	cmd.SetIn(bytes.NewBufferString("secret1\n"))
	cmd.SetErr(new(bytes.Buffer))

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "Login successful\n", out.String())
}

func TestLoginFailureShowsServerMessage(t *testing.T) {
	c := newCli(t)

	_, err := c.run("login", "alice", "--password", "wrong")
	assert.EqualError(t, err, "Invalid username or password")
}

func TestJobCommands(t *testing.T) {
	c := newCli(t)
	dir := t.TempDir()
	script := filepath.Join(dir, "train.py")
	data := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(script, []byte("print(1)"), 0o644))
	require.NoError(t, os.WriteFile(data, bytes.Repeat([]byte("x"), 250), 0o644))
	_, err := c.run("login", "alice", "--password", "secret1")
	require.NoError(t, err)

	out, err := c.run("job", "create", "train", script, "--data", data, "--required-ram", "1Gi")
	require.NoError(t, err)
	assert.Contains(t, out, "Created job 2 (train)")
	assert.Contains(t, out, "chunk 3/3 uploaded (100%")

	chunks := c.backend.Chunks()
	require.Len(t, chunks, 3)
	assert.Equal(t, "1073741824", chunks[2].RequiredRam)

	out, err = c.run("job", "list", "--status", "submitted", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "job_name: train")

	_, err = c.run("job", "list", "--status", "done")
	assert.ErrorContains(t, err, `invalid status "done"`)

	_, err = c.run("job", "create", "train", script, "--required-ram", "lots")
	assert.ErrorContains(t, err, "invalid required-ram")
}

func TestGroupUploadArguments(t *testing.T) {
	c := newCli(t)
	_, err := c.run("login", "alice", "--password", "secret1")
	require.NoError(t, err)

	_, err = c.run("group", "upload", "2", "archive.zip")
	assert.ErrorContains(t, err, "expected <job-id>=<archive.zip>")
}

func TestStatsWithoutLogin(t *testing.T) {
	c := newCli(t)

	out, err := c.run("stats", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"nodes": 3`)
}

func TestInvalidTokenStore(t *testing.T) {
	c := newCli(t)

	_, err := c.run("stats", "--tokenStore", "file")
	assert.ErrorContains(t, err, "invalid connection settings")
}

func TestVersion(t *testing.T) {
	c := newCli(t)

	out, err := c.run("version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:")
}
