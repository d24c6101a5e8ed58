package dcctl

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/api/resource"
	"sigs.k8s.io/yaml"

	"github.com/distcompute/dcctl/internal/common/apierrors"
	"github.com/distcompute/dcctl/internal/testutil/fakebackend"
	"github.com/distcompute/dcctl/pkg/client/job"
	"github.com/distcompute/dcctl/pkg/client/session"
)

type testEnv struct {
	backend *fakebackend.Backend
	store   *session.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	backend := fakebackend.New()
	t.Cleanup(backend.Close)
	backend.AddUser("alice", "alice@example.com", "secret1", "user")
	return &testEnv{backend: backend, store: session.NewMemoryStore()}
}

// app returns a fresh App, as a new dcctl invocation would create, sharing the token store.
func (e *testEnv) app() (*App, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	details := e.backend.Details()
	details.ChunkSize = resource.MustParse("100")
	app := &App{
		Params: &Params{ApiConnectionDetails: details, TokenStore: e.store},
		Out:    buf,
	}
	return app, buf
}

func (e *testEnv) loggedIn(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	app, buf := e.app()
	require.NoError(t, app.Login(context.Background(), "alice", "secret1"))
	buf.Reset()
	return app, buf
}

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestVersion(t *testing.T) {
	buf := new(bytes.Buffer)
	app := &App{Params: &Params{}, Out: buf}
	require.NoError(t, app.Version())
	assert.Contains(t, buf.String(), "Version:")
	assert.Contains(t, buf.String(), "Go version:")

	buf.Reset()
	app.Params.Output = OutputJSON
	require.NoError(t, app.Version())
	var info map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &info))
	assert.Equal(t, "UNKNOWN_VERSION", info["version"])
}

func TestLoginSessionIsSharedBetweenRuns(t *testing.T) {
	env := newTestEnv(t)

	app, buf := env.app()
	require.NoError(t, app.Login(context.Background(), "alice", "secret1"))
	assert.Equal(t, "Login successful\n", buf.String())

	next, buf := env.app()
	require.NoError(t, next.WhoAmI(context.Background()))
	assert.Equal(t, "Logged in as alice <alice@example.com> (id 1, role user)\n", buf.String())

	last, buf := env.app()
	require.NoError(t, last.Logout(context.Background()))
	assert.Equal(t, "Logged out\n", buf.String())

	after, _ := env.app()
	err := after.WhoAmI(context.Background())
	assert.True(t, apierrors.IsUnauthenticated(err))
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	app, buf := env.app()

	err := app.Login(context.Background(), "alice", "nope")
	require.EqualError(t, err, "Invalid username or password")
	assert.Empty(t, buf.String())
}

func TestRegisterDirectsToLogin(t *testing.T) {
	env := newTestEnv(t)
	app, buf := env.app()

	require.NoError(t, app.Register(context.Background(), "bob", "bob@example.com", "hunter22"))
	assert.Contains(t, buf.String(), "Run 'dcctl login' to sign in as bob.")
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t)
	app, buf := env.loggedIn(t)

	require.NoError(t, app.Refresh(context.Background()))
	assert.Contains(t, buf.String(), "Logged in as alice")

	env.backend.ExpireSessions()
	buf.Reset()
	require.NoError(t, app.Refresh(context.Background()))
	assert.Equal(t, "Not logged in.\n", buf.String())
}

func TestProtectedCommandsRequireLogin(t *testing.T) {
	env := newTestEnv(t)
	app, _ := env.app()

	err := app.ListJobs(context.Background(), job.ListOptions{})
	assert.EqualError(t, err, "not logged in, please run 'dcctl login' first")
	assert.Equal(t, 0, env.backend.RequestCount("GET /api/jobs"))
}

func TestExpiredSessionDuringListing(t *testing.T) {
	env := newTestEnv(t)
	app, _ := env.loggedIn(t)
	env.backend.ExpireSessions()

	err := app.ListJobs(context.Background(), job.ListOptions{})
	assert.True(t, apierrors.IsSessionExpired(err))
	assert.Equal(t, "session expired, please log in again", apierrors.Message(err))
	assert.Equal(t, session.StateAnonymous, app.session.State())

	_, ok, _ := env.store.Load()
	assert.False(t, ok)
}

func TestCreateJobWithData(t *testing.T) {
	env := newTestEnv(t)
	app, buf := env.loggedIn(t)
	dir := t.TempDir()
	script := writeFile(t, dir, "train.py", []byte("print('hi')"))
	data := writeFile(t, dir, "data.csv", bytes.Repeat([]byte("1,2\n"), 60))
	app.Params.MetricsFile = filepath.Join(dir, "metrics.prom")

	err := app.CreateJob(context.Background(), CreateJobArgs{
		Name:        "train",
		Type:        job.TypeSimple,
		ScriptPath:  script,
		DataPath:    data,
		RequiredRam: 512 * 1024 * 1024,
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Created job 2 (train)")
	assert.Contains(t, out, "data.csv: chunk 1/3 uploaded (34%")
	assert.Contains(t, out, "data.csv: chunk 2/3 uploaded (67%")
	assert.Contains(t, out, "data.csv: chunk 3/3 uploaded (100%")
	assert.Contains(t, out, "Uploaded data.csv")

	chunks := env.backend.Chunks()
	require.Len(t, chunks, 3)
	assert.Equal(t, "/api/jobs/2/upload-data", chunks[0].Path)
	assert.Equal(t, "536870912", chunks[0].RequiredRam)

	metrics, err := os.ReadFile(app.Params.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `dcctl_upload_chunks_total{destination="job_data",outcome="succeeded"} 3`)
}

func TestCreateJobRejectsWrongExtensions(t *testing.T) {
	env := newTestEnv(t)
	app, _ := env.loggedIn(t)
	dir := t.TempDir()
	script := writeFile(t, dir, "train.sh", []byte("echo"))
	data := writeFile(t, dir, "data.json", []byte("{}"))

	err := app.CreateJob(context.Background(), CreateJobArgs{Name: "x", Type: job.TypeSimple, ScriptPath: script})
	assert.ErrorContains(t, err, ".py")

	py := writeFile(t, dir, "train.py", []byte(""))
	err = app.CreateJob(context.Background(), CreateJobArgs{Name: "x", Type: job.TypeSimple, ScriptPath: py, DataPath: data})
	assert.ErrorContains(t, err, ".csv")
	assert.Equal(t, 0, env.backend.RequestCount("POST /api/jobs"))
}

func TestUploadJobDataFailure(t *testing.T) {
	env := newTestEnv(t)
	app, _ := env.loggedIn(t)
	env.backend.FailChunk(1, 500, "storage unavailable")
	data := writeFile(t, t.TempDir(), "data.csv", bytes.Repeat([]byte("x"), 250))

	err := app.UploadJobData(context.Background(), "5", data, 0)
	assert.Equal(t, "upload of data.csv failed at chunk 2 of 3: storage unavailable", apierrors.Message(err))
	assert.Len(t, env.backend.Chunks(), 2)
}

func TestListAndGetJob(t *testing.T) {
	env := newTestEnv(t)
	app, buf := env.loggedIn(t)
	script := writeFile(t, t.TempDir(), "train.py", []byte(""))
	require.NoError(t, app.CreateJob(context.Background(), CreateJobArgs{Name: "train", Type: job.TypeComplex, ScriptPath: script}))
	buf.Reset()

	require.NoError(t, app.ListJobs(context.Background(), job.ListOptions{}))
	assert.Contains(t, buf.String(), "train")
	assert.Contains(t, buf.String(), "submitted")
	assert.Contains(t, buf.String(), "Showing 1 of 1 jobs")

	buf.Reset()
	app.Params.Output = OutputJSON
	require.NoError(t, app.GetJob(context.Background(), "2"))
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "complex", got["job_type"])

	buf.Reset()
	app.Params.Output = OutputYAML
	require.NoError(t, app.GetJob(context.Background(), "2"))
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "train", got["job_name"])

	app.Params.Output = "xml"
	assert.Error(t, app.GetJob(context.Background(), "2"))
}

func TestDownloadResult(t *testing.T) {
	env := newTestEnv(t)
	app, buf := env.loggedIn(t)
	script := writeFile(t, t.TempDir(), "train.py", []byte(""))
	require.NoError(t, app.CreateJob(context.Background(), CreateJobArgs{Name: "train", Type: job.TypeSimple, ScriptPath: script}))
	env.backend.SetResult(2, []byte("a,b\n"))
	out := filepath.Join(t.TempDir(), "result.csv")

	require.NoError(t, app.DownloadResult(context.Background(), "2", out))
	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(content))
	assert.Contains(t, buf.String(), "Saved result of job 2 to "+out)

	missing := filepath.Join(t.TempDir(), "missing.csv")
	assert.Error(t, app.DownloadResult(context.Background(), "3", missing))
	_, err = os.Stat(missing)
	assert.True(t, os.IsNotExist(err))
}

func TestPaymentFlow(t *testing.T) {
	env := newTestEnv(t)
	app, buf := env.loggedIn(t)
	script := writeFile(t, t.TempDir(), "train.py", []byte(""))
	require.NoError(t, app.CreateJob(context.Background(), CreateJobArgs{Name: "train", Type: job.TypeSimple, ScriptPath: script}))
	env.backend.SetJobStatus(2, "completed")
	buf.Reset()

	require.NoError(t, app.Payment(context.Background(), "2"))
	assert.Contains(t, buf.String(), "pending")
	assert.Contains(t, buf.String(), "$3.75")
	assert.Contains(t, buf.String(), "256Mi")

	buf.Reset()
	require.NoError(t, app.Pay(context.Background(), "2"))
	assert.Contains(t, buf.String(), "Payment of $3.75 for job 2 processed")
	assert.Equal(t, "completed", env.backend.PaymentStatus(2))
}

func TestSubmitGroupFromManifest(t *testing.T) {
	env := newTestEnv(t)
	app, buf := env.loggedIn(t)
	dir := t.TempDir()
	writeFile(t, dir, "main.py", []byte("print(1)"))
	writeFile(t, dir, "archives/a.zip", bytes.Repeat([]byte{1}, 150))
	writeFile(t, dir, "archives/b.zip", bytes.Repeat([]byte{2}, 50))
	writeFile(t, dir, "archives/c.zip", bytes.Repeat([]byte{3}, 200))
	manifest := writeFile(t, dir, "group.yaml", []byte(strings.Join([]string{
		"groupName: sweep",
		"pythonFile: main.py",
		"jobs:",
		"  - archive: archives/a.zip",
		"    requiredRam: 1Gi",
		"  - archive: archives/b.zip",
		"  - archive: archives/c.zip",
	}, "\n")))

	require.NoError(t, app.SubmitGroup(context.Background(), manifest, 2))
	assert.Contains(t, buf.String(), "Created group 2 (sweep) with 3 jobs")
	assert.Contains(t, buf.String(), "Uploaded 3 archives to group 2")

	byPath := map[string][]fakebackend.Chunk{}
	for _, c := range env.backend.Chunks() {
		byPath[c.Path] = append(byPath[c.Path], c)
	}
	require.Len(t, byPath, 3)
	a := byPath["/api/group/2/3/upload-zip-file"]
	require.Len(t, a, 2)
	assert.Equal(t, []int{0, 1}, []int{a[0].Index, a[1].Index})
	assert.Equal(t, "1073741824", a[0].RequiredRam)
	assert.Len(t, byPath["/api/group/2/4/upload-zip-file"], 1)
	assert.Equal(t, "0", byPath["/api/group/2/4/upload-zip-file"][0].RequiredRam)
	assert.Len(t, byPath["/api/group/2/5/upload-zip-file"], 2)
}

func TestUploadGroupArchivesReportsEveryFailure(t *testing.T) {
	env := newTestEnv(t)
	app, buf := env.loggedIn(t)
	dir := t.TempDir()
	small := writeFile(t, dir, "small.zip", bytes.Repeat([]byte{1}, 50))
	large := writeFile(t, dir, "large.zip", bytes.Repeat([]byte{1}, 150))
	env.backend.FailChunk(1, 400, "Corrupt archive")

	err := app.UploadGroupArchives(context.Background(), "9", []ArchiveUpload{
		{JobId: "10", Path: small},
		{JobId: "11", Path: large},
	}, 2)
	require.Error(t, err)
	assert.Contains(t, apierrors.Message(err), "upload of large.zip failed at chunk 2 of 2: Corrupt archive")
	assert.Contains(t, buf.String(), "1 of 2 archives failed to upload")

	err = app.UploadGroupArchives(context.Background(), "9", []ArchiveUpload{{JobId: "10", Path: filepath.Join(dir, "inputs.tar")}}, 1)
	assert.ErrorContains(t, err, ".zip")
}

func TestListAndGetGroup(t *testing.T) {
	env := newTestEnv(t)
	app, buf := env.loggedIn(t)
	script := writeFile(t, t.TempDir(), "main.py", []byte(""))
	require.NoError(t, app.CreateGroup(context.Background(), CreateGroupArgs{Name: "sweep", NumOfJobs: 2, ScriptPath: script}))
	buf.Reset()

	require.NoError(t, app.ListGroups(context.Background()))
	assert.Contains(t, buf.String(), "sweep")

	buf.Reset()
	require.NoError(t, app.GetGroup(context.Background(), "2"))
	assert.Contains(t, buf.String(), "main.py")
}

func TestNodes(t *testing.T) {
	env := newTestEnv(t)
	app, buf := env.loggedIn(t)

	require.NoError(t, app.ListNodes(context.Background()))
	assert.Contains(t, buf.String(), "node-a")
	assert.Contains(t, buf.String(), "$12.50")

	buf.Reset()
	require.NoError(t, app.GetNode(context.Background(), "node-a"))
	assert.Contains(t, buf.String(), "2m1s")
	assert.Contains(t, buf.String(), "paid")
}

func TestStatisticsWithoutLogin(t *testing.T) {
	env := newTestEnv(t)
	app, buf := env.app()

	require.NoError(t, app.Statistics(context.Background()))
	assert.Contains(t, buf.String(), "Active nodes:")
	assert.Contains(t, buf.String(), "$12.50")

	env.backend.FailStatistics(true)
	failing, buf := env.app()
	require.NoError(t, failing.Statistics(context.Background()))
	assert.Contains(t, buf.String(), "$0.00")
}

func TestStartRequiresConnectionDetails(t *testing.T) {
	app := &App{Params: &Params{}, Out: new(bytes.Buffer)}
	assert.Error(t, app.Login(context.Background(), "a", "b"))
}
