package job

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distcompute/dcctl/internal/common/apierrors"
	"github.com/distcompute/dcctl/internal/testutil/fakebackend"
	"github.com/distcompute/dcctl/pkg/client"
	"github.com/distcompute/dcctl/pkg/client/upload"
)

func script(name, content string) *upload.File {
	return upload.NewFile(name, "", []byte(content))
}

func TestCreate(t *testing.T) {
	backend := fakebackend.New()
	defer backend.Close()
	conn := backend.LoggedIn(t, "alice")

	j, err := Create(conn)(context.Background(), CreateRequest{Name: " train ", Type: TypeSimple, Script: script("main.py", "print(1)")})
	require.NoError(t, err)
	assert.NotEmpty(t, j.Id)
	assert.Equal(t, "train", j.Name)
	assert.Equal(t, TypeSimple, j.Type)
	assert.Equal(t, StatusSubmitted, j.Status)
	assert.Equal(t, "main.py", j.ScriptFile)
}

func TestCreate_ValidatesLocally(t *testing.T) {
	backend := fakebackend.New()
	defer backend.Close()
	conn := backend.LoggedIn(t, "alice")

	_, err := Create(conn)(context.Background(), CreateRequest{Name: "", Type: "batch", Script: script("main.sh", "")})
	require.Error(t, err)
	msg := apierrors.Message(err)
	assert.Contains(t, msg, `"name"`)
	assert.Contains(t, msg, `"type"`)
	assert.Contains(t, msg, ".py")
	assert.Equal(t, 0, backend.RequestCount("POST /api/jobs/"))
	assert.Equal(t, 0, backend.RequestCount("POST /api/jobs"))
}

func TestCreate_VulnerableScript(t *testing.T) {
	backend := fakebackend.New()
	defer backend.Close()
	conn := backend.LoggedIn(t, "alice")

	_, err := Create(conn)(context.Background(), CreateRequest{Name: "x", Type: TypeComplex, Script: script("main.py", "import os\nos.system('rm -rf /')")})
	var vulnerable *apierrors.ErrVulnerableScript
	require.ErrorAs(t, err, &vulnerable)
	assert.Contains(t, apierrors.Message(err), "Vulnerable script detected")
}

func TestListAndGet(t *testing.T) {
	backend := fakebackend.New()
	defer backend.Close()
	conn := backend.LoggedIn(t, "alice")
	create := Create(conn)
	first, err := create(context.Background(), CreateRequest{Name: "a", Type: TypeSimple, Script: script("a.py", "")})
	require.NoError(t, err)
	_, err = create(context.Background(), CreateRequest{Name: "b", Type: TypeSimple, Script: script("b.py", "")})
	require.NoError(t, err)
	backend.SetJobStatus(mustAtoi(t, first.Id), string(StatusCompleted))

	all, err := ListJobs(conn)(context.Background(), ListOptions{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all.Jobs, 2)
	assert.Equal(t, 2, all.Total)

	completed, err := ListJobs(conn)(context.Background(), ListOptions{Status: StatusCompleted})
	require.NoError(t, err)
	require.Len(t, completed.Jobs, 1)
	assert.Equal(t, first.Id, completed.Jobs[0].Id)

	_, err = ListJobs(conn)(context.Background(), ListOptions{Status: "done"})
	assert.Error(t, err)

	got, err := Get(conn)(context.Background(), first.Id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)

	_, err = Get(conn)(context.Background(), "999")
	assert.Equal(t, "Job 999 not found", apierrors.Message(err))
}

func TestList_RequiresSession(t *testing.T) {
	backend := fakebackend.New()
	defer backend.Close()
	conn := backend.LoggedIn(t, "alice")
	backend.ExpireSessions()

	_, err := ListJobs(conn)(context.Background(), ListOptions{})
	assert.True(t, apierrors.IsUnauthenticated(err))
}

func TestDownload(t *testing.T) {
	backend := fakebackend.New()
	defer backend.Close()
	conn := backend.LoggedIn(t, "alice")
	j, err := Create(conn)(context.Background(), CreateRequest{Name: "a", Type: TypeSimple, Script: script("a.py", "")})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = Download(conn)(context.Background(), j.Id, &buf)
	assert.Equal(t, "Result not available", apierrors.Message(err))

	backend.SetResult(mustAtoi(t, j.Id), []byte("x,y\n1,2\n"))
	n, err := Download(conn)(context.Background(), j.Id, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(8), n)
	assert.Equal(t, "x,y\n1,2\n", buf.String())
}

func TestPayment(t *testing.T) {
	backend := fakebackend.New()
	defer backend.Close()
	conn := backend.LoggedIn(t, "alice")
	j, err := Create(conn)(context.Background(), CreateRequest{Name: "a", Type: TypeSimple, Script: script("a.py", "")})
	require.NoError(t, err)

	_, err = GetPayment(conn)(context.Background(), j.Id)
	assert.ErrorContains(t, err, "only available for completed jobs")
	_, err = Pay(conn)(context.Background(), j.Id)
	assert.Error(t, err)

	backend.SetJobStatus(mustAtoi(t, j.Id), string(StatusCompleted))
	p, err := GetPayment(conn)(context.Background(), j.Id)
	require.NoError(t, err)
	assert.Equal(t, PaymentPending, p.Status)
	assert.Equal(t, 3.75, p.Amount)
	require.Len(t, p.Tasks, 2)
	assert.Equal(t, int64(268435456), p.Tasks[0].AvgMemoryBytes)
	assert.Nil(t, p.PaymentDate)

	paid, err := Pay(conn)(context.Background(), j.Id)
	require.NoError(t, err)
	assert.Equal(t, PaymentCompleted, paid.Status)
	assert.NotNil(t, paid.PaymentDate)

	_, err = Pay(conn)(context.Background(), j.Id)
	assert.ErrorContains(t, err, "only pending payments can be processed")
}

func mustAtoi(t *testing.T, id client.ID) int {
	t.Helper()
	n := 0
	for _, c := range id.String() {
		require.True(t, c >= '0' && c <= '9', "non numeric id %s", id)
		n = n*10 + int(c-'0')
	}
	return n
}
