package group

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distcompute/dcctl/internal/common/apierrors"
	"github.com/distcompute/dcctl/internal/testutil/fakebackend"
	"github.com/distcompute/dcctl/pkg/client"
	"github.com/distcompute/dcctl/pkg/client/job"
	"github.com/distcompute/dcctl/pkg/client/upload"
)

func TestCreateGetList(t *testing.T) {
	backend := fakebackend.New()
	defer backend.Close()
	conn := backend.LoggedIn(t, "alice")

	created, err := Create(conn)(context.Background(), CreateRequest{
		Name:           "sweep",
		NumOfJobs:      3,
		PythonFile:     upload.NewFile("main.py", "", []byte("print(1)")),
		AggregatorFile: upload.NewFile("agg.py", "", []byte("print(2)")),
	})
	require.NoError(t, err)
	assert.Equal(t, "sweep", created.Name)
	assert.Equal(t, 3, created.NumOfJobs)
	assert.Equal(t, "main.py", created.PythonFileName)
	assert.Equal(t, "agg.py", created.AggregatorFileName)
	assert.Len(t, created.MemberIds(), 3)

	got, err := Get(conn)(context.Background(), created.Id)
	require.NoError(t, err)
	assert.Equal(t, created.MemberIds(), got.MemberIds())

	groups, err := ListGroups(conn)(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, created.Id, groups[0].Id)

	_, err = Get(conn)(context.Background(), "404")
	assert.Equal(t, "Group not found", apierrors.Message(err))
}

func TestCreate_Validation(t *testing.T) {
	tests := map[string]CreateRequest{
		"no name":        {NumOfJobs: 1, PythonFile: upload.NewFile("main.py", "", nil)},
		"no jobs":        {Name: "g", PythonFile: upload.NewFile("main.py", "", nil)},
		"no script":      {Name: "g", NumOfJobs: 1},
		"bad script":     {Name: "g", NumOfJobs: 1, PythonFile: upload.NewFile("main.rb", "", nil)},
		"bad aggregator": {Name: "g", NumOfJobs: 1, PythonFile: upload.NewFile("main.py", "", nil), AggregatorFile: upload.NewFile("agg.txt", "", nil)},
	}
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			var invalid *apierrors.ErrInvalidArgument
			assert.ErrorAs(t, req.Validate(), &invalid)
		})
	}
}

func TestLoadManifest(t *testing.T) {
	m, err := LoadManifest(filepath.Join("testdata", "group.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "sweep", m.GroupName)
	assert.Equal(t, filepath.Join("testdata", "main.py"), m.PythonFile)
	assert.Equal(t, filepath.Join("testdata", "aggregate.py"), m.AggregatorFile)
	require.Len(t, m.Jobs, 2)
	assert.Equal(t, filepath.Join("testdata", "inputs", "job-1.zip"), m.Jobs[0].Archive)
	assert.Equal(t, int64(512*1024*1024), m.Jobs[0].RequiredRam.Value())
	assert.Equal(t, "/data/job-2.zip", m.Jobs[1].Archive)
	assert.True(t, m.Jobs[1].RequiredRam.IsZero())
}

func TestLoadManifest_Invalid(t *testing.T) {
	_, err := LoadManifest(filepath.Join("testdata", "bad-archive.yaml"))
	assert.ErrorContains(t, err, ".zip")

	_, err = LoadManifest(filepath.Join("testdata", "missing.yaml"))
	assert.Error(t, err)
}
func TestGroup_MemberIdsFromJobs(t *testing.T) {
	g := Group{Jobs: []job.Job{{Id: "4"}, {Id: "5"}}}
	assert.Equal(t, []client.ID{"4", "5"}, g.MemberIds())
}
