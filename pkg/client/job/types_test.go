package job

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distcompute/dcctl/pkg/client"
)

func TestJob_UnmarshalJSON(t *testing.T) {
	tests := map[string]string{
		"long names":  `{"job_id": 4, "job_name": "train", "job_type": "simple", "status": "running", "script_file_name": "main.py"}`,
		"short names": `{"id": "4", "name": "train", "type": "simple", "status": "running", "script_file": "main.py"}`,
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			var j Job
			require.NoError(t, json.Unmarshal([]byte(input), &j))
			assert.Equal(t, Job{Id: client.ID("4"), Name: "train", Type: TypeSimple, Status: StatusRunning, ScriptFile: "main.py"}, j)
		})
	}
}

func TestList_UnmarshalJSON(t *testing.T) {
	var paged List
	require.NoError(t, json.Unmarshal([]byte(`{"jobs": [{"job_id": 1}], "total": 7, "page": 2}`), &paged))
	assert.Equal(t, 7, paged.Total)
	assert.Equal(t, 2, paged.Page)
	assert.Len(t, paged.Jobs, 1)

	var bare List
	require.NoError(t, json.Unmarshal([]byte(`[{"job_id": 1}, {"job_id": 2}]`), &bare))
	assert.Equal(t, 2, bare.Total)
	assert.Len(t, bare.Jobs, 2)
}

func TestStatus(t *testing.T) {
	assert.True(t, StatusPendingSchedule.Valid())
	assert.False(t, Status("queued").Valid())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusRunning.Terminal())
}
