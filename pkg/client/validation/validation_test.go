package validation

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateExtension(t *testing.T) {
	tests := map[string]struct {
		check   func(string) error
		file    string
		wantErr bool
	}{
		"python script":     {ValidateScript, "main.py", false},
		"upper case script": {ValidateScript, "MAIN.PY", false},
		"shell script":      {ValidateScript, "main.sh", true},
		"csv data":          {ValidateJobData, "data.csv", false},
		"json data":         {ValidateJobData, "data.json", true},
		"zip archive":       {ValidateJobArchive, "job.zip", false},
		"tarball":           {ValidateJobArchive, "job.tar.gz", true},
		"no extension":      {ValidateJobArchive, "job", true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			err := tc.check(tc.file)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateManifestFile(t *testing.T) {
	tests := map[string]bool{
		"valid.yaml":     true,
		"no-jobs.yaml":   false,
		"no-script.yaml": false,
		"missing.yaml":   false,
	}
	for file, want := range tests {
		t.Run(file, func(t *testing.T) {
			ok, err := ValidateManifestFile(filepath.Join("testdata", file))
			assert.Equal(t, want, ok)
			if want {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
