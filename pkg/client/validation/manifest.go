package validation

import (
	"github.com/pkg/errors"

	"github.com/distcompute/dcctl/pkg/client/util"
)

type rawGroupManifest struct {
	PythonFile string        `json:"pythonFile"`
	Jobs       []rawGroupJob `json:"jobs"`
}

type rawGroupJob struct {
	Archive string `json:"archive"`
}

// ValidateManifestFile checks that the file at filePath parses as a group manifest with a
// script and at least one job.
func ValidateManifestFile(filePath string) (bool, error) {
	manifest := &rawGroupManifest{}
	err := util.DecodeManifestFile(filePath, manifest)
	if err != nil {
		return false, err
	}

	if manifest.PythonFile == "" {
		return false, errors.Errorf("%s: pythonFile must be set", filePath)
	}
	if len(manifest.Jobs) <= 0 {
		return false, errors.Errorf("%s: you have provided no jobs to submit", filePath)
	}
	for i, job := range manifest.Jobs {
		if job.Archive == "" {
			return false, errors.Errorf("%s: jobs[%d].archive must be set", filePath, i)
		}
	}

	return true, nil
}
