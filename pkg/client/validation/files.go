// Package validation holds local checks run before anything is sent to the backend.
package validation

import (
	"path/filepath"
	"strings"

	"github.com/distcompute/dcctl/internal/common/apierrors"
)

const (
	ExtPython  = ".py"
	ExtCSV     = ".csv"
	ExtArchive = ".zip"
)

// ValidateExtension checks that fileName ends in one of allowed, ignoring case.
func ValidateExtension(field, fileName string, allowed ...string) error {
	ext := strings.ToLower(filepath.Ext(fileName))
	for _, a := range allowed {
		if ext == a {
			return nil
		}
	}
	return &apierrors.ErrInvalidArgument{
		Name:    field,
		Value:   fileName,
		Message: "file must have extension " + strings.Join(allowed, " or "),
	}
}

// ValidateScript checks a job or group script.
func ValidateScript(fileName string) error {
	return ValidateExtension("script", fileName, ExtPython)
}

// ValidateJobData checks the input data of a single job.
func ValidateJobData(fileName string) error {
	return ValidateExtension("data", fileName, ExtCSV)
}

// ValidateJobArchive checks the zipped inputs of a job in a group.
func ValidateJobArchive(fileName string) error {
	return ValidateExtension("archive", fileName, ExtArchive)
}
