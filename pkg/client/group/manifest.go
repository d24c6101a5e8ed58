package group

import (
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/distcompute/dcctl/internal/common/apierrors"
	"github.com/distcompute/dcctl/pkg/client/util"
	"github.com/distcompute/dcctl/pkg/client/validation"
)

// Manifest describes a whole group submission: the scripts and one archive per job.
// Relative paths are resolved against the manifest's directory.
type Manifest struct {
	GroupName      string        `json:"groupName"`
	PythonFile     string        `json:"pythonFile"`
	AggregatorFile string        `json:"aggregatorFile,omitempty"`
	Jobs           []ManifestJob `json:"jobs"`
}

type ManifestJob struct {
	Archive     string            `json:"archive"`
	RequiredRam resource.Quantity `json:"requiredRam"`
}

// LoadManifest reads, validates and resolves the manifest at filePath.
func LoadManifest(filePath string) (*Manifest, error) {
	if ok, err := validation.ValidateManifestFile(filePath); !ok {
		return nil, err
	}
	m := &Manifest{}
	if err := util.DecodeManifestFile(filePath, m); err != nil {
		return nil, err
	}
	dir := filepath.Dir(filePath)
	m.PythonFile = resolve(dir, m.PythonFile)
	m.AggregatorFile = resolve(dir, m.AggregatorFile)
	for i := range m.Jobs {
		m.Jobs[i].Archive = resolve(dir, m.Jobs[i].Archive)
	}
	if err := m.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "invalid manifest %s", filePath)
	}
	return m, nil
}

func (m *Manifest) Validate() error {
	var errs *multierror.Error
	if m.GroupName == "" {
		errs = multierror.Append(errs, &apierrors.ErrInvalidArgument{Name: "groupName", Value: "", Message: "must not be empty"})
	}
	if err := validation.ValidateScript(m.PythonFile); err != nil {
		errs = multierror.Append(errs, err)
	}
	if m.AggregatorFile != "" {
		if err := validation.ValidateExtension("aggregatorFile", m.AggregatorFile, validation.ExtPython); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	for _, j := range m.Jobs {
		if err := validation.ValidateJobArchive(j.Archive); err != nil {
			errs = multierror.Append(errs, err)
		}
		if j.RequiredRam.Sign() < 0 {
			errs = multierror.Append(errs, &apierrors.ErrInvalidArgument{Name: "requiredRam", Value: j.RequiredRam.String(), Message: "must not be negative"})
		}
	}
	return errs.ErrorOrNil()
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
