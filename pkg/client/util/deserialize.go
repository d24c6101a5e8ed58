package util

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/yaml"
)

// decodeBufferSize is how far the decoder looks ahead to tell JSON from YAML.
const decodeBufferSize = 4096

// DecodeManifestFile decodes the single JSON or YAML document in the file at filePath into obj.
func DecodeManifestFile(filePath string, obj interface{}) error {
	f, err := os.Open(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed opening manifest %s", filePath)
	}
	defer f.Close()
	return DecodeManifest(f, filePath, obj)
}

// DecodeManifest decodes exactly one JSON or YAML document from r into obj, using obj's json
// tags in both formats. name identifies the source in errors. Empty input and trailing
// documents are rejected.
func DecodeManifest(r io.Reader, name string, obj interface{}) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrapf(err, "failed reading manifest %s", name)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return errors.Errorf("manifest %s is empty", name)
	}

	decoder := yaml.NewYAMLOrJSONDecoder(bytes.NewReader(data), decodeBufferSize)
	if err := decoder.Decode(obj); err != nil {
		return errors.Wrapf(err, "failed to parse manifest %s", name)
	}

	var extra interface{}
	switch err := decoder.Decode(&extra); {
	case err == io.EOF:
		return nil
	case err != nil:
		return errors.Wrapf(err, "failed to parse manifest %s", name)
	case extra != nil:
		return errors.Errorf("manifest %s holds more than one document", name)
	}
	return nil
}
