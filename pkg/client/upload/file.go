package upload

import (
	"bytes"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// File is the source of an upload. Content is read at offsets, so chunks can be sliced
// without loading the whole file.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Content     io.ReaderAt

	closer io.Closer
}

// OpenFile opens the file at path for uploading. The caller must Close it.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.WithStack(err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, errors.Errorf("%s is a directory", path)
	}
	name := filepath.Base(path)
	return &File{
		Name:        name,
		Size:        info.Size(),
		ContentType: ContentTypeOf(name),
		Content:     f,
		closer:      f,
	}, nil
}

// NewFile wraps in-memory content.
func NewFile(name, contentType string, content []byte) *File {
	if contentType == "" {
		contentType = ContentTypeOf(name)
	}
	return &File{
		Name:        name,
		Size:        int64(len(content)),
		ContentType: contentType,
		Content:     bytes.NewReader(content),
	}
}

func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

var knownContentTypes = map[string]string{
	".csv": "text/csv",
	".zip": "application/zip",
	".py":  "text/x-python",
}

// ContentTypeOf guesses the content type from the file extension.
func ContentTypeOf(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := knownContentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
