package client

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"strings"
)

// Form is a multipart/form-data body. Fields and files are written in the order they were added.
type Form struct {
	parts []formPart
}

type formPart struct {
	name        string
	value       string
	fileName    string
	contentType string
	content     io.Reader
}

func NewForm() *Form {
	return &Form{}
}

func (f *Form) Field(name, value string) *Form {
	f.parts = append(f.parts, formPart{name: name, value: value})
	return f
}

func (f *Form) IntField(name string, value int64) *Form {
	return f.Field(name, strconv.FormatInt(value, 10))
}

// File adds a file part. An empty contentType is sent as application/octet-stream.
func (f *Form) File(name, fileName, contentType string, content io.Reader) *Form {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	f.parts = append(f.parts, formPart{name: name, fileName: fileName, contentType: contentType, content: content})
	return f
}

// Reader returns the encoded body and its Content-Type. The body is produced while it is read,
// so file contents are never buffered as a whole.
func (f *Form) Reader() (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(f.write(mw))
	}()
	return pr, mw.FormDataContentType()
}

func (f *Form) write(mw *multipart.Writer) error {
	for _, p := range f.parts {
		if p.content == nil {
			if err := mw.WriteField(p.name, p.value); err != nil {
				return err
			}
			continue
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(p.name), escapeQuotes(p.fileName)))
		h.Set("Content-Type", p.contentType)
		w, err := mw.CreatePart(h)
		if err != nil {
			return err
		}
		if _, err := io.Copy(w, p.content); err != nil {
			return err
		}
	}
	return mw.Close()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
