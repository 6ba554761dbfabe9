package tarview

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"net/http"
	"path"
)

// defaultContentType is used for data URLs when no type is known.
const defaultContentType = "application/octet-stream"

// Payload is the extracted content of one entry.
type Payload struct {
	Entry       Entry
	ContentType string // optional media type hint, empty if none
	Data        []byte
}

// Name returns the stored name of the entry.
func (p *Payload) Name() string {
	return p.Entry.Name
}

// Size returns the payload length in bytes.
func (p *Payload) Size() int64 {
	return int64(len(p.Data))
}

// Reader returns a reader over the payload bytes.
func (p *Payload) Reader() io.Reader {
	return bytes.NewReader(p.Data)
}

// DataURL encodes the payload as an RFC 2397 base64 data URL.
func (p *Payload) DataURL() string {
	contentType := p.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
}

// sniffContentType guesses a media type from the name extension, then from
// the content.
func sniffContentType(name string, data []byte) string {
	if ext := path.Ext(name); ext != "" {
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
	}
	return http.DetectContentType(data)
}
