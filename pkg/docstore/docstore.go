// Package docstore reads and writes frame documents as JSON or YAML files and
// watches them for changes.
package docstore

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/chazu/frametree/pkg/frames"
)

// Format selects a document encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	}
	return "unknown"
}

// ParseFormat accepts "json", "yaml" or "yml".
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return 0, errors.Errorf("unknown document format %q", name)
}

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return 0, errors.Errorf("%s: no file extension to pick a format from", path)
	}
	return ParseFormat(ext)
}

// Encode writes doc to w.
func Encode(w io.Writer, doc *frames.Document, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(doc), "encode json document")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return errors.Wrap(err, "encode yaml document")
		}
		return errors.Wrap(enc.Close(), "encode yaml document")
	}
	return errors.Errorf("encode: unknown format %d", int(f))
}

// Decode reads one document from r.
func Decode(r io.Reader, f Format) (*frames.Document, error) {
	var doc frames.Document
	switch f {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decode json document")
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decode yaml document")
		}
	default:
		return nil, errors.Errorf("decode: unknown format %d", int(f))
	}
	return &doc, nil
}

// Marshal encodes doc into a byte slice.
func Marshal(doc *frames.Document, f Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, doc, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a document from data.
func Unmarshal(data []byte, f Format) (*frames.Document, error) {
	return Decode(bytes.NewReader(data), f)
}

// Load reads the document at path, choosing the format by extension.
func Load(path string) (*frames.Document, error) {
	f, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer file.Close()

	doc, err := Decode(file, f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return doc, nil
}

// Save writes doc to path, choosing the format by extension. The file is
// written beside the target and renamed into place, so readers never see a
// partial document.
func Save(path string, doc *frames.Document) error {
	f, err := FormatFor(path)
	if err != nil {
		return err
	}
	data, err := Marshal(doc, f)
	if err != nil {
		return errors.Wrapf(err, "save %s", path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrapf(err, "save %s", path)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "write %s", tmp.Name())
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "sync %s", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", tmp.Name())
	}
	return errors.Wrapf(os.Rename(tmp.Name(), path), "rename into %s", path)
}
