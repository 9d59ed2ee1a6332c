package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/source"
)

// emitter stores artifacts under slash-separated relative paths.
type emitter interface {
	text(rel string, fn func(w io.Writer) error) error
	parquet(rel string, fn func(pf source.ParquetFile) error) error
	json(rel string, v any) error
}

// diskEmitter writes artifacts below root, creating subdirectories as needed.
type diskEmitter struct {
	root string
}

func (d diskEmitter) path(rel string) (string, error) {
	p := filepath.Join(d.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	return p, nil
}

func (d diskEmitter) text(rel string, fn func(w io.Writer) error) error {
	p, err := d.path(rel)
	if err != nil {
		return err
	}
	f, err := os.Create(p)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (d diskEmitter) parquet(rel string, fn func(pf source.ParquetFile) error) error {
	p, err := d.path(rel)
	if err != nil {
		return err
	}
	fw, err := local.NewLocalFileWriter(p)
	if err != nil {
		return err
	}
	if err := fn(fw); err != nil {
		_ = fw.Close()
		return err
	}
	return fw.Close()
}

func (d diskEmitter) json(rel string, v any) error {
	return d.text(rel, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

// memEmitter keeps artifacts in memory for RunBytes.
type memEmitter struct {
	files map[string][]byte
}

func (m memEmitter) text(rel string, fn func(w io.Writer) error) error {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		return err
	}
	m.files[rel] = buf.Bytes()
	return nil
}

func (m memEmitter) parquet(rel string, fn func(pf source.ParquetFile) error) error {
	fw := parquetbuffer.NewBufferFile()
	if err := fn(fw); err != nil {
		return err
	}
	if err := fw.Close(); err != nil {
		return err
	}
	m.files[rel] = append([]byte(nil), fw.Bytes()...)
	return nil
}

func (m memEmitter) json(rel string, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	m.files[rel] = append(out, '\n')
	return nil
}
