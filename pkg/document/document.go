// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package document reads and writes the text that patch sets operate on.
package document

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/text/encoding/unicode"
)

// Stdio is the path that stands for stdin when reading and stdout when writing.
const Stdio = "-"

const defaultMode os.FileMode = 0644

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// 📄 Document is a text file without its byte order mark
type Document struct {
	Path string      // Where it was read from, Stdio for stdin
	Text string      // Content, BOM stripped
	BOM  bool        // Whether the source started with a UTF-8 BOM
	Mode os.FileMode // Permissions of the source file, zero for stdin
}

// 📥 Source supplies the pre-patch document
type Source interface {
	Read(ctx context.Context, path string) (*Document, error)
}

// 📤 Sink persists the post-patch document
type Sink interface {
	Write(ctx context.Context, path string, doc *Document, opts WriteOptions) error
}

// WriteOptions controls how a document is persisted.
type WriteOptions struct {
	Backup bool // Keep the previous file as <path>.bak
}

// 💾 Store implements Source and Sink on the local file system
type Store struct {
	stdin  io.Reader
	stdout io.Writer
}

var (
	_ Source = (*Store)(nil)
	_ Sink   = (*Store)(nil)
)

// 🏭 NewStore creates a Store that uses stdin and stdout for Stdio paths
func NewStore(stdin io.Reader, stdout io.Writer) *Store {
	return &Store{stdin: stdin, stdout: stdout}
}

// Read loads a document from path, or from stdin when path is Stdio.
func (s *Store) Read(ctx context.Context, path string) (*Document, error) {
	zerolog.Ctx(ctx).Debug().Str("path", path).Msg("reading document")

	if path == Stdio {
		data, err := io.ReadAll(s.stdin)
		if err != nil {
			return nil, errors.Errorf("reading stdin: %w", err)
		}
		return decode(Stdio, data, 0)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Errorf("reading document: %w", err)
	}
	if info.IsDir() {
		return nil, errors.Errorf("reading document: %s is a directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading document: %w", err)
	}
	return decode(path, data, info.Mode().Perm())
}

// Write persists doc to path, or to stdout when path is Stdio. File writes go
// through a temporary file and a rename so readers never see a partial file.
func (s *Store) Write(ctx context.Context, path string, doc *Document, opts WriteOptions) error {
	logger := zerolog.Ctx(ctx)

	data, err := encode(doc)
	if err != nil {
		return err
	}

	if path == Stdio {
		if _, err := s.stdout.Write(data); err != nil {
			return errors.Errorf("writing stdout: %w", err)
		}
		return nil
	}

	mode := doc.Mode
	if mode == 0 {
		mode = defaultMode
	}

	existing, err := os.Stat(path)
	switch {
	case err == nil:
		mode = existing.Mode().Perm()
		if opts.Backup {
			if err := copyFile(path, path+".bak", mode); err != nil {
				return errors.Errorf("creating backup: %w", err)
			}
			logger.Debug().Str("path", path+".bak").Msg("backup written")
		}
	case os.IsNotExist(err):
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return errors.Errorf("creating parent directories: %w", err)
		}
	default:
		return errors.Errorf("checking file existence: %w", err)
	}

	if err := writeAtomic(path, data, mode); err != nil {
		return err
	}

	logger.Debug().Str("path", path).Int("bytes", len(data)).Msg("document written")
	return nil
}

func writeAtomic(path string, data []byte, mode os.FileMode) error {
	temp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(data); err != nil {
		temp.Close()
		os.Remove(tempPath)
		return errors.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("closing temp file: %w", err)
	}
	// CreateTemp always uses 0600
	if err := os.Chmod(tempPath, mode); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("setting file mode: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func decode(path string, data []byte, mode os.FileMode) (*Document, error) {
	if !utf8.Valid(data) {
		return nil, errors.Errorf("%s is not valid UTF-8", path)
	}

	text, err := unicode.UTF8BOM.NewDecoder().Bytes(data)
	if err != nil {
		return nil, errors.Errorf("decoding %s: %w", path, err)
	}

	return &Document{
		Path: path,
		Text: string(text),
		BOM:  bytes.HasPrefix(data, utf8BOM),
		Mode: mode,
	}, nil
}

func encode(doc *Document) ([]byte, error) {
	if !doc.BOM {
		return []byte(doc.Text), nil
	}
	data, err := unicode.UTF8BOM.NewEncoder().Bytes([]byte(doc.Text))
	if err != nil {
		return nil, errors.Errorf("encoding document: %w", err)
	}
	return data, nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	source, err := os.Open(src)
	if err != nil {
		return errors.Errorf("opening source file: %w", err)
	}
	defer source.Close()

	destination, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return errors.Errorf("creating destination file: %w", err)
	}
	defer destination.Close()

	if _, err := io.Copy(destination, source); err != nil {
		return errors.Errorf("copying file: %w", err)
	}

	return nil
}
