// {{{ Copyright (c) Paul R. Tagliamonte <paultag@gmail.com> 2020-2021
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE. }}}

package pool

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

const poolFileExt = ".plasmite"

// Registry resolves pool references to file paths under a single
// directory (spec §4.8).
type Registry struct {
	dir string
	log *zap.SugaredLogger
}

// NewRegistry returns a registry rooted at dir. The directory is created
// lazily by Create, not here.
func NewRegistry(dir string) *Registry {
	return &Registry{dir: dir}
}

// WithLogger attaches a logger to every Pool handle the registry opens or
// creates.
func (r *Registry) WithLogger(log *zap.SugaredLogger) *Registry {
	r.log = log
	return r
}

// Resolve maps a reference of the form "name:X" or "path:P" to a file
// path. Any other scheme (e.g. a remote URI) is rejected: those are a
// transport concern outside the engine (spec §4.8).
func (r *Registry) Resolve(ref string) (string, error) {
	switch {
	case strings.HasPrefix(ref, "name:"):
		name := strings.TrimPrefix(ref, "name:")
		if name == "" || strings.ContainsAny(name, "/\\") {
			return "", usagef("invalid pool name %q", name)
		}
		return filepath.Join(r.dir, name+poolFileExt), nil
	case strings.HasPrefix(ref, "path:"):
		return strings.TrimPrefix(ref, "path:"), nil
	default:
		return "", usagef("unrecognized pool reference %q (want name:X or path:P)", ref)
	}
}

// Create creates a brand-new pool file and returns it opened.
func (r *Registry) Create(ref string, opts CreateOptions) (*Pool, error) {
	path, err := r.Resolve(ref)
	if err != nil {
		return nil, err
	}
	return createPool(path, opts, r.log)
}

// Open opens an existing pool file.
func (r *Registry) Open(ref string) (*Pool, error) {
	path, err := r.Resolve(ref)
	if err != nil {
		return nil, err
	}
	return openPool(path, r.log)
}

// List enumerates pool names (without the .plasmite suffix) under the
// registry directory.
func (r *Registry) List() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, ioErrf(r.dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), poolFileExt) {
			names = append(names, strings.TrimSuffix(e.Name(), poolFileExt))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a pool file. Fails with Busy if a process holds the
// writer lock.
func (r *Registry) Delete(ref string) error {
	path, err := r.Resolve(ref)
	if err != nil {
		return err
	}
	return deletePool(path)
}

func createPool(path string, opts CreateOptions, log *zap.SugaredLogger) (*Pool, error) {
	if opts.SizeBytes == 0 {
		return nil, usagef("size_bytes is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, ioErrf(path, err)
	}

	indexCapacity := opts.resolveIndexCapacity(0)
	ringSize, err := validateCreateSize(opts.SizeBytes, indexCapacity)
	if err != nil {
		return nil, err
	}
	// Re-resolve index capacity now that we know the real ring size, in
	// case auto-sizing depends on it (ExplicitNoIndex/explicit values are
	// unaffected by this second pass).
	indexCapacity = opts.resolveIndexCapacity(ringSize)
	ringSize, err = validateCreateSize(opts.SizeBytes, indexCapacity)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, alreadyExists(path)
		}
		if errors.Is(err, os.ErrPermission) {
			return nil, permissionErr(path, err)
		}
		return nil, ioErrf(path, err)
	}

	ok := false
	defer func() {
		if !ok {
			f.Close()
			os.Remove(path)
		}
	}()

	if err := f.Truncate(int64(opts.SizeBytes)); err != nil {
		return nil, ioErrf(path, err)
	}

	h := &header{
		fileSize:      opts.SizeBytes,
		ringOffset:    headerPageSize + indexCapacity*indexSlotSize,
		ringSize:      ringSize,
		indexOffset:   headerPageSize,
		indexCapacity: indexCapacity,
	}
	if _, err := f.WriteAt(encodeHeader(h), 0); err != nil {
		return nil, ioErrf(path, err)
	}
	if indexCapacity > 0 {
		zeros := make([]byte, indexCapacity*indexSlotSize)
		if _, err := f.WriteAt(zeros, int64(headerPageSize)); err != nil {
			return nil, ioErrf(path, err)
		}
	}
	if err := f.Sync(); err != nil {
		return nil, ioErrf(path, err)
	}

	p, err := attach(f, path, h, log)
	if err != nil {
		return nil, err
	}
	ok = true
	return p, nil
}

func openPool(path string, log *zap.SugaredLogger) (*Pool, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &Error{Code: CodeNotFound, Path: path}
		}
		if errors.Is(err, os.ErrPermission) {
			return nil, permissionErr(path, err)
		}
		return nil, ioErrf(path, err)
	}

	ok := false
	defer func() {
		if !ok {
			f.Close()
		}
	}()

	hdrBuf := make([]byte, headerPageSize)
	if _, err := f.ReadAt(hdrBuf, 0); err != nil {
		return nil, ioErrf(path, err)
	}
	h, err := decodeHeader(hdrBuf)
	if err != nil {
		// Retry once in case of a torn read (spec §4.8 Open).
		if _, err2 := f.ReadAt(hdrBuf, 0); err2 == nil {
			if h2, err3 := decodeHeader(hdrBuf); err3 == nil {
				h = h2
				err = nil
			}
		}
		if err != nil {
			if perr, ok := err.(*Error); ok {
				perr.Path = path
				return nil, perr
			}
			return nil, corruptErr(path, 0, err)
		}
	}

	p, err := attach(f, path, h, log)
	if err != nil {
		return nil, err
	}
	ok = true
	return p, nil
}

func attach(f *os.File, path string, h *header, log *zap.SugaredLogger) (*Pool, error) {
	data, err := mapFile(f, h.fileSize)
	if err != nil {
		return nil, ioErrf(path, err)
	}

	lk := flock.New(path)

	return &Pool{
		path:          path,
		file:          f,
		data:          data,
		fileSize:      h.fileSize,
		ringOffset:    h.ringOffset,
		ringSize:      h.ringSize,
		indexOffset:   h.indexOffset,
		indexCapacity: h.indexCapacity,
		lock:          lk,
		log:           log,
	}, nil
}

func deletePool(path string) error {
	lk := flock.New(path)
	locked, err := lk.TryLock()
	if err != nil {
		return ioErrf(path, err)
	}
	if !locked {
		return busy(path)
	}
	defer lk.Unlock()

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Error{Code: CodeNotFound, Path: path}
		}
		return ioErrf(path, err)
	}
	return nil
}

// vim: foldmethod=marker
