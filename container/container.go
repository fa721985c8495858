// Copyright ©2026 The KPM Core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package container defines the Source/Sink interfaces the core consumes
// and produces (§6) and one concrete, minimal self-describing binary
// implementation: a little-endian magic-tagged header followed by a flat
// directory of named records, mirroring mat.Dense's own
// MarshalBinary/UnmarshalBinary header-and-flat-data layout. The real
// front-end container format (HDF5 in the upstream tool) is an external
// collaborator out of scope (§1); this is a stand-in that round-trips the
// documented groups of §6 for testing and for cmd/kpmrun.
package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
)

// magic identifies the container format; version is the on-disk codec
// version, following mat/io.go's own versioned-header convention.
const (
	magic   uint64 = 0x4b504d5f434f5245 // "KPM_CORE"
	version uint64 = 1
)

// Kind tags a record's payload type so Source/Sink callers can validate
// before decoding.
type Kind uint32

const (
	KindInt Kind = iota
	KindFloat64
	KindFloat64Array
	KindComplex128Array
	KindString
)

var (
	// ErrWrongType is returned when a caller requests a record with a
	// decoder that does not match its stored Kind.
	ErrWrongType = errors.New("container: wrong record type")
	// ErrNotFound is returned when a requested path has no record.
	ErrNotFound = errors.New("container: record not found")
	// ErrBadMagic is returned when a stream does not start with the
	// container's magic header.
	ErrBadMagic = errors.New("container: bad magic header")
)

// record is one named, typed payload in the container.
type record struct {
	Path string
	Kind Kind
	Raw  []byte
}

// Container is an in-memory, read-write self-describing binary container:
// a flat directory of named records addressed by a '/'-separated path
// (e.g. "/Calculation/dos/MU"), matching the group paths of §6.
type Container struct {
	records map[string]record
}

// New returns an empty Container, ready to be populated with PutX calls.
func New() *Container {
	return &Container{records: make(map[string]record)}
}

// PutInt stores an integer scalar at path.
func (c *Container) PutInt(path string, v int) {
	c.records[path] = record{Path: path, Kind: KindInt, Raw: encodeInt(int64(v))}
}

// PutFloat64 stores a float64 scalar at path.
func (c *Container) PutFloat64(path string, v float64) {
	c.records[path] = record{Path: path, Kind: KindFloat64, Raw: encodeFloat64(v)}
}

// PutFloat64Array stores a float64 slice at path.
func (c *Container) PutFloat64Array(path string, v []float64) {
	c.records[path] = record{Path: path, Kind: KindFloat64Array, Raw: encodeFloat64Array(v)}
}

// PutComplex128Array stores a complex128 slice at path, the encoding used
// for moment arrays (§3) and single-shot responses.
func (c *Container) PutComplex128Array(path string, v []complex128) {
	c.records[path] = record{Path: path, Kind: KindComplex128Array, Raw: encodeComplexArray(v)}
}

// PutString stores a string at path.
func (c *Container) PutString(path string, v string) {
	c.records[path] = record{Path: path, Kind: KindString, Raw: []byte(v)}
}

// Has reports whether path has a stored record.
func (c *Container) Has(path string) bool {
	_, ok := c.records[path]
	return ok
}

// Int reads an integer scalar at path.
func (c *Container) Int(path string) (int, error) {
	r, err := c.lookup(path, KindInt)
	if err != nil {
		return 0, err
	}
	return int(decodeInt(r.Raw)), nil
}

// Float64 reads a float64 scalar at path.
func (c *Container) Float64(path string) (float64, error) {
	r, err := c.lookup(path, KindFloat64)
	if err != nil {
		return 0, err
	}
	return decodeFloat64(r.Raw), nil
}

// Float64Array reads a float64 slice at path.
func (c *Container) Float64Array(path string) ([]float64, error) {
	r, err := c.lookup(path, KindFloat64Array)
	if err != nil {
		return nil, err
	}
	return decodeFloat64Array(r.Raw), nil
}

// Complex128Array reads a complex128 slice at path.
func (c *Container) Complex128Array(path string) ([]complex128, error) {
	r, err := c.lookup(path, KindComplex128Array)
	if err != nil {
		return nil, err
	}
	return decodeComplexArray(r.Raw), nil
}

// String reads a string at path.
func (c *Container) String(path string) (string, error) {
	r, err := c.lookup(path, KindString)
	if err != nil {
		return "", err
	}
	return string(r.Raw), nil
}

func (c *Container) lookup(path string, want Kind) (record, error) {
	r, ok := c.records[path]
	if !ok {
		return record{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if r.Kind != want {
		return record{}, fmt.Errorf("%w: %s is kind %d, want %d", ErrWrongType, path, r.Kind, want)
	}
	return r, nil
}

// WriteTo encodes the container to w: an 8-byte magic, an 8-byte version,
// an 8-byte record count, then each record as
// (path-length uint32, path bytes, kind uint32, payload-length uint64, payload bytes).
func (c *Container) WriteTo(w io.Writer) (int64, error) {
	paths := make([]string, 0, len(c.records))
	for p := range c.records {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, magic); err != nil {
		return 0, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, version); err != nil {
		return 0, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint64(len(paths))); err != nil {
		return 0, err
	}
	for _, p := range paths {
		r := c.records[p]
		if err := binary.Write(&buf, binary.LittleEndian, uint32(len(r.Path))); err != nil {
			return 0, err
		}
		buf.WriteString(r.Path)
		if err := binary.Write(&buf, binary.LittleEndian, uint32(r.Kind)); err != nil {
			return 0, err
		}
		if err := binary.Write(&buf, binary.LittleEndian, uint64(len(r.Raw))); err != nil {
			return 0, err
		}
		buf.Write(r.Raw)
	}
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// ReadFrom decodes a container previously written by WriteTo from r,
// replacing c's contents.
func (c *Container) ReadFrom(r io.Reader) (int64, error) {
	br := &byteCounter{r: r}

	var gotMagic, gotVersion, count uint64
	if err := binary.Read(br, binary.LittleEndian, &gotMagic); err != nil {
		return br.n, err
	}
	if gotMagic != magic {
		return br.n, ErrBadMagic
	}
	if err := binary.Read(br, binary.LittleEndian, &gotVersion); err != nil {
		return br.n, err
	}
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return br.n, err
	}

	records := make(map[string]record, count)
	for i := uint64(0); i < count; i++ {
		var pathLen uint32
		if err := binary.Read(br, binary.LittleEndian, &pathLen); err != nil {
			return br.n, err
		}
		pathBytes := make([]byte, pathLen)
		if _, err := io.ReadFull(br, pathBytes); err != nil {
			return br.n, err
		}
		var kind uint32
		if err := binary.Read(br, binary.LittleEndian, &kind); err != nil {
			return br.n, err
		}
		var rawLen uint64
		if err := binary.Read(br, binary.LittleEndian, &rawLen); err != nil {
			return br.n, err
		}
		raw := make([]byte, rawLen)
		if _, err := io.ReadFull(br, raw); err != nil {
			return br.n, err
		}
		path := string(pathBytes)
		records[path] = record{Path: path, Kind: Kind(kind), Raw: raw}
	}
	c.records = records
	return br.n, nil
}

type byteCounter struct {
	r io.Reader
	n int64
}

func (b *byteCounter) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	b.n += int64(n)
	return n, err
}
