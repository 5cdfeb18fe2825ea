// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"sync"
	"time"

	"github.com/bureau-foundation/multibox/lib/codec"
	"github.com/bureau-foundation/multibox/lib/vision"
)

// Kind classifies a journal record.
type Kind string

const (
	KindTransition Kind = "transition"
	KindClick      Kind = "click"
	KindError      Kind = "error"
)

// Record is one journal entry. Which optional fields are set depends
// on Kind: transitions carry From and To, clicks carry Class, Rect and
// Point, errors carry Message.
type Record struct {
	Time time.Time `cbor:"time"`
	Bot  string    `cbor:"bot"`
	Kind Kind      `cbor:"kind"`

	From string `cbor:"from,omitempty"`
	To   string `cbor:"to,omitempty"`

	Class string `cbor:"class,omitempty"`
	// Rect is the detected element in frame-local coordinates.
	Rect *vision.Rect `cbor:"rect,omitempty"`
	// Point is the absolute screen coordinate that was clicked.
	Point *image.Point `cbor:"point,omitempty"`

	Message string `cbor:"message,omitempty"`
}

// maxFrameSize bounds the lengths a reader will accept, so a corrupt
// length prefix cannot trigger a huge allocation.
const maxFrameSize = 1 << 20

// Writer appends records to a journal file. It is safe for concurrent
// use.
type Writer struct {
	mu          sync.Mutex
	file        *os.File
	compression Compression
	buffer      []byte
}

// Open opens path for appending, creating it if needed.
func Open(path string, compression Compression) (*Writer, error) {
	if compression > CompressionZstd {
		return nil, fmt.Errorf("unsupported compression %v", compression)
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	return &Writer{file: file, compression: compression}, nil
}

// Record encodes and appends one record. Each record is written with a
// single write call, so concurrent readers never observe a partial
// frame except after a crash.
func (w *Writer) Record(record Record) error {
	encoded, err := codec.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding journal record: %w", err)
	}
	stored, tag, err := compress(encoded, w.compression)
	if err != nil {
		return fmt.Errorf("compressing journal record: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return errors.New("journal is closed")
	}
	w.buffer = appendFrame(w.buffer[:0], tag, len(encoded), stored)
	if _, err := w.file.Write(w.buffer); err != nil {
		return fmt.Errorf("writing journal record: %w", err)
	}
	return nil
}

// Close syncs and closes the file. Further calls to Record fail.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	file := w.file
	w.file = nil
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("syncing journal: %w", err)
	}
	return file.Close()
}

func appendFrame(buffer []byte, tag Compression, rawSize int, stored []byte) []byte {
	buffer = append(buffer, byte(tag))
	buffer = binary.AppendUvarint(buffer, uint64(rawSize))
	buffer = binary.AppendUvarint(buffer, uint64(len(stored)))
	return append(buffer, stored...)
}

// Reader reads records from a journal.
type Reader struct {
	source *bufio.Reader
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{source: bufio.NewReader(r)}
}

// Next returns the next record. It returns io.EOF after the last
// complete frame and io.ErrUnexpectedEOF if the journal ends inside a
// frame.
func (r *Reader) Next() (Record, error) {
	tagByte, err := r.source.ReadByte()
	if err != nil {
		return Record{}, err
	}
	tag := Compression(tagByte)

	rawSize, err := r.readLength()
	if err != nil {
		return Record{}, err
	}
	storedSize, err := r.readLength()
	if err != nil {
		return Record{}, err
	}

	stored := make([]byte, storedSize)
	if _, err := io.ReadFull(r.source, stored); err != nil {
		return Record{}, unexpected(err)
	}
	encoded, err := decompress(stored, tag, rawSize)
	if err != nil {
		return Record{}, err
	}

	var record Record
	if err := codec.Unmarshal(encoded, &record); err != nil {
		return Record{}, &DecodeError{Payload: encoded, Err: err}
	}
	return record, nil
}

// DecodeError reports a frame whose payload is not a valid record. The
// frame has been consumed, so the next call to [Reader.Next] continues
// with the following frame.
type DecodeError struct {
	// Payload is the decompressed CBOR payload.
	Payload []byte
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding journal record: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (r *Reader) readLength() (int, error) {
	length, err := binary.ReadUvarint(r.source)
	if err != nil {
		return 0, unexpected(err)
	}
	if length > maxFrameSize {
		return 0, fmt.Errorf("journal frame length %d exceeds limit %d", length, maxFrameSize)
	}
	return int(length), nil
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
