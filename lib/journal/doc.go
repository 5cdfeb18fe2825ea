// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package journal is an append-only record of what each bot did during
// a run: state transitions, dispatched clicks, and tick errors.
//
// A journal file is a sequence of frames. Each frame is
//
//	tag        1 byte   compression algorithm ([Compression])
//	raw        uvarint  length of the encoded record
//	stored     uvarint  length of the bytes that follow
//	payload    stored bytes
//
// The payload is one CBOR-encoded [Record] (see lib/codec), compressed
// with the algorithm named by tag. A record that does not shrink under
// compression is stored with [CompressionNone], so a journal opened
// with lz4 or zstd can still contain uncompressed frames. Frames are
// self-delimiting: a reader needs no index, and a run that is killed
// mid-write leaves at most one truncated frame at the end, which
// [Reader.Next] reports as io.ErrUnexpectedEOF.
package journal
