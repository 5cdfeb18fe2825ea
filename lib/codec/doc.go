// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR encoding configuration shared by every
// on-disk format in multibox (today, the run journal).
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items.
// Timestamps are written as RFC 3339 text with nanosecond precision so
// that journal entries sort and compare exactly.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// # Struct Tag Rules
//
// A `cbor` tag marks a type that is only ever written as CBOR. A
// `json` tag marks a type that may also appear in JSON (CLI output,
// config files); fxamacker/cbor reads `json` tags when `cbor` tags are
// absent, so one tag controls both. Never put both on the same field.
package codec
