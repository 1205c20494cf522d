// Package transform converts between the raw bytes of a file and the
// editable text of a document.
//
// Three encodings are supported, tried in a fixed order when a file is
// opened:
//
//   - PlainText: the bytes are valid UTF-8 and are edited as is.
//   - StructuredBinary: the bytes are a gzip, zstd or lz4 frame wrapping a
//     CBOR payload. The payload is rendered as YAML for editing and
//     re-encoded (and re-compressed with the same algorithm) on save.
//   - HexDump: anything else. Every byte is shown as two lowercase hex
//     digits, 16 bytes per row. This always succeeds.
//
// The chosen Transform is stored with the document and never changes; it
// decides how WriteTo serializes the text back to bytes.
package transform
