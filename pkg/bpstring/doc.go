// Package bpstring converts blueprints and books to and from blueprint
// strings, the compact text envelopes the game exchanges through the
// clipboard.
//
// # Envelope
//
// An envelope is a '0' prefix followed by base64 text. The decoded body starts
// with a version byte selecting the compression framing:
//
//	0x78  zlib stream, the byte is the zlib header (game-native strings)
//	0x01  zlib payload after the version byte
//	0x02  raw DEFLATE payload after the version byte
//
// The payload inflates to a JSON [Document]. Unknown version bytes are
// rejected rather than guessed at.
//
// # Decoding
//
// Decoding walks RawString, AlphabetDecoded, VersionParsed, Decompressed,
// DocumentParsed and ModelBuilt. A failure at any step returns a
// [*DecodeError] naming the last stage reached and one of four kinds
// ([BadAlphabet], [BadVersionByte], [DecompressionFailed], [SchemaMismatch]).
// The model is built only after the document validates, so no partial model
// is ever returned.
//
// Fields the model does not interpret (control behaviour, snap-to-grid,
// copper wires) are carried in Extra maps and written back on encode.
//
// # Codecs
//
// [Async] and [Sync] implement [Codec] over one pipeline and produce identical
// strings. Async honours context cancellation and builds book entries
// concurrently. Sync runs on the caller's goroutine and reports failures as
// a [Result] holding an [*EncodeError]; it never panics:
//
//	res := bpstring.NewSync().EncodeSync(bp)
//	if !res.OK() {
//	    return res.Err
//	}
//	clipboard.Write(res.Value)
//
// [Find] extracts an envelope from surrounding text, trying candidate runs
// longest first and declining quietly when none decodes.
package bpstring
