package bpstring

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
)

// Prefix is the first character of every envelope.
const Prefix = '0'

// Scheme selects the compression framing after the version byte.
type Scheme int

// Envelope schemes. Every scheme the encoder has emitted stays decodable.
const (
	// SchemeGame is the game-native layout: the body is a zlib stream and the
	// version byte is the first byte of its header (0x78).
	SchemeGame Scheme = iota

	// SchemeZlib is format 1 with a zlib payload after version byte 0x01.
	SchemeZlib

	// SchemeDeflate is format 1 with a raw DEFLATE payload after version byte 0x02.
	SchemeDeflate
)

// Version bytes.
const (
	VersionGame    byte = 0x78
	VersionZlib    byte = 0x01
	VersionDeflate byte = 0x02
)

var schemeNames = map[Scheme]string{
	SchemeGame:    "game",
	SchemeZlib:    "zlib",
	SchemeDeflate: "deflate",
}

func (s Scheme) String() string {
	if name, ok := schemeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("scheme(%d)", int(s))
}

// VersionByte returns the byte identifying s in an envelope body.
func (s Scheme) VersionByte() byte {
	switch s {
	case SchemeZlib:
		return VersionZlib
	case SchemeDeflate:
		return VersionDeflate
	default:
		return VersionGame
	}
}

// ParseScheme parses a scheme name as used in configuration files.
func ParseScheme(name string) (Scheme, error) {
	for s, n := range schemeNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown scheme %q (want game, zlib or deflate)", name)
}

func schemeOf(version byte) (Scheme, bool) {
	switch version {
	case VersionGame:
		return SchemeGame, true
	case VersionZlib:
		return SchemeZlib, true
	case VersionDeflate:
		return SchemeDeflate, true
	}
	return 0, false
}

// Compressor returns a writer compressing into w with the given scheme and level.
type Compressor func(s Scheme, w io.Writer, level int) (io.WriteCloser, error)

// DefaultCompressor compresses with klauspost/compress.
func DefaultCompressor(s Scheme, w io.Writer, level int) (io.WriteCloser, error) {
	if s == SchemeDeflate {
		return flate.NewWriter(w, level)
	}
	return zlib.NewWriterLevel(w, level)
}

// compress frames payload for scheme s.
func compress(c Compressor, s Scheme, level int, payload []byte) ([]byte, error) {
	if c == nil {
		return nil, ErrCompressorUnavailable
	}
	var buf bytes.Buffer
	if s != SchemeGame {
		buf.WriteByte(s.VersionByte())
	}
	w, err := c(s, &buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(payload); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	body := buf.Bytes()
	if s == SchemeGame && (len(body) == 0 || body[0] != VersionGame) {
		return nil, fmt.Errorf("compressor produced no zlib header")
	}
	return body, nil
}

var errPayloadTooLarge = errors.New("decompressed payload too large")

// decompress inflates an envelope body. limit bounds the inflated size.
func decompress(s Scheme, body []byte, limit int64) ([]byte, error) {
	var (
		r   io.ReadCloser
		err error
	)
	switch s {
	case SchemeGame:
		r, err = zlib.NewReader(bytes.NewReader(body))
	case SchemeZlib:
		r, err = zlib.NewReader(bytes.NewReader(body[1:]))
	case SchemeDeflate:
		r = flate.NewReader(bytes.NewReader(body[1:]))
	default:
		return nil, fmt.Errorf("unknown scheme %s", s)
	}
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (limit %d bytes)", errPayloadTooLarge, limit)
	}
	return data, nil
}

// encodeBody renders the text form of an envelope body.
func encodeBody(body []byte) string {
	return string(Prefix) + base64.StdEncoding.EncodeToString(body)
}

// decodeBase64 accepts the standard and URL-safe alphabets, padded or not.
func decodeBase64(s string) ([]byte, error) {
	enc := base64.StdEncoding
	if strings.ContainsAny(s, "-_") {
		enc = base64.URLEncoding
	}
	if !strings.HasSuffix(s, "=") && len(s)%4 != 0 {
		enc = enc.WithPadding(base64.NoPadding)
	}
	return enc.DecodeString(s)
}

// stripSpace removes whitespace, which chat clients insert when wrapping.
func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// inAlphabet reports whether c can appear in an envelope.
func inAlphabet(c byte) bool {
	return 'A' <= c && c <= 'Z' || 'a' <= c && c <= 'z' || '0' <= c && c <= '9' ||
		c == '+' || c == '/' || c == '=' || c == '-' || c == '_'
}
