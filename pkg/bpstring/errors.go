package bpstring

import (
	"errors"
	"fmt"

	bperrors "github.com/matzehuels/bpedit/pkg/errors"
)

// Stage is a step of the decode pipeline. A DecodeError reports the stage
// that could not be reversed.
type Stage int

// Decode stages, in pipeline order.
const (
	StageRawString Stage = iota
	StageAlphabetDecoded
	StageVersionParsed
	StageDecompressed
	StageDocumentParsed
	StageModelBuilt
)

var stageNames = [...]string{
	"raw string", "alphabet decoded", "version parsed",
	"decompressed", "document parsed", "model built",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// ErrorKind classifies decode failures.
type ErrorKind int

// Decode error kinds.
const (
	BadAlphabet ErrorKind = iota + 1
	BadVersionByte
	DecompressionFailed
	SchemaMismatch
)

func (k ErrorKind) String() string {
	switch k {
	case BadAlphabet:
		return "bad alphabet"
	case BadVersionByte:
		return "bad version byte"
	case DecompressionFailed:
		return "decompression failed"
	case SchemaMismatch:
		return "schema mismatch"
	default:
		return "unknown"
	}
}

// DecodeError is returned by every decode failure.
type DecodeError struct {
	Stage Stage     // Last stage reached before the failure
	Kind  ErrorKind // Failure class
	Err   error     // Underlying cause
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode blueprint string: %s after %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Code maps the kind onto the structured error code.
func (e *DecodeError) Code() bperrors.Code {
	switch e.Kind {
	case BadAlphabet:
		return bperrors.ErrCodeBadAlphabet
	case BadVersionByte:
		return bperrors.ErrCodeBadVersionByte
	case DecompressionFailed:
		return bperrors.ErrCodeDecompressionFailed
	case SchemaMismatch:
		return bperrors.ErrCodeSchemaMismatch
	default:
		return bperrors.ErrCodeInternal
	}
}

func decodeErr(stage Stage, kind ErrorKind, err error) *DecodeError {
	return &DecodeError{Stage: stage, Kind: kind, Err: err}
}

// IsKind reports whether err is a DecodeError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var de *DecodeError
	return errors.As(err, &de) && de.Kind == kind
}

// EncodeError is returned by the synchronous encoder.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string { return "encode blueprint string: " + e.Err.Error() }

func (e *EncodeError) Unwrap() error { return e.Err }

func (e *EncodeError) Code() bperrors.Code { return bperrors.ErrCodeEncodeFailed }

// ErrCompressorUnavailable is wrapped in an EncodeError when no compressor is
// configured.
var ErrCompressorUnavailable = errors.New("compression unavailable")
