package bpstring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matzehuels/bpedit/pkg/blueprint"
	bperrors "github.com/matzehuels/bpedit/pkg/errors"
	"github.com/matzehuels/bpedit/pkg/history"
	"github.com/matzehuels/bpedit/pkg/observability"
)

// Defaults.
const (
	DefaultLevel      = 9
	DefaultMaxPayload = 64 << 20
)

// Codec converts blueprints and books to and from envelopes.
type Codec interface {
	Encode(ctx context.Context, it blueprint.Item) (string, error)
	Decode(ctx context.Context, s string) (blueprint.Item, error)
}

var (
	_ Codec = (*Async)(nil)
	_ Codec = (*Sync)(nil)
)

// Result carries either an envelope or the error that prevented it.
type Result struct {
	Value string
	Err   error
}

// OK reports whether the result holds a value.
func (r Result) OK() bool { return r.Err == nil }

// =============================================================================
// Options
// =============================================================================

// Option configures a codec.
type Option func(*options)

type options struct {
	scheme     Scheme
	level      int
	maxPayload int64
	compressor Compressor
	history    []history.Option
}

func defaultOptions() options {
	return options{
		scheme:     SchemeGame,
		level:      DefaultLevel,
		maxPayload: DefaultMaxPayload,
		compressor: DefaultCompressor,
	}
}

// WithScheme selects the envelope scheme used for encoding. Decoding accepts
// every scheme regardless.
func WithScheme(s Scheme) Option {
	return func(o *options) { o.scheme = s }
}

// WithLevel sets the compression level (1-9).
func WithLevel(level int) Option {
	return func(o *options) { o.level = level }
}

// WithMaxPayload caps the decompressed document size in bytes.
func WithMaxPayload(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPayload = n
		}
	}
}

// WithCompressor replaces the compression primitive. A nil compressor marks
// compression as unavailable; encoding then fails.
func WithCompressor(c Compressor) Option {
	return func(o *options) { o.compressor = c }
}

// WithHistory configures the history of every decoded blueprint.
func WithHistory(opts ...history.Option) Option {
	return func(o *options) { o.history = append(o.history, opts...) }
}

// =============================================================================
// Pipeline
// =============================================================================

// pipeline is the encode/decode path shared by both codecs. concurrent
// selects errgroup fan-out over book entries.
type pipeline struct {
	options
	concurrent bool
}

func newPipeline(concurrent bool, opts []Option) pipeline {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return pipeline{options: o, concurrent: concurrent}
}

func (p *pipeline) encode(ctx context.Context, it blueprint.Item) (s string, err error) {
	start := time.Now()
	defer func() {
		observability.Codec().OnEncode(ctx, kindOf(it), p.scheme.String(), len(s), time.Since(start), err)
	}()

	doc, err := buildDocument(ctx, it, p.concurrent)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.encodeDocument(doc)
}

func (p *pipeline) encodeDocument(doc *Document) (string, error) {
	payload, err := doc.JSON(false)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	body, err := compress(p.compressor, p.scheme, p.level, payload)
	if err != nil {
		return "", fmt.Errorf("compress: %w", err)
	}
	return encodeBody(body), nil
}

// envelope is a decoded envelope up to DocumentParsed.
type envelope struct {
	version byte
	scheme  Scheme
	size    int
	payload int
	doc     *Document
}

func (p *pipeline) open(ctx context.Context, s string) (*envelope, error) {
	s = stripSpace(s)

	// RawString
	if s == "" {
		return nil, decodeErr(StageRawString, BadAlphabet, errors.New("empty string"))
	}
	if s[0] != Prefix {
		return nil, decodeErr(StageRawString, BadVersionByte, fmt.Errorf("unknown prefix %q", s[0]))
	}
	text := s[1:]
	for i := 0; i < len(text); i++ {
		if !inAlphabet(text[i]) {
			return nil, decodeErr(StageRawString, BadAlphabet, fmt.Errorf("invalid character %q at offset %d", text[i], i+1))
		}
	}
	body, err := decodeBase64(text)
	if err != nil {
		return nil, decodeErr(StageRawString, BadAlphabet, err)
	}

	// AlphabetDecoded
	if len(body) == 0 {
		return nil, decodeErr(StageAlphabetDecoded, BadVersionByte, errors.New("missing version byte"))
	}
	scheme, ok := schemeOf(body[0])
	if !ok {
		return nil, decodeErr(StageAlphabetDecoded, BadVersionByte, fmt.Errorf("unsupported version byte 0x%02x", body[0]))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// VersionParsed
	payload, err := decompress(scheme, body, p.maxPayload)
	if err != nil {
		return nil, decodeErr(StageVersionParsed, DecompressionFailed, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Decompressed
	doc, err := ParseDocument(payload)
	if err != nil {
		return nil, err
	}
	return &envelope{version: body[0], scheme: scheme, size: len(s), payload: len(payload), doc: doc}, nil
}

func (p *pipeline) decode(ctx context.Context, s string) (it blueprint.Item, err error) {
	start := time.Now()
	defer func() {
		observability.Codec().OnDecode(ctx, kindOf(it), len(s), time.Since(start), err)
	}()

	env, err := p.open(ctx, s)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// DocumentParsed
	it, err = buildItem(ctx, env.doc, p.concurrent, p.history)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, decodeErr(StageDocumentParsed, SchemaMismatch, err)
	}
	return it, nil
}

func kindOf(it blueprint.Item) string {
	if it == nil {
		return ""
	}
	return string(it.Kind())
}

// =============================================================================
// Async
// =============================================================================

// Async is the codec for general contexts. It honours cancellation between
// stages and builds book entries concurrently.
type Async struct {
	pipeline
}

// NewAsync returns an asynchronous codec.
func NewAsync(opts ...Option) *Async {
	return &Async{pipeline: newPipeline(true, opts)}
}

// Encode returns the envelope for it.
func (c *Async) Encode(ctx context.Context, it blueprint.Item) (string, error) {
	s, err := c.encode(ctx, it)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", bperrors.Wrap(bperrors.ErrCodeEncodeFailed, err, "encode blueprint string")
	}
	return s, nil
}

// EncodeAsync encodes in a new goroutine and delivers the result on the
// returned channel, which receives exactly one value.
func (c *Async) EncodeAsync(ctx context.Context, it blueprint.Item) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		s, err := c.Encode(ctx, it)
		ch <- Result{Value: s, Err: err}
	}()
	return ch
}

// Decode parses an envelope. Failures are *DecodeError unless ctx ended.
func (c *Async) Decode(ctx context.Context, s string) (blueprint.Item, error) {
	return c.decode(ctx, s)
}

// EncodeDocument compresses and frames a document after validating it.
func (c *Async) EncodeDocument(ctx context.Context, doc *Document) (string, error) {
	return encodeValidated(ctx, &c.pipeline, doc)
}

// DecodeDocument decodes an envelope up to its validated document.
func (c *Async) DecodeDocument(ctx context.Context, s string) (*Document, error) {
	env, err := c.open(ctx, s)
	if err != nil {
		return nil, err
	}
	return env.doc, nil
}

// Find returns the first envelope embedded in text that decodes.
func (c *Async) Find(ctx context.Context, text string) (string, bool) {
	return find(ctx, &c.pipeline, text)
}

// Inspect summarizes an envelope without building the model.
func (c *Async) Inspect(ctx context.Context, s string) (Info, error) {
	return inspect(ctx, &c.pipeline, s)
}

// encodeValidated validates doc and encodes it through the model, so a
// document and the item built from it produce the same envelope.
func encodeValidated(ctx context.Context, p *pipeline, doc *Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	doc.normalize()
	if err := doc.Validate(); err != nil {
		return "", bperrors.Wrap(bperrors.ErrCodeInvalidInput, err, "invalid document")
	}
	it, err := buildItem(ctx, doc, p.concurrent, nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", bperrors.Wrap(bperrors.ErrCodeInvalidInput, err, "invalid document")
	}
	s, err := p.encode(ctx, it)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", bperrors.Wrap(bperrors.ErrCodeEncodeFailed, err, "encode blueprint string")
	}
	return s, nil
}

// =============================================================================
// Sync
// =============================================================================

// Sync is the codec for contexts that need an immediate result and cannot
// propagate failures, such as clipboard handlers. It never panics.
type Sync struct {
	pipeline
}

// NewSync returns a synchronous codec.
func NewSync(opts ...Option) *Sync {
	return &Sync{pipeline: newPipeline(false, opts)}
}

// EncodeSync encodes it on the calling goroutine. Failures are reported as
// *EncodeError in the result.
func (c *Sync) EncodeSync(it blueprint.Item) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: &EncodeError{Err: fmt.Errorf("panic: %v", r)}}
		}
	}()
	s, err := c.encode(context.Background(), it)
	if err != nil {
		return Result{Err: &EncodeError{Err: err}}
	}
	return Result{Value: s}
}

// EncodeDocument validates and encodes a document on the calling goroutine.
// The envelope equals the one [Async.EncodeDocument] returns.
func (c *Sync) EncodeDocument(doc *Document) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: &EncodeError{Err: fmt.Errorf("panic: %v", r)}}
		}
	}()
	s, err := encodeValidated(context.Background(), &c.pipeline, doc)
	if err != nil {
		return Result{Err: &EncodeError{Err: err}}
	}
	return Result{Value: s}
}

// Encode adapts EncodeSync to the Codec interface.
func (c *Sync) Encode(ctx context.Context, it blueprint.Item) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	res := c.EncodeSync(it)
	return res.Value, res.Err
}

// Decode parses an envelope on the calling goroutine.
func (c *Sync) Decode(ctx context.Context, s string) (it blueprint.Item, err error) {
	defer func() {
		if r := recover(); r != nil {
			it, err = nil, decodeErr(StageRawString, SchemaMismatch, fmt.Errorf("panic: %v", r))
		}
	}()
	return c.decode(ctx, s)
}

// =============================================================================
// Package-level helpers
// =============================================================================

var (
	defaultAsync = NewAsync()
	defaultSync  = NewSync()
)

// Encode encodes it with the default asynchronous codec.
func Encode(ctx context.Context, it blueprint.Item) (string, error) {
	return defaultAsync.Encode(ctx, it)
}

// Decode decodes s with the default asynchronous codec.
func Decode(ctx context.Context, s string) (blueprint.Item, error) {
	return defaultAsync.Decode(ctx, s)
}

// EncodeSync encodes it with the default synchronous codec.
func EncodeSync(it blueprint.Item) Result {
	return defaultSync.EncodeSync(it)
}

// EncodeDocument encodes a document with the default codec.
func EncodeDocument(ctx context.Context, doc *Document) (string, error) {
	return defaultAsync.EncodeDocument(ctx, doc)
}

// DecodeDocument decodes s up to its document with the default codec.
func DecodeDocument(ctx context.Context, s string) (*Document, error) {
	return defaultAsync.DecodeDocument(ctx, s)
}

// Find returns the first envelope embedded in text that decodes.
func Find(ctx context.Context, text string) (string, bool) {
	return defaultAsync.Find(ctx, text)
}

// Inspect summarizes s with the default codec.
func Inspect(ctx context.Context, s string) (Info, error) {
	return defaultAsync.Inspect(ctx, s)
}
