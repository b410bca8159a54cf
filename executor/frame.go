package executor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Frame size constants.
const (
	// MaxFrameSize is the maximum frame size (16 MiB), including length prefix.
	MaxFrameSize = 16 * 1024 * 1024
	// MaxPayloadSize is the maximum payload size (MaxFrameSize - 4 bytes).
	MaxPayloadSize = MaxFrameSize - LengthPrefixSize
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
	// MaxValuesPerFrame is the largest number of values a partial frame
	// carries. A msgpack int64 takes at most 9 bytes, so a full frame
	// stays well below MaxPayloadSize.
	MaxValuesPerFrame = 1 << 20
)

// Frame type discriminants.
const (
	ChunkType   = "chunk"
	PartialType = "partial"
	ErrorType   = "error"
)

// Error kinds carried by error frames, so that sentinel errors survive
// the process boundary.
const (
	ErrorKindOverflow = "overflow"
)

// FrameErrorKind classifies frame errors.
type FrameErrorKind int

const (
	// FrameErrorPartial indicates a truncated or incomplete frame.
	FrameErrorPartial FrameErrorKind = iota
	// FrameErrorTooLarge indicates a frame exceeding MaxFrameSize.
	FrameErrorTooLarge
	// FrameErrorDecode indicates a msgpack decoding error or an
	// unexpected frame type.
	FrameErrorDecode
)

// FrameError represents a frame error.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if the stream cannot be read any further.
// Partial and oversized frames are fatal.
func (e *FrameError) IsFatal() bool {
	return e.Kind == FrameErrorPartial || e.Kind == FrameErrorTooLarge
}

// IsFatalFrameError returns true if the error is a fatal frame error.
func IsFatalFrameError(err error) bool {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return frameErr.IsFatal()
	}
	return false
}

// ChunkRequest asks a worker process to apply its function to the items
// from Low (inclusive) to High (exclusive).
type ChunkRequest struct {
	Type string `msgpack:"type"`
	Seq  int    `msgpack:"seq"`
	Low  int    `msgpack:"low"`
	High int    `msgpack:"high"`
	Mode string `msgpack:"mode"`
}

// Response is the answer of a worker process to a ChunkRequest. Type is
// PartialType for a result and ErrorType for a failure of the function.
//
// A materialized chunk with more than MaxValuesPerFrame values is sent
// as a run of partial frames. Every frame but the last has More set and
// carries only a slice of the values; the last one carries the rest
// together with Sum and Count.
type Response struct {
	Type string `msgpack:"type"`
	Seq  int    `msgpack:"seq"`
	More bool   `msgpack:"more,omitempty"`

	// Set for partial frames.
	Values []int64 `msgpack:"values,omitempty"`
	Sum    int64   `msgpack:"sum"`
	Count  int     `msgpack:"count"`

	// Set for error frames.
	Item    int    `msgpack:"item,omitempty"`
	Kind    string `msgpack:"kind,omitempty"`
	Message string `msgpack:"message,omitempty"`
}

// FrameDecoder decodes length-prefixed msgpack frames from a stream.
type FrameDecoder struct {
	reader io.Reader
}

// NewFrameDecoder creates a new frame decoder.
func NewFrameDecoder(r io.Reader) *FrameDecoder {
	return &FrameDecoder{reader: r}
}

// ReadFrame reads a single frame from the stream.
// Returns the raw payload bytes (msgpack-encoded).
//
// Errors:
//   - io.EOF: stream ended cleanly (no more frames)
//   - *FrameError with Kind=FrameErrorPartial: incomplete frame (fatal)
//   - *FrameError with Kind=FrameErrorTooLarge: frame exceeds limit (fatal)
func (d *FrameDecoder) ReadFrame() ([]byte, error) {
	var lengthBuf [LengthPrefixSize]byte
	_, err := io.ReadFull(d.reader, lengthBuf[:])
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read length prefix",
			Err:  err,
		}
	}

	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])
	if payloadSize > MaxPayloadSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", payloadSize, MaxPayloadSize),
		}
	}

	payload := make([]byte, payloadSize)
	_, err = io.ReadFull(d.reader, payload)
	if err != nil {
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read payload",
			Err:  err,
		}
	}

	return payload, nil
}

// FrameEncoder encodes values as length-prefixed msgpack frames.
type FrameEncoder struct {
	writer io.Writer
}

// NewFrameEncoder creates a new frame encoder.
func NewFrameEncoder(w io.Writer) *FrameEncoder {
	return &FrameEncoder{writer: w}
}

// WriteFrame encodes v and writes it as one frame, with a single Write
// call on the underlying writer.
func (e *FrameEncoder) WriteFrame(v any) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	if len(payload) > MaxPayloadSize {
		return &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", len(payload), MaxPayloadSize),
		}
	}
	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)
	if _, err := e.writer.Write(buf); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// DecodeChunkRequest decodes a payload as a ChunkRequest.
func DecodeChunkRequest(payload []byte) (*ChunkRequest, error) {
	var req ChunkRequest
	if err := msgpack.Unmarshal(payload, &req); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "failed to decode chunk request",
			Err:  err,
		}
	}
	if req.Type != ChunkType {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  fmt.Sprintf("unexpected frame type %q, want %q", req.Type, ChunkType),
		}
	}
	return &req, nil
}

// DecodeResponse decodes a payload as a Response.
func DecodeResponse(payload []byte) (*Response, error) {
	var resp Response
	if err := msgpack.Unmarshal(payload, &resp); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "failed to decode response",
			Err:  err,
		}
	}
	if resp.Type != PartialType && resp.Type != ErrorType {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  fmt.Sprintf("unexpected frame type %q", resp.Type),
		}
	}
	return &resp, nil
}
