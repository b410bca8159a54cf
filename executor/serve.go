package executor

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/zavalska7893/trspo"
)

/*
Serve is the loop of a worker process. It reads ChunkRequest frames from
r, applies f to each requested chunk, and writes one Response frame per
request to w, in request order. Large materialized chunks are split
over several frames, see Response.

A failure of f is reported to the parent as an error frame, and Serve
keeps serving: the parent decides whether to abort. Serve returns nil
when r reaches a clean end of stream, ctx.Err() when ctx is done, and an
error for corrupt input or a failed write.
*/
func Serve(ctx context.Context, r io.Reader, w io.Writer, f trspo.Func) error {
	dec := NewFrameDecoder(r)
	enc := NewFrameEncoder(w)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := dec.ReadFrame()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		req, err := DecodeChunkRequest(payload)
		if err != nil {
			return err
		}
		mode, err := trspo.ParseMode(req.Mode)
		if err != nil {
			return &FrameError{Kind: FrameErrorDecode, Msg: "invalid chunk request", Err: err}
		}
		if req.High < req.Low {
			return &FrameError{Kind: FrameErrorDecode, Msg: fmt.Sprintf("invalid chunk range [%d, %d)", req.Low, req.High)}
		}

		chunk := trspo.Chunk{Seq: req.Seq, Low: req.Low, High: req.High}
		if err := writeResponse(enc, respond(f, chunk, mode)); err != nil {
			return err
		}
	}
}

func respond(f trspo.Func, chunk trspo.Chunk, mode trspo.Mode) *Response {
	partial, err := trspo.Apply(f, chunk, mode)
	if err != nil {
		resp := &Response{Type: ErrorType, Seq: chunk.Seq, Item: chunk.Low, Message: err.Error()}
		var werr *trspo.WorkerError
		if errors.As(err, &werr) {
			resp.Item = werr.Item
			resp.Message = werr.Err.Error()
		}
		if errors.Is(err, trspo.ErrOverflow) {
			resp.Kind = ErrorKindOverflow
		}
		return resp
	}
	return &Response{
		Type:   PartialType,
		Seq:    partial.Seq,
		Values: partial.Values,
		Sum:    partial.Sum,
		Count:  partial.Count,
	}
}

// writeResponse writes resp, splitting its values over as many frames as
// MaxValuesPerFrame requires.
func writeResponse(enc *FrameEncoder, resp *Response) error {
	for len(resp.Values) > MaxValuesPerFrame {
		head := &Response{Type: resp.Type, Seq: resp.Seq, More: true, Values: resp.Values[:MaxValuesPerFrame]}
		if err := enc.WriteFrame(head); err != nil {
			return err
		}
		resp.Values = resp.Values[MaxValuesPerFrame:]
	}
	return enc.WriteFrame(resp)
}

// workerError rebuilds the error reported by an error frame.
func workerError(resp *Response) error {
	var err error
	switch resp.Kind {
	case ErrorKindOverflow:
		err = trspo.ErrOverflow
	default:
		err = errors.New(resp.Message)
	}
	return &trspo.WorkerError{Item: resp.Item, Err: err}
}
