package ollama

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/bytedance/sonic"
)

const streamReadChunkSize = 4096

// streamDecoder reassembles a byte stream delivered in arbitrary-sized chunks
// into discrete newline-delimited records. A single read may contain zero, one
// or many complete records and may end mid-record; buffering is byte-level, so
// a chunk boundary inside a record or inside a multi-byte UTF-8 sequence never
// corrupts the reassembled record.
type streamDecoder struct {
	reader io.Reader
	buffer []byte
	chunk  []byte
}

func newStreamDecoder(reader io.Reader) *streamDecoder {
	return &streamDecoder{
		reader: reader,
		chunk:  make([]byte, streamReadChunkSize),
	}
}

// recordFunc is invoked once per complete non-empty record, in stream order,
// as soon as the record's terminating newline has been read. Returning true
// stops decoding before the underlying stream is drained.
type recordFunc func(record []byte) bool

// Decode reads the stream to completion, handing every newline-terminated
// record to fn. Unterminated trailing content at end-of-stream is discarded;
// the protocol's contract is strictly line-delimited.
func (decoder *streamDecoder) Decode(ctx context.Context, fn recordFunc) error {
	for {
		if err := ctx.Err(); err != nil {
			return &ClientError{Type: ErrTypeTimeout, Message: "stream cancelled", Cause: err}
		}

		if stop := decoder.drainRecords(fn); stop {
			return nil
		}

		bytesRead, err := decoder.reader.Read(decoder.chunk)
		if bytesRead > 0 {
			decoder.buffer = append(decoder.buffer, decoder.chunk[:bytesRead]...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				decoder.drainRecords(fn)
				return nil
			}
			return &ClientError{Type: ErrTypeConnection, Message: "stream read failed", Cause: err}
		}
	}
}

// drainRecords delivers every complete record currently buffered, in order.
func (decoder *streamDecoder) drainRecords(fn recordFunc) (stop bool) {
	for {
		newlineIndex := bytes.IndexByte(decoder.buffer, '\n')
		if newlineIndex < 0 {
			return false
		}

		record := bytes.TrimSpace(decoder.buffer[:newlineIndex])
		decoder.buffer = decoder.buffer[newlineIndex+1:]

		if len(record) == 0 {
			continue
		}
		if fn(record) {
			return true
		}
	}
}

// decodeRecord parses a single record. sonic is the JSON codec for the stream
// hot path; malformed records are the caller's problem to skip.
func decodeRecord(record []byte, target any) error {
	return sonic.Unmarshal(record, target)
}
