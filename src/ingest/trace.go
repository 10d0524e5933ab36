package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"hookstat/src/codec"
	"hookstat/src/contracts"
)

// OpenTrace opens a trace file. "-" reads stdin as NDJSON.
// The codec is chosen from the file extension.
func OpenTrace(path string) (io.ReadCloser, codec.Format, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), codec.JSON, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open trace: %w", err)
	}
	return f, codec.FormatForPath(path), nil
}

// ReadTrace decodes events from r and calls fn for each one in order.
// It stops at the first error returned by fn and returns the number of events decoded.
func ReadTrace(ctx context.Context, r io.Reader, f codec.Format, fn func(contracts.Event) error) (int64, error) {
	dec := codec.NewDecoder(r, f)

	var n int64
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}

		var ev contracts.Event
		if err := dec.Decode(&ev); err != nil {
			if errors.Is(err, io.EOF) {
				return n, nil
			}
			return n, fmt.Errorf("failed to decode event %d: %w", n+1, err)
		}
		n++

		if err := fn(ev); err != nil {
			return n, err
		}
	}
}

// WriteTrace encodes events to w, one per line for JSON.
func WriteTrace(w io.Writer, f codec.Format, events []contracts.Event) error {
	enc := codec.NewEncoder(w, f)
	for i, ev := range events {
		if err := enc.Encode(ev); err != nil {
			return fmt.Errorf("failed to encode event %d: %w", i+1, err)
		}
	}
	return nil
}
