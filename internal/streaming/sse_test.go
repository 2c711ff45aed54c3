package streaming

import (
	"io"
	"strings"
	"testing"
	"time"
)

func TestDecoderReadsCompleteEvent(t *testing.T) {
	body := "event: content_block_delta\ndata: hello\n\n"
	d := NewDecoder(io.NopCloser(strings.NewReader(body)), time.Second)
	defer d.Close()

	event, err := d.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	if event.Event != "content_block_delta" || event.Data != "hello" {
		t.Errorf("event = %+v", event)
	}

	if _, err := d.ReadEvent(); err != io.EOF {
		t.Errorf("second ReadEvent error = %v, want io.EOF", err)
	}
}

// TestDecoderFlushesUnterminatedFinalLine covers a body that closes
// immediately after its last data line with no trailing blank line, as
// happens on an abrupt provider disconnect: the final line must still
// surface as part of the last event rather than being dropped.
func TestDecoderFlushesUnterminatedFinalLine(t *testing.T) {
	body := "event: content_block_delta\ndata: hello\ndata: world"
	d := NewDecoder(io.NopCloser(strings.NewReader(body)), time.Second)
	defer d.Close()

	event, err := d.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	if event.Data != "hello\nworld" {
		t.Errorf("Data = %q, want %q", event.Data, "hello\nworld")
	}

	// The background reader has nothing left to send and has exited;
	// the next call must return promptly rather than blocking for the
	// stall timeout.
	if _, err := d.ReadEvent(); err == nil {
		t.Error("expected a terminal error once the stream is exhausted")
	}
}

func TestDecoderEOFWithNoPendingEventReturnsEOF(t *testing.T) {
	body := "event: content_block_delta\ndata: hello\n\n"
	d := NewDecoder(io.NopCloser(strings.NewReader(body)), time.Second)
	defer d.Close()

	if _, err := d.ReadEvent(); err != nil {
		t.Fatalf("first ReadEvent: %v", err)
	}
	if _, err := d.ReadEvent(); err != io.EOF {
		t.Errorf("ReadEvent on exhausted stream = %v, want io.EOF", err)
	}
}
