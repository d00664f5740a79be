package store

import (
	"errors"
	"strings"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{Model: 3, Dim: 7, Steps: 100000}
	buf := encodeHeader(h)
	if len(buf) != HeaderSize {
		t.Fatalf("header size: got %d, want %d", len(buf), HeaderSize)
	}
	got, err := decodeHeader(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != h {
		t.Errorf("round trip: got %+v, want %+v", got, h)
	}
}

func TestHeaderRejectsWrongMagic(t *testing.T) {
	buf := encodeHeader(Header{Model: 1, Dim: 2, Steps: 3})
	copy(buf, "EIGENVALS_V5") // older format: detected, never migrated
	if _, err := decodeHeader(buf); !errors.Is(err, ErrFormat) {
		t.Errorf("old magic: got %v, want ErrFormat", err)
	}

	copy(buf, "GARBAGEBYTES")
	if _, err := decodeHeader(buf); !errors.Is(err, ErrFormat) {
		t.Errorf("garbage magic: got %v, want ErrFormat", err)
	}
}

func TestValidateHeaderParamMismatch(t *testing.T) {
	buf := encodeHeader(Header{Model: 1, Dim: 3, Steps: 100})
	want := Header{Model: 1, Dim: 3, Steps: 200}
	_, err := validateHeader(buf, want)
	if !errors.Is(err, ErrParamMismatch) {
		t.Fatalf("got %v, want ErrParamMismatch", err)
	}
	// The message must carry both the found and the expected parameters.
	for _, s := range []string{"steps=100", "steps=200"} {
		if !strings.Contains(err.Error(), s) {
			t.Errorf("error %q missing %q", err, s)
		}
	}

	if _, err := validateHeader(buf, Header{Model: 1, Dim: 3, Steps: 100}); err != nil {
		t.Errorf("matching params: got %v, want nil", err)
	}
}

func TestFooterRoundTrip(t *testing.T) {
	ft := Footer{Total: 12345678, ValuesPerRecord: 9}
	buf := encodeFooter(ft)
	if len(buf) != FooterSize {
		t.Fatalf("footer size: got %d, want %d", len(buf), FooterSize)
	}
	got, err := decodeFooter(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != ft {
		t.Errorf("round trip: got %+v, want %+v", got, ft)
	}
}

func TestFooterRejectsBadMarker(t *testing.T) {
	buf := encodeFooter(Footer{Total: 1, ValuesPerRecord: 1})
	buf[0] = 'X'
	if _, err := decodeFooter(buf); !errors.Is(err, ErrFormat) {
		t.Errorf("got %v, want ErrFormat", err)
	}
}

func TestFooterRejectsZeroWidthWithRecords(t *testing.T) {
	buf := encodeFooter(Footer{Total: 10, ValuesPerRecord: 0})
	if _, err := decodeFooter(buf); !errors.Is(err, ErrFormat) {
		t.Errorf("got %v, want ErrFormat", err)
	}
	// Empty complete file is the one valid zero-width combination.
	if _, err := decodeFooter(encodeFooter(Footer{})); err != nil {
		t.Errorf("empty footer: got %v, want nil", err)
	}
}

func TestExpectedFileSize(t *testing.T) {
	// 3 runs, 1 value: seeds 0-2 encode in 1 byte, so the estimate matches
	// the concrete layout exactly: 18 + 3*(1+1+8) + 17.
	if got := ExpectedFileSize(3, 1); got != 65 {
		t.Errorf("ExpectedFileSize(3, 1): got %d, want 65", got)
	}
	// 1000 runs: largest seed 999 takes 2 bytes.
	want := int64(HeaderSize) + 1000*(2+1+8*4) + FooterSize
	if got := ExpectedFileSize(1000, 4); got != want {
		t.Errorf("ExpectedFileSize(1000, 4): got %d, want %d", got, want)
	}
}
