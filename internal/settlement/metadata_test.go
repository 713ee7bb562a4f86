package settlement

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestLineCodecRoundTrip(t *testing.T) {
	t.Parallel()

	lines := []chargeLine{
		{BookID: uuid.New(), Qty: 2, UnitCents: 3000},
		{BookID: uuid.New(), Qty: 1, UnitCents: 4550},
	}
	decoded, err := decodeLines(encodeLines(lines))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(decoded))
	}
	for i := range lines {
		if decoded[i] != lines[i] {
			t.Fatalf("line %d mismatch: %+v != %+v", i, decoded[i], lines[i])
		}
	}
}

func TestDecodeLinesRejectsMalformedInput(t *testing.T) {
	t.Parallel()

	cases := []string{
		"",
		"not-a-uuid:1:100",
		uuid.NewString() + ":0:100",
		uuid.NewString() + ":1:-5",
		uuid.NewString() + ":1",
	}
	for _, input := range cases {
		if _, err := decodeLines(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}

func TestEncodeLinesStaysCompact(t *testing.T) {
	t.Parallel()

	// Three lines must fit PayPal's 255-byte custom id with room to spare.
	lines := []chargeLine{
		{BookID: uuid.New(), Qty: 99, UnitCents: 999999},
		{BookID: uuid.New(), Qty: 99, UnitCents: 999999},
		{BookID: uuid.New(), Qty: 99, UnitCents: 999999},
	}
	encoded := encodeLines(lines)
	if len(encoded) > 200 {
		t.Fatalf("encoding too large for gateway metadata: %d bytes", len(encoded))
	}
	if strings.Count(encoded, "|") != 2 {
		t.Fatalf("expected two separators, got %q", encoded)
	}
}
