package settlement

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Intent metadata keys. The intent is the single source of truth between
// charge creation and confirmation, so the priced lines ride inside it.
const (
	metaKeyUserID = "user_id"
	metaKeyCartID = "cart_id"
	metaKeyLines  = "lines"
)

// chargeLine is one priced line frozen at charge-creation time.
type chargeLine struct {
	BookID    uuid.UUID
	Qty       int
	UnitCents int64
}

// encodeLines packs lines as "bookID:qty:unitCents|...", compact enough to
// fit PayPal's 255-byte custom id alongside the other metadata keys.
func encodeLines(lines []chargeLine) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, fmt.Sprintf("%s:%d:%d", line.BookID, line.Qty, line.UnitCents))
	}
	return strings.Join(parts, "|")
}

func decodeLines(encoded string) ([]chargeLine, error) {
	if encoded == "" {
		return nil, fmt.Errorf("empty lines metadata")
	}
	parts := strings.Split(encoded, "|")
	lines := make([]chargeLine, 0, len(parts))
	for _, part := range parts {
		fields := strings.Split(part, ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("malformed line %q", part)
		}
		bookID, err := uuid.Parse(fields[0])
		if err != nil {
			return nil, fmt.Errorf("malformed book id in line %q: %w", part, err)
		}
		qty, err := strconv.Atoi(fields[1])
		if err != nil || qty <= 0 {
			return nil, fmt.Errorf("malformed qty in line %q", part)
		}
		unitCents, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil || unitCents < 0 {
			return nil, fmt.Errorf("malformed unit price in line %q", part)
		}
		lines = append(lines, chargeLine{BookID: bookID, Qty: qty, UnitCents: unitCents})
	}
	return lines, nil
}
