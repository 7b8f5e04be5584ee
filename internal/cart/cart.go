package cart

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexQty tolerates the loose quantity encodings found in stored carts:
// numbers, numeric strings, null, or junk. Anything unusable coerces to zero
// and is dropped during normalization.
type FlexQty int

// UnmarshalJSON implements json.Unmarshaler.
func (q *FlexQty) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*q = 0
		return nil
	}

	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*q = 0
			return nil
		}
		raw = strings.TrimSpace(s)
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*q = 0
		return nil
	}
	*q = FlexQty(int(f))
	return nil
}

// RawLine is an untrusted line as stored in the session document.
type RawLine struct {
	ProductID string  `json:"productId"`
	Qty       FlexQty `json:"qty"`
}

// Line is a normalized cart line.
type Line struct {
	ProductID string `json:"productId"`
	Qty       int    `json:"qty"`
}

// Document is the session cart persisted in Redis.
type Document struct {
	Items  []RawLine `json:"items"`
	UserID *string   `json:"userId,omitempty"`
}

// Normalize merges duplicate product lines, sums their quantities, and drops
// lines with a blank product id or a non-positive quantity. Order follows the
// first appearance of each product.
func Normalize(lines []RawLine) []Line {
	merged := make(map[string]int, len(lines))
	order := make([]string, 0, len(lines))

	for _, line := range lines {
		id := strings.TrimSpace(line.ProductID)
		if id == "" {
			continue
		}
		if _, seen := merged[id]; !seen {
			order = append(order, id)
		}
		merged[id] += int(line.Qty)
	}

	out := make([]Line, 0, len(order))
	for _, id := range order {
		qty := merged[id]
		if qty <= 0 {
			continue
		}
		out = append(out, Line{ProductID: id, Qty: qty})
	}
	return out
}
