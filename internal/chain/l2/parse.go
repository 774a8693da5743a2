package l2

import (
	"fmt"
	"strconv"
	"strings"
)

// parseTaiHeight converts a GraphQL block height (a decimal string) to a
// uint64 block number.
func parseTaiHeight(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

// parseFuelTime converts a Fuel TAI64 timestamp string to a Unix second
// count. Fuel encodes block times as TAI64, a fixed offset from Unix time
// of 2^62 seconds, hex-encoded with a leading "4" tag byte.
func parseFuelTime(s string) (int64, error) {
	s = strings.TrimPrefix(s, "0x")
	raw, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid fuel timestamp %q: %w", s, err)
	}
	const tai64Offset = uint64(1) << 62
	if raw < tai64Offset {
		return 0, fmt.Errorf("invalid fuel timestamp %q: below tai64 epoch", s)
	}
	return int64(raw - tai64Offset), nil
}
