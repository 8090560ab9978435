package messaging

import "strings"

// ChannelPrefix marks canonical WhatsApp channel addresses.
const ChannelPrefix = "whatsapp:"

// NormalizeAddress converts a raw phone number into the canonical channel
// address used as the join key between carts, conversations and inbound
// messages: all non-digit runes stripped, then "whatsapp:+" prepended.
// Already-canonical input passes through unchanged. Every ingress point must
// use this one function so lookups match reliably.
func NormalizeAddress(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, ChannelPrefix)

	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return ""
	}
	return ChannelPrefix + "+" + digits.String()
}

// DisplayNumber renders a canonical address for humans: the channel prefix
// stripped, the leading + kept.
func DisplayNumber(addr string) string {
	return strings.TrimPrefix(addr, ChannelPrefix)
}
