package testenv

import (
	"encoding/hex"
	"strings"
	"unicode"
)

// BytesFromHex decodes hexadecimal octets.
// Characters outside [0-9A-Fa-f] are ignored, so that input may be laid out in groups and rows.
// It panics on odd number of digits.
func BytesFromHex(input string) []byte {
	digits := strings.Map(func(ch rune) rune {
		if unicode.Is(unicode.ASCII_Hex_Digit, ch) {
			return ch
		}
		return -1
	}, input)
	decoded, e := hex.DecodeString(digits)
	if e != nil {
		panic(e)
	}
	return decoded
}
