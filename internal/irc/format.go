package irc

import "strings"

// StripFormatting removes mIRC control codes (bold, color, italics,
// underline, reverse, reset) from text. Color codes swallow their
// optional fg,bg digit arguments.
func StripFormatting(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	i := 0
	for i < len(text) {
		c := text[i]
		switch c {
		case 0x02, 0x1d, 0x1e, 0x1f, 0x16, 0x0f:
			i++
		case 0x03:
			i++
			// Up to two foreground digits.
			for n := 0; n < 2 && i < len(text) && isDigit(text[i]); n++ {
				i++
			}
			// Optional comma and up to two background digits.
			if i+1 < len(text) && text[i] == ',' && isDigit(text[i+1]) {
				i++
				for n := 0; n < 2 && i < len(text) && isDigit(text[i]); n++ {
					i++
				}
			}
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
