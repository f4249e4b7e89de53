// Package zstring is the compressed-text ("ZString") codec: decoding packed
// 5-bit Z-characters to text, encoding a word to its 4-byte dictionary form, and
// resolving abbreviations.
package zstring

import "github.com/wry-frost/zm3/zcore"

// Alphabet is one of the three standard z-machine character sets.
type Alphabet uint8

const (
	A0 Alphabet = iota // lowercase
	A1                 // uppercase
	A2                 // punctuation / digits
)

var a0Letters = [...]rune{'a', 'b', 'c', 'd', 'e', 'f', 'g', 'h', 'i', 'j', 'k', 'l', 'm', 'n', 'o', 'p', 'q', 'r', 's', 't', 'u', 'v', 'w', 'x', 'y', 'z'}
var a1Letters = [...]rune{'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H', 'I', 'J', 'K', 'L', 'M', 'N', 'O', 'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W', 'X', 'Y', 'Z'}

// a2Chars covers Z-characters 7..31 of alphabet A2. Z-character 6 is handled
// separately: it escapes into a 10-bit raw ZSCII code.
var a2Chars = [...]rune{'\n', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9', '.', ',', '!', '?', '_', '#', '\'', '"', '/', '\\', '-', ':', '(', ')'}

// Decoder decodes Z-strings against one story image's abbreviation table.
type Decoder struct {
	core   *zcore.Core
	nested bool // decoding an abbreviation's own text: abbreviation Z-characters are skipped
}

// NewDecoder binds a Decoder to a story image.
func NewDecoder(core *zcore.Core) Decoder {
	return Decoder{core: core}
}

// Decode reads a Z-string starting at addr and returns its decoded text and the
// number of bytes consumed (always a multiple of 2 — one per 16-bit word, up to
// and including the word with the high-bit terminator set).
func (d Decoder) Decode(addr uint32) (string, uint32) {
	var zchars []uint8
	var bytesRead uint32

	for {
		word := d.core.ReadHalfWord(addr + bytesRead)
		bytesRead += 2
		zchars = append(zchars, uint8((word>>10)&0b1_1111), uint8((word>>5)&0b1_1111), uint8(word&0b1_1111))
		if word&0x8000 != 0 {
			break
		}
	}

	return d.decodeZChars(zchars), bytesRead
}

// decodeZChars runs the per-Z-character state machine over an already unpacked
// stream: a current alphabet (starting at A0), a one-character shift latch, and
// the two multi-character builders (big-character escape, abbreviation lookup).
func (d Decoder) decodeZChars(zchars []uint8) string {
	var out []rune
	alphabet := A0

	for i := 0; i < len(zchars); i++ {
		zc := zchars[i]

		switch {
		case zc == 0:
			out = append(out, ' ')
			alphabet = A0

		case zc >= 1 && zc <= 3:
			i++
			if i >= len(zchars) {
				break
			}
			if !d.nested {
				index := 32*(int(zc)-1) + int(zchars[i])
				out = append(out, []rune(d.abbreviation(index))...)
			}
			alphabet = A0

		case zc == 4:
			alphabet = nextAlphabet(alphabet, 1)

		case zc == 5:
			alphabet = nextAlphabet(alphabet, 2)

		case alphabet == A2 && zc == 6:
			if i+2 >= len(zchars) {
				alphabet = A0
				break
			}
			code := zchars[i+1]<<5 | zchars[i+2]
			i += 2
			if r, ok := ZsciiToRune(code, d.core); ok {
				out = append(out, r)
			}
			alphabet = A0

		default:
			out = append(out, letterFor(alphabet, zc))
			alphabet = A0
		}
	}

	return string(out)
}

func nextAlphabet(base Alphabet, shift int) Alphabet {
	return Alphabet((int(base) + shift) % 3)
}

func letterFor(alphabet Alphabet, zc uint8) rune {
	switch alphabet {
	case A0:
		return a0Letters[zc-6]
	case A1:
		return a1Letters[zc-6]
	default:
		return a2Chars[zc-7]
	}
}

// abbreviation resolves abbreviation table entry index (0-based, 0..95) to its
// decoded text. An abbreviation's own text is never itself expanded for further
// abbreviations: it is decoded by a nested Decoder that skips abbreviation
// Z-characters together with their index character.
func (d Decoder) abbreviation(index int) string {
	if d.core.AbbreviationTableBase == 0 {
		return ""
	}
	entryAddr := uint32(d.core.AbbreviationTableBase) + uint32(index)*2
	packed := d.core.ReadHalfWord(entryAddr)
	text, _ := Decoder{core: d.core, nested: true}.Decode(uint32(packed) * 2)
	return text
}

// EncodeDictionaryWord converts word to its 4-byte v1-3 dictionary form: each
// rune becomes 1 or 2 Z-characters (temporary shifts for uppercase/A2), the
// stream is truncated or padded with Z-character 5 to exactly 6 entries, and
// packed into two big-endian words with the high bit of the last one set.
func EncodeDictionaryWord(word []rune) [4]uint8 {
	var zchars []uint8
	for _, r := range word {
		zchars = append(zchars, runeToZChars(r)...)
		if len(zchars) >= 6 {
			break
		}
	}
	for len(zchars) < 6 {
		zchars = append(zchars, 5)
	}
	zchars = zchars[:6]

	word0 := uint16(zchars[0])<<10 | uint16(zchars[1])<<5 | uint16(zchars[2])
	word1 := uint16(zchars[3])<<10 | uint16(zchars[4])<<5 | uint16(zchars[5])
	word1 |= 0x8000

	return [4]uint8{uint8(word0 >> 8), uint8(word0), uint8(word1 >> 8), uint8(word1)}
}

func runeToZChars(r rune) []uint8 {
	for i, l := range a0Letters {
		if l == r {
			return []uint8{uint8(i) + 6}
		}
	}
	for i, l := range a1Letters {
		if l == r {
			return []uint8{4, uint8(i) + 6}
		}
	}
	if r == ' ' {
		return []uint8{0}
	}
	for i, c := range a2Chars {
		if c == r {
			return []uint8{5, uint8(i) + 7}
		}
	}
	// Not representable in any alphabet: pad rather than guess at an encoding.
	return []uint8{5}
}
