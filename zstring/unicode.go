package zstring

import "github.com/wry-frost/zm3/zcore"

// defaultExtendedLatin1 is the standard ZSCII-to-Unicode translation table for
// codes 155-223 (the "extra characters" block: accented Latin-1 letters plus a
// handful of punctuation marks). v1-3 stories always use this table; custom
// translation tables are a v5+ feature and out of scope.
var defaultExtendedLatin1 = [...]rune{
	'ä', 'ö', 'ü', 'Ä', 'Ö', 'Ü', 'ß', '»', '«', 'ë', 'ï', 'ÿ', 'Ë', 'Ï',
	'á', 'é', 'í', 'ó', 'ú', 'ý', 'Á', 'É', 'Í', 'Ó', 'Ú', 'Ý',
	'à', 'è', 'ì', 'ò', 'ù', 'À', 'È', 'Ì', 'Ò', 'Ù',
	'â', 'ê', 'î', 'ô', 'û', 'Â', 'Ê', 'Î', 'Ô', 'Û',
	'å', 'Å', 'ø', 'Ø', 'ã', 'ñ', 'õ', 'Ã', 'Ñ', 'Õ',
	'æ', 'Æ', 'ç', 'Ç', 'þ', 'ð', 'Þ', 'Ð', '£', 'œ', 'Œ', '¡', '¿',
}

// ZsciiToRune decodes a raw ZSCII code as produced by the A2 big-character
// escape: ASCII 32-126 pass through unchanged, 13 is a newline, 155-223 index
// the extended Latin-1 table above, 0 and anything else unrecognized is
// ignored (ok=false).
func ZsciiToRune(code uint8, _ *zcore.Core) (rune, bool) {
	switch {
	case code == 13:
		return '\n', true
	case code >= 32 && code <= 126:
		return rune(code), true
	case code >= 155 && code <= 223:
		return defaultExtendedLatin1[code-155], true
	default:
		return 0, false
	}
}
