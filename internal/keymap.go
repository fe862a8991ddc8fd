package internal

import (
	"unicode"
	"unicode/utf8"
)

// Keysyms the lock interprets itself
const (
	keysymBackSpace = 0xff08
	keysymTab       = 0xff09
	keysymReturn    = 0xff0d
	keysymEscape    = 0xff1b
	keysymNumLock   = 0xff7f
	keysymKPSpace   = 0xff80
	keysymKPTab     = 0xff89
	keysymKPEnter   = 0xff8d
	keysymKPEqual   = 0xffbd
	keysymKP0       = 0xffb0
	keysymKP9       = 0xffb9
	keysymDelete    = 0xffff
	keysym0         = 0x30
)

// Core protocol modifier bits
const (
	maskShift   = 1 << 0
	maskLock    = 1 << 1
	maskControl = 1 << 2
)

func isKeypadKey(k uint32) bool        { return k >= 0xff80 && k <= 0xffbd }
func isPrivateKeypadKey(k uint32) bool { return k >= 0x11000000 && k <= 0x1100ffff }
func isFunctionKey(k uint32) bool      { return k >= 0xffbe && k <= 0xffe0 }
func isMiscFunctionKey(k uint32) bool  { return k >= 0xff60 && k <= 0xff6b }
func isPFKey(k uint32) bool            { return k >= 0xff91 && k <= 0xff94 }

// Keymap translates keycodes to keysyms using a snapshot of the server's
// keyboard and modifier mappings
type Keymap struct {
	minKeycode  int
	perKeycode  int
	keysyms     []uint32
	numLockMask uint16
}

// NewKeymap builds a keymap from a keyboard mapping starting at minKeycode
// and a modifier mapping with perModifier keycodes per modifier
func NewKeymap(minKeycode, perKeycode int, keysyms []uint32, modifierKeycodes []uint8, perModifier int) *Keymap {
	k := &Keymap{
		minKeycode: minKeycode,
		perKeycode: perKeycode,
		keysyms:    keysyms,
	}

	for mod := 0; mod < 8 && perModifier > 0; mod++ {
		for i := 0; i < perModifier; i++ {
			idx := mod*perModifier + i
			if idx >= len(modifierKeycodes) || modifierKeycodes[idx] == 0 {
				continue
			}
			code := modifierKeycodes[idx]
			for col := 0; col < perKeycode; col++ {
				if k.column(code, col) == keysymNumLock {
					k.numLockMask |= 1 << mod
				}
			}
		}
	}

	return k
}

func (k *Keymap) column(code uint8, col int) uint32 {
	if k.perKeycode == 0 || col >= k.perKeycode {
		return 0
	}
	idx := (int(code)-k.minKeycode)*k.perKeycode + col
	if idx < 0 || idx >= len(k.keysyms) {
		return 0
	}
	return k.keysyms[idx]
}

// Lookup returns the keysym a keycode produces under the given modifier
// state, following the core protocol rules for group 1
func (k *Keymap) Lookup(code uint8, state uint16) uint32 {
	k0, k1 := k.column(code, 0), k.column(code, 1)
	if k1 == 0 {
		lower, upper := keysymCase(k0)
		if lower != upper {
			k0, k1 = lower, upper
		} else {
			k1 = k0
		}
	}

	shift := state&maskShift != 0
	lock := state&maskLock != 0

	if k.numLockMask != 0 && state&k.numLockMask != 0 && isKeypadKey(k1) {
		if shift {
			return k0
		}
		return k1
	}

	switch {
	case !shift && !lock:
		return k0
	case !shift && lock:
		_, upper := keysymCase(k0)
		return upper
	case shift && lock:
		_, upper := keysymCase(k1)
		return upper
	default:
		return k1
	}
}

// keysymRune returns the character a keysym stands for
func keysymRune(k uint32) (rune, bool) {
	switch {
	case k >= 0x20 && k <= 0x7e, k >= 0xa0 && k <= 0xff:
		return rune(k), true
	case k >= 0x01000100 && k <= 0x0110ffff:
		return rune(k - 0x01000000), true
	case k == keysymBackSpace, k == keysymTab, k == 0xff0a, k == keysymReturn, k == keysymEscape:
		return rune(k & 0x7f), true
	case k == keysymDelete:
		return 0x7f, true
	case k == keysymKPSpace:
		return ' ', true
	case k == keysymKPTab:
		return '\t', true
	case k == keysymKPEnter:
		return '\r', true
	case k >= 0xffaa && k <= keysymKP9, k == keysymKPEqual:
		return rune(k - 0xff80), true
	}
	return 0, false
}

// runeKeysym is the inverse of keysymRune for printable characters
func runeKeysym(r rune) uint32 {
	if (r >= 0x20 && r <= 0x7e) || (r >= 0xa0 && r <= 0xff) {
		return uint32(r)
	}
	return 0x01000000 | uint32(r)
}

// keysymCase returns the lowercase and uppercase forms of an alphabetic
// keysym, or k twice for anything else
func keysymCase(k uint32) (lower, upper uint32) {
	r, ok := keysymRune(k)
	if !ok || !unicode.IsLetter(r) {
		return k, k
	}
	return runeKeysym(unicode.ToLower(r)), runeKeysym(unicode.ToUpper(r))
}

// KeysymText returns the UTF-8 text a keysym produces under the given
// modifier state. Control turns @..~ into the matching control character.
func KeysymText(k uint32, state uint16) []byte {
	r, ok := keysymRune(k)
	if !ok {
		return nil
	}

	if state&maskControl != 0 {
		switch {
		case r >= '@' && r <= '~':
			r &= 0x1f
		case r == ' ':
			r = 0
		}
	}

	return utf8.AppendRune(nil, r)
}

// isControlByte reports whether b is an ASCII control character
func isControlByte(b byte) bool {
	return b < 0x20 || b == 0x7f
}
