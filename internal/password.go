package internal

import (
	"unicode/utf8"

	"golang.org/x/sys/unix"
)

// PasswordCapacity is the maximum number of bytes a password may hold
const PasswordCapacity = 255

// PasswordBuffer accumulates typed password bytes in a fixed array. Bytes
// past the current length are always zero, and the array is kept NUL
// terminated so a snapshot never needs a copy.
type PasswordBuffer struct {
	data   [PasswordCapacity + 1]byte
	n      int
	locked bool
}

// NewPasswordBuffer returns an empty buffer, locked into memory when the
// process is allowed to
func NewPasswordBuffer() *PasswordBuffer {
	p := &PasswordBuffer{}
	if err := unix.Mlock(p.data[:]); err != nil {
		Debug("Could not mlock password buffer: %v", err)
	} else {
		p.locked = true
	}
	return p
}

// Len returns the number of bytes held
func (p *PasswordBuffer) Len() int {
	return p.n
}

// Append adds text to the buffer. Nothing is added if all of text does not
// fit; the return value reports whether it was added.
func (p *PasswordBuffer) Append(text []byte) bool {
	if len(text) == 0 || p.n+len(text) > PasswordCapacity {
		return false
	}
	p.n += copy(p.data[p.n:], text)
	return true
}

// Backspace removes the last UTF-8 character
func (p *PasswordBuffer) Backspace() {
	if p.n == 0 {
		return
	}
	_, size := utf8.DecodeLastRune(p.data[:p.n])
	for i := p.n - size; i < p.n; i++ {
		p.data[i] = 0
	}
	p.n -= size
}

// Candidate returns the current contents. The slice aliases the buffer and
// is only valid until the next Wipe.
func (p *PasswordBuffer) Candidate() []byte {
	return p.data[:p.n:p.n]
}

// Wipe zeroes every byte and resets the length
func (p *PasswordBuffer) Wipe() {
	clear(p.data[:])
	p.n = 0
}

// Close wipes the buffer and releases the memory lock
func (p *PasswordBuffer) Close() {
	p.Wipe()
	if p.locked {
		unix.Munlock(p.data[:])
		p.locked = false
	}
}
