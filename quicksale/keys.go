package quicksale

import (
	"bufio"
	"io"
	"strings"
	"unicode"
)

// KeyKind identifies a decoded keystroke
type KeyKind int

const (
	KeyUnknown KeyKind = iota
	KeyRune
	KeyUp
	KeyDown
	KeyEnter
	KeyEscape
	KeyBackspace
	KeyDelete
	KeyTab
	KeyCheckout
	KeyClearCart
	KeyQuit
)

// Key is one keystroke; Rune is set for KeyRune
type Key struct {
	Kind KeyKind
	Rune rune
}

const (
	ctrlC = 0x03
	ctrlD = 0x04
	ctrlS = 0x13
	ctrlX = 0x18
	esc   = 0x1b
	bs    = 0x08
	del   = 0x7f
)

// KeyReader decodes raw terminal input into keys
type KeyReader struct {
	r *bufio.Reader
}

// NewKeyReader wraps r
func NewKeyReader(r io.Reader) *KeyReader {
	return &KeyReader{r: bufio.NewReader(r)}
}

// ReadKey blocks for the next key
func (kr *KeyReader) ReadKey() (Key, error) {
	b, err := kr.r.ReadByte()
	if err != nil {
		return Key{}, err
	}

	switch b {
	case esc:
		return kr.escape()
	case '\r':
		// CRLF from piped input is one Enter
		if kr.r.Buffered() > 0 {
			if next, _ := kr.r.Peek(1); next[0] == '\n' {
				_, _ = kr.r.ReadByte()
			}
		}
		return Key{Kind: KeyEnter}, nil
	case '\n':
		return Key{Kind: KeyEnter}, nil
	case '\t':
		return Key{Kind: KeyTab}, nil
	case bs, del:
		return Key{Kind: KeyBackspace}, nil
	case ctrlC, ctrlD:
		return Key{Kind: KeyQuit}, nil
	case ctrlS:
		return Key{Kind: KeyCheckout}, nil
	case ctrlX:
		return Key{Kind: KeyClearCart}, nil
	}

	if err := kr.r.UnreadByte(); err != nil {
		return Key{}, err
	}
	r, _, err := kr.r.ReadRune()
	if err != nil {
		return Key{}, err
	}
	if r == unicode.ReplacementChar || !unicode.IsPrint(r) {
		return Key{Kind: KeyUnknown}, nil
	}
	return Key{Kind: KeyRune, Rune: r}, nil
}

// escape decodes a CSI/SS3 sequence, or a lone Escape when nothing follows in the buffer.
// CSI parameter and intermediate bytes are consumed up to the final byte so modified keys
// such as ESC[1;5A never leak into the input as runes.
func (kr *KeyReader) escape() (Key, error) {
	if kr.r.Buffered() == 0 {
		return Key{Kind: KeyEscape}, nil
	}
	next, _ := kr.r.Peek(1)
	if next[0] != '[' && next[0] != 'O' {
		return Key{Kind: KeyEscape}, nil
	}
	intro, _ := kr.r.ReadByte()

	var params []byte
	for {
		b, err := kr.r.ReadByte()
		if err != nil {
			return Key{Kind: KeyUnknown}, nil
		}
		if intro == '[' && b >= 0x20 && b <= 0x3f {
			params = append(params, b)
			continue
		}
		if b < 0x40 || b > 0x7e {
			return Key{Kind: KeyUnknown}, nil
		}
		return csiKey(string(params), b), nil
	}
}

func csiKey(params string, final byte) Key {
	switch final {
	case 'A':
		return Key{Kind: KeyUp}
	case 'B':
		return Key{Kind: KeyDown}
	case '~':
		// ESC[3~, or ESC[3;5~ with a modifier
		if params == "3" || strings.HasPrefix(params, "3;") {
			return Key{Kind: KeyDelete}
		}
	}
	return Key{Kind: KeyUnknown}
}
