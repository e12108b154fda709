package extraction

import (
	"bytes"
	"strconv"
	"strings"
)

// kerningSpace is the TJ adjustment, in thousandths of an em, beyond which
// a gap between two strings is rendered as a word break.
const kerningSpace = 200

type tokenKind int

const (
	tokString tokenKind = iota
	tokNumber
	tokName
	tokOperator
	tokArray
)

type token struct {
	kind  tokenKind
	text  string
	num   float64
	items []token
}

// DecodeContentStream returns the text shown by a page content stream.
// It understands the text-showing operators (Tj, TJ, ' and ") and the
// line-positioning operators that imply a line break. Glyphs drawn through
// fonts with custom encodings are decoded as Latin-1 and may be garbled.
func DecodeContentStream(raw []byte) string {
	s := &streamScanner{buf: raw}
	var (
		out      strings.Builder
		line     strings.Builder
		operands []token
		stack    [][]token
	)
	newline := func() {
		if l := strings.TrimSpace(line.String()); l != "" {
			out.WriteString(l)
			out.WriteByte('\n')
		}
		line.Reset()
	}

	for {
		tok, ok := s.next()
		if !ok {
			break
		}
		switch {
		case tok.kind == tokOperator && tok.text == "[":
			stack = append(stack, operands)
			operands = nil
			continue
		case tok.kind == tokOperator && tok.text == "]":
			arr := token{kind: tokArray, items: operands}
			if n := len(stack); n > 0 {
				operands = append(stack[n-1], arr)
				stack = stack[:n-1]
			} else {
				operands = []token{arr}
			}
			continue
		case tok.kind != tokOperator:
			operands = append(operands, tok)
			continue
		}

		switch tok.text {
		case "Tj":
			if str, ok := lastString(operands); ok {
				line.WriteString(str)
			}
		case "'", "\"":
			newline()
			if str, ok := lastString(operands); ok {
				line.WriteString(str)
			}
		case "TJ":
			if n := len(operands); n > 0 && operands[n-1].kind == tokArray {
				for _, item := range operands[n-1].items {
					switch item.kind {
					case tokString:
						line.WriteString(item.text)
					case tokNumber:
						if item.num < -kerningSpace {
							line.WriteByte(' ')
						}
					}
				}
			}
		case "T*", "ET":
			newline()
		case "Td", "TD":
			if n := len(operands); n >= 2 && operands[n-1].kind == tokNumber && operands[n-1].num != 0 {
				newline()
			} else if line.Len() > 0 {
				line.WriteByte(' ')
			}
		case "Tm":
			newline()
		case "BI":
			s.skipInlineImage()
		}
		operands = operands[:0]
	}
	newline()
	return strings.TrimRight(out.String(), "\n")
}

func lastString(operands []token) (string, bool) {
	if n := len(operands); n > 0 && operands[n-1].kind == tokString {
		return operands[n-1].text, true
	}
	return "", false
}

type streamScanner struct {
	buf []byte
	pos int
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == 0
}

func isDelimiter(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func (s *streamScanner) next() (token, bool) {
	for s.pos < len(s.buf) {
		c := s.buf[s.pos]
		switch {
		case isSpace(c):
			s.pos++
		case c == '%':
			for s.pos < len(s.buf) && s.buf[s.pos] != '\n' && s.buf[s.pos] != '\r' {
				s.pos++
			}
		case c == '(':
			s.pos++
			return token{kind: tokString, text: s.literal()}, true
		case c == '<':
			if s.pos+1 < len(s.buf) && s.buf[s.pos+1] == '<' {
				s.pos += 2
				return token{kind: tokOperator, text: "<<"}, true
			}
			s.pos++
			return token{kind: tokString, text: s.hex()}, true
		case c == '>':
			s.pos++
			if s.pos < len(s.buf) && s.buf[s.pos] == '>' {
				s.pos++
			}
			return token{kind: tokOperator, text: ">>"}, true
		case c == '[' || c == ']' || c == '{' || c == '}':
			s.pos++
			return token{kind: tokOperator, text: string(c)}, true
		case c == '/':
			s.pos++
			return token{kind: tokName, text: s.regular()}, true
		default:
			word := s.regular()
			if word == "" {
				s.pos++
				continue
			}
			if f, err := strconv.ParseFloat(word, 64); err == nil {
				return token{kind: tokNumber, num: f, text: word}, true
			}
			return token{kind: tokOperator, text: word}, true
		}
	}
	return token{}, false
}

func (s *streamScanner) regular() string {
	start := s.pos
	for s.pos < len(s.buf) && !isSpace(s.buf[s.pos]) && !isDelimiter(s.buf[s.pos]) {
		s.pos++
	}
	return string(s.buf[start:s.pos])
}

// literal reads a (...) string body; the opening paren is consumed.
func (s *streamScanner) literal() string {
	var b []byte
	depth := 1
	for s.pos < len(s.buf) {
		c := s.buf[s.pos]
		s.pos++
		switch c {
		case '(':
			depth++
			b = append(b, c)
		case ')':
			depth--
			if depth == 0 {
				return latin1(b)
			}
			b = append(b, c)
		case '\\':
			if s.pos >= len(s.buf) {
				return latin1(b)
			}
			e := s.buf[s.pos]
			s.pos++
			switch e {
			case 'n':
				b = append(b, '\n')
			case 'r':
				b = append(b, '\r')
			case 't':
				b = append(b, '\t')
			case 'b', 'f':
			case '\r':
				if s.pos < len(s.buf) && s.buf[s.pos] == '\n' {
					s.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && s.pos < len(s.buf) && s.buf[s.pos] >= '0' && s.buf[s.pos] <= '7'; i++ {
						v = v*8 + int(s.buf[s.pos]-'0')
						s.pos++
					}
					b = append(b, byte(v))
				} else {
					b = append(b, e)
				}
			}
		default:
			b = append(b, c)
		}
	}
	return latin1(b)
}

// hex reads a <...> string body; the opening bracket is consumed.
func (s *streamScanner) hex() string {
	var digits []byte
	for s.pos < len(s.buf) {
		c := s.buf[s.pos]
		s.pos++
		if c == '>' {
			break
		}
		if isHexDigit(c) {
			digits = append(digits, c)
		}
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	b := make([]byte, 0, len(digits)/2)
	for i := 0; i < len(digits); i += 2 {
		v, _ := strconv.ParseUint(string(digits[i:i+2]), 16, 8)
		b = append(b, byte(v))
	}
	// Two-byte glyph codes are common with hex strings; keep only the
	// printable single bytes.
	if bytes.IndexByte(b, 0) >= 0 {
		b = bytes.ReplaceAll(b, []byte{0}, nil)
	}
	return latin1(b)
}

// skipInlineImage advances past the binary data of a BI ... ID ... EI block.
func (s *streamScanner) skipInlineImage() {
	idx := bytes.Index(s.buf[s.pos:], []byte("ID"))
	if idx < 0 {
		s.pos = len(s.buf)
		return
	}
	s.pos += idx + 2
	for s.pos < len(s.buf) {
		idx := bytes.Index(s.buf[s.pos:], []byte("EI"))
		if idx < 0 {
			s.pos = len(s.buf)
			return
		}
		at := s.pos + idx
		end := at + 2
		if at > 0 && isSpace(s.buf[at-1]) && (end == len(s.buf) || isSpace(s.buf[end])) {
			s.pos = end
			return
		}
		s.pos = end
	}
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func latin1(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		if c < 0x20 && c != '\n' && c != '\t' {
			continue
		}
		sb.WriteRune(rune(c))
	}
	return sb.String()
}
