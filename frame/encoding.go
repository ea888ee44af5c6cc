package frame

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// ASCII is 7-bit US-ASCII. Bytes above 0x7F decode to '?' and runes above
// 0x7F encode to '?'.
var ASCII encoding.Encoding = asciiEncoding{}

type asciiEncoding struct{}

func (asciiEncoding) NewDecoder() *encoding.Decoder {
	return &encoding.Decoder{Transformer: asciiDecoder{}}
}

func (asciiEncoding) NewEncoder() *encoding.Encoder {
	return &encoding.Encoder{Transformer: asciiEncoder{}}
}

func (asciiEncoding) String() string { return "US-ASCII" }

type asciiDecoder struct{ transform.NopResetter }

func (asciiDecoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		if nDst >= len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		b := src[nSrc]
		if b >= utf8.RuneSelf {
			b = '?'
		}
		dst[nDst] = b
		nDst++
		nSrc++
	}
	return nDst, nSrc, nil
}

type asciiEncoder struct{ transform.NopResetter }

func (asciiEncoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		if nDst >= len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		b := src[nSrc]
		if b < utf8.RuneSelf {
			dst[nDst] = b
			nDst++
			nSrc++
			continue
		}
		if !atEOF && !utf8.FullRune(src[nSrc:]) {
			return nDst, nSrc, transform.ErrShortSrc
		}
		_, size := utf8.DecodeRune(src[nSrc:])
		dst[nDst] = '?'
		nDst++
		nSrc += size
	}
	return nDst, nSrc, nil
}

// LookupEncoding resolves an IANA charset name such as "utf-8",
// "iso-8859-1" or "windows-1252". "ascii", "us-ascii" and "" give ASCII.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "ascii", "us-ascii":
		return ASCII, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("encoding %q is not supported", name)
	}
	return enc, nil
}

// decode turns received bytes into text. Bytes the encoding cannot decode
// are kept as they are and the anomaly is logged.
func (c *Config) decode(enc encoding.Encoding, b []byte) string {
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		c.Logger.Warn("decode %d bytes: %v", len(b), err)
		return string(b)
	}
	return string(out)
}

// encode turns text into wire bytes, replacing unrepresentable runes.
func (c *Config) encode(msg string) []byte {
	out, err := encoding.ReplaceUnsupported(c.Encoding.NewEncoder()).Bytes([]byte(msg))
	if err != nil {
		c.Logger.Warn("encode %d bytes: %v", len(msg), err)
		return []byte(msg)
	}
	return out
}
