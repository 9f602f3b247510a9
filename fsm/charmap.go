package fsm

import (
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

const rce = '?' // encoding replacement character

// ASCII encodes state names for the name observables: printable ASCII maps
// to itself, everything else to '?'. Decoding drops the NUL padding in front
// of names shorter than the observable.
var ASCII encoding.Encoding = &charmap{}

type charmap struct{}

func (m *charmap) NewDecoder() *encoding.Decoder {
	return &encoding.Decoder{Transformer: &decoder{}}
}

func (m *charmap) NewEncoder() *encoding.Encoder {
	return &encoding.Encoder{Transformer: &encoder{}}
}

func printable(r rune) bool { return r >= ' ' && r <= '~' }

type decoder struct{}

func (d *decoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		c := src[nSrc]
		if c == 0 {
			nSrc++
			continue
		}
		r := rune(c)
		if !printable(r) {
			r = utf8.RuneError
		}
		if utf8.RuneLen(r) > len(dst)-nDst {
			err = transform.ErrShortDst
			break
		}
		nDst += utf8.EncodeRune(dst[nDst:], r)
		nSrc++
	}
	return
}

func (d *decoder) Reset() {}

type encoder struct{}

func (e *encoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		if !atEOF && !utf8.FullRune(src[nSrc:]) {
			err = transform.ErrShortSrc
			break
		}
		r, size := utf8.DecodeRune(src[nSrc:])
		if nDst >= len(dst) {
			err = transform.ErrShortDst
			break
		}
		if printable(r) {
			dst[nDst] = byte(r)
		} else {
			dst[nDst] = rce
		}
		nDst++
		nSrc += size
	}
	return
}

func (e *encoder) Reset() {}
