package raster

// TIFF-flavored LZW decompression.
//
// TIFF's LZW variant differs from the GIF/PDF format that Go's compress/lzw
// package handles: TIFF switches to the wider code one code earlier than GIF
// does ("early change"), widening as soon as the next table entry would be
// the last one the current width can express. Go's
// compress/lzw implements the GIF variant and raises "invalid code" errors on
// TIFF streams, hence this standalone decoder (TIFF 6.0 spec, section 13).

import (
	"errors"
	"io"
)

const (
	lzwMaxWidth  = 12
	lzwClearCode = 256
	lzwEOICode   = 257
	lzwFirstCode = 258
)

type lzwEntry struct {
	prefix int
	suffix byte
	length int
}

func decompressTIFFLZW(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	d := &lzwDecoder{src: data}
	return d.decode()
}

type lzwDecoder struct {
	src    []byte
	bitPos int
}

func (d *lzwDecoder) readBits(n int) (int, error) {
	if n <= 0 || n > 16 {
		return 0, errors.New("lzw: invalid bit count")
	}
	result := 0
	for i := 0; i < n; i++ {
		bytePos := d.bitPos / 8
		bitOff := 7 - (d.bitPos % 8)
		if bytePos >= len(d.src) {
			return 0, io.ErrUnexpectedEOF
		}
		bit := (int(d.src[bytePos]) >> bitOff) & 1
		result = (result << 1) | bit
		d.bitPos++
	}
	return result, nil
}

func (d *lzwDecoder) decode() ([]byte, error) {
	table := make([]lzwEntry, 4097)
	for i := 0; i < 256; i++ {
		table[i] = lzwEntry{prefix: -1, suffix: byte(i), length: 1}
	}

	nextCode := lzwFirstCode
	codeWidth := 9

	var output []byte
	var buf []byte

	getString := func(code int) []byte {
		entry := &table[code]
		buf = buf[:0]
		buf = append(buf, make([]byte, entry.length)...)
		idx := entry.length - 1
		for code >= 0 {
			e := &table[code]
			buf[idx] = e.suffix
			idx--
			code = e.prefix
		}
		return buf
	}

	code, err := d.readBits(codeWidth)
	if err != nil {
		return nil, err
	}
	if code != lzwClearCode {
		return nil, errors.New("lzw: stream does not start with a clear code")
	}

	prevCode := -1

	for {
		code, err := d.readBits(codeWidth)
		if err != nil {
			if err == io.ErrUnexpectedEOF {
				return output, nil
			}
			return nil, err
		}

		if code == lzwEOICode {
			return output, nil
		}

		if code == lzwClearCode {
			nextCode = lzwFirstCode
			codeWidth = 9
			prevCode = -1
			continue
		}

		if prevCode == -1 {
			if code >= 256 {
				return nil, errors.New("lzw: first code after clear is not a literal")
			}
			output = append(output, byte(code))
			prevCode = code
			continue
		}

		var outStr []byte
		if code < nextCode {
			outStr = getString(code)
			output = append(output, outStr...)
			if nextCode < 4097 {
				table[nextCode] = lzwEntry{prefix: prevCode, suffix: outStr[0], length: table[prevCode].length + 1}
				nextCode++
			}
		} else if code == nextCode {
			prevStr := getString(prevCode)
			firstByte := prevStr[0]
			output = append(output, prevStr...)
			output = append(output, firstByte)
			if nextCode < 4097 {
				table[nextCode] = lzwEntry{prefix: prevCode, suffix: firstByte, length: table[prevCode].length + 1}
				nextCode++
			}
		} else {
			return nil, errors.New("lzw: invalid code")
		}

		if nextCode+1 >= (1<<codeWidth) && codeWidth < lzwMaxWidth {
			codeWidth++
		}

		prevCode = code
	}
}
