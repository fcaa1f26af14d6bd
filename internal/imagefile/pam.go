package imagefile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// maxPAMPixels bounds the allocation a header can request.
const maxPAMPixels = 1 << 28

// DecodePAM reads a Netpbm PAM image restricted to the RGB tuple type with
// 8-bit samples. The header must be, line by line and byte for byte:
//
//	P7
//	# optional single comment line
//	WIDTH <w>
//	HEIGHT <h>
//	DEPTH 3
//	MAXVAL 255
//	TUPLTYPE RGB
//	ENDHDR
//
// followed by w*h RGB triples. Every pixel of the result is opaque.
// Bytes after the last triple are not read.
func DecodePAM(r io.Reader) (*Raster, error) {
	br := bufio.NewReader(r)

	if err := expectLine(br, "magic", "P7"); err != nil {
		return nil, err
	}
	c, err := br.Peek(1)
	if err != nil {
		return nil, truncated("header", err)
	}
	if c[0] == '#' {
		if _, err := readLine(br, "comment"); err != nil {
			return nil, err
		}
	}

	width, err := readUintField(br, "WIDTH")
	if err != nil {
		return nil, err
	}
	height, err := readUintField(br, "HEIGHT")
	if err != nil {
		return nil, err
	}
	depth, err := readUintField(br, "DEPTH")
	if err != nil {
		return nil, err
	}
	if depth != 3 {
		return nil, &FormatError{Format: "pam", Field: "DEPTH", Got: strconv.Itoa(depth)}
	}
	if err := expectLine(br, "MAXVAL", "MAXVAL 255"); err != nil {
		return nil, err
	}
	if err := expectLine(br, "TUPLTYPE", "TUPLTYPE RGB"); err != nil {
		return nil, err
	}
	if err := expectLine(br, "ENDHDR", "ENDHDR"); err != nil {
		return nil, err
	}

	if width == 0 || height == 0 || width > maxPAMPixels/height {
		return nil, &FormatError{Format: "pam", Field: "dimensions", Got: fmt.Sprintf("%dx%d", width, height)}
	}

	img := &Raster{
		Pix:    make([]uint32, width*height),
		Width:  width,
		Height: height,
	}
	row := make([]byte, width*3)
	for y := range height {
		if _, err := io.ReadFull(br, row); err != nil {
			return nil, truncated("pixel data", err)
		}
		dst := img.Pix[y*width : (y+1)*width]
		for x := range dst {
			dst[x] = Opaque | uint32(row[x*3])<<16 | uint32(row[x*3+1])<<8 | uint32(row[x*3+2])
		}
	}

	slogger().Debug("imagefile: decoded pam", "width", width, "height", height)
	return img, nil
}

// EncodePAM writes img in the format DecodePAM reads. Alpha is dropped.
func EncodePAM(w io.Writer, img *Raster) error {
	if img.Empty() {
		return ErrEmptyImage
	}
	if len(img.Pix) != img.Width*img.Height {
		return ErrInvalidDimensions
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "P7\nWIDTH %d\nHEIGHT %d\nDEPTH 3\nMAXVAL 255\nTUPLTYPE RGB\nENDHDR\n",
		img.Width, img.Height)

	row := make([]byte, img.Width*3)
	for y := range img.Height {
		for x, p := range img.Pix[y*img.Width : (y+1)*img.Width] {
			row[x*3] = uint8(p >> 16)
			row[x*3+1] = uint8(p >> 8)
			row[x*3+2] = uint8(p)
		}
		if _, err := bw.Write(row); err != nil {
			return fmt.Errorf("imagefile: write pam: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("imagefile: write pam: %w", err)
	}
	return nil
}

func readLine(br *bufio.Reader, field string) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return "", truncated(field, err)
	}
	return strings.TrimSuffix(line, "\n"), nil
}

func expectLine(br *bufio.Reader, field, want string) error {
	line, err := readLine(br, field)
	if err != nil {
		return err
	}
	if line != want {
		return &FormatError{Format: "pam", Field: field, Got: line}
	}
	return nil
}

func readUintField(br *bufio.Reader, name string) (int, error) {
	line, err := readLine(br, name)
	if err != nil {
		return 0, err
	}
	rest, ok := strings.CutPrefix(line, name+" ")
	if !ok {
		return 0, &FormatError{Format: "pam", Field: name, Got: line}
	}
	n, err := strconv.ParseUint(rest, 10, 31)
	if err != nil {
		return 0, &FormatError{Format: "pam", Field: name, Got: line, Err: err}
	}
	return int(n), nil
}

// truncated classifies a read failure: running out of input is a format
// error, anything else is passed on as an I/O error.
func truncated(field string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &FormatError{Format: "pam", Field: field, Err: io.ErrUnexpectedEOF}
	}
	return fmt.Errorf("imagefile: read pam %s: %w", field, err)
}
