package macro

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Magic prefixes every macro file.
const Magic = "TAS_V1"

// MaxFrames caps the frame count accepted from a file header.
const MaxFrames = 1 << 20

var (
	ErrBadMagic  = errors.New("macro: invalid file header")
	ErrEmpty     = errors.New("macro: no frames")
	ErrTooLarge  = errors.New("macro: frame count exceeds limit")
	ErrTruncated = errors.New("macro: file truncated")
)

// Encode writes frames in the TAS_V1 layout: magic, int32 count, then the
// frames back to back, all little-endian.
func Encode(w io.Writer, frames []Frame) error {
	if len(frames) == 0 {
		return ErrEmpty
	}
	if len(frames) > MaxFrames {
		return ErrTooLarge
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(Magic); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, int32(len(frames))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, frames); err != nil {
		return fmt.Errorf("write frames: %w", err)
	}
	return bw.Flush()
}

// Decode reads a TAS_V1 stream. It never returns a partial frame list.
func Decode(r io.Reader) ([]Frame, error) {
	var header [len(Magic) + 4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrBadMagic
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(header[:len(Magic)]) != Magic {
		return nil, ErrBadMagic
	}

	n := int32(binary.LittleEndian.Uint32(header[len(Magic):]))
	switch {
	case n <= 0:
		return nil, ErrEmpty
	case n > MaxFrames:
		return nil, ErrTooLarge
	}

	frames := make([]Frame, n)
	if err := binary.Read(r, binary.LittleEndian, frames); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncated
		}
		return nil, fmt.Errorf("read frames: %w", err)
	}
	return frames, nil
}
