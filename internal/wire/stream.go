// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package wire

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
)

const maxFrame = 0xFFFF

// Writer appends length-prefixed frames to a log. It is safe for use
// from several MQTT handler goroutines.
type Writer struct {
	mu sync.Mutex
	w  *bufio.Writer
	n  int
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write marshals v and appends it as one frame.
func (w *Writer) Write(v any) error {
	frame, err := Marshal(v)
	if err != nil {
		return err
	}
	return w.WriteFrame(frame)
}

// WriteFrame appends an already encoded frame.
func (w *Writer) WriteFrame(frame []byte) error {
	if len(frame) > maxFrame {
		return fmt.Errorf("wire: frame of %d bytes too large", len(frame))
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	var l [2]byte
	order.PutUint16(l[:], uint16(len(frame)))
	if _, err := w.w.Write(l[:]); err != nil {
		return err
	}
	if _, err := w.w.Write(frame); err != nil {
		return err
	}
	w.n++
	return nil
}

// Frames returns the number of frames written so far.
func (w *Writer) Frames() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Flush()
}

// Reader reads frames written by Writer.
type Reader struct {
	r *bufio.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// NextFrame returns the next raw frame, or io.EOF at a clean end of log.
func (r *Reader) NextFrame() ([]byte, error) {
	var l [2]byte
	if _, err := io.ReadFull(r.r, l[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortFrame
		}
		return nil, err
	}
	frame := make([]byte, binary.LittleEndian.Uint16(l[:]))
	if _, err := io.ReadFull(r.r, frame); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortFrame
		}
		return nil, err
	}
	return frame, nil
}

// Next decodes the next record. See Unmarshal for the returned types.
func (r *Reader) Next() (any, error) {
	frame, err := r.NextFrame()
	if err != nil {
		return nil, err
	}
	return Unmarshal(frame)
}
