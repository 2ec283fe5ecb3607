// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package receiver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"
)

// NMEASource reads NMEA 0183 sentences line by line and emits one epoch
// per time of fix.
type NMEASource struct {
	r   *bufio.Reader
	asm *Assembler

	// Skipped counts lines that were not valid NMEA sentences.
	Skipped int
}

func NewNMEASource(r io.Reader, asm *Assembler) *NMEASource {
	return &NMEASource{r: bufio.NewReader(r), asm: asm}
}

// Next blocks until an epoch is complete. At end of input the last
// pending epoch is returned before io.EOF.
func (s *NMEASource) Next(ctx context.Context) (Epoch, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Epoch{}, err
		}

		line, err := s.r.ReadString('\n')
		if err != nil && line == "" {
			if errors.Is(err, io.EOF) {
				if ep, ok := s.asm.Flush(); ok {
					return ep, nil
				}
			}
			return Epoch{}, err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// NMEA sentences start with '$'
		if !strings.HasPrefix(line, "$") {
			s.Skipped++
			continue
		}

		sentence, perr := nmea.Parse(line)
		if perr != nil {
			// noisy receivers emit partial sentences at startup
			s.Skipped++
			continue
		}

		if ep, ok := s.asm.Add(sentence); ok {
			return ep, nil
		}
	}
}

// Port is an open receiver connection.
type Port struct {
	*NMEASource
	io.Closer
}

// OpenSerial opens the receiver UART at baud, 8N1.
func OpenSerial(name string, baud int, asm *Assembler) (*Port, error) {
	serialOpts := serial.OpenOptions{
		PortName:              name,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return &Port{NMEASource: NewNMEASource(port, asm), Closer: port}, nil
}
