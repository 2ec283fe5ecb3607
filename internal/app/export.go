// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/relabs-tech/gnss_positioning/internal/gnss"
	"github.com/relabs-tech/gnss_positioning/internal/track"
	"github.com/relabs-tech/gnss_positioning/internal/wire"
)

var gpxParams = gpx.ToXmlParams{Version: "1.1", Indent: true}

// RunExport converts the positions of a recorder log into a GPX track or
// a GeoJSON feature collection, chosen by the extension of outPath.
func RunExport(logPath, outPath string) error {
	in, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open recorder log: %w", err)
	}
	defer in.Close()

	ps, err := readPositions(in)
	if err != nil {
		return fmt.Errorf("%s: %w", logPath, err)
	}

	var data []byte
	switch strings.ToLower(filepath.Ext(outPath)) {
	case ".gpx":
		name := strings.TrimSuffix(filepath.Base(logPath), filepath.Ext(logPath))
		data, err = track.GPX(name, ps).ToXml(gpxParams)
	case ".geojson", ".json":
		data, err = track.FeatureCollection(ps).MarshalJSON()
	default:
		return fmt.Errorf("unsupported export format %q (want .gpx or .geojson)", filepath.Ext(outPath))
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return err
	}
	log.Printf("export: wrote %d positions to %s", len(ps), outPath)
	return nil
}

// readPositions returns the positions of a wire log in file order,
// skipping the other record kinds.
func readPositions(r io.Reader) ([]gnss.Position, error) {
	wr := wire.NewReader(r)
	var ps []gnss.Position
	for n := 0; ; n++ {
		v, err := wr.Next()
		if errors.Is(err, io.EOF) {
			return ps, nil
		}
		if err != nil {
			return ps, fmt.Errorf("frame %d: %w", n, err)
		}
		if p, ok := v.(gnss.Position); ok {
			ps = append(ps, p)
		}
	}
}
