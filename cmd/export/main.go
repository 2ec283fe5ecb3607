// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Command export converts a recorder log into GPX or GeoJSON.
//
//	export -in gnss.log -out drive.gpx
package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/gnss_positioning/internal/app"
)

func main() {
	in := flag.String("in", "gnss.log", "recorder log to read")
	out := flag.String("out", "track.gpx", "output file, .gpx or .geojson")
	flag.Parse()

	if err := app.RunExport(*in, *out); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
