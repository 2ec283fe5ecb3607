// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"image"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/gnss_positioning/internal/bus"
	"github.com/relabs-tech/gnss_positioning/internal/config"
	"github.com/relabs-tech/gnss_positioning/internal/gnss"
)

// screen is the part of *ssd1306.Dev the display loop draws on.
type screen interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
}

// DisplayData holds the latest data for display
type DisplayData struct {
	mu sync.RWMutex

	pos      gnss.Position
	havePos  bool
	tm       gnss.Time
	haveTime bool
	sats     []gnss.SatelliteDetail
	haveSats bool
}

func RunDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	i2cBus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer i2cBus.Close()

	dev, err := ssd1306.NewI2C(i2cBus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Println("display: initialized")

	if err := render(dev, []string{"GNSS Pi", "Looking for", "sats"}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	client, format, err := connect(cfg, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	data := &DisplayData{}
	if err := subscribeForContent(bus.NewSubscriber(client, topics(cfg), format), cfg.DisplayContent, data); err != nil {
		return fmt.Errorf("failed to subscribe for display: %w", err)
	}

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for range ticker.C {
		if err := render(dev, displayLines(cfg.DisplayContent, data)); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}

	return nil
}

func subscribeForContent(sub *bus.Subscriber, content string, data *DisplayData) error {
	switch content {
	case "position":
		return sub.OnPosition(func(p gnss.Position) {
			data.mu.Lock()
			data.pos, data.havePos = p, true
			data.mu.Unlock()
		})
	case "time":
		return sub.OnTime(func(t gnss.Time) {
			data.mu.Lock()
			data.tm, data.haveTime = t, true
			data.mu.Unlock()
		})
	case "satellites":
		return sub.OnSatellites(func(sats []gnss.SatelliteDetail) {
			data.mu.Lock()
			data.sats, data.haveSats = sats, true
			data.mu.Unlock()
		})
	}
	return fmt.Errorf("unknown display content type: %s", content)
}

// displayLines formats up to four 7x13 lines for the 128x64 panel.
func displayLines(content string, data *DisplayData) []string {
	data.mu.RLock()
	defer data.mu.RUnlock()

	switch content {
	case "position":
		if !data.havePos {
			return waiting("GNSS Position")
		}
		return positionScreen(data.pos)
	case "time":
		if !data.haveTime {
			return waiting("GNSS Time")
		}
		return timeScreen(data.tm)
	case "satellites":
		if !data.haveSats {
			return waiting("Satellites")
		}
		return satelliteScreen(data.sats)
	}
	return []string{"unknown content", content}
}

func waiting(title string) []string {
	return []string{"", title, "Waiting..."}
}

func positionScreen(p gnss.Position) []string {
	lines := []string{fmt.Sprintf("Fix %s sats %s", fmtOpt(p.FixStatus, "%s", 2), fmtOpt(p.UsedSatellites, "%d", 2))}
	lines = append(lines, hemisphere(p.Latitude, "N", "S"), hemisphere(p.Longitude, "E", "W"))
	if alt, ok := p.AltitudeMSL.Get(); ok {
		lines = append(lines, fmt.Sprintf("Alt: %.0fm", alt))
	} else {
		lines = append(lines, "Alt: "+invalid)
	}
	return lines
}

func hemisphere(o gnss.Opt[float64], pos, neg string) string {
	v, ok := o.Get()
	if !ok {
		return invalid
	}
	dir := pos
	if v < 0 {
		dir, v = neg, -v
	}
	return fmt.Sprintf("%.4f%s", v, dir)
}

func timeScreen(t gnss.Time) []string {
	date, clock := "Date "+invalid, "Time "+invalid
	if d, ok := t.Date.Get(); ok {
		date = fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month)+1, d.Day)
	}
	if c, ok := t.Clock.Get(); ok {
		clock = fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
	}
	return []string{date, clock, fmt.Sprintf("%s leap %s", fmtOpt(t.Scale, "%s", 3), fmtOpt(t.LeapSeconds, "%d", 2))}
}

// satelliteScreen shows the counts and the three strongest signals.
func satelliteScreen(sats []gnss.SatelliteDetail) []string {
	used, tracked := 0, 0
	for _, s := range sats {
		if s.Used.Or(false) {
			used++
		}
		if s.Tracking() {
			tracked++
		}
	}
	lines := []string{fmt.Sprintf("Sats %d/%d/%d", used, tracked, len(sats))}

	strongest := make([]gnss.SatelliteDetail, 0, len(sats))
	for _, s := range sats {
		if s.Tracking() {
			strongest = append(strongest, s)
		}
	}
	sort.SliceStable(strongest, func(i, j int) bool {
		return strongest[i].CNo.Or(0) > strongest[j].CNo.Or(0)
	})
	for i, s := range strongest {
		if i == 3 {
			break
		}
		mark := " "
		if s.Used.Or(false) {
			mark = "*"
		}
		lines = append(lines, fmt.Sprintf("%s%s%s %2ddB", mark, systemLetter(s.System), fmtOpt(s.ID, "%02d", 2), s.CNo.Or(0)))
	}
	return lines
}

// systemLetter is the one letter RINEX constellation code.
func systemLetter(o gnss.Opt[gnss.System]) string {
	sys, ok := o.Get()
	switch {
	case !ok:
		return "?"
	case sys.IsSBAS():
		return "S"
	case sys.Has(gnss.SystemGPS):
		return "G"
	case sys.Has(gnss.SystemGLONASS):
		return "R"
	case sys.Has(gnss.SystemGalileo):
		return "E"
	case sys.Has(gnss.SystemBeiDou):
		return "C"
	}
	return "?"
}

// renderLines draws the lines top to bottom on a blank 128x64 image.
func renderLines(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		if i == 4 {
			break
		}
		drawer.Dot = fixed.P(0, 13*(i+1))
		drawer.DrawBytes([]byte(line))
	}
	return img
}

func render(dev screen, lines []string) error {
	return dev.Draw(dev.Bounds(), renderLines(lines), image.Point{})
}
