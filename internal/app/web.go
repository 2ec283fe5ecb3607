// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/gnss_positioning/internal/bus"
	"github.com/relabs-tech/gnss_positioning/internal/config"
	"github.com/relabs-tech/gnss_positioning/internal/gnss"
	"github.com/relabs-tech/gnss_positioning/internal/metrics"
	"github.com/relabs-tech/gnss_positioning/internal/repository"
	"github.com/relabs-tech/gnss_positioning/internal/track"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// liveUpdate is one message pushed to websocket clients.
type liveUpdate struct {
	Type string `json:"type"` // position, time, satellites
	Data any    `json:"data"`
}

// webState holds the latest record of each kind plus the track history.
type webState struct {
	mu       sync.RWMutex
	pos      gnss.Position
	havePos  bool
	tm       gnss.Time
	haveTime bool
	sats     []gnss.SatelliteDetail
	haveSats bool

	history *track.History

	subsMu sync.Mutex
	subs   map[chan liveUpdate]struct{}
}

func newWebState(historySize int) *webState {
	return &webState{
		history: track.NewHistory(historySize),
		subs:    make(map[chan liveUpdate]struct{}),
	}
}

func (s *webState) setPosition(p gnss.Position) {
	s.mu.Lock()
	s.pos, s.havePos = p, true
	s.mu.Unlock()
	s.history.Add(p)
	s.broadcast(liveUpdate{Type: "position", Data: p})
}

func (s *webState) setTime(t gnss.Time) {
	s.mu.Lock()
	s.tm, s.haveTime = t, true
	s.mu.Unlock()
	s.broadcast(liveUpdate{Type: "time", Data: t})
}

func (s *webState) setSatellites(sats []gnss.SatelliteDetail) {
	s.mu.Lock()
	s.sats, s.haveSats = sats, true
	s.mu.Unlock()
	s.broadcast(liveUpdate{Type: "satellites", Data: sats})
}

// snapshot returns the current records as updates, for a new client.
func (s *webState) snapshot() []liveUpdate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []liveUpdate
	if s.haveTime {
		out = append(out, liveUpdate{Type: "time", Data: s.tm})
	}
	if s.haveSats {
		out = append(out, liveUpdate{Type: "satellites", Data: s.sats})
	}
	if s.havePos {
		out = append(out, liveUpdate{Type: "position", Data: s.pos})
	}
	return out
}

func (s *webState) subscribe() chan liveUpdate {
	ch := make(chan liveUpdate, 16)
	s.subsMu.Lock()
	s.subs[ch] = struct{}{}
	s.subsMu.Unlock()
	return ch
}

func (s *webState) unsubscribe(ch chan liveUpdate) {
	s.subsMu.Lock()
	delete(s.subs, ch)
	s.subsMu.Unlock()
}

// broadcast never blocks; a client too slow to drain its queue misses
// updates.
func (s *webState) broadcast(u liveUpdate) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- u:
		default:
		}
	}
}

// positionQuerier is the read side of the recorder database.
type positionQuerier interface {
	Sessions(ctx context.Context) ([]uuid.UUID, error)
	Range(ctx context.Context, session uuid.UUID, from, to time.Time) ([]gnss.Position, error)
}

func RunWeb() error {
	cfg := config.Get()

	client, format, err := connect(cfg, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	state := newWebState(cfg.TrackHistorySize)
	m := metrics.New("web")

	sub := bus.NewSubscriber(client, topics(cfg), format)
	sub.OnError = func(topic string, err error) {
		m.DecodeErrors.WithLabelValues(topic).Inc()
		log.Printf("web: %s decode error: %v", topic, err)
	}
	if err := sub.OnPosition(func(p gnss.Position) {
		m.Received.WithLabelValues("position").Inc()
		m.ObservePosition(p)
		state.setPosition(p)
	}); err != nil {
		return err
	}
	if err := sub.OnTime(func(t gnss.Time) {
		m.Received.WithLabelValues("time").Inc()
		state.setTime(t)
	}); err != nil {
		return err
	}
	if err := sub.OnSatellites(func(sats []gnss.SatelliteDetail) {
		m.Received.WithLabelValues("satellites").Inc()
		state.setSatellites(sats)
	}); err != nil {
		return err
	}

	var store positionQuerier
	if cfg.RecorderDBDSN != "" {
		db, err := repository.ConnectWithRetry(cfg.RecorderDBDSN, 10, 2*time.Second)
		if err != nil {
			return err
		}
		store = repository.NewPositionRepository(db)
		log.Println("web: recorded sessions available under /api/sessions")
	}

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web server listening on %s", addr)
	return http.ListenAndServe(addr, newWebMux(state, m, store, "web"))
}

func newWebMux(state *webState, m *metrics.Metrics, store positionQuerier, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/position", func(w http.ResponseWriter, r *http.Request) {
		state.mu.RLock()
		p, ok := state.pos, state.havePos
		state.mu.RUnlock()
		writeLatest(w, p, ok)
	})
	mux.HandleFunc("GET /api/time", func(w http.ResponseWriter, r *http.Request) {
		state.mu.RLock()
		t, ok := state.tm, state.haveTime
		state.mu.RUnlock()
		writeLatest(w, t, ok)
	})
	mux.HandleFunc("GET /api/satellites", func(w http.ResponseWriter, r *http.Request) {
		state.mu.RLock()
		sats, ok := state.sats, state.haveSats
		state.mu.RUnlock()
		writeLatest(w, sats, ok)
	})

	mux.HandleFunc("GET /api/track", func(w http.ResponseWriter, r *http.Request) {
		writeGeoJSON(w, state.history.Positions())
	})
	mux.HandleFunc("GET /api/track.gpx", func(w http.ResponseWriter, r *http.Request) {
		writeGPX(w, "live", state.history.Positions())
	})

	if store != nil {
		mux.HandleFunc("GET /api/sessions", func(w http.ResponseWriter, r *http.Request) {
			ids, err := store.Sessions(r.Context())
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, ids)
		})
		mux.HandleFunc("GET /api/sessions/{id}/track", func(w http.ResponseWriter, r *http.Request) {
			ps, ok := sessionPositions(w, r, store)
			if !ok {
				return
			}
			writeGeoJSON(w, ps)
		})
		mux.HandleFunc("GET /api/sessions/{id}/track.gpx", func(w http.ResponseWriter, r *http.Request) {
			ps, ok := sessionPositions(w, r, store)
			if !ok {
				return
			}
			writeGPX(w, r.PathValue("id"), ps)
		})
	}

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveLive(w, r, state)
	})
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	return mux
}

// sessionPositions parses the session id and the optional from/to query
// (Unix ms) and loads the positions. It writes the error response itself.
func sessionPositions(w http.ResponseWriter, r *http.Request, store positionQuerier) ([]gnss.Position, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return nil, false
	}
	from, err := queryMillis(r, "from", time.UnixMilli(0))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	to, err := queryMillis(r, "to", time.Now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	ps, err := store.Range(r.Context(), id, from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return ps, true
}

func queryMillis(r *http.Request, key string, def time.Time) (time.Time, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %q", key, v)
	}
	return time.UnixMilli(ms), nil
}

func writeLatest(w http.ResponseWriter, v any, ok bool) {
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

func writeGeoJSON(w http.ResponseWriter, ps []gnss.Position) {
	data, err := track.FeatureCollection(ps).MarshalJSON()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(data)
}

func writeGPX(w http.ResponseWriter, name string, ps []gnss.Position) {
	data, err := track.GPX(name, ps).ToXml(gpxParams)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/gpx+xml")
	w.Write(data)
}

// serveLive upgrades to a websocket, sends the current records and then
// every update until the client goes away.
func serveLive(w http.ResponseWriter, r *http.Request, state *webState) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	updates := state.subscribe()
	defer state.unsubscribe(updates)

	// the read loop only detects the close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for _, u := range state.snapshot() {
		if err := conn.WriteJSON(u); err != nil {
			return
		}
	}
	for {
		select {
		case <-closed:
			return
		case u := <-updates:
			if err := conn.WriteJSON(u); err != nil {
				log.Printf("web: websocket write error: %v", err)
				return
			}
		}
	}
}
