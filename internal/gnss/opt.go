// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gnss

import (
	"encoding/json"
	"errors"
)

// ErrNotValid is returned when reading a field that the producer did not
// mark as valid for this epoch.
var ErrNotValid = errors.New("gnss: field not valid")

// Opt is a record field with tagged presence. The zero value is absent.
// It replaces the validity bit of the wire layout in memory: a field is
// valid exactly when the producer populated it.
type Opt[T any] struct {
	v  T
	ok bool
}

// Some returns a present field holding v.
func Some[T any](v T) Opt[T] {
	return Opt[T]{v: v, ok: true}
}

// Get returns the value and whether it is valid.
func (o Opt[T]) Get() (T, bool) {
	return o.v, o.ok
}

// Value returns the value, or ErrNotValid if the field is absent.
func (o Opt[T]) Value() (T, error) {
	if !o.ok {
		var zero T
		return zero, ErrNotValid
	}
	return o.v, nil
}

func (o Opt[T]) Valid() bool { return o.ok }

// Or returns the value if valid, def otherwise.
func (o Opt[T]) Or(def T) T {
	if !o.ok {
		return def
	}
	return o.v
}

// IsZero reports absence; it lets `omitzero` drop invalid fields from JSON.
func (o Opt[T]) IsZero() bool { return !o.ok }

func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.v)
}

func (o *Opt[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Opt[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// when returns Some(v) if ok, the absent field otherwise. Used by the raw
// decoders to expose only fields whose validity bit is set.
func when[T any](ok bool, v T) Opt[T] {
	if !ok {
		return Opt[T]{}
	}
	return Some(v)
}
