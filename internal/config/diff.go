// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"fmt"
	"reflect"
)

// FieldChange describes one differing field between two Options values.
type FieldChange struct {
	Field string
	Old   any
	New   any
	Live  bool // whether this field is reloadable without a restart
}

// Diff compares a and b field by field, returning every difference.
func Diff(a, b *Options) []FieldChange {
	var changes []FieldChange
	va, vb := reflect.ValueOf(*a), reflect.ValueOf(*b)
	t := va.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		ov, nv := va.Field(i).Interface(), vb.Field(i).Interface()
		if !reflect.DeepEqual(ov, nv) {
			changes = append(changes, FieldChange{
				Field: f.Name,
				Old:   ov,
				New:   nv,
				Live:  f.Tag.Get("live") == "true",
			})
		}
	}
	return changes
}

// Reload applies a freshly-parsed Options over current in place,
// honoring the live-reload contract: fields tagged `live:"true"` take
// effect immediately; every other changed field is reported back as
// "requires restart" and left at its current value.
// The caller (state manager) logs the returned list.
func Reload(current *Options, fresh *Options) (applied []FieldChange, deferred []FieldChange) {
	changes := Diff(current, fresh)
	cv := reflect.ValueOf(current).Elem()
	fv := reflect.ValueOf(fresh).Elem()
	for _, c := range changes {
		field := cv.FieldByName(c.Field)
		if c.Live {
			field.Set(fv.FieldByName(c.Field))
			applied = append(applied, c)
		} else {
			deferred = append(deferred, c)
		}
	}
	return applied, deferred
}

// Describe renders a FieldChange for logging.
func (c FieldChange) Describe() string {
	status := "requires restart"
	if c.Live {
		status = "applied live"
	}
	return fmt.Sprintf("%s: %v -> %v (%s)", c.Field, c.Old, c.New, status)
}
