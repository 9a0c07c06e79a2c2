// Package filter defines the subscription filter matched against events by
// the storage backend's query boundary and by the Broadcast Fabric's local
// fan-out.
package filter

import (
	"encoding/json"
	"sort"
	"strings"

	"meshrelay.dev/pkg/encoders/event"
)

// F is a single filter, matched by AND across its non-empty fields and OR
// within each field (e.g. any of Kinds).
type F struct {
	IDs     []string            `json:"ids,omitempty"`
	Authors []string            `json:"authors,omitempty"`
	Kinds   []int               `json:"kinds,omitempty"`
	Tags    map[string][]string `json:"-"`
	Since   *int64              `json:"since,omitempty"`
	Until   *int64              `json:"until,omitempty"`
	Limit   *int                `json:"limit,omitempty"`
}

// MarshalJSON renders Tags back out as "#x" keys alongside the named
// fields, matching the wire shape of a REQ filter object.
func (f F) MarshalJSON() ([]byte, error) {
	m := map[string]any{}
	if len(f.IDs) > 0 {
		m["ids"] = f.IDs
	}
	if len(f.Authors) > 0 {
		m["authors"] = f.Authors
	}
	if len(f.Kinds) > 0 {
		m["kinds"] = f.Kinds
	}
	for k, v := range f.Tags {
		m["#"+k] = v
	}
	if f.Since != nil {
		m["since"] = *f.Since
	}
	if f.Until != nil {
		m["until"] = *f.Until
	}
	if f.Limit != nil {
		m["limit"] = *f.Limit
	}
	return json.Marshal(m)
}

// UnmarshalJSON parses a REQ filter object, folding any "#x" key into Tags.
func (f *F) UnmarshalJSON(b []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	for k, raw := range m {
		switch {
		case k == "ids":
			_ = json.Unmarshal(raw, &f.IDs)
		case k == "authors":
			_ = json.Unmarshal(raw, &f.Authors)
		case k == "kinds":
			_ = json.Unmarshal(raw, &f.Kinds)
		case k == "since":
			var v int64
			if json.Unmarshal(raw, &v) == nil {
				f.Since = &v
			}
		case k == "until":
			var v int64
			if json.Unmarshal(raw, &v) == nil {
				f.Until = &v
			}
		case k == "limit":
			var v int
			if json.Unmarshal(raw, &v) == nil {
				f.Limit = &v
			}
		case strings.HasPrefix(k, "#") && len(k) == 2:
			var v []string
			if json.Unmarshal(raw, &v) == nil {
				if f.Tags == nil {
					f.Tags = map[string][]string{}
				}
				f.Tags[k[1:]] = v
			}
		}
	}
	return nil
}

// Clone returns a deep copy of f.
func (f *F) Clone() *F {
	c := &F{
		IDs:     append([]string(nil), f.IDs...),
		Authors: append([]string(nil), f.Authors...),
		Kinds:   append([]int(nil), f.Kinds...),
	}
	if f.Tags != nil {
		c.Tags = make(map[string][]string, len(f.Tags))
		for k, v := range f.Tags {
			c.Tags[k] = append([]string(nil), v...)
		}
	}
	if f.Since != nil {
		v := *f.Since
		c.Since = &v
	}
	if f.Until != nil {
		v := *f.Until
		c.Until = &v
	}
	if f.Limit != nil {
		v := *f.Limit
		c.Limit = &v
	}
	return c
}

// IsIDOnly reports whether the filter requests specific ids only, meaning a
// single query round-trip always exhausts its results (no reason to keep
// the subscription open for live matches).
func (f *F) IsIDOnly() bool {
	return len(f.IDs) > 0 && len(f.Authors) == 0 && len(f.Kinds) == 0 && len(f.Tags) == 0
}

// ClampLimit enforces the historical-replay hard cap, lowering Limit to max
// if unset or larger.
func (f *F) ClampLimit(max int) {
	if f.Limit == nil || *f.Limit > max {
		v := max
		f.Limit = &v
	}
}

// Matches reports whether ev satisfies every non-empty field of f.
func (f *F) Matches(ev *event.E) bool {
	if len(f.IDs) > 0 && !contains(f.IDs, ev.ID) {
		return false
	}
	if len(f.Authors) > 0 && !contains(f.Authors, ev.Pubkey) {
		return false
	}
	if len(f.Kinds) > 0 && !containsInt(f.Kinds, int(ev.Kind)) {
		return false
	}
	if f.Since != nil && ev.CreatedAt < *f.Since {
		return false
	}
	if f.Until != nil && ev.CreatedAt > *f.Until {
		return false
	}
	for name, vals := range f.Tags {
		matched := false
		for _, t := range ev.Tags {
			if len(t) > 1 && t[0] == name && contains(vals, t[1]) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// CacheKey renders a canonical string form of f suitable for use as a Query
// Cache key: a pipe-separated list of its fields (not JSON) in fixed order,
// with slice values sorted, so two filters equal as sets produce the same
// key regardless of the order their elements arrived on the wire.
func (f *F) CacheKey() string {
	ids := sortedCopy(f.IDs)
	authors := sortedCopy(f.Authors)
	kinds := append([]int(nil), f.Kinds...)
	sort.Ints(kinds)
	tagKeys := make([]string, 0, len(f.Tags))
	for k := range f.Tags {
		tagKeys = append(tagKeys, k)
	}
	sort.Strings(tagKeys)
	var b strings.Builder
	b.WriteString("ids:")
	b.WriteString(strings.Join(ids, ","))
	b.WriteString("|authors:")
	b.WriteString(strings.Join(authors, ","))
	b.WriteString("|kinds:")
	for i, k := range kinds {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(itoa(k))
	}
	for _, k := range tagKeys {
		b.WriteString("|#")
		b.WriteString(k)
		b.WriteString(":")
		b.WriteString(strings.Join(sortedCopy(f.Tags[k]), ","))
	}
	if f.Since != nil {
		b.WriteString("|since:")
		b.WriteString(itoa64(*f.Since))
	}
	if f.Until != nil {
		b.WriteString("|until:")
		b.WriteString(itoa64(*f.Until))
	}
	if f.Limit != nil {
		b.WriteString("|limit:")
		b.WriteString(itoa(*f.Limit))
	}
	return b.String()
}

func sortedCopy(s []string) []string {
	c := append([]string(nil), s...)
	sort.Strings(c)
	return c
}

func itoa(n int) string {
	return itoa64(int64(n))
}

func itoa64(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
