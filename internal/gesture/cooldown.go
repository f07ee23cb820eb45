// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gesture

import "time"

// Cooldowns records the last accepted fire per classifier and enforces a
// minimum spacing between two fires of the same kind.
// Not safe for concurrent use.
type Cooldowns struct {
	last map[Kind]time.Time
}

// NewCooldowns returns an empty registry.
func NewCooldowns() *Cooldowns {
	return &Cooldowns{last: make(map[Kind]time.Time)}
}

// Ready reports whether at least interval has elapsed since the last
// accepted fire of kind. A kind that never fired is always ready.
func (c *Cooldowns) Ready(kind Kind, now time.Time, interval time.Duration) bool {
	last, ok := c.last[kind]
	return !ok || now.Sub(last) >= interval
}

// TryFire records a fire at now if the kind is ready and reports whether
// it did.
func (c *Cooldowns) TryFire(kind Kind, now time.Time, interval time.Duration) bool {
	if !c.Ready(kind, now, interval) {
		return false
	}
	c.last[kind] = now
	return true
}

// LastFired returns the time of the last accepted fire of kind.
func (c *Cooldowns) LastFired(kind Kind) (time.Time, bool) {
	t, ok := c.last[kind]
	return t, ok
}

// Reset forgets every recorded fire.
func (c *Cooldowns) Reset() {
	clear(c.last)
}
