// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ircam

import (
	"sync"
	"time"
)

// Keepalive calls a ping function after a period of inactivity and keeps
// calling it every interval until Reset or Stop.
type Keepalive struct {
	interval time.Duration
	ping     func()

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	stopped bool
}

// NewKeepalive creates a stopped keep-alive. Call Reset to arm it.
func NewKeepalive(interval time.Duration, ping func()) *Keepalive {
	if interval <= 0 {
		interval = DefaultKeepalive
	}
	return &Keepalive{interval: interval, ping: ping, stopped: true}
}

// Interval returns the inactivity period
func (k *Keepalive) Interval() time.Duration {
	return k.interval
}

// Reset (re)starts the inactivity countdown
func (k *Keepalive) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.stopped = false
	k.armLocked()
}

// Stop cancels the countdown. No ping starts after Stop returns.
func (k *Keepalive) Stop() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.stopped = true
	k.gen++
	if k.timer != nil {
		k.timer.Stop()
		k.timer = nil
	}
}

// Active reports whether the countdown is armed
func (k *Keepalive) Active() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return !k.stopped
}

func (k *Keepalive) armLocked() {
	k.gen++
	gen := k.gen
	if k.timer != nil {
		k.timer.Stop()
	}
	k.timer = time.AfterFunc(k.interval, func() { k.fire(gen) })
}

func (k *Keepalive) fire(gen uint64) {
	k.mu.Lock()
	// A Reset or Stop since this timer was armed supersedes it.
	if k.stopped || gen != k.gen {
		k.mu.Unlock()
		return
	}
	k.mu.Unlock()

	k.ping()

	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.stopped && gen == k.gen {
		k.armLocked()
	}
}
