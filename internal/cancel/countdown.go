/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cancel

import "time"

// CountdownStatus is the phase of a gasless cancellation
type CountdownStatus int

const (
	CountdownWaiting CountdownStatus = iota
	CountdownRunning
	CountdownTimeout
	CountdownDone
)

func (s CountdownStatus) String() string {
	switch s {
	case CountdownRunning:
		return "COUNTDOWN"
	case CountdownTimeout:
		return "TIMEOUT"
	case CountdownDone:
		return "CANCEL_DONE"
	}
	return "WAITING"
}

// Countdown tracks the operator's cancel authorization window
type Countdown struct {
	Status    CountdownStatus
	ExpiresAt time.Time
	Remaining time.Duration
}

// CountdownEvent is consumed by ReduceCountdown
type CountdownEvent interface {
	isCountdownEvent()
}

// CountdownStarted: the operator accepted the signed cancel
type CountdownStarted struct {
	ExpiresAt time.Time
	Now       time.Time
}

// CountdownTicked is the 1 Hz timer
type CountdownTicked struct{ Now time.Time }

// CancelConfirmed: the backend reported the orders cancelled
type CancelConfirmed struct{}

// CountdownReset returns to WAITING so the user can retry
type CountdownReset struct{}

func (CountdownStarted) isCountdownEvent() {}
func (CountdownTicked) isCountdownEvent()  {}
func (CancelConfirmed) isCountdownEvent()  {}
func (CountdownReset) isCountdownEvent()   {}

// ReduceCountdown returns the next countdown state. Confirmation wins from
// any state, including after TIMEOUT; CANCEL_DONE is final.
func ReduceCountdown(c Countdown, event CountdownEvent) Countdown {
	if _, ok := event.(CancelConfirmed); ok {
		c.Status = CountdownDone
		c.Remaining = 0
		return c
	}

	switch c.Status {
	case CountdownWaiting:
		return reduceWaiting(c, event)
	case CountdownRunning:
		return reduceRunning(c, event)
	case CountdownTimeout:
		if _, ok := event.(CountdownReset); ok {
			return Countdown{}
		}
		return c
	default:
		return c
	}
}

func reduceWaiting(c Countdown, event CountdownEvent) Countdown {
	evt, ok := event.(CountdownStarted)
	if !ok {
		return c
	}
	c.ExpiresAt = evt.ExpiresAt
	c.Remaining = remaining(evt.ExpiresAt, evt.Now)
	if c.Remaining <= 0 {
		c.Status = CountdownTimeout
		return c
	}
	c.Status = CountdownRunning
	return c
}

func reduceRunning(c Countdown, event CountdownEvent) Countdown {
	evt, ok := event.(CountdownTicked)
	if !ok {
		return c
	}
	c.Remaining = remaining(c.ExpiresAt, evt.Now)
	if c.Remaining <= 0 {
		c.Status = CountdownTimeout
	}
	return c
}

// remaining rounds up to whole seconds so the display never shows 0 early
func remaining(expiresAt, now time.Time) time.Duration {
	left := expiresAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return (left + time.Second - 1).Truncate(time.Second)
}
