//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package graph

import "time"

// Speed selects the pacing delay inserted before each execution step.
// The delay is purely cosmetic step pacing for the canvas; outcomes are
// identical at any speed.
type Speed string

const (
	// SpeedRealtime runs with no pacing delay.
	SpeedRealtime Speed = "realtime"
	// SpeedFast paces steps at 500ms.
	SpeedFast Speed = "fast"
	// SpeedMedium paces steps at 1s.
	SpeedMedium Speed = "medium"
	// SpeedSlow paces steps at 2s.
	SpeedSlow Speed = "slow"
)

// Delay returns the per-step pacing delay. Unrecognized values behave
// like realtime.
func (s Speed) Delay() time.Duration {
	switch s {
	case SpeedFast:
		return 500 * time.Millisecond
	case SpeedMedium:
		return time.Second
	case SpeedSlow:
		return 2 * time.Second
	default:
		return 0
	}
}

// ParseSpeed maps a configuration string to a Speed, defaulting to
// medium for empty input and realtime for unknown values.
func ParseSpeed(s string) Speed {
	switch Speed(s) {
	case SpeedRealtime, SpeedFast, SpeedMedium, SpeedSlow:
		return Speed(s)
	case "":
		return SpeedMedium
	default:
		return SpeedRealtime
	}
}
