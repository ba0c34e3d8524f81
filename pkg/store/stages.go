// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Taimur Islam Khan

package store

import (
	"fmt"

	"github.com/taimurislamkhan/ushs-link/pkg/wire"
)

// StageState is the display state of one cycle stage.
type StageState string

const (
	StageInactive StageState = "inactive"
	StageActive   StageState = "active"
	StageDone     StageState = "done"
)

// StageCount is the number of stages in a heating cycle.
const StageCount = 6

// Stages is the derived six-stage progress vector shown on the cycle screen.
type Stages struct {
	Home          StageState `json:"home"`
	WorkPosition  StageState `json:"work_position"`
	EncoderZero   StageState `json:"encoder_zero"`
	Heat          StageState `json:"heat"`
	Cool          StageState `json:"cool"`
	CycleComplete StageState `json:"cycle_complete"`
}

// StagesFromIndex derives the stage vector from a controller stage index.
// Index -1 means idle (all inactive), 6 means a finished cycle (all done),
// and 0..5 mark the named stage active with everything before it done.
func StagesFromIndex(i int) (Stages, error) {
	if i < -1 || i > StageCount {
		return Stages{}, fmt.Errorf("%w: %d", wire.ErrBadStageIndex, i)
	}

	var v [StageCount]StageState
	for p := range v {
		switch {
		case i == -1:
			v[p] = StageInactive
		case p < i:
			v[p] = StageDone
		case p == i:
			v[p] = StageActive
		default:
			v[p] = StageInactive
		}
	}

	return Stages{
		Home:          v[0],
		WorkPosition:  v[1],
		EncoderZero:   v[2],
		Heat:          v[3],
		Cool:          v[4],
		CycleComplete: v[5],
	}, nil
}
