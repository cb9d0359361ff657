package framework

import (
	"context"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// Controller defines the abstract controlling logic.
type Controller interface {
	Control(ControlContext) error
}

// TimeSource provides the time for controlling logic.
type TimeSource interface {
	Time() time.Duration
}

// ControlContext provides the context of current control
// iteration.
type ControlContext interface {
	TimeSource
	// Context retrieves context.Context.
	Context() context.Context
	// Delta is the elapsed time since the previous iteration started.
	Delta() time.Duration
	// PriorityLevel gets the current priority level.
	PriorityLevel() int

	LoopControl
}

// PriorityLevels is the total levels of priorities.
const PriorityLevels int = 16

// Predefine priority levels
const (
	PrLvTop    int = 0
	PrLvHigh   int = 4
	PrLvNormal int = 8
	PrLvLow    int = 12
	PrLvIdle   int = PriorityLevels - 1

	// PrLvInput is the alias of priority level for polling the link.
	PrLvInput = PrLvTop
	// PrLvSense is the alias of priority level for sensors.
	PrLvSense = PrLvHigh
	// PrLvTimer is the alias of priority level for timeout handling.
	PrLvTimer = PrLvHigh + 1
	// PrLvControl is the alias of priority level for controllers.
	PrLvControl = PrLvNormal
	// PrLvAcuate is the alias of priority level for acuators.
	PrLvAcuate = PrLvLow
	// PrLvPostProc is the alias of priority level for post-processing.
	PrLvPostProc = PrLvIdle - 1
)

// LoopControl exposes access to the controlling loop.
type LoopControl interface {
	// Stop clears the running flag. The loop exits before
	// starting the next iteration.
	Stop()
	// Running indicates the loop has not been stopped.
	Running() bool
}

// ControlFunc defines the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(ctx ControlContext) error {
	return f(ctx)
}
