package hardware

import (
	"fmt"
	"math"
	"sync"

	"github.com/turtacn/Rover/pkg/consts"
)

// MaxWheelVelocity is the normalized velocity limit accepted by each wheel controller.
const MaxWheelVelocity = 1.0

// DriveBase holds the target velocity of each of the rover's six wheels.
// The wheel controllers read these targets from the CAN bus; here they are
// the mutable hardware state that mission programs command.
type DriveBase struct {
	mu      sync.RWMutex
	target  [consts.WheelCount]float64
	updates uint64
}

func NewDriveBase() *DriveBase {
	return &DriveBase{}
}

// SetTargetVelocity replaces all six wheel targets.
func (d *DriveBase) SetTargetVelocity(v [consts.WheelCount]float64) error {
	for i, w := range v {
		if err := checkVelocity(i, w); err != nil {
			return err
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.target = v
	d.updates++
	return nil
}

// SetWheel sets the target of a single wheel.
func (d *DriveBase) SetWheel(wheel int, v float64) error {
	if wheel < 0 || wheel >= consts.WheelCount {
		return fmt.Errorf("wheel %d out of range [0,%d)", wheel, consts.WheelCount)
	}
	if err := checkVelocity(wheel, v); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.target[wheel] = v
	d.updates++
	return nil
}

// Drive sets left and right side velocities (wheels 0-2 left, 3-5 right).
func (d *DriveBase) Drive(left, right float64) error {
	return d.SetTargetVelocity([consts.WheelCount]float64{left, left, left, right, right, right})
}

// Stop zeroes every wheel target. It is the safe state.
func (d *DriveBase) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.target = [consts.WheelCount]float64{}
	d.updates++
}

func (d *DriveBase) TargetVelocity() [consts.WheelCount]float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.target
}

// Moving reports whether any wheel has a non-zero target.
func (d *DriveBase) Moving() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, v := range d.target {
		if v != 0 {
			return true
		}
	}
	return false
}

// Updates returns how many times the targets were written.
func (d *DriveBase) Updates() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.updates
}

func checkVelocity(wheel int, v float64) error {
	if math.IsNaN(v) || math.Abs(v) > MaxWheelVelocity {
		return fmt.Errorf("wheel %d velocity %v exceeds limit %v", wheel, v, MaxWheelVelocity)
	}
	return nil
}

// Personal.AI order the ending
