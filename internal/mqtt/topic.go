package mqtt

import "fmt"

// Topic segments shared between the base station and the rover.
const (
	// SegmentStatus carries the commanded mode and mission (base station -> rover), retained.
	SegmentStatus = "status"
	// SegmentCycle carries supervisor cycle reports (rover -> base station).
	SegmentCycle = "cycle"
	// SegmentOnline carries the rover's presence, used as last will.
	SegmentOnline = "online"
)

// Topics builds topic strings under a root namespace.
// Pattern: {root}/{segment}/{roverID}
type Topics struct {
	root string
}

func NewTopics(root string) *Topics {
	return &Topics{root: root}
}

func (t *Topics) Status(roverID string) string { return t.build(SegmentStatus, roverID) }
func (t *Topics) Cycle(roverID string) string  { return t.build(SegmentCycle, roverID) }
func (t *Topics) Online(roverID string) string { return t.build(SegmentOnline, roverID) }

func (t *Topics) build(segment, id string) string {
	return fmt.Sprintf("%s/%s/%s", t.root, segment, id)
}

// Personal.AI order the ending
