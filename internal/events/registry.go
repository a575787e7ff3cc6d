package events

import "fmt"

var allowedEvents = map[string]struct{}{
	// episode
	"episode.started":    {},
	"episode.configured": {},
	"episode.failed":     {},
	"episode.succeeded":  {},
	"episode.cleanup":    {},

	// placement
	"placement.sampled":   {},
	"placement.exhausted": {},

	// condition
	"condition.met":   {},
	"condition.reset": {},

	// waypoint
	"waypoint.entered": {},
	"waypoint.skipped": {},
	"waypoint.reached": {},

	// sequencer
	"sequencer.started": {},
	"sequencer.repeat":  {},
	"sequencer.done":    {},
	"sequencer.overrun": {},

	// bridge
	"bridge.connected":    {},
	"bridge.disconnected": {},
	"bridge.state":        {},
	"bridge.error":        {},

	// system
	"system.startup":  {},
	"system.shutdown": {},
	"system.error":    {},
}

// Validate returns an error for event names outside the registry.
func Validate(event string) error {
	if _, ok := allowedEvents[event]; !ok {
		return fmt.Errorf("unknown event: %s", event)
	}
	return nil
}
