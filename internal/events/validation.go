package events

import (
	"fmt"
	"reflect"
)

var payloadTypes = map[EventType]reflect.Type{
	AlertRaised:        reflect.TypeOf(&AlertEvent{}),
	AlertCleared:       reflect.TypeOf(&AlertEvent{}),
	AlertIgnored:       reflect.TypeOf(&AlertEvent{}),
	StatusReadFailed:   reflect.TypeOf(&StatusReadEvent{}),
	SequenceStarted:    reflect.TypeOf(&SequenceEvent{}),
	SequenceCompleted:  reflect.TypeOf(&SequenceEvent{}),
	StepStarted:        reflect.TypeOf(&StepEvent{}),
	StepFinished:       reflect.TypeOf(&StepEvent{}),
	WaitTick:           reflect.TypeOf(&WaitEvent{}),
	WaitFinished:       reflect.TypeOf(&WaitEvent{}),
	NotificationFailed: reflect.TypeOf(&NotificationEvent{}),
	ConfigReloaded:     reflect.TypeOf(&ConfigReloadEvent{}),
	ConfigReloadFailed: reflect.TypeOf(&ConfigReloadEvent{}),
}

// PayloadType returns the expected payload type for an event type.
func PayloadType(eventType EventType) (reflect.Type, bool) {
	t, ok := payloadTypes[eventType]
	return t, ok
}

// ValidatePayload verifies that an event payload matches the expected type.
func ValidatePayload(event Event) error {
	if event.Payload == nil {
		return nil
	}

	expected, ok := payloadTypes[event.Type]
	if !ok {
		return fmt.Errorf("no payload mapping for event type %q", event.Type)
	}

	if reflect.TypeOf(event.Payload) != expected {
		return fmt.Errorf("event %q payload type mismatch: got %T, expected %s", event.Type, event.Payload, expected)
	}

	return nil
}
