package aura

import (
	"fmt"
	"strings"
)

// actionMarker separates the controller part of an action descriptor from
// the action name.
const actionMarker = "/ACTION$"

// ActionDescriptor builds the descriptor of action name on controller,
// e.g. ActionDescriptor("c:Ctrl", "doThing") == "c:Ctrl/ACTION$doThing".
func ActionDescriptor(controller, name string) string {
	return controller + actionMarker + name
}

// ParseDescriptor splits an action descriptor into its controller
// descriptor and action name.
//
//	ctrl, name, err := aura.ParseDescriptor("c:Ctrl/ACTION$doThing")
//	// ctrl == "c:Ctrl", name == "doThing"
func ParseDescriptor(descriptor string) (controller, name string, err error) {
	i := strings.LastIndex(descriptor, actionMarker)
	if i < 0 {
		return "", "", fmt.Errorf("%w: %q has no %s part", ErrInvalidDescriptor, descriptor, actionMarker)
	}
	controller = descriptor[:i]
	name = descriptor[i+len(actionMarker):]
	if controller == "" || name == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidDescriptor, descriptor)
	}
	return controller, name, nil
}
