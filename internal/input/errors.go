package input

import "errors"

var (
	// ErrCapabilityMissing is returned when no usable input backend exists on this host
	ErrCapabilityMissing = errors.New("input capability missing")

	// ErrUnknownProfile is returned for a gamepad profile name with no table
	ErrUnknownProfile = errors.New("unknown gamepad profile")

	// ErrUnknownButton is returned when an action names a button the profile cannot map
	ErrUnknownButton = errors.New("unknown gamepad button")

	// ErrIncompleteStick is returned when only one axis of a stick is supplied
	ErrIncompleteStick = errors.New("stick update needs both axes")

	// ErrActionKind is returned when an action does not match the controller
	ErrActionKind = errors.New("action kind does not match controller")

	// ErrClosed is returned by a controller after Close
	ErrClosed = errors.New("controller closed")
)
