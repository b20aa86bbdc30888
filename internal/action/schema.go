package action

import (
	"fmt"

	"github.com/invopop/jsonschema"
)

// gamepadWire documents the flat gamepad wire object. It is only used for
// schema generation; decoding goes through GamepadAction.UnmarshalJSON.
type gamepadWire struct {
	South         int `json:"SOUTH,omitempty" jsonschema:"enum=0,enum=1"`
	East          int `json:"EAST,omitempty" jsonschema:"enum=0,enum=1"`
	North         int `json:"NORTH,omitempty" jsonschema:"enum=0,enum=1"`
	West          int `json:"WEST,omitempty" jsonschema:"enum=0,enum=1"`
	LeftShoulder  int `json:"LEFT_SHOULDER,omitempty" jsonschema:"enum=0,enum=1"`
	RightShoulder int `json:"RIGHT_SHOULDER,omitempty" jsonschema:"enum=0,enum=1"`
	LeftThumb     int `json:"LEFT_THUMB,omitempty" jsonschema:"enum=0,enum=1"`
	RightThumb    int `json:"RIGHT_THUMB,omitempty" jsonschema:"enum=0,enum=1"`
	DpadUp        int `json:"DPAD_UP,omitempty" jsonschema:"enum=0,enum=1"`
	DpadDown      int `json:"DPAD_DOWN,omitempty" jsonschema:"enum=0,enum=1"`
	DpadLeft      int `json:"DPAD_LEFT,omitempty" jsonschema:"enum=0,enum=1"`
	DpadRight     int `json:"DPAD_RIGHT,omitempty" jsonschema:"enum=0,enum=1"`
	Start         int `json:"START,omitempty" jsonschema:"enum=0,enum=1"`
	Back          int `json:"BACK,omitempty" jsonschema:"enum=0,enum=1"`
	Guide         int `json:"GUIDE,omitempty" jsonschema:"enum=0,enum=1"`

	LeftTrigger  int `json:"LEFT_TRIGGER,omitempty" jsonschema:"minimum=0,maximum=255"`
	RightTrigger int `json:"RIGHT_TRIGGER,omitempty" jsonschema:"minimum=0,maximum=255"`

	AxisLeftX  int `json:"AXIS_LEFTX,omitempty" jsonschema:"minimum=-32768,maximum=32767"`
	AxisLeftY  int `json:"AXIS_LEFTY,omitempty" jsonschema:"minimum=-32768,maximum=32767"`
	AxisRightX int `json:"AXIS_RIGHTX,omitempty" jsonschema:"minimum=-32768,maximum=32767"`
	AxisRightY int `json:"AXIS_RIGHTY,omitempty" jsonschema:"minimum=-32768,maximum=32767"`
}

// Schema returns the JSON schema of the wire form for a kind.
func Schema(kind Kind) (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{DoNotReference: true}
	switch kind {
	case KindGamepad:
		return reflector.Reflect(&gamepadWire{}), nil
	case KindKeyboardMouse:
		s := reflector.Reflect(&KeyboardMouseAction{})
		if keys, ok := s.Properties.Get("keys"); ok && keys.Items != nil {
			keys.Items.Enum = toAny(KeyNames)
		}
		if buttons, ok := s.Properties.Get("mouse_buttons"); ok && buttons.Items != nil {
			buttons.Items.Enum = toAny(MouseButtonNames)
		}
		return s, nil
	}
	return nil, fmt.Errorf("schema: %v", kind)
}

func toAny(names []string) []any {
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}
