package input

import (
	"fmt"
	"strings"

	"gamepilot/internal/action"
)

// Gamepad profiles
const (
	ProfileXbox = "xbox"
	ProfilePS4  = "ps4"
)

// DPad is a set of pressed d-pad directions for pads that report the d-pad
// as a hat rather than as buttons.
type DPad uint8

const (
	DPadUp DPad = 1 << iota
	DPadDown
	DPadLeft
	DPadRight
)

// Report is the full device state submitted in one update. Button bits
// are profile specific.
type Report struct {
	Buttons      uint16
	Special      uint8
	DPad         DPad
	LeftTrigger  uint8
	RightTrigger uint8
	LeftX        int16
	LeftY        int16
	RightX       int16
	RightY       int16
}

// control is where one logical button lands in a Report
type control struct {
	mask    uint16
	special uint8
	dpad    DPad
}

func (c control) apply(r *Report, pressed bool) {
	if pressed {
		r.Buttons |= c.mask
		r.Special |= c.special
		r.DPad |= c.dpad
		return
	}
	r.Buttons &^= c.mask
	r.Special &^= c.special
	r.DPad &^= c.dpad
}

// Profile maps the logical button vocabulary onto one device family
type Profile struct {
	Name     string
	controls map[action.Button]control
}

// XUSB button bits
const (
	xusbDpadUp        = 0x0001
	xusbDpadDown      = 0x0002
	xusbDpadLeft      = 0x0004
	xusbDpadRight     = 0x0008
	xusbStart         = 0x0010
	xusbBack          = 0x0020
	xusbLeftThumb     = 0x0040
	xusbRightThumb    = 0x0080
	xusbLeftShoulder  = 0x0100
	xusbRightShoulder = 0x0200
	xusbGuide         = 0x0400
	xusbA             = 0x1000
	xusbB             = 0x2000
	xusbX             = 0x4000
	xusbY             = 0x8000
)

// DS4 button bits; the low nibble of the device word carries the d-pad hat
const (
	ds4Square        = 1 << 4
	ds4Cross         = 1 << 5
	ds4Circle        = 1 << 6
	ds4Triangle      = 1 << 7
	ds4ShoulderLeft  = 1 << 8
	ds4ShoulderRight = 1 << 9
	ds4TriggerLeft   = 1 << 10
	ds4TriggerRight  = 1 << 11
	ds4Share         = 1 << 12
	ds4Options       = 1 << 13
	ds4ThumbLeft     = 1 << 14
	ds4ThumbRight    = 1 << 15

	ds4SpecialPS = 1 << 0
)

var profiles = map[string]map[action.Button]control{
	ProfileXbox: {
		action.DpadUp:        {mask: xusbDpadUp},
		action.DpadDown:      {mask: xusbDpadDown},
		action.DpadLeft:      {mask: xusbDpadLeft},
		action.DpadRight:     {mask: xusbDpadRight},
		action.Start:         {mask: xusbStart},
		action.Back:          {mask: xusbBack},
		action.LeftShoulder:  {mask: xusbLeftShoulder},
		action.RightShoulder: {mask: xusbRightShoulder},
		action.Guide:         {mask: xusbGuide},
		action.West:          {mask: xusbX},
		action.South:         {mask: xusbA},
		action.East:          {mask: xusbB},
		action.North:         {mask: xusbY},
		action.LeftThumb:     {mask: xusbLeftThumb},
		action.RightThumb:    {mask: xusbRightThumb},
	},
	ProfilePS4: {
		action.DpadUp:        {dpad: DPadUp},
		action.DpadDown:      {dpad: DPadDown},
		action.DpadLeft:      {dpad: DPadLeft},
		action.DpadRight:     {dpad: DPadRight},
		action.Start:         {mask: ds4Options},
		action.Back:          {mask: ds4Share},
		action.LeftShoulder:  {mask: ds4ShoulderLeft},
		action.RightShoulder: {mask: ds4ShoulderRight},
		action.Guide:         {special: ds4SpecialPS},
		action.West:          {mask: ds4Square},
		action.South:         {mask: ds4Cross},
		action.East:          {mask: ds4Circle},
		action.North:         {mask: ds4Triangle},
		action.LeftThumb:     {mask: ds4ThumbLeft},
		action.RightThumb:    {mask: ds4ThumbRight},
	},
}

// LoadProfile returns the named profile after checking that its table
// covers the whole button vocabulary.
func LoadProfile(name string) (*Profile, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = ProfileXbox
	}
	controls, ok := profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	var missing []string
	for _, b := range action.Buttons {
		if _, ok := controls[b]; !ok {
			missing = append(missing, string(b))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("profile %s does not map %s", name, strings.Join(missing, ", "))
	}
	return &Profile{Name: name, controls: controls}, nil
}

// Set presses or releases b in r
func (p *Profile) Set(r *Report, b action.Button, pressed bool) error {
	c, ok := p.controls[b]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownButton, b)
	}
	c.apply(r, pressed)
	return nil
}

// Has reports whether the profile can map b
func (p *Profile) Has(b action.Button) bool {
	_, ok := p.controls[b]
	return ok
}

// ds4Hat converts a d-pad set to the DS4 hat value (0 = north, clockwise, 8 = none)
func ds4Hat(d DPad) uint16 {
	up, down := d&DPadUp != 0, d&DPadDown != 0
	left, right := d&DPadLeft != 0, d&DPadRight != 0
	if up && down {
		up, down = false, false
	}
	if left && right {
		left, right = false, false
	}
	switch {
	case up && right:
		return 1
	case down && right:
		return 3
	case down && left:
		return 5
	case up && left:
		return 7
	case up:
		return 0
	case right:
		return 2
	case down:
		return 4
	case left:
		return 6
	}
	return 8
}

// ds4Axis maps a signed axis onto the DS4's unsigned byte, 128 centered.
func ds4Axis(v int16) uint8 {
	return uint8((int(v) + 32768) >> 8)
}
