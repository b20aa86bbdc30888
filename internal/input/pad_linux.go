//go:build linux

package input

// evdev gamepad buttons
const (
	btnSouth  = 0x130
	btnEast   = 0x131
	btnNorth  = 0x133
	btnWest   = 0x134
	btnTL     = 0x136
	btnTR     = 0x137
	btnSelect = 0x13a
	btnStart  = 0x13b
	btnMode   = 0x13c
	btnThumbL = 0x13d
	btnThumbR = 0x13e
)

var xusbEvdev = map[uint16]uint16{
	xusbA:             btnSouth,
	xusbB:             btnEast,
	xusbX:             btnWest,
	xusbY:             btnNorth,
	xusbLeftShoulder:  btnTL,
	xusbRightShoulder: btnTR,
	xusbBack:          btnSelect,
	xusbStart:         btnStart,
	xusbGuide:         btnMode,
	xusbLeftThumb:     btnThumbL,
	xusbRightThumb:    btnThumbR,
}

var ds4Evdev = map[uint16]uint16{
	ds4Cross:         btnSouth,
	ds4Circle:        btnEast,
	ds4Square:        btnWest,
	ds4Triangle:      btnNorth,
	ds4ShoulderLeft:  btnTL,
	ds4ShoulderRight: btnTR,
	ds4Share:         btnSelect,
	ds4Options:       btnStart,
	ds4ThumbLeft:     btnThumbL,
	ds4ThumbRight:    btnThumbR,
}

// uinputPad exposes the pad through /dev/uinput. Both profiles report their
// d-pad on the hat axes so the xbox d-pad bits are folded into DPad first.
type uinputPad struct {
	dev     *uinputDevice
	buttons map[uint16]uint16
	ds4     bool
}

func openPad(profile *Profile) (Pad, error) {
	spec := uinputSpec{
		name:    "Microsoft X-Box 360 pad",
		vendor:  0x045e,
		product: 0x028e,
		abs: map[uint16]absRange{
			absX:     {-32768, 32767},
			absY:     {-32768, 32767},
			absRX:    {-32768, 32767},
			absRY:    {-32768, 32767},
			absZ:     {0, 255},
			absRZ:    {0, 255},
			absHat0X: {-1, 1},
			absHat0Y: {-1, 1},
		},
	}
	buttons := xusbEvdev
	ds4 := profile.Name == ProfilePS4
	if ds4 {
		spec.name = "Sony Interactive Entertainment Wireless Controller"
		spec.vendor = 0x054c
		spec.product = 0x09cc
		buttons = ds4Evdev
	}
	for _, code := range buttons {
		spec.keys = append(spec.keys, code)
	}
	if ds4 {
		spec.keys = append(spec.keys, btnMode)
	}

	dev, err := createUinput(spec)
	if err != nil {
		return nil, err
	}
	return &uinputPad{dev: dev, buttons: buttons, ds4: ds4}, nil
}

func (p *uinputPad) Update(r Report) error {
	for mask, code := range p.buttons {
		if err := p.dev.emit(evKey, code, boolValue(r.Buttons&mask != 0)); err != nil {
			return err
		}
	}
	dpad := r.DPad
	if p.ds4 {
		if err := p.dev.emit(evKey, btnMode, boolValue(r.Special&ds4SpecialPS != 0)); err != nil {
			return err
		}
	} else {
		dpad = xusbDPad(r.Buttons)
	}
	hx, hy := hatAxes(dpad)

	axes := []struct {
		code  uint16
		value int32
	}{
		{absX, int32(r.LeftX)},
		{absY, int32(r.LeftY)},
		{absRX, int32(r.RightX)},
		{absRY, int32(r.RightY)},
		{absZ, int32(r.LeftTrigger)},
		{absRZ, int32(r.RightTrigger)},
		{absHat0X, hx},
		{absHat0Y, hy},
	}
	for _, a := range axes {
		if err := p.dev.emit(evAbs, a.code, a.value); err != nil {
			return err
		}
	}
	return p.dev.sync()
}

func (p *uinputPad) Close() error {
	return p.dev.Close()
}

func boolValue(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func xusbDPad(buttons uint16) DPad {
	var d DPad
	if buttons&xusbDpadUp != 0 {
		d |= DPadUp
	}
	if buttons&xusbDpadDown != 0 {
		d |= DPadDown
	}
	if buttons&xusbDpadLeft != 0 {
		d |= DPadLeft
	}
	if buttons&xusbDpadRight != 0 {
		d |= DPadRight
	}
	return d
}

func hatAxes(d DPad) (x, y int32) {
	if d&DPadLeft != 0 {
		x--
	}
	if d&DPadRight != 0 {
		x++
	}
	if d&DPadUp != 0 {
		y--
	}
	if d&DPadDown != 0 {
		y++
	}
	return x, y
}
