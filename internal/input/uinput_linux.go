//go:build linux

package input

import (
	"fmt"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

const uinputPath = "/dev/uinput"

// uinput ioctls and event codes from linux/uinput.h and linux/input-event-codes.h
const (
	uiSetEvBit   = 0x40045564
	uiSetKeyBit  = 0x40045565
	uiSetRelBit  = 0x40045566
	uiSetAbsBit  = 0x40045567
	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502

	evSyn = 0x00
	evKey = 0x01
	evRel = 0x02
	evAbs = 0x03

	synReport = 0

	relX     = 0x00
	relY     = 0x01
	relWheel = 0x08

	absX     = 0x00
	absY     = 0x01
	absZ     = 0x02
	absRX    = 0x03
	absRY    = 0x04
	absRZ    = 0x05
	absHat0X = 0x10
	absHat0Y = 0x11

	busUSB = 0x03

	absCount = 64
)

// uinputUserDev mirrors struct uinput_user_dev
type uinputUserDev struct {
	Name       [80]byte
	BusType    uint16
	Vendor     uint16
	Product    uint16
	Version    uint16
	EffectsMax uint32
	AbsMax     [absCount]int32
	AbsMin     [absCount]int32
	AbsFuzz    [absCount]int32
	AbsFlat    [absCount]int32
}

// inputEvent mirrors struct input_event
type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

type absRange struct {
	min, max int32
}

type uinputSpec struct {
	name    string
	vendor  uint16
	product uint16
	keys    []uint16
	rels    []uint16
	abs     map[uint16]absRange
}

type uinputDevice struct {
	f *os.File
}

func createUinput(spec uinputSpec) (*uinputDevice, error) {
	f, err := os.OpenFile(uinputPath, os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uinputPath, err)
	}
	fd := int(f.Fd())

	fail := func(err error) (*uinputDevice, error) {
		f.Close()
		return nil, err
	}
	set := func(req uint, v uint16) error {
		return unix.IoctlSetInt(fd, req, int(v))
	}

	if len(spec.keys) > 0 {
		if err := set(uiSetEvBit, evKey); err != nil {
			return fail(fmt.Errorf("enable key events: %w", err))
		}
		for _, k := range spec.keys {
			if err := set(uiSetKeyBit, k); err != nil {
				return fail(fmt.Errorf("enable key %d: %w", k, err))
			}
		}
	}
	if len(spec.rels) > 0 {
		if err := set(uiSetEvBit, evRel); err != nil {
			return fail(fmt.Errorf("enable rel events: %w", err))
		}
		for _, r := range spec.rels {
			if err := set(uiSetRelBit, r); err != nil {
				return fail(fmt.Errorf("enable rel %d: %w", r, err))
			}
		}
	}

	var dev uinputUserDev
	copy(dev.Name[:], spec.name)
	dev.BusType = busUSB
	dev.Vendor = spec.vendor
	dev.Product = spec.product
	dev.Version = 1
	if len(spec.abs) > 0 {
		if err := set(uiSetEvBit, evAbs); err != nil {
			return fail(fmt.Errorf("enable abs events: %w", err))
		}
		for code, rng := range spec.abs {
			if err := set(uiSetAbsBit, code); err != nil {
				return fail(fmt.Errorf("enable abs %d: %w", code, err))
			}
			dev.AbsMin[code] = rng.min
			dev.AbsMax[code] = rng.max
		}
	}

	buf := unsafe.Slice((*byte)(unsafe.Pointer(&dev)), unsafe.Sizeof(dev))
	if _, err := f.Write(buf); err != nil {
		return fail(fmt.Errorf("write device description: %w", err))
	}
	if err := unix.IoctlSetInt(fd, uiDevCreate, 0); err != nil {
		return fail(fmt.Errorf("create device: %w", err))
	}
	return &uinputDevice{f: f}, nil
}

func (d *uinputDevice) emit(typ, code uint16, value int32) error {
	ev := inputEvent{
		Time:  unix.NsecToTimeval(time.Now().UnixNano()),
		Type:  typ,
		Code:  code,
		Value: value,
	}
	buf := unsafe.Slice((*byte)(unsafe.Pointer(&ev)), unsafe.Sizeof(ev))
	_, err := d.f.Write(buf)
	return err
}

func (d *uinputDevice) sync() error {
	return d.emit(evSyn, synReport, 0)
}

func (d *uinputDevice) Close() error {
	unix.IoctlSetInt(int(d.f.Fd()), uiDevDestroy, 0)
	return d.f.Close()
}
