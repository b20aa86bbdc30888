//go:build windows

package input

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	vigem                 = windows.NewLazyDLL("ViGEmClient.dll")
	procVigemAlloc        = vigem.NewProc("vigem_alloc")
	procVigemFree         = vigem.NewProc("vigem_free")
	procVigemConnect      = vigem.NewProc("vigem_connect")
	procVigemDisconnect   = vigem.NewProc("vigem_disconnect")
	procVigemX360Alloc    = vigem.NewProc("vigem_target_x360_alloc")
	procVigemDS4Alloc     = vigem.NewProc("vigem_target_ds4_alloc")
	procVigemTargetAdd    = vigem.NewProc("vigem_target_add")
	procVigemTargetRemove = vigem.NewProc("vigem_target_remove")
	procVigemTargetFree   = vigem.NewProc("vigem_target_free")
	procVigemX360Update   = vigem.NewProc("vigem_target_x360_update")
	procVigemDS4Update    = vigem.NewProc("vigem_target_ds4_update")
)

const vigemErrorNone = 0x20000000

type xusbReport struct {
	Buttons      uint16
	LeftTrigger  uint8
	RightTrigger uint8
	ThumbLX      int16
	ThumbLY      int16
	ThumbRX      int16
	ThumbRY      int16
}

type ds4Report struct {
	ThumbLX  uint8
	ThumbLY  uint8
	ThumbRX  uint8
	ThumbRY  uint8
	Buttons  uint16
	Special  uint8
	TriggerL uint8
	TriggerR uint8
}

// vigemPad is a ViGEmBus virtual pad. Reports larger than a register are
// passed by pointer, which is how the x64 calling convention hands
// by-value structs to the DLL.
type vigemPad struct {
	client uintptr
	target uintptr
	ds4    bool
}

func openPad(profile *Profile) (Pad, error) {
	if err := vigem.Load(); err != nil {
		return nil, fmt.Errorf("ViGEmClient.dll not found: %w", err)
	}

	client, _, _ := procVigemAlloc.Call()
	if client == 0 {
		return nil, fmt.Errorf("vigem_alloc failed")
	}
	if ret, _, _ := procVigemConnect.Call(client); ret != vigemErrorNone {
		procVigemFree.Call(client)
		return nil, fmt.Errorf("ViGEmBus not reachable (0x%X)", ret)
	}

	p := &vigemPad{client: client, ds4: profile.Name == ProfilePS4}
	if p.ds4 {
		p.target, _, _ = procVigemDS4Alloc.Call()
	} else {
		p.target, _, _ = procVigemX360Alloc.Call()
	}
	if p.target == 0 {
		procVigemDisconnect.Call(client)
		procVigemFree.Call(client)
		return nil, fmt.Errorf("target allocation failed")
	}
	if ret, _, _ := procVigemTargetAdd.Call(client, p.target); ret != vigemErrorNone {
		procVigemTargetFree.Call(p.target)
		procVigemDisconnect.Call(client)
		procVigemFree.Call(client)
		return nil, fmt.Errorf("vigem_target_add failed (0x%X)", ret)
	}
	return p, nil
}

func (p *vigemPad) Update(r Report) error {
	var ret uintptr
	if p.ds4 {
		rep := ds4ReportFrom(r)
		ret, _, _ = procVigemDS4Update.Call(p.client, p.target, uintptr(unsafe.Pointer(&rep)))
	} else {
		rep := xusbReport{
			Buttons:      r.Buttons,
			LeftTrigger:  r.LeftTrigger,
			RightTrigger: r.RightTrigger,
			ThumbLX:      r.LeftX,
			ThumbLY:      r.LeftY,
			ThumbRX:      r.RightX,
			ThumbRY:      r.RightY,
		}
		ret, _, _ = procVigemX360Update.Call(p.client, p.target, uintptr(unsafe.Pointer(&rep)))
	}
	if ret != vigemErrorNone {
		return fmt.Errorf("vigem update failed (0x%X)", ret)
	}
	return nil
}

func (p *vigemPad) Close() error {
	procVigemTargetRemove.Call(p.client, p.target)
	procVigemTargetFree.Call(p.target)
	procVigemDisconnect.Call(p.client)
	procVigemFree.Call(p.client)
	return nil
}

func ds4ReportFrom(r Report) ds4Report {
	buttons := r.Buttons&^0x000F | ds4Hat(r.DPad)
	if r.LeftTrigger > 0 {
		buttons |= ds4TriggerLeft
	}
	if r.RightTrigger > 0 {
		buttons |= ds4TriggerRight
	}
	return ds4Report{
		ThumbLX:  ds4Axis(r.LeftX),
		ThumbLY:  ds4Axis(r.LeftY),
		ThumbRX:  ds4Axis(r.RightX),
		ThumbRY:  ds4Axis(r.RightY),
		Buttons:  buttons,
		Special:  r.Special,
		TriggerL: r.LeftTrigger,
		TriggerR: r.RightTrigger,
	}
}
