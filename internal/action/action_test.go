package action

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestClampAxis(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 0},
		{40000, 32767},
		{-40000, -32768},
		{32767, 32767},
		{-32768, -32768},
	}
	for _, tt := range tests {
		if got := ClampAxis(tt.in); got != tt.want {
			t.Errorf("ClampAxis(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestUnitConversions(t *testing.T) {
	if got := AxisFromUnit(1.5); got != 32767 {
		t.Errorf("AxisFromUnit(1.5) = %d, want 32767", got)
	}
	if got := AxisFromUnit(-1.5); got != -32767 {
		t.Errorf("AxisFromUnit(-1.5) = %d, want -32767", got)
	}
	if got := TriggerFromUnit(0.5); got != 127 {
		t.Errorf("TriggerFromUnit(0.5) = %d, want 127", got)
	}
	if got := TriggerFromUnit(-1); got != 0 {
		t.Errorf("TriggerFromUnit(-1) = %d, want 0", got)
	}
}

func TestGamepadClampCopies(t *testing.T) {
	g := GamepadAction{
		Buttons:  map[Button]bool{South: true},
		Triggers: map[Trigger]int{LeftTrigger: 300},
		Axes:     map[Axis]int{AxisLeftX: 99999},
	}
	c := g.Clamp()
	if c.Triggers[LeftTrigger] != 255 {
		t.Errorf("Expected trigger 255, got %d", c.Triggers[LeftTrigger])
	}
	if c.Axes[AxisLeftX] != 32767 {
		t.Errorf("Expected axis 32767, got %d", c.Axes[AxisLeftX])
	}
	if g.Axes[AxisLeftX] != 99999 {
		t.Error("Clamp modified the original action")
	}
}

func TestGamepadUnmarshalAcceptsListsAndBools(t *testing.T) {
	data := []byte(`{"SOUTH":[1],"EAST":false,"NORTH":true,"LEFT_TRIGGER":[255],"AXIS_LEFTX":-100,"AXIS_LEFTY":[200],"MYSTERY":1}`)
	var g GamepadAction
	if err := json.Unmarshal(data, &g); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !g.Buttons[South] || g.Buttons[East] || !g.Buttons[North] {
		t.Errorf("Unexpected buttons: %v", g.Buttons)
	}
	if _, ok := g.Buttons["MYSTERY"]; !ok {
		t.Error("Unknown button names should be preserved")
	}
	if g.Triggers[LeftTrigger] != 255 {
		t.Errorf("Expected LEFT_TRIGGER 255, got %d", g.Triggers[LeftTrigger])
	}
	x, y, n := g.StickValue(LeftStick)
	if x != -100 || y != 200 || n != 2 {
		t.Errorf("StickValue = (%d, %d, %d), want (-100, 200, 2)", x, y, n)
	}
}

func TestGamepadUnmarshalRejectsLongList(t *testing.T) {
	var g GamepadAction
	if err := json.Unmarshal([]byte(`{"SOUTH":[1,0]}`), &g); err == nil {
		t.Error("Expected error for two-element list")
	}
}

func TestGamepadMarshalFlat(t *testing.T) {
	a := Gamepad(GamepadAction{
		Buttons:  map[Button]bool{South: true, East: false},
		Triggers: map[Trigger]int{RightTrigger: 10},
		Axes:     map[Axis]int{AxisRightX: 5, AxisRightY: -5},
	})
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var flat map[string]int
	if err := json.Unmarshal(data, &flat); err != nil {
		t.Fatalf("Output is not a flat int object: %v", err)
	}
	want := map[string]int{"SOUTH": 1, "EAST": 0, "RIGHT_TRIGGER": 10, "AXIS_RIGHTX": 5, "AXIS_RIGHTY": -5}
	if !reflect.DeepEqual(flat, want) {
		t.Errorf("Got %v, want %v", flat, want)
	}
}

func TestDecodeKeyboardMouse(t *testing.T) {
	a, err := Decode(KindKeyboardMouse, []byte(`{"keys":["W"," a "],"mouse_buttons":["left"],"mouse_dx":3}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if a.Kind != KindKeyboardMouse {
		t.Fatalf("Expected keyboard_mouse kind, got %v", a.Kind)
	}
	if got := NormalizeKeys(a.KeyboardMouse.Keys); !reflect.DeepEqual(got, []string{"a", "w"}) {
		t.Errorf("NormalizeKeys = %v", got)
	}
	if a.KeyboardMouse.MouseDX != 3 {
		t.Errorf("Expected mouse_dx 3, got %d", a.KeyboardMouse.MouseDX)
	}
}

func TestNormalizeDropsUnknownAndDuplicates(t *testing.T) {
	got := NormalizeKeys([]string{"w", "W", "f13", "space", ""})
	want := []string{"space", "w"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Got %v, want %v", got, want)
	}
	got = NormalizeMouseButtons([]string{"LEFT", "side"})
	if !reflect.DeepEqual(got, []string{"left"}) {
		t.Errorf("Got %v, want [left]", got)
	}
}

func TestZeroGamepadCoversVocabulary(t *testing.T) {
	z := Zero(KindGamepad).Gamepad
	if len(z.Buttons) != len(Buttons) {
		t.Errorf("Expected %d buttons, got %d", len(Buttons), len(z.Buttons))
	}
	for _, s := range Sticks {
		if _, _, n := z.StickValue(s); n != 2 {
			t.Errorf("Stick %s not fully present", s.Name)
		}
	}
}

func TestSchema(t *testing.T) {
	for _, kind := range []Kind{KindGamepad, KindKeyboardMouse} {
		s, err := Schema(kind)
		if err != nil {
			t.Fatalf("Schema(%v) failed: %v", kind, err)
		}
		if s.Properties == nil || s.Properties.Len() == 0 {
			t.Errorf("Schema(%v) has no properties", kind)
		}
	}
	s, _ := Schema(KindGamepad)
	if _, ok := s.Properties.Get("AXIS_LEFTX"); !ok {
		t.Error("Gamepad schema is missing AXIS_LEFTX")
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind("km"); err != nil || k != KindKeyboardMouse {
		t.Errorf("ParseKind(km) = %v, %v", k, err)
	}
	if _, err := ParseKind("joystick"); err == nil {
		t.Error("Expected error for unknown kind")
	}
}

func TestZeroKeyboardMouseWireLists(t *testing.T) {
	data, err := json.Marshal(Zero(KindKeyboardMouse))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"keys":[],"mouse_buttons":[],"mouse_dx":0,"mouse_dy":0,"mouse_wheel":0}`
	if string(data) != want {
		t.Errorf("Expected %s, got %s", want, data)
	}
}
