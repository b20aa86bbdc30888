package model

// RequestType names a call to the model server
type RequestType string

const (
	// TypeReset clears the model's context
	TypeReset RequestType = "reset"

	// TypeInfo asks for the session description
	TypeInfo RequestType = "info"

	// TypePredict sends one observation and returns an action plan
	TypePredict RequestType = "predict"
)

const (
	statusOK    = "ok"
	statusError = "error"
)

// Request is the container for every message sent to the server
type Request struct {
	Type  RequestType `msgpack:"type"`
	Image []byte      `msgpack:"image,omitempty"` // PNG
}

// Response is the container for every server reply
type Response struct {
	Status  string      `msgpack:"status"`
	Message string      `msgpack:"message,omitempty"`
	Info    *Info       `msgpack:"info,omitempty"`
	Pred    *Prediction `msgpack:"pred,omitempty"`
}

// Info describes the loaded model
type Info struct {
	// ActionRepeat is how many env steps each predicted action is held for
	ActionRepeat int    `msgpack:"action_downsample_ratio" json:"action_downsample_ratio"`
	Checkpoint   string `msgpack:"ckpt_path" json:"ckpt_path"`

	// Tokens overrides the button order of Prediction.Buttons when set
	Tokens []string `msgpack:"tokens,omitempty" json:"tokens,omitempty"`
}

// Prediction is an action plan: one entry per future step. Sticks are in
// [-1, 1], buttons are scores aligned with the token order.
type Prediction struct {
	LeftStick  [][2]float64 `msgpack:"j_left" json:"j_left"`
	RightStick [][2]float64 `msgpack:"j_right" json:"j_right"`
	Buttons    [][]float64  `msgpack:"buttons" json:"buttons"`
}
