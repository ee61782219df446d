// Package practice runs one image-description practice loop: record a
// spoken description, transcribe it, have the model assess it, show the
// result. The Controller owns every state transition.
package practice

type State int

const (
	Idle State = iota
	Listening
	Processing
	AwaitingAssessment
)

func (s State) String() string {
	switch s {
	case Listening:
		return "listening"
	case Processing:
		return "processing"
	case AwaitingAssessment:
		return "awaiting_assessment"
	default:
		return "idle"
	}
}

// Controls is what a surface should let the user press.
type Controls struct {
	RecordVisible bool
	RecordEnabled bool
	StopVisible   bool
	StopEnabled   bool
	PickerEnabled bool
}

// Controls maps a state to its control layout. While an assessment is in
// flight nothing can be pressed.
func (s State) Controls() Controls {
	switch s {
	case Listening:
		return Controls{StopVisible: true, StopEnabled: true}
	case AwaitingAssessment:
		return Controls{RecordVisible: true}
	default:
		return Controls{RecordVisible: true, RecordEnabled: true, PickerEnabled: true}
	}
}

type Command int

const (
	Record Command = iota
	Stop
	NextImage
	CopyAssessment
	OpenImage
)

func (c Command) String() string {
	switch c {
	case Record:
		return "record"
	case Stop:
		return "stop"
	case NextImage:
		return "next_image"
	case CopyAssessment:
		return "copy_assessment"
	case OpenImage:
		return "open_image"
	default:
		return "unknown"
	}
}
