package tutor

// Input is one user turn: TextInput or AudioInput.
type Input interface {
	isInput()
}

// TextInput is a typed question.
type TextInput struct {
	Text string
}

// AudioInput is a recorded question. The audio goes to the model untouched;
// it is never transcribed here.
type AudioInput struct {
	Data     []byte
	MIMEType string
}

func (TextInput) isInput()  {}
func (AudioInput) isInput() {}

// DefaultAudioMIME is assumed for recordings that do not name a type.
const DefaultAudioMIME = "audio/wav"

// VoiceQuestionMarker is stored as the content of a user turn that was
// asked by voice.
const VoiceQuestionMarker = "[voice question]"
