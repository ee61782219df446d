package practice

import (
	"picturetalk/feedback"
	"picturetalk/level"
)

// Surface is a display the controller drives. Calls can arrive from the
// controller goroutine and from the level sampler at the same time.
type Surface interface {
	level.Indicator

	Controls(c Controls)
	Status(text string)
	Heading(text string)
	Image(locator string)
	Transcript(text string)
	NoVoice(warn bool)

	AssessmentPlaceholder()
	AssessmentPending()
	Assessment(transcript string, sections []feedback.Section)
	AssessmentFailed(message, hint string)
}

// Texts shown on the status line, heading and result area.
const (
	StatusListening  = "Listening... Speak clearly into your microphone."
	StatusProcessing = "Processing your speech..."
	StatusNoSpeech   = "No speech detected."
	StatusComplete   = "Assessment complete."
	StatusFailed     = "Failed to get assessment."
	StatusMicError   = "Error: Could not access microphone. Please check permissions."
	StatusCopied     = "Assessment copied to clipboard."

	HeadingPrompt     = "Describe the image assessment"
	HeadingAssessment = "IELTS Speaking Assessment"

	Placeholder   = "Your assessment will appear here."
	Pending       = "Waiting for Ollama response..."
	FailedMessage = "Error connecting to Ollama."
)
