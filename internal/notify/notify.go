package notify

import (
	"log"

	"github.com/gen2brain/beeep"
)

const appName = "WebWhisper"

// maxBody keeps transcript previews readable in notification bubbles.
const maxBody = 100

type Notifier interface {
	RecordingStarted()
	RecordingEnded()
	Transcribing()
	Completed(text string)
	Error(msg string)
	Notify(title, message string)
}

// Desktop sends system notifications through beeep.
type Desktop struct{}

func (d Desktop) RecordingStarted()     { d.Notify("Recording Started", "Listening...") }
func (d Desktop) RecordingEnded()       { d.Notify("Recording Ended", "Processing audio") }
func (d Desktop) Transcribing()         { d.Notify("Transcribing", "Running speech recognition") }
func (d Desktop) Completed(text string) { d.Notify("Transcription Complete", preview(text)) }

func (Desktop) Error(msg string) {
	if err := beeep.Alert(appName+" Error", msg, ""); err != nil {
		log.Printf("Failed to send error notification: %v", err)
	}
}

func (Desktop) Notify(title, message string) {
	if title != "" {
		title = appName + ": " + title
	} else {
		title = appName
	}
	if err := beeep.Notify(title, message, ""); err != nil {
		log.Printf("Failed to send notification: %v", err)
	}
}

// Log writes notifications to the standard logger.
type Log struct{}

func (Log) RecordingStarted()     { log.Printf("%s: Recording Started", appName) }
func (Log) RecordingEnded()       { log.Printf("%s: Recording Ended", appName) }
func (Log) Transcribing()         { log.Printf("%s: Transcribing", appName) }
func (Log) Completed(text string) { log.Printf("%s: Transcription Complete - %s", appName, preview(text)) }
func (Log) Error(msg string)      { log.Printf("%s Error: %s", appName, msg) }

func (Log) Notify(title, message string) {
	log.Printf("%s: %s - %s", appName, title, message)
}

// Nop is a Notifier that does absolutely nothing.
// Useful in unit tests or headless builds.
type Nop struct{}

func (Nop) RecordingStarted()            {}
func (Nop) RecordingEnded()              {}
func (Nop) Transcribing()                {}
func (Nop) Completed(text string)        {}
func (Nop) Error(msg string)             {}
func (Nop) Notify(title, message string) {}

func preview(text string) string {
	r := []rune(text)
	if len(r) > maxBody {
		return string(r[:maxBody]) + "..."
	}
	return text
}
