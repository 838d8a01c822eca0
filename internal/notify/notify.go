package notify

import (
	"log"
	"os/exec"
)

const appName = "Hyprinterview"

type Notifier interface {
	RecordingChanged(on bool)
	QuestionReady(question string)
	Warning(msg string)
	Error(msg string)
	Notify(title, message string)
}

// New returns the notifier for a notifications.type value. Unknown or disabled yields Nop.
func New(enabled bool, kind string) Notifier {
	if !enabled {
		return Nop{}
	}
	switch kind {
	case "desktop":
		return Desktop{}
	case "log":
		return Log{}
	default:
		return Nop{}
	}
}

func recordingTitle(on bool) string {
	if on {
		return "Recording Started"
	}
	return "Recording Stopped"
}

type Desktop struct{}

func (d Desktop) RecordingChanged(on bool) {
	d.send("normal", appName+": "+recordingTitle(on), "")
}

func (d Desktop) QuestionReady(question string) {
	d.send("normal", appName+": Next Question", question)
}

func (d Desktop) Warning(msg string) {
	d.send("normal", appName+" Warning", msg)
}

func (d Desktop) Error(msg string) {
	d.send("critical", appName+" Error", msg)
}

func (d Desktop) Notify(title, message string) {
	d.send("normal", title, message)
}

func (Desktop) send(urgency, title, body string) {
	args := []string{"-a", appName, "-u", urgency, title}
	if body != "" {
		args = append(args, body)
	}
	if err := exec.Command("notify-send", args...).Run(); err != nil {
		log.Printf("Failed to send notification: %v", err)
	}
}

// Log writes notifications to the standard logger. Useful on headless machines.
type Log struct{}

func (Log) RecordingChanged(on bool) {
	log.Printf("%s: %s", appName, recordingTitle(on))
}

func (Log) QuestionReady(question string) {
	log.Printf("%s: Next Question - %s", appName, question)
}

func (Log) Warning(msg string) {
	log.Printf("%s Warning: %s", appName, msg)
}

func (Log) Error(msg string) {
	log.Printf("%s Error: %s", appName, msg)
}

func (Log) Notify(title, message string) {
	log.Printf("%s - %s", title, message)
}

// Nop is a Notifier that does absolutely nothing.
// Useful in unit tests or headless builds.
type Nop struct{}

func (Nop) RecordingChanged(on bool)      {}
func (Nop) QuestionReady(question string) {}
func (Nop) Warning(msg string)            {}
func (Nop) Error(msg string)              {}
func (Nop) Notify(title, message string)  {}
