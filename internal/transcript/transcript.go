package transcript

import "strings"

// Accumulator builds the running answer text from successive transcriptions.
// Text is only ever appended; Reset clears it for a new question.
type Accumulator struct {
	text string
}

// Append adds trimmed text after a single space. Blank text is ignored.
func (a *Accumulator) Append(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if a.text == "" {
		a.text = text
		return
	}
	a.text = a.text + " " + text
}

func (a *Accumulator) Reset() {
	a.text = ""
}

func (a *Accumulator) String() string {
	return a.text
}

func (a *Accumulator) Len() int {
	return len(a.text)
}
