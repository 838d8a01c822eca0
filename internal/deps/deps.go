package deps

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// Tool is an external program the daemon shells out to.
type Tool struct {
	Name       string
	VersionArg string
	Purpose    string
	Optional   bool
}

// Status represents the installation status of a dependency
type Status struct {
	Tool      Tool
	Installed bool
	Path      string
	Version   string
}

var (
	PwRecord   = Tool{Name: "pw-record", VersionArg: "--version", Purpose: "microphone capture"}
	PwCli      = Tool{Name: "pw-cli", VersionArg: "--version", Purpose: "PipeWire availability check"}
	WhisperCli = Tool{Name: "whisper-cli", VersionArg: "--version", Purpose: "local transcription"}
	NotifySend = Tool{Name: "notify-send", VersionArg: "--version", Purpose: "desktop notifications", Optional: true}
	WlCopy     = Tool{Name: "wl-copy", VersionArg: "--version", Purpose: "copying answers to the clipboard", Optional: true}
)

// Required lists the tools needed for the given transcription provider and
// notification type.
func Required(provider, notifyType string) []Tool {
	tools := []Tool{PwRecord, PwCli}
	if provider == "whisper-cpp" {
		tools = append(tools, WhisperCli)
	}
	if notifyType == "desktop" {
		tools = append(tools, NotifySend)
	}
	return append(tools, WlCopy)
}

// Check looks the tool up in PATH and asks it for a version line.
func Check(ctx context.Context, t Tool) Status {
	path, err := exec.LookPath(t.Name)
	if err != nil {
		return Status{Tool: t}
	}

	st := Status{Tool: t, Installed: true, Path: path}
	if t.VersionArg == "" {
		return st
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, t.VersionArg).CombinedOutput()
	if err == nil {
		st.Version = firstLine(string(out))
	}
	return st
}

// CheckAll runs Check for every tool, preserving order.
func CheckAll(ctx context.Context, tools []Tool) []Status {
	out := make([]Status, 0, len(tools))
	for _, t := range tools {
		out = append(out, Check(ctx, t))
	}
	return out
}

// Missing reports the required tools that are not installed.
func Missing(statuses []Status) []Tool {
	var missing []Tool
	for _, st := range statuses {
		if !st.Installed && !st.Tool.Optional {
			missing = append(missing, st.Tool)
		}
	}
	return missing
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}
