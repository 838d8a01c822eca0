package bus

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const SockName = "control.sock"
const PidName = "hyprinterview.pid"
const ProtoVer = "1.0"

// DirEnv overrides the runtime directory, mostly for tests.
const DirEnv = "HYPRINTERVIEW_RUNTIME_DIR"

// Control commands: one byte, an optional argument, then a newline.
const (
	CmdToggle     byte = 't'
	CmdNext       byte = 'n'
	CmdStatus     byte = 's'
	CmdTranscript byte = 'p'
	CmdAnswer     byte = 'a'
	CmdEvaluate   byte = 'e'
	CmdVersion    byte = 'v'
	CmdQuit       byte = 'q'
)

// ErrNotRunning is returned when no daemon listens on the socket.
var ErrNotRunning = errors.New("daemon not running")

// ~/.cache/hyprinterview
func runtimeDir() (string, error) {
	if dir := os.Getenv(DirEnv); dir != "" {
		return dir, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "hyprinterview"), nil
}

func getSockPath() (string, error) {
	dir, err := runtimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SockName), nil
}

func getPidPath() (string, error) {
	dir, err := runtimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, PidName), nil
}

// SockPath is the control socket location.
func SockPath() (string, error) {
	return getSockPath()
}

type socketManager struct {
	path string
}

func (s *socketManager) listen() (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, err
	}
	_ = os.Remove(s.path) // stale socket from last run
	return net.Listen("unix", s.path)
}

func (s *socketManager) dial() (net.Conn, error) {
	return net.DialTimeout("unix", s.path, time.Second)
}

type pidManager struct {
	path string
}

func (p *pidManager) create() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(p.path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func (p *pidManager) remove() error {
	return os.Remove(p.path)
}

// checkExisting fails when the pid file names a live process and cleans up stale or
// unreadable pid files.
func (p *pidManager) checkExisting() error {
	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		_ = os.Remove(p.path)
		return nil
	}
	if !p.isProcessAlive(pid) {
		_ = os.Remove(p.path)
		return nil
	}
	return fmt.Errorf("daemon already running with PID %d", pid)
}

func (p *pidManager) isProcessAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func defaultSocket() (*socketManager, error) {
	path, err := getSockPath()
	if err != nil {
		return nil, err
	}
	return &socketManager{path: path}, nil
}

func defaultPid() (*pidManager, error) {
	path, err := getPidPath()
	if err != nil {
		return nil, err
	}
	return &pidManager{path: path}, nil
}

func Listen() (net.Listener, error) {
	s, err := defaultSocket()
	if err != nil {
		return nil, err
	}
	return s.listen()
}

func Dial() (net.Conn, error) {
	s, err := defaultSocket()
	if err != nil {
		return nil, err
	}
	c, err := s.dial()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotRunning, err)
	}
	return c, nil
}

// SendCommand sends a bare command and returns the one-line reply.
func SendCommand(cmd byte) (string, error) {
	return SendCommandArg(cmd, "")
}

// SendCommandArg sends a command with an argument. Newlines in arg are folded to spaces.
func SendCommandArg(cmd byte, arg string) (string, error) {
	c, err := Dial()
	if err != nil {
		return "", err
	}
	defer c.Close()

	msg := []byte{cmd}
	if arg != "" {
		msg = append(msg, ' ')
		msg = append(msg, strings.ReplaceAll(arg, "\n", " ")...)
	}
	msg = append(msg, '\n')
	if _, err := c.Write(msg); err != nil {
		return "", err
	}

	return bufio.NewReader(c).ReadString('\n')
}

// ParseReply splits "KIND payload\n" and turns ERR replies into errors.
func ParseReply(resp string) (kind, payload string, err error) {
	resp = strings.TrimRight(resp, "\n")
	kind, payload, _ = strings.Cut(resp, " ")
	if kind == "ERR" {
		return kind, payload, errors.New(payload)
	}
	return kind, payload, nil
}

// Status is the decoded payload of a status reply.
type Status struct {
	State    string
	Drain    string
	Queued   int
	Question string
}

// ParseStatus decodes "status=recording drain=draining queued=12000 question=<id>".
func ParseStatus(payload string) (Status, error) {
	var st Status
	for _, field := range strings.Fields(payload) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return Status{}, fmt.Errorf("malformed status field %q", field)
		}
		switch key {
		case "status":
			st.State = value
		case "drain":
			st.Drain = value
		case "queued":
			n, err := strconv.Atoi(value)
			if err != nil {
				return Status{}, fmt.Errorf("malformed queued bytes %q", value)
			}
			st.Queued = n
		case "question":
			st.Question = value
		}
	}
	if st.State == "" {
		return Status{}, errors.New("status reply has no state")
	}
	return st, nil
}

func CheckExistingDaemon() error {
	p, err := defaultPid()
	if err != nil {
		return err
	}
	return p.checkExisting()
}

func CreatePidFile() error {
	p, err := defaultPid()
	if err != nil {
		return err
	}
	return p.create()
}

func RemovePidFile() error {
	p, err := defaultPid()
	if err != nil {
		return err
	}
	return p.remove()
}
