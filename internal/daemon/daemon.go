package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/leonardotrapani/hyprinterview/internal/bus"
	"github.com/leonardotrapani/hyprinterview/internal/config"
	"github.com/leonardotrapani/hyprinterview/internal/feed"
	"github.com/leonardotrapani/hyprinterview/internal/llm"
	"github.com/leonardotrapani/hyprinterview/internal/metrics"
	"github.com/leonardotrapani/hyprinterview/internal/models/whisper"
	"github.com/leonardotrapani/hyprinterview/internal/notify"
	"github.com/leonardotrapani/hyprinterview/internal/pipeline"
	"github.com/leonardotrapani/hyprinterview/internal/questions"
	"github.com/leonardotrapani/hyprinterview/internal/recording"
	"github.com/leonardotrapani/hyprinterview/internal/transcriber"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Deps are the collaborators of a daemon. FromConfig builds the real ones.
type Deps struct {
	Config      *config.Config
	Source      recording.Source
	Transcriber pipeline.Transcriber
	Evaluator   llm.Evaluator // nil disables the evaluate command
	Notifier    notify.Notifier
	Bank        *questions.Bank
	Registry    *prometheus.Registry
}

// Daemon hosts one practice session and serves the control socket.
type Daemon struct {
	mu        sync.Mutex
	config    *config.Config
	notifier  notify.Notifier
	evaluator llm.Evaluator
	bank      *questions.Bank
	profile   questions.Profile
	asked     map[string]bool
	current   questions.Question
	autoStop  *time.Timer

	session  *pipeline.Session
	hub      *feed.Hub
	registry *prometheus.Registry
	manager  *config.Manager

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(deps Deps) (*Daemon, error) {
	if deps.Config == nil {
		return nil, errors.New("config is required")
	}
	if deps.Source == nil || deps.Transcriber == nil {
		return nil, errors.New("capture source and transcriber are required")
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	if deps.Bank == nil {
		bank, err := questions.Default()
		if err != nil {
			return nil, err
		}
		deps.Bank = bank
	}
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Daemon{
		config:    deps.Config,
		notifier:  deps.Notifier,
		evaluator: deps.Evaluator,
		bank:      deps.Bank,
		profile:   deps.Config.ToProfile(),
		asked:     make(map[string]bool),
		hub:       feed.NewHub(),
		registry:  deps.Registry,
		ctx:       ctx,
		cancel:    cancel,
	}

	m := metrics.New(deps.Registry)
	d.session = pipeline.New(ctx, deps.Config.ToPipelineConfig(), deps.Source, deps.Transcriber, m)

	d.wg.Add(2)
	go d.forwardUpdates()
	go d.forwardWarnings()

	return d, nil
}

// FromConfig wires the PipeWire recorder, the configured transcription provider and
// evaluator, and hot reload through the config manager.
func FromConfig(mgr *config.Manager) (*Daemon, error) {
	cfg := mgr.GetConfig()

	client, err := newTranscriber(cfg)
	if err != nil {
		return nil, fmt.Errorf("transcriber: %w", err)
	}

	var evaluator llm.Evaluator
	if cfg.IsLLMEnabled() {
		evaluator, err = llm.NewEvaluator(cfg.ToLLMConfig())
		if err != nil {
			return nil, fmt.Errorf("evaluator: %w", err)
		}
	}

	bank, err := questions.Load(cfg.Interview.QuestionBank)
	if err != nil {
		return nil, fmt.Errorf("question bank: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	d, err := New(Deps{
		Config:      cfg,
		Source:      recording.NewRecorder(cfg.ToRecordingConfig()),
		Transcriber: client,
		Evaluator:   evaluator,
		Notifier:    notify.New(cfg.Notifications.Enabled, cfg.Notifications.Type),
		Bank:        bank,
		Registry:    reg,
	})
	if err != nil {
		return nil, err
	}
	d.manager = mgr
	mgr.OnReload(d.reload)
	return d, nil
}

// Session exposes the hosted session.
func (d *Daemon) Session() *pipeline.Session {
	return d.session
}

func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			log.Printf("Received signal %v, shutting down gracefully", sig)
			d.cancel()
		case <-d.ctx.Done():
		}
	}()

	// Close the listener when context is done
	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	var server *feed.Server
	if addr := d.config.Server.Listen; addr != "" {
		server = feed.NewServer(addr, d.hub, d.registry)
		if err := server.Start(); err != nil {
			log.Printf("Feed server disabled: %v", err)
			server = nil
		}
	}

	if d.manager != nil {
		if err := d.manager.StartWatching(d.ctx); err != nil {
			log.Printf("Config watching disabled: %v", err)
		}
	}

	defer d.shutdown(server)

	log.Printf("Daemon started, listening on socket")

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				log.Printf("Shutdown requested")
				return nil
			}
			log.Printf("Accept error: %v", err)
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

func (d *Daemon) shutdown(server *feed.Server) {
	d.cancel()
	d.mu.Lock()
	d.stopTimerLocked()
	d.mu.Unlock()

	d.session.Close()
	if d.manager != nil {
		d.manager.Stop()
	}
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := server.Stop(ctx); err != nil {
			log.Printf("Feed server shutdown error: %v", err)
		}
	}
	d.hub.Close()
	d.wg.Wait()
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		log.Printf("Client read error: %v", err)
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	line = strings.TrimRight(line, "\r\n")
	if len(line) == 0 {
		fmt.Fprint(c, "ERR empty\n")
		return
	}
	cmd, arg := line[0], strings.TrimSpace(line[1:])

	switch cmd {
	case bus.CmdToggle:
		recording, err := d.toggle()
		if err != nil {
			fmt.Fprintf(c, "ERR %v\n", err)
			return
		}
		fmt.Fprintf(c, "STATUS recording=%t\n", recording)
	case bus.CmdNext:
		q, err := d.nextQuestion()
		if err != nil {
			fmt.Fprintf(c, "ERR %v\n", err)
			return
		}
		fmt.Fprintf(c, "QUESTION %s\n", oneLine(q.Text))
	case bus.CmdStatus:
		s := d.session.Snapshot()
		fmt.Fprintf(c, "STATUS status=%s drain=%s queued=%d question=%s\n", s.Status, s.Drain, s.QueuedBytes, s.QuestionID)
	case bus.CmdTranscript:
		fmt.Fprintf(c, "TRANSCRIPT %s\n", oneLine(d.session.Transcript()))
	case bus.CmdAnswer:
		if err := d.session.TypeAnswer(arg); err != nil {
			fmt.Fprintf(c, "ERR %v\n", err)
			return
		}
		fmt.Fprint(c, "OK answered\n")
	case bus.CmdEvaluate:
		fb, err := d.evaluate()
		if err != nil {
			fmt.Fprintf(c, "ERR %s\n", oneLine(err.Error()))
			return
		}
		data, _ := json.Marshal(fb)
		fmt.Fprintf(c, "FEEDBACK %s\n", data)
	case bus.CmdVersion:
		fmt.Fprintf(c, "STATUS proto=%s\n", bus.ProtoVer)
	case bus.CmdQuit:
		fmt.Fprint(c, "OK quitting\n")
		d.cancel()
	default:
		log.Printf("Unknown command: %c", cmd)
		fmt.Fprintf(c, "ERR unknown=%q\n", cmd)
	}
}

// toggle starts or stops recording and reports whether the session is now recording.
func (d *Daemon) toggle() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session.Status() == pipeline.Recording {
		d.stopTimerLocked()
		d.session.StopRecording()
		go d.notifier.RecordingChanged(false)
		return false, nil
	}

	if d.current.ID == "" {
		if _, err := d.nextQuestionLocked(); err != nil {
			return false, err
		}
	}

	if err := d.session.StartRecording(d.ctx); err != nil {
		return false, err
	}
	go d.notifier.RecordingChanged(true)

	if timeout := d.config.Recording.Timeout; timeout > 0 {
		d.autoStop = time.AfterFunc(timeout, d.timeoutStop)
	}
	return true, nil
}

func (d *Daemon) timeoutStop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session.Status() != pipeline.Recording {
		return
	}
	log.Printf("Recording timeout (%v) reached, stopping", d.config.Recording.Timeout)
	d.autoStop = nil
	d.session.StopRecording()
	go d.notifier.Notify("Recording stopped", "Answer time limit reached")
}

func (d *Daemon) stopTimerLocked() {
	if d.autoStop != nil {
		d.autoStop.Stop()
		d.autoStop = nil
	}
}

func (d *Daemon) nextQuestion() (questions.Question, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.nextQuestionLocked()
}

// nextQuestionLocked picks an unasked question for the profile. Once every matching
// question has been asked the history starts over.
func (d *Daemon) nextQuestionLocked() (questions.Question, error) {
	q, err := d.bank.Pick(d.profile, d.asked)
	if errors.Is(err, questions.ErrNoQuestions) && len(d.asked) > 0 {
		log.Printf("All questions asked, starting over")
		d.asked = make(map[string]bool)
		q, err = d.bank.Pick(d.profile, d.asked)
	}
	if err != nil {
		return questions.Question{}, err
	}

	d.stopTimerLocked()
	wasRecording := d.session.Status() == pipeline.Recording
	d.asked[q.ID] = true
	d.current = q
	d.session.NextQuestion(q.Text)
	if wasRecording {
		go d.notifier.RecordingChanged(false)
	}
	go d.notifier.QuestionReady(q.Text)
	log.Printf("Question %s: %s", q.ID, q.Text)
	return q, nil
}

// evaluate stops recording, waits for the pipeline to settle and scores the answer.
func (d *Daemon) evaluate() (llm.Feedback, error) {
	d.mu.Lock()
	evaluator := d.evaluator
	question := d.current.Text
	timeout := d.settleTimeout()
	if d.session.Status() == pipeline.Recording {
		d.stopTimerLocked()
		d.session.StopRecording()
		go d.notifier.RecordingChanged(false)
	}
	d.mu.Unlock()

	if evaluator == nil {
		return llm.Feedback{}, errors.New("answer evaluation is disabled")
	}
	if question == "" {
		return llm.Feedback{}, errors.New("no question asked yet")
	}

	ctx, cancel := context.WithTimeout(d.ctx, timeout)
	defer cancel()
	if err := d.session.Wait(ctx); err != nil {
		return llm.Feedback{}, fmt.Errorf("waiting for transcription: %w", err)
	}

	answer := d.session.Transcript()
	fb, err := evaluator.Evaluate(ctx, question, answer)
	if err != nil {
		return llm.Feedback{}, err
	}
	log.Printf("Answer scored %d/10", fb.Score)
	return fb, nil
}

// settleTimeout bounds how long evaluate waits: every retry of a batch may use the full
// request timeout, plus time for the final LLM call.
func (d *Daemon) settleTimeout() time.Duration {
	p := d.config.Pipeline
	attempts := time.Duration(p.MaxRetries + 1)
	return attempts*(p.RequestTimeout+p.RetryDelay) + p.RequestTimeout
}

// newTranscriber maps a whisper-cpp model ID to its downloaded file when no path is set.
func newTranscriber(cfg *config.Config) (*transcriber.Client, error) {
	tc := cfg.ToTranscriberConfig()
	if tc.Provider == "whisper-cpp" {
		path, err := whisper.Resolve(tc.ModelPath, tc.Model)
		if err != nil {
			return nil, err
		}
		tc.ModelPath = path
	}
	return transcriber.New(tc)
}

// reload applies a changed config. Provider, evaluator, profile and notifier changes take
// effect at the next recording; capture and batching settings need a restart.
func (d *Daemon) reload(cfg *config.Config) {
	client, err := newTranscriber(cfg)
	if err != nil {
		log.Printf("Config reload: keeping previous transcriber: %v", err)
	} else {
		d.session.SetTranscriber(client)
	}

	var evaluator llm.Evaluator
	if cfg.IsLLMEnabled() {
		evaluator, err = llm.NewEvaluator(cfg.ToLLMConfig())
		if err != nil {
			log.Printf("Config reload: evaluation disabled: %v", err)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if cfg.Recording != d.config.Recording || cfg.Pipeline != d.config.Pipeline {
		log.Printf("Config reload: recording and pipeline changes apply after restart")
	}
	d.evaluator = evaluator
	d.profile = cfg.ToProfile()
	d.notifier = notify.New(cfg.Notifications.Enabled, cfg.Notifications.Type)
	d.config = cfg
}

func (d *Daemon) forwardUpdates() {
	defer d.wg.Done()
	for snap := range d.session.Updates() {
		d.hub.PublishSnapshot(snap)
	}
}

func (d *Daemon) forwardWarnings() {
	defer d.wg.Done()
	for w := range d.session.Warnings() {
		log.Printf("Warning (%s): %v", w.Kind, w)
		d.mu.Lock()
		n := d.notifier
		d.mu.Unlock()
		n.Warning(w.Error())
		d.hub.PublishWarning(w)
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
