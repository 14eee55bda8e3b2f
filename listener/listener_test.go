package listener

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/go-audio/audio"

	"voice-drive/command_interpreter"
	"voice-drive/dispatcher"
	"voice-drive/drive_state"
	"voice-drive/speech_extraction"
	"voice-drive/speech_to_text"
)

// scriptedSource hands out one utterance per receive on next. The utterance
// carries its index as the only sample.
type scriptedSource struct {
	next       chan struct{}
	total      int
	count      int
	errs       map[int]error
	calibrated time.Duration
}

func newScriptedSource(total int) *scriptedSource {
	return &scriptedSource{next: make(chan struct{}), total: total, errs: map[int]error{}}
}

func (s *scriptedSource) Calibrate(ctx context.Context, duration time.Duration) error {
	s.calibrated = duration
	return nil
}

func (s *scriptedSource) Capture(ctx context.Context) (*audio.IntBuffer, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.next:
	}

	if s.count >= s.total {
		return nil, io.EOF
	}

	i := s.count
	s.count++

	if err := s.errs[i]; err != nil {
		return nil, err
	}

	return &audio.IntBuffer{
		Format: &audio.Format{NumChannels: 1, SampleRate: 16000},
		Data:   []int{i},
	}, nil
}

func (s *scriptedSource) Close() error { return nil }

// scriptedSTT returns texts[i] for utterance i, or errs[i] when set.
type scriptedSTT struct {
	texts []string
	errs  map[int]error
}

func (s *scriptedSTT) Transcribe(ctx context.Context, buf *audio.IntBuffer) (string, error) {
	i := buf.Data[0]
	if err := s.errs[i]; err != nil {
		return "", err
	}

	return s.texts[i], nil
}

type pinRecorder struct {
	writes  chan drive_state.State
	release chan struct{}
}

func newPinRecorder() *pinRecorder {
	return &pinRecorder{writes: make(chan drive_state.State, 16)}
}

func (p *pinRecorder) Write(state drive_state.State) error {
	if p.release != nil {
		<-p.release
	}

	p.writes <- state

	return nil
}

type harness struct {
	source   *scriptedSource
	pins     *pinRecorder
	listener Interface
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	errs     chan error
}

func startHarness(t *testing.T, source *scriptedSource, stt speech_to_text.Interface, pins *pinRecorder) *harness {
	t.Helper()

	machine, err := drive_state.New(&drive_state.Config{Writer: pins})
	if err != nil {
		t.Fatalf("drive_state.New: %v", err)
	}

	d, err := dispatcher.New(&dispatcher.Config{Applier: machine, Workers: 1})
	if err != nil {
		t.Fatalf("dispatcher.New: %v", err)
	}

	interpreter, err := command_interpreter.New(&command_interpreter.Config{})
	if err != nil {
		t.Fatalf("command_interpreter.New: %v", err)
	}

	l, err := New(&Config{
		Source:      source,
		STTEngine:   stt,
		Interpreter: interpreter,
		Dispatcher:  d,
		Calibration: 200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{source: source, pins: pins, listener: l, cancel: cancel, errs: make(chan error, 2)}

	for _, run := range []func(context.Context) error{d.Run, l.Run} {
		h.wg.Add(1)
		go func(run func(context.Context) error) {
			defer h.wg.Done()
			h.errs <- run(ctx)
		}(run)
	}

	return h
}

func (h *harness) stop(t *testing.T) {
	t.Helper()

	h.cancel()
	h.wg.Wait()
	close(h.errs)

	for err := range h.errs {
		if err != nil {
			t.Errorf("run returned %v", err)
		}
	}
}

func (h *harness) feed(t *testing.T) {
	t.Helper()

	select {
	case h.source.next <- struct{}{}:
	case <-time.After(time.Second):
		t.Fatalf("listener did not come back to capture")
	}
}

func expectWrite(t *testing.T, pins *pinRecorder, cmd drive_state.Command) {
	t.Helper()

	want, _ := drive_state.StateFor(cmd)

	select {
	case got := <-pins.writes:
		if got != want {
			t.Fatalf("wrote %+v, want %s %+v", got, cmd, want)
		}
	case <-time.After(time.Second):
		t.Fatalf("no write for %s", cmd)
	}
}

func expectNoWrite(t *testing.T, pins *pinRecorder) {
	t.Helper()

	select {
	case got := <-pins.writes:
		t.Fatalf("unexpected write %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEndToEnd(t *testing.T) {
	source := newScriptedSource(3)
	stt := &scriptedSTT{texts: []string{"forward", "xyz", "stop"}}
	pins := newPinRecorder()

	h := startHarness(t, source, stt, pins)

	h.feed(t)
	expectWrite(t, pins, drive_state.Forward)

	h.feed(t)
	// the third capture only starts once "xyz" has been handled
	h.feed(t)
	expectWrite(t, pins, drive_state.Stop)
	expectNoWrite(t, pins)

	h.stop(t)

	// shutdown drives the motors to stop once more
	expectWrite(t, pins, drive_state.Stop)

	if source.calibrated != 200*time.Millisecond {
		t.Errorf("calibrated for %s", source.calibrated)
	}
}

func TestTranscriptionFailuresAreNotFatal(t *testing.T) {
	source := newScriptedSource(6)
	source.errs[1] = speech_extraction.ErrListenTimeout

	stt := &scriptedSTT{
		texts: []string{"", "", "", "", "", "turn right"},
		errs: map[int]error{
			0: speech_to_text.ErrUnintelligible,
			2: speech_to_text.ErrServiceFailure,
			3: speech_to_text.ErrTimeout,
			4: errors.New("model file truncated"),
		},
	}
	pins := newPinRecorder()

	h := startHarness(t, source, stt, pins)

	for i := 0; i < 6; i++ {
		h.feed(t)
	}

	expectWrite(t, pins, drive_state.TurnRight)

	h.stop(t)
}

func TestDispatchDoesNotBlockListening(t *testing.T) {
	source := newScriptedSource(3)
	stt := &scriptedSTT{texts: []string{"forward", "hello", "backward"}}
	pins := newPinRecorder()
	pins.release = make(chan struct{})

	h := startHarness(t, source, stt, pins)

	h.feed(t)
	// the forward write is stuck on the hardware, listening goes on
	h.feed(t)
	h.feed(t)

	close(pins.release)

	expectWrite(t, pins, drive_state.Forward)
	expectWrite(t, pins, drive_state.Backward)

	h.stop(t)
}

func TestRunEndsWhenSourceIsExhausted(t *testing.T) {
	source := newScriptedSource(0)
	close(source.next)

	l, err := New(&Config{
		Source:      source,
		STTEngine:   &scriptedSTT{},
		Interpreter: mustInterpreter(t),
		Dispatcher:  &recordingSubmitter{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := l.Run(context.Background()); err != nil {
		t.Errorf("Run: %v", err)
	}
}

func TestCaptureFailureIsFatal(t *testing.T) {
	source := newScriptedSource(1)
	source.errs[0] = errors.New("device unplugged")
	close(source.next)

	l, err := New(&Config{
		Source:      source,
		STTEngine:   &scriptedSTT{},
		Interpreter: mustInterpreter(t),
		Dispatcher:  &recordingSubmitter{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := l.Run(context.Background()); err == nil {
		t.Errorf("expected capture error")
	}
}

func TestRecorderIsUsed(t *testing.T) {
	source := newScriptedSource(1)
	close(source.next)

	recorder := &memoryRecorder{}
	submitter := &recordingSubmitter{}

	l, err := New(&Config{
		Source:      source,
		STTEngine:   &scriptedSTT{texts: []string{"go backward"}},
		Interpreter: mustInterpreter(t),
		Dispatcher:  submitter,
		Recorder:    recorder,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if recorder.saved != 1 {
		t.Errorf("recorded %d utterances, want 1", recorder.saved)
	}

	if len(submitter.cmds) != 1 || submitter.cmds[0] != drive_state.Backward {
		t.Errorf("submitted %v", submitter.cmds)
	}

	if l.State() != Listening {
		t.Errorf("state %s after run, want listening", l.State())
	}
}

func TestNew(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Errorf("expected error for nil config")
	}

	if _, err := New(&Config{Source: newScriptedSource(0)}); err == nil {
		t.Errorf("expected error for missing collaborators")
	}
}

type recordingSubmitter struct {
	cmds []drive_state.Command
}

func (r *recordingSubmitter) Submit(cmd drive_state.Command) {
	r.cmds = append(r.cmds, cmd)
}

type memoryRecorder struct {
	saved int
}

func (m *memoryRecorder) Save(buf *audio.IntBuffer) (string, error) {
	m.saved++
	return "memory", nil
}

func mustInterpreter(t *testing.T) command_interpreter.Interface {
	t.Helper()

	interpreter, err := command_interpreter.New(&command_interpreter.Config{})
	if err != nil {
		t.Fatalf("command_interpreter.New: %v", err)
	}

	return interpreter
}
