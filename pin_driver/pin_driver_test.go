package pin_driver

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"voice-drive/drive_state"
)

type pinWrite struct {
	pin   string
	level byte
}

type fakeAdaptor struct {
	name      string
	connects  int
	finalized bool
	writes    []pinWrite
	failPin   string
}

func (a *fakeAdaptor) Name() string        { return a.name }
func (a *fakeAdaptor) SetName(name string) { a.name = name }
func (a *fakeAdaptor) Connect() error      { a.connects++; return nil }
func (a *fakeAdaptor) Finalize() error     { a.finalized = true; return nil }

func (a *fakeAdaptor) DigitalWrite(pin string, level byte) error {
	if pin == a.failPin {
		return errors.New("permission denied")
	}

	a.writes = append(a.writes, pinWrite{pin, level})

	return nil
}

func (a *fakeAdaptor) levels() map[string]byte {
	levels := map[string]byte{}
	for _, w := range a.writes {
		levels[w.pin] = w.level
	}

	return levels
}

func newDriver(t *testing.T, a *fakeAdaptor) Interface {
	t.Helper()

	d, err := New(&Config{Connection: a, Pins: DefaultPins})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	return d
}

func TestNew(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Errorf("expected error for nil config")
	}

	if _, err := New(&Config{Pins: DefaultPins}); err == nil {
		t.Errorf("expected error for nil connection")
	}

	pins := DefaultPins
	pins.LeftBackward = pins.RightForward
	if _, err := New(&Config{Connection: &fakeAdaptor{}, Pins: pins}); err == nil {
		t.Errorf("expected error for duplicate pin")
	}
}

func TestConfigure(t *testing.T) {
	a := &fakeAdaptor{name: "fake"}
	d := newDriver(t, a)

	if err := d.Write(drive_state.State{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Write before Configure: got %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := d.Configure(); err != nil {
			t.Fatalf("Configure: %v", err)
		}
	}

	if a.connects != 1 {
		t.Errorf("connected %d times, want 1", a.connects)
	}

	if len(a.writes) != 4 {
		t.Fatalf("expected 4 initial writes, got %+v", a.writes)
	}

	for _, w := range a.writes {
		if w.level != 0 {
			t.Errorf("pin %s initialised high", w.pin)
		}
	}
}

func TestWrite(t *testing.T) {
	for _, cmd := range drive_state.Commands() {
		t.Run(cmd.String(), func(t *testing.T) {
			a := &fakeAdaptor{}
			d := newDriver(t, a)

			if err := d.Configure(); err != nil {
				t.Fatalf("Configure: %v", err)
			}

			state, _ := drive_state.StateFor(cmd)
			if err := d.Write(state); err != nil {
				t.Fatalf("Write: %v", err)
			}

			want := map[string]byte{
				DefaultPins.RightForward:  level(state.RightForward),
				DefaultPins.LeftForward:   level(state.LeftForward),
				DefaultPins.RightBackward: level(state.RightBackward),
				DefaultPins.LeftBackward:  level(state.LeftBackward),
			}

			got := a.levels()
			for pin, lvl := range want {
				if got[pin] != lvl {
					t.Errorf("pin %s = %d, want %d", pin, got[pin], lvl)
				}
			}
		})
	}
}

func TestWriteLowersBeforeRaising(t *testing.T) {
	a := &fakeAdaptor{}
	d := newDriver(t, a)

	if err := d.Configure(); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	forward, _ := drive_state.StateFor(drive_state.Forward)
	backward, _ := drive_state.StateFor(drive_state.Backward)

	if err := d.Write(forward); err != nil {
		t.Fatalf("Write: %v", err)
	}

	a.writes = nil

	if err := d.Write(backward); err != nil {
		t.Fatalf("Write: %v", err)
	}

	levels := map[string]byte{
		DefaultPins.RightForward: 1,
		DefaultPins.LeftForward:  1,
	}

	for _, w := range a.writes {
		levels[w.pin] = w.level

		if levels[DefaultPins.RightForward] == 1 && levels[DefaultPins.RightBackward] == 1 {
			t.Fatalf("right motor had both lines high during %+v", a.writes)
		}

		if levels[DefaultPins.LeftForward] == 1 && levels[DefaultPins.LeftBackward] == 1 {
			t.Fatalf("left motor had both lines high during %+v", a.writes)
		}
	}
}

func TestWriteRejectsInvalidState(t *testing.T) {
	a := &fakeAdaptor{}
	d := newDriver(t, a)

	if err := d.Configure(); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	a.writes = nil

	err := d.Write(drive_state.State{RightForward: true, RightBackward: true})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}

	if len(a.writes) != 0 {
		t.Errorf("hardware touched for invalid state: %+v", a.writes)
	}
}

func TestWriteFailure(t *testing.T) {
	a := &fakeAdaptor{}
	d := newDriver(t, a)

	if err := d.Configure(); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	a.failPin = DefaultPins.LeftForward

	forward, _ := drive_state.StateFor(drive_state.Forward)
	if err := d.Write(forward); err == nil {
		t.Fatalf("expected write error")
	}
}

func TestPartialWriteIsLogged(t *testing.T) {
	var out bytes.Buffer

	a := &fakeAdaptor{}
	d, err := New(&Config{
		Connection: a,
		Pins:       DefaultPins,
		Logger:     log.NewWithOptions(&out, log.Options{Level: log.DebugLevel}),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := d.Configure(); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	// forward raises right-forward before left-forward
	a.failPin = DefaultPins.LeftForward

	forward, _ := drive_state.StateFor(drive_state.Forward)
	if err := d.Write(forward); err == nil {
		t.Fatalf("expected write error")
	}

	if a.levels()[DefaultPins.RightForward] != 1 {
		t.Fatalf("right-forward should have been raised before the failure")
	}

	logged := out.String()
	if !strings.Contains(logged, "partial write") || !strings.Contains(logged, DefaultPins.RightForward) {
		t.Errorf("partial write not logged: %q", logged)
	}
}

func TestClose(t *testing.T) {
	a := &fakeAdaptor{}
	d := newDriver(t, a)

	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if !a.finalized {
		t.Errorf("adaptor not finalized")
	}
}

func TestNewAdaptor(t *testing.T) {
	if _, err := NewAdaptor("serial-thing", ""); err == nil {
		t.Errorf("expected error for unknown adaptor")
	}

	if _, err := NewAdaptor(AdaptorFirmata, ""); err == nil {
		t.Errorf("expected error for firmata without port")
	}

	conn, err := NewAdaptor(AdaptorFirmata, "/dev/ttyACM0")
	if err != nil || conn == nil {
		t.Errorf("NewAdaptor(firmata): %v", err)
	}
}
