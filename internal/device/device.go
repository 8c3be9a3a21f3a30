// internal/device/device.go

// Package device is the secure element: one context owning the key store,
// the OTP engine, the provisioning receiver and the display, driven by a
// single state machine goroutine.
//
// States:
//
//	DORMANT     deep sleep; only a button edge or a received byte wakes it
//	LISTENING   awake for a provisioning frame or its feedback
//	DISPLAYING  a code (or the unprovisioned diagnostic) is on the panel
//
// Provisioning and code display never overlap: a button edge that arrives
// while a frame is being collected stays latched until the frame ends.
package device

import (
	"errors"
	"fmt"
	"hash"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/tamzrod/totp-token/internal/clock"
	"github.com/tamzrod/totp-token/internal/display"
	"github.com/tamzrod/totp-token/internal/hmacotp"
	"github.com/tamzrod/totp-token/internal/keystore"
	"github.com/tamzrod/totp-token/internal/provision"
	"github.com/tamzrod/totp-token/internal/status"
	"github.com/tamzrod/totp-token/internal/timesource"
)

// renderWidth is the panel width used for key renderings. Longer keys get
// wider lines so the title and the whole key fit the panel.
const renderWidth = 10

// keyPanel renders key under title within display.MaxLines rows.
func keyPanel(title string, key []byte) []string {
	rows := display.MaxLines - 1
	width := max(renderWidth, (len(key)+rows-1)/rows)
	return append([]string{title}, display.RenderKey(key, width)...)
}

// Config is the runtime behaviour of one device.
type Config struct {
	Timestep         uint64 // seconds per code window
	DisplayMode      DisplayMode
	DisplayDuration  time.Duration
	ProvisionTimeout time.Duration
	FeedbackHold     time.Duration // how long provisioning feedback stays up
	RXQueue          int           // bytes buffered between steps
}

// KeyStore is the part of the key store the device uses.
type KeyStore interface {
	Read() ([]byte, error)
	Update(key []byte) (int, error)
}

// StatusSink receives a snapshot whenever it changes.
type StatusSink interface {
	WriteStatus(s status.Snapshot) error
}

// Deps are the peripherals a device is wired to.
type Deps struct {
	Clock   clock.Clocker
	Source  timesource.Source
	Store   KeyStore
	Hash    func() hash.Hash
	Display display.Surface
	TX      io.Writer
	Wake    *WakeFlag
	Status  StatusSink // optional
	Logger  *slog.Logger
}

type counters struct {
	framesSaved uint64
	timeouts    uint64
	ignored     uint64
	storeErrors uint64
	wearWrites  uint64
	displays    uint64
	overruns    uint64
}

// Device is the device context. All methods except Receive's producer
// side run on the state machine goroutine.
type Device struct {
	cfg     Config
	clk     clock.Clocker
	src     timesource.Source
	store   KeyStore
	engine  *hmacotp.Engine
	surface display.Surface
	tx      io.Writer
	wake    *WakeFlag
	rx      *provision.Receiver
	sink    StatusSink
	log     *slog.Logger

	state       State
	provisioned bool
	storeFault  bool
	queue       []byte

	displayUntil  time.Time
	displayWindow uint64
	feedbackUntil time.Time
	feedbackShown bool

	n counters

	lastStatus  status.Snapshot
	statusDirty bool
}

// New builds a device and loads the stored key into the engine.
func New(cfg Config, deps Deps) (*Device, error) {
	if cfg.Timestep == 0 {
		return nil, hmacotp.ErrZeroTimestep
	}
	if cfg.DisplayMode != DisplayFlat && cfg.DisplayMode != DisplayWindow {
		return nil, fmt.Errorf("device: unknown display mode %q", string(cfg.DisplayMode))
	}
	if cfg.DisplayDuration <= 0 {
		return nil, errors.New("device: display duration must be > 0")
	}
	if cfg.RXQueue <= 0 {
		return nil, errors.New("device: rx queue must be > 0")
	}
	if deps.Clock == nil || deps.Source == nil || deps.Store == nil || deps.Hash == nil {
		return nil, errors.New("device: clock, time source, key store and hash are required")
	}
	if deps.Display == nil || deps.TX == nil || deps.Wake == nil {
		return nil, errors.New("device: display, tx and wake flag are required")
	}

	key, err := deps.Store.Read()
	if err != nil {
		return nil, fmt.Errorf("device: load key: %w", err)
	}

	engine, err := hmacotp.New(deps.Hash, key)
	if err != nil {
		return nil, fmt.Errorf("device: engine: %w", err)
	}

	d := &Device{
		cfg:         cfg,
		clk:         deps.Clock,
		src:         deps.Source,
		store:       deps.Store,
		engine:      engine,
		surface:     deps.Display,
		tx:          deps.TX,
		wake:        deps.Wake,
		sink:        deps.Status,
		log:         deps.Logger,
		provisioned: !keystore.IsZero(key),
		queue:       make([]byte, 0, cfg.RXQueue),
		statusDirty: true,
	}
	if d.log == nil {
		d.log = slog.Default()
	}

	d.rx, err = provision.NewReceiver(len(key), cfg.ProvisionTimeout, d.commit)
	if err != nil {
		return nil, fmt.Errorf("device: %w", err)
	}

	return d, nil
}

// State is the current power/display state.
func (d *Device) State() State { return d.state }

// StoreFaulted reports whether a failed key write left the store in an
// unknown state. A later successful write clears it.
func (d *Device) StoreFaulted() bool { return d.storeFault }

// Provisioned reports whether a non-zero key is loaded.
func (d *Device) Provisioned() bool { return d.provisioned }

// Boot announces readiness on the serial channel and enters DORMANT.
func (d *Device) Boot() {
	d.send([]byte(provision.LineAlive + "\r\n"))
	d.log.Info("token alive", "provisioned", d.provisioned)
	d.setState(StateDormant)
	d.publish()
}

// Receive queues one byte from the serial channel. It returns false when
// the queue is full and the byte was dropped.
func (d *Device) Receive(b byte) bool {
	if len(d.queue) >= d.cfg.RXQueue {
		d.n.overruns++
		d.statusDirty = true
		return false
	}
	d.queue = append(d.queue, b)
	return true
}

// Step advances the state machine to now.
func (d *Device) Step(now time.Time) {
	defer d.publish()

	if d.state == StateDisplaying {
		if d.wake.Consume() {
			// press while displaying: refresh for the current window
			d.showCode(now)
			return
		}
		if !d.displayOver(now) {
			return
		}
		d.clear()
		d.setState(StateDormant)
	}

	d.stepAwake(now)
}

// stepAwake handles DORMANT and LISTENING: provisioning first, then the
// button.
func (d *Device) stepAwake(now time.Time) {
	if ev, ok := d.rx.Expire(now); ok {
		d.handle(ev, now)
	}

	for _, b := range d.queue {
		for _, ev := range d.rx.Feed(b, now) {
			d.handle(ev, now)
		}
	}
	d.queue = d.queue[:0]

	if d.rx.Phase() == provision.PhaseIdle && d.wake.Consume() {
		d.feedbackShown = false
		d.feedbackUntil = time.Time{}
		d.showCode(now)
		return
	}

	if d.rx.Phase() == provision.PhaseCollecting || now.Before(d.feedbackUntil) {
		d.setState(StateListening)
		return
	}

	if d.feedbackShown {
		d.feedbackShown = false
		d.clear()
	}
	d.setState(StateDormant)
}

// NextWake is the next time Step must run without external input.
// DORMANT has no deadline.
func (d *Device) NextWake(now time.Time) (time.Time, bool) {
	var next time.Time

	earliest := func(t time.Time) {
		if t.IsZero() {
			return
		}
		if next.IsZero() || t.Before(next) {
			next = t
		}
	}

	switch d.state {
	case StateDisplaying:
		earliest(d.displayUntil)
	case StateListening:
		earliest(d.rx.Deadline())
		if now.Before(d.feedbackUntil) {
			earliest(d.feedbackUntil)
		}
	}

	return next, !next.IsZero()
}

// ------------------------------------------------------------
// provisioning
// ------------------------------------------------------------

// commit is the receiver's durable write. The engine is only rekeyed once
// the store accepted the key. A failed write the store rolled back leaves the
// old key in place; one it could not roll back leaves the store content
// unknown, so the engine keeps its current pads and the store is faulted.
func (d *Device) commit(key []byte) (int, error) {
	written, err := d.store.Update(key)
	if err != nil {
		if errors.Is(err, keystore.ErrRollbackFailed) {
			d.storeFault = true
			d.statusDirty = true
			d.log.Error("key store faulted, keeping running key", "error", err)
			return written, err
		}
		d.reloadKey()
		return written, err
	}
	if err := d.engine.SetKey(key); err != nil {
		return written, err
	}
	d.provisioned = !keystore.IsZero(key)
	d.storeFault = false
	return written, nil
}

// reloadKey resynchronizes the engine with the store after a failed write
// that was rolled back.
func (d *Device) reloadKey() {
	key, err := d.store.Read()
	if err != nil {
		d.log.Error("key reload failed", "error", err)
		return
	}
	if err := d.engine.SetKey(key); err != nil {
		d.log.Error("key reload failed", "error", err)
		return
	}
	d.provisioned = !keystore.IsZero(key)
}

func (d *Device) handle(ev provision.Event, now time.Time) {
	d.send(provision.EncodeAck(ev))
	d.statusDirty = true

	switch ev.Kind {
	case provision.KindSaved:
		d.n.framesSaved++
		d.n.wearWrites += uint64(ev.Written)
		d.log.Info("key saved", "written", ev.Written, "provisioned", d.provisioned)
		d.feedback(now, keyPanel("Key saved:", ev.Key)...)

	case provision.KindTimeout:
		d.n.timeouts++
		d.log.Warn("provisioning frame timed out")
		d.feedback(now, "Timeout", "Key not received")

	case provision.KindCommitFailed:
		d.n.storeErrors++
		d.n.wearWrites += uint64(ev.Written)
		d.log.Error("key store write failed", "written", ev.Written, "error", ev.Err)
		if d.storeFault {
			d.feedback(now, "Store error", "Store faulted")
			break
		}
		d.feedback(now, "Store error")

	case provision.KindIgnored:
		d.n.ignored++
		d.log.Debug("byte ignored", "byte", fmt.Sprintf("0x%02X", ev.Byte))
	}
}

func (d *Device) feedback(now time.Time, lines ...string) {
	d.show(lines...)
	d.feedbackShown = true
	d.feedbackUntil = now.Add(d.cfg.FeedbackHold)
}

// ------------------------------------------------------------
// display
// ------------------------------------------------------------

// showCode puts the current code (or the unprovisioned diagnostic) on the
// panel and enters DISPLAYING.
func (d *Device) showCode(now time.Time) {
	d.n.displays++
	d.statusDirty = true

	elapsed := d.src.Now()
	window := elapsed / d.cfg.Timestep

	if d.provisioned {
		code, err := d.engine.Generate(elapsed, d.cfg.Timestep)
		if err != nil {
			d.log.Error("code generation failed", "error", err)
			d.show("Error")
		} else {
			d.show(hmacotp.Format(code))
		}
		d.log.Info("code displayed", "code_window", window)
	} else {
		d.showCurrentKey()
	}

	d.displayWindow = window
	d.displayUntil = now.Add(d.displayLength(elapsed))
	d.setState(StateDisplaying)
}

// showCurrentKey is the diagnostic for an unprovisioned store: the stored
// key rendered on the panel and echoed on the serial channel.
func (d *Device) showCurrentKey() {
	key, err := d.store.Read()
	if err != nil {
		d.log.Error("key read failed", "error", err)
		d.show("Store error")
		return
	}

	d.show(keyPanel("Current key:", key)...)
	d.send([]byte(provision.PrefixCurrentKey + strings.Join(display.RenderKey(key, 0), "") + "\r\n"))
	d.log.Info("unprovisioned, current key shown")
}

func (d *Device) displayLength(elapsed uint64) time.Duration {
	if d.cfg.DisplayMode != DisplayWindow {
		return d.cfg.DisplayDuration
	}
	remaining := time.Duration(d.cfg.Timestep-elapsed%d.cfg.Timestep) * time.Second
	return min(remaining, d.cfg.DisplayDuration)
}

func (d *Device) displayOver(now time.Time) bool {
	if !now.Before(d.displayUntil) {
		return true
	}
	return d.cfg.DisplayMode == DisplayWindow && d.src.Now()/d.cfg.Timestep != d.displayWindow
}

func (d *Device) show(lines ...string) {
	if err := d.surface.Show(lines...); err != nil {
		d.log.Warn("display write failed", "error", err)
	}
}

func (d *Device) clear() {
	if err := d.surface.Clear(); err != nil {
		d.log.Warn("display clear failed", "error", err)
	}
}

// ------------------------------------------------------------
// plumbing
// ------------------------------------------------------------

func (d *Device) send(line []byte) {
	if len(line) == 0 {
		return
	}
	if _, err := d.tx.Write(line); err != nil {
		d.log.Warn("serial write failed", "error", err)
	}
}

func (d *Device) setState(s State) {
	if d.state == s {
		return
	}
	d.log.Debug("state change", "from", d.state.String(), "state", s.String())
	d.state = s
	d.statusDirty = true
}

// Snapshot is the exportable view of the device. It never carries key
// material or codes.
func (d *Device) Snapshot() status.Snapshot {
	var prov uint16
	if d.provisioned {
		prov = 1
	}
	var fault uint16
	if d.storeFault {
		fault = 1
	}
	return status.Snapshot{
		State:       d.state.statusCode(),
		Provisioned: prov,
		FramesSaved: status.Saturate(d.n.framesSaved),
		Timeouts:    status.Saturate(d.n.timeouts),
		Ignored:     status.Saturate(d.n.ignored),
		StoreErrors: status.Saturate(d.n.storeErrors),
		WearWrites:  status.Saturate(d.n.wearWrites),
		Displays:    status.Saturate(d.n.displays),
		Overruns:    status.Saturate(d.n.overruns),
		StoreFault:  fault,
	}
}

// publish pushes the snapshot when it changed since the last delivery.
func (d *Device) publish() {
	if d.sink == nil || !d.statusDirty {
		return
	}
	d.statusDirty = false

	snap := d.Snapshot()
	if snap == d.lastStatus {
		return
	}
	if err := d.sink.WriteStatus(snap); err != nil {
		d.log.Warn("status export failed", "error", err)
		d.statusDirty = true
		return
	}
	d.lastStatus = snap
}
