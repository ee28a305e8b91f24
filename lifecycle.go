package hotspot

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mintwifi/hotspot/firewall"
)

// State is a phase of the hotspot session state machine.
type State int

const (
	// StateIdle: no session, nothing applied.
	StateIdle State = iota
	// StateValidating: a start request is being checked against the system.
	StateValidating
	// StateStarting: routing, forwarding and AP profile are being applied.
	StateStarting
	// StateRunning: the hotspot is serving clients.
	StateRunning
	// StateStopping: a running session is tearing down.
	StateStopping
	// StateFailed: the last start attempt failed; retryable.
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:       "idle",
	StateValidating: "validating",
	StateStarting:   "starting",
	StateRunning:    "running",
	StateStopping:   "stopping",
	StateFailed:     "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Options wires the controller's collaborators. Every dependency is
// injectable so the state machine can run against fakes.
type Options struct {
	// Inventory enumerates the current interfaces.
	Inventory func(ctx context.Context) ([]NetworkInterface, error)
	// Probe returns the capability set for one interface.
	Probe func(ctx context.Context, iface string) (*CapabilitySet, error)
	// Clients counts associated stations on the AP interface.
	Clients func(ctx context.Context, iface string) int

	Firewall   firewall.Firewall
	AP         APService
	Forwarding ForwardingControl
	Publisher  *Publisher

	Logger *zap.Logger
	// Now is the clock, overridable in tests.
	Now func() time.Time
	// TickInterval drives periodic work while running (auto-off checks,
	// client counting, VPN re-pinning).
	TickInterval time.Duration
}

const (
	defaultTickInterval = 2 * time.Second
	// clientCountEvery spaces out the station dump, which is the most
	// expensive periodic call.
	clientCountEvery = 5
)

// Snapshot is a point-in-time view of the controller.
type Snapshot struct {
	State     State
	Session   *Session
	Plan      *RoutingPlan
	StartedAt time.Time
	Deadline  time.Time
	Clients   int
	LastError error
}

type requestKind int

const (
	reqStart requestKind = iota
	reqStop
)

type request struct {
	kind  requestKind
	sess  *Session
	reply chan error
}

// Controller owns the session state machine. All transitions happen on a
// single control loop; Start and Stop hand requests to it and wait for the
// outcome, so there is never more than one session and never a transition
// race.
type Controller struct {
	opts     Options
	log      *zap.Logger
	requests chan request

	mu   sync.Mutex
	snap Snapshot
}

// NewController validates options and creates an idle controller. Run must
// be called before Start or Stop do anything.
func NewController(opts Options) (*Controller, error) {
	if opts.Inventory == nil || opts.Probe == nil {
		return nil, errors.New("controller requires inventory and probe functions")
	}
	if opts.Firewall == nil || opts.AP == nil || opts.Forwarding == nil {
		return nil, errors.New("controller requires firewall, AP service and forwarding control")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}
	return &Controller{
		opts:     opts,
		log:      opts.Logger,
		requests: make(chan request),
	}, nil
}

// Run executes the control loop until ctx is canceled. A running session is
// torn down before Run returns.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.opts.TickInterval)
	defer ticker.Stop()

	ticks := 0
	for {
		select {
		case <-ctx.Done():
			c.stopSession(context.Background())
			return ctx.Err()
		case req := <-c.requests:
			switch req.kind {
			case reqStart:
				req.reply <- c.startSession(ctx, req.sess)
			case reqStop:
				req.reply <- c.stopSession(ctx)
			}
		case <-ticker.C:
			ticks++
			c.tick(ctx, ticks)
		}
	}
}

// Start validates and starts a session. It fails with ErrSessionActive when
// one is already starting or running, with a ConfigError on invalid input,
// and with a BlockError when the safety evaluation refuses.
func (c *Controller) Start(ctx context.Context, s *Session) error {
	return c.submit(ctx, request{kind: reqStart, sess: s, reply: make(chan error, 1)})
}

// Stop tears down the current session. Stopping an idle controller is a
// no-op.
func (c *Controller) Stop(ctx context.Context) error {
	return c.submit(ctx, request{kind: reqStop, reply: make(chan error, 1)})
}

func (c *Controller) submit(ctx context.Context, req request) error {
	select {
	case c.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns the current snapshot.
func (c *Controller) Status() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

func (c *Controller) startSession(ctx context.Context, s *Session) error {
	switch c.Status().State {
	case StateStarting, StateRunning, StateStopping:
		return ErrSessionActive
	}

	c.setState(StateValidating, nil)

	if err := s.Validate(); err != nil {
		return c.failValidation(err)
	}

	inv, err := c.opts.Inventory(ctx)
	if err != nil {
		return c.failValidation(err)
	}
	caps, err := c.opts.Probe(ctx, s.HotspotInterface)
	if err != nil && !errors.Is(err, ErrDeviceUnreachable) {
		return c.failValidation(err)
	}

	verdict := Evaluate(EvaluateRequest{
		HotspotInterface:     s.HotspotInterface,
		InternetSource:       s.InternetSource,
		Band:                 s.Band,
		Inventory:            inv,
		Capabilities:         caps,
		ForceSingleInterface: s.ForceSingleInterface,
	})
	for _, w := range verdict.Warnings {
		c.log.Warn("safety warning", zap.String("warning", w))
	}
	if !verdict.Allowed {
		return c.failValidation(&BlockError{Reasons: verdict.Reasons, Warnings: verdict.Warnings})
	}

	plan, err := BuildPlan(s, inv)
	if err != nil {
		return c.failValidation(err)
	}

	c.setState(StateStarting, nil)
	c.log.Info("starting hotspot",
		zap.String("ssid", s.SSID),
		zap.String("interface", s.HotspotInterface),
		zap.String("egress", plan.Egress),
		zap.Bool("vpn_pinned", plan.VPNPinned))

	if err := c.apply(ctx, s, plan); err != nil {
		c.mu.Lock()
		c.snap = Snapshot{State: StateFailed, LastError: err}
		c.mu.Unlock()
		c.publish()
		return err
	}

	now := c.opts.Now()
	c.mu.Lock()
	c.snap = Snapshot{
		State:     StateRunning,
		Session:   s,
		Plan:      plan,
		StartedAt: now,
	}
	if s.AutoOff > 0 {
		c.snap.Deadline = now.Add(s.AutoOff)
	}
	c.mu.Unlock()
	c.publish()
	c.log.Info("hotspot running", zap.String("ssid", s.SSID))
	return nil
}

// apply installs routing, forwarding and the AP profile in order. On
// failure the applied prefix rolls back in reverse so nothing survives a
// partial start.
func (c *Controller) apply(ctx context.Context, s *Session, plan *RoutingPlan) error {
	if err := plan.Apply(ctx, c.opts.Firewall); err != nil {
		return err
	}
	if err := c.opts.Forwarding.Enable(); err != nil {
		_ = plan.Remove(ctx, c.opts.Firewall)
		return &ApplyError{Step: "ip forwarding", Err: err}
	}
	if err := c.opts.AP.StartAP(ctx, s); err != nil {
		_ = c.opts.Forwarding.Restore()
		_ = plan.Remove(ctx, c.opts.Firewall)
		return err
	}
	return nil
}

func (c *Controller) stopSession(ctx context.Context) error {
	snap := c.Status()
	switch snap.State {
	case StateIdle, StateValidating:
		return nil
	case StateFailed:
		// Nothing applied; just clear the failure.
		c.setState(StateIdle, nil)
		c.publish()
		return nil
	}

	c.setState(StateStopping, snap.LastError)
	c.log.Info("stopping hotspot")

	// Teardown is best-effort and runs to completion; the first error wins.
	var first error
	if err := c.opts.AP.StopAP(ctx); err != nil {
		first = err
	}
	if err := c.opts.Forwarding.Restore(); err != nil && first == nil {
		first = err
	}
	if snap.Plan != nil {
		if err := snap.Plan.Remove(ctx, c.opts.Firewall); err != nil && first == nil {
			first = err
		}
	}

	c.setState(StateIdle, first)
	c.publish()
	return first
}

// tick runs the periodic work of a running session.
func (c *Controller) tick(ctx context.Context, n int) {
	snap := c.Status()
	if snap.State != StateRunning {
		return
	}

	if !snap.Deadline.IsZero() && !c.opts.Now().Before(snap.Deadline) {
		c.log.Info("auto-off deadline reached")
		if err := c.stopSession(ctx); err != nil {
			c.log.Warn("auto-off teardown incomplete", zap.Error(err))
		}
		return
	}

	changed := false
	if c.opts.Clients != nil && n%clientCountEvery == 0 {
		count := c.opts.Clients(ctx, snap.Session.HotspotInterface)
		c.mu.Lock()
		if c.snap.State == StateRunning && c.snap.Clients != count {
			c.snap.Clients = count
			changed = true
		}
		c.mu.Unlock()
	}

	if snap.Session.VPNRouting {
		if c.repin(ctx, snap) {
			changed = true
		}
	}

	if changed {
		c.publish()
	}
}

// repin moves the routing plan onto a newly detected VPN tunnel. When the
// pinned tunnel vanished with no replacement the old rules stay in place:
// they match nothing, so traffic drops rather than leaking through the
// physical uplink.
func (c *Controller) repin(ctx context.Context, snap Snapshot) bool {
	inv, err := c.opts.Inventory(ctx)
	if err != nil {
		c.log.Warn("inventory refresh failed", zap.Error(err))
		return false
	}

	egress, vpn := resolveEgress(snap.Session, inv)
	if !vpn || egress == snap.Plan.Egress {
		return false
	}

	plan, err := BuildPlan(snap.Session, inv)
	if err != nil {
		return false
	}
	c.log.Info("repinning egress",
		zap.String("from", snap.Plan.Egress),
		zap.String("to", plan.Egress))

	if err := plan.Apply(ctx, c.opts.Firewall); err != nil {
		c.log.Warn("egress repin failed", zap.Error(err))
		return false
	}
	if err := snap.Plan.Remove(ctx, c.opts.Firewall); err != nil {
		c.log.Warn("stale rule removal incomplete", zap.Error(err))
	}

	c.mu.Lock()
	if c.snap.State == StateRunning {
		c.snap.Plan = plan
	}
	c.mu.Unlock()
	return true
}

// failValidation moves a refused start into Failed and publishes it, so a
// status poller can render the blocking reasons. Nothing has been applied
// at this point; Failed stays retryable.
func (c *Controller) failValidation(err error) error {
	c.mu.Lock()
	c.snap = Snapshot{State: StateFailed, LastError: err}
	c.mu.Unlock()
	c.publish()
	return err
}

func (c *Controller) setState(s State, lastErr error) {
	c.mu.Lock()
	if s == StateIdle {
		c.snap = Snapshot{State: StateIdle, LastError: lastErr}
	} else {
		c.snap.State = s
		c.snap.LastError = lastErr
	}
	c.mu.Unlock()
}

// publish mirrors the snapshot into the status file, best-effort.
func (c *Controller) publish() {
	if c.opts.Publisher == nil {
		return
	}
	snap := c.Status()
	rec := StatusRecord{
		State:   snap.State.String(),
		Clients: snap.Clients,
		Kernel:  KernelRelease(),
	}
	if snap.Session != nil {
		rec.SSID = snap.Session.SSID
		rec.Interface = snap.Session.HotspotInterface
	}
	if snap.Plan != nil {
		rec.InternetSource = snap.Plan.Egress
		rec.VPNPinned = snap.Plan.VPNPinned
	}
	rec.StartedAt = snap.StartedAt
	rec.Deadline = snap.Deadline
	if snap.LastError != nil {
		rec.LastError = snap.LastError.Error()
	}
	if err := c.opts.Publisher.Publish(rec); err != nil {
		c.log.Warn("status publish failed", zap.Error(err))
	}
}
