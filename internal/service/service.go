package service

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrSnakeDoc/antenna/internal/logger"
	"github.com/MrSnakeDoc/antenna/internal/metrics"
	"github.com/MrSnakeDoc/antenna/internal/streaming"
)

// State is the lifecycle state of a service.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateZombie // terminal, set once during destruction
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateZombie:
		return "zombie"
	}
	return "unknown"
}

// Kind is an optional explicit classification of a service. When left at
// KindNone the classification accessors derive it from the component set.
type Kind int

const (
	KindNone Kind = iota
	KindSDTV
	KindHDTV
	KindRadio
)

// DefaultGracePeriod is armed after a successful start; if no packets
// arrive before it fires, the grace-period status flag is raised.
const DefaultGracePeriod = 10 * time.Second

// Feeder is supplied by the concrete resource backing a service (a DVB
// tuner, a file source...). The core never inspects the concrete type.
//
// StartFeed and StopFeed run with the arbitration lock held; StartFeed
// may block for hardware tune time.
type Feeder interface {
	StartFeed(s *Service, instance int) Code
	StopFeed(s *Service)
	Enlist(s *Service, list *InstanceList)
	SourceInfo(s *Service) streaming.SourceInfo
}

// GracePerioder lets a feeder override DefaultGracePeriod.
type GracePerioder interface {
	GracePeriod(s *Service) time.Duration
}

// FeedRefresher lets a feeder react to a live descriptor restart.
type FeedRefresher interface {
	RefreshFeed(s *Service)
}

// Subscriber is one logical consumer attached to a running service.
type Subscriber interface {
	Weight() int
	ServiceLost(code Code)
}

// Descrambler is attached by the descrambling collaborator while a
// scrambled service runs; it is stopped before the feed stops.
type Descrambler interface {
	Stop()
}

// Params configures a new service.
type Params struct {
	ID        string
	ServiceID int // DVB service id (SID)
	Kind      Kind
	Enabled   bool
	Feeder    Feeder
}

// Service is a logical tunable source of a stream together with its
// decoded components.
//
// Lifecycle state, subscriptions and channel links are guarded by the
// core's arbitration lock. The component set and per-run stream state
// are guarded by the per-service stream lock, so packet-rate work never
// blocks arbitration. When both are needed the arbitration lock is
// acquired first.
type Service struct {
	ID        string
	ServiceID int
	Kind      Kind

	core   *Core
	feeder Feeder
	refs   atomic.Int32

	// Guarded by core.mu.
	status       State
	enabled      bool
	destroyed    bool
	subs         []Subscriber
	descramblers []Descrambler
	channels     []*Channel

	// Guarded by streamMu.
	streamMu        sync.Mutex
	tssCond         *sync.Cond
	nicename        string
	components      []*ElementaryStream
	lastIndex       int
	lastES          *ElementaryStream
	lastPID         int
	streamingStatus int
	scrambledSeen   bool
	currentPTS      int64
	PCRPid          int
	PMTPid          int

	pad          *streaming.Pad
	receiveTimer *time.Timer

	// onRelease fires when the last reference is dropped. Test hook.
	onRelease func()
}

// NewService creates a service, inserts it into the core registry and
// hands the creator's reference to the caller. The reference is released
// by DestroyService.
func (c *Core) NewService(p Params) *Service {
	s := &Service{
		ID:         p.ID,
		ServiceID:  p.ServiceID,
		Kind:       p.Kind,
		core:       c,
		feeder:     p.Feeder,
		enabled:    p.Enabled,
		lastPID:    -1,
		currentPTS: ptsUnset,
		pad:        streaming.NewPad(),
	}
	s.tssCond = sync.NewCond(&s.streamMu)
	s.refs.Store(1)

	c.mu.Lock()
	c.services[s.ID] = s
	c.mu.Unlock()
	return s
}

// Ref takes one reference on the service.
func (s *Service) Ref() {
	s.refs.Add(1)
}

// Unref drops one reference. The decrement that brings the count to zero
// releases the backing state; the decrement and the test are a single
// atomic operation so the release can neither race nor repeat.
func (s *Service) Unref() {
	if s.refs.Add(-1) == 0 {
		s.release()
	}
}

func (s *Service) release() {
	s.nicename = ""
	s.components = nil
	s.lastES = nil
	if s.onRelease != nil {
		s.onRelease()
	}
}

// Pad returns the delivery pad consumers attach to.
func (s *Service) Pad() *streaming.Pad {
	return s.pad
}

// IsEnabled reports the administrative enable flag. Disabled services are
// never enlisted for arbitration.
func (s *Service) IsEnabled() bool {
	return s.enabled
}

// State returns the current lifecycle state. Core lock must be held by
// callers that need it to stay true; everyone else gets a snapshot.
func (s *Service) State() State {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	return s.status
}

// start transitions the service to running on the given instance.
// Core lock must be held. Starting an already-running service is a
// caller ordering bug and panics; starting a destroyed service fails
// with CodeBadSource.
func (s *Service) start(instance int) Code {
	if s.status == StateRunning {
		panic(fmt.Sprintf("service %s: start while running", s.ID))
	}
	if s.status == StateZombie {
		return CodeBadSource
	}

	s.core.log.Debug("starting service", logger.String("service", s.NiceName()))

	s.streamMu.Lock()
	s.streamingStatus = 0
	s.scrambledSeen = false
	s.streamMu.Unlock()

	if code := s.feeder.StartFeed(s, instance); code != CodeOK {
		return code
	}

	s.streamMu.Lock()
	s.currentPTS = ptsUnset
	for _, es := range s.components {
		streamInit(es)
	}
	s.streamMu.Unlock()

	s.status = StateRunning
	metrics.ServicesRunning.Inc()

	timeout := DefaultGracePeriod
	if g, ok := s.feeder.(GracePerioder); ok {
		timeout = g.GracePeriod(s)
	}
	s.receiveTimer = time.AfterFunc(timeout, s.dataTimeout)
	return CodeOK
}

// stop transitions the service back to idle. Core lock must be held.
// All subscriptions must already be detached; attached descramblers are
// stopped here. Components survive, only their run state is dropped.
func (s *Service) stop() {
	if s.receiveTimer != nil {
		s.receiveTimer.Stop()
		s.receiveTimer = nil
	}

	s.feeder.StopFeed(s)

	for len(s.descramblers) > 0 {
		td := s.descramblers[0]
		s.descramblers = s.descramblers[1:]
		td.Stop()
	}

	if len(s.subs) != 0 {
		panic(fmt.Sprintf("service %s: stop with %d live subscriptions", s.ID, len(s.subs)))
	}

	s.streamMu.Lock()
	for _, es := range s.components {
		streamClean(es)
	}
	if s.status == StateRunning {
		metrics.ServicesRunning.Dec()
	}
	s.status = StateIdle
	s.streamMu.Unlock()

	s.core.log.Debug("stopped service", logger.String("service", s.NiceName()))
}

// dataTimeout fires when the grace period elapses without any reassembled
// packets. It only raises a status flag; never blocks.
func (s *Service) dataTimeout() {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()

	if s.streamingStatus&StatusPackets == 0 {
		s.setStreamingStatusFlags(StatusGracePeriod)
	}
}

// SetStreamingStatusFlags merges flags into the streaming-status bitmask,
// broadcasting a status message when anything actually changes.
func (s *Service) SetStreamingStatusFlags(set int) {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	s.setStreamingStatusFlags(set)
}

func (s *Service) setStreamingStatusFlags(set int) {
	n := s.streamingStatus | set
	if n == s.streamingStatus {
		return // already set
	}
	s.streamingStatus = n

	s.core.log.Debug("status changed",
		logger.String("service", s.nicename),
		logger.String("status", StatusText(n)))

	s.pad.Deliver(streaming.Message{Type: streaming.MsgStatus, Status: n})
	s.tssCond.Broadcast()
}

// StreamingStatus returns the current status bitmask.
func (s *Service) StreamingStatus() int {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	return s.streamingStatus
}

// WaitStatusChange blocks until the streaming status moves away from the
// given bitmask value.
func (s *Service) WaitStatusChange(from int) int {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	for s.streamingStatus == from {
		s.tssCond.Wait()
	}
	return s.streamingStatus
}

// Restart re-announces the descriptor set to current consumers without
// touching lifecycle state. Used when stream composition changes while
// the service keeps running.
func (s *Service) Restart(hadComponents bool) {
	s.streamMu.Lock()

	if hadComponents {
		s.pad.Deliver(streaming.Message{
			Type: streaming.MsgStop,
			Code: int(CodeSourceReconfigured),
		})
	}

	if len(s.components) > 0 {
		s.pad.Deliver(streaming.Message{
			Type:  streaming.MsgStart,
			Start: s.buildStreamStart(),
		})
	}

	s.streamMu.Unlock()

	if r, ok := s.feeder.(FeedRefresher); ok {
		r.RefreshFeed(s)
	}
}

// BuildStreamStart snapshots the component table into a descriptor set
// for delivery to consumers.
func (s *Service) BuildStreamStart() *streaming.StreamStart {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	return s.buildStreamStart()
}

func (s *Service) buildStreamStart() *streaming.StreamStart {
	ss := &streaming.StreamStart{
		Components: make([]streaming.StartComponent, 0, len(s.components)),
		Source:     s.feeder.SourceInfo(s),
		PCRPid:     s.PCRPid,
		PMTPid:     s.PMTPid,
		ServiceID:  s.ServiceID,
	}
	for _, es := range s.components {
		ss.Components = append(ss.Components, streaming.StartComponent{
			Index:         es.Index,
			Type:          es.Type.String(),
			PID:           es.PID,
			Lang:          es.Lang,
			AudioType:     es.AudioType,
			Width:         es.Width,
			Height:        es.Height,
			FrameDuration: es.FrameDuration,
			CompositionID: es.CompositionID,
			AncillaryID:   es.AncillaryID,
		})
	}
	return ss
}

// MakeNicename rebuilds the display name from source info. Called after
// creation and whenever topology changes.
func (s *Service) MakeNicename() {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()

	si := s.feeder.SourceInfo(s)
	parts := make([]string, 0, 3)
	for _, p := range []string{si.Adapter, si.Mux, si.Service} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	s.nicename = strings.Join(parts, "/")

	for _, es := range s.components {
		s.streamMakeNicename(es)
	}
}

// NiceName returns the display name.
func (s *Service) NiceName() string {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	return s.nicename
}

// AttachDescrambler registers a descrambler with the running service.
// Core lock must be held.
func (s *Service) AttachDescrambler(td Descrambler) {
	s.descramblers = append(s.descramblers, td)
}

// IsSDTV reports standard-definition TV: explicit kind, or any video
// component below 720 lines.
func (s *Service) IsSDTV() bool {
	if s.Kind == KindSDTV {
		return true
	}
	if s.Kind != KindNone {
		return false
	}
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	for _, es := range s.components {
		if es.Type.IsVideo() && es.Height < 720 {
			return true
		}
	}
	return false
}

// IsHDTV reports high-definition TV: explicit kind, or any video
// component of 720 lines or more.
func (s *Service) IsHDTV() bool {
	if s.Kind == KindHDTV {
		return true
	}
	if s.Kind != KindNone {
		return false
	}
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	for _, es := range s.components {
		if es.Type.IsVideo() && es.Height >= 720 {
			return true
		}
	}
	return false
}

// IsRadio reports audio-only services.
func (s *Service) IsRadio() bool {
	if s.Kind == KindRadio {
		return true
	}
	if s.Kind != KindNone {
		return false
	}
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	ret := false
	for _, es := range s.components {
		if es.Type.IsVideo() {
			return false
		}
		if es.Type.IsAudio() {
			ret = true
		}
	}
	return ret
}

// IsEncrypted reports whether the service carries a conditional-access
// stream.
func (s *Service) IsEncrypted() bool {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	for _, es := range s.components {
		if es.Type == StreamCA {
			return true
		}
	}
	return false
}

// Encryption returns the first nonzero CAID, or 0 for free-to-air.
func (s *Service) Encryption() uint16 {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	for _, es := range s.components {
		if es.Type != StreamCA {
			continue
		}
		for _, c := range es.CAIDs {
			if c.CAID != 0 {
				return c.CAID
			}
		}
	}
	return 0
}

// TypeText classifies the service for display.
func (s *Service) TypeText() string {
	switch {
	case s.IsHDTV():
		return "HDTV"
	case s.IsSDTV():
		return "SDTV"
	case s.IsRadio():
		return "Radio"
	}
	return "Other"
}
