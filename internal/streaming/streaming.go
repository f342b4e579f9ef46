package streaming

import "sync"

// MessageType identifies the kind of message delivered on a pad.
type MessageType int

const (
	// MsgStatus carries the current streaming-status bitmask of a service.
	MsgStatus MessageType = iota
	// MsgStop tells consumers the descriptor set is gone; Code explains why.
	MsgStop
	// MsgStart carries a fresh StreamStart descriptor set.
	MsgStart
)

// Message is one notification delivered to every target of a pad.
type Message struct {
	Type   MessageType
	Status int          // streaming-status bitmask (MsgStatus)
	Code   int          // reason code (MsgStop)
	Start  *StreamStart // descriptor set (MsgStart)
}

// SourceInfo describes where a stream comes from, for display purposes.
type SourceInfo struct {
	Device   string `json:"device,omitempty"`
	Adapter  string `json:"adapter,omitempty"`
	Network  string `json:"network,omitempty"`
	Mux      string `json:"mux,omitempty"`
	Provider string `json:"provider,omitempty"`
	Service  string `json:"service,omitempty"`
}

// StartComponent is one elementary stream in a StreamStart descriptor set.
type StartComponent struct {
	Index         int
	Type          string
	PID           int
	Lang          string
	AudioType     int
	Width         int
	Height        int
	FrameDuration int
	CompositionID int
	AncillaryID   int
}

// StreamStart is the full descriptor snapshot sent to consumers when a
// service (re)starts output.
type StreamStart struct {
	Components []StartComponent
	Source     SourceInfo
	PCRPid     int
	PMTPid     int
	ServiceID  int
}

// Target receives messages delivered on a pad.
type Target interface {
	Deliver(msg Message)
}

// Pad fans messages out to attached targets. Delivery order follows
// attachment order; targets must not block.
type Pad struct {
	mu      sync.Mutex
	targets []Target
}

// NewPad creates an empty pad.
func NewPad() *Pad {
	return &Pad{}
}

// AddTarget attaches a target to the pad.
func (p *Pad) AddTarget(t Target) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.targets = append(p.targets, t)
}

// RemoveTarget detaches a target from the pad.
func (p *Pad) RemoveTarget(t Target) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, cur := range p.targets {
		if cur == t {
			p.targets = append(p.targets[:i], p.targets[i+1:]...)
			return
		}
	}
}

// TargetCount returns the number of attached targets.
func (p *Pad) TargetCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.targets)
}

// Deliver sends msg to every attached target.
func (p *Pad) Deliver(msg Message) {
	p.mu.Lock()
	targets := make([]Target, len(p.targets))
	copy(targets, p.targets)
	p.mu.Unlock()

	for _, t := range targets {
		t.Deliver(msg)
	}
}
