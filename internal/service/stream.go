package service

import (
	"fmt"
	"sort"

	"github.com/MrSnakeDoc/antenna/internal/logger"
)

const ptsUnset = int64(-1)

// CAID is one conditional-access identifier attached to a CA stream.
type CAID struct {
	CAID       uint16 `json:"caid"`
	ProviderID uint32 `json:"providerid,omitempty"`
}

// ElementaryStream is one decoded sub-stream (video, audio, subtitle,
// conditional access...) owned by exactly one Service.
//
// Descriptor fields are guarded by the owning service's stream lock.
// The per-run decode state at the bottom is reset on every start and
// released on every stop.
type ElementaryStream struct {
	PID  int
	Type StreamType

	// Index is assigned at creation and strictly increases for the
	// lifetime of the service, even across deletions. Position is the
	// persisted ordering key and follows the original descriptor order.
	Index    int
	Position int

	Lang          string
	AudioType     int
	Width         int
	Height        int
	FrameDuration int
	CompositionID int
	AncillaryID   int
	ParentPID     int // parent stream for dependent text subtitles
	CAIDs         []CAID

	nicename string
	svc      *Service

	// Per-run decode state.
	cc         int
	startCond  uint32
	curDTS     int64
	curPTS     int64
	prevDTS    int64
	blank      bool
	buf        []byte
	globalData []byte
}

// NiceName returns the display name of the stream.
func (es *ElementaryStream) NiceName() string {
	return es.nicename
}

// AddCAID attaches a conditional-access identifier to the stream.
// Stream lock must be held.
func (es *ElementaryStream) AddCAID(caid uint16, providerID uint32) {
	es.CAIDs = append(es.CAIDs, CAID{CAID: caid, ProviderID: providerID})
}

// streamInit resets the per-run decode state. Called for every component
// when the service starts and for components created while running.
func streamInit(es *ElementaryStream) {
	es.cc = -1
	es.startCond = 0xffffffff
	es.curDTS = ptsUnset
	es.curPTS = ptsUnset
	es.prevDTS = ptsUnset
	es.blank = false
}

// streamClean releases the per-run reassembly buffers. The component
// itself survives; only run state is dropped.
func streamClean(es *ElementaryStream) {
	es.buf = nil
	es.globalData = nil
	es.startCond = 0
}

// StreamCreate finds or creates the elementary stream with the given PID.
// Creation is idempotent: re-announcing a PID during a re-parse returns
// the existing component untouched and does not advance the index.
func (s *Service) StreamCreate(pid int, typ StreamType) *ElementaryStream {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	return s.streamCreate(pid, typ)
}

// streamCreate is StreamCreate with the stream lock already held.
func (s *Service) streamCreate(pid int, typ StreamType) *ElementaryStream {
	if pid != -1 {
		for _, es := range s.components {
			if es.PID == pid {
				return es
			}
		}
	}

	s.lastIndex++
	es := &ElementaryStream{
		PID:   pid,
		Type:  typ,
		Index: s.lastIndex,
		svc:   s,
	}
	s.components = append(s.components, es)
	s.streamMakeNicename(es)

	s.core.log.Debug("add stream",
		logger.String("stream", es.nicename))

	if s.status == StateRunning {
		streamInit(es)
	}
	return es
}

// StreamFind returns the elementary stream with the given PID, or nil.
func (s *Service) StreamFind(pid int) *ElementaryStream {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	return s.streamFind(pid)
}

func (s *Service) streamFind(pid int) *ElementaryStream {
	if s.lastES != nil && s.lastPID == pid {
		return s.lastES
	}
	for _, es := range s.components {
		if es.PID == pid {
			s.lastES = es
			s.lastPID = pid
			return es
		}
	}
	return nil
}

// StreamDestroy removes one component from the service. The component's
// index is never reused.
func (s *Service) StreamDestroy(es *ElementaryStream) {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	s.streamDestroy(es)
}

// streamDestroy removes one component from the service. Stream lock must
// be held.
func (s *Service) streamDestroy(es *ElementaryStream) {
	if s.status == StateRunning {
		streamClean(es)
	}
	if s.lastES == es {
		s.lastES = nil
		s.lastPID = -1
	}
	for i, cur := range s.components {
		if cur == es {
			s.components = append(s.components[:i], s.components[i+1:]...)
			break
		}
	}
	es.CAIDs = nil
	es.svc = nil
}

// streamDestroyAll tears down every component. Used on destroy.
func (s *Service) streamDestroyAll() {
	for len(s.components) > 0 {
		s.streamDestroy(s.components[0])
	}
}

// SortStreams reorders components into persisted order so serialized
// output matches the original descriptor order, regardless of the
// PID-scan order they were created in.
func (s *Service) SortStreams() {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	s.sortStreams()
}

func (s *Service) sortStreams() {
	sort.SliceStable(s.components, func(i, j int) bool {
		return s.components[i].Position < s.components[j].Position
	})
}

// streamMakeNicename rebuilds one component's display name. Stream lock
// must be held.
func (s *Service) streamMakeNicename(es *ElementaryStream) {
	if es.PID != -1 {
		es.nicename = fmt.Sprintf("%s: %s @ #%d", s.nicename, es.Type, es.PID)
	} else {
		es.nicename = fmt.Sprintf("%s: %s", s.nicename, es.Type)
	}
}

// StreamCount returns the number of components.
func (s *Service) StreamCount() int {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	return len(s.components)
}
