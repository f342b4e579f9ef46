package service

// Record is the durable shape of a service: identity plus the component
// table, in persisted order. The persistence collaborator decides where
// and how records are stored; this package only builds and applies them.
type Record struct {
	ID        string         `json:"id"`
	NiceName  string         `json:"nicename,omitempty"`
	Enabled   bool           `json:"enabled"`
	ServiceID int            `json:"sid,omitempty"`
	PCRPid    int            `json:"pcr"`
	PMTPid    int            `json:"pmt"`
	Streams   []StreamRecord `json:"stream"`
}

// StreamRecord is one persisted elementary stream. Type-specific fields
// are omitted when they do not apply.
type StreamRecord struct {
	PID           int    `json:"pid"`
	Type          string `json:"type"`
	Position      int    `json:"position"`
	Language      string `json:"language,omitempty"`
	AudioType     int    `json:"audio_type,omitempty"`
	CAIDs         []CAID `json:"caidlist,omitempty"`
	CompositionID int    `json:"compositionid,omitempty"`
	AncillaryID   int    `json:"ancillaryid,omitempty"`
	ParentPID     int    `json:"parentpid,omitempty"`
	Width         int    `json:"width,omitempty"`
	Height        int    `json:"height,omitempty"`
	Duration      int    `json:"duration,omitempty"`
}

// SaveRecord snapshots the service into its durable shape. Components
// are sorted into persisted order first so the stored order matches the
// original descriptor order.
func (s *Service) SaveRecord() *Record {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()

	s.sortStreams()

	rec := &Record{
		ID:        s.ID,
		NiceName:  s.nicename,
		Enabled:   s.enabled,
		ServiceID: s.ServiceID,
		PCRPid:    s.PCRPid,
		PMTPid:    s.PMTPid,
		Streams:   make([]StreamRecord, 0, len(s.components)),
	}

	for _, es := range s.components {
		sr := StreamRecord{
			PID:      es.PID,
			Type:     es.Type.String(),
			Position: es.Position,
			Language: es.Lang,
		}
		if es.Type.IsAudio() {
			sr.AudioType = es.AudioType
		}
		if es.Type == StreamCA {
			sr.CAIDs = append(sr.CAIDs, es.CAIDs...)
		}
		if es.Type == StreamDVBSub {
			sr.CompositionID = es.CompositionID
			sr.AncillaryID = es.AncillaryID
		}
		if es.Type == StreamTextSub {
			sr.ParentPID = es.ParentPID
		}
		if es.Type.IsVideo() {
			sr.Width = es.Width
			sr.Height = es.Height
			sr.Duration = es.FrameDuration
		}
		rec.Streams = append(rec.Streams, sr)
	}
	return rec
}

// LoadRecord rebuilds the component table from a stored record. Streams
// with an unknown type are skipped. The table ends up in persisted
// order.
func (s *Service) LoadRecord(rec *Record) {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()

	s.PCRPid = rec.PCRPid
	s.PMTPid = rec.PMTPid

	for _, sr := range rec.Streams {
		typ := StreamTypeFromText(sr.Type)
		if typ == StreamNone {
			continue
		}

		es := s.streamCreate(sr.PID, typ)
		es.Position = sr.Position
		es.Lang = sr.Language

		if typ.IsAudio() {
			es.AudioType = sr.AudioType
		}
		if typ == StreamCA {
			es.CAIDs = append(es.CAIDs, sr.CAIDs...)
		}
		if typ == StreamDVBSub {
			es.CompositionID = sr.CompositionID
			es.AncillaryID = sr.AncillaryID
		}
		if typ == StreamTextSub {
			es.ParentPID = sr.ParentPID
		}
		if typ.IsVideo() {
			es.Width = sr.Width
			es.Height = sr.Height
			es.FrameDuration = sr.Duration
		}
	}

	s.sortStreams()
}
