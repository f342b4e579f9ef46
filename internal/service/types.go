package service

// StreamType tags the payload carried by one elementary stream.
type StreamType int

const (
	StreamNone StreamType = iota
	StreamMPEG2Video
	StreamH264
	StreamMPEG2Audio
	StreamAC3
	StreamEAC3
	StreamAAC
	StreamTeletext
	StreamDVBSub
	StreamTextSub
	StreamCA
)

var streamTypeText = map[StreamType]string{
	StreamNone:       "NONE",
	StreamMPEG2Video: "MPEG2VIDEO",
	StreamH264:       "H264",
	StreamMPEG2Audio: "MPEG2AUDIO",
	StreamAC3:        "AC3",
	StreamEAC3:       "EAC3",
	StreamAAC:        "AAC",
	StreamTeletext:   "TELETEXT",
	StreamDVBSub:     "DVBSUB",
	StreamTextSub:    "TEXTSUB",
	StreamCA:         "CA",
}

func (t StreamType) String() string {
	if s, ok := streamTypeText[t]; ok {
		return s
	}
	return "NONE"
}

// StreamTypeFromText is the inverse of StreamType.String, used when
// rebuilding components from a stored record. Unknown text maps to
// StreamNone.
func StreamTypeFromText(s string) StreamType {
	for t, txt := range streamTypeText {
		if txt == s {
			return t
		}
	}
	return StreamNone
}

// IsVideo reports whether the stream carries video.
func (t StreamType) IsVideo() bool {
	return t == StreamMPEG2Video || t == StreamH264
}

// IsAudio reports whether the stream carries audio.
func (t StreamType) IsAudio() bool {
	switch t {
	case StreamMPEG2Audio, StreamAC3, StreamEAC3, StreamAAC:
		return true
	}
	return false
}

// IsSubtitle reports whether the stream carries subtitles.
func (t StreamType) IsSubtitle() bool {
	return t == StreamDVBSub || t == StreamTextSub
}

// Streaming-status bitmask. Flags only ever accumulate during one run;
// they are reset when the service starts.
const (
	StatusInputHardware = 1 << iota // sensed input from the adapter
	StatusInputService              // got packets for this service
	StatusMuxPackets                // demuxed packets
	StatusPackets                   // reassembled packets, fully working
	StatusNoDescrambler
	StatusNoAccess
	StatusGracePeriod // grace period expired without data
)

// StatusText renders the most significant condition of a status bitmask
// as a human-readable string.
func StatusText(flags int) string {
	switch {
	case flags&StatusNoAccess != 0:
		return "No access"
	case flags&StatusNoDescrambler != 0:
		return "No descrambler"
	case flags&StatusPackets != 0:
		return "Got valid packets"
	case flags&StatusMuxPackets != 0:
		return "Got multiplexed packets but could not decode further"
	case flags&StatusInputService != 0:
		return "Got packets for this service but could not decode further"
	case flags&StatusInputHardware != 0:
		return "Sensed input from hardware but nothing for the service"
	case flags&StatusGracePeriod != 0:
		return "No input detected"
	}
	return "No status"
}

// StatusCode maps a status bitmask to the subscription code a consumer
// should see for it.
func StatusCode(flags int) Code {
	switch {
	case flags&StatusNoAccess != 0:
		return CodeNoAccess
	case flags&StatusNoDescrambler != 0:
		return CodeNoDescrambler
	case flags&StatusGracePeriod != 0:
		return CodeNoInput
	}
	return CodeOK
}
