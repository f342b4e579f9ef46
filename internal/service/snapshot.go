package service

import "sort"

// Info is a read-only view of one service for the management API.
type Info struct {
	ID          string   `json:"id"`
	NiceName    string   `json:"nicename"`
	State       string   `json:"state"`
	Enabled     bool     `json:"enabled"`
	Type        string   `json:"type"`
	Encrypted   bool     `json:"encrypted"`
	Subscribers int      `json:"subscribers"`
	Components  int      `json:"components"`
	Channels    []string `json:"channels,omitempty"`
}

// Snapshot returns a consistent view of every registered service,
// sorted by nicename.
func (c *Core) Snapshot() []Info {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Info, 0, len(c.services))
	for _, s := range c.services {
		info := Info{
			ID:          s.ID,
			NiceName:    s.NiceName(),
			State:       s.status.String(),
			Enabled:     s.enabled,
			Type:        s.TypeText(),
			Encrypted:   s.IsEncrypted(),
			Subscribers: len(s.subs),
			Components:  s.StreamCount(),
		}
		for _, ch := range s.channels {
			info.Channels = append(info.Channels, ch.Name)
		}
		out = append(out, info)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].NiceName < out[j].NiceName })
	return out
}
