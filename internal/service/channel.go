package service

// Channel aggregates the services that can carry it. One channel may be
// reachable through several services (different muxes, different
// networks); arbitration picks among all of them.
//
// Mappings are mutated by configuration collaborators through the core;
// the arbitration path only reads them.
type Channel struct {
	ID   string
	Name string

	// Guarded by core.mu.
	services []*Service
}

// NewChannel creates a channel and registers it with the core.
func (c *Core) NewChannel(id, name string) *Channel {
	ch := &Channel{ID: id, Name: name}
	c.mu.Lock()
	c.channels[id] = ch
	c.mu.Unlock()
	return ch
}

// FindChannel returns the channel with the given id, or nil.
func (c *Core) FindChannel(id string) *Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channels[id]
}

// Channels returns all registered channels.
func (c *Core) Channels() []*Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Channel, 0, len(c.channels))
	for _, ch := range c.channels {
		out = append(out, ch)
	}
	return out
}

// MapChannel links a service to a channel. Idempotent.
func (c *Core) MapChannel(ch *Channel, s *Service) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cur := range ch.services {
		if cur == s {
			return
		}
	}
	ch.services = append(ch.services, s)
	s.channels = append(s.channels, ch)
}

// UnmapChannel removes the link between a channel and a service.
func (c *Core) UnmapChannel(ch *Channel, s *Service) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unmapChannel(ch, s)
}

func (c *Core) unmapChannel(ch *Channel, s *Service) {
	for i, cur := range ch.services {
		if cur == s {
			ch.services = append(ch.services[:i], ch.services[i+1:]...)
			break
		}
	}
	for i, cur := range s.channels {
		if cur == ch {
			s.channels = append(s.channels[:i], s.channels[i+1:]...)
			break
		}
	}
}

// MappedServices returns the services mapped to the channel.
func (c *Core) MappedServices(ch *Channel) []*Service {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Service, len(ch.services))
	copy(out, ch.services)
	return out
}
