package service

import (
	"context"
	"sync"

	"github.com/MrSnakeDoc/antenna/internal/logger"
	"github.com/MrSnakeDoc/antenna/internal/metrics"
)

// Core owns the arbitration lock and the process-wide service registry.
// Every lifecycle transition, subscription change and channel mapping
// goes through it.
type Core struct {
	mu       sync.Mutex
	services map[string]*Service
	channels map[string]*Channel
	log      logger.Logger
}

// NewCore creates an empty core.
func NewCore(log logger.Logger) *Core {
	return &Core{
		services: make(map[string]*Service),
		channels: make(map[string]*Channel),
		log:      log,
	}
}

// Find returns the service with the given id, or nil.
func (c *Core) Find(id string) *Service {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.services[id]
}

// Services returns all registered services.
func (c *Core) Services() []*Service {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Service, 0, len(c.services))
	for _, s := range c.services {
		out = append(out, s)
	}
	return out
}

// AddSubscriber attaches a subscriber to the service.
func (c *Core) AddSubscriber(s *Service, sub Subscriber) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s.subs = append(s.subs, sub)
}

// RemoveSubscriber detaches one subscriber (or all, when sub is nil)
// from the service. Removing the last subscriber stops the service.
func (c *Core) RemoveSubscriber(s *Service, sub Subscriber, code Code) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeSubscriber(s, sub, code)
}

func (c *Core) removeSubscriber(s *Service, sub Subscriber, code Code) {
	if sub == nil {
		for len(s.subs) > 0 {
			cur := s.subs[0]
			s.subs = s.subs[1:]
			cur.ServiceLost(code)
		}
	} else {
		for i, cur := range s.subs {
			if cur == sub {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				cur.ServiceLost(code)
				break
			}
		}
	}

	if len(s.subs) == 0 && s.status == StateRunning {
		s.stop()
	}
}

// Displace force-detaches every subscriber of s. Only for Feeder
// callbacks, which already run with the arbitration lock held.
func (c *Core) Displace(s *Service, code Code) {
	metrics.Preemptions.Inc()
	c.removeSubscriber(s, nil, code)
}

// SubscriberCount returns the number of attached subscribers.
func (c *Core) SubscriberCount(s *Service) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(s.subs)
}

// CurrentWeight returns the heaviest claim currently attached to the
// service. Core lock must be held; used by feeders during enlistment.
func (s *Service) CurrentWeight() int {
	w := 0
	for _, sub := range s.subs {
		if sw := sub.Weight(); sw > w {
			w = sw
		}
	}
	return w
}

// SetEnabled flips the administrative enable flag.
func (c *Core) SetEnabled(s *Service, enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s.enabled = enabled
}

// DestroyService permanently tears a service down: subscriptions are
// forcibly detached, channel links dropped, the state moves to zombie
// and the creator's reference is released. Safe to call twice; the
// second call is a no-op. The object itself lives on until the last
// outstanding reference is dropped.
func (c *Core) DestroyService(s *Service) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyService(s)
}

func (c *Core) destroyService(s *Service) {
	if s.destroyed {
		return
	}
	s.destroyed = true

	c.log.Info("destroying service",
		logger.String("service", s.NiceName()),
		logger.String("id", s.ID))

	c.removeSubscriber(s, nil, CodeSourceDeleted)

	for len(s.channels) > 0 {
		c.unmapChannel(s.channels[0], s)
	}

	delete(c.services, s.ID)

	if s.status != StateIdle {
		s.stop()
	}
	s.status = StateZombie

	s.streamMu.Lock()
	s.streamDestroyAll()
	s.streamMu.Unlock()

	s.Unref()
}

// ApplyPendingSave runs one drained save-queue entry under the
// arbitration lock: persist unless the service is already a zombie,
// live-restart if it is running and a restart was coalesced in, then
// drop the queue's reference. The persist error is returned for logging
// but never interrupts the drain.
func (c *Core) ApplyPendingSave(ctx context.Context, s *Service, restart bool, persist func(context.Context, *Service) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if s.status != StateZombie {
		err = persist(ctx, s)
	}
	if s.status == StateRunning && restart {
		s.Restart(true)
	}
	s.Unref()
	return err
}
