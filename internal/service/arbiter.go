package service

import (
	"github.com/MrSnakeDoc/antenna/internal/logger"
	"github.com/MrSnakeDoc/antenna/internal/metrics"
)

// FindInstance resolves a request for a service (or any service mapped
// to a channel) to a concrete instance, starting it if needed.
//
// The candidate list is updated in place: stale candidates are pruned,
// new ones enlisted, and rankings refreshed on every call. Selection
// order: an already-running error-free candidate is reused; failing
// that, the best-ranked free candidate (weight <= 0) is claimed;
// failing that, the weakest claim strictly below the requested weight is
// preempted. A start failure marks the candidate so the same context
// will not retry it; re-invoking with the same list moves on to the
// next-best candidate.
func (c *Core) FindInstance(s *Service, ch *Channel, list *InstanceList, weight int) (*Instance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.findInstance(s, ch, list, weight)
}

func (c *Core) findInstance(s *Service, ch *Channel, list *InstanceList, weight int) (*Instance, error) {
	// Mark, so enlistment can confirm what is still reachable.
	for _, si := range list.items {
		si.mark = true
	}

	if ch != nil {
		for _, svc := range ch.services {
			if svc.IsEnabled() {
				svc.feeder.Enlist(svc, list)
			}
		}
	} else {
		s.feeder.Enlist(s, list)
	}

	// Sweep candidates the enlistment no longer confirmed.
	for i := 0; i < len(list.items); {
		if list.items[i].mark {
			list.Destroy(list.items[i])
			continue
		}
		i++
	}

	for _, si := range list.items {
		c.log.Debug("candidate",
			logger.String("service", si.Service.NiceName()),
			logger.Int("instance", si.Number),
			logger.Int("weight", si.Weight),
			logger.Int("prio", si.Priority),
			logger.Int("error", int(si.Err)))
	}

	// Already running: zero-cost attach, regardless of weight.
	for _, si := range list.items {
		if si.Service.status == StateRunning && si.Err == CodeOK {
			metrics.Arbitrations.WithLabelValues("reused").Inc()
			return si, nil
		}
	}

	// Free or unconstrained.
	var pick *Instance
	for _, si := range list.items {
		if si.Weight <= 0 && si.Err == CodeOK {
			pick = si
			break
		}
	}

	// Bump the weakest claim the request outranks. The list is sorted
	// lightest first, so the first match is the cheapest preemption.
	preempt := false
	if pick == nil {
		for _, si := range list.items {
			if weight > si.Weight && si.Err == CodeOK {
				pick = si
				preempt = true
				break
			}
		}
	}

	if pick == nil {
		raise(&list.errCode, CodeNoFreeAdapter)
		metrics.Arbitrations.WithLabelValues("no_free").Inc()
		return nil, ErrNoFreeAdapter
	}

	if code := pick.Service.start(pick.Number); code != CodeOK {
		pick.Err = CodeTuningFailed
		raise(&list.errCode, CodeTuningFailed)
		metrics.Arbitrations.WithLabelValues("tuning_failed").Inc()
		return nil, ErrTuningFailed
	}

	if preempt {
		metrics.Arbitrations.WithLabelValues("preempted").Inc()
	} else {
		metrics.Arbitrations.WithLabelValues("started").Inc()
	}
	return pick, nil
}
