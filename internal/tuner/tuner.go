package tuner

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/antenna/internal/logger"
	"github.com/MrSnakeDoc/antenna/internal/service"
	"github.com/MrSnakeDoc/antenna/internal/streaming"
)

// Pool owns the physical adapters described by the inventory and the
// DVB-backed services riding on them. All pool state is guarded by the
// core's arbitration lock: every mutation happens inside a Feeder
// callback, which only runs with that lock held.
type Pool struct {
	core     *service.Core
	log      logger.Logger
	grace    time.Duration
	adapters []*Adapter
}

// Adapter is one physical tuner. An adapter receives a single mux at a
// time; every service carried by that mux can be fed concurrently.
type Adapter struct {
	Name    string
	Network string

	mux     string // currently tuned mux, "" when idle
	current []*DVBService
}

// DVBService is the resource-specific side of one broadcast service. It
// implements service.Feeder; the core only ever talks to it through
// that interface.
type DVBService struct {
	svc      *service.Service
	pool     *Pool
	name     string
	provider string
	mux      string
	network  string
	adapter  *Adapter // adapter currently feeding us, nil when idle
}

// Build creates the pool, one service per inventory entry and the
// channel mappings. Stored records, when present, are applied by the
// caller afterwards.
func Build(inv *Inventory, core *service.Core, grace time.Duration, log logger.Logger) *Pool {
	p := &Pool{core: core, log: log, grace: grace}

	for _, a := range inv.Adapters {
		p.adapters = append(p.adapters, &Adapter{Name: a.Name, Network: a.Network})
	}

	muxNetworks := make(map[string]string, len(inv.Muxes))
	for _, m := range inv.Muxes {
		muxNetworks[m.Name] = m.Network
	}

	byName := make(map[string]*service.Service, len(inv.Services))
	for _, spec := range inv.Services {
		d := &DVBService{
			pool:     p,
			name:     spec.Name,
			provider: spec.Provider,
			mux:      spec.Mux,
			network:  muxNetworks[spec.Mux],
		}
		svc := core.NewService(service.Params{
			ID:        ServiceID(spec.Mux, spec.Name),
			ServiceID: spec.SID,
			Enabled:   !spec.Disabled,
			Feeder:    d,
		})
		svc.PCRPid = spec.PCR
		svc.PMTPid = spec.PMT
		d.svc = svc
		svc.MakeNicename()
		byName[spec.Name] = svc
	}

	for _, chSpec := range inv.Channels {
		ch := core.NewChannel(ChannelID(chSpec.Name), chSpec.Name)
		for _, name := range chSpec.Services {
			core.MapChannel(ch, byName[name])
		}
	}

	log.Info("inventory loaded",
		logger.Int("adapters", len(inv.Adapters)),
		logger.Int("muxes", len(inv.Muxes)),
		logger.Int("services", len(inv.Services)),
		logger.Int("channels", len(inv.Channels)))
	return p
}

// ServiceID derives a stable identifier from a service's position in
// the topology, so the same inventory always yields the same ids and
// stored records keep matching across restarts.
func ServiceID(mux, name string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("antenna://"+mux+"/"+name)).String()
}

// ChannelID derives a stable channel identifier.
func ChannelID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("antenna://channel/"+name)).String()
}

// occupantWeight is the heaviest claim among services fed by the
// adapter. Free adapters weigh nothing.
func (a *Adapter) occupantWeight() int {
	w := 0
	for _, d := range a.current {
		if sw := d.svc.CurrentWeight(); sw > w {
			w = sw
		}
	}
	return w
}

// Enlist appends or confirms one candidate per adapter able to receive
// this service's mux. An adapter already tuned to the right mux (or
// idle) ranks ahead of one that would need to retune away from other
// consumers.
func (d *DVBService) Enlist(s *service.Service, list *service.InstanceList) {
	for i, a := range d.pool.adapters {
		if a.Network != d.network {
			continue
		}

		prio, weight := 0, 0
		if a.mux != "" && a.mux != d.mux {
			prio = 1
			weight = a.occupantWeight()
		}
		list.Add(s, i, prio, weight)
	}
}

// StartFeed claims the adapter for this service's mux. When the adapter
// carries a different mux, its current consumers are displaced first;
// the arbiter only picks such an instance when the request outranks
// them.
func (d *DVBService) StartFeed(s *service.Service, instance int) service.Code {
	if instance < 0 || instance >= len(d.pool.adapters) {
		return service.CodeTuningFailed
	}
	a := d.pool.adapters[instance]

	if a.mux != "" && a.mux != d.mux {
		// Displacement stops each victim, which releases the adapter
		// through its StopFeed.
		for len(a.current) > 0 {
			d.pool.core.Displace(a.current[0].svc, service.CodeOverridden)
		}
	}

	a.mux = d.mux
	a.current = append(a.current, d)
	d.adapter = a

	d.pool.log.Info("feed started",
		logger.String("adapter", a.Name),
		logger.String("mux", d.mux),
		logger.String("service", d.name))

	s.SetStreamingStatusFlags(service.StatusInputHardware)
	return service.CodeOK
}

// StopFeed releases the adapter. The adapter goes idle when the last
// service on its mux stops.
func (d *DVBService) StopFeed(s *service.Service) {
	a := d.adapter
	if a == nil {
		return
	}
	d.adapter = nil

	for i, cur := range a.current {
		if cur == d {
			a.current = append(a.current[:i], a.current[i+1:]...)
			break
		}
	}
	if len(a.current) == 0 {
		a.mux = ""
	}

	d.pool.log.Info("feed stopped",
		logger.String("adapter", a.Name),
		logger.String("service", d.name))
}

// SourceInfo describes the service's position in the topology.
func (d *DVBService) SourceInfo(s *service.Service) streaming.SourceInfo {
	si := streaming.SourceInfo{
		Network:  d.network,
		Mux:      d.mux,
		Provider: d.provider,
		Service:  d.name,
	}
	if d.adapter != nil {
		si.Adapter = d.adapter.Name
	}
	return si
}

// GracePeriod applies the pool-wide data timeout.
func (d *DVBService) GracePeriod(s *service.Service) time.Duration {
	return d.pool.grace
}
