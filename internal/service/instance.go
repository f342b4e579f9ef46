package service

// Instance is one concrete way of reaching a service (for example one
// specific adapter), ranked for arbitration. Instances are transient:
// built during enlistment, confirmed on re-enlistment, destroyed when
// the resource stops being reachable.
type Instance struct {
	Service  *Service
	Number   int  // resource-specific instance number
	Priority int  // secondary rank, supplied by enlistment
	Weight   int  // current claim on the resource; <= 0 means free
	Err      Code // sticky failure within one arbitration context

	mark bool
}

// InstanceList is a candidate list kept sorted by weight then priority,
// lowest first. It persists across FindInstance calls for the same
// request context and carries the highest failure code seen so far.
type InstanceList struct {
	items   []*Instance
	errCode Code
}

// Len returns the number of candidates.
func (l *InstanceList) Len() int {
	return len(l.items)
}

// ErrorCode returns the highest failure code raised in this context.
func (l *InstanceList) ErrorCode() Code {
	return l.errCode
}

func siLess(a, b *Instance) bool {
	if a.Weight != b.Weight {
		return a.Weight < b.Weight
	}
	return a.Priority < b.Priority
}

func (l *InstanceList) insertSorted(si *Instance) {
	pos := len(l.items)
	for i, cur := range l.items {
		if siLess(si, cur) {
			pos = i
			break
		}
	}
	l.items = append(l.items, nil)
	copy(l.items[pos+1:], l.items[pos:])
	l.items[pos] = si
}

// Add confirms an existing candidate or appends a new one, keeping the
// list sorted. A new candidate takes a reference on its service,
// released when the candidate is destroyed. Called by feeders during
// enlistment; core lock held.
func (l *InstanceList) Add(s *Service, number, prio, weight int) *Instance {
	for _, si := range l.items {
		if si.Service == s && si.Number == number {
			si.mark = false
			if si.Priority == prio && si.Weight == weight {
				return si
			}
			l.remove(si)
			si.Priority = prio
			si.Weight = weight
			l.insertSorted(si)
			return si
		}
	}

	si := &Instance{
		Service:  s,
		Number:   number,
		Priority: prio,
		Weight:   weight,
	}
	s.Ref()
	l.insertSorted(si)
	return si
}

func (l *InstanceList) remove(si *Instance) {
	for i, cur := range l.items {
		if cur == si {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return
		}
	}
}

// Destroy removes a candidate and releases its service reference.
func (l *InstanceList) Destroy(si *Instance) {
	l.remove(si)
	si.Service.Unref()
}

// Clear destroys every candidate.
func (l *InstanceList) Clear() {
	for len(l.items) > 0 {
		l.Destroy(l.items[0])
	}
	l.errCode = CodeOK
}
