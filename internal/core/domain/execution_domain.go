package domain

import (
	"slices"

	"go.trai.ch/zerr"
)

// DomainSettings declares an execution domain: the key types supplied from outside
// and the value types the domain must produce.
type DomainSettings struct {
	Name   string
	Keys   []InternedString
	Values []InternedString
}

// ExecutionDomain is the closed subset of a graph's entrypoints that turns a domain's
// keys into its values. Domains whose entrypoints are a strict subset of another
// domain's are nested inside it.
type ExecutionDomain struct {
	Name    string
	Aliases []string
	Keys    []InternedString
	Values  []InternedString

	entrypoints []int
	members     map[int]struct{}
	inner       []*ExecutionDomain
}

// Entrypoints returns the domain's entrypoint indices in execution order.
func (d *ExecutionDomain) Entrypoints() []int {
	return d.entrypoints
}

// Contains reports whether the entrypoint at idx belongs to the domain.
func (d *ExecutionDomain) Contains(idx int) bool {
	_, ok := d.members[idx]
	return ok
}

// Inner returns the domains nested inside this one.
func (d *ExecutionDomain) Inner() []*ExecutionDomain {
	return d.inner
}

type slotSet map[int]struct{}

func (s slotSet) add(slot int) bool {
	if _, ok := s[slot]; ok {
		return false
	}
	s[slot] = struct{}{}
	return true
}

func (s slotSet) has(slot int) bool {
	_, ok := s[slot]
	return ok
}

// CarveDomain resolves settings to the minimal set of entrypoints needed to turn the
// keys into the values, plus whatever those entrypoints themselves require.
//
// Two frontiers are expanded to a fixed point. The produce-need frontier starts with
// the values and gains every import (and constraint) of a pulled-in entrypoint that
// is neither a key nor the context. The consume-need frontier starts with the keys
// and gains every non-value export of a pulled-in entrypoint; an entrypoint importing
// one of those exports is pulled in so no value produced inside the domain dangles.
// Keys leave the consume-need frontier once an entrypoint inside imports them.
func (g *Graph) CarveDomain(settings DomainSettings) (*ExecutionDomain, error) {
	if !g.validated {
		return nil, ErrGraphNotValidated
	}

	keys, values, err := g.domainSlots(settings)
	if err != nil {
		return nil, err
	}

	produceNeed := make(slotSet)
	consumeNeed := make(slotSet)
	produced := make(slotSet)
	consumed := make(slotSet)
	for slot := range values {
		produceNeed.add(slot)
	}
	for slot := range keys {
		consumeNeed.add(slot)
	}

	inDomain := make([]bool, len(g.entrypoints))
	absorb := func(idx int) {
		for _, slot := range g.exportIndex[idx] {
			produced.add(slot)
			delete(produceNeed, slot)
			if !values.has(slot) && !consumed.has(slot) {
				consumeNeed.add(slot)
			}
		}
		need := func(slot int) {
			if keys.has(slot) || g.slotTypes[slot] == ContextType || produced.has(slot) {
				return
			}
			produceNeed.add(slot)
		}
		for _, slot := range g.importIndex[idx] {
			consumed.add(slot)
			delete(consumeNeed, slot)
			need(slot)
		}
		for _, c := range g.constraintIndex[idx] {
			need(c.Slot)
		}
	}

	for changed := true; changed; {
		changed = false
		for idx := range g.entrypoints {
			if inDomain[idx] {
				continue
			}
			if g.pullsProducer(idx, produceNeed) || g.pullsConsumer(idx, consumeNeed, keys) {
				inDomain[idx] = true
				absorb(idx)
				changed = true
			}
		}
	}

	for _, t := range settings.Keys {
		slot := g.slots[t]
		if !consumed.has(slot) {
			return nil, zerr.With(zerr.With(ErrDomainKeyNotConsumed, "type", t.String()), "domain", settings.Name)
		}
		if produced.has(slot) {
			return nil, zerr.With(zerr.With(ErrDomainKeyRedefined, "type", t.String()), "domain", settings.Name)
		}
	}

	d := &ExecutionDomain{
		Name:    settings.Name,
		Keys:    settings.Keys,
		Values:  settings.Values,
		members: make(map[int]struct{}),
	}
	for _, idx := range g.executionOrder {
		if inDomain[idx] {
			d.entrypoints = append(d.entrypoints, idx)
			d.members[idx] = struct{}{}
		}
	}
	return d, nil
}

func (g *Graph) domainSlots(settings DomainSettings) (keys, values slotSet, err error) {
	imported := make(slotSet)
	for _, imports := range g.importIndex {
		for _, slot := range imports {
			imported.add(slot)
		}
	}

	keys = make(slotSet, len(settings.Keys))
	for _, t := range settings.Keys {
		slot, ok := g.slots[t]
		if !ok {
			return nil, nil, zerr.With(zerr.With(ErrDomainTypeUnused, "type", t.String()), "domain", settings.Name)
		}
		keys.add(slot)
	}

	values = make(slotSet, len(settings.Values))
	for _, t := range settings.Values {
		slot, ok := g.slots[t]
		if !ok || !imported.has(slot) {
			return nil, nil, zerr.With(zerr.With(ErrDomainTypeUnused, "type", t.String()), "domain", settings.Name)
		}
		values.add(slot)
	}
	return keys, values, nil
}

func (g *Graph) pullsProducer(idx int, produceNeed slotSet) bool {
	for _, slot := range g.exportIndex[idx] {
		if produceNeed.has(slot) {
			return true
		}
	}
	return false
}

func (g *Graph) pullsConsumer(idx int, consumeNeed, keys slotSet) bool {
	for _, slot := range g.importIndex[idx] {
		if consumeNeed.has(slot) && !keys.has(slot) {
			return true
		}
	}
	return false
}

// CarveDomains carves every domain, merges domains with identical entrypoint sets
// and nests strict subsets. A partial overlap between two domains is an error.
func (g *Graph) CarveDomains(settings ...DomainSettings) ([]*ExecutionDomain, error) {
	var domains []*ExecutionDomain

next:
	for _, s := range settings {
		d, err := g.CarveDomain(s)
		if err != nil {
			return nil, err
		}
		for _, prev := range domains {
			if slices.Equal(prev.entrypoints, d.entrypoints) {
				prev.Aliases = append(prev.Aliases, d.Name)
				continue next
			}
		}
		domains = append(domains, d)
	}

	for i, a := range domains {
		for _, b := range domains[i+1:] {
			shared := 0
			for _, idx := range b.entrypoints {
				if a.Contains(idx) {
					shared++
				}
			}
			switch {
			case shared == 0:
			case shared == len(b.entrypoints):
				a.inner = append(a.inner, b)
			case shared == len(a.entrypoints):
				b.inner = append(b.inner, a)
			default:
				return nil, zerr.With(zerr.With(ErrDomainPartialOverlap, "domain", a.Name), "other", b.Name)
			}
		}
	}

	return domains, nil
}

// Subplan returns a plan that runs only the domain's entrypoints. It is seeded by the
// key slots (followed by the context slot when the graph has one) and results in the
// value slots; a value the domain did not produce is reported as absent.
func (g *Graph) Subplan(d *ExecutionDomain) *Plan {
	p := &Plan{
		name:  d.Name,
		graph: g,
		order: d.entrypoints,
	}
	for _, t := range d.Keys {
		p.seeds = append(p.seeds, g.slots[t])
	}
	if slot, ok := g.slots[ContextType]; ok {
		p.seeds = append(p.seeds, slot)
	}
	for _, t := range d.Values {
		p.results = append(p.results, g.slots[t])
		p.resultOptional = append(p.resultOptional, true)
	}
	p.async = g.anyAsync(p.order)
	return p
}
