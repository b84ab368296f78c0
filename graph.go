// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mxf

import "fmt"

// refSite is a pending reference waiting for its target object to appear.
// index is -1 for a single-valued reference member, or the element
// position within a batch/array-of-reference member.
type refSite struct {
	obj    *Object
	member string
	index  int
}

// Graph is the in-memory object arena and reference resolver: a node
// arena (Targets) plus UUID indices rather than reference-counted
// parent/smart pointers.
// Strong edges own by transfer (tracked in owner); weak edges are plain
// index lookups that may simply fail to resolve.
type Graph struct {
	ctx *Context

	Targets   map[UL]*Object
	Unmatched map[UL][]refSite
	All       []*Object
	topLevel  map[*Object]bool
	owner     map[UL]*Object // target uid -> the object strongly owning it
}

// NewGraph creates an empty graph bound to ctx (used to look up class
// member reference kinds during resolution).
func NewGraph(ctx *Context) *Graph {
	return &Graph{
		ctx:       ctx,
		Targets:   make(map[UL]*Object),
		Unmatched: make(map[UL][]refSite),
		topLevel:  make(map[*Object]bool),
		owner:     make(map[UL]*Object),
	}
}

// TopLevel returns the objects that remain un-demoted: per ST 377-1,
// "what remains top-level after all sets are read is exactly the roots
// reachable from the Preface."
func (g *Graph) TopLevel() []*Object {
	out := make([]*Object, 0, len(g.topLevel))
	for o := range g.topLevel {
		out = append(out, o)
	}
	return out
}

// AddObject registers a newly-parsed object in the arena: every created
// object starts top-level (ST 377-1), is indexed by InstanceUID if it
// has one, and immediately resolves (or queues) each of its reference
// members.
func (g *Graph) AddObject(obj *Object) error {
	g.All = append(g.All, obj)
	g.topLevel[obj] = true

	var zero UL
	if obj.InstanceUID != zero {
		g.Targets[obj.InstanceUID] = obj
		if err := g.resolvePending(obj.InstanceUID, obj); err != nil {
			return err
		}
	}
	if obj.Dark {
		return nil
	}
	for _, m := range g.ctx.AllMembers(obj.Class) {
		raw, ok := obj.Values[m.Name]
		if !ok {
			continue
		}
		if err := g.resolveMember(obj, m, raw); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) resolveMember(obj *Object, m Member, raw []byte) error {
	mt, err := g.ctx.FindType(m.Type)
	if err != nil {
		return nil // unknown member type: nothing to resolve, value stays raw
	}

	switch mt.Kind {
	case KindInterpretation:
		if mt.Ref == RefNone {
			return nil
		}
		target, err := ULFromBytes(raw)
		if err != nil {
			return nil
		}
		return g.link(obj, m, -1, target, mt.Ref)

	case KindArray, KindBatch:
		elemType, err := g.ctx.FindType(mt.Element)
		if err != nil || elemType.Ref == RefNone {
			return nil
		}
		arrTraits, err := g.ctx.TraitsFor(m.Type)
		if err != nil {
			return nil
		}
		at, ok := arrTraits.(*arrayTraits)
		if !ok {
			return nil
		}
		elems, err := at.Elements(raw)
		if err != nil {
			return nil
		}
		for i, e := range elems {
			target, err := ULFromBytes(e)
			if err != nil {
				continue
			}
			if err := g.link(obj, m, i, target, elemType.Ref); err != nil {
				return err
			}
		}
	}
	return nil
}

// link either resolves a reference site immediately (if its target is
// already known) or queues it in Unmatched (ST 377-1).
func (g *Graph) link(obj *Object, m Member, index int, target UL, kind ReferenceKind) error {
	if existing, ok := g.Targets[target]; ok {
		return g.attach(obj, m, index, existing, kind)
	}
	g.Unmatched[target] = append(g.Unmatched[target], refSite{obj: obj, member: m.Name, index: index})
	return nil
}

func (g *Graph) attach(obj *Object, m Member, index int, target *Object, kind ReferenceKind) error {
	if index < 0 {
		obj.Links[m.Name] = target
	} else {
		slice := obj.LinksMulti[m.Name]
		for len(slice) <= index {
			slice = append(slice, nil)
		}
		slice[index] = target
		obj.LinksMulti[m.Name] = slice
	}
	if kind == RefStrong {
		var zero UL
		if target.InstanceUID != zero {
			if existingOwner, ok := g.owner[target.InstanceUID]; ok && existingOwner != obj {
				return fmt.Errorf("graph: target %s: %w", target.InstanceUID, ErrDoubleStrongRef)
			}
			g.owner[target.InstanceUID] = obj
		}
		delete(g.topLevel, target)
	}
	return nil
}

// resolvePending links every previously-queued reference site waiting for
// a target whose UUID has just appeared.
func (g *Graph) resolvePending(target UL, obj *Object) error {
	sites := g.Unmatched[target]
	if len(sites) == 0 {
		return nil
	}
	delete(g.Unmatched, target)
	for _, s := range sites {
		m, ok := g.ctx.FindMember(s.obj.Class, s.member)
		if !ok {
			continue
		}
		kind := m.Ref
		if kind == RefNone {
			if mt, err := g.ctx.FindType(m.Type); err == nil {
				if mt.Kind == KindArray || mt.Kind == KindBatch {
					if et, err := g.ctx.FindType(mt.Element); err == nil {
						kind = et.Ref
					}
				} else {
					kind = mt.Ref
				}
			}
		}
		if err := g.attach(s.obj, m, s.index, obj, kind); err != nil {
			return err
		}
	}
	return nil
}

// UnresolvedWeakRefs reports every UUID still awaited by at least one
// reference site after the whole file has been read — a diagnostic, not a
// hard error, per ST 377-1 ("After read, UnmatchedRefs is reported; it
// is a diagnostic, not a hard error").
func (g *Graph) UnresolvedWeakRefs() []UL {
	out := make([]UL, 0, len(g.Unmatched))
	for uid := range g.Unmatched {
		out = append(out, uid)
	}
	return out
}

// CheckWriteInvariants validates the strong-reference invariants that are
// only enforced at write time (ST 377-1): every strongly
// referenced target has exactly one owner (already enforced during
// resolution by attach) and strong edges contain no cycle.
func (g *Graph) CheckWriteInvariants() error {
	visiting := make(map[*Object]int) // 0 unvisited, 1 in-progress, 2 done
	var visit func(o *Object) error
	visit = func(o *Object) error {
		switch visiting[o] {
		case 1:
			return fmt.Errorf("graph: %w", ErrStrongRefCycle)
		case 2:
			return nil
		}
		visiting[o] = 1
		for _, m := range g.ctx.AllMembers(o.Class) {
			kind := m.Ref
			if kind == RefNone {
				// Batches and arrays of references carry the kind on their element type.
				if mt, err := g.ctx.FindType(m.Type); err == nil && (mt.Kind == KindArray || mt.Kind == KindBatch) {
					if et, err := g.ctx.FindType(mt.Element); err == nil {
						kind = et.Ref
					}
				}
			}
			if kind != RefStrong {
				continue
			}
			if child, ok := o.Links[m.Name]; ok {
				if child == nil {
					return fmt.Errorf("graph: member %s: %w", m.Name, ErrDanglingStrongRef)
				}
				if err := visit(child); err != nil {
					return err
				}
			}
			for _, child := range o.LinksMulti[m.Name] {
				if child == nil {
					return fmt.Errorf("graph: member %s: %w", m.Name, ErrDanglingStrongRef)
				}
				if err := visit(child); err != nil {
					return err
				}
			}
		}
		visiting[o] = 2
		return nil
	}
	for _, o := range g.All {
		if err := visit(o); err != nil {
			return err
		}
	}
	return nil
}
