// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mxf

// Usage describes how a class member participates in a well-formed set,
// per ST 377-1 "Object type (class)".
type Usage int

const (
	UsageRequired Usage = iota
	UsageBestEffort
	UsageOptional
	UsageDecoderRequired
	UsageDark
)

// Member is one field of a class (ST 377-1): name, UL, optional local
// tag, type, usage, length bounds, reference kind, and default/
// distinguished values.
type Member struct {
	Name          string
	UL            UL
	LocalTag      Tag
	HasLocalTag   bool
	Type          string
	Usage         Usage
	MinLength     int
	MaxLength     int // 0 means unbounded
	Ref           ReferenceKind
	TargetClass   string
	Default       []byte
	Distinguished []byte
}

// Class is one object-type definition (ST 377-1 "Object type (class)"):
// name, parent, key, concrete/abstract, member list.
type Class struct {
	Name     string
	Parent   string
	Key      UL
	HasKey   bool
	Concrete bool
	Members  []Member
}

// MemberByName looks up a member declared directly on this class (not
// walking the parent chain).
func (c *Class) MemberByName(name string) (Member, bool) {
	for _, m := range c.Members {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

// MemberByUL looks up a member declared directly on this class by its
// global UL.
func (c *Class) MemberByUL(ul UL) (Member, bool) {
	for _, m := range c.Members {
		if m.UL.Equal(ul, true) {
			return m, true
		}
	}
	return Member{}, false
}

// AllMembers walks the parent chain (via ctx) and returns the member list
// ordered from root ancestor down to c, so that wire order follows
// registration order the way field order defines compound wire order
// (ST 377-1).
func (ctx *Context) AllMembers(c *Class) []Member {
	var chain []*Class
	cur := c
	for cur != nil {
		chain = append([]*Class{cur}, chain...)
		if cur.Parent == "" {
			break
		}
		cur = ctx.Classes[cur.Parent]
	}
	var out []Member
	for _, cl := range chain {
		out = append(out, cl.Members...)
	}
	return out
}

// FindMember resolves a member by name across c's parent chain.
func (ctx *Context) FindMember(c *Class, name string) (Member, bool) {
	for cur := c; cur != nil; {
		if m, ok := cur.MemberByName(name); ok {
			return m, true
		}
		if cur.Parent == "" {
			break
		}
		cur = ctx.Classes[cur.Parent]
	}
	return Member{}, false
}

// IsA reports whether class name `child` is `ancestor` or descends from it.
func (ctx *Context) IsA(child, ancestor string) bool {
	cur := ctx.Classes[child]
	for cur != nil {
		if cur.Name == ancestor {
			return true
		}
		if cur.Parent == "" {
			return false
		}
		cur = ctx.Classes[cur.Parent]
	}
	return false
}
