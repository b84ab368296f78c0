// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mxf

import "fmt"

// Object is one metadata set/pack instance (ST 377-1 "Metadata object"):
// its class, instance UID, owned child values indexed by name, the file
// location it was read from, and (for reference-typed members) resolved
// links populated by the Graph resolver.
type Object struct {
	Class       *Class
	InstanceUID UL
	Values      map[string][]byte // raw (still-encoded) bytes per member name
	Location    int64

	// Links holds resolved single-target references (strong/weak/target),
	// populated by Graph.Resolve. LinksMulti holds resolved references
	// inside a batch/array-of-reference member.
	Links      map[string]*Object
	LinksMulti map[string][]*Object

	// Dark is true when the top-level key did not match any registered
	// class; RawKey/RawValue preserve the opaque KLV verbatim
	// (ST 377-1).
	Dark     bool
	RawKey   UL
	RawValue []byte

	// DarkMembers preserves local-set tags that had no primer entry or no
	// matching class member, keyed by tag, alongside the UL synthesised
	// for them (ST 377-1).
	DarkMembers map[Tag]DarkMember
}

// DarkMember is one preserved-but-unrecognised local-set item.
type DarkMember struct {
	UL    UL
	Value []byte
}

// NewObject creates an empty instance of class c.
func NewObject(c *Class) *Object {
	return &Object{
		Class:       c,
		Values:      make(map[string][]byte),
		Links:       make(map[string]*Object),
		LinksMulti:  make(map[string][]*Object),
		DarkMembers: make(map[Tag]DarkMember),
	}
}

// Get returns the raw bytes of member name, if present.
func (o *Object) Get(name string) ([]byte, bool) {
	v, ok := o.Values[name]
	return v, ok
}

// Set stores the raw bytes of member name.
func (o *Object) Set(name string, v []byte) {
	o.Values[name] = v
}

// DecodeLocalSet parses a local-set body (tag/length/value triples) into a
// raw byte map keyed by tag: the body is a run of 2-byte-tag /
// BER-length / value triples.
func DecodeLocalSet(body []byte) (map[Tag][]byte, error) {
	out := make(map[Tag][]byte)
	pos := 0
	for pos < len(body) {
		if pos+2 > len(body) {
			return nil, fmt.Errorf("DecodeLocalSet: %w", ErrShortRead)
		}
		tag := Tag(uint16(body[pos])<<8 | uint16(body[pos+1]))
		pos += 2
		length, consumed, err := DecodeBER(body[pos:])
		if err != nil {
			return nil, fmt.Errorf("DecodeLocalSet: %w", err)
		}
		pos += consumed
		if pos+int(length) > len(body) {
			return nil, fmt.Errorf("DecodeLocalSet: %w", ErrShortRead)
		}
		if _, dup := out[tag]; dup {
			return nil, fmt.Errorf("DecodeLocalSet: tag %04x: %w", uint16(tag), ErrLocalTagDuplicate)
		}
		out[tag] = body[pos : pos+int(length)]
		pos += int(length)
	}
	return out, nil
}

// EncodeLocalSet re-assembles a local-set body from tag/value pairs, in
// ascending tag order, using shortest-form BER lengths (the common
// encoding; notes a fixed width may be forced by callers that need
// headroom, handled by writers directly on the length bytes).
func EncodeLocalSet(items map[Tag][]byte) []byte {
	tags := make([]Tag, 0, len(items))
	for t := range items {
		tags = append(tags, t)
	}
	for i := 1; i < len(tags); i++ {
		for j := i; j > 0 && tags[j] < tags[j-1]; j-- {
			tags[j], tags[j-1] = tags[j-1], tags[j]
		}
	}
	var out []byte
	for _, t := range tags {
		v := items[t]
		out = append(out, byte(t>>8), byte(t))
		out = append(out, encodeBERShortest(uint64(len(v)))...)
		out = append(out, v...)
	}
	return out
}

// ParseObject decodes a known-class set body into an Object, resolving
// each local tag through the primer to a class member (ST 377-1).
// Unrecognised tags (no primer entry, or a UL the class has no member
// for) are preserved verbatim as dark members rather than dropped.
func ParseObject(ctx *Context, class *Class, body []byte, primer *Primer, location int64) (*Object, error) {
	items, err := DecodeLocalSet(body)
	if err != nil {
		return nil, err
	}
	obj := NewObject(class)
	obj.Location = location
	seen := make(map[Tag]bool)
	for tag, value := range items {
		if seen[tag] {
			return nil, fmt.Errorf("ParseObject: %w", ErrLocalTagDuplicate)
		}
		seen[tag] = true

		ul, ok := primer.Lookup(tag)
		if !ok {
			obj.DarkMembers[tag] = DarkMember{UL: UnknownULForTag(tag), Value: value}
			continue
		}
		member, ok := ctx.FindMember(class, memberNameForUL(ctx, class, ul))
		if !ok {
			obj.DarkMembers[tag] = DarkMember{UL: ul, Value: value}
			continue
		}
		obj.Set(member.Name, value)
		if member.Name == "InstanceUID" {
			if iu, err := ULFromBytes(value); err == nil {
				obj.InstanceUID = iu
			}
		}
	}
	return obj, nil
}

// memberNameForUL walks the class's members (and its ancestors) looking
// for one whose UL matches, returning "" if none do.
func memberNameForUL(ctx *Context, class *Class, ul UL) string {
	for cur := class; cur != nil; {
		if m, ok := cur.MemberByUL(ul); ok {
			return m.Name
		}
		if cur.Parent == "" {
			break
		}
		cur = ctx.Classes[cur.Parent]
	}
	return ""
}

// EncodeObject serialises an Object's known members (and any preserved
// dark members) back into a local-set body, assigning primer tags for any
// member UL not yet mapped (ST 377-1 primer write rule).
func EncodeObject(ctx *Context, obj *Object, primer *Primer) ([]byte, error) {
	items := make(map[Tag][]byte)
	for _, m := range ctx.AllMembers(obj.Class) {
		v, ok := obj.Values[m.Name]
		if !ok {
			continue
		}
		tag := primer.TagFor(m.UL)
		items[tag] = v
	}
	for tag, dm := range obj.DarkMembers {
		if err := primer.Insert(tag, dm.UL); err != nil {
			return nil, err
		}
		items[tag] = dm.Value
	}
	return EncodeLocalSet(items), nil
}
