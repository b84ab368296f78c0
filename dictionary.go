// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mxf

import (
	"encoding/hex"
	"fmt"
)

// This file carries the baseline SMPTE ST 377-1 dictionary: the types and
// classes needed to build and resolve a real header metadata graph without
// loading an external dictionary. Applications with richer schemas load
// their own entries on top of (or instead of) these.

// ulHex parses a 32-digit hex string into a UL; it panics on malformed
// input since every caller is a compile-time literal below.
func ulHex(s string) UL {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 16 {
		panic(fmt.Sprintf("dictionary: bad UL literal %q", s))
	}
	var u UL
	copy(u[:], b)
	return u
}

func mustDict(err error) {
	if err != nil {
		panic(fmt.Sprintf("dictionary: %v", err))
	}
}

// DefaultContext returns a fresh registry preloaded with the baseline
// dictionary. Each call returns an independent, still-mutable Context so
// a caller can append its own entries before first use.
func DefaultContext() *Context {
	ctx := NewContext()
	loadBaseTypes(ctx)
	loadBaselineClasses(ctx)
	return ctx
}

func loadBaseTypes(ctx *Context) {
	// Basic integer types. None are endian-swapped: MXF stores every
	// integer big-endian on the wire.
	for _, b := range []struct {
		name string
		size int
	}{
		{"UInt8", 1}, {"UInt16", 2}, {"UInt32", 4}, {"UInt64", 8},
		{"Int8", 1}, {"Int16", 2}, {"Int32", 4}, {"Int64", 8},
		{"UTF16", 2},
		{"UUID", 16}, {"UL", 16},
		{"PackageID", 32}, // UMID
		{"Rational", 8},
		{"Timestamp", 8},
		{"VersionType", 2},
	} {
		mustDict(ctx.AddBasic(b.name, b.size, false))
	}

	mustDict(ctx.AddInterpretation("Boolean", "UInt8", 0))
	mustDict(ctx.AddInterpretation("Length", "Int64", 0))
	mustDict(ctx.AddInterpretation("Position", "Int64", 0))

	mustDict(ctx.AddArray("UTF16String", "UTF16", 0, false))
	mustDict(ctx.AddArray("ULBatch", "UL", 0, true))

	// Reference types: interpretations of UUID annotated with a kind.
	mustDict(ctx.AddReferenceInterpretation("TargetRef", "UUID", RefTarget, ""))
	mustDict(ctx.AddReferenceInterpretation("StrongRef", "UUID", RefStrong, ""))
	mustDict(ctx.AddReferenceInterpretation("WeakRef", "UUID", RefWeak, ""))
	for _, r := range []struct {
		name, target string
		kind         ReferenceKind
	}{
		{"StrongRefContentStorage", "ContentStorage", RefStrong},
		{"StrongRefPackage", "GenericPackage", RefStrong},
		{"StrongRefTrack", "Track", RefStrong},
		{"StrongRefComponent", "StructuralComponent", RefStrong},
		{"StrongRefDescriptor", "FileDescriptor", RefStrong},
		{"StrongRefIdentification", "Identification", RefStrong},
		{"StrongRefEssenceContainerData", "EssenceContainerData", RefStrong},
		{"WeakRefPackage", "GenericPackage", RefWeak},
	} {
		mustDict(ctx.AddReferenceInterpretation(r.name, "UUID", r.kind, r.target))
	}
	for _, b := range []struct{ name, elem string }{
		{"PackageStrongRefBatch", "StrongRefPackage"},
		{"TrackStrongRefBatch", "StrongRefTrack"},
		{"ComponentStrongRefBatch", "StrongRefComponent"},
		{"IdentificationStrongRefBatch", "StrongRefIdentification"},
		{"EssenceContainerDataStrongRefBatch", "StrongRefEssenceContainerData"},
	} {
		mustDict(ctx.AddArray(b.name, b.elem, 0, true))
	}

	mustDict(ctx.AddEnum("FrameLayoutType", "UInt8"))
	for _, v := range []struct {
		name  string
		value int64
	}{
		{"FullFrame", 0}, {"SeparateFields", 1}, {"SingleField", 2},
		{"MixedFields", 3}, {"SegmentedFrame", 4},
	} {
		mustDict(ctx.AppendValue("FrameLayoutType", v.name, v.value))
	}

	mustDict(ctx.AddCompound("ProductVersionType"))
	for _, f := range []string{"Major", "Minor", "Patch", "Build", "Release"} {
		mustDict(ctx.AppendField("ProductVersionType", f, "UInt16", 0))
	}
}

// dictMember is one row of the class tables below.
type dictMember struct {
	name  string
	ul    string
	tag   Tag
	typ   string
	usage Usage
}

func (m dictMember) member() Member {
	mm := Member{
		Name:        m.name,
		UL:          ulHex(m.ul),
		LocalTag:    m.tag,
		HasLocalTag: true,
		Type:        m.typ,
		Usage:       m.usage,
	}
	return mm
}

func loadBaselineClasses(ctx *Context) {
	classes := []struct {
		name     string
		parent   string
		key      string // "" for abstract classes without a key
		concrete bool
		members  []dictMember
	}{
		{
			name: "InterchangeObject",
			members: []dictMember{
				{"InstanceUID", "060e2b34010101010101150200000000", 0x3C0A, "TargetRef", UsageRequired},
				{"GenerationUID", "060e2b34010101020520070108000000", 0x0102, "UUID", UsageOptional},
			},
		},
		{
			name: "Preface", parent: "InterchangeObject",
			key: "060e2b34025301010d01010101012f00", concrete: true,
			members: []dictMember{
				{"LastModifiedDate", "060e2b34010101020702011002040000", 0x3B02, "Timestamp", UsageRequired},
				{"Version", "060e2b34010101020301020105000000", 0x3B05, "VersionType", UsageRequired},
				{"OperationalPattern", "060e2b34010101020102020300000000", 0x3B09, "UL", UsageRequired},
				{"EssenceContainers", "060e2b34010101020102021002010000", 0x3B0A, "ULBatch", UsageRequired},
				{"ContentStorage", "060e2b34010101020601010402010000", 0x3B03, "StrongRefContentStorage", UsageRequired},
				{"Identifications", "060e2b34010101020601010406040000", 0x3B06, "IdentificationStrongRefBatch", UsageBestEffort},
				{"PrimaryPackage", "060e2b34010101040601010401080000", 0x3B08, "WeakRefPackage", UsageOptional},
			},
		},
		{
			name: "Identification", parent: "InterchangeObject",
			key: "060e2b34025301010d01010101013000", concrete: true,
			members: []dictMember{
				{"ThisGenerationUID", "060e2b34010101020520070101000000", 0x3C09, "UUID", UsageRequired},
				{"CompanyName", "060e2b34010101020520070102010000", 0x3C01, "UTF16String", UsageRequired},
				{"ProductName", "060e2b34010101020520070103010000", 0x3C02, "UTF16String", UsageRequired},
				{"VersionString", "060e2b34010101020520070105010000", 0x3C04, "UTF16String", UsageRequired},
				{"ProductUID", "060e2b34010101020520070107000000", 0x3C05, "UUID", UsageRequired},
				{"ModificationDate", "060e2b34010101020702011002030000", 0x3C06, "Timestamp", UsageRequired},
				{"ToolkitVersion", "060e2b3401010102052007010a000000", 0x3C07, "ProductVersionType", UsageOptional},
			},
		},
		{
			name: "ContentStorage", parent: "InterchangeObject",
			key: "060e2b34025301010d01010101011800", concrete: true,
			members: []dictMember{
				{"Packages", "060e2b34010101020601010405010000", 0x1901, "PackageStrongRefBatch", UsageRequired},
				{"EssenceContainerData", "060e2b34010101020601010405020000", 0x1902, "EssenceContainerDataStrongRefBatch", UsageOptional},
			},
		},
		{
			name: "EssenceContainerData", parent: "InterchangeObject",
			key: "060e2b34025301010d01010101012300", concrete: true,
			members: []dictMember{
				{"LinkedPackageUID", "060e2b34010101020601010601000000", 0x2701, "PackageID", UsageRequired},
				{"IndexSID", "060e2b34010101040103040500000000", 0x3F06, "UInt32", UsageOptional},
				{"BodySID", "060e2b34010101040103040400000000", 0x3F07, "UInt32", UsageRequired},
			},
		},
		{
			name: "GenericPackage", parent: "InterchangeObject",
			members: []dictMember{
				{"PackageUID", "060e2b34010101010101151000000000", 0x4401, "PackageID", UsageRequired},
				{"Name", "060e2b34010101010103030201000000", 0x4402, "UTF16String", UsageOptional},
				{"PackageCreationDate", "060e2b34010101020702011001030000", 0x4405, "Timestamp", UsageRequired},
				{"PackageModifiedDate", "060e2b34010101020702011002050000", 0x4404, "Timestamp", UsageRequired},
				{"Tracks", "060e2b34010101020601010406050000", 0x4403, "TrackStrongRefBatch", UsageRequired},
			},
		},
		{
			name: "MaterialPackage", parent: "GenericPackage",
			key: "060e2b34025301010d01010101013600", concrete: true,
		},
		{
			name: "SourcePackage", parent: "GenericPackage",
			key: "060e2b34025301010d01010101013700", concrete: true,
			members: []dictMember{
				{"Descriptor", "060e2b34010101020601010402030000", 0x4701, "StrongRefDescriptor", UsageRequired},
			},
		},
		{
			name: "Track", parent: "InterchangeObject",
			key: "060e2b34025301010d01010101013b00", concrete: true,
			members: []dictMember{
				{"TrackID", "060e2b34010101020107010100000000", 0x4801, "UInt32", UsageRequired},
				{"TrackNumber", "060e2b34010101020104010300000000", 0x4804, "UInt32", UsageRequired},
				{"TrackName", "060e2b34010101020107010201000000", 0x4802, "UTF16String", UsageOptional},
				{"EditRate", "060e2b34010101020530040500000000", 0x4B01, "Rational", UsageRequired},
				{"Origin", "060e2b34010101020702010301030000", 0x4B02, "Position", UsageRequired},
				{"Sequence", "060e2b34010101020601010402040000", 0x4803, "StrongRefComponent", UsageRequired},
			},
		},
		{
			name: "StructuralComponent", parent: "InterchangeObject",
			members: []dictMember{
				{"DataDefinition", "060e2b34010101020407010000000000", 0x0201, "UL", UsageRequired},
				{"Duration", "060e2b34010101020702020101030000", 0x0202, "Length", UsageBestEffort},
			},
		},
		{
			name: "Sequence", parent: "StructuralComponent",
			key: "060e2b34025301010d01010101010f00", concrete: true,
			members: []dictMember{
				{"StructuralComponents", "060e2b34010101020601010406090000", 0x1001, "ComponentStrongRefBatch", UsageRequired},
			},
		},
		{
			name: "SourceClip", parent: "StructuralComponent",
			key: "060e2b34025301010d01010101011100", concrete: true,
			members: []dictMember{
				{"StartPosition", "060e2b34010101020702010301040000", 0x1201, "Position", UsageRequired},
				{"SourcePackageID", "060e2b34010101020601010301000000", 0x1101, "PackageID", UsageRequired},
				{"SourceTrackID", "060e2b34010101020601010302000000", 0x1102, "UInt32", UsageRequired},
			},
		},
		{
			name: "TimecodeComponent", parent: "StructuralComponent",
			key: "060e2b34025301010d01010101011400", concrete: true,
			members: []dictMember{
				{"RoundedTimecodeBase", "060e2b34010101020404010102060000", 0x1502, "UInt16", UsageRequired},
				{"StartTimecode", "060e2b34010101020702010301050000", 0x1501, "Position", UsageRequired},
				{"DropFrame", "060e2b34010101010404010105000000", 0x1503, "Boolean", UsageRequired},
			},
		},
		{
			name: "FileDescriptor", parent: "InterchangeObject",
			key: "060e2b34025301010d01010101012500", concrete: true,
			members: []dictMember{
				{"LinkedTrackID", "060e2b34010101050601010305000000", 0x3006, "UInt32", UsageOptional},
				{"SampleRate", "060e2b34010101010406010100000000", 0x3001, "Rational", UsageRequired},
				{"ContainerDuration", "060e2b34010101010406010200000000", 0x3002, "Length", UsageOptional},
				{"EssenceContainer", "060e2b34010101020601010401020000", 0x3004, "UL", UsageRequired},
				{"Codec", "060e2b34010101020601010401030000", 0x3005, "UL", UsageOptional},
			},
		},
		{
			name: "GenericPictureEssenceDescriptor", parent: "FileDescriptor",
			key: "060e2b34025301010d01010101012700", concrete: true,
			members: []dictMember{
				{"FrameLayout", "060e2b34010101010401030104000000", 0x320C, "FrameLayoutType", UsageRequired},
				{"StoredWidth", "060e2b34010101010401050202000000", 0x3203, "UInt32", UsageRequired},
				{"StoredHeight", "060e2b34010101010401050201000000", 0x3202, "UInt32", UsageRequired},
				{"AspectRatio", "060e2b34010101010401010101000000", 0x320E, "Rational", UsageRequired},
				{"PictureEssenceCoding", "060e2b34010101020401060100000000", 0x3201, "UL", UsageOptional},
			},
		},
		{
			name: "CDCIEssenceDescriptor", parent: "GenericPictureEssenceDescriptor",
			key: "060e2b34025301010d01010101012800", concrete: true,
			members: []dictMember{
				{"ComponentDepth", "060e2b3401010102040105030a000000", 0x3301, "UInt32", UsageRequired},
				{"HorizontalSubsampling", "060e2b34010101010401050105000000", 0x3302, "UInt32", UsageRequired},
			},
		},
		{
			name: "GenericSoundEssenceDescriptor", parent: "FileDescriptor",
			key: "060e2b34025301010d01010101014200", concrete: true,
			members: []dictMember{
				{"AudioSamplingRate", "060e2b34010101050402030101010000", 0x3D03, "Rational", UsageRequired},
				{"ChannelCount", "060e2b34010101050402010104000000", 0x3D07, "UInt32", UsageRequired},
				{"QuantizationBits", "060e2b34010101040402030304000000", 0x3D01, "UInt32", UsageRequired},
			},
		},
		{
			name: "WaveAudioDescriptor", parent: "GenericSoundEssenceDescriptor",
			key: "060e2b34025301010d01010101014800", concrete: true,
			members: []dictMember{
				{"BlockAlign", "060e2b34010101050402030201000000", 0x3D0A, "UInt16", UsageRequired},
				{"AvgBps", "060e2b34010101050402030305000000", 0x3D09, "UInt32", UsageRequired},
			},
		},
	}

	for _, c := range classes {
		var key UL
		hasKey := c.key != ""
		if hasKey {
			key = ulHex(c.key)
		}
		mustDict(ctx.RegisterClass(c.name, c.parent, key, hasKey, c.concrete))
		for _, m := range c.members {
			mm := m.member()
			if t, err := ctx.FindType(m.typ); err == nil {
				mm.Ref = t.Ref
				mm.TargetClass = t.TargetClass
			}
			mustDict(ctx.AppendMember(c.name, mm))
		}
	}
}
