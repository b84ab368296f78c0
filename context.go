// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mxf

import (
	"fmt"

	"github.com/go-mxf/mxf/log"
)

// Context is the library context: one process-scoped, append-only
// type/class registry, handed explicitly to every reader and writer
// rather than living in package-level state. DefaultContext provides a
// registry preloaded with the baseline SMPTE dictionary for callers that
// don't load their own.
type Context struct {
	Types   map[string]*Type
	Classes map[string]*Class
	Logger  *log.Helper

	traits map[string]Traits
	frozen bool
}

// NewContext creates an empty, mutable registry with a no-op logger.
func NewContext() *Context {
	return &Context{
		Types:   make(map[string]*Type),
		Classes: make(map[string]*Class),
		Logger:  log.NewHelper(log.NewStdLogger(nil)),
		traits:  make(map[string]Traits),
	}
}

// Freeze marks the registry read-only, so that further mutation fails
// with ErrRegistryFrozen. Parse calls it on entry; NewBodyReader and
// NewBodyWriter do not.
func (ctx *Context) Freeze() { ctx.frozen = true }

func (ctx *Context) checkMutable() error {
	if ctx.frozen {
		return fmt.Errorf("context: %w", ErrRegistryFrozen)
	}
	return nil
}

// AddBasic registers a fixed-size, optionally endian-swapped scalar type
// with a distinct name and non-zero size.
func (ctx *Context) AddBasic(name string, size int, endianSwapped bool) error {
	if err := ctx.checkMutable(); err != nil {
		return err
	}
	if _, exists := ctx.Types[name]; exists {
		return fmt.Errorf("AddBasic(%s): %w", name, ErrTypeExists)
	}
	if size <= 0 {
		return fmt.Errorf("AddBasic(%s): %w", name, ErrInvalidSize)
	}
	ctx.Types[name] = &Type{Name: name, Kind: KindBasic, Size: size, Endian: endianSwapped}
	return nil
}

// AddInterpretation registers a type that aliases a base type, optionally
// fixing its own size. A size of 0 means
// "inherit the base type's size"; a non-zero size must be a permissible
// override; any non-zero size is accepted and is not checked against the
// base type.
func (ctx *Context) AddInterpretation(name, base string, size int) error {
	if err := ctx.checkMutable(); err != nil {
		return err
	}
	if _, exists := ctx.Types[name]; exists {
		return fmt.Errorf("AddInterpretation(%s): %w", name, ErrTypeExists)
	}
	ctx.Types[name] = &Type{Name: name, Kind: KindInterpretation, Base: base, Size: size}
	return nil
}

// AddReferenceInterpretation registers an interpretation of a 16-byte
// identifier type annotated as a reference of the given kind, optionally
// naming the class the reference targets (ST 377-1).
func (ctx *Context) AddReferenceInterpretation(name, base string, kind ReferenceKind, targetClass string) error {
	if err := ctx.AddInterpretation(name, base, 16); err != nil {
		return err
	}
	t := ctx.Types[name]
	t.Ref = kind
	t.TargetClass = targetClass
	return nil
}

// AddArray registers a homogeneous sequence type. fixedSize 0 means
// variable-length: isBatch selects length-prefixed batch (count+size
// header) encoding versus implicit-length array encoding (ST 377-1).
func (ctx *Context) AddArray(name, element string, fixedSize int, isBatch bool) error {
	if err := ctx.checkMutable(); err != nil {
		return err
	}
	if _, exists := ctx.Types[name]; exists {
		return fmt.Errorf("AddArray(%s): %w", name, ErrTypeExists)
	}
	kind := KindArray
	if isBatch {
		kind = KindBatch
	}
	ctx.Types[name] = &Type{Name: name, Kind: kind, Element: element, FixedSize: fixedSize, IsBatch: isBatch}
	return nil
}

// AddCompound registers an (initially empty) compound type; fields are
// appended in order with AppendField (ST 377-1).
func (ctx *Context) AddCompound(name string) error {
	if err := ctx.checkMutable(); err != nil {
		return err
	}
	if _, exists := ctx.Types[name]; exists {
		return fmt.Errorf("AddCompound(%s): %w", name, ErrTypeExists)
	}
	ctx.Types[name] = &Type{Name: name, Kind: KindCompound}
	return nil
}

// AppendField appends a named field to a previously-registered compound
// type, preserving order (ST 377-1).
func (ctx *Context) AppendField(parent, name, typeName string, size int) error {
	if err := ctx.checkMutable(); err != nil {
		return err
	}
	t, ok := ctx.Types[parent]
	if !ok || t.Kind != KindCompound {
		return fmt.Errorf("AppendField(%s): %w", parent, ErrTypeNotFound)
	}
	t.Fields = append(t.Fields, CompoundField{Name: name, Type: typeName, Size: size})
	return nil
}

// AddEnum registers an (initially empty) enum type over an underlying
// integer type; values are appended with AppendValue (ST 377-1).
func (ctx *Context) AddEnum(name, underlying string) error {
	if err := ctx.checkMutable(); err != nil {
		return err
	}
	if _, exists := ctx.Types[name]; exists {
		return fmt.Errorf("AddEnum(%s): %w", name, ErrTypeExists)
	}
	ctx.Types[name] = &Type{Name: name, Kind: KindEnum, Underlying: underlying}
	return nil
}

// AppendValue appends a named integer value to a previously-registered
// enum type.
func (ctx *Context) AppendValue(enumName, valueName string, value int64) error {
	if err := ctx.checkMutable(); err != nil {
		return err
	}
	t, ok := ctx.Types[enumName]
	if !ok || t.Kind != KindEnum {
		return fmt.Errorf("AppendValue(%s): %w", enumName, ErrTypeNotFound)
	}
	t.Values = append(t.Values, EnumValue{Name: valueName, Value: value})
	return nil
}

// RegisterClass registers a class. parent may be "" for a root class
// (e.g. InterchangeObject). key.HasKey must be true for concrete classes
// (ST 377-1).
func (ctx *Context) RegisterClass(name, parent string, key UL, hasKey, concrete bool) error {
	if err := ctx.checkMutable(); err != nil {
		return err
	}
	if _, exists := ctx.Classes[name]; exists {
		return fmt.Errorf("RegisterClass(%s): %w", name, ErrTypeExists)
	}
	if concrete && !hasKey {
		return fmt.Errorf("RegisterClass(%s): %w", name, ErrAbstractClassUL)
	}
	ctx.Classes[name] = &Class{Name: name, Parent: parent, Key: key, HasKey: hasKey, Concrete: concrete}
	return nil
}

// AppendMember appends a member to a previously-registered class.
func (ctx *Context) AppendMember(className string, m Member) error {
	if err := ctx.checkMutable(); err != nil {
		return err
	}
	c, ok := ctx.Classes[className]
	if !ok {
		return fmt.Errorf("AppendMember(%s): %w", className, ErrClassNotFound)
	}
	c.Members = append(c.Members, m)
	return nil
}

// FindType looks up a registered type by name.
func (ctx *Context) FindType(name string) (*Type, error) {
	t, ok := ctx.Types[name]
	if !ok {
		return nil, fmt.Errorf("FindType(%s): %w", name, ErrTypeNotFound)
	}
	return t, nil
}

// FindClass looks up a registered class by name.
func (ctx *Context) FindClass(name string) (*Class, error) {
	c, ok := ctx.Classes[name]
	if !ok {
		return nil, fmt.Errorf("FindClass(%s): %w", name, ErrClassNotFound)
	}
	return c, nil
}

// FindClassByUL looks up a registered concrete class by its key UL,
// ignoring the registry-version octet (ST 377-1).
func (ctx *Context) FindClassByUL(ul UL) (*Class, error) {
	for _, c := range ctx.Classes {
		if c.HasKey && c.Key.Equal(ul, true) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("FindClassByUL(%s): %w", ul, ErrClassNotFound)
}

// TraitsFor resolves the Traits implementation for a named type, building
// and memoizing composite traits (interpretation/array/batch/compound/enum)
// on top of the basic types they ultimately rest on.
func (ctx *Context) TraitsFor(name string) (Traits, error) {
	if tr, ok := ctx.traits[name]; ok {
		return tr, nil
	}
	t, err := ctx.FindType(name)
	if err != nil {
		return nil, err
	}
	tr, err := ctx.buildTraits(t)
	if err != nil {
		return nil, err
	}
	ctx.traits[name] = tr
	return tr, nil
}

func (ctx *Context) buildTraits(t *Type) (Traits, error) {
	switch t.Kind {
	case KindBasic:
		return ctx.basicTraits(t), nil
	case KindInterpretation:
		base, err := ctx.TraitsFor(t.Base)
		if err != nil {
			return nil, err
		}
		if t.Size != 0 && t.Size != base.Size() && t.Ref == RefNone {
			return interpretationTraits{base: base, size: t.Size}, nil
		}
		return base, nil
	case KindArray, KindBatch:
		if t.Element == "UTF16" && !t.IsBatch {
			// UTF16String and friends decode as text, not element grids.
			return utf16Traits{}, nil
		}
		elemTraits, err := ctx.TraitsFor(t.Element)
		if err != nil {
			return nil, err
		}
		return &arrayTraits{element: elemTraits, fixedCount: t.FixedSize, isBatch: t.IsBatch}, nil
	case KindCompound:
		fields := make([]compoundFieldTraits, 0, len(t.Fields))
		for _, f := range t.Fields {
			ft, err := ctx.TraitsFor(f.Type)
			if err != nil {
				return nil, err
			}
			fields = append(fields, compoundFieldTraits{name: f.Name, traits: ft})
		}
		return &compoundTraits{fields: fields}, nil
	case KindEnum:
		under, err := ctx.TraitsFor(t.Underlying)
		if err != nil {
			return nil, err
		}
		return &enumTraits{underlying: under, values: t.Values}, nil
	default:
		return nil, fmt.Errorf("buildTraits(%s): %w", t.Name, ErrTypeNotFound)
	}
}

func (ctx *Context) basicTraits(t *Type) Traits {
	switch t.Name {
	case "Rational":
		return rationalTraits{}
	case "UTF16String", "UnicodeString":
		return utf16Traits{}
	case "UUID", "UL":
		return uuidTraits{}
	}
	if t.Size > 8 {
		return bigIntTraits{size: t.Size}
	}
	return baseTraits{size: t.Size, endian: t.Endian, signed: true}
}

// interpretationTraits overrides the declared size of a base type while
// delegating the actual byte layout (used rarely; most interpretations
// inherit the base size unchanged).
type interpretationTraits struct {
	base Traits
	size int
}

func (t interpretationTraits) Size() int                            { return t.size }
func (t interpretationTraits) ReadBytes(raw []byte) ([]byte, error) { return t.base.ReadBytes(raw) }
func (t interpretationTraits) WriteBytes(v []byte) ([]byte, error)  { return t.base.WriteBytes(v) }
func (t interpretationTraits) ToInt(raw []byte) (int64, error)      { return t.base.ToInt(raw) }
func (t interpretationTraits) FromInt(v int64) ([]byte, error)      { return t.base.FromInt(v) }
func (t interpretationTraits) ToString(raw []byte) (string, error)  { return t.base.ToString(raw) }
func (t interpretationTraits) FromString(s string) ([]byte, error)  { return t.base.FromString(s) }
func (t interpretationTraits) ToRational(raw []byte) (int64, int64, error) {
	return t.base.ToRational(raw)
}
func (t interpretationTraits) FromRational(n, d int64) ([]byte, error) {
	return t.base.FromRational(n, d)
}
