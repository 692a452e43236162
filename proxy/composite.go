// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package proxy

// Composite identifies a compositing rule. Rules form a tree rooted at
// Any; a rule is derived from each of its ancestors.
type Composite struct {
	name   string
	parent *Composite
}

func derive(parent *Composite, name string) *Composite {
	return &Composite{name: name, parent: parent}
}

// Compositing rules.
var (
	Any = &Composite{name: "Any"}

	// AnyAlpha is the root of the Porter-Duff alpha rules.
	AnyAlpha = derive(Any, "Alpha")
	Xor      = derive(Any, "Xor")

	Clear    = derive(AnyAlpha, "Clear")
	Src      = derive(AnyAlpha, "Src")
	Dst      = derive(AnyAlpha, "Dst")
	SrcOver  = derive(AnyAlpha, "SrcOver")
	DstOver  = derive(AnyAlpha, "DstOver")
	SrcIn    = derive(AnyAlpha, "SrcIn")
	DstIn    = derive(AnyAlpha, "DstIn")
	SrcOut   = derive(AnyAlpha, "SrcOut")
	DstOut   = derive(AnyAlpha, "DstOut")
	SrcAtop  = derive(AnyAlpha, "SrcAtop")
	DstAtop  = derive(AnyAlpha, "DstAtop")
	AlphaXor = derive(AnyAlpha, "AlphaXor")

	// SrcNoEa and SrcOverNoEa are Src and SrcOver with an extra alpha
	// of 1.
	SrcNoEa     = derive(Src, "SrcNoEa")
	SrcOverNoEa = derive(SrcOver, "SrcOverNoEa")

	// OpaqueSrcOverNoEa is SrcOverNoEa from an opaque source.
	OpaqueSrcOverNoEa = derive(SrcOverNoEa, "OpaqueSrcOverNoEa")
)

// IsDerivedFrom reports whether c is other or one of its descendants.
func (c *Composite) IsDerivedFrom(other *Composite) bool {
	for p := c; p != nil; p = p.parent {
		if p == other {
			return true
		}
	}
	return false
}

func (c *Composite) String() string {
	if c == nil {
		return "<nil>"
	}
	return c.name
}

// Transform classifies the transform of a copy operation.
type Transform uint8

const (
	Identity Transform = iota
	Translate
	Scale
	General
)

func (t Transform) String() string {
	switch t {
	case Identity:
		return "Identity"
	case Translate:
		return "Translate"
	case Scale:
		return "Scale"
	case General:
		return "General"
	default:
		return "Transform(?)"
	}
}
