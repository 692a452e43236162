// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package caps describes what a native rendering context, a buffer strategy
// and an image can do.
package caps

import (
	"fmt"
	"strings"
)

// Bits is a capability bitset reported by the native backend for one
// configuration.
type Bits uint32

const (
	// RTPlainAlpha: the default framebuffer stores alpha.
	RTPlainAlpha Bits = 1 << iota

	// RTTextureAlpha: textures with alpha can be render targets.
	RTTextureAlpha

	// RTTextureOpaque: opaque textures can be render targets.
	RTTextureOpaque

	// MultiTexture: more than one texture unit is available.
	MultiTexture

	// TexNonPow2: textures need not have power-of-two dimensions.
	TexNonPow2

	// TexNonSquare: textures need not be square.
	TexNonSquare

	// PS20: fragment programs of shader model 2.0 are available.
	PS20

	// PS30: fragment programs of shader model 3.0 are available.
	PS30

	// DoubleBuffered: the configuration has a back buffer.
	DoubleBuffered

	// ExtLCDShader: LCD text can be rendered with a shader.
	ExtLCDShader

	// ExtBIOpShader: buffered image ops can be rendered with shaders.
	ExtBIOpShader

	// ExtGradShader: multi-stop gradients can be rendered with shaders.
	ExtGradShader

	// ExtTexRect: rectangle textures are supported.
	ExtTexRect

	// ExtTexBarrier: texture barriers are supported.
	ExtTexBarrier
)

// ExtFBObject is present when textures of both alpha kinds can be render
// targets, which is what framebuffer objects require.
const ExtFBObject = RTTextureAlpha | RTTextureOpaque

var bitNames = [...]string{
	"RT_PLAIN_ALPHA",
	"RT_TEXTURE_ALPHA",
	"RT_TEXTURE_OPAQUE",
	"MULTITEXTURE",
	"TEXNONPOW2",
	"TEXNONSQUARE",
	"PS20",
	"PS30",
	"DOUBLEBUFFERED",
	"EXT_LCD_SHADER",
	"EXT_BIOP_SHADER",
	"EXT_GRAD_SHADER",
	"EXT_TEXRECT",
	"EXT_TEXBARRIER",
}

// Has reports whether any bit of b is present in c.
func (c Bits) Has(b Bits) bool {
	return c&b != 0
}

// String lists the set bits by name.
func (c Bits) String() string {
	if c == 0 {
		return "NONE"
	}
	var names []string
	for i, n := range bitNames {
		if c&(1<<i) != 0 {
			names = append(names, n)
		}
	}
	if rest := c &^ (1<<len(bitNames) - 1); rest != 0 {
		names = append(names, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(names, "|")
}

// ContextCapabilities pairs the capability bits of a configuration with the
// identity string of the adapter that reported them.
type ContextCapabilities struct {
	caps      Bits
	adapterID string
}

// NewContextCapabilities returns capabilities for the given bits and
// adapter identity.
func NewContextCapabilities(bits Bits, adapterID string) ContextCapabilities {
	return ContextCapabilities{caps: bits, adapterID: adapterID}
}

// Caps returns the capability bits.
func (c ContextCapabilities) Caps() Bits { return c.caps }

// AdapterID returns the adapter identity string, which may be empty.
func (c ContextCapabilities) AdapterID() string { return c.adapterID }

func (c ContextCapabilities) String() string {
	id := c.adapterID
	if id == "" {
		id = "unknown adapter"
	}
	return fmt.Sprintf("ContextCapabilities[adapter=%s, caps=%s]", id, c.caps)
}
