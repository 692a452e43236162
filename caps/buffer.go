// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package caps

// FlipContents describes what a back buffer holds after it is presented.
type FlipContents uint8

const (
	// FlipNone means the buffer strategy does not page flip.
	FlipNone FlipContents = iota

	// FlipUndefined leaves the back buffer contents undefined.
	FlipUndefined

	// FlipBackground clears the back buffer to the background colour.
	FlipBackground

	// FlipPrior makes the back buffer hold the prior front buffer contents.
	FlipPrior

	// FlipCopied leaves the back buffer contents unchanged.
	FlipCopied
)

func (f FlipContents) String() string {
	switch f {
	case FlipNone:
		return "none"
	case FlipUndefined:
		return "undefined"
	case FlipBackground:
		return "background"
	case FlipPrior:
		return "prior"
	case FlipCopied:
		return "copied"
	default:
		return "unknown"
	}
}

// VSync selects whether presentation waits for vertical retrace.
type VSync uint8

const (
	VSyncDefault VSync = iota
	VSyncOn
	VSyncOff
)

// ImageCapabilities describes an image's acceleration.
type ImageCapabilities struct {
	Accelerated bool

	// TrueVolatile means the image contents can be lost at any time and
	// must be validated before every use.
	TrueVolatile bool
}

// BufferCapabilities describes a buffer strategy.
type BufferCapabilities struct {
	Front ImageCapabilities
	Back  ImageCapabilities
	Flip  FlipContents
}

// IsPageFlipping reports whether the strategy flips instead of copying.
func (b BufferCapabilities) IsPageFlipping() bool {
	return b.Flip != FlipNone
}

// ExtendedBufferCapabilities adds vsync control to BufferCapabilities.
type ExtendedBufferCapabilities struct {
	BufferCapabilities
	VSync VSync
}

// BufferCapsProvider is implemented by buffer capabilities that may carry
// the extended form.
type BufferCapsProvider interface {
	Basic() BufferCapabilities
	Extended() (ExtendedBufferCapabilities, bool)
}

// Basic implements BufferCapsProvider.
func (b BufferCapabilities) Basic() BufferCapabilities { return b }

// Extended implements BufferCapsProvider; plain capabilities have no
// extended form.
func (b BufferCapabilities) Extended() (ExtendedBufferCapabilities, bool) {
	return ExtendedBufferCapabilities{}, false
}

// Extended implements BufferCapsProvider.
func (e ExtendedBufferCapabilities) Extended() (ExtendedBufferCapabilities, bool) {
	return e, true
}
