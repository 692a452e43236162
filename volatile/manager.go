// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package volatile

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/gogpu/accel"
	"github.com/gogpu/accel/caps"
	"github.com/gogpu/accel/surface"
)

// State is the backing state of a volatile image.
type State uint8

const (
	Uninitialized State = iota
	Accelerated
	Unaccelerated
	Invalid
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Accelerated:
		return "Accelerated"
	case Unaccelerated:
		return "Unaccelerated"
	case Invalid:
		return "Invalid"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// ValidateResult is returned by Validate.
type ValidateResult uint8

const (
	// ImageOK means the contents are intact.
	ImageOK ValidateResult = iota

	// ImageRestored means the surface was recreated and must be redrawn.
	ImageRestored

	// ImageIncompatible means the image cannot be used with the given
	// configuration and must be recreated by the caller.
	ImageIncompatible
)

func (r ValidateResult) String() string {
	switch r {
	case ImageOK:
		return "OK"
	case ImageRestored:
		return "Restored"
	case ImageIncompatible:
		return "Incompatible"
	default:
		return fmt.Sprintf("ValidateResult(%d)", uint8(r))
	}
}

// Manager selects and maintains the surface backing an Image.
//
// Manager is safe for concurrent use.
type Manager struct {
	img *Image

	mu      sync.Mutex
	state   State
	accel   surface.Surface
	backup  *surface.ImageSurface
	current surface.Surface
	lost    bool
}

func newManager(img *Image) *Manager {
	return &Manager{img: img}
}

// Initialize creates the first surface: accelerated when possible,
// otherwise a system-memory backup. Contents are then initialized.
func (m *Manager) Initialize() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = nil
	if m.img.accelerated {
		m.accel = m.initAccelerated()
		if m.accel != nil {
			m.current = m.accel
			m.state = Accelerated
		}
	}
	if m.current == nil {
		m.current = m.backupSurface()
		m.state = Unaccelerated
	}
	m.initContents()
}

// InitAcceleratedSurface builds an accelerated surface for the image
// without installing it. It returns nil when the surface cannot be built
// for lack of memory or of a collaborator; those conditions never escape.
func (m *Manager) InitAcceleratedSurface() surface.Surface {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initAccelerated()
}

func (m *Manager) initAccelerated() (s surface.Surface) {
	defer func() {
		if r := recover(); r != nil {
			if !absorbable(r) {
				panic(r)
			}
			accel.Logger().Warn("volatile: accelerated surface unavailable", "panic", r)
			s = nil
		}
	}()

	img := m.img
	if img.config == nil {
		accel.Logger().Debug("volatile: no graphics configuration")
		return nil
	}

	createVSynced := false
	forceBack := img.forceBack
	if forceBack {
		if p, ok := img.peer.(BackBufferCapsProvider); ok {
			if ext, ok := p.BackBufferCaps().Extended(); ok &&
				ext.VSync == caps.VSyncOn && ext.Flip == caps.FlipCopied {
				createVSynced = true
				forceBack = false
			}
		}
	}

	var req surface.Request
	switch {
	case forceBack:
		if img.peer == nil {
			accel.Logger().Debug("volatile: back buffer requested without a peer")
			return nil
		}
		w, h := img.peer.Size()
		req = surface.Request{
			Width: w, Height: h,
			Transparency: img.transparency,
			Kind:         surface.KindFlipBackbuffer,
			Label:        "back buffer",
			Target:       img.peer,
		}
	default:
		kind := surface.KindFBObject
		if img.hasForced {
			kind = img.forced
		}
		req = surface.Request{
			Width: img.width, Height: img.height,
			Transparency: img.transparency,
			Kind:         kind,
			Label:        "volatile image",
		}
		if createVSynced {
			req.Target = img.peer
			req.Label = "vsynced " + kind.String()
		}
	}

	s, err := img.config.CreateAcceleratedSurface(req)
	if err != nil {
		if !accel.IsAllocationFailure(err) {
			accel.Logger().Warn("volatile: accelerated surface failed", "kind", req.Kind, "err", err)
		} else {
			accel.Logger().Debug("volatile: falling back to system memory", "kind", req.Kind, "err", err)
		}
		return nil
	}
	return s
}

// absorbable reports whether a panic value is an allocation-class failure
// or a nil dereference.
func absorbable(r any) bool {
	err, ok := r.(error)
	if !ok {
		return false
	}
	if accel.IsAllocationFailure(err) {
		return true
	}
	var re runtime.Error
	return errors.As(err, &re) && strings.Contains(re.Error(), "nil pointer dereference")
}

// IsConfigValid reports whether the image may be used with config: config
// is nil, a nil pointer, or the image's own configuration.
func (m *Manager) IsConfigValid(config Config) bool {
	return isNilConfig(config) || config == m.img.config
}

// InitContents clears the current surface to the image background, except
// for forced texture images whose contents start undefined.
func (m *Manager) InitContents() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initContents()
}

func (m *Manager) initContents() {
	if m.img.hasForced && m.img.forced == surface.KindTexture {
		return
	}
	if m.current != nil {
		surface.Clear(m.current, m.img.background)
	}
}

func (m *Manager) backupSurface() *surface.ImageSurface {
	if m.backup == nil || !m.backup.Valid() {
		m.backup = surface.NewImageSurface(m.img.width, m.img.height, m.img.transparency)
	}
	return m.backup
}

// Validate prepares the image for use with config.
func (m *Manager) Validate(config Config) ValidateResult {
	if !m.IsConfigValid(config) {
		return ImageIncompatible
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.lost = false
	switch {
	case m.state == Invalid || m.state == Uninitialized || (m.accel != nil && !m.accel.Valid()):
		m.restore()
		m.initContents()
		return ImageRestored

	case m.state == Unaccelerated && m.img.accelerated:
		// Memory may have been freed since the last attempt.
		if s := m.initAccelerated(); s != nil {
			if m.current != nil {
				surface.CopyAll(s, m.current)
			}
			m.accel, m.current, m.state = s, s, Accelerated
			m.backup = nil
			accel.Logger().Debug("volatile: acceleration restored", "kind", s.Kind())
		}
	}
	return ImageOK
}

// restore replaces a lost accelerated surface. Caller must hold mu.
func (m *Manager) restore() {
	if m.accel != nil {
		m.accel.Invalidate()
		m.accel = nil
	}
	if m.img.accelerated {
		m.accel = m.initAccelerated()
	}
	if m.accel != nil {
		m.current, m.state = m.accel, Accelerated
		return
	}
	m.current, m.state = m.backupSurface(), Unaccelerated
}

// ContentsLost reports whether contents were lost since the last Validate.
func (m *Manager) ContentsLost() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lost || m.state == Invalid || (m.accel != nil && !m.accel.Valid())
}

// DisplayChanged drops the accelerated surface; the image is invalid until
// the next Validate.
func (m *Manager) DisplayChanged() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lost = true
	if m.accel != nil {
		m.backup = nil
		m.accel.Invalidate()
		m.accel = nil
		m.current = m.backupSurface()
	}
	m.state = Invalid
}

// Flush releases all surfaces.
func (m *Manager) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lost = true
	if m.accel != nil {
		m.accel.Invalidate()
		m.accel = nil
	}
	if m.backup != nil {
		m.backup.Invalidate()
		m.backup = nil
	}
	m.current = nil
	m.state = Invalid
}

// State returns the backing state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Surface returns the current surface, or nil after Flush.
func (m *Manager) Surface() surface.Surface {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}
