// Package accel manages GPU-backed drawing surfaces for a windowing
// toolkit's accelerated rendering path.
//
// The root package only carries what every sub-package shares: the logger
// and the error taxonomy. The work is split as follows:
//
//   - handle: process-wide reference counts for native configuration
//     handles; the native configuration is released exactly once, when the
//     last GraphicsConfig referencing it is closed.
//   - gfxconfig: GraphicsConfig, one per display and pixel format. It holds
//     the capability bits, the native rendering context and the maximum
//     texture size, and is the factory for accelerated surfaces.
//   - proxy: decides whether a non-accelerated source surface should be
//     promoted to a cached accelerated copy for a destination config.
//   - volatile: chooses texture, framebuffer object or flip backbuffer for a
//     volatile image and falls back to an unaccelerated surface when
//     allocation fails.
//   - renderqueue, mainthread: the render queue lock and the designated
//     platform UI thread on which native configuration is acquired.
//   - native: the narrow interface to the GPU backend, with an
//     implementation over a gpucontext.DeviceProvider.
//   - surface, caps: surface kinds and colour models, the budgeted
//     allocator of accelerated surfaces, and capability descriptors.
//   - config: TOML options for all of the above.
//
// The accelinfo command prints what a display's configuration supports.
//
// # Errors
//
// Allocation failures ([ErrOutOfMemory], [ErrNilReference]) are absorbed
// where they happen and converted into a fallback representation.
// [ErrBackendUnavailable] and [*ConfigAcquisitionError] are fatal for the
// device they concern.
//
// # Logging
//
// accel logs nothing by default. Use [SetLogger] to enable output.
package accel
