// SPDX-License-Identifier: MIT
/*
Package camera defines the frame source contract consumed by the session controller
and ships the sources the engine can run against without a real camera driver:

- Synthetic: a generated face patch with a known pulse, for demos and tests
- Sequence: PNG/JPEG frames replayed from a directory

A Source hands out at most one Stream per Acquire call. The Stream is a scoped
capability: whoever acquired it must Release it on every exit path. Release is
idempotent and safe to call from any goroutine, because a stream that arrives after
its session was cancelled is released off the tick loop.
*/
package camera

import (
	"context"
	"errors"
	"image"
)

var (
	// ErrFrameUnavailable means the stream has no frame ready for this tick. It is not
	// a failure; the caller simply tries again on a later tick.
	ErrFrameUnavailable = errors.New("camera: frame unavailable")

	// ErrPermissionDenied is returned by Acquire when access to the device is refused.
	ErrPermissionDenied = errors.New("camera: permission denied")

	// ErrNoFrames is returned by Acquire when a sequence directory holds no images.
	ErrNoFrames = errors.New("camera: no frames found")

	// ErrReleased is returned by ReadFrame after Release.
	ErrReleased = errors.New("camera: stream released")
)

// Source opens camera streams.
type Source interface {
	// Acquire opens a stream. It may block until the device is ready and must return
	// promptly with ctx.Err() once ctx is cancelled.
	Acquire(ctx context.Context) (Stream, error)
}

// Stream is an acquired camera resource.
type Stream interface {
	// ReadFrame returns the current frame. The returned image is only valid until the
	// next ReadFrame call. ErrFrameUnavailable signals "not ready yet".
	ReadFrame() (*image.RGBA, error)

	// Release frees the resource. Calling it more than once is a no-op.
	Release() error
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (Stream, error)

// Acquire calls f(ctx).
func (f SourceFunc) Acquire(ctx context.Context) (Stream, error) {
	return f(ctx)
}
