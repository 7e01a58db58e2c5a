package apperr

import "errors"

var (
	// ErrAssetUnavailable is returned when playback or export needs an audio asset and none is loaded.
	ErrAssetUnavailable = errors.New("audio asset unavailable")
	// ErrConcurrentExport is returned when an export is requested while another is in flight.
	ErrConcurrentExport = errors.New("export already in progress")
	// ErrCaptureDevice wraps encoder, stream and device failures during capture.
	ErrCaptureDevice = errors.New("capture device error")
	// ErrExternalService wraps failures of the generative metadata service.
	ErrExternalService = errors.New("external service error")
)
