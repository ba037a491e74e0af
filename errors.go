package chartex

import "errors"

var (
	// ErrNoDocument is returned when an operation needs a loaded document.
	ErrNoDocument = errors.New("chartex: no document loaded")

	// ErrUnsupportedFormat is returned for unrecognized file formats.
	ErrUnsupportedFormat = errors.New("chartex: unsupported document format")

	// ErrPageNotFound is returned when a page number does not exist in
	// the loaded document.
	ErrPageNotFound = errors.New("chartex: page not found")

	// ErrNoPageImage is returned when extraction is requested for a
	// placeholder page with nothing to render.
	ErrNoPageImage = errors.New("chartex: page has no renderable image")

	// ErrExtractionInFlight is returned when an extraction for the same
	// page is already in progress. The caller must wait for it to finish.
	ErrExtractionInFlight = errors.New("chartex: extraction already in progress for this page")

	// ErrExtractionFailed is returned when the inference collaborator
	// fails. Previously extracted results for the page are untouched.
	ErrExtractionFailed = errors.New("chartex: extraction failed")
)
