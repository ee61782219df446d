package assess

import "fmt"

// ImageFetchError means the displayed image could not be read.
type ImageFetchError struct {
	Locator string
	Err     error
}

func (e *ImageFetchError) Error() string {
	return fmt.Sprintf("fetching image %s: %v", e.Locator, e.Err)
}

func (e *ImageFetchError) Unwrap() error { return e.Err }

// ServiceUnavailableError means Ollama answered with a non-2xx status, or
// could not be reached at all (StatusCode 0).
type ServiceUnavailableError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *ServiceUnavailableError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("could not reach Ollama at %s: %v. %s", e.Endpoint, e.Err, e.Hint())
	}
	return fmt.Sprintf("HTTP error! status: %d. %s", e.StatusCode, e.Hint())
}

func (e *ServiceUnavailableError) Unwrap() error { return e.Err }

// Hint is the user-facing advice shown next to a failed assessment.
func (e *ServiceUnavailableError) Hint() string {
	return "Make sure Ollama is running and listening on " + e.Endpoint +
		"; if it rejects cross-origin requests, start it with OLLAMA_ORIGINS set, e.g. OLLAMA_ORIGINS='*' ollama serve."
}
