// Package client implements the submission state machine that sits between
// a form surface (embedded widget, CLI smoke tool) and the waitlist API.
//
// The controller owns field state and the submission lifecycle. It turns
// raw keystrokes into at most one well-formed request per attempt: invalid
// input never reaches the network, and a submission in flight blocks
// further submits until it resolves. The presentational layer only calls
// UpdateEmail/UpdateReferenceURL/Submit and renders whatever State reports.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ignite/waitlist/internal/domain"
)

// Phase enumerates the submission lifecycle states.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseValidating Phase = "validating"
	PhaseSubmitting Phase = "submitting"
	PhaseSuccess    Phase = "success"
	PhaseFailed     Phase = "failed"
)

// FailureKind classifies why a submission attempt failed.
type FailureKind string

const (
	// FailureValidation means the input never left the device.
	FailureValidation FailureKind = "validation"
	// FailureTransient means the server was unreachable or reported an
	// infrastructure problem; the user may retry with the same input.
	FailureTransient FailureKind = "transient"
)

// State is a snapshot of the controller for rendering.
type State struct {
	Phase        Phase
	Email        string
	ReferenceURL string
	// Message is the user-facing text for the Failed phase.
	Message string
	Kind    FailureKind
}

// SignupController drives one waitlist form. Safe for concurrent use, but
// designed for a single user interaction: Submit refuses re-entry while a
// request is in flight.
type SignupController struct {
	mu    sync.Mutex
	state State

	baseURL    string
	httpClient *http.Client
	onSuccess  func(email string)
	onFailure  func(kind FailureKind, message string)
}

// Option configures a SignupController.
type Option func(*SignupController)

// WithHTTPClient overrides the default HTTP client (mainly for tests).
func WithHTTPClient(c *http.Client) Option {
	return func(sc *SignupController) { sc.httpClient = c }
}

// WithSuccessCallback registers the caller's success handler, invoked with
// the normalized email after the server confirms the signup.
func WithSuccessCallback(fn func(email string)) Option {
	return func(sc *SignupController) { sc.onSuccess = fn }
}

// WithFailureCallback registers the caller's failure handler.
func WithFailureCallback(fn func(kind FailureKind, message string)) Option {
	return func(sc *SignupController) { sc.onFailure = fn }
}

// NewSignupController creates a controller targeting the waitlist API at
// baseURL (e.g. "https://api.10automations.com").
func NewSignupController(baseURL string, opts ...Option) *SignupController {
	sc := &SignupController{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		state:      State{Phase: PhaseIdle},
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// State returns a snapshot of the current controller state.
func (sc *SignupController) State() State {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.state
}

// UpdateEmail records the current email field value. Pure state update:
// no validation happens until Submit.
func (sc *SignupController) UpdateEmail(value string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.state.Email = value
}

// UpdateReferenceURL records the optional reference URL field value.
func (sc *SignupController) UpdateReferenceURL(value string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.state.ReferenceURL = value
}

// Reset returns the controller to Idle after the user dismisses a success
// or error view. Field values are preserved so a transient failure never
// costs the user their typed input.
func (sc *SignupController) Reset() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.state.Phase = PhaseIdle
	sc.state.Message = ""
	sc.state.Kind = ""
}

// ErrSubmitInFlight is returned when Submit is called while a previous
// submission has not resolved yet.
var ErrSubmitInFlight = fmt.Errorf("submission already in flight")

// ErrAlreadySucceeded is returned when Submit is called from the Success
// phase; the caller must Reset first.
var ErrAlreadySucceeded = fmt.Errorf("submission already succeeded, reset first")

// submitPayload mirrors the server's SignupRequest wire shape.
type submitPayload struct {
	Email        string  `json:"email"`
	ReferenceURL *string `json:"reference_url"`
}

// submitResult mirrors the server's SignupResponse wire shape.
type submitResult struct {
	OK        bool   `json:"ok"`
	Email     string `json:"email"`
	ErrorKind string `json:"error_kind"`
	Message   string `json:"message"`
}

// Submit validates the current fields and issues at most one request to
// the waitlist API. It blocks until the attempt resolves; the resulting
// phase and callbacks describe the outcome.
//
// Outcome mapping:
//   - invalid email        → Failed/validation, zero network calls
//   - server ok            → Success, success callback
//   - server "duplicate"   → Success, success callback (soft success)
//   - anything else        → Failed/transient, typed input preserved
func (sc *SignupController) Submit(ctx context.Context) error {
	sc.mu.Lock()
	// Submit is only legal from Idle or Failed.
	switch sc.state.Phase {
	case PhaseSubmitting, PhaseValidating:
		sc.mu.Unlock()
		return ErrSubmitInFlight
	case PhaseSuccess:
		sc.mu.Unlock()
		return ErrAlreadySucceeded
	}

	sc.state.Phase = PhaseValidating
	email := sc.state.Email
	refURL := sc.state.ReferenceURL

	if !domain.ValidEmail(email) {
		sc.state.Phase = PhaseFailed
		sc.state.Kind = FailureValidation
		sc.state.Message = "Please enter a valid email"
		onFailure := sc.onFailure
		sc.mu.Unlock()
		if onFailure != nil {
			onFailure(FailureValidation, "Please enter a valid email")
		}
		return nil
	}

	sc.state.Phase = PhaseSubmitting
	sc.mu.Unlock()

	result, err := sc.post(ctx, email, refURL)

	sc.mu.Lock()
	switch {
	case err != nil:
		sc.state.Phase = PhaseFailed
		sc.state.Kind = FailureTransient
		sc.state.Message = "Could not reach the server, please try again"

	case result.OK, result.ErrorKind == "duplicate":
		// A duplicate is presented exactly like a fresh signup: the user
		// is on the list either way.
		sc.state.Phase = PhaseSuccess
		if result.Email != "" {
			sc.state.Email = result.Email
		}

	case result.ErrorKind == "validation":
		sc.state.Phase = PhaseFailed
		sc.state.Kind = FailureValidation
		sc.state.Message = result.Message

	default:
		sc.state.Phase = PhaseFailed
		sc.state.Kind = FailureTransient
		sc.state.Message = result.Message
		if sc.state.Message == "" {
			sc.state.Message = "Something went wrong, please try again"
		}
	}
	st := sc.state
	onSuccess, onFailure := sc.onSuccess, sc.onFailure
	sc.mu.Unlock()

	switch st.Phase {
	case PhaseSuccess:
		if onSuccess != nil {
			onSuccess(st.Email)
		}
	case PhaseFailed:
		if onFailure != nil {
			onFailure(st.Kind, st.Message)
		}
	}
	return nil
}

// post issues the single network request for one submission attempt.
func (sc *SignupController) post(ctx context.Context, email, refURL string) (*submitResult, error) {
	payload := submitPayload{
		Email:        domain.NormalizeEmail(email),
		ReferenceURL: domain.CleanReferenceURL(refURL),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sc.baseURL+"/api/signups", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := sc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	var result submitResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &result, nil
}
