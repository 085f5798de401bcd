package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/ignite/waitlist/internal/domain"
	"github.com/ignite/waitlist/internal/pkg/logger"
	"github.com/ignite/waitlist/internal/service/signup"
)

// Handlers holds the HTTP handlers for the waitlist API.
type Handlers struct {
	svc *signup.Service
}

// NewHandlers creates the handler set backed by the signup service.
func NewHandlers(svc *signup.Service) *Handlers {
	return &Handlers{svc: svc}
}

// SignupRequest is the wire shape of one form submission.
type SignupRequest struct {
	Email        string `json:"email"`
	ReferenceURL string `json:"reference_url"`
}

// SignupResponse is the wire shape of the submission result. ErrorKind is
// one of "duplicate", "validation", "transient"; "duplicate" tells the
// client to render the same confirmation as a fresh signup.
type SignupResponse struct {
	OK        bool   `json:"ok"`
	Email     string `json:"email,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	Message   string `json:"message,omitempty"`
}

// HandleSignup records one waitlist submission and, when this deployment
// sends a lead magnet, dispatches the notification email.
//
//	POST /api/signups
func (h *Handlers) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, SignupResponse{
			OK:        false,
			ErrorKind: "validation",
			Message:   "Please enter a valid email",
		})
		return
	}

	res, err := h.svc.HandleSubmission(r.Context(), req.Email, req.ReferenceURL)
	if err != nil {
		if errors.Is(err, signup.ErrInvalidEmail) {
			respondJSON(w, http.StatusBadRequest, SignupResponse{
				OK:        false,
				ErrorKind: "validation",
				Message:   "Please enter a valid email",
			})
			return
		}
		log.Printf("[api] signup failed for %s: %v", logger.RedactEmail(req.Email), err)
		respondJSON(w, http.StatusServiceUnavailable, SignupResponse{
			OK:        false,
			ErrorKind: "transient",
			Message:   "Something went wrong, please try again",
		})
		return
	}

	switch res.Outcome {
	case domain.OutcomeCreated, domain.OutcomeNotifiedNow:
		respondJSON(w, http.StatusOK, SignupResponse{
			OK:      true,
			Email:   res.Signup.Email,
			Message: "You're on the list",
		})

	case domain.OutcomeAlreadyExists, domain.OutcomeAlreadyNotified:
		// Re-submitting is a normal user action (second device, second
		// visit). It renders as success on the client, never as an error.
		respondJSON(w, http.StatusOK, SignupResponse{
			OK:        false,
			Email:     res.Signup.Email,
			ErrorKind: "duplicate",
			Message:   "You're already on the list",
		})

	case domain.OutcomeNotifyFailed:
		// The signup is persisted; only the email is pending. The retry
		// worker will pick it up, so the user still sees success.
		log.Printf("[api] notification pending for %s: %v", logger.RedactEmail(res.Signup.Email), res.Err)
		respondJSON(w, http.StatusOK, SignupResponse{
			OK:      true,
			Email:   res.Signup.Email,
			Message: "You're on the list, your guide is on its way",
		})

	case domain.OutcomePersistFailed:
		log.Printf("[api] persist failed for %s: %v", logger.RedactEmail(req.Email), res.Err)
		respondJSON(w, http.StatusServiceUnavailable, SignupResponse{
			OK:        false,
			ErrorKind: "transient",
			Message:   "Something went wrong, please try again",
		})

	default:
		log.Printf("[api] unexpected outcome %q", res.Outcome)
		respondJSON(w, http.StatusServiceUnavailable, SignupResponse{
			OK:        false,
			ErrorKind: "transient",
			Message:   "Something went wrong, please try again",
		})
	}
}

// HandleListSignups returns signups newest-first with pagination.
//
//	GET /api/signups?limit=50&offset=0
func (h *Handlers) HandleListSignups(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	signups, total, err := h.svc.List(r.Context(), signup.ListFilter{Limit: limit, Offset: offset})
	if err != nil {
		log.Printf("[api] list signups: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list signups")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"signups": signups,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// HandleCountSignups returns the waitlist size.
//
//	GET /api/signups/count
func (h *Handlers) HandleCountSignups(w http.ResponseWriter, r *http.Request) {
	count, err := h.svc.Count(r.Context())
	if err != nil {
		log.Printf("[api] count signups: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to count signups")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"count": count})
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
