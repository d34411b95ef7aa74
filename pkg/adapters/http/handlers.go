package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"

	"github.com/aretw0/flowchain/pkg/bridge"
	"github.com/aretw0/flowchain/pkg/command"
	"github.com/aretw0/flowchain/pkg/domain"
)

// classify maps an error to an HTTP status and a short kind for the response body.
func classify(err error) (int, string) {
	var berr *bridge.Error
	switch {
	case errors.Is(err, command.ErrCommandNotFound):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &berr):
		return http.StatusBadRequest, "marshalling"
	}
	kind := domain.FailureKind(err)
	switch kind {
	case "balance":
		return http.StatusUnprocessableEntity, kind
	case "signing", "submission":
		return http.StatusBadGateway, kind
	case "availability":
		return http.StatusServiceUnavailable, kind
	}
	return http.StatusInternalServerError, kind
}

// listSignatures handles GET /v1/signatures?user=.
func (s *Server) listSignatures(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		s.writeError(w, http.StatusNotImplemented, "unsupported", errors.New("signature hub not configured"))
		return
	}
	user := r.URL.Query().Get("user")
	if user == "" {
		user = r.Header.Get(UserHeader)
	}
	s.writeJSON(w, http.StatusOK, s.hub.Pending(user))
}

// signatureAnswer is the body of POST /v1/signatures/{id}. Either Signature or Reject is set.
type signatureAnswer struct {
	Pubkey    solana.PublicKey  `json:"pubkey"`
	Signature *solana.Signature `json:"signature,omitempty"`
	Reject    string            `json:"reject,omitempty"`
}

// answerSignature handles POST /v1/signatures/{id}.
func (s *Server) answerSignature(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		s.writeError(w, http.StatusNotImplemented, "unsupported", errors.New("signature hub not configured"))
		return
	}
	id := chi.URLParam(r, "id")
	user := r.Header.Get(UserHeader)

	var body signatureAnswer
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodySize)).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_body", err)
		return
	}

	var err error
	switch {
	case body.Reject != "":
		err = s.hub.Reject(id, user, body.Reject)
	case body.Signature != nil:
		err = s.hub.Submit(id, user, body.Pubkey, *body.Signature)
	default:
		s.writeError(w, http.StatusBadRequest, "invalid_body", errors.New("either signature or reject is required"))
		return
	}

	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, domain.ErrRequestNotFound):
		s.writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, domain.ErrWrongUser):
		s.writeError(w, http.StatusForbidden, "wrong_user", err)
	case errors.Is(err, domain.ErrWrongKey), errors.Is(err, domain.ErrInvalidSignature):
		s.writeError(w, http.StatusUnprocessableEntity, "invalid_signature", err)
	default:
		s.writeError(w, http.StatusInternalServerError, "other", err)
	}
}

// listExecutions handles GET /v1/executions.
func (s *Server) listExecutions(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.writeError(w, http.StatusNotImplemented, "unsupported", errors.New("execution journal not configured"))
		return
	}
	ids, err := s.journal.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "other", fmt.Errorf("list executions: %w", err))
		return
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// getExecution handles GET /v1/executions/{id}.
func (s *Server) getExecution(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.writeError(w, http.StatusNotImplemented, "unsupported", errors.New("execution journal not configured"))
		return
	}
	record, err := s.journal.Load(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, domain.ErrExecutionNotFound):
		s.writeError(w, http.StatusNotFound, "not_found", err)
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, "other", err)
	default:
		s.writeJSON(w, http.StatusOK, record)
	}
}
