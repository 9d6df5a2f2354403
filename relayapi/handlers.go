// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package relayapi

import (
	"encoding/json"
	"net/http"

	"github.com/blinklabs-io/quoll/actioncode"
	"github.com/blinklabs-io/quoll/internal/version"
)

const statusSuccess = "success"

// writeJSON writes a JSON response with the given status
// code.
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

// writeError writes the uniform error envelope for a lifecycle
// error. Anything outside the taxonomy is normalized so internal
// details never reach the caller.
func writeError(
	w http.ResponseWriter,
	err error,
) {
	lcErr := actioncode.NormalizeError(err)
	writeJSON(w, lcErr.Status, ErrorResponse{
		Error:   true,
		Code:    string(lcErr.Kind),
		Message: lcErr.Message,
		Status:  lcErr.Status,
		Details: lcErr.Details,
	})
}

// decodeRequest decodes a JSON request body, rejecting malformed
// input and unknown fields
func decodeRequest(
	w http.ResponseWriter,
	r *http.Request,
	v any,
) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		writeError(
			w,
			actioncode.ErrInvalidPayload.WithMessage(
				"malformed request body",
			),
		)
		return false
	}
	return true
}

// handleRoot handles GET / and returns API metadata.
func (s *Server) handleRoot(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, RootResponse{
		Service: "quoll",
		Version: version.GetVersionString(),
	})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Healthy: true,
	})
}

// handleRegister handles POST /api/v1/register.
func (s *Server) handleRegister(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req RegisterRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	result, err := s.lifecycle.Register(
		r.Context(),
		actioncode.RegisterParams{
			Code:      req.Code,
			Pubkey:    req.Pubkey,
			Signature: req.Signature,
			Chain:     actioncode.Chain(req.Chain),
			Prefix:    req.Prefix,
			Metadata:  req.Metadata,
			Timestamp: req.Timestamp,
		},
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RegisterResponse{
		Status:             string(result.Status),
		CodeHash:           result.CodeHash,
		Timestamp:          result.Timestamp,
		ExpiresAt:          result.ExpiresAt,
		RemainingInSeconds: result.RemainingInSeconds,
	})
}

// handleResolve handles POST /api/v1/resolve.
func (s *Server) handleResolve(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req ResolveRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	result, err := s.lifecycle.Resolve(r.Context(), req.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ResolveResponse{
		Status:             string(result.Status),
		CodeHash:           result.CodeHash,
		Pubkey:             result.Pubkey,
		Chain:              string(result.Chain),
		Prefix:             result.Prefix,
		Timestamp:          result.Timestamp,
		ExpiresAt:          result.ExpiresAt,
		RemainingInSeconds: result.RemainingInSeconds,
		Transaction:        result.Transaction,
		Metadata:           result.Metadata,
	})
}

// handleAttach handles POST /api/v1/attach.
func (s *Server) handleAttach(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req AttachRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	result, err := s.lifecycle.Attach(
		r.Context(),
		actioncode.AttachParams{
			Code:        req.Code,
			Chain:       actioncode.Chain(req.Chain),
			Intent:      actioncode.IntentType(req.IntentType),
			Transaction: req.Transaction,
			Message:     req.Message,
			Metadata:    req.Metadata,
		},
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AttachResponse{
		Status:           statusSuccess,
		CodeHash:         result.CodeHash,
		Chain:            string(result.Chain),
		ActionCodeStatus: string(result.Status),
		ExpiresAt:        result.ExpiresAt,
		HasTransaction:   result.HasTransaction,
		HasMessage:       result.HasMessage,
	})
}

// handleFinalize handles POST /api/v1/finalize.
func (s *Server) handleFinalize(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req FinalizeRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	result, err := s.lifecycle.Finalize(
		r.Context(),
		actioncode.FinalizeParams{
			Code:          req.Code,
			Signature:     req.Signature,
			SignedMessage: req.SignedMessage,
		},
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FinalizeResponse{
		Status:             statusSuccess,
		CodeHash:           result.CodeHash,
		FinalizedSignature: result.FinalizedSignature,
		ActionCodeStatus:   string(result.Status),
		ExpiresAt:          result.ExpiresAt,
	})
}

// handleStatus handles GET /api/v1/status/{code}.
func (s *Server) handleStatus(
	w http.ResponseWriter,
	r *http.Request,
) {
	result, err := s.lifecycle.Status(
		r.Context(),
		r.PathValue("code"),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:             string(result.Status),
		ExpiresAt:          result.ExpiresAt,
		HasTransaction:     result.HasTransaction,
		HasMessage:         result.HasMessage,
		SignedMessage:      result.SignedMessage,
		FinalizedSignature: result.FinalizedSignature,
	})
}
