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

import "github.com/blinklabs-io/quoll/actioncode"

// RootResponse is the GET / response
type RootResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
}

// HealthResponse is the GET /health response
type HealthResponse struct {
	Healthy bool `json:"healthy"`
}

// ErrorResponse is the uniform error envelope for all endpoints
type ErrorResponse struct {
	Details map[string]any `json:"details,omitempty"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Error   bool           `json:"error"`
	Status  int            `json:"status"`
}

// RegisterRequest is the POST /api/v1/register request body
type RegisterRequest struct {
	Metadata  map[string]any `json:"metadata,omitempty"`
	Code      string         `json:"code"`
	Pubkey    string         `json:"pubkey"`
	Signature string         `json:"signature"`
	Chain     string         `json:"chain"`
	Prefix    string         `json:"prefix,omitempty"`
	Timestamp int64          `json:"timestamp,omitempty"`
}

// RegisterResponse is the POST /api/v1/register response body. The
// status field carries the lifecycle status of the new record.
type RegisterResponse struct {
	Status             string `json:"status"`
	CodeHash           string `json:"codeHash"`
	Timestamp          int64  `json:"timestamp"`
	ExpiresAt          int64  `json:"expiresAt"`
	RemainingInSeconds int64  `json:"remainingInSeconds"`
}

// ResolveRequest is the POST /api/v1/resolve request body
type ResolveRequest struct {
	Code string `json:"code"`
}

// ResolveResponse is the POST /api/v1/resolve response body. The
// status field carries the lifecycle status, expired included.
type ResolveResponse struct {
	Metadata           map[string]any                 `json:"metadata,omitempty"`
	Transaction        *actioncode.TransactionPayload `json:"transaction,omitempty"`
	Status             string                         `json:"status"`
	CodeHash           string                         `json:"codeHash"`
	Pubkey             string                         `json:"pubkey"`
	Chain              string                         `json:"chain"`
	Prefix             string                         `json:"prefix,omitempty"`
	Timestamp          int64                          `json:"timestamp"`
	ExpiresAt          int64                          `json:"expiresAt"`
	RemainingInSeconds int64                          `json:"remainingInSeconds"`
}

// AttachRequest is the POST /api/v1/attach request body
type AttachRequest struct {
	Metadata    map[string]any `json:"metadata,omitempty"`
	Code        string         `json:"code"`
	Chain       string         `json:"chain"`
	IntentType  string         `json:"intentType,omitempty"`
	Transaction string         `json:"transaction,omitempty"`
	Message     string         `json:"message,omitempty"`
}

// AttachResponse is the POST /api/v1/attach response body
type AttachResponse struct {
	Status           string `json:"status"`
	CodeHash         string `json:"codeHash"`
	Chain            string `json:"chain"`
	ActionCodeStatus string `json:"actionCodeStatus"`
	ExpiresAt        int64  `json:"expiresAt"`
	HasTransaction   bool   `json:"hasTransaction"`
	HasMessage       bool   `json:"hasMessage"`
}

// FinalizeRequest is the POST /api/v1/finalize request body
type FinalizeRequest struct {
	Code          string `json:"code"`
	Signature     string `json:"signature,omitempty"`
	SignedMessage string `json:"signedMessage,omitempty"`
}

// FinalizeResponse is the POST /api/v1/finalize response body
type FinalizeResponse struct {
	Status             string `json:"status"`
	CodeHash           string `json:"codeHash"`
	FinalizedSignature string `json:"finalizedSignature"`
	ActionCodeStatus   string `json:"actionCodeStatus"`
	ExpiresAt          int64  `json:"expiresAt"`
}

// StatusResponse is the GET /api/v1/status/{code} response body
type StatusResponse struct {
	Status             string `json:"status"`
	SignedMessage      string `json:"signedMessage,omitempty"`
	FinalizedSignature string `json:"finalizedSignature,omitempty"`
	ExpiresAt          int64  `json:"expiresAt"`
	HasTransaction     bool   `json:"hasTransaction"`
	HasMessage         bool   `json:"hasMessage"`
}
