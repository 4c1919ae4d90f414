/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package session provides the session-scoped blob store the pipeline is
// built against. Every upload and generated artifact is keyed strictly by
// session ID; nothing is reachable through ambient global paths, which is
// what keeps sessions isolated from each other and the core testable
// without a filesystem.
package session

import (
	"context"
	"errors"
)

var (
	// ErrSessionNotFound is returned for operations on unknown sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrBlobNotFound is returned for unknown uploads or artifacts.
	ErrBlobNotFound = errors.New("blob not found")
)

// Blob kinds. Uploads are the raw CSV files; artifacts are generated
// outputs (charts, reports).
const (
	KindUpload   = "upload"
	KindArtifact = "artifact"
)

// Store is the session-scoped storage contract injected into the pipeline.
type Store interface {
	// Create allocates a new session and returns its ID.
	Create(ctx context.Context) (string, error)
	// Exists reports whether the session is known.
	Exists(ctx context.Context, sessionID string) (bool, error)
	// Put stores a named blob of the given kind under the session,
	// overwriting any previous blob with the same kind and name.
	Put(ctx context.Context, sessionID, kind, name string, data []byte) error
	// Get reads a named blob, or ErrBlobNotFound / ErrSessionNotFound.
	Get(ctx context.Context, sessionID, kind, name string) ([]byte, error)
	// List returns the blob names of the given kind in insertion order.
	List(ctx context.Context, sessionID, kind string) ([]string, error)
	// Delete removes the session and everything stored under it.
	Delete(ctx context.Context, sessionID string) error
	// Close releases backend resources.
	Close() error
}
