// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import "errors"

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey indicates a duplicate key violation.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrNotReady indicates the requested record exists but is not yet
	// in a readable state (e.g. a report for a non-terminal job).
	ErrNotReady = errors.New("record not ready")

	// ErrTransactionFailed indicates that a transaction failed after
	// exhausting conflict retries.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrUnavailable indicates an infrastructure failure: the backend
	// could not serve the operation at all. Callers use this to
	// distinguish "your data was invalid" from "the system is down".
	ErrUnavailable = errors.New("storage unavailable")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")
)
