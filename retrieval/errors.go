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


package retrieval

import "errors"

var (
	// ErrIndexUnavailable indicates the local chunk index holds no documents.
	ErrIndexUnavailable = errors.New("local index is empty or unavailable")

	// ErrCredentialsMissing indicates no web search client is configured.
	ErrCredentialsMissing = errors.New("web search credentials are missing")

	// ErrProviderUnavailable indicates the web search provider failed after retries.
	ErrProviderUnavailable = errors.New("web search provider unavailable")

	// ErrChunkRepositoryRequired indicates the chunk repository was nil.
	ErrChunkRepositoryRequired = errors.New("chunk repository is required")

	// ErrEmbedderRequired indicates the embedder was nil.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrInvalidMaxAttempts indicates a non-positive retry attempt count.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)
