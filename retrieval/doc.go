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


// Package retrieval implements the two evidence sources that feed answer
// generation: vector search over the local chunk index and real-time web
// search through a pluggable SearchClient.
//
// Both retrievers rerank their raw results before returning them. Local
// evidence blends vector similarity with BM25 lexical scoring; web
// evidence blends publication recency, source authority, and provider
// relevance. Each retriever reports per-stage latencies so callers can
// surface a full timing breakdown.
//
// Web searches are cached per (query, topK) pair with a TTL, and
// provider calls are retried with exponential backoff before the
// retriever gives up with ErrProviderUnavailable.
package retrieval
