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


package core

import "fmt"

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Text must not be empty
//   - Tag must not be empty
//
// NOT validated (populated during index build):
//   - Vector (can be empty until the chunk is embedded)
//   - ID (derived from content by the builder)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyChunkText)
	}

	if chunk.Tag == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyChunkTag)
	}

	return nil
}

// ValidatePolicy validates that a Policy has a recognized value.
func ValidatePolicy(policy Policy) error {
	switch policy {
	case PolicyLocal, PolicyWeb, PolicyHybrid:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidPolicy, policy)
}

// ParsePolicy parses a policy string, case-insensitively.
// Returns ErrInvalidPolicy for anything outside {local, web, hybrid}.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(lower(s)) {
	case PolicyLocal:
		return PolicyLocal, nil
	case PolicyWeb:
		return PolicyWeb, nil
	case PolicyHybrid:
		return PolicyHybrid, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
}

// ClampConfidence bounds a confidence score to [0, 1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// lower is a small ASCII-only lowercase helper; policy values are ASCII.
func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
