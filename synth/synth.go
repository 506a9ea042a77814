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


// Package synth turns normalized evidence into a cited, structured answer.
//
// The Synthesizer builds a fixed-shape prompt from the query and both
// evidence blocks, invokes the chat model, and parses the reply as
// strict JSON. A malformed reply earns one corrective retry; if that
// also fails, the raw text is returned as a zero-confidence degraded
// answer instead of failing the request.
package synth

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/sift/ai"
	"github.com/poiesic/sift/core"
)

const defaultGenerateTimeout = 30 * time.Second

// Synthesizer generates answers from aggregated evidence.
type Synthesizer struct {
	completer ai.Completer
	timeout   time.Duration
	logger    *slog.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer) error

// WithTimeout caps how long a single generation call may take.
// Default is 30 seconds.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Synthesizer) error {
		if timeout > 0 {
			s.timeout = timeout
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synthesizer) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSynthesizer creates a new synthesizer.
func NewSynthesizer(completer ai.Completer, opts ...Option) (*Synthesizer, error) {
	if completer == nil {
		return nil, ErrCompleterRequired
	}

	s := &Synthesizer{
		completer: completer,
		timeout:   defaultGenerateTimeout,
		logger:    slog.Default().With("component", "synthesizer"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Generate produces a structured answer for the query from the rendered
// evidence blocks. Transport failures are returned as errors; malformed
// model output is degraded, never fatal.
func (s *Synthesizer) Generate(ctx context.Context, query, localBlock, webBlock string) (*core.SynthResult, error) {
	userPrompt := buildUserPrompt(query, localBlock, webBlock)

	content, err := s.complete(ctx, userPrompt)
	if err != nil {
		s.logger.Error("generation request failed", "err", err)
		return nil, err
	}

	result, parseErr := parseSynthResult(content)
	if parseErr == nil {
		s.logger.Info("synthesis complete", "confidence", result.Confidence)
		return result, nil
	}

	// One corrective retry before degrading
	s.logger.Warn("model output was not valid JSON, retrying with corrective instruction", "err", parseErr)

	retried, err := s.complete(ctx, userPrompt+correctiveInstruction)
	if err != nil {
		s.logger.Error("corrective generation request failed", "err", err)
		return nil, err
	}

	result, parseErr = parseSynthResult(retried)
	if parseErr == nil {
		s.logger.Info("synthesis complete after retry", "confidence", result.Confidence)
		return result, nil
	}

	s.logger.Warn("model output unparseable after retry, returning degraded answer", "err", parseErr)
	return &core.SynthResult{
		Answer:     retried,
		Sources:    nil,
		Confidence: 0,
	}, nil
}

// complete invokes the model under a fresh per-call timeout so a slow
// first attempt cannot eat the retry's budget.
func (s *Synthesizer) complete(ctx context.Context, userPrompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.completer.Complete(callCtx, systemPrompt, userPrompt)
}
