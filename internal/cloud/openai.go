// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/jeranaias/chatterm/internal/model"
)

// =============================================================================
// OPENAI-COMPATIBLE TRANSPORT
// =============================================================================

const (
	// DefaultBaseURL is the OpenAI API root.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultIdleTimeout bounds the wait for each stream event.
	DefaultIdleTimeout = 60 * time.Second
)

// OpenAIConfig configures an OpenAITransport.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string

	// IdleTimeout bounds the wait for the first and every following chunk.
	IdleTimeout time.Duration

	// MaxResponseTokens caps the reply length. 0 leaves it to the provider.
	MaxResponseTokens int
}

// OpenAITransport streams chat completions from an OpenAI-compatible API.
type OpenAITransport struct {
	client            *openai.Client
	apiKey            string
	model             string
	idleTimeout       time.Duration
	maxResponseTokens int
}

// NewOpenAITransport creates a transport. Empty fields take defaults.
func NewOpenAITransport(cfg OpenAIConfig) *OpenAITransport {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	idle := cfg.IdleTimeout
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &OpenAITransport{
		client:            openai.NewClientWithConfig(config),
		apiKey:            cfg.APIKey,
		model:             cfg.Model,
		idleTimeout:       idle,
		maxResponseTokens: cfg.MaxResponseTokens,
	}
}

// Model returns the model identifier sent with each request.
func (t *OpenAITransport) Model() string {
	return t.model
}

// KeyFingerprint returns a short hash of the API key for logging.
// SECURITY: never log any part of the key itself.
func (t *OpenAITransport) KeyFingerprint() string {
	if t.apiKey == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(t.apiKey))
	return hex.EncodeToString(h[:4])
}

// OpenStream implements Transport. The HTTP request runs on a goroutine that
// feeds the returned stream.
func (t *OpenAITransport) OpenStream(ctx context.Context, turns []model.Turn) (*Stream, error) {
	if t.apiKey == "" {
		return nil, NewTransportError(ErrNotConfigured, nil)
	}
	if len(turns) == 0 {
		return nil, &TransportError{Kind: ErrInvalidRequest, Message: "empty context"}
	}

	req := openai.ChatCompletionRequest{
		Model:     t.model,
		Messages:  toChatMessages(turns),
		MaxTokens: t.maxResponseTokens,
		Stream:    true,
	}

	ctx, cancel := context.WithCancel(ctx)
	stream := NewStream(cancel, t.idleTimeout)
	go t.run(ctx, cancel, req, stream)
	return stream, nil
}

func (t *OpenAITransport) run(ctx context.Context, cancel context.CancelFunc, req openai.ChatCompletionRequest, out *Stream) {
	defer cancel()

	log.Debug().
		Str("model", req.Model).
		Int("messages", len(req.Messages)).
		Str("key", t.KeyFingerprint()).
		Msg("opening chat completion stream")

	resp, err := t.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		te := classify(ctx, errors.Wrap(err, "create chat completion stream"))
		log.Error().Err(te).Msg("chat completion request failed")
		out.SendError(te)
		return
	}
	defer resp.Close()

	chunkCount := 0
	for {
		if out.Closed() {
			log.Debug().Int("chunks_received", chunkCount).Msg("chat completion stream closed by consumer")
			return
		}
		response, err := resp.Recv()
		if errors.Is(err, io.EOF) {
			log.Debug().Int("chunks_received", chunkCount).Msg("chat completion stream completed")
			out.SendEnd()
			return
		}
		if err != nil {
			te := classify(ctx, errors.Wrap(err, "receive chat completion chunk"))
			log.Error().Err(te).Int("chunks_received", chunkCount).Msg("chat completion stream failed")
			out.SendError(te)
			return
		}
		chunkCount++

		if len(response.Choices) == 0 {
			continue
		}
		if delta := response.Choices[0].Delta.Content; delta != "" {
			if !out.SendChunk(delta) {
				log.Debug().Int("chunks_received", chunkCount).Msg("chat completion stream closed by consumer")
				return
			}
		}
	}
}

// toChatMessages maps turns to the wire message format.
func toChatMessages(turns []model.Turn) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, turn := range turns {
		role := openai.ChatMessageRoleUser
		switch turn.Role {
		case model.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		case model.RoleSystem:
			role = openai.ChatMessageRoleSystem
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}
	return msgs
}
