// Copyright 2026 fanjia1024
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

package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planet-ai/internal/model/llm"
	"planet-ai/internal/storage/cache"
)

// stubClient 模拟补全服务：choices 为空时返回 ErrNoCompletion
type stubClient struct {
	choices []string
	err     error
	calls   int
	last    []llm.Message
}

func (s *stubClient) ChatWithContext(ctx context.Context, messages []llm.Message, options llm.GenerateOptions) (string, error) {
	s.calls++
	s.last = messages
	if s.err != nil {
		return "", s.err
	}
	if len(s.choices) == 0 {
		return "", llm.ErrNoCompletion
	}
	return s.choices[0], nil
}
func (s *stubClient) Model() string    { return "llama-3.2-90b-text-preview" }
func (s *stubClient) Provider() string { return "groq" }

func TestAnswer_NoChoices(t *testing.T) {
	g := NewGenerator(&stubClient{}, llm.GenerateOptions{})
	_, err := g.Answer(context.Background(), AskRequest{ExtractedText: "t", Question: "q"})
	assert.ErrorIs(t, err, ErrNoCompletion)
}

func TestAnswer_FirstChoice(t *testing.T) {
	client := &stubClient{choices: []string{"42", "43"}}
	g := NewGenerator(client, llm.GenerateOptions{Temperature: 1, MaxTokens: 1024, TopP: 1})
	got, err := g.Answer(context.Background(), AskRequest{
		ExtractedText: "The answer is 42.",
		Question:      "What is the answer?",
		PreviousConvo: [][]string{{"user", "hi"}, {"assistant", "hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "42", got)

	require.Len(t, client.last, 3)
	assert.Equal(t, "Context: The answer is 42.", client.last[0].Content)
	assert.Equal(t, "Question: What is the answer?", client.last[1].Content)
	assert.Equal(t, "Previous Conversation: user: hi\nassistant: hello", client.last[2].Content)
	for _, m := range client.last {
		assert.Equal(t, "user", m.Role)
	}
}

func TestAnswer_TransportError(t *testing.T) {
	cause := errors.New("dial tcp: i/o timeout")
	g := NewGenerator(&stubClient{err: cause}, llm.GenerateOptions{})
	_, err := g.Answer(context.Background(), AskRequest{Question: "q"})
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNoCompletion)
}

func TestAnswer_CacheHitSkipsCall(t *testing.T) {
	client := &stubClient{choices: []string{"42"}}
	g := NewGenerator(client, llm.GenerateOptions{}, WithCache(cache.NewMemoryStore(), 0))
	req := AskRequest{ExtractedText: "t", Question: "q"}

	for i := 0; i < 3; i++ {
		got, err := g.Answer(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "42", got)
	}
	assert.Equal(t, 1, client.calls)

	_, err := g.Answer(context.Background(), AskRequest{ExtractedText: "t", Question: "other"})
	require.NoError(t, err)
	assert.Equal(t, 2, client.calls)
}

func TestAnswer_NoCompletionNotCached(t *testing.T) {
	client := &stubClient{}
	g := NewGenerator(client, llm.GenerateOptions{}, WithCache(cache.NewMemoryStore(), 0))
	for i := 0; i < 2; i++ {
		_, err := g.Answer(context.Background(), AskRequest{Question: "q"})
		assert.ErrorIs(t, err, ErrNoCompletion)
	}
	assert.Equal(t, 2, client.calls)
}

func TestRenderConversation(t *testing.T) {
	assert.Equal(t, "", renderConversation(nil))
	assert.Equal(t, "solo\nbot: a b", renderConversation([][]string{{}, {"solo"}, {"bot", "a", "b"}}))
}
