package api

import (
	"bytes"
	"context"
	"testing"

	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planet-ai/internal/app"
	"planet-ai/internal/model/llm"
	"planet-ai/pkg/config"
)

type nopLLM struct{}

func (nopLLM) ChatWithContext(context.Context, []llm.Message, llm.GenerateOptions) (string, error) {
	return "ok", nil
}
func (nopLLM) Model() string    { return "nop" }
func (nopLLM) Provider() string { return "nop" }

func TestNewApp(t *testing.T) {
	cfg := &config.Config{
		API:     config.APIConfig{Host: "127.0.0.1", Port: 8123},
		Storage: config.StorageConfig{Metadata: config.MetadataConfig{Type: "memory"}},
		Model:   config.ModelConfig{LLM: config.LLMConfig{APIKey: "k"}},
		Secrets: config.SecretsConfig{Provider: "memory"},
		Log:     config.LogConfig{Level: "error"},
	}
	b, err := app.NewBootstrap(context.Background(), cfg, app.Options{LLMClient: nopLLM{}})
	require.NoError(t, err)

	a, err := NewApp(b)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8123", a.Addr())

	// 未 Run 时关闭只释放存储
	assert.NoError(t, a.Shutdown(context.Background()))
}

func TestNewApp_CORSFollowsConfig(t *testing.T) {
	for _, enable := range []bool{true, false} {
		cfg := &config.Config{
			API: config.APIConfig{
				Host: "127.0.0.1",
				Port: 8123,
				CORS: config.CORSConfig{Enable: enable},
			},
			Storage: config.StorageConfig{Metadata: config.MetadataConfig{Type: "memory"}},
			Model:   config.ModelConfig{LLM: config.LLMConfig{APIKey: "k"}},
			Secrets: config.SecretsConfig{Provider: "memory"},
			Log:     config.LogConfig{Level: "error"},
		}
		b, err := app.NewBootstrap(context.Background(), cfg, app.Options{LLMClient: nopLLM{}})
		require.NoError(t, err)
		a, err := NewApp(b)
		require.NoError(t, err)

		h := a.router.Build(":0")
		w := ut.PerformRequest(h.Engine, "GET", "/", &ut.Body{Body: bytes.NewReader(nil), Len: 0},
			ut.Header{Key: "Origin", Value: "https://app.example.com"})
		allow := string(w.Result().Header.Peek("Access-Control-Allow-Origin"))
		if enable {
			assert.Equal(t, "*", allow)
		} else {
			assert.Empty(t, allow)
		}
		require.NoError(t, a.Shutdown(context.Background()))
	}
}

func TestNewApp_NilBootstrap(t *testing.T) {
	_, err := NewApp(nil)
	assert.Error(t, err)
}
