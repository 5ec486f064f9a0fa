package ai

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"
)

// BedrockClient speaks the Titan model invocation protocol over plain
// HTTP, pointed at a Bedrock runtime gateway or proxy endpoint.
type BedrockClient struct {
	config *ClientConfig
	http   *http.Client
}

func NewBedrockClient(config *ClientConfig) *BedrockClient {
	// Set default models if not provided
	if config.EmbedModel == "" {
		config.EmbedModel = "amazon.titan-embed-text-v2:0"
	}
	if config.GenModel == "" {
		config.GenModel = "amazon.titan-text-express-v1"
	}
	if config.Dim == 0 {
		// Set default dimensions based on the embedding model
		switch config.EmbedModel {
		case "amazon.titan-embed-text-v2:0":
			config.Dim = 1024
		case "amazon.titan-embed-text-v1":
			config.Dim = 1536
		default:
			config.Dim = 1024
		}
	}

	// Optional TLS skip for corporate proxies in front of the gateway
	transport := &http.Transport{}
	if skipTLS, _ := strconv.ParseBool(os.Getenv("DOCSEARCH_SKIP_TLS_VERIFY")); skipTLS {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	httpClient := &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}

	return &BedrockClient{
		config: config,
		http:   httpClient,
	}
}

// Embed requests a vector for the given text and normalizes the
// response shape, which differs between Titan model versions.
func (c *BedrockClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, errors.New("empty text")
	}

	body, err := c.invoke(ctx, c.config.EmbedModel, map[string]any{
		"inputText": text,
	})
	if err != nil {
		return nil, err
	}
	return ExtractVector(body)
}

// Generate invokes the text model once and returns its first output
// verbatim. No retry here; callers wrap the client if they want one.
func (c *BedrockClient) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := c.invoke(ctx, c.config.GenModel, map[string]any{
		"inputText": prompt,
		"textGenerationConfig": map[string]any{
			"maxTokenCount": 512,
			"temperature":   0.2,
		},
	})
	if err != nil {
		return "", err
	}

	var out struct {
		Results []struct {
			OutputText string `json:"outputText"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if len(out.Results) == 0 {
		return "", errors.New("no generation results")
	}
	return out.Results[0].OutputText, nil
}

func (c *BedrockClient) Dim() int {
	return c.config.Dim
}

// invoke posts a model invocation payload and returns the raw body.
func (c *BedrockClient) invoke(ctx context.Context, model string, payload map[string]any) ([]byte, error) {
	if c.config.Endpoint == "" {
		return nil, errors.New("DOCSEARCH_PROVIDER_ENDPOINT unset")
	}

	b, _ := json.Marshal(payload)
	u := c.config.Endpoint + "/model/" + url.PathEscape(model) + "/invoke"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("invoke %s: %s", model, resp.Status)
	}
	return body, nil
}
