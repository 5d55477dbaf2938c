package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// VoyageEmbedder calls the Voyage AI embeddings API. Anthropic does not ship
// a first-party embedding endpoint and recommends Voyage for Claude setups.
type VoyageEmbedder struct {
	apiKey string
	model  string
	client *http.Client
}

const voyageEndpoint = "https://api.voyageai.com/v1/embeddings"

func NewVoyageEmbedder(model string) (Embedder, error) {
	key := os.Getenv("VOYAGE_API_KEY")
	if key == "" {
		return nil, errors.New("missing VOYAGE_API_KEY")
	}
	if model == "" {
		model = "voyage-3"
	}
	return &VoyageEmbedder{
		apiKey: key,
		model:  model,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (e *VoyageEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(map[string]any{
		"model": e.model,
		"input": []string{text},
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, voyageEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("voyage embeddings: status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, ErrNotSupported
	}
	return parsed.Data[0].Embedding, nil
}
