package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hfauzan/audiotube/internal/domain"
	"github.com/hfauzan/audiotube/internal/httpclient"
)

const oembedEndpoint = "https://www.youtube.com/oembed"

// OEmbedProvider asks YouTube's oEmbed endpoint. It is the cheapest provider
// but carries no duration and no stream information.
type OEmbedProvider struct {
	client *httpclient.Client
}

func NewOEmbedProvider(client *httpclient.Client) *OEmbedProvider {
	return &OEmbedProvider{client: client}
}

func (p *OEmbedProvider) Name() string { return "oembed" }

func (p *OEmbedProvider) Resolve(ctx context.Context, sourceURL, videoID string) (*domain.Metadata, error) {
	endpoint := fmt.Sprintf("%s?url=%s&format=json",
		oembedEndpoint,
		url.QueryEscape("https://www.youtube.com/watch?v="+videoID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("oembed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oembed returned status %d", resp.StatusCode)
	}

	var payload struct {
		Title        string `json:"title"`
		AuthorName   string `json:"author_name"`
		ThumbnailURL string `json:"thumbnail_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode oembed response: %w", err)
	}

	return &domain.Metadata{
		VideoID:      videoID,
		Title:        payload.Title,
		Artist:       payload.AuthorName,
		ThumbnailURL: fmt.Sprintf("https://img.youtube.com/vi/%s/maxresdefault.jpg", videoID),
	}, nil
}
