package imagery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"greenchain/credit-engine/internal/geometry"
	"greenchain/credit-engine/internal/vegetation"
)

// CatalogConfig configures the satellite catalog client.
type CatalogConfig struct {
	// BaseURL points at the vegetation statistics service that fronts the
	// Earth Search STAC catalog and computes the polygon-mean index for
	// each scene server side.
	BaseURL string
	// Collection is the STAC collection to search.
	Collection string
	// MaxCloudCoverPct pre-filters scenes at the catalog; the series
	// builder applies its own threshold afterwards.
	MaxCloudCoverPct float64
	// Timeout bounds each search request.
	Timeout time.Duration
}

// DefaultCatalogConfig returns the Sentinel-2 L2A settings.
func DefaultCatalogConfig() CatalogConfig {
	return CatalogConfig{
		Collection:       "sentinel-2-l2a",
		MaxCloudCoverPct: 80,
		Timeout:          30 * time.Second,
	}
}

// CatalogClient fetches per-scene vegetation statistics from the imagery
// catalog. It implements Source.
type CatalogClient struct {
	cfg        CatalogConfig
	httpClient *http.Client
}

// NewCatalogClient creates a catalog client. A nil httpClient gets a default
// with the configured timeout.
func NewCatalogClient(cfg CatalogConfig, httpClient *http.Client) (*CatalogClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("catalog client: base URL is required")
	}
	def := DefaultCatalogConfig()
	if cfg.Collection == "" {
		cfg.Collection = def.Collection
	}
	if cfg.MaxCloudCoverPct <= 0 {
		cfg.MaxCloudCoverPct = def.MaxCloudCoverPct
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &CatalogClient{cfg: cfg, httpClient: httpClient}, nil
}

type searchRequest struct {
	Collections []string               `json:"collections"`
	BBox        [4]float64             `json:"bbox"`
	Datetime    string                 `json:"datetime"`
	Query       map[string]cloudFilter `json:"query"`
	Limit       int                    `json:"limit"`
}

type cloudFilter struct {
	LT float64 `json:"lt"`
}

type searchResponse struct {
	Features []struct {
		ID         string `json:"id"`
		Properties struct {
			Datetime   string  `json:"datetime"`
			CloudCover float64 `json:"eo:cloud_cover"`
			MeanIndex  float64 `json:"greenchain:mean_index"`
		} `json:"properties"`
	} `json:"features"`
}

// FetchObservations searches the catalog for usable scenes over the polygon
// within the window and returns one observation per scene.
func (c *CatalogClient) FetchObservations(ctx context.Context, polygon *geometry.FarmPolygon, window vegetation.Window) ([]vegetation.Observation, error) {
	bound := polygon.Bound()
	body := searchRequest{
		Collections: []string{c.cfg.Collection},
		BBox:        [4]float64{bound.Min.X(), bound.Min.Y(), bound.Max.X(), bound.Max.Y()},
		Datetime:    window.Start.UTC().Format(time.RFC3339) + "/" + window.End.UTC().Format(time.RFC3339),
		Query:       map[string]cloudFilter{"eo:cloud_cover": {LT: c.cfg.MaxCloudCoverPct}},
		Limit:       500,
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode catalog search: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/search", bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("build catalog search: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("catalog search returned %d: %s", resp.StatusCode, snippet)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}

	observations := make([]vegetation.Observation, 0, len(decoded.Features))
	for _, feature := range decoded.Features {
		ts, err := time.Parse(time.RFC3339, feature.Properties.Datetime)
		if err != nil {
			return nil, fmt.Errorf("scene %s has invalid datetime %q: %w", feature.ID, feature.Properties.Datetime, err)
		}
		observations = append(observations, vegetation.Observation{
			Timestamp:  ts,
			Index:      feature.Properties.MeanIndex,
			CloudCover: feature.Properties.CloudCover / 100,
			SceneID:    feature.ID,
		})
	}
	return observations, nil
}
