package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"greenchain/credit-engine/internal/climate"
	"greenchain/credit-engine/internal/geometry"
	"greenchain/credit-engine/internal/vegetation"
)

// OpenMeteoConfig configures the historical weather client.
type OpenMeteoConfig struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultOpenMeteoConfig points at the public archive API.
func DefaultOpenMeteoConfig() OpenMeteoConfig {
	return OpenMeteoConfig{
		BaseURL: "https://archive-api.open-meteo.com/v1/archive",
		Timeout: 20 * time.Second,
	}
}

// OpenMeteoClient fetches daily weather history for the polygon centroid and
// reduces it to a composite climate anomaly. It implements Source.
type OpenMeteoClient struct {
	cfg        OpenMeteoConfig
	httpClient *http.Client
}

// NewOpenMeteoClient creates the client. A nil httpClient gets a default with
// the configured timeout.
func NewOpenMeteoClient(cfg OpenMeteoConfig, httpClient *http.Client) *OpenMeteoClient {
	def := DefaultOpenMeteoConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &OpenMeteoClient{cfg: cfg, httpClient: httpClient}
}

type archiveResponse struct {
	Daily struct {
		Time               []string  `json:"time"`
		TemperatureMean    []float64 `json:"temperature_2m_mean"`
		TemperatureMin     []float64 `json:"temperature_2m_min"`
		PrecipitationSum   []float64 `json:"precipitation_sum"`
		Evapotranspiration []float64 `json:"et0_fao_evapotranspiration"`
	} `json:"daily"`
}

// FetchAnomaly queries daily history for the window and computes the
// composite risk anomaly.
func (c *OpenMeteoClient) FetchAnomaly(ctx context.Context, polygon *geometry.FarmPolygon, window vegetation.Window) (climate.Anomaly, error) {
	centroid := polygon.Centroid()

	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%.4f", centroid.Lat))
	params.Set("longitude", fmt.Sprintf("%.4f", centroid.Lon))
	params.Set("start_date", window.Start.UTC().Format("2006-01-02"))
	params.Set("end_date", window.End.UTC().Format("2006-01-02"))
	params.Set("daily", "temperature_2m_mean,temperature_2m_min,precipitation_sum,et0_fao_evapotranspiration")
	params.Set("timezone", "UTC")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return climate.Anomaly{}, fmt.Errorf("build weather request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return climate.Anomaly{}, fmt.Errorf("fetch weather history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return climate.Anomaly{}, fmt.Errorf("weather API returned %d: %s", resp.StatusCode, snippet)
	}

	var decoded archiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return climate.Anomaly{}, fmt.Errorf("decode weather response: %w", err)
	}

	days := len(decoded.Daily.Time)
	if days == 0 {
		return climate.Anomaly{}, fmt.Errorf("weather API returned no daily data for %s..%s",
			window.Start.Format("2006-01-02"), window.End.Format("2006-01-02"))
	}

	inputs := climate.RiskInputs{TotalDays: days}
	for _, p := range decoded.Daily.PrecipitationSum {
		inputs.TotalRainfallMM += p
		inputs.WaterBalanceMM += p
	}
	for _, et0 := range decoded.Daily.Evapotranspiration {
		inputs.WaterBalanceMM -= et0
	}
	for _, tm := range decoded.Daily.TemperatureMean {
		inputs.MeanTemperatureC += tm / float64(len(decoded.Daily.TemperatureMean))
	}
	for _, tmin := range decoded.Daily.TemperatureMin {
		if tmin <= 0 {
			inputs.FrostDays++
		}
	}

	return climate.CompositeRisk(inputs), nil
}
