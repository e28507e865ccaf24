// Package weather retrieves Typical Meteorological Year data from the
// PVGIS service, parses its CSV payload and validates the series before it
// reaches the physics pipeline.
package weather

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"heliotelligence/internal/domain"
	"heliotelligence/internal/metrics"
	"heliotelligence/pkg/logger"
)

const (
	defaultBaseURL = "https://re.jrc.ec.europa.eu/api/tmy"
	requestTimeout = 30 * time.Second

	// PVGIS TMY coverage requested, a fixed representative period.
	startYear = 2005
	endYear   = 2016

	// A full TMY should carry ~8760 hourly rows.
	expectedHours = 8000
)

// pvgisHeader is the prefix of the CSV header row that separates metadata
// from data in a PVGIS response.
const pvgisHeader = "time(UTC),T2m,RH,G(h),Gb(n),Gd(h)"

// UK service area bounds. PVGIS serves wider coverage but this deployment
// is scoped to UK sites.
const (
	ukLatMin = 49.5
	ukLatMax = 61.0
	ukLonMin = -8.5
	ukLonMax = 2.0
)

// BodyCache caches raw PVGIS response bodies keyed by rounded coordinates.
// A nil cache disables caching; cache failures only cost a refetch.
type BodyCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, body string)
}

// Client fetches TMY weather series for a site.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      BodyCache
}

// NewClient builds a PVGIS client. An empty baseURL selects the public
// PVGIS endpoint; cache may be nil.
func NewClient(baseURL string, cache BodyCache) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		cache:      cache,
	}
}

// FetchTMY retrieves and parses one year of hourly weather for the given
// coordinates. Timestamps are interpreted in the site timezone.
func (c *Client) FetchTMY(ctx context.Context, latitude, longitude float64, site *time.Location) ([]domain.WeatherSample, error) {
	if latitude < ukLatMin || latitude > ukLatMax || longitude < ukLonMin || longitude > ukLonMax {
		return nil, domain.NewWeatherDataError("coordinates (%v, %v) appear to be outside UK bounds", latitude, longitude)
	}

	cacheKey := fmt.Sprintf("pvgis:tmy:%.4f:%.4f", latitude, longitude)
	if c.cache != nil {
		if body, ok := c.cache.Get(ctx, cacheKey); ok {
			logger.Debugf("PVGIS cache hit for %s", cacheKey)
			metrics.WeatherFetches.WithLabelValues("cache").Inc()
			return ParseTMY(body, site)
		}
	}

	logger.Infof("Fetching TMY data for coordinates: %v, %v", latitude, longitude)
	body, err := c.fetch(ctx, latitude, longitude)
	if err != nil {
		metrics.WeatherFetches.WithLabelValues("failed").Inc()
		return nil, err
	}
	metrics.WeatherFetches.WithLabelValues("pvgis").Inc()

	if c.cache != nil {
		c.cache.Set(ctx, cacheKey, body)
	}
	return ParseTMY(body, site)
}

func (c *Client) fetch(ctx context.Context, latitude, longitude float64) (string, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(latitude, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(longitude, 'f', -1, 64))
	params.Set("outputformat", "csv")
	params.Set("usehorizon", "1")
	params.Set("userhorizon", "")
	params.Set("startyear", strconv.Itoa(startYear))
	params.Set("endyear", strconv.Itoa(endYear))
	params.Set("map_variables", "1")
	params.Set("browser", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", &domain.WeatherDataError{Message: "building PVGIS request", Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Errorf("Failed to fetch data from PVGIS API: %v", err)
		return "", &domain.WeatherDataError{Message: "PVGIS request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Errorf("PVGIS returned status %d", resp.StatusCode)
		return "", domain.NewWeatherDataError("PVGIS request failed with status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &domain.WeatherDataError{Message: "reading PVGIS response", Err: err}
	}
	return string(raw), nil
}

// ParseTMY extracts the hourly weather table from a raw PVGIS CSV body.
// Rows run from the header to the first blank line; timestamps use the
// compact PVGIS layout and are interpreted in the site timezone. Gaps are
// filled by linear interpolation and irradiance is clipped at zero.
func ParseTMY(body string, site *time.Location) ([]domain.WeatherSample, error) {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")

	headerIdx := -1
	for i, line := range lines {
		if strings.HasPrefix(line, pvgisHeader) {
			headerIdx = i
			break
		}
	}
	if headerIdx == -1 {
		return nil, domain.NewWeatherDataError("could not find data header in PVGIS response")
	}

	columns := strings.Split(strings.TrimSpace(lines[headerIdx]), ",")
	colIdx := make(map[string]int, len(columns))
	for i, name := range columns {
		colIdx[name] = i
	}

	required := []string{"time(UTC)", "T2m", "G(h)", "Gb(n)", "Gd(h)", "WS10m"}
	var missing []string
	for _, name := range required {
		if _, ok := colIdx[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, domain.NewWeatherDataError("missing expected columns in PVGIS data: %v", missing)
	}

	var rows []domain.WeatherSample
	gaps := 0
	for _, line := range lines[headerIdx+1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		fields := strings.Split(line, ",")
		if len(fields) < len(columns) {
			return nil, domain.NewWeatherDataError("malformed PVGIS row: %q", line)
		}

		ts, err := time.ParseInLocation("20060102:1504", fields[colIdx["time(UTC)"]], site)
		if err != nil {
			return nil, &domain.WeatherDataError{Message: fmt.Sprintf("parsing timestamp %q", fields[colIdx["time(UTC)"]]), Err: err}
		}

		row := domain.WeatherSample{
			Timestamp: ts,
			TempAir:   parseField(fields[colIdx["T2m"]], &gaps),
			GHI:       parseField(fields[colIdx["G(h)"]], &gaps),
			DNI:       parseField(fields[colIdx["Gb(n)"]], &gaps),
			DHI:       parseField(fields[colIdx["Gd(h)"]], &gaps),
			WindSpeed: parseField(fields[colIdx["WS10m"]], &gaps),
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, domain.NewWeatherDataError("no weather data received from PVGIS")
	}
	if len(rows) < expectedHours {
		logger.Warnf("Received only %d hours of weather data, expected ~8760", len(rows))
	}
	if gaps > 0 {
		logger.Warnf("Missing weather values found: %d, filling by linear interpolation", gaps)
		interpolateGaps(rows)
	}

	// Irradiance must never be negative.
	for i := range rows {
		rows[i].GHI = math.Max(rows[i].GHI, 0)
		rows[i].DNI = math.Max(rows[i].DNI, 0)
		rows[i].DHI = math.Max(rows[i].DHI, 0)
	}

	logger.Infof("Successfully parsed %d hours of TMY data", len(rows))
	return rows, nil
}

// parseField reads one numeric CSV field, recording a gap as NaN.
func parseField(s string, gaps *int) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*gaps++
		return math.NaN()
	}
	return v
}

// interpolateGaps fills NaN runs in every weather column linearly between
// the neighboring valid values; edge gaps extend the nearest valid value.
func interpolateGaps(rows []domain.WeatherSample) {
	columns := []func(*domain.WeatherSample) *float64{
		func(r *domain.WeatherSample) *float64 { return &r.GHI },
		func(r *domain.WeatherSample) *float64 { return &r.DNI },
		func(r *domain.WeatherSample) *float64 { return &r.DHI },
		func(r *domain.WeatherSample) *float64 { return &r.TempAir },
		func(r *domain.WeatherSample) *float64 { return &r.WindSpeed },
	}
	for _, col := range columns {
		values := make([]float64, len(rows))
		for i := range rows {
			values[i] = *col(&rows[i])
		}
		interpolateSeries(values)
		for i := range rows {
			*col(&rows[i]) = values[i]
		}
	}
}

func interpolateSeries(values []float64) {
	n := len(values)
	prev := -1 // index of last valid value
	for i := 0; i < n; i++ {
		if math.IsNaN(values[i]) {
			continue
		}
		if prev == -1 && i > 0 {
			// Leading gap: extend first valid value backwards.
			for j := 0; j < i; j++ {
				values[j] = values[i]
			}
		} else if prev != -1 && i-prev > 1 {
			step := (values[i] - values[prev]) / float64(i-prev)
			for j := prev + 1; j < i; j++ {
				values[j] = values[prev] + step*float64(j-prev)
			}
		}
		prev = i
	}
	if prev != -1 {
		// Trailing gap: extend last valid value forwards.
		for j := prev + 1; j < n; j++ {
			values[j] = values[prev]
		}
	}
}
