package airQuality

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/vibe-labs/vibe-rewards/internal/metrics"
	"github.com/vibe-labs/vibe-rewards/internal/metrics/metricsTypes"
	"github.com/vibe-labs/vibe-rewards/pkg/clients/primus"
	"go.uber.org/zap"
)

const (
	DefaultLocation = "Shanghai"

	// fallback readings are drawn uniformly from [1, maxFallbackAqi]
	maxFallbackAqi = 150
	pm25ToAqi      = 2.1
)

type AirQualityReading struct {
	Aqi       int    `json:"aqi"`
	Timestamp int64  `json:"timestamp"`
	Location  string `json:"location"`
	// Degraded is set when Aqi was produced by the random fallback rather than
	// read from a verified attestation.
	Degraded bool `json:"degraded"`
}

// AttestationClient is the attestation service boundary.
type AttestationClient interface {
	Init(ctx context.Context) error
	GenerateRequestParams(templateId string, userAddress string) *primus.AttestationRequest
	Sign(requestStr string) (*primus.SignedRequest, error)
	StartAttestation(ctx context.Context, signed *primus.SignedRequest) (*primus.Attestation, error)
	VerifyAttestation(att *primus.Attestation) (bool, error)
}

type AttestationInitError struct {
	Err error
}

func (e *AttestationInitError) Error() string {
	return fmt.Sprintf("attestation initialization failed: %v", e.Err)
}

func (e *AttestationInitError) Unwrap() error {
	return e.Err
}

type ServiceConfig struct {
	TemplateId string
	Location   string
}

type Service struct {
	client  AttestationClient
	config  *ServiceConfig
	logger  *zap.Logger
	metrics *metrics.MetricsSink

	now     func() time.Time
	randInt func(n int) int
}

func NewService(client AttestationClient, cfg *ServiceConfig, ms *metrics.MetricsSink, l *zap.Logger) *Service {
	if cfg.Location == "" {
		cfg.Location = DefaultLocation
	}
	return &Service{
		client:  client,
		config:  cfg,
		logger:  l,
		metrics: ms,
		now:     time.Now,
		randInt: rand.IntN,
	}
}

// SetRandSource replaces the generator used for fallback readings. randInt must
// return a value in [0, n).
func (s *Service) SetRandSource(randInt func(n int) int) {
	s.randInt = randInt
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) Initialize(ctx context.Context) error {
	if err := s.client.Init(ctx); err != nil {
		s.logger.Sugar().Errorw("Failed to initialize attestation client", zap.Error(err))
		return &AttestationInitError{Err: err}
	}
	return nil
}

// FetchReading never fails. Any error in the attestation flow, including a proof
// that does not verify, yields a random reading flagged as degraded.
func (s *Service) FetchReading(ctx context.Context, address string) *AirQualityReading {
	reading, err := s.fetchAttestedReading(ctx, address)
	if err != nil {
		s.logger.Sugar().Warnw("Falling back to random air quality reading",
			zap.String("address", address),
			zap.Error(err),
		)
		reading = &AirQualityReading{
			Aqi:       s.randomAqi(),
			Timestamp: s.now().UnixMilli(),
			Location:  s.config.Location,
			Degraded:  true,
		}
	}

	_ = s.metrics.Incr(metricsTypes.Metric_Incr_AttestationReading, []metricsTypes.MetricsLabel{
		{Name: "degraded", Value: strconv.FormatBool(reading.Degraded)},
	}, 1)
	return reading
}

func (s *Service) fetchAttestedReading(ctx context.Context, address string) (*AirQualityReading, error) {
	request := s.client.GenerateRequestParams(s.config.TemplateId, address)
	request.SetAttMode(primus.AttMode{AlgorithmType: primus.AttMode_ProxyTls})

	requestStr, err := request.ToJsonString()
	if err != nil {
		return nil, errors.Wrap(err, "failed to serialize attestation request")
	}
	signed, err := s.client.Sign(requestStr)
	if err != nil {
		return nil, err
	}
	attestation, err := s.client.StartAttestation(ctx, signed)
	if err != nil {
		return nil, err
	}
	verified, err := s.client.VerifyAttestation(attestation)
	if err != nil {
		return nil, errors.Wrap(err, "failed to verify attestation")
	}
	if !verified {
		return nil, errors.New("attestation verification failed")
	}

	aqi, ok := extractAqi(attestation.Data)
	reading := &AirQualityReading{
		Aqi:       aqi,
		Timestamp: attestation.Timestamp,
		Location:  s.config.Location,
	}
	if !ok {
		s.logger.Sugar().Warnw("Attested payload carries no air quality field, using random value",
			zap.String("address", address),
		)
		reading.Aqi = s.randomAqi()
		reading.Degraded = true
	}
	if reading.Timestamp == 0 {
		reading.Timestamp = s.now().UnixMilli()
	}
	return reading, nil
}

func (s *Service) randomAqi() int {
	return s.randInt(maxFallbackAqi) + 1
}

// extractAqi looks up aqi, AQI, air_quality_index and finally a pm25-derived
// estimate. Zero, empty and unparseable values count as absent.
func extractAqi(data string) (int, bool) {
	if data == "" {
		return 0, false
	}
	payload := map[string]interface{}{}
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return 0, false
	}
	for _, field := range []string{"aqi", "AQI", "air_quality_index"} {
		if v, ok := leadingInt(payload[field]); ok {
			return v, true
		}
	}
	if pm25, ok := leadingInt(payload["pm25"]); ok {
		return int(math.Floor(float64(pm25) * pm25ToAqi)), true
	}
	return 0, false
}

// leadingInt reads the integer prefix of a number or numeric string. Values
// outside the int32 range count as absent.
func leadingInt(v interface{}) (int, bool) {
	var n int
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || t > math.MaxInt32 || t < math.MinInt32 {
			return 0, false
		}
		n = int(t)
	case string:
		s := strings.TrimSpace(t)
		end := 0
		for end < len(s) && (s[end] >= '0' && s[end] <= '9' || end == 0 && (s[end] == '-' || s[end] == '+')) {
			end++
		}
		parsed, err := strconv.ParseInt(s[:end], 10, 32)
		if err != nil {
			return 0, false
		}
		n = int(parsed)
	default:
		return 0, false
	}
	if n == 0 {
		return 0, false
	}
	return n, true
}
