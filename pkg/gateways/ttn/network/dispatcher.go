package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/edgesim/ttn-emulator-sdk-golang/pkg/entities"
	"github.com/edgesim/ttn-emulator-sdk-golang/pkg/gateways/ttn"
)

const simulateEndpointFormat = "%s/api/v3/applications/%s/devices/%s/up/simulate"

const (
	defaultRequestTimeout = 10 * time.Second
	defaultMaxRetries     = 2
)

// SimulatorConfig configures the HTTP transport towards the network
// server's per-device simulate endpoint.
type SimulatorConfig struct {
	BaseURL    string
	AppID      string
	APIKey     string
	Timeout    time.Duration
	MaxRetries uint64
}

func BaseURLForRegion(region string) string {
	return fmt.Sprintf("https://%s.cloud.thethings.network", region)
}

// Simulator implements ttn.Dispatcher by posting formatted uplinks to the
// network server. Transient failures (network errors, 5xx, 429) are
// retried with bounded exponential backoff; rejections are final.
type Simulator struct {
	conf   SimulatorConfig
	client *http.Client
	logger *logrus.Entry
}

func NewSimulator(conf SimulatorConfig, logger *logrus.Entry) *Simulator {
	if conf.Timeout <= 0 {
		conf.Timeout = defaultRequestTimeout
	}
	if conf.MaxRetries == 0 {
		conf.MaxRetries = defaultMaxRetries
	}
	return &Simulator{
		conf:   conf,
		client: &http.Client{Timeout: conf.Timeout},
		logger: logger,
	}
}

func (s *Simulator) Dispatch(ctx context.Context, device entities.Device, reading entities.SensorReading, fCnt uint32) (ttn.DispatchResult, error) {
	options := ttn.DefaultUplinkOptions()
	options.FCnt = fCnt
	message := ttn.FormatUplink(device.ID, device.DevEUI, s.conf.AppID, reading, &options)

	body, err := json.Marshal(message)
	if err != nil {
		return ttn.DispatchResult{}, errors.Wrap(err, "encode uplink")
	}

	endpoint := fmt.Sprintf(simulateEndpointFormat, s.conf.BaseURL, s.conf.AppID, device.ID)

	var result ttn.DispatchResult
	operation := func() error {
		var postErr error
		result, postErr = s.post(ctx, endpoint, body)
		return postErr
	}

	retryPolicy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.conf.MaxRetries), ctx)
	if err := backoff.Retry(operation, retryPolicy); err != nil {
		s.logger.WithField("device", device.ID).Errorln(err)
		return ttn.DispatchResult{Success: false, Message: err.Error()}, err
	}

	return result, nil
}

func (s *Simulator) post(ctx context.Context, endpoint string, body []byte) (ttn.DispatchResult, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return ttn.DispatchResult{}, backoff.Permanent(err)
	}
	request.Header.Set("Authorization", "Bearer "+s.conf.APIKey)
	request.Header.Set("Content-Type", "application/json")

	response, err := s.client.Do(request)
	if err != nil {
		return ttn.DispatchResult{}, err
	}
	defer response.Body.Close()

	if response.StatusCode >= http.StatusOK && response.StatusCode < http.StatusMultipleChoices {
		return ttn.DispatchResult{Success: true, Message: "uplink simulated"}, nil
	}

	apiErr := decodeAPIError(response.Body, response.StatusCode)
	if response.StatusCode >= http.StatusInternalServerError || response.StatusCode == http.StatusTooManyRequests {
		return ttn.DispatchResult{}, apiErr
	}
	return ttn.DispatchResult{}, backoff.Permanent(apiErr)
}

func decodeAPIError(body io.Reader, statusCode int) error {
	var apiError APIError
	if err := json.NewDecoder(body).Decode(&apiError); err == nil && apiError.Message != "" {
		return errors.Errorf("network server rejected uplink: %s", apiError.Message)
	}
	return errors.Errorf("network server returned status %d", statusCode)
}
