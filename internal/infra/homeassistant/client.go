package homeassistant

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"weback-home/internal/domain"
	"weback-home/internal/infra"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	retry      infra.RetryConfig
	logger     *slog.Logger
}

func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	// Remove trailing slash if present
	baseURL = strings.TrimSuffix(baseURL, "/")

	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		retry:      infra.DefaultRetryConfig(),
		logger:     logger,
	}
}

// Entity represents a Home Assistant entity state
type Entity struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastChanged string         `json:"last_changed,omitempty"`
}

func (c *Client) Name() string {
	return "homeassistant"
}

// Publish mirrors a device as a state entity: climate.<id> for thermostats,
// sensor.<id> for everything else.
func (c *Client) Publish(ctx context.Context, d domain.Device) error {
	entity, err := EntityForDevice(d)
	if err != nil {
		c.logger.Error("unreadable thermostat status", "device", d.Name, "error", err)
		entity = genericEntity(d)
	}
	return c.SetState(ctx, entity)
}

func (c *Client) SetState(ctx context.Context, e Entity) error {
	body, err := json.Marshal(map[string]any{
		"state":      e.State,
		"attributes": e.Attributes,
	})
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	if _, err := c.doRequest(ctx, http.MethodPost, "/api/states/"+e.EntityID, body); err != nil {
		return fmt.Errorf("setting state of %s: %w", e.EntityID, err)
	}
	return nil
}

// EntityForDevice maps a device to its Home Assistant entity. Thermostats
// whose status cannot be read return an error.
func EntityForDevice(d domain.Device) (Entity, error) {
	if d.Type() != domain.DeviceTypeThermostat {
		return genericEntity(d), nil
	}

	t, err := domain.ThermostatFromDevice(d)
	if err != nil {
		return Entity{}, err
	}

	return Entity{
		EntityID: "climate." + d.ObjectID(),
		State:    string(t.Mode),
		Attributes: map[string]any{
			"friendly_name":       t.Nickname,
			"hvac_modes":          []string{string(domain.HVACModeOff), string(domain.HVACModeHeat), string(domain.HVACModeAuto)},
			"hvac_action":         string(t.Action),
			"current_temperature": t.CurrentTemperature,
			"temperature":         t.TargetTemperature,
			"unit_of_measurement": "°C",
			"thing_name":          d.Name,
			"sub_type":            d.SubType,
		},
	}, nil
}

func genericEntity(d domain.Device) Entity {
	state := "unknown"
	if s, ok := d.Status["working_status"].(string); ok && s != "" {
		state = s
	}

	attrs := map[string]any{
		"friendly_name": d.DisplayName(),
		"thing_name":    d.Name,
		"sub_type":      d.SubType,
	}
	for k, v := range d.Status {
		attrs[k] = v
	}

	return Entity{
		EntityID:   "sensor." + d.ObjectID(),
		State:      state,
		Attributes: attrs,
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var respBody []byte

	retryErr := infra.WithRetry(ctx, c.retry, func() error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = strings.NewReader(string(body))
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		if resp.StatusCode == http.StatusUnauthorized {
			return infra.Permanent(fmt.Errorf("unauthorized: check your Home Assistant token"))
		}

		if infra.IsRetryableHTTPStatus(resp.StatusCode) {
			return fmt.Errorf("home assistant API error %d (retryable): %s", resp.StatusCode, string(respBody))
		}

		if resp.StatusCode >= 400 {
			return infra.Permanent(fmt.Errorf("home assistant API error %d: %s", resp.StatusCode, string(respBody)))
		}

		return nil
	})

	if retryErr != nil {
		return nil, retryErr
	}

	return respBody, nil
}
