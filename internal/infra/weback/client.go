package weback

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"weback-home/config"
	"weback-home/internal/domain"
)

const (
	optLogin        = "login"
	optThingList    = "user_thing_list_get"
	optThingInfo    = "user_thing_info_get"
	headerToken     = "Token"
	headerRegion    = "Region"
	callingCodePfx  = "00"
	fieldThingList  = "thing_list"
	fieldSubType    = "sub_type"
	fieldThingName  = "thing_name"
	fieldJWTToken   = "jwt_token"
	fieldRegionName = "region_name"
	fieldWSSURL     = "wss_url"
	fieldAPIURL     = "api_url"
	fieldExpiredIn  = "expired_time"
)

// Client is the typed surface over the WeBack cloud. Every authenticated
// operation goes through Call, which logs in again when the session is
// about to lapse.
type Client struct {
	cfg       config.WeBackConfig
	transport *Transport
	sessions  *SessionManager
	logger    *slog.Logger
}

func NewClient(cfg config.WeBackConfig, store CredentialStore, logger *slog.Logger) *Client {
	return NewClientWithTransport(cfg, NewTransport(cfg.Backoff(), logger), store, logger)
}

func NewClientWithTransport(cfg config.WeBackConfig, transport *Transport, store CredentialStore, logger *slog.Logger) *Client {
	cfg = withDefaults(cfg)
	c := &Client{
		cfg:       cfg,
		transport: transport,
		logger:    logger,
	}
	c.sessions = NewSessionManager(cfg.Username, store, c.authenticate, logger)
	return c
}

func (c *Client) WithClock(now func() time.Time) *Client {
	c.sessions.WithClock(now)
	return c
}

func (c *Client) Login(ctx context.Context) error {
	_, err := c.sessions.EnsureSession(ctx)
	return err
}

// Session returns the active session, if any, without network access.
func (c *Client) Session() (Session, bool) {
	return c.sessions.Current()
}

func (c *Client) ListDevices(ctx context.Context) ([]domain.Device, error) {
	env, err := c.call(ctx, optThingList, nil)
	if err != nil {
		return nil, err
	}

	raw, ok := env.Data()[fieldThingList]
	if !ok {
		return nil, &ProtocolError{Opt: optThingList, Envelope: env}
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encoding thing list: %w", err)
	}

	var devices []domain.Device
	if err := json.Unmarshal(encoded, &devices); err != nil {
		return nil, fmt.Errorf("parsing thing list: %w", err)
	}

	return devices, nil
}

func (c *Client) DeviceInfo(ctx context.Context, subType, thingName string) (map[string]any, error) {
	return c.Call(ctx, optThingInfo, map[string]any{
		fieldSubType:   subType,
		fieldThingName: thingName,
	})
}

// Call posts fields plus opt to the session's API URL and returns the
// envelope data. A non-success envelope is a *ProtocolError.
func (c *Client) Call(ctx context.Context, opt string, fields map[string]any) (map[string]any, error) {
	env, err := c.call(ctx, opt, fields)
	if err != nil {
		return nil, err
	}
	return env.Data(), nil
}

func (c *Client) call(ctx context.Context, opt string, fields map[string]any) (Envelope, error) {
	session, err := c.sessions.EnsureSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSession, err)
	}

	payload := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		payload[k] = v
	}
	payload["opt"] = opt

	env, err := c.transport.Post(ctx, session.APIURL, payload, map[string]string{
		headerToken:  session.Token,
		headerRegion: session.Region,
	})
	if err != nil {
		return nil, err
	}

	if env.Msg() != msgSuccess {
		protocolErrors.WithLabelValues(opt).Inc()
		c.logger.Warn("weback call rejected", "opt", opt, "msg", env.Msg())
		return nil, &ProtocolError{Opt: opt, Envelope: env}
	}

	return env, nil
}

func (c *Client) authenticate(ctx context.Context) (Grant, error) {
	payload := map[string]any{
		"payload": map[string]any{
			"opt": optLogin,
			"pwd": passwordDigest(c.cfg.Password),
		},
		"header": map[string]any{
			"language":     c.cfg.Language,
			"app_name":     c.cfg.Application,
			"calling_code": callingCodePfx + c.cfg.Region,
			"api_version":  c.cfg.APIVersion,
			"account":      c.cfg.Username,
			"client_id":    c.cfg.ClientID,
		},
	}

	env, err := c.transport.Post(ctx, c.cfg.AuthURL, payload, nil)
	if err != nil {
		return Grant{}, fmt.Errorf("login request: %w", err)
	}

	if msg := env.Msg(); msg != msgSuccess {
		authErr := authErrorFor(msg)
		c.logger.Error("weback login rejected", "reason", authErr.Reason, "msg", msg)
		return Grant{}, authErr
	}

	data := env.Data()
	lifetime, ok := secondsField(data, fieldExpiredIn)
	grant := Grant{
		Token:    stringField(data, fieldJWTToken),
		Region:   stringField(data, fieldRegionName),
		APIURL:   stringField(data, fieldAPIURL),
		WSSURL:   stringField(data, fieldWSSURL),
		Lifetime: lifetime,
	}
	if !ok || grant.Token == "" || grant.APIURL == "" {
		return Grant{}, &ProtocolError{Opt: optLogin, Envelope: env}
	}

	return grant, nil
}

// passwordDigest is the hex MD5 the vendor expects in place of the
// password. It is part of the wire protocol.
func passwordDigest(password string) string {
	sum := md5.Sum([]byte(password))
	return hex.EncodeToString(sum[:])
}

func withDefaults(cfg config.WeBackConfig) config.WeBackConfig {
	if cfg.Language == "" {
		cfg.Language = config.DefaultLanguage
	}
	if cfg.Application == "" {
		cfg.Application = config.DefaultApplication
	}
	if cfg.ClientID == "" {
		cfg.ClientID = config.DefaultClientID
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = config.DefaultAPIVersion
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = config.DefaultAuthURL
	}
	return cfg
}
