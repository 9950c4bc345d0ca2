package credstore

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-ini/ini"
)

const (
	Section    = "weback_token"
	TimeLayout = "2006-01-02 15:04:05.000000"
)

const (
	keyUser       = "user"
	keyJWTToken   = "jwt_token"
	keyTokenExp   = "token_exp"
	keyAPIURL     = "api_url"
	keyWSSURL     = "wss_url"
	keyRegionName = "region_name"
)

var requiredKeys = []string{keyUser, keyJWTToken, keyTokenExp, keyAPIURL, keyWSSURL, keyRegionName}

var ErrIncomplete = errors.New("credential record incomplete")

// Record is the cached session of the last successful login.
type Record struct {
	User       string
	JWTToken   string
	TokenExp   time.Time
	APIURL     string
	WSSURL     string
	RegionName string
}

// Encode renders the record as an INI document with a single section.
// token_exp is written in local time.
func Encode(r Record) ([]byte, error) {
	f := ini.Empty()
	sec, err := f.NewSection(Section)
	if err != nil {
		return nil, fmt.Errorf("creating section: %w", err)
	}

	values := [][2]string{
		{keyUser, r.User},
		{keyJWTToken, r.JWTToken},
		{keyTokenExp, r.TokenExp.In(time.Local).Format(TimeLayout)},
		{keyAPIURL, r.APIURL},
		{keyWSSURL, r.WSSURL},
		{keyRegionName, r.RegionName},
	}
	for _, kv := range values {
		if _, err := sec.NewKey(kv[0], kv[1]); err != nil {
			return nil, fmt.Errorf("writing %s: %w", kv[0], err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encoding credentials: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses an INI document produced by Encode. Every key must be
// present and token_exp must parse.
func Decode(data []byte) (Record, error) {
	f, err := ini.Load(data)
	if err != nil {
		return Record{}, fmt.Errorf("parsing credentials: %w", err)
	}

	sec, err := f.GetSection(Section)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrIncomplete, err)
	}

	for _, key := range requiredKeys {
		if !sec.HasKey(key) {
			return Record{}, fmt.Errorf("%w: missing %s", ErrIncomplete, key)
		}
	}

	exp, err := time.ParseInLocation("2006-01-02 15:04:05", strings.TrimSpace(sec.Key(keyTokenExp).String()), time.Local)
	if err != nil {
		return Record{}, fmt.Errorf("parsing token_exp: %w", err)
	}

	return Record{
		User:       sec.Key(keyUser).String(),
		JWTToken:   sec.Key(keyJWTToken).String(),
		TokenExp:   exp,
		APIURL:     sec.Key(keyAPIURL).String(),
		WSSURL:     sec.Key(keyWSSURL).String(),
		RegionName: sec.Key(keyRegionName).String(),
	}, nil
}
