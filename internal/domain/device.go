package domain

import "strings"

type DeviceType string

const (
	DeviceTypeThermostat DeviceType = "thermostat"
	DeviceTypeVacuum     DeviceType = "vacuum"
	DeviceTypeOther      DeviceType = "other"
)

// SubTypeCK002 is the sub_type reported for CK-002 thermostats.
const SubTypeCK002 = "ck-002s"

// Device is a thing registered on the WeBack account, as returned by the
// device list call. Status is the last status payload the cloud reported and
// is kept opaque.
type Device struct {
	Name     string         `json:"thing_name"`
	Nickname string         `json:"thing_nickname"`
	SubType  string         `json:"sub_type"`
	Status   map[string]any `json:"thing_status"`
}

func (d Device) Type() DeviceType {
	return TypeForSubType(d.SubType)
}

// DisplayName prefers the user-chosen nickname over the thing name.
func (d Device) DisplayName() string {
	if strings.TrimSpace(d.Nickname) != "" {
		return d.Nickname
	}
	return d.Name
}

func TypeForSubType(subType string) DeviceType {
	s := strings.ToLower(subType)
	switch {
	case s == SubTypeCK002:
		return DeviceTypeThermostat
	case strings.Contains(s, "robot") || strings.Contains(s, "vacuum"):
		return DeviceTypeVacuum
	default:
		return DeviceTypeOther
	}
}

// StatusFromInfo extracts the status map from a thing info payload. The
// cloud nests it under thing_status; older firmwares return it flat.
func StatusFromInfo(info map[string]any) map[string]any {
	if info == nil {
		return nil
	}
	if status, ok := info["thing_status"].(map[string]any); ok {
		return status
	}
	return info
}

// ObjectID is the thing name as a Home Assistant object id.
func (d Device) ObjectID() string {
	var sb strings.Builder
	sb.WriteString("weback_")
	for _, r := range strings.ToLower(d.Name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String()
}
