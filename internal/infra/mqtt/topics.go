package mqtt

import "path"

// Topics builds topic names under the state and discovery prefixes.
type Topics struct {
	Prefix          string
	DiscoveryPrefix string
}

func (t Topics) Availability() string {
	return path.Join(t.Prefix, "status")
}

func (t Topics) State(thingName string) string {
	return path.Join(t.Prefix, thingName, "state")
}

func (t Topics) ClimateConfig(objectID string) string {
	return path.Join(t.DiscoveryPrefix, "climate", objectID, "config")
}
