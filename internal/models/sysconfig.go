package models

import "time"

// ConfigKeyMaintenanceMode toggles the maintenance banner on all clients.
const ConfigKeyMaintenanceMode = "maintenance_mode"

// ConfigKeyRegistrationEnabled toggles new instructor signups.
const ConfigKeyRegistrationEnabled = "registration_enabled"

// SystemConfig is one runtime-tunable configuration entry.
type SystemConfig struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	ValueType   string    `json:"value_type"`
	Description string    `json:"description,omitempty"`
	UpdatedBy   string    `json:"updated_by,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BoolValue interprets the config value as a boolean.
func (c SystemConfig) BoolValue() bool {
	switch c.Value {
	case "true", "True", "1":
		return true
	}
	return false
}
