package config

import (
	"encoding/json"
	"fmt"
	"os"

	"applens-copilot/internal/models"
)

// Copilots holds the per-copilot access configuration loaded at startup.
var Copilots *models.CopilotsConfiguration

// LoadCopilotsConfiguration reads the copilot settings file named by
// COPILOTS_CONFIG_PATH. A missing file leaves every copilot governed by the
// global feature flag alone.
func LoadCopilotsConfiguration() error {
	Copilots = &models.CopilotsConfiguration{Enabled: Env.ChatFeatureEnabled}

	data, err := os.ReadFile(Env.CopilotsConfigPath)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("Warning: copilots configuration %s not found, using global flag only\n", Env.CopilotsConfigPath)
			return nil
		}
		return fmt.Errorf("failed to read copilots configuration: %w", err)
	}

	if err := json.Unmarshal(data, Copilots); err != nil {
		return fmt.Errorf("failed to parse copilots configuration: %w", err)
	}
	Copilots.Enabled = Copilots.Enabled && Env.ChatFeatureEnabled
	return nil
}
