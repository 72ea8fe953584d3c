package models

import (
	"encoding/json"
	"testing"
)

func TestCopilotSettingsEnabledResourceProviders(t *testing.T) {
	s := NewCopilotSettings(true, false, "Microsoft.Web/sites,Microsoft.Compute/virtualMachines", "", "")

	if !s.IsCopilotEnabled("Microsoft.Web", "sites") {
		t.Fatalf("listed resource combination should be enabled")
	}
	if !s.IsCopilotEnabled("microsoft.web", "SITES") {
		t.Fatalf("resource matching must be case-insensitive")
	}
	if s.IsCopilotEnabled("Microsoft.Web", "serverFarms") {
		t.Fatalf("unlisted resource combination should be disabled")
	}
}

func TestCopilotSettingsEmptyListsAllowAll(t *testing.T) {
	s := NewCopilotSettings(true, false, "", "", "")
	if !s.IsCopilotEnabled("Anything.At/all", "whatever") {
		t.Fatalf("empty provider list should allow all when enabled")
	}
	if !s.IsUserAllowedAccess("someone@contoso.com", "Microsoft.Web", "sites") {
		t.Fatalf("empty alias list should allow all users")
	}

	disabled := NewCopilotSettings(false, false, "", "", "")
	if disabled.IsCopilotEnabled("Microsoft.Web", "sites") {
		t.Fatalf("disabled copilot must stay disabled regardless of lists")
	}
}

func TestCopilotSettingsUserAliases(t *testing.T) {
	s := NewCopilotSettings(true, false, "", "alice,bob@contoso.com", "")

	if !s.IsUserAllowedAccess("alice@microsoft.com", "Microsoft.Web", "sites") {
		t.Fatalf("alias should match regardless of email domain")
	}
	if !s.IsUserAllowedAccess("BOB", "Microsoft.Web", "sites") {
		t.Fatalf("alias matching must be case-insensitive")
	}
	if s.IsUserAllowedAccess("mallory", "Microsoft.Web", "sites") {
		t.Fatalf("unlisted alias should be denied")
	}
}

func TestCopilotSettingsFeedbackMap(t *testing.T) {
	s := NewCopilotSettings(true, true, "", "", "Microsoft.Web/sites:alice,bob")

	if !s.IsUserAllowedToSubmitFeedback("alice@contoso.com", "Microsoft.Web", "sites") {
		t.Fatalf("listed alias under listed key should submit feedback")
	}
	// A configured map with an unmatched resource key denies, unlike the
	// allow-all behavior of an empty map.
	if s.IsUserAllowedToSubmitFeedback("alice", "Microsoft.Compute", "virtualMachines") {
		t.Fatalf("unlisted resource key must deny when the map is non-empty")
	}
	if s.IsUserAllowedToSubmitFeedback("mallory", "Microsoft.Web", "sites") {
		t.Fatalf("unlisted alias must be denied")
	}

	open := NewCopilotSettings(true, true, "", "", "")
	if !open.IsUserAllowedToSubmitFeedback("anyone", "Microsoft.Web", "sites") {
		t.Fatalf("empty feedback map should allow all users")
	}

	noFeedback := NewCopilotSettings(true, false, "", "", "")
	if noFeedback.IsUserAllowedToSubmitFeedback("anyone", "Microsoft.Web", "sites") {
		t.Fatalf("feedbackEnabled=false must deny all submissions")
	}
}

func TestCopilotSettingsFeedbackRequiresIdentity(t *testing.T) {
	s := NewCopilotSettings(true, true, "", "", "")
	if s.IsUserAllowedToSubmitFeedback("", "Microsoft.Web", "sites") {
		t.Fatalf("empty user must be denied")
	}
	if s.IsUserAllowedToSubmitFeedback("alice", "", "sites") {
		t.Fatalf("empty provider must be denied")
	}
}

func TestCopilotsConfigurationFallbacks(t *testing.T) {
	c := &CopilotsConfiguration{
		Enabled: true,
		CopilotSettings: map[string]*CopilotSettings{
			"detectorcopilot": NewCopilotSettings(false, false, "", "", ""),
		},
	}

	if c.IsCopilotEnabled("DetectorCopilot", "Microsoft.Web", "sites") {
		t.Fatalf("configured identifier must use its own settings, not the global flag")
	}
	if !c.IsCopilotEnabled("unknowncopilot", "Microsoft.Web", "sites") {
		t.Fatalf("unconfigured identifier should fall back to the global flag for access")
	}
	if c.IsUserAllowedToSubmitFeedback("unknowncopilot", "alice", "Microsoft.Web", "sites") {
		t.Fatalf("unconfigured identifier must deny feedback submission")
	}
}

func TestCopilotSettingsUnmarshalJSON(t *testing.T) {
	raw := `{
		"enabled": true,
		"feedbackEnabled": true,
		"enabledResourceProviders": "Microsoft.Web/sites",
		"allowedUserAliases": "alice",
		"usersAllowedToSubmitFeedback": "Microsoft.Web/sites:alice|Microsoft.Web/serverFarms:bob"
	}`
	var s CopilotSettings
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !s.IsUserAllowedAccess("alice", "Microsoft.Web", "sites") {
		t.Fatalf("parsed settings should allow the configured alias")
	}
	if !s.IsUserAllowedToSubmitFeedback("bob", "Microsoft.Web", "serverFarms") {
		t.Fatalf("pipe-delimited feedback entries should all parse")
	}
	if s.IsUserAllowedAccess("alice", "Microsoft.Compute", "virtualMachines") {
		t.Fatalf("parsed provider list should still gate resources")
	}
}
