package models

import (
	"encoding/json"
	"strings"
)

// CopilotsConfiguration is the two-level access policy tree, keyed by chat
// identifier. It is loaded once at startup and read-only for the process
// lifetime.
type CopilotsConfiguration struct {
	Enabled         bool                        `json:"enabled"`
	CopilotSettings map[string]*CopilotSettings `json:"copilotSettings"`
}

func (c *CopilotsConfiguration) settingsFor(chatIdentifier string) *CopilotSettings {
	chatIdentifier = strings.TrimSpace(chatIdentifier)
	for key, settings := range c.CopilotSettings {
		if strings.EqualFold(key, chatIdentifier) {
			return settings
		}
	}
	return nil
}

// IsCopilotEnabled reports whether the copilot behind chatIdentifier is open
// for the given resource combination. Unconfigured identifiers fall back to
// the global flag.
func (c *CopilotsConfiguration) IsCopilotEnabled(chatIdentifier, provider, resourceType string) bool {
	if s := c.settingsFor(chatIdentifier); s != nil {
		return s.IsCopilotEnabled(provider, resourceType)
	}
	return c.Enabled
}

// IsUserAllowedAccess applies the per-identifier user allow-list on top of
// IsCopilotEnabled. Unconfigured identifiers fall back to the global flag.
func (c *CopilotsConfiguration) IsUserAllowedAccess(chatIdentifier, userID, provider, resourceType string) bool {
	if s := c.settingsFor(chatIdentifier); s != nil {
		return s.IsUserAllowedAccess(userID, provider, resourceType)
	}
	return c.Enabled
}

// IsUserAllowedToSubmitFeedback is stricter than access: feedback submission
// for an unconfigured identifier is always denied.
func (c *CopilotsConfiguration) IsUserAllowedToSubmitFeedback(chatIdentifier, userID, provider, resourceType string) bool {
	if s := c.settingsFor(chatIdentifier); s != nil {
		return s.IsUserAllowedToSubmitFeedback(userID, provider, resourceType)
	}
	return false
}

// CopilotSettings governs a single chat identifier. The allow-lists arrive as
// delimited strings in configuration and are parsed once at load time:
//   - EnabledResourceProviders: "Microsoft.Web/sites,Microsoft.Compute/virtualMachines"
//   - AllowedUserAliases:       "alias1,alias2@contoso.com"
//   - UsersAllowedToSubmitFeedback: "Microsoft.Web/sites:alias1,alias2|Microsoft.Compute/virtualMachines:alias3"
//
// An empty list means "allow all" for that dimension, except the feedback map
// where a present-but-unmatched resource key denies.
type CopilotSettings struct {
	Enabled         bool
	FeedbackEnabled bool

	enabledResourceProviders     []string
	allowedUserAliases           []string
	usersAllowedToSubmitFeedback map[string][]string
}

type copilotSettingsJSON struct {
	Enabled                      bool   `json:"enabled"`
	FeedbackEnabled              bool   `json:"feedbackEnabled"`
	EnabledResourceProviders     string `json:"enabledResourceProviders"`
	AllowedUserAliases           string `json:"allowedUserAliases"`
	UsersAllowedToSubmitFeedback string `json:"usersAllowedToSubmitFeedback"`
}

func (s *CopilotSettings) UnmarshalJSON(data []byte) error {
	var raw copilotSettingsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = *NewCopilotSettings(raw.Enabled, raw.FeedbackEnabled, raw.EnabledResourceProviders, raw.AllowedUserAliases, raw.UsersAllowedToSubmitFeedback)
	return nil
}

// NewCopilotSettings parses the delimited configuration strings into the
// lookup structures used by the predicates.
func NewCopilotSettings(enabled, feedbackEnabled bool, enabledResourceProviders, allowedUserAliases, usersAllowedToSubmitFeedback string) *CopilotSettings {
	s := &CopilotSettings{
		Enabled:                      enabled,
		FeedbackEnabled:              feedbackEnabled,
		usersAllowedToSubmitFeedback: make(map[string][]string),
	}

	for _, rp := range strings.Split(enabledResourceProviders, ",") {
		if rp = strings.Trim(strings.TrimSpace(rp), "/"); rp != "" {
			s.enabledResourceProviders = append(s.enabledResourceProviders, rp)
		}
	}

	for _, alias := range strings.Split(allowedUserAliases, ",") {
		if alias = userAlias(alias); alias != "" {
			s.allowedUserAliases = append(s.allowedUserAliases, alias)
		}
	}

	for _, entry := range strings.Split(usersAllowedToSubmitFeedback, "|") {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 2)
		key := strings.Trim(strings.TrimSpace(parts[0]), "/")
		if key == "" {
			continue
		}
		var aliases []string
		if len(parts) > 1 {
			for _, alias := range strings.Split(parts[1], ",") {
				if alias = userAlias(alias); alias != "" {
					aliases = append(aliases, alias)
				}
			}
		}
		s.usersAllowedToSubmitFeedback[strings.ToLower(key)] = append(s.usersAllowedToSubmitFeedback[strings.ToLower(key)], aliases...)
	}

	return s
}

// userAlias extracts the portion of an email-like identifier before '@'.
func userAlias(userID string) string {
	return strings.TrimSpace(strings.SplitN(strings.TrimSpace(userID), "@", 2)[0])
}

func resourceKey(provider, resourceType string) string {
	return strings.Trim(strings.TrimSpace(provider)+"/"+strings.TrimSpace(resourceType), "/")
}

// IsCopilotEnabled reports whether the copilot is on for the resource
// combination. An empty resource-provider list allows all resource types when
// the copilot is enabled.
func (s *CopilotSettings) IsCopilotEnabled(provider, resourceType string) bool {
	if !s.Enabled || len(s.enabledResourceProviders) == 0 {
		return s.Enabled && len(s.enabledResourceProviders) == 0
	}

	key := resourceKey(provider, resourceType)
	for _, rp := range s.enabledResourceProviders {
		if strings.EqualFold(rp, key) {
			return true
		}
	}
	return false
}

// IsUserAllowedAccess applies the user allow-list; an empty list allows all
// users once the copilot is enabled for the resource combination.
func (s *CopilotSettings) IsUserAllowedAccess(userID, provider, resourceType string) bool {
	enabled := s.IsCopilotEnabled(provider, resourceType)
	if !enabled || len(s.allowedUserAliases) == 0 {
		return enabled && len(s.allowedUserAliases) == 0
	}

	alias := userAlias(userID)
	for _, allowed := range s.allowedUserAliases {
		if strings.EqualFold(allowed, alias) {
			return true
		}
	}
	return false
}

// IsUserAllowedToSubmitFeedback requires FeedbackEnabled. With no per-resource
// allow-lists configured, feedback is open to everyone; once any list exists,
// each resource combination must be explicitly opted in and an unlisted key
// denies.
func (s *CopilotSettings) IsUserAllowedToSubmitFeedback(userID, provider, resourceType string) bool {
	if !s.FeedbackEnabled || strings.TrimSpace(userID) == "" || strings.TrimSpace(provider) == "" || strings.TrimSpace(resourceType) == "" {
		return false
	}

	if len(s.usersAllowedToSubmitFeedback) == 0 {
		return true
	}

	aliases, ok := s.usersAllowedToSubmitFeedback[strings.ToLower(resourceKey(provider, resourceType))]
	if !ok {
		return false
	}

	alias := userAlias(userID)
	for _, allowed := range aliases {
		if strings.EqualFold(allowed, alias) {
			return true
		}
	}
	return false
}
