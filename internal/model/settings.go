package model

// ProviderSettings is the runtime provider selection persisted next to the banks.
type ProviderSettings struct {
	Active string            `json:"active"`
	Keys   map[string]string `json:"keys"`
}

func (s ProviderSettings) Key(provider string) string {
	if s.Keys == nil {
		return ""
	}
	return s.Keys[provider]
}
