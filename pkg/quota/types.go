package quota

// ProviderType says who supplies the credentials for a provider binding.
type ProviderType string

const (
	// ProviderTypeSystem uses platform credentials and is charged against quota.
	ProviderTypeSystem ProviderType = "system"
	// ProviderTypeCustom uses tenant-supplied credentials and is never charged.
	ProviderTypeCustom ProviderType = "custom"
)

// Valid reports whether t is a known provider type.
func (t ProviderType) Valid() bool {
	return t == ProviderTypeSystem || t == ProviderTypeCustom
}

// QuotaUnit is the metric a quota is measured in.
type QuotaUnit string

const (
	// QuotaUnitTokens charges prompt plus completion tokens.
	QuotaUnitTokens QuotaUnit = "tokens"
	// QuotaUnitTimes charges one unit per call.
	QuotaUnitTimes QuotaUnit = "times"
	// QuotaUnitCount is an alias of QuotaUnitTimes.
	QuotaUnitCount QuotaUnit = "count"
)

// Valid reports whether u is a known quota unit.
func (u QuotaUnit) Valid() bool {
	switch u {
	case QuotaUnitTokens, QuotaUnitTimes, QuotaUnitCount:
		return true
	}
	return false
}

// QuotaType names a quota allocation, such as a trial or paid tier.
type QuotaType string

const (
	QuotaTypeTrial QuotaType = "trial"
	QuotaTypePaid  QuotaType = "paid"
	QuotaTypeFree  QuotaType = "free"
)

// QuotaConfiguration describes one allocation a system provider offers.
type QuotaConfiguration struct {
	QuotaType  QuotaType `yaml:"quota_type" json:"quota_type"`
	QuotaUnit  QuotaUnit `yaml:"quota_unit" json:"quota_unit"`
	QuotaLimit int64     `yaml:"quota_limit" json:"quota_limit"`
}

// SystemConfiguration holds the quota allocations of a system-managed
// provider and which one is currently active.
type SystemConfiguration struct {
	CurrentQuotaType    QuotaType            `yaml:"current_quota_type" json:"current_quota_type"`
	QuotaConfigurations []QuotaConfiguration `yaml:"quota_configurations" json:"quota_configurations"`
}

// Lookup returns the configuration for the given quota type.
func (s SystemConfiguration) Lookup(qt QuotaType) (QuotaConfiguration, bool) {
	for _, qc := range s.QuotaConfigurations {
		if qc.QuotaType == qt {
			return qc, true
		}
	}
	return QuotaConfiguration{}, false
}

// ProviderConfiguration is a tenant's binding to one provider.
type ProviderConfiguration struct {
	UsingProviderType   ProviderType        `yaml:"using_provider_type" json:"using_provider_type"`
	SystemConfiguration SystemConfiguration `yaml:"system_configuration" json:"system_configuration"`
}

// ModelConfig identifies the provider and model that produced a message.
type ModelConfig struct {
	Provider      string
	Model         string
	Configuration ProviderConfiguration
}

// GenerationContext carries what the handler needs to know about the
// request that produced a message.
type GenerationContext struct {
	TenantID string
	Model    ModelConfig
}

// Message is the token accounting of a created assistant message.
type Message struct {
	ID            string
	MessageTokens int
	PromptTokens  int
}

// Used returns the amount charged for msg under unit.
func Used(unit QuotaUnit, msg *Message) int64 {
	if unit == QuotaUnitTokens {
		return int64(msg.MessageTokens) + int64(msg.PromptTokens)
	}
	return 1
}
