package domain

// Keys under which settings are stored. The env overlay binds variables to
// the same names.
//
//nolint:gosec // G101: key names, not credentials.
const (
	KeyLLMProvider          = "llm.provider"
	KeyLLMModel             = "llm.model"
	KeyLLMBaseURL           = "llm.base_url"
	KeyLLMAPIKey            = "llm.api_key"
	KeyLLMRequestsPerMinute = "llm.requests_per_minute"
	KeyCheckpointBackend    = "checkpoint.backend"
	KeyCheckpointSQLitePath = "checkpoint.sqlite_path"
	KeyRedisHost            = "redis.host"
	KeyRedisPort            = "redis.port"
	KeyRedisDB              = "redis.db"
	KeyRedisPassword        = "redis.password"
)

// SettingKeys lists every stored key.
func SettingKeys() []string {
	return []string{
		KeyLLMProvider, KeyLLMModel, KeyLLMBaseURL, KeyLLMAPIKey, KeyLLMRequestsPerMinute,
		KeyCheckpointBackend, KeyCheckpointSQLitePath,
		KeyRedisHost, KeyRedisPort, KeyRedisDB, KeyRedisPassword,
	}
}
