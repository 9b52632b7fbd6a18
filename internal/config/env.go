package config

import (
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Env holds credentials and endpoints read from the process environment.
// Every value is optional at load time: each consumer checks for what it
// needs and reports its own error when a credential is missing.
type Env struct {
	OpenAIAPIKey           string
	OpenAIBaseURL          string
	AnthropicAPIKey        string
	GeminiAPIKey           string
	DatabaseURL            string
	AzureStorageAccount    string
	AzureStorageConnection string
}

// LoadEnv reads credentials from the environment, loading a .env file
// from the working directory first if one exists. Each value honors an
// APEX_ prefixed variable over the conventional name, so a shell that
// already exports OPENAI_API_KEY for another tool can still point this
// one elsewhere.
func LoadEnv() Env {
	_ = godotenv.Load()

	v := viper.New()
	bind := func(key string, names ...string) {
		_ = v.BindEnv(append([]string{key}, names...)...)
	}
	bind("openai.api_key", "APEX_OPENAI_API_KEY", "OPENAI_API_KEY")
	bind("openai.base_url", "APEX_OPENAI_BASE_URL", "OPENAI_BASE_URL")
	bind("anthropic.api_key", "APEX_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	bind("gemini.api_key", "APEX_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY")
	bind("database.url", "APEX_DATABASE_URL", "DATABASE_URL")
	bind("azure.storage_account", "APEX_AZURE_STORAGE_ACCOUNT", "AZURE_STORAGE_ACCOUNT")
	bind("azure.storage_connection", "APEX_AZURE_STORAGE_CONNECTION_STRING", "AZURE_STORAGE_CONNECTION_STRING")

	return Env{
		OpenAIAPIKey:           v.GetString("openai.api_key"),
		OpenAIBaseURL:          v.GetString("openai.base_url"),
		AnthropicAPIKey:        v.GetString("anthropic.api_key"),
		GeminiAPIKey:           v.GetString("gemini.api_key"),
		DatabaseURL:            v.GetString("database.url"),
		AzureStorageAccount:    v.GetString("azure.storage_account"),
		AzureStorageConnection: v.GetString("azure.storage_connection"),
	}
}
