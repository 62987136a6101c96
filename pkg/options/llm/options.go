// Package llm provides LLM provider configuration options.
package llm

import (
	"fmt"
	"time"

	"github.com/kart-io/provenance/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*ProviderOptions)(nil)

// ProviderOptions LLM 供应商连接配置，embedding 与 chat 共用同一结构
type ProviderOptions struct {
	// Provider 供应商名称：ollama、openai、deepseek
	Provider string `json:"provider" mapstructure:"provider"`
	// BaseURL API 基础地址
	BaseURL string `json:"base-url" mapstructure:"base-url"`
	// APIKey 托管供应商的密钥，ollama 不需要
	APIKey string `json:"api-key" mapstructure:"api-key"`
	// Model 模型名称
	Model string `json:"model" mapstructure:"model"`
	// Timeout 单次请求超时
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
	// MaxRetries 最大重试次数
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`
	// Organization OpenAI 组织 ID，可选
	Organization string `json:"organization" mapstructure:"organization"`
}

// NewProviderOptions 返回默认供应商配置，本地 ollama
func NewProviderOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider:   "ollama",
		BaseURL:    "http://localhost:11434",
		Timeout:    120 * time.Second,
		MaxRetries: 3,
	}
}

// NewEmbeddingOptions 返回默认 embedding 配置
func NewEmbeddingOptions() *ProviderOptions {
	opts := NewProviderOptions()
	opts.Model = "nomic-embed-text"
	return opts
}

// NewChatOptions 返回默认 chat 配置
func NewChatOptions() *ProviderOptions {
	opts := NewProviderOptions()
	opts.Model = "deepseek-r1:7b"
	return opts
}

// ToConfigMap 转换为供应商工厂使用的配置 map
func (o *ProviderOptions) ToConfigMap() map[string]any {
	return map[string]any{
		"base_url":     o.BaseURL,
		"api_key":      o.APIKey,
		"embed_model":  o.Model,
		"chat_model":   o.Model,
		"timeout":      o.Timeout,
		"max_retries":  o.MaxRetries,
		"organization": o.Organization,
	}
}

// AddFlags 注册 llm.* 命令行参数
func (o *ProviderOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...) + "llm."
	fs.StringVar(&o.Provider, prefix+"provider", o.Provider, "LLM provider (ollama, openai, deepseek).")
	fs.StringVar(&o.BaseURL, prefix+"base-url", o.BaseURL, "LLM API base URL.")
	fs.StringVar(&o.APIKey, prefix+"api-key", o.APIKey, "LLM API key.")
	fs.StringVar(&o.Model, prefix+"model", o.Model, "LLM model name.")
	fs.DurationVar(&o.Timeout, prefix+"timeout", o.Timeout, "LLM request timeout.")
	fs.IntVar(&o.MaxRetries, prefix+"max-retries", o.MaxRetries, "LLM maximum number of retries.")
	fs.StringVar(&o.Organization, prefix+"organization", o.Organization, "LLM organization ID (optional).")
}

// Validate 校验供应商配置
func (o *ProviderOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Provider == "" {
		errs = append(errs, fmt.Errorf("provider is required"))
	}
	if o.BaseURL == "" {
		errs = append(errs, fmt.Errorf("base-url is required"))
	}
	if o.Model == "" {
		errs = append(errs, fmt.Errorf("model is required"))
	}
	if o.Provider == "openai" && o.APIKey == "" {
		errs = append(errs, fmt.Errorf("api-key is required for openai provider"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive"))
	}
	return errs
}

// Complete 补全重试次数缺省值
func (o *ProviderOptions) Complete() error {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	return nil
}
