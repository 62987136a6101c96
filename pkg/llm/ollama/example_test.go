package ollama_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/kart-io/provenance/pkg/llm"
	_ "github.com/kart-io/provenance/pkg/llm/ollama"
)

// liveProvider 创建连接真实 Ollama 服务的供应商，未配置环境变量时返回 nil
func liveProvider(model map[string]any) llm.Provider {
	baseURL := os.Getenv("OLLAMA_BASE_URL")
	if baseURL == "" {
		return nil
	}

	config := map[string]any{"base_url": baseURL}
	for k, v := range model {
		config[k] = v
	}

	provider, err := llm.NewProvider("ollama", config)
	if err != nil {
		log.Fatal(err)
	}
	return provider
}

// 通过注册表按名称创建 Ollama 供应商
func ExampleNewProvider_basic() {
	provider, err := llm.NewProvider("ollama", map[string]any{
		"base_url":    "http://localhost:11434",
		"chat_model":  "llama3",
		"embed_model": "nomic-embed-text",
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Ollama 供应商名称:", provider.Name())
	// Output: Ollama 供应商名称: ollama
}

// 多轮对话，需要本地运行的 Ollama 服务
func ExampleProvider_Chat() {
	provider := liveProvider(map[string]any{"chat_model": "llama3"})
	if provider == nil {
		fmt.Println("跳过示例：需要设置 OLLAMA_BASE_URL 环境变量")
		return
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: "你是一个友好的助手"},
		{Role: llm.RoleUser, Content: "你好，请介绍一下 Ollama"},
	}

	response, err := provider.Chat(context.Background(), messages)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("Response:", response)
}

// 批量文本向量嵌入
func ExampleProvider_Embed() {
	provider := liveProvider(map[string]any{"embed_model": "nomic-embed-text"})
	if provider == nil {
		fmt.Println("跳过示例：需要设置 OLLAMA_BASE_URL 环境变量")
		return
	}

	texts := []string{
		"人工智能是未来的发展方向",
		"Ollama 是本地部署的 LLM 服务",
	}

	embeddings, err := provider.Embed(context.Background(), texts)
	if err != nil {
		log.Fatal(err)
	}
	for i, emb := range embeddings {
		fmt.Printf("文本 %d 的向量维度: %d\n", i+1, len(emb))
	}
}

// 带 system prompt 的单轮文本生成
func ExampleProvider_Generate() {
	provider := liveProvider(map[string]any{"chat_model": "llama3"})
	if provider == nil {
		fmt.Println("跳过示例：需要设置 OLLAMA_BASE_URL 环境变量")
		return
	}

	response, err := provider.Generate(
		context.Background(),
		"写一首关于 Go 语言的短诗",
		"你是一位专业的诗人",
	)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("生成的诗:", response)
}
