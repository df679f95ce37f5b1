package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/sokrateshealth/anamnesis-platform/internal/intake"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	messages := []intake.ChatMessage{
		{Role: intake.ChatRoleUser, Content: "Hei, jeg har hatt vondt i hodet i to uker."},
		{Role: intake.ChatRoleAssistant, Content: "Det var leit å høre. Kan du beskrive smerten nærmere? Er den konstant eller kommer den i anfall?"},
		{Role: intake.ChatRoleUser, Content: "Den kommer mest om morgenen og er verst bak øynene."},
	}

	req := intake.LLMRequest{
		System:      []string{intake.SokratesSystemPrompt},
		Messages:    messages,
		MaxTokens:   300,
		Temperature: 0.2,
	}

	fmt.Println("Conversation provider test")
	fmt.Println("--------------------------")

	openaiKey := os.Getenv("OPENAI_API_KEY")
	if openaiKey != "" {
		fmt.Println("\n[1] Testing OpenAI...")
		client, err := intake.NewOpenAIClient(openaiKey, envOr("OPENAI_CHAT_MODEL", "gpt-4o-mini"))
		if err != nil {
			fmt.Printf("    failed to create OpenAI client: %v\n", err)
		} else {
			runTurn(ctx, client, req)
		}
	} else {
		fmt.Println("\n[1] Skipping OpenAI test (OPENAI_API_KEY not set)")
	}

	geminiKey := os.Getenv("GEMINI_API_KEY")
	if geminiKey != "" {
		fmt.Println("\n[2] Testing Gemini fallback...")
		client, err := intake.NewGeminiClient(ctx, geminiKey, envOr("GEMINI_MODEL", "gemini-2.5-flash"))
		if err != nil {
			fmt.Printf("    failed to create Gemini client: %v\n", err)
		} else {
			defer func() { _ = client.Close() }()
			runTurn(ctx, client, req)
		}
	} else {
		fmt.Println("\n[2] Skipping Gemini test (GEMINI_API_KEY not set)")
	}

	fmt.Println("\nDone. If both providers responded, the fallback chain is healthy.")
}

func runTurn(ctx context.Context, client intake.LLMClient, req intake.LLMRequest) {
	start := time.Now()
	resp, err := client.Complete(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		fmt.Printf("    error: %v\n", err)
		return
	}
	fmt.Printf("    response (%v):\n", elapsed.Round(time.Millisecond))
	fmt.Printf("    %s\n", resp.Text)
	fmt.Printf("    tokens: in=%d, out=%d\n", resp.Usage.InputTokens, resp.Usage.OutputTokens)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
