// Command assistant sends one question to the study assistant endpoint and
// prints the streamed answer as it arrives.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/acadbuddy/acadbuddy-api/internal/logger"
	"github.com/acadbuddy/acadbuddy-api/internal/services"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	question := strings.TrimSpace(strings.Join(os.Args[1:], " "))
	if question == "" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			log.Fatal("read question", zap.Error(err))
		}
		question = strings.TrimSpace(string(raw))
	}
	if question == "" {
		log.Fatal("usage: assistant <question> (or pipe the question on stdin)")
	}

	endpoint := os.Getenv("ASSISTANT_URL")
	if endpoint == "" {
		endpoint = "http://localhost:" + envOr("PORT", "8080") + "/functions/v1/study-assistant"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := ask(ctx, endpoint, question, os.Stdout); err != nil {
		log.Fatal("study assistant request failed", zap.String("endpoint", endpoint), zap.Error(err))
	}
}

func ask(ctx context.Context, endpoint, question string, out io.Writer) error {
	body, err := json.Marshal(map[string]any{
		"messages": []services.ChatMessage{{Role: "user", Content: question}},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var failure struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&failure)
		return fmt.Errorf("status %d: %s", resp.StatusCode, failure.Error)
	}

	if err := services.ReadStream(resp.Body, func(delta string) error {
		_, err := io.WriteString(out, delta)
		return err
	}); err != nil {
		return err
	}
	_, err = io.WriteString(out, "\n")
	return err
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
