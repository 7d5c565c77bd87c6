package llm

import (
	"context"
	"log"
	"time"

	"github.com/jxeduyun/mathtutor/config"
)

// FallbackAnswer is delivered as if it were a normal answer whenever the
// underlying completion call fails.
const FallbackAnswer = "抱歉，我暂时无法回答您的问题，请稍后重试。"

// Gateway invokes the chat-completion model in knowledge or fallback mode,
// synchronously or as a token stream. Every operation absorbs the underlying
// failure and delivers the fixed apology instead of an error; nothing is
// retried.
type Gateway struct {
	client        *chatClient
	streamTimeout time.Duration
	logger        *log.Logger
}

func NewGateway(cfg config.LLMConfig) *Gateway {
	streamTimeout := cfg.StreamTimeout
	if streamTimeout == 0 {
		streamTimeout = 5 * time.Minute
	}
	return &Gateway{
		client:        newChatClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Temperature, cfg.MaxTokens, cfg.Timeout),
		streamTimeout: streamTimeout,
		logger:        log.New(log.Writer(), "[LLM] ", log.LstdFlags),
	}
}

// CompleteWithKnowledge generates an answer grounded in the knowledge prompt.
func (g *Gateway) CompleteWithKnowledge(ctx context.Context, systemPrompt, question string) string {
	return g.complete(ctx, "with_knowledge", systemPrompt, question)
}

// CompleteFallback generates a context-free answer.
func (g *Gateway) CompleteFallback(ctx context.Context, systemPrompt, question string) string {
	return g.complete(ctx, "fallback", systemPrompt, question)
}

func (g *Gateway) complete(ctx context.Context, mode, systemPrompt, question string) string {
	start := time.Now()
	answer, err := g.client.complete(ctx, systemPrompt, question)
	if err != nil {
		g.logger.Printf("%s completion failed: %v", mode, err)
		return FallbackAnswer
	}
	g.logger.Printf("%s completion finished in %.2fs", mode, time.Since(start).Seconds())
	return answer
}

// StreamWithKnowledge streams a knowledge-grounded answer chunk by chunk.
func (g *Gateway) StreamWithKnowledge(ctx context.Context, systemPrompt, question string) <-chan string {
	return g.streamAnswer(ctx, "with_knowledge", systemPrompt, question)
}

// StreamFallback streams a context-free answer chunk by chunk.
func (g *Gateway) StreamFallback(ctx context.Context, systemPrompt, question string) <-chan string {
	return g.streamAnswer(ctx, "fallback", systemPrompt, question)
}

// streamAnswer adapts the raw chunk stream to the gateway contract: if the
// stream cannot be started the apology is the sole chunk, and a mid-stream
// failure emits the apology then terminates without retry.
func (g *Gateway) streamAnswer(ctx context.Context, mode, systemPrompt, question string) <-chan string {
	out := make(chan string, 1)
	streamCtx, cancel := context.WithTimeout(ctx, g.streamTimeout)
	chunks, errCh, err := g.client.stream(streamCtx, systemPrompt, question)
	if err != nil {
		g.logger.Printf("%s stream failed to start: %v", mode, err)
		cancel()
		out <- FallbackAnswer
		close(out)
		return out
	}
	go func() {
		defer close(out)
		defer cancel()
		for chunk := range chunks {
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
		select {
		case err := <-errCh:
			g.logger.Printf("%s stream failed: %v", mode, err)
			select {
			case out <- FallbackAnswer:
			case <-ctx.Done():
			}
		default:
		}
	}()
	return out
}
