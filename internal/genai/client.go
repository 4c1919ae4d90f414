// Package genai wraps the Gemini API behind the small LLMClient interface
// the pipeline depends on, so commentary and question answering can be
// mocked in tests.
package genai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// LLMClient defines the interface for interacting with a generative AI model.
type LLMClient interface {
	// GenerateCommentary produces markdown commentary on an analysis summary.
	GenerateCommentary(ctx context.Context, summary string) (string, error)

	// AnswerQuestion answers a user question grounded strictly in the
	// analysis summary.
	AnswerQuestion(ctx context.Context, question, summary string) (string, error)

	// IsAPIKeyValid checks if the configured API key is functional.
	IsAPIKeyValid(ctx context.Context) error

	// Close cleans up any resources used by the client.
	Close() error
}

// Config holds configuration for the GenAI client.
type Config struct {
	APIKey string
	Model  string
}

// geminiClient implements LLMClient using the Google Gemini API.
type geminiClient struct {
	client *genai.Client
	cfg    Config
	logger *zap.Logger
}

// NewClient creates a new Gemini client.
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (LLMClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("cannot create Gemini client: API key is missing")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash-latest"
		logger.Info("Gemini model not specified, using default", zap.String("model", cfg.Model))
	}

	return &geminiClient{client: client, cfg: cfg, logger: logger}, nil
}

// Close cleans up the underlying Gemini client.
func (c *geminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAPIKeyValid checks if the Gemini API key is valid by listing models.
func (c *geminiClient) IsAPIKeyValid(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("gemini client not initialized (likely missing API key)")
	}

	modelIterator := c.client.ListModels(ctx)
	if _, err := modelIterator.Next(); err != nil {
		if st, ok := status.FromError(err); ok {
			if st.Code() == codes.Unauthenticated || st.Code() == codes.PermissionDenied {
				return fmt.Errorf("invalid Gemini API key or insufficient permissions: %w", err)
			}
		}
		return fmt.Errorf("failed to verify Gemini API key by listing models: %w", err)
	}
	return nil
}

// GenerateCommentary asks the model for a short factual commentary on the
// serialized analysis summary.
func (c *geminiClient) GenerateCommentary(ctx context.Context, summary string) (string, error) {
	prompt := fmt.Sprintf(`
You are a data analyst. Write concise, factual commentary on the dataset
described by the analysis summary below. Cover data quality (missing values,
duplicates, outliers), notable trends, and anomalies. Base every statement
ONLY on the summary; do not speculate beyond it. Format the output as
Markdown with short paragraphs or bullet points.

********** Analysis Summary **********
%s
********** End Analysis Summary **********

Commentary:
`, summary)

	return c.generate(ctx, prompt)
}

// AnswerQuestion answers a question using only the analysis summary as
// grounding context.
func (c *geminiClient) AnswerQuestion(ctx context.Context, question, summary string) (string, error) {
	prompt := fmt.Sprintf(`
Based ONLY on the following data analysis summary, answer the user's
question. Do NOT use external knowledge. If the summary does not contain
enough information to answer, say so explicitly.

********** Analysis Summary **********
%s
********** End Analysis Summary **********

Question: %s

Answer:
`, summary, question)

	return c.generate(ctx, prompt)
}

func (c *geminiClient) generate(ctx context.Context, prompt string) (string, error) {
	if c.client == nil {
		return "", fmt.Errorf("gemini client not initialized")
	}

	model := c.client.GenerativeModel(c.cfg.Model)
	model.SetTemperature(0)
	model.SetMaxOutputTokens(1024)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("Gemini API call failed: %w", err)
	}

	text, err := getFirstTextPart(resp)
	if err != nil {
		return "", err
	}
	return cleanOutput(text), nil
}

// getFirstTextPart extracts the first text part from a Gemini response.
func getFirstTextPart(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if resp != nil && len(resp.Candidates) > 0 {
			finishReason = resp.Candidates[0].FinishReason.String()
		}
		return "", fmt.Errorf("empty or incomplete response from Gemini API. FinishReason: %s", finishReason)
	}
	part := resp.Candidates[0].Content.Parts[0]
	text, ok := part.(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response part type: %T", part)
	}
	return string(text), nil
}

// cleanOutput strips a wrapping markdown code fence, which some models emit
// around otherwise plain output.
func cleanOutput(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.Index(s, "\n"); i >= 0 {
			s = s[i+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	return s
}
