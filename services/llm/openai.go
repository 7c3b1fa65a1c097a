package llmsvc

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/included-edu/included/core"
	"github.com/included-edu/included/core/generate"
)

const chatCompletionsPath = "/chat/completions"

type (
	chatMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	responseFormat struct {
		Type string `json:"type"`
	}

	chatCompletionRequest struct {
		Model          string         `json:"model"`
		Messages       []chatMessage  `json:"messages"`
		Temperature    float64        `json:"temperature"`
		ResponseFormat responseFormat `json:"response_format"`
	}

	chatCompletionResponse struct {
		Choices []struct {
			Message      chatMessage `json:"message"`
			FinishReason string      `json:"finish_reason"`
		} `json:"choices"`
	}

	apiErrorResponse struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
)

// OpenAIClient talks to any OpenAI compatible chat completions API in JSON mode.
type OpenAIClient struct {
	client *resty.Client
	model  string
}

var _ generate.Completer = (*OpenAIClient)(nil)

func NewOpenAIClient(conf *core.Config) *OpenAIClient {
	client := resty.New().
		SetBaseURL(conf.Generation.OpenAIBaseURL).
		SetAuthToken(conf.Generation.OpenAIApiKey).
		SetTimeout(conf.Generation.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(0)
	return &OpenAIClient{client: client, model: conf.Generation.Model}
}

func (c *OpenAIClient) CompleteJSON(ctx context.Context, prompt generate.Prompt) ([]byte, error) {
	body := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
		Temperature:    prompt.Temperature,
		ResponseFormat: responseFormat{Type: "json_object"},
	}

	var result chatCompletionResponse
	var apiErr apiErrorResponse
	res, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		SetError(&apiErr).
		Post(chatCompletionsPath)
	if err != nil {
		return nil, errors.Wrap(err, "calling chat completions")
	}
	if res.IsError() || res.StatusCode() != http.StatusOK {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = strings.TrimSpace(res.String())
		}
		return nil, errors.Errorf("chat completions: status %d: %s", res.StatusCode(), msg)
	}

	if len(result.Choices) == 0 {
		return nil, errors.New("chat completions: no choices")
	}
	content := strings.TrimSpace(result.Choices[0].Message.Content)
	if content == "" {
		return nil, errors.Errorf("chat completions: empty content (finish_reason=%s)", result.Choices[0].FinishReason)
	}
	return []byte(content), nil
}
