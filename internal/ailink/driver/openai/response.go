package openai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/reelkit/reelkit/internal/ailink/driver"
)

type chatCompletionResponse struct {
	Choices []choice `json:"choices"`
	Usage   *usage   `json:"usage,omitempty"`
}

type choice struct {
	Message      chatResponseMessage `json:"message"`
	FinishReason string              `json:"finish_reason"`
}

type chatResponseMessage struct {
	Content string `json:"content"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// errorEnvelope is the body OpenAI returns on non-2xx responses.
type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

func toDriverResponse(resp *chatCompletionResponse) (*driver.Response, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response choices")
	}

	choice := resp.Choices[0]
	response := &driver.Response{
		Text:         choice.Message.Content,
		FinishReason: choice.FinishReason,
	}

	if resp.Usage != nil {
		response.Usage = &driver.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	return response, nil
}

func newProviderError(status int, body []byte) *driver.ProviderError {
	perr := &driver.ProviderError{
		Provider:    "openai",
		Status:      status,
		Message:     strings.TrimSpace(string(body)),
		RawResponse: body,
	}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return perr
	}
	if msg := strings.TrimSpace(env.Error.Message); msg != "" {
		perr.Message = msg
	}
	switch code := env.Error.Code.(type) {
	case string:
		perr.Code = code
	case nil:
		perr.Code = env.Error.Type
	default:
		perr.Code = fmt.Sprint(code)
	}
	return perr
}
