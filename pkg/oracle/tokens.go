package oracle

import (
	"strings"

	"github.com/tiktoken-go/tokenizer"
)

// estimateTokens approximates the token count of text. The scoring service
// reports exact usage on success; this estimate backs the prompt-size
// ceiling and fills in when the response omits usage numbers. cl100k_base
// is close enough across current chat models for a budget check.
func estimateTokens(text string) int64 {
	enc, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return charEstimate(text)
	}
	ids, _, err := enc.Encode(text)
	if err != nil {
		return charEstimate(text)
	}
	return int64(len(ids))
}

// charEstimate falls back to ~4 characters per token.
func charEstimate(text string) int64 {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return 0
	}
	return int64((len(text) + 3) / 4)
}
