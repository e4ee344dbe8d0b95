package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/aktagon/llmkit/anthropic/agents"
)

const locatorSystemPrompt = `You identify the most likely home country of a YouTube channel from its public text.
Answer with exactly one ISO 3166-1 alpha-2 country code (for example US, DE, BR).
Answer UNKNOWN when the text gives no usable signal. Output nothing else.`

// ChannelLocator infers a channel's likely country from its free-text
// description when neither the page nor the API carried one. Best effort:
// without an API key the locator is nil and Locate is a no-op.
type ChannelLocator struct {
	agent *agents.ChatAgent
}

// NewChannelLocator builds a locator, or returns nil when no key is set.
func NewChannelLocator(apiKey string) (*ChannelLocator, error) {
	if apiKey == "" {
		return nil, nil
	}
	agent, err := agents.New(apiKey)
	if err != nil {
		return nil, fmt.Errorf("creating locator agent: %w", err)
	}
	return &ChannelLocator{agent: agent}, nil
}

// Locate fills channel_country on records where it is still empty, using the
// channel description (or the video description as fallback) as evidence.
func (cl *ChannelLocator) Locate(records []*VideoRecord) {
	if cl == nil {
		return
	}
	for _, rec := range records {
		if rec.ChannelCountry != "" {
			continue
		}
		text := strings.TrimSpace(rec.ChannelDescription)
		if text == "" {
			text = strings.TrimSpace(rec.Description)
		}
		if text == "" {
			continue
		}

		prompt := fmt.Sprintf("Channel name: %s\n\nDescription:\n%s", rec.ChannelName, text)
		response, err := cl.agent.Chat(prompt, &agents.ChatOptions{
			SystemPrompt: locatorSystemPrompt,
			MaxTokens:    16,
			Temperature:  0,
		})
		if err != nil {
			log.Printf("  Country inference failed for %s: %v", rec.VideoID, err)
			continue
		}
		code := strings.ToUpper(strings.TrimSpace(response.Text))
		if len(code) != 2 || code == "UN" {
			continue
		}
		rec.ChannelCountry = code
		rec.markSource("channel_country", "inferred")
	}
}
