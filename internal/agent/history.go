package agent

import (
	"github.com/keynar/stylegenie/internal/llm"
	"github.com/keynar/stylegenie/internal/media"
	"github.com/keynar/stylegenie/internal/store"
)

// convertHistory turns stored messages into model messages. Image
// payloads are decoded and validated on the way; an image that no
// longer decodes is dropped with a warning while its message text
// survives, so one bad blob never sinks a conversation.
func (a *Agent) convertHistory(history []store.Message) []llm.Message {
	messages := make([]llm.Message, 0, len(history))
	for _, m := range history {
		msg := llm.Message{Role: m.Role, Content: m.Content}
		for _, enc := range m.Images {
			img, err := media.Decode(enc)
			if err != nil {
				a.logger.Warn("dropping undecodable history image",
					"role", m.Role, "error", err)
				continue
			}
			msg.Images = append(msg.Images, img)
		}
		messages = append(messages, msg)
	}
	return messages
}

// latestImage returns the newest stored image that still decodes,
// searching backwards through the conversation. Both uploaded photos
// and previously edited results qualify, so follow-up edits compound
// on the latest version.
func latestImage(history []store.Message) []byte {
	for i := len(history) - 1; i >= 0; i-- {
		for j := len(history[i].Images) - 1; j >= 0; j-- {
			img, err := media.Decode(history[i].Images[j])
			if err != nil {
				continue
			}
			return img
		}
	}
	return nil
}

func encodeImage(img []byte) string {
	return media.Encode(img)
}
