package chat

import (
	"regexp"
	"strings"
)

var emotionTag = regexp.MustCompile(`\[EMOTION:\s*([^\]]+)\]`)

// ExtractEmotion splits a model reply into its visible text and the
// emotion named by the first [EMOTION: x] tag, trimmed but otherwise as
// the model wrote it. Every tag is removed from the text. Replies without a tag are returned unchanged with
// DefaultEmotion.
func ExtractEmotion(reply string) (text, emotion string) {
	m := emotionTag.FindStringSubmatch(reply)
	if m == nil {
		return reply, DefaultEmotion
	}

	emotion = strings.TrimSpace(m[1])
	if emotion == "" {
		emotion = DefaultEmotion
	}
	return strings.TrimSpace(emotionTag.ReplaceAllString(reply, "")), emotion
}
