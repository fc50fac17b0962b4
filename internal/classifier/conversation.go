package classifier

import (
	"github.com/google/uuid"
	"google.golang.org/genai"
)

// conversation is the scope of exactly one classifier call. It is created per
// call and dropped afterwards, so no history leaks between records.
type conversation struct {
	id       string
	system   *genai.Content
	contents []*genai.Content
}

func newConversation(systemPrompt string) *conversation {
	return &conversation{
		id:     uuid.NewString(),
		system: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}
}

func (c *conversation) ask(text string) {
	c.contents = append(c.contents, genai.NewContentFromText(text, genai.RoleUser))
}
