package service

import (
	"strings"

	"convstore/model"
)

// NotFoundXML is rendered in place of the history when the conversation
// does not exist.
const NotFoundXML = "<error>Conversation not found or this is the first message</error>"

// RenderJSON returns one role/content turn per message, in stored order. A
// nil conversation renders as no turns. A non-empty userInput is appended as
// a trailing user turn that is never persisted.
func RenderJSON(conv *model.Conversation, userInput string) []model.Turn {
	turns := []model.Turn{}
	if conv != nil {
		for _, msg := range conv.Messages {
			turns = append(turns, model.Turn{Role: msg.Role, Content: msg.Text})
		}
	}
	if userInput != "" {
		turns = append(turns, model.Turn{Role: model.RoleUser, Content: userInput})
	}
	return turns
}

// RenderXML returns one <message> block per message joined by newlines.
// Content is not escaped. A nil conversation renders as NotFoundXML.
func RenderXML(conv *model.Conversation, userInput string) string {
	var blocks []string
	if conv == nil {
		blocks = append(blocks, NotFoundXML)
	} else {
		for _, msg := range conv.Messages {
			blocks = append(blocks, MessageXML(msg.Role, msg.Text))
		}
	}
	if userInput != "" {
		blocks = append(blocks, MessageXML(model.RoleUser, userInput))
	}
	return strings.Join(blocks, "\n")
}

// MessageXML renders a single turn.
func MessageXML(role, content string) string {
	return "<message>\n    <role>" + role + "</role>\n    <content>" + content + "</content>\n</message>"
}

// WrapHistoryXML produces the document handed to a prompt: the rendered
// history inside <history> followed by the pending user turn inside <latest>.
func WrapHistoryXML(history, userInput string) string {
	out := "<history>\n" + history + "\n</history>"
	if userInput != "" {
		out += "\n<latest>" + MessageXML(model.RoleUser, userInput) + "</latest>"
	}
	return out
}
