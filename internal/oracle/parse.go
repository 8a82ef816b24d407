package oracle

import (
	"regexp"
	"strings"
)

// Tags recognized in oracle output. Matching is exact and case-sensitive.
const (
	RequestOpen  = "<lov-chat-request>"
	RequestClose = "</lov-chat-request>"
	FinishedTag  = "<lov-scenario-finished/>"
)

var requestBlock = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(RequestOpen) + `(.*?)` + regexp.QuoteMeta(RequestClose))

// ActionKind classifies oracle output.
type ActionKind int

const (
	ActionMalformed ActionKind = iota
	ActionRequest
	ActionFinished
)

func (k ActionKind) String() string {
	switch k {
	case ActionRequest:
		return "request"
	case ActionFinished:
		return "finished"
	}
	return "malformed"
}

// Action is the parsed form of one oracle reply.
type Action struct {
	Kind ActionKind
	// Text is the trimmed request body for ActionRequest.
	Text string
	// Raw is the unmodified oracle output.
	Raw string
}

// Parse classifies raw oracle output. The finished marker anywhere wins over
// any request block. Otherwise the first request block with non-blank content
// is the request. Anything else is malformed.
func Parse(raw string) Action {
	if strings.Contains(raw, FinishedTag) {
		return Action{Kind: ActionFinished, Raw: raw}
	}
	for _, m := range requestBlock.FindAllStringSubmatch(raw, -1) {
		if text := strings.TrimSpace(m[1]); text != "" {
			return Action{Kind: ActionRequest, Text: text, Raw: raw}
		}
	}
	return Action{Kind: ActionMalformed, Raw: raw}
}
