package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/slack-go/slack"
)

// SlackAPI is the subset of slack.Client used for delivery.
type SlackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	OpenConversationContext(ctx context.Context, params *slack.OpenConversationParameters) (*slack.Channel, bool, bool, error)
}

type slackSink struct {
	api SlackAPI
}

func NewSlackSink(api SlackAPI) Sink {
	return &slackSink{api: api}
}

func (s *slackSink) DeliverDirect(ctx context.Context, observerID string, payload Payload) error {
	channel, _, _, err := s.api.OpenConversationContext(ctx, &slack.OpenConversationParameters{
		Users:    []string{observerID},
		ReturnIM: true,
	})
	if err != nil {
		err = classifySlackError(err)
		if errors.Is(err, ErrForbidden) {
			return fmt.Errorf("opening DM with %s: %w", observerID, ErrObserverUnreachable)
		}
		return fmt.Errorf("opening DM with %s: %w", observerID, err)
	}
	return s.post(ctx, channel.ID, payload)
}

func (s *slackSink) DeliverToChannel(ctx context.Context, channelID string, payload Payload) error {
	return s.post(ctx, channelID, payload)
}

func (s *slackSink) post(ctx context.Context, channelID string, payload Payload) error {
	if _, _, err := s.api.PostMessageContext(ctx, channelID, MessageOptions(payload)...); err != nil {
		return classifySlackError(err)
	}
	return nil
}

// MessageOptions renders a payload as Block Kit with a plain-text fallback.
func MessageOptions(p Payload) []slack.MsgOption {
	if p.IsPlain() {
		return []slack.MsgOption{slack.MsgOptionText(p.Text, false)}
	}

	var blocks []slack.Block
	if p.Title != "" {
		title := p.Title
		if p.URL != "" {
			title = fmt.Sprintf("<%s|%s>", p.URL, p.Title)
		}
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, "*"+title+"*", false, false), nil, nil))
	}
	if p.Text != "" {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, p.Text, false, false), nil, nil))
	}
	if len(p.Lines) > 0 {
		var sb strings.Builder
		for i, line := range p.Lines {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString("• ")
			sb.WriteString(line)
		}
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, sb.String(), false, false), nil, nil))
	}
	if len(p.Fields) > 0 {
		fields := make([]*slack.TextBlockObject, 0, len(p.Fields))
		for _, f := range p.Fields {
			fields = append(fields, slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*%s*\n%s", f.Name, f.Value), false, false))
		}
		// Slack allows at most 10 fields per section.
		for len(fields) > 0 {
			n := min(10, len(fields))
			blocks = append(blocks, slack.NewSectionBlock(nil, fields[:n], nil))
			fields = fields[n:]
		}
	}
	if p.Footer != "" {
		blocks = append(blocks, slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType, p.Footer, false, false)))
	}

	return []slack.MsgOption{
		slack.MsgOptionBlocks(blocks...),
		slack.MsgOptionText(TruncateMessage(p.PlainText()), false),
	}
}

func classifySlackError(err error) error {
	var resp slack.SlackErrorResponse
	if !errors.As(err, &resp) {
		return err
	}
	switch resp.Err {
	case "user_not_found", "cannot_dm_bot", "user_disabled", "user_not_visible":
		return fmt.Errorf("%s: %w", resp.Err, ErrObserverUnreachable)
	case "channel_not_found", "not_in_channel", "is_archived", "restricted_action", "missing_scope", "not_authed", "invalid_auth":
		return fmt.Errorf("%s: %w", resp.Err, ErrForbidden)
	case "msg_too_long", "invalid_blocks", "too_many_attachments", "msg_blocks_too_long":
		return fmt.Errorf("%s: %w", resp.Err, ErrPayloadTooLarge)
	default:
		return err
	}
}
