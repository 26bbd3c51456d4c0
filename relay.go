package main

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	// FallbackResponse is returned when a run produced no text or refusal.
	FallbackResponse = "I'm sorry, I don't have a response for that."
	// responseSeparator joins the blocks of a response with a blank line.
	responseSeparator = "\n\n"
)

// MessageRelay forwards user messages to a single configured assistant and
// returns its flattened reply.
type MessageRelay struct {
	service     AssistantService
	assistantId string
}

func NewMessageRelay(service AssistantService, assistantId string) *MessageRelay {
	return &MessageRelay{
		service:     service,
		assistantId: assistantId,
	}
}

// Relay sends request.Message to the assistant and waits for the reply.
//
// A nil ThreadId starts a new conversation, otherwise the supplied id is used
// as is. The returned ThreadId is always the thread the run executed on.
// Runs that end incomplete are reported as a RelayError, any error from the
// assistant service is returned unchanged.
func (relay *MessageRelay) Relay(ctx context.Context, request MessageRequest) (MessageResponse, error) {
	threadId, err := relay.resolveThread(ctx, request.ThreadId)
	if err != nil {
		return MessageResponse{}, err
	}

	message := ThreadMessage{
		Role:    "user",
		Content: request.Message,
	}
	if err := relay.service.CreateMessage(ctx, threadId, message); err != nil {
		log.Debug(fmt.Sprintf("error adding message to thread %s: %+v", threadId, err))
		return MessageResponse{}, err
	}

	run, err := relay.service.CreateAndPollRun(ctx, threadId, relay.assistantId)
	if err != nil {
		log.Debug(fmt.Sprintf("error running assistant on thread %s: %+v", threadId, err))
		return MessageResponse{}, err
	}
	log.Debug(fmt.Sprintf("run %s on thread %s finished with status %s", run.Id, threadId, run.Status))

	if err := checkRunCompletion(run); err != nil {
		return MessageResponse{}, err
	}

	messages, err := relay.service.ListRunMessages(ctx, threadId, run.Id)
	if err != nil {
		log.Debug(fmt.Sprintf("error listing messages of run %s: %+v", run.Id, err))
		return MessageResponse{}, err
	}

	blocks := flattenMessages(messages)
	if len(blocks) == 0 {
		log.WithFields(log.Fields{
			"thread_id": threadId,
			"run_id":    run.Id,
			"status":    run.Status,
		}).Warn(fmt.Sprintf("run produced no text or refusal content: %+v", messages))
		return MessageResponse{
			Response: FallbackResponse,
			ThreadId: threadId,
		}, nil
	}

	return MessageResponse{
		Response: strings.Join(blocks, responseSeparator),
		ThreadId: threadId,
	}, nil
}

func (relay *MessageRelay) resolveThread(ctx context.Context, threadId *string) (string, error) {
	if threadId != nil {
		return *threadId, nil
	}

	thread, err := relay.service.CreateThread(ctx)
	if err != nil {
		log.Debug(fmt.Sprintf("error creating thread: %+v", err))
		return "", err
	}
	log.Debug(fmt.Sprintf("created new thread %s", thread.Id))
	return thread.Id, nil
}

// checkRunCompletion classifies runs that stopped before producing a full
// response. Runs without incomplete details are treated as completed.
func checkRunCompletion(run ThreadRun) error {
	if run.IncompleteDetails == nil {
		if run.Status != RunStatusCompleted {
			log.Warn(fmt.Sprintf("run %s ended with status %s", run.Id, run.Status))
		}
		return nil
	}

	switch run.IncompleteDetails.Reason {
	case IncompleteReasonContentFilter:
		return RelayError{
			Type:    RelayErrorTypeClient,
			Message: "Message was blocked by the content filter.",
		}
	default:
		return RelayError{
			Type:    RelayErrorTypeServer,
			Message: fmt.Sprintf("Message failed to run: %s.", run.IncompleteDetails.Reason),
		}
	}
}

// flattenMessages collects the trimmed text and refusal values of every
// content block, keeping message order and block order.
func flattenMessages(messages []ThreadMessageResponse) []string {
	blocks := []string{}
	for _, message := range messages {
		for _, content := range message.Content {
			value, ok := content.Value()
			if !ok {
				continue
			}
			blocks = append(blocks, strings.TrimSpace(value))
		}
	}
	return blocks
}

// Value returns the response carried by the block. Blocks of any tag other
// than text or refusal carry none.
func (content ThreadMessageContent) Value() (string, bool) {
	switch content.Type {
	case ContentBlockTypeText:
		if content.Text == nil {
			return "", false
		}
		return content.Text.Value, true
	case ContentBlockTypeRefusal:
		return content.Refusal, true
	default:
		return "", false
	}
}
