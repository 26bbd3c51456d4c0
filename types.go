package main

type Config struct {
	ApiKey         string `env:"OPENAI_API_KEY" validate:"required"`
	OrganizationId string `env:"ORGANIZATION_ID" validate:"required"`
	AssistantId    string `env:"ASSISTANT_ID" validate:"required"`
	ProjectId      string `env:"PROJECT_ID" validate:"required"`
	BaseUrl        string `env:"OPENAI_BASE_URL" validate:"omitempty,url"`
}

type ChatGPTCredentials struct {
	Secret         string `json:"secret"`
	OrganizationId string `json:"organizationId"`
	ProjectId      string `json:"projectId"`
}

type Assistant struct {
	Id    string `json:"id"`
	Name  string `json:"name"`
	Model string `json:"model"`
}

type Thread struct {
	Id string `json:"id"`
}

type ThreadMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ContentBlockType tags a single block of an assistant message. Only text
// and refusal blocks carry a response, every other tag is skipped.
type ContentBlockType string

const (
	ContentBlockTypeText    ContentBlockType = "text"
	ContentBlockTypeRefusal ContentBlockType = "refusal"
)

type ThreadMessageText struct {
	Value string `json:"value"`
}

type ThreadMessageContent struct {
	Type    ContentBlockType   `json:"type"`
	Text    *ThreadMessageText `json:"text,omitempty"`
	Refusal string             `json:"refusal,omitempty"`
}

type ThreadMessageResponse struct {
	Id      string                 `json:"id"`
	Role    string                 `json:"role"`
	RunId   string                 `json:"run_id"`
	Content []ThreadMessageContent `json:"content"`
}

// ThreadMessageList is one page of a message listing.
type ThreadMessageList struct {
	Data    []ThreadMessageResponse `json:"data"`
	HasMore bool                    `json:"has_more"`
	LastId  string                  `json:"last_id"`
}

type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCancelling     RunStatus = "cancelling"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusIncomplete     RunStatus = "incomplete"
	RunStatusExpired        RunStatus = "expired"
)

// Terminal reports whether a run in this status will not change any further
// without caller intervention.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusRequiresAction, RunStatusCancelled, RunStatusFailed,
		RunStatusCompleted, RunStatusIncomplete, RunStatusExpired:
		return true
	}
	return false
}

const IncompleteReasonContentFilter = "content_filter"

type RunIncompleteDetails struct {
	Reason string `json:"reason"`
}

type ThreadRun struct {
	Id                string                `json:"id"`
	ThreadId          string                `json:"thread_id"`
	AssistantId       string                `json:"assistant_id"`
	Status            RunStatus             `json:"status"`
	IncompleteDetails *RunIncompleteDetails `json:"incomplete_details"`
}

type MessageRequest struct {
	Message  string  `json:"message" validate:"required"`
	ThreadId *string `json:"thread_id" validate:"omitnil,min=1"`
}

type MessageResponse struct {
	Response string `json:"response"`
	ThreadId string `json:"thread_id"`
}
