package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	APIUrl = "https://api.openai.com/v1"
	// DefaultPollInterval is used between run status checks when the API
	// does not suggest one through the openai-poll-after-ms header.
	DefaultPollInterval = time.Second
	// DefaultRequestTimeout bounds every single API call. Waiting for a run
	// spans many calls and is bounded by the caller's context only.
	DefaultRequestTimeout = time.Minute
)

func NewChatGPTError(response *http.Response) error {
	// read contents of response body
	// and parse JSON structure
	buffer, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}

	payload := map[string]interface{}{}
	if err := json.Unmarshal(buffer, &payload); err != nil {
		payload["raw"] = string(buffer)
	}

	gptError := ChatGPTError{
		Code: response.StatusCode,
		Body: payload,
	}
	// add error type to error interface
	if response.StatusCode == http.StatusUnauthorized {
		gptError.Type = ChatGPTErrorTypeAuth
	} else {
		gptError.Type = ChatGPTErrorTypeAPI
	}
	return gptError
}

func NewChatGPTAssistantClient(baseUrl string, credentials ChatGPTCredentials) *ChatGPTAssistantClient {
	if len(baseUrl) == 0 {
		baseUrl = APIUrl
	}
	return &ChatGPTAssistantClient{
		BaseUrl:      baseUrl,
		Credentials:  credentials,
		PollInterval: DefaultPollInterval,
		Client: &http.Client{
			Timeout: DefaultRequestTimeout,
		},
	}
}

// AssistantService is the subset of the Assistants API the relay depends on.
type AssistantService interface {
	CreateThread(ctx context.Context) (Thread, error)
	CreateMessage(ctx context.Context, threadId string, message ThreadMessage) error
	CreateAndPollRun(ctx context.Context, threadId, assistantId string) (ThreadRun, error)
	ListRunMessages(ctx context.Context, threadId, runId string) ([]ThreadMessageResponse, error)
}

type ChatGPTAssistantClient struct {
	BaseUrl      string
	Credentials  ChatGPTCredentials
	PollInterval time.Duration
	*http.Client
}

// ExecuteChatGPTRequest sends an HTTP request to the specified URL using the provided method and payload.
// It sets the necessary headers for authorization, organization, project and content type.
//
// Parameters:
//   - ctx: The context bounding the request.
//   - method: The HTTP method to use for the request (e.g., "GET", "POST").
//   - url: The URL to which the request is sent.
//   - payload: The data to be sent in the request body. It can be of any type.
//
// Returns:
//   - *http.Response: The HTTP response received from the server.
//   - error: An error if the request could not be created or executed.
func (client *ChatGPTAssistantClient) ExecuteChatGPTRequest(ctx context.Context, method, url string, payload any, headers map[string]string) (*http.Response, error) {
	var buffer io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		buffer = bytes.NewBuffer(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, url, buffer)
	if err != nil {
		return nil, err
	}
	// add required request headers
	request.Header.Add("Authorization", "Bearer "+client.Credentials.Secret)
	request.Header.Add("Content-Type", "application/json")
	if len(client.Credentials.OrganizationId) > 0 {
		request.Header.Add("OpenAI-Organization", client.Credentials.OrganizationId)
	}
	if len(client.Credentials.ProjectId) > 0 {
		request.Header.Add("OpenAI-Project", client.Credentials.ProjectId)
	}

	for k, v := range headers {
		request.Header.Add(k, v)
	}

	r, err := client.Do(request)
	if err != nil {
		return nil, err
	}
	log.Debug(fmt.Sprintf("received http(s) response: %s %s - %d", method, url, r.StatusCode))

	return r, nil
}

// executeAssistantsRequest runs an Assistants v2 request and decodes a
// successful JSON body into target. Any non 200 status is returned as a
// ChatGPTError. The response is returned with its body already closed so
// callers can still inspect headers.
func (client *ChatGPTAssistantClient) executeAssistantsRequest(ctx context.Context, method, url string, payload any, target any) (*http.Response, error) {
	headers := map[string]string{
		"OpenAI-Beta": "assistants=v2",
	}

	response, err := client.ExecuteChatGPTRequest(ctx, method, url, payload, headers)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	switch response.StatusCode {
	case http.StatusOK:
		if target == nil {
			return response, nil
		}
		content, err := io.ReadAll(response.Body)
		if err != nil {
			return response, err
		}
		if err := json.Unmarshal(content, target); err != nil {
			return response, err
		}
		return response, nil

	default:
		return response, NewChatGPTError(response)
	}
}

// VerifyCredentials checks the validity of the client's credentials by making a request
// to the /models endpoint of the ChatGPT API. If the credentials are valid, the function
// returns nil. Otherwise, it returns an error indicating the failure reason.
func (client *ChatGPTAssistantClient) VerifyCredentials(ctx context.Context) error {
	// check credentials using /models endpoint
	response, err := client.ExecuteChatGPTRequest(ctx, http.MethodGet, client.BaseUrl+"/models", nil, nil)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return NewChatGPTError(response)
	}
	return nil
}

// GetAssistant retrieves an assistant by its ID from the ChatGPT API.
//
// Parameters:
//   - id: The unique identifier of the assistant to retrieve.
//
// Returns:
//   - Assistant: The assistant object retrieved from the API.
//   - error: An error object if the request fails or the response cannot be parsed.
func (client *ChatGPTAssistantClient) GetAssistant(ctx context.Context, id string) (Assistant, error) {
	var assistant Assistant

	endpoint := fmt.Sprintf("%s/assistants/%s", client.BaseUrl, url.PathEscape(id))
	_, err := client.executeAssistantsRequest(ctx, http.MethodGet, endpoint, nil, &assistant)
	return assistant, err
}

// CreateThread creates a new, empty conversation thread.
func (client *ChatGPTAssistantClient) CreateThread(ctx context.Context) (Thread, error) {
	var thread Thread

	_, err := client.executeAssistantsRequest(ctx, http.MethodPost, client.BaseUrl+"/threads", map[string]interface{}{}, &thread)
	return thread, err
}

// CreateMessage appends a message to the given thread.
func (client *ChatGPTAssistantClient) CreateMessage(ctx context.Context, threadId string, message ThreadMessage) error {
	endpoint := fmt.Sprintf("%s/threads/%s/messages", client.BaseUrl, url.PathEscape(threadId))
	_, err := client.executeAssistantsRequest(ctx, http.MethodPost, endpoint, message, nil)
	return err
}

// CreateRun starts a run of the given assistant against a thread. The returned
// run is usually still queued.
func (client *ChatGPTAssistantClient) CreateRun(ctx context.Context, threadId, assistantId string) (ThreadRun, error) {
	var run ThreadRun

	payload := map[string]interface{}{
		"assistant_id": assistantId,
	}

	endpoint := fmt.Sprintf("%s/threads/%s/runs", client.BaseUrl, url.PathEscape(threadId))
	_, err := client.executeAssistantsRequest(ctx, http.MethodPost, endpoint, payload, &run)
	return run, err
}

// GetRun fetches the current state of a run. The suggested delay before the
// next poll is returned alongside, zero when the API gives none.
func (client *ChatGPTAssistantClient) GetRun(ctx context.Context, threadId, runId string) (ThreadRun, time.Duration, error) {
	var run ThreadRun

	endpoint := fmt.Sprintf("%s/threads/%s/runs/%s", client.BaseUrl, url.PathEscape(threadId), url.PathEscape(runId))
	response, err := client.executeAssistantsRequest(ctx, http.MethodGet, endpoint, nil, &run)
	if err != nil {
		return run, 0, err
	}
	return run, pollAfter(response), nil
}

// WaitForRunCompletion waits for the completion of a thread run with the given runId.
// It polls the ChatGPT API until the run reaches a terminal status, see RunStatus.Terminal.
// The function returns the final ThreadRun object or an error if a request fails or the
// context is cancelled.
//
// Parameters:
//   - threadId: The ID of the thread the run belongs to.
//   - runId: The ID of the thread run to wait for.
//
// Returns:
//   - ThreadRun: The final state of the thread run.
//   - error: An error if the request fails or if the response cannot be parsed.
func (client *ChatGPTAssistantClient) WaitForRunCompletion(ctx context.Context, threadId, runId string) (ThreadRun, error) {
	for {
		run, wait, err := client.GetRun(ctx, threadId, runId)
		if err != nil {
			return run, err
		}

		if run.Status.Terminal() {
			return run, nil
		}
		log.Debug(fmt.Sprintf("run %s on thread %s is %s", runId, threadId, run.Status))

		if wait <= 0 {
			wait = client.PollInterval
		}

		select {
		case <-ctx.Done():
			return run, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// CreateAndPollRun starts a run of the assistant on the thread and blocks until
// the run reaches a terminal status.
func (client *ChatGPTAssistantClient) CreateAndPollRun(ctx context.Context, threadId, assistantId string) (ThreadRun, error) {
	run, err := client.CreateRun(ctx, threadId, assistantId)
	if err != nil {
		return run, err
	}
	if run.Status.Terminal() {
		return run, nil
	}
	return client.WaitForRunCompletion(ctx, threadId, run.Id)
}

// ListRunMessages returns the messages a single run added to the thread, in
// the order the API lists them. Every page of the listing is fetched.
func (client *ChatGPTAssistantClient) ListRunMessages(ctx context.Context, threadId, runId string) ([]ThreadMessageResponse, error) {
	messages := []ThreadMessageResponse{}

	query := url.Values{}
	query.Set("run_id", runId)

	for {
		endpoint := fmt.Sprintf("%s/threads/%s/messages?%s", client.BaseUrl, url.PathEscape(threadId), query.Encode())

		var page ThreadMessageList
		if _, err := client.executeAssistantsRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return []ThreadMessageResponse{}, err
		}
		messages = append(messages, page.Data...)

		if !page.HasMore || len(page.LastId) == 0 {
			return messages, nil
		}
		log.Debug(fmt.Sprintf("fetching messages of run %s after %s", runId, page.LastId))
		query.Set("after", page.LastId)
	}
}

func pollAfter(response *http.Response) time.Duration {
	value := response.Header.Get("openai-poll-after-ms")
	if len(value) == 0 {
		return 0
	}
	ms, err := strconv.Atoi(value)
	if err != nil || ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}
