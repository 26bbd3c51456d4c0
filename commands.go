package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/briandowns/spinner"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// newRelayFromConfig loads the configuration once and builds the relay every
// command shares.
func newRelayFromConfig(cmd *cli.Command) (*MessageRelay, *ChatGPTAssistantClient, error) {
	config, err := loadConfig(cmd.String("env-file"))
	if err != nil {
		log.Debug(fmt.Sprintf("%+v", err))
		return nil, nil, cli.Exit(fmt.Sprintf("error loading configuration: %s", err), 1)
	}

	client := NewChatGPTAssistantClient(config.BaseUrl, ChatGPTCredentials{
		Secret:         config.ApiKey,
		OrganizationId: config.OrganizationId,
		ProjectId:      config.ProjectId,
	})
	return NewMessageRelay(client, config.AssistantId), client, nil
}

// ServeCLICommand runs the relay as a standalone HTTP server until the process
// receives SIGINT or SIGTERM.
func ServeCLICommand(ctx context.Context, cmd *cli.Command) error {
	// configure logging for application
	configureLogging(cmd.String("log-level"))

	relay, _, err := newRelayFromConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := NewServer(relay)
	addr := cmd.String("addr")

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info(fmt.Sprintf("listening on %s", addr))
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Debug(fmt.Sprintf("server error: %+v", err))
		return cli.Exit("error running server", 1)
	}
	return nil
}

// LambdaCLICommand hands the process to the AWS Lambda runtime.
func LambdaCLICommand(ctx context.Context, cmd *cli.Command) error {
	// configure logging for application
	configureLogging(cmd.String("log-level"))
	log.SetFormatter(&log.JSONFormatter{})

	relay, _, err := newRelayFromConfig(cmd)
	if err != nil {
		return err
	}

	handler := NewLambdaHandler(NewServer(relay))
	lambda.StartWithOptions(handler.Handle, lambda.WithContext(ctx))
	return nil
}

// SendCLICommand relays a single message from the command line and prints the
// assistant's response along with the thread to continue on.
func SendCLICommand(ctx context.Context, cmd *cli.Command) error {
	// configure logging for application
	configureLogging(cmd.String("log-level"))

	message := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if len(message) == 0 {
		return cli.Exit("a message is required", 1)
	}

	relay, _, err := newRelayFromConfig(cmd)
	if err != nil {
		return err
	}

	request := MessageRequest{Message: message}
	if threadId := cmd.String("thread-id"); len(threadId) > 0 {
		request.ThreadId = &threadId
	}

	spinner := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	spinner.Prefix = "Waiting for assistant response "
	spinner.Start()

	response, err := relay.Relay(ctx, request)
	spinner.Stop()
	if err != nil {
		var relayError RelayError
		if errors.As(err, &relayError) {
			return cli.Exit(relayError.Message, 1)
		}
		log.Debug(fmt.Sprintf("error relaying message: %+v", err))
		var chatGPTError ChatGPTError
		if errors.As(err, &chatGPTError) {
			log.Debug(fmt.Sprintf("error response: %+v", chatGPTError.Body))
		}
		return cli.Exit("error relaying message", 1)
	}

	printResponse(os.Stdout, response)
	return nil
}

// ConfigureCLICommand prompts for the API credentials and assistant, verifies
// them against the API and writes them to the env file.
func ConfigureCLICommand(ctx context.Context, cmd *cli.Command) error {
	// configure logging for application
	configureLogging(cmd.String("log-level"))
	reader := bufio.NewReader(os.Stdin)

	organizationId, err := getCliInput(reader, "Enter organization ID: ", requireValue("organization ID"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	projectId, err := getCliInput(reader, "Enter project ID: ", requireValue("project ID"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	var client *ChatGPTAssistantClient
	// prompt user for ChatGPT access token
	token, err := getCliInput(reader, "Enter ChatGPT access token: ", func(value string) (string, error) {
		credentials := ChatGPTCredentials{
			Secret:         value,
			OrganizationId: organizationId,
			ProjectId:      projectId,
		}
		client = NewChatGPTAssistantClient("", credentials)

		// verify provided credentials using client
		if err := client.VerifyCredentials(ctx); err != nil {
			log.Debug(fmt.Sprintf("error validating chatgpt token: %+v", err))
			return "", err
		}
		return value, nil
	})
	if err != nil {
		return cli.Exit("error validating chatgpt access token", 1)
	}

	// get assistant ID from CLI and validate by making request to ChatGPT
	// api to get assistant details using specified ID
	assistantId, err := getCliInput(reader, "Enter ChatGPT assistant ID: ", func(value string) (string, error) {
		if _, err := client.GetAssistant(ctx, value); err != nil {
			log.Debug(fmt.Sprintf("error validating chatgpt assistant: %+v", err))
			return "", err
		}
		return value, nil
	})
	if err != nil {
		return cli.Exit("error validating assistant", 1)
	}

	path := cmd.String("env-file")
	if len(path) == 0 {
		path = DefaultEnvFile
	}

	config := Config{
		ApiKey:         token,
		OrganizationId: organizationId,
		AssistantId:    assistantId,
		ProjectId:      projectId,
	}

	if err := writeConfig(config, path); err != nil {
		log.Debug(fmt.Sprintf("%+v", err))
		return cli.Exit(fmt.Sprintf("error writing env file to %s", path), 1)
	}

	fmt.Printf("configuration written to %s\n", path)
	return nil
}

// CheckCLICommand loads the configuration and verifies the credentials and
// assistant against the API.
func CheckCLICommand(ctx context.Context, cmd *cli.Command) error {
	// configure logging for application
	configureLogging(cmd.String("log-level"))

	relay, client, err := newRelayFromConfig(cmd)
	if err != nil {
		return err
	}

	if err := client.VerifyCredentials(ctx); err != nil {
		log.Debug(fmt.Sprintf("error verifying chatgpt credentials: %+v", err))
		return cli.Exit("error validating chatgpt credentials", 1)
	}

	assistant, err := client.GetAssistant(ctx, relay.assistantId)
	if err != nil {
		log.Debug(fmt.Sprintf("error fetching assistant %s from chatgpt api: %+v", relay.assistantId, err))
		return cli.Exit("error validating chatgpt assistant", 1)
	}

	fmt.Printf("configuration ok: assistant %s (%s, model %s)\n", assistant.Id, assistant.Name, assistant.Model)
	return nil
}
