package main

import (
	"context"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := cli.Command{
		Name:  "gorelay",
		Usage: "Relay chat messages to a ChatGPT assistant",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "log level for outputs",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "env file to load configuration from (default .env when present)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Serve the relay over HTTP",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Value: ":8080",
						Usage: "address to listen on",
					},
				},
				Action: ServeCLICommand,
			},
			{
				Name:   "lambda",
				Usage:  "Serve the relay as an AWS Lambda function behind API Gateway",
				Action: LambdaCLICommand,
			},
			{
				Name:      "send",
				Usage:     "Send a single message to the assistant",
				ArgsUsage: "<message>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "thread-id",
						Usage: "thread to continue, a new thread is created when empty",
					},
				},
				Action: SendCLICommand,
			},
			{
				Name:   "configure",
				Usage:  "Configure chatgpt access",
				Action: ConfigureCLICommand,
			},
			{
				Name:   "check",
				Usage:  "Check configured chatgpt credentials and assistant",
				Action: CheckCLICommand,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
