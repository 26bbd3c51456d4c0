package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	echoadapter "github.com/awslabs/aws-lambda-go-api-proxy/echo"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// LambdaHandler serves API Gateway proxy events with the relay router.
type LambdaHandler struct {
	adapter *echoadapter.EchoLambda
}

func NewLambdaHandler(e *echo.Echo) *LambdaHandler {
	return &LambdaHandler{adapter: echoadapter.New(e)}
}

// Handle proxies the event through the router. The API Gateway request id is
// forwarded as X-Request-Id unless the caller already sent one.
func (h *LambdaHandler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		log.Debug(fmt.Sprintf("handling lambda request %s: %s %s", lc.AwsRequestID, event.HTTPMethod, event.Path))
	}

	event = withRequestId(event)
	response, err := h.adapter.ProxyWithContext(ctx, event)
	if err != nil {
		log.Debug(fmt.Sprintf("error proxying %s %s: %+v", event.HTTPMethod, event.Path, err))
	}
	return response, err
}

func withRequestId(event events.APIGatewayProxyRequest) events.APIGatewayProxyRequest {
	id := event.RequestContext.RequestID
	if len(id) == 0 {
		return event
	}

	if event.MultiValueHeaders != nil {
		headers := make(map[string][]string, len(event.MultiValueHeaders)+1)
		for key, values := range event.MultiValueHeaders {
			if http.CanonicalHeaderKey(key) == echo.HeaderXRequestID {
				return event
			}
			headers[key] = values
		}
		headers[echo.HeaderXRequestID] = []string{id}
		event.MultiValueHeaders = headers
		return event
	}

	headers := make(map[string]string, len(event.Headers)+1)
	for key, value := range event.Headers {
		if http.CanonicalHeaderKey(key) == echo.HeaderXRequestID {
			return event
		}
		headers[key] = value
	}
	headers[echo.HeaderXRequestID] = id
	event.Headers = headers
	return event
}
