package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"atsbeaters-backend/internal/bootstrap"
	"atsbeaters-backend/internal/shared/config"
	"atsbeaters-backend/internal/shared/telemetry"
)

// proxy builds the router once per execution environment. A failed build is
// kept, so every invocation on this environment answers 503 until it recycles.
type proxy struct {
	build func() (*gin.Engine, error)

	once    sync.Once
	err     error
	adapter *ginadapter.GinLambdaV2
}

func (p *proxy) init() {
	router, err := p.build()
	if err != nil {
		p.err = err
		telemetry.Error("lambda.http.bootstrap_failed", map[string]any{"err": err.Error()})
		return
	}
	p.adapter = ginadapter.NewV2(router)
}

func (p *proxy) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	p.once.Do(p.init)
	if p.err != nil {
		body, _ := json.Marshal(map[string]any{
			"error": map[string]string{"code": "bootstrap_failed", "message": "Service unavailable"},
		})
		return events.APIGatewayV2HTTPResponse{
			StatusCode: http.StatusServiceUnavailable,
			Body:       string(body),
			Headers:    map[string]string{"Content-Type": "application/json", "Retry-After": "30"},
		}, nil
	}
	return p.adapter.ProxyWithContext(ctx, req)
}

func main() {
	p := &proxy{build: func() (*gin.Engine, error) {
		app, err := bootstrap.Build(config.Load())
		if err != nil {
			return nil, err
		}
		return app.Router, nil
	}}
	lambda.Start(p.Handle)
}
