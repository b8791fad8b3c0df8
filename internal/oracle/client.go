package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/danielpatrickdp/conflict-twin/internal/dialogue"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region methods
const (
	ServiceName = "conflict.nlp.v1.NLPService"

	methodSentiment = "/" + ServiceName + "/Sentiment"
	methodEmotions  = "/" + ServiceName + "/Emotions"
	methodFeatures  = "/" + ServiceName + "/LinguisticFeatures"
)

// #endregion methods

// #region client-struct
// Client talks to the Python NLP service over gRPC. Requests are
// {"text": ...} structs and responses are free-form structpb values that
// are normalized here and nowhere else.
type Client struct {
	conn    *grpc.ClientConn
	cc      grpc.ClientConnInterface
	health  healthpb.HealthClient
	timeout time.Duration
	logger  *slog.Logger

	// Set by RequireReady. ready latches once a health check has passed.
	gated bool
	mu    sync.Mutex
	ready bool
}

// #endregion client-struct

// #region constructor
// NewClient connects to the NLP service. timeout bounds each call; zero disables it.
func NewClient(addr string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	c := NewClientWithConn(conn, timeout, logger)
	c.conn = conn
	return c, nil
}

// NewClientWithConn creates a Client over an injected connection.
// Used for testing without a real gRPC server.
func NewClientWithConn(cc grpc.ClientConnInterface, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cc:      cc,
		health:  healthpb.NewHealthClient(cc),
		timeout: timeout,
		logger:  logger.With(slog.String("component", "oracle")),
	}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection if this client owns one.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region ready
// Ready asks the service's health endpoint whether the models are loaded.
func (c *Client) Ready(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return classify("health check", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: service status %s", ErrUnavailable, resp.GetStatus())
	}
	return nil
}

// RequireReady makes the client confirm readiness before its first call.
// Until a health check passes, every call checks again and fails with
// ErrUnavailable instead of reaching a service that is still loading.
func (c *Client) RequireReady() *Client {
	c.gated = true
	return c
}

func (c *Client) ensureReady(ctx context.Context) error {
	if !c.gated {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ready {
		return nil
	}
	if err := c.Ready(ctx); err != nil {
		c.logger.Warn("oracle not ready", "err", err)
		return err
	}
	c.ready = true
	return nil
}

// #endregion ready

// #region sentiment
// Sentiment classifies text as positive or negative.
func (c *Client) Sentiment(ctx context.Context, text string) (dialogue.Sentiment, error) {
	raw, err := c.invoke(ctx, methodSentiment, text)
	if err != nil {
		return dialogue.Sentiment{}, err
	}
	return NormalizeSentiment(raw)
}

// #endregion sentiment

// #region emotions
// Emotions returns the emotion distribution for text.
func (c *Client) Emotions(ctx context.Context, text string) (dialogue.Emotions, error) {
	raw, err := c.invoke(ctx, methodEmotions, text)
	if err != nil {
		return nil, err
	}
	return NormalizeEmotions(raw)
}

// #endregion emotions

// #region features
// LinguisticFeatures extracts pronoun, question, and entity counts for text.
func (c *Client) LinguisticFeatures(ctx context.Context, text string) (dialogue.LinguisticFeatures, error) {
	raw, err := c.invoke(ctx, methodFeatures, text)
	if err != nil {
		return dialogue.LinguisticFeatures{}, err
	}
	return NormalizeFeatures(raw)
}

// #endregion features

// #region helpers
func (c *Client) invoke(ctx context.Context, method, text string) (*structpb.Value, error) {
	if err := c.ensureReady(ctx); err != nil {
		return nil, err
	}
	req, err := structpb.NewStruct(map[string]any{"text": text})
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	resp := &structpb.Value{}
	if err := c.cc.Invoke(ctx, method, req, resp); err != nil {
		c.logger.Warn("oracle call failed", "method", method, "err", err)
		return nil, classify(method, err)
	}
	c.logger.Debug("oracle call", "method", method, "elapsed_ms", time.Since(start).Milliseconds())
	return resp, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// classify maps transport failures onto ErrUnavailable so callers can fail
// fast; anything else is returned wrapped as-is.
func classify(op string, err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.FailedPrecondition, codes.Unimplemented:
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	case codes.InvalidArgument, codes.DataLoss:
		return fmt.Errorf("%s: %w: %w", op, ErrDataFormat, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// #endregion helpers
