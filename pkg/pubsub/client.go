// Package pubsub wraps the Pub/Sub v2 client with the storefront topics and
// subscriptions.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/gcp"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	kindTopics        = "topics"
	kindSubscriptions = "subscriptions"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoSubscriptions   = errors.New("pubsub subscription name is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// Client hands out subscribers and cached publishers. Publishers batch in the
// background, so one per topic is kept and stopped on Close.
type Client struct {
	ps        *pubsub.Client
	projectID string
	cfg       config.PubSubConfig

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient connects and checks that every configured subscription exists.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID, ok := gcp.ProjectID(gcpCfg)
	if !ok {
		return nil, errProjectIDRequired
	}
	ps, err := pubsub.NewClient(ctx, projectID, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	c := &Client{
		ps:         ps,
		projectID:  projectID,
		cfg:        cfg,
		publishers: map[string]*pubsub.Publisher{},
	}
	if err := c.Ping(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	logg.Info(logg.WithFields(ctx, map[string]any{
		"pubsub_project":       projectID,
		"pubsub_subscriptions": strings.Join(subscriptionNames(cfg), ","),
	}), "pubsub client ready")
	return c, nil
}

func subscriptionNames(cfg config.PubSubConfig) []string {
	var names []string
	for _, name := range []string{cfg.OrderEmailSubscription, cfg.OrderAuditSubscription} {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}

// Ping looks up the configured subscriptions and, when set, the orders topic.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.ps == nil {
		return errNotInitialized
	}
	names := subscriptionNames(c.cfg)
	if len(names) == 0 {
		return errNoSubscriptions
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		g.Go(func() error {
			_, err := c.ps.SubscriptionAdminClient.GetSubscription(gctx, &pubsubpb.GetSubscriptionRequest{
				Subscription: resourceName(c.projectID, kindSubscriptions, name),
			})
			return describeLookup("subscription", name, err)
		})
	}
	if topic := strings.TrimSpace(c.cfg.OrdersTopic); topic != "" {
		g.Go(func() error {
			_, err := c.ps.TopicAdminClient.GetTopic(gctx, &pubsubpb.GetTopicRequest{
				Topic: resourceName(c.projectID, kindTopics, topic),
			})
			return describeLookup("topic", topic, err)
		})
	}
	return g.Wait()
}

func describeLookup(kind, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s %q does not exist", kind, name)
	default:
		return fmt.Errorf("check %s %q: %w", kind, name, err)
	}
}

// Subscription returns a subscriber for an id or full resource name, with
// flow control taken from the config.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c == nil || c.ps == nil {
		return nil
	}
	fullName := resourceName(c.projectID, kindSubscriptions, name)
	if fullName == "" {
		return nil
	}
	sub := c.ps.Subscriber(fullName)
	if c.cfg.MaxOutstandingMessages > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = c.cfg.MaxOutstandingMessages
	}
	return sub
}

func (c *Client) OrderEmailSubscription() *pubsub.Subscriber {
	if c == nil {
		return nil
	}
	return c.Subscription(c.cfg.OrderEmailSubscription)
}

func (c *Client) OrderAuditSubscription() *pubsub.Subscriber {
	if c == nil {
		return nil
	}
	return c.Subscription(c.cfg.OrderAuditSubscription)
}

// Publisher returns the shared publisher for a topic id or full resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.ps == nil {
		return nil
	}
	fullName := resourceName(c.projectID, kindTopics, name)
	if fullName == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.publishers[fullName]; ok {
		return p
	}
	p := c.ps.Publisher(fullName)
	c.publishers[fullName] = p
	return p
}

// Close flushes pending publishes and closes the connection.
func (c *Client) Close() error {
	if c == nil || c.ps == nil {
		return nil
	}
	c.mu.Lock()
	for name, p := range c.publishers {
		p.Stop()
		delete(c.publishers, name)
	}
	c.mu.Unlock()
	return c.ps.Close()
}

// resourceName expands an id to projects/<project>/<kind>/<id>. Full
// resource names pass through unchanged.
func resourceName(projectID, kind, name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/"+kind+"/") {
		return n
	}
	p := strings.TrimSpace(projectID)
	if p == "" {
		return ""
	}
	return "projects/" + p + "/" + kind + "/" + n
}
