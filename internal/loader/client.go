// Package loader executes the orchestrator's initialization commands
// against the annotation backend. Every command is fire-and-forget: the
// result comes back to the tick loop as an event, and failures are queued
// as error notices, never returned.
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/calder-vision/atrium/internal/cache"
	"github.com/calder-vision/atrium/internal/notify"
	"github.com/calder-vision/atrium/internal/plugins"
	"github.com/calder-vision/atrium/internal/shell"
)

// maxBodySize caps how much of a backend response is read.
const maxBodySize = 10 << 20

// Poster receives completion events. Satisfied by *shell.Loop.
type Poster interface {
	Post(shell.Event)
}

// backend endpoint paths per resource.
var resourcePaths = map[shell.Resource]string{
	shell.ResourceUser:           "/api/users/self",
	shell.ResourceUserAgreements: "/api/user-agreements",
	shell.ResourceAuthActions:    "/api/auth/actions",
	shell.ResourceFormats:        "/api/server/formats",
	shell.ResourceAbout:          "/api/server/about",
	shell.ResourceModels:         "/api/lambda/functions",
}

// operation names per command, used as the error-notice slot key.
var operationNames = map[shell.Command]string{
	shell.CmdVerifyIdentity:     "verifyIdentity",
	shell.CmdLoadUserAgreements: "loadUserAgreements",
	shell.CmdLoadAuthActions:    "loadAuthActions",
	shell.CmdLoadFormats:        "loadFormats",
	shell.CmdLoadAbout:          "loadAbout",
	shell.CmdInitModels:         "initModels",
	shell.CmdInitPlugins:        "initPlugins",
}

// Client loads resources over HTTP and plugin manifests from disk, writing
// payloads through the cache.
type Client struct {
	http     *http.Client
	baseURL  string
	poster   Poster
	errors   *notify.Queue
	messages *notify.Queue
	store    *cache.Store
	registry *plugins.Registry
	log      *slog.Logger
}

// New creates a loader client. store may be nil to disable write-through
// caching.
func New(baseURL string, timeout time.Duration, poster Poster, errors, messages *notify.Queue, store *cache.Store, registry *plugins.Registry, log *slog.Logger) *Client {
	return &Client{
		http:     &http.Client{Timeout: timeout},
		baseURL:  strings.TrimRight(baseURL, "/"),
		poster:   poster,
		errors:   errors,
		messages: messages,
		store:    store,
		registry: registry,
		log:      log,
	}
}

// Dispatch starts the command in the background. It never blocks and never
// returns an error: completions and failures flow back as events.
func (c *Client) Dispatch(ctx context.Context, cmd shell.Command, epoch uuid.UUID) {
	switch cmd {
	case shell.CmdVerifyIdentity:
		go c.verifyIdentity(ctx, epoch)
	case shell.CmdInitPlugins:
		go c.initPlugins(epoch)
	default:
		go c.fetchResource(ctx, cmd, epoch)
	}
}

// verifyIdentity resolves the current identity. An anonymous session (401
// or 403) is a normal completion with a nil identity, not an error.
func (c *Client) verifyIdentity(ctx context.Context, epoch uuid.UUID) {
	res := shell.ResourceUser
	body, status, err := c.get(ctx, resourcePaths[res])
	if err != nil {
		c.fail(res, shell.CmdVerifyIdentity, epoch, "Could not verify the current session", err)
		return
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		c.poster.Post(shell.Event{Kind: shell.EventCompleted, Resource: res, Epoch: epoch})
		return
	}
	if status != http.StatusOK {
		c.fail(res, shell.CmdVerifyIdentity, epoch, "Could not verify the current session",
			fmt.Errorf("backend returned status %d", status))
		return
	}

	var id shell.Identity
	if err := json.Unmarshal(body, &id); err != nil {
		c.fail(res, shell.CmdVerifyIdentity, epoch, "Could not verify the current session", err)
		return
	}
	c.cachePut(res, body)
	c.poster.Post(shell.Event{Kind: shell.EventCompleted, Resource: res, Epoch: epoch, Identity: &id})
}

// fetchResource loads one backend resource and completes or fails it.
func (c *Client) fetchResource(ctx context.Context, cmd shell.Command, epoch uuid.UUID) {
	res := shell.CommandResource(cmd)
	body, status, err := c.get(ctx, resourcePaths[res])
	if err == nil && status != http.StatusOK {
		err = fmt.Errorf("backend returned status %d", status)
	}
	if err != nil {
		c.fail(res, cmd, epoch, fmt.Sprintf("Could not load %s from the server", res), err)
		return
	}
	c.cachePut(res, body)
	c.poster.Post(shell.Event{Kind: shell.EventCompleted, Resource: res, Epoch: epoch})
}

// initPlugins reads the local manifest directory.
func (c *Client) initPlugins(epoch uuid.UUID) {
	res := shell.ResourcePlugins
	manifests, err := c.registry.Load()
	if err != nil {
		c.fail(res, shell.CmdInitPlugins, epoch, "Could not initialize installed plugins", err)
		return
	}
	if payload, err := json.Marshal(manifests); err == nil {
		c.cachePut(res, payload)
	}
	c.log.Debug("plugins initialized", slog.Int("count", len(manifests)))
	c.poster.Post(shell.Event{Kind: shell.EventCompleted, Resource: res, Epoch: epoch})
}

// CheckBackend probes the backend once at boot and queues an informational
// notice when it is unreachable. Boot is never blocked on the result.
func (c *Client) CheckBackend(ctx context.Context) {
	_, _, err := c.get(ctx, "/api/server/about")
	if err != nil {
		c.messages.Push("platform", "backendUnreachable", notify.Notice{
			Text: "The annotation backend is not reachable; the shell will keep retrying",
		})
	}
}

func (c *Client) get(ctx context.Context, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// fail queues the error notice keyed by (resource, operation) and posts the
// failure event so the resource becomes retryable on the next tick.
func (c *Client) fail(res shell.Resource, cmd shell.Command, epoch uuid.UUID, text string, err error) {
	c.log.Warn("load failed",
		slog.String("resource", string(res)),
		slog.String("error", err.Error()))
	c.errors.Push(string(res), operationNames[cmd], notify.Notice{
		Text:   text,
		Detail: err.Error(),
	})
	c.poster.Post(shell.Event{Kind: shell.EventFailed, Resource: res, Epoch: epoch})
}

func (c *Client) cachePut(res shell.Resource, payload []byte) {
	if c.store == nil {
		return
	}
	if err := c.store.Put(string(res), payload); err != nil {
		c.log.Warn("cache write failed",
			slog.String("resource", string(res)),
			slog.String("error", err.Error()))
	}
}
