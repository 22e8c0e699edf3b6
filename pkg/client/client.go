package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lwm2m-go/lwm2m-client/pkg/config"
	"github.com/lwm2m-go/lwm2m-client/pkg/credential"
	"github.com/lwm2m-go/lwm2m-client/pkg/interaction"
	"github.com/lwm2m-go/lwm2m-client/pkg/log"
	"github.com/lwm2m-go/lwm2m-client/pkg/metrics"
	"github.com/lwm2m-go/lwm2m-client/pkg/model"
	"github.com/lwm2m-go/lwm2m-client/pkg/persistence"
	"github.com/lwm2m-go/lwm2m-client/pkg/repository"
	"github.com/lwm2m-go/lwm2m-client/pkg/store"
)

// MaxLineSize bounds one transport line.
const MaxLineSize = 1 << 20

// ErrNotStarted is returned by operations that need a built repository.
var ErrNotStarted = errors.New("client not started")

// credentialObjects are the objects saved once bootstrapping completes.
var credentialObjects = []uint16{model.ObjectSecurity, model.ObjectServer, model.ObjectAccessControl}

// Options carries dependencies that do not come from the configuration file.
type Options struct {
	Logger         *slog.Logger
	ProtocolLogger log.Logger
	Metrics        *metrics.Metrics

	// Sources are extra definition layers placed after the object files.
	Sources []map[string]any

	// CredentialWorkFactor overrides the scrypt work factor for passphrase
	// credential keys.
	CredentialWorkFactor int
}

// Client is a running LWM2M client.
type Client struct {
	cfg       config.Config
	opts      Options
	logger    *slog.Logger
	plog      log.Logger
	sessionID string

	creds     *credential.Store
	snapshots *persistence.SnapshotStore

	store *store.Store
	disp  *interaction.Dispatcher

	mu      sync.Mutex
	started bool
}

// New creates a client. The store is not ready until Start returns.
func New(cfg config.Config, opts Options) *Client {
	c := &Client{
		cfg:       cfg,
		opts:      opts,
		logger:    opts.Logger,
		plog:      log.OrNoop(opts.ProtocolLogger),
		sessionID: uuid.NewString(),
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if cfg.Credentials.Path != "" {
		c.creds = &credential.Store{
			Path:       cfg.Credentials.Path,
			Key:        cfg.Credentials.Key,
			WorkFactor: opts.CredentialWorkFactor,
			Logger:     c.logger,
		}
	}
	if cfg.StateFile != "" {
		c.snapshots = persistence.NewSnapshotStore(cfg.StateFile)
	}

	c.store = store.New(cfg.StoreConfig(c.logger))
	c.store.OnEvent(c.handleStoreEvent)

	dcfg := interaction.Config{
		ServerID:       cfg.Server.ID,
		SessionID:      c.sessionID,
		Logger:         c.logger,
		ProtocolLogger: c.plog,
	}
	if opts.Metrics != nil {
		dcfg.Observer = opts.Metrics
	}
	c.disp = interaction.NewDispatcher(c.store, dcfg)
	c.disp.OnState(c.handleState)
	return c
}

// Start builds the repository and makes the store ready.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}

	sources, err := c.sources()
	if err != nil {
		return err
	}

	opts := c.cfg.BuildOptions(sources, nil, c.logger)
	if c.creds != nil {
		opts.Credentials = c.creds
	}

	repo, err := repository.Build(ctx, opts)
	if err != nil {
		return fmt.Errorf("build repository: %w", err)
	}
	c.store.SetRepository(repo)
	c.started = true

	if c.opts.Metrics != nil {
		c.opts.Metrics.SetResources(c.store.Len())
	}
	c.plog.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  c.sessionID,
		Layer:      log.LayerStore,
		Category:   log.CategoryState,
		ClientName: c.cfg.ClientName,
		ServerID:   c.cfg.Server.ID,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityStore,
			NewState: "ready",
		},
	})
	c.logger.InfoContext(ctx, "client started",
		"client", c.cfg.ClientName,
		"session", c.sessionID,
		"credentials", repo.CredentialsLoaded,
		"extra_objects", c.store.ExtraObjectIDs())
	return nil
}

// sources returns the snapshot, object files and in-memory layers in
// precedence order.
func (c *Client) sources() ([]map[string]any, error) {
	var layers []map[string]any
	if c.snapshots != nil {
		snap, err := c.snapshots.Load()
		if err != nil {
			c.logger.Warn("ignoring state snapshot", "path", c.snapshots.Path(), "error", err)
		} else if snap != nil {
			layers = append(layers, snap)
		}
	}

	files, err := repository.LoadFiles(c.cfg.Objects...)
	if err != nil {
		return nil, fmt.Errorf("load object definitions: %w", err)
	}
	layers = append(layers, files...)
	return append(layers, c.opts.Sources...), nil
}

// Run serves transport lines from r and writes responses to w until r is
// exhausted or ctx ends. Lines are handled one at a time.
func (c *Client) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	out := bufio.NewWriter(w)
	var lastHeartbeat time.Time
	for {
		select {
		case <-ctx.Done():
			c.disp.Disconnect(context.WithoutCancel(ctx), "context done")
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				c.disp.Disconnect(ctx, "transport closed")
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if line == "" {
				continue
			}

			c.plog.Log(log.Event{
				Timestamp: time.Now(),
				SessionID: c.sessionID,
				Direction: log.DirectionIn,
				Layer:     log.LayerTransport,
				Category:  log.CategoryMessage,
				Frame:     frame(line),
			})

			resp, ok := c.disp.HandleLine(ctx, line)
			if ok {
				if _, err := out.WriteString(resp + "\n"); err != nil {
					return fmt.Errorf("write response: %w", err)
				}
				if err := out.Flush(); err != nil {
					return fmt.Errorf("write response: %w", err)
				}
			}

			if hb := c.disp.LastHeartbeat(); c.opts.Metrics != nil && hb.After(lastHeartbeat) {
				c.opts.Metrics.ObserveHeartbeat(hb)
				lastHeartbeat = hb
			}
		}
	}
}

// maxFrameData bounds the raw bytes kept in a protocol log frame.
const maxFrameData = 256

func frame(line string) *log.FrameEvent {
	f := &log.FrameEvent{Size: len(line)}
	data := []byte(line)
	if len(data) > maxFrameData {
		data = data[:maxFrameData]
		f.Truncated = true
	}
	f.Data = data
	return f
}

// SaveCredentials stores the Security, Server and Access Control objects.
// It reports false when no credential store is configured or saving fails.
func (c *Client) SaveCredentials(ctx context.Context) bool {
	if c.creds == nil || !c.store.Ready() {
		return false
	}
	data, err := c.store.Export(ctx, credentialObjects...)
	if err != nil {
		c.logger.WarnContext(ctx, "export credentials", "error", err)
		return false
	}
	ok := c.creds.Save(data)
	if ok {
		c.logCredentials("saved")
	}
	return ok
}

// ClearCredentials deletes the stored credentials so the next start
// bootstraps again.
func (c *Client) ClearCredentials() bool {
	if c.creds == nil {
		return false
	}
	ok := c.creds.Delete()
	if ok {
		c.logCredentials("cleared")
	}
	return ok
}

func (c *Client) logCredentials(state string) {
	c.plog.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: c.sessionID,
		Layer:     log.LayerService,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityCredentials,
			NewState: state,
		},
	})
}

// SaveSnapshot writes the non-credential objects to the state file.
func (c *Client) SaveSnapshot(ctx context.Context) error {
	if c.snapshots == nil {
		return nil
	}
	if !c.store.Ready() {
		return ErrNotStarted
	}
	ids := append([]uint16{model.ObjectDevice}, c.store.ExtraObjectIDs()...)
	data, err := c.store.Export(ctx, ids...)
	if err != nil {
		return err
	}
	return c.snapshots.Save(data)
}

// Close saves the snapshot and releases every resource.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	started := c.started
	c.started = false
	c.mu.Unlock()
	if !started {
		return nil
	}

	err := c.SaveSnapshot(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "save state snapshot", "error", err)
	}
	c.store.Close(ctx)
	return err
}

// Store returns the object store.
func (c *Client) Store() *store.Store {
	return c.store
}

// Dispatcher returns the request dispatcher.
func (c *Client) Dispatcher() *interaction.Dispatcher {
	return c.disp
}

// SessionID identifies this client run in protocol logs.
func (c *Client) SessionID() string {
	return c.sessionID
}

func (c *Client) handleStoreEvent(e store.Event) {
	c.plog.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  c.sessionID,
		Layer:      log.LayerStore,
		Category:   log.CategoryObject,
		ClientName: c.cfg.ClientName,
		ServerID:   e.ServerID,
		Object: &log.ObjectEvent{
			URI:    e.URI,
			Type:   e.Type.String(),
			Remote: e.Remote,
		},
	})

	if m := c.opts.Metrics; m != nil {
		m.ObserveEvent(e)
		switch e.Type {
		case store.EventCreated, store.EventDeleted, store.EventRestored, store.EventUpdated:
			m.SetResources(c.store.Len())
		}
	}
}

func (c *Client) handleState(e interaction.StateEvent) {
	if m := c.opts.Metrics; m != nil {
		m.ObserveState(e.State.String())
	}
	if e.Previous == interaction.StateBootstrapping && e.State.IsRegistered() {
		ctx := context.Background()
		if c.SaveCredentials(ctx) {
			c.logger.InfoContext(ctx, "bootstrap credentials stored", "state", e.State.String())
		}
	}
}
