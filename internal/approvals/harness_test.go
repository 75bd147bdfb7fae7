package approvals_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JaimeStill/casse/internal/approvals"
	"github.com/JaimeStill/casse/internal/catalog"
	"github.com/JaimeStill/casse/internal/notifications"
	"github.com/JaimeStill/casse/internal/pending"
	"github.com/JaimeStill/casse/pkg/mail"
	"github.com/JaimeStill/casse/pkg/metrics"
	"github.com/JaimeStill/casse/pkg/storage"
)

const approver = "mod@casse.test"

type memCatalog struct {
	mu      sync.Mutex
	entries []catalog.Entry
	err     error
}

func (c *memCatalog) Insert(ctx context.Context, e catalog.Entry) (*catalog.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	e.ID = uuid.New()
	c.entries = append(c.entries, e)
	return &e, nil
}

func (c *memCatalog) setErr(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

func (c *memCatalog) byTitle(title string) []catalog.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []catalog.Entry
	for _, e := range c.entries {
		if e.Title == title {
			out = append(out, e)
		}
	}
	return out
}

func (c *memCatalog) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// flakyBlobs wraps the memory store with per-category failures.
type flakyBlobs struct {
	*storage.Memory
	putErr    map[storage.Category]error
	deleteErr map[storage.Category]error
}

func (b *flakyBlobs) Put(ctx context.Context, owner string, category storage.Category, filename string, r io.Reader, size int64, contentType string) (string, error) {
	if err := b.putErr[category]; err != nil {
		return "", err
	}
	return b.Memory.Put(ctx, owner, category, filename, r, size, contentType)
}

func (b *flakyBlobs) Delete(ctx context.Context, owner string, category storage.Category, key string) error {
	if err := b.deleteErr[category]; err != nil {
		return err
	}
	return b.Memory.Delete(ctx, owner, category, key)
}

// flakyPending wraps the redis store with a failing Put.
type flakyPending struct {
	*pending.RedisStore
	putErr error
}

func (p *flakyPending) Put(ctx context.Context, sub pending.Submission, ttl time.Duration) (*pending.Submission, error) {
	if p.putErr != nil {
		return nil, p.putErr
	}
	return p.RedisStore.Put(ctx, sub, ttl)
}

type harness struct {
	sys     approvals.System
	cfg     *approvals.Config
	links   *approvals.Links
	mr      *miniredis.Miniredis
	pending *pending.RedisStore
	store   *flakyPending
	blobs   *flakyBlobs
	catalog *memCatalog
	mail    *mail.Recorder
	metrics *metrics.Metrics
	logs    *observer.ObservedLogs
}

func newHarness(t *testing.T, configure ...func(*approvals.Config)) *harness {
	t.Helper()

	cfg := &approvals.Config{
		Approvers: []string{approver},
		BaseURL:   "http://casse.test",
	}
	for _, fn := range configure {
		fn(cfg)
	}
	require.NoError(t, cfg.Finalize(nil))

	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	h := &harness{
		cfg:     cfg,
		links:   approvals.NewLinks(cfg.BaseURL+"/api", cfg.LinkSecret, cfg.PendingTTLDuration()),
		mr:      mr,
		pending: pending.NewRedisStore(client, "casse", logger),
		blobs: &flakyBlobs{
			Memory:    storage.NewMemory(logger),
			putErr:    map[storage.Category]error{},
			deleteErr: map[storage.Category]error{},
		},
		catalog: &memCatalog{},
		mail:    &mail.Recorder{},
		metrics: metrics.New(),
		logs:    logs,
	}

	h.store = &flakyPending{RedisStore: h.pending}

	h.sys = approvals.New(cfg, approvals.Deps{
		Pending:  h.store,
		Blobs:    h.blobs,
		Catalog:  h.catalog,
		Notifier: notifications.New(h.mail, cfg.Approvers, logger),
		Links:    h.links,
		Metrics:  h.metrics,
		Logger:   logger,
	})

	return h
}

func file(name, contentType, data string) *approvals.File {
	return &approvals.File{
		Filename:    name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Body:        strings.NewReader(data),
	}
}

func submitCmd(owner, title, filename string) approvals.SubmitCommand {
	return approvals.SubmitCommand{
		Owner:   owner,
		Title:   title,
		Artists: "Band",
		Album:   "Album",
		Tags:    "rock",
		Primary: file(filename, "audio/mpeg", "audio-bytes"),
	}
}

func (h *harness) submit(t *testing.T, cmd approvals.SubmitCommand) *approvals.Receipt {
	t.Helper()
	receipt, err := h.sys.Submit(context.Background(), cmd)
	require.NoError(t, err)
	return receipt
}

// recipients returns the To lists of every message sent so far.
func (h *harness) recipients() [][]string {
	var out [][]string
	for _, m := range h.mail.Messages() {
		out = append(out, m.To)
	}
	return out
}
