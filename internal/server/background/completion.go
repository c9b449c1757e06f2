package background

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/url"
	"time"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"github.com/dmitrijs2005/docbox/internal/common"
	"github.com/dmitrijs2005/docbox/internal/dbx"
	"github.com/dmitrijs2005/docbox/internal/logging"
	"github.com/dmitrijs2005/docbox/internal/server/metrics"
	"github.com/dmitrijs2005/docbox/internal/server/models"
	"github.com/dmitrijs2005/docbox/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/docbox/internal/server/services"
	"github.com/dmitrijs2005/docbox/internal/server/storage"
	"golang.org/x/sync/errgroup"
)

type poolSource interface {
	RootPool(ctx context.Context) (*sql.DB, error)
	TenantPool(ctx context.Context, t *models.Tenant) (*sql.DB, error)
}

type resourceFactory interface {
	For(t *models.Tenant, db dbx.DB) services.TenantResources
}

type lifecycle interface {
	Complete(ctx context.Context, res services.TenantResources, key string) (services.CompleteOutcome, error)
	PurgeExpired(ctx context.Context, db dbx.DBTX, st storage.Storage, now time.Time) (int, error)
}

// Completion finalizes presigned uploads from object-created notifications.
type Completion struct {
	pools       poolSource
	repos       repomanager.RepositoryManager
	resources   resourceFactory
	lifecycle   lifecycle
	metrics     *metrics.Metrics
	log         logging.Logger
	concurrency int
}

func NewCompletion(pools poolSource, repos repomanager.RepositoryManager, resources resourceFactory,
	lc lifecycle, m *metrics.Metrics, log logging.Logger, concurrency int) *Completion {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Completion{
		pools:       pools,
		repos:       repos,
		resources:   resources,
		lifecycle:   lc,
		metrics:     m,
		log:         log,
		concurrency: concurrency,
	}
}

// findTenant maps a bucket to its tenant. It reads the directory directly;
// the tenant cache is for the request path.
func (c *Completion) findTenant(ctx context.Context, bucket string) (*models.Tenant, error) {
	root, err := c.pools.RootPool(ctx)
	if err != nil {
		return nil, err
	}
	return c.repos.Tenants(root).FindByBucket(ctx, bucket)
}

// ObjectCreated handles one notification. rawKey is URL encoded as S3
// delivers it.
func (c *Completion) ObjectCreated(ctx context.Context, bucket, rawKey string) {
	log := c.log.With("bucket", bucket)

	key, err := url.QueryUnescape(rawKey)
	if err != nil {
		log.Warn(ctx, "undecodable object key, notification dropped", "file_key", rawKey, "error", err)
		return
	}
	log = log.With("file_key", key)

	tenant, err := c.findTenant(ctx, bucket)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			log.Warn(ctx, "no tenant owns bucket, notification dropped")
			return
		}
		log.Error(ctx, "failed to resolve tenant for bucket", "error", err)
		return
	}
	log = log.With("tenant_id", tenant.ID, "tenant_env", tenant.Env)

	db, err := c.pools.TenantPool(ctx, tenant)
	if err != nil {
		log.Error(ctx, "failed to open tenant database", "error", err)
		return
	}

	outcome, err := c.lifecycle.Complete(ctx, c.resources.For(tenant, db), key)
	if err != nil {
		c.metrics.Completions.WithLabelValues("error").Inc()
		log.Error(ctx, "failed to complete upload", "error", err)
		return
	}
	c.metrics.Completions.WithLabelValues(outcome.String()).Inc()
	log.Debug(ctx, "notification handled", "outcome", outcome.String())
}

func (c *Completion) handleRecords(ctx context.Context, records []lambdaevents.S3EventRecord) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, rec := range records {
		g.Go(func() error {
			c.ObjectCreated(ctx, rec.S3.Bucket.Name, rec.S3.Object.Key)
			return nil
		})
	}
	_ = g.Wait()
}

// HandleS3Event is the lambda entry for direct S3 notifications.
func (c *Completion) HandleS3Event(ctx context.Context, ev lambdaevents.S3Event) error {
	c.handleRecords(ctx, ev.Records)
	return nil
}

// HandleSQSEvent is the lambda entry for S3 notifications delivered through
// an SQS queue. Bodies that are not S3 events (such as s3:TestEvent) are
// skipped.
func (c *Completion) HandleSQSEvent(ctx context.Context, ev lambdaevents.SQSEvent) error {
	var records []lambdaevents.S3EventRecord
	for _, msg := range ev.Records {
		var s3ev lambdaevents.S3Event
		if err := json.Unmarshal([]byte(msg.Body), &s3ev); err != nil {
			c.log.Warn(ctx, "unreadable queue message, skipped", "message_id", msg.MessageId, "error", err)
			continue
		}
		records = append(records, s3ev.Records...)
	}
	c.handleRecords(ctx, records)
	return nil
}
