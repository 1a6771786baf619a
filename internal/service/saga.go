package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/schoolhub-io/schoolhub-api/internal/identity"
	"github.com/schoolhub-io/schoolhub-api/pkg/config"
	appErrors "github.com/schoolhub-io/schoolhub-api/pkg/errors"
	"github.com/schoolhub-io/schoolhub-api/pkg/jobs"
)

const (
	cleanupDeleteAccount  = "identity_delete_account"
	cleanupRestoreAccount = "identity_restore_account"
)

type cleanupPayload struct {
	Kind    string
	UserID  string
	Restore *identity.UpdateUserInput
}

// Compensator undoes an already-committed identity-provider step when a
// later local step fails. Failed compensations are retried on a
// background queue; exhaustion is logged for manual intervention.
type Compensator struct {
	provider identity.Provider
	queue    *jobs.Queue
	logger   *zap.Logger
}

// NewCompensator builds a compensator with its retry queue.
func NewCompensator(provider identity.Provider, cfg config.CleanupConfig, logger *zap.Logger) *Compensator {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Compensator{provider: provider, logger: logger}
	c.queue = jobs.NewQueue("identity-cleanup", c.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return c
}

// Start begins background retry processing.
func (c *Compensator) Start(ctx context.Context) {
	c.queue.Start(ctx)
}

// Stop drains the retry workers.
func (c *Compensator) Stop() {
	c.queue.Stop()
}

// DeleteAccount compensates a provider create after a failed local
// insert. When the immediate attempt fails the deletion is queued and
// the caller gets the distinct partial-failure kind to report.
func (c *Compensator) DeleteAccount(ctx context.Context, userID string) error {
	if err := c.provider.DeleteUser(ctx, userID); err != nil {
		c.logger.Error("compensating account delete failed, queueing retry",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		c.enqueue(cleanupPayload{Kind: cleanupDeleteAccount, UserID: userID})
		return appErrors.Clone(appErrors.ErrPartialFailure, "account provisioning could not be fully rolled back; manual cleanup may be required")
	}
	return nil
}

// RestoreAccount compensates a provider update after a failed local
// write by pushing the previous profile fields back.
func (c *Compensator) RestoreAccount(ctx context.Context, userID string, previous identity.UpdateUserInput) error {
	if err := c.provider.UpdateUser(ctx, userID, previous); err != nil {
		c.logger.Error("compensating account restore failed, queueing retry",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		c.enqueue(cleanupPayload{Kind: cleanupRestoreAccount, UserID: userID, Restore: &previous})
		return appErrors.Clone(appErrors.ErrPartialFailure, "account changes could not be fully rolled back; manual cleanup may be required")
	}
	return nil
}

func (c *Compensator) enqueue(payload cleanupPayload) {
	job := jobs.Job{ID: uuid.NewString(), Type: payload.Kind, Payload: payload}
	if err := c.queue.Enqueue(job); err != nil {
		c.logger.Error("failed to queue identity cleanup, manual cleanup required",
			zap.String("kind", payload.Kind),
			zap.String("user_id", payload.UserID),
			zap.Error(err),
		)
	}
}

func (c *Compensator) handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(cleanupPayload)
	if !ok {
		return fmt.Errorf("unexpected cleanup payload %T", job.Payload)
	}

	switch payload.Kind {
	case cleanupDeleteAccount:
		return c.provider.DeleteUser(ctx, payload.UserID)
	case cleanupRestoreAccount:
		if payload.Restore == nil {
			return fmt.Errorf("restore payload missing for %s", payload.UserID)
		}
		return c.provider.UpdateUser(ctx, payload.UserID, *payload.Restore)
	}
	return fmt.Errorf("unknown cleanup kind %s", payload.Kind)
}
