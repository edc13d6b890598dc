package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/respiralivre/api/models"
	"github.com/respiralivre/api/utils"
)

const fanOutLimit = 8

// TokenStore is the persistence the dispatcher needs.
type TokenStore interface {
	TokensForUser(ctx context.Context, userID uuid.UUID) ([]models.PushToken, error)
	DeleteTokens(ctx context.Context, tokens []string) error
}

// Dispatcher fans a message out to every registered device.
// Delivery is best effort: no retries, and one failing device never stops the others.
type Dispatcher struct {
	store   TokenStore
	sender  Sender
	limiter *rate.Limiter
}

// NewDispatcher paces provider calls at perSecond (burst of the same size).
func NewDispatcher(store TokenStore, sender Sender, perSecond int) *Dispatcher {
	if perSecond <= 0 {
		perSecond = 50
	}
	return &Dispatcher{
		store:   store,
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(perSecond), perSecond),
	}
}

// SendToUser sends msg to all of the user's devices, then deletes tokens the provider rejected.
func (d *Dispatcher) SendToUser(ctx context.Context, userID uuid.UUID, msg Message) (Result, error) {
	tokens, err := d.store.TokensForUser(ctx, userID)
	if err != nil {
		return Result{}, utils.DatabaseError("failed to load push tokens", err)
	}

	var (
		res     Result
		invalid []string
		waitErr error
	)
	for _, t := range tokens {
		if waitErr = d.limiter.Wait(ctx); waitErr != nil {
			break
		}
		err := d.sender.Send(ctx, t.Token, msg)
		switch {
		case err == nil:
			res.Sent++
		case errors.Is(err, ErrInvalidToken):
			res.Failed++
			invalid = append(invalid, t.Token)
		default:
			res.Failed++
			utils.Logger.Warn("push delivery failed", zap.String("user_id", userID.String()), zap.Error(err))
		}
	}

	if len(invalid) > 0 {
		// the request context may already be done, pruning must still happen
		if err := d.store.DeleteTokens(context.WithoutCancel(ctx), invalid); err != nil {
			utils.Logger.Warn("failed to delete invalid push tokens", zap.Int("count", len(invalid)), zap.Error(err))
		} else {
			res.Removed = len(invalid)
		}
	}

	utils.PushDeliveries.WithLabelValues("sent").Add(float64(res.Sent))
	utils.PushDeliveries.WithLabelValues("failed").Add(float64(res.Failed))
	utils.PushDeliveries.WithLabelValues("removed").Add(float64(res.Removed))
	return res, waitErr
}

// SendToUsers fans out over users with bounded concurrency. Per-user errors are logged and skipped.
func (d *Dispatcher) SendToUsers(ctx context.Context, userIDs []uuid.UUID, msg Message) (Result, error) {
	var (
		mu    sync.Mutex
		total Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for _, id := range utils.UniqueUUID(userIDs) {
		id := id
		g.Go(func() error {
			res, err := d.SendToUser(gctx, id, msg)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				utils.Logger.Warn("push fan-out skipped user", zap.String("user_id", id.String()), zap.Error(err))
			}
			mu.Lock()
			total = total.add(res)
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	return total, err
}
