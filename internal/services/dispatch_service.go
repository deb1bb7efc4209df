// Package services – DispatchService
//
// This file implements the dispatcher, which turns a (event, kind) request
// into a batch of independent sends:
//
//	Resolving -> AdmissionCheck -> Sending(i) -> Completed
//
// Every recipient in the batch ends with exactly one delivery log row and
// one credit settlement. Once sending starts the batch runs to completion
// even if the caller goes away; there are no retries.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/tbourn/event-campaigns/internal/campaign"
	"github.com/tbourn/event-campaigns/internal/domain"
	"github.com/tbourn/event-campaigns/internal/observability"
	"github.com/tbourn/event-campaigns/internal/repo"
	"github.com/tbourn/event-campaigns/internal/transport"
)

// Batch statuses.
const (
	StatusCompleted    = "completed"
	StatusNoRecipients = "no_recipients"
)

// Detail recorded for recipients that were not attempted because the
// balance ran out mid-batch.
const errNoCredit = "no credit"

// DispatchRequest describes one batch. BestEffort=false is the manual mode:
// the whole audience must be covered by the balance or nothing is sent.
type DispatchRequest struct {
	OwnerID         string
	EventID         string
	Kind            domain.MessageKind
	Segment         domain.Segment
	SkipAlreadySent bool
	Overrides       campaign.Overrides
	BestEffort      bool
	Trigger         domain.Trigger
}

// RecipientResult is the outcome for one recipient.
type RecipientResult struct {
	RecipientID string         `json:"recipientId"`
	Name        string         `json:"name"`
	Phone       string         `json:"phone"`
	Outcome     domain.Outcome `json:"outcome"`
	Error       string         `json:"error,omitempty"`
}

// DispatchResult summarizes a batch. Results follow audience order.
type DispatchResult struct {
	BatchID          string             `json:"batchId"`
	Status           string             `json:"status"`
	Kind             domain.MessageKind `json:"kind"`
	Results          []RecipientResult  `json:"results"`
	Sent             int                `json:"sent"`
	Failed           int                `json:"failed"`
	Skipped          int                `json:"skippedAlreadySent"`
	RemainingBalance int64              `json:"remainingBalance"`
}

// AudiencePreview is what a dispatch would target right now.
type AudiencePreview struct {
	Kind       domain.MessageKind `json:"kind"`
	Recipients int                `json:"recipients"`
	Skipped    int                `json:"skippedAlreadySent"`
	Balance    int64              `json:"balance"`
	Admission  Admission          `json:"admission"`
}

// DispatchService executes batches against a transport.Sender.
type DispatchService struct {
	DB       *gorm.DB
	Sender   transport.Sender
	Composer *campaign.Composer

	// Credits is the admission gate and Deliveries the dedup source; nil
	// means one over DB.
	Credits    *CreditService
	Deliveries *DeliveryLogService

	// Concurrency bounds in-flight transport calls per batch (default 1).
	Concurrency int
}

func (s *DispatchService) credits() *CreditService {
	if s.Credits != nil {
		return s.Credits
	}
	return &CreditService{DB: s.DB}
}

func (s *DispatchService) deliveries() *DeliveryLogService {
	if s.Deliveries != nil {
		return s.Deliveries
	}
	return &DeliveryLogService{DB: s.DB}
}

func (s *DispatchService) concurrency() int {
	if s.Concurrency < 1 {
		return 1
	}
	return s.Concurrency
}

// Preview resolves the audience of req without sending or locking.
func (s *DispatchService) Preview(ctx context.Context, req DispatchRequest) (*AudiencePreview, error) {
	ev, err := s.prepare(ctx, &req)
	if err != nil {
		return nil, err
	}
	targets, skipped, err := s.audience(ctx, ev, req)
	if err != nil {
		return nil, err
	}
	admission, balance, err := s.credits().Check(ctx, req.OwnerID, len(targets))
	if err != nil {
		return nil, err
	}
	return &AudiencePreview{
		Kind:       req.Kind,
		Recipients: len(targets),
		Skipped:    skipped,
		Balance:    balance,
		Admission:  admission,
	}, nil
}

// Dispatch runs one batch. Errors are returned only before any send:
// unknown kind or segment, missing event, canceled event, and (manual
// mode) insufficient credit. Per-recipient failures are reported in the
// result.
func (s *DispatchService) Dispatch(ctx context.Context, req DispatchRequest) (*DispatchResult, error) {
	ctx, span := otel.Tracer("services/DispatchService").Start(ctx, "Dispatch",
		trace.WithAttributes(attribute.Bool("best_effort", req.BestEffort)),
	)
	defer span.End()
	start := time.Now()

	ev, err := s.prepare(ctx, &req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// Resolving and AdmissionCheck run under the owner lock so a batch
	// sees the sent rows of any batch that finished before it.
	unlock := ownerLocks.Lock(req.OwnerID)
	defer unlock()

	targets, skipped, err := s.audience(ctx, ev, req)
	if err != nil {
		return nil, err
	}

	res := &DispatchResult{
		BatchID: uuid.NewString(),
		Status:  StatusNoRecipients,
		Kind:    req.Kind,
		Results: []RecipientResult{},
		Skipped: skipped,
	}
	span.SetAttributes(observability.BatchAttributes(res.BatchID, ev.ID, string(req.Kind), string(req.Trigger))...)
	span.SetAttributes(attribute.Int("audience", len(targets)))

	admission, balance, err := s.credits().Check(ctx, req.OwnerID, len(targets))
	if err != nil {
		return nil, err
	}
	if admission == AdmissionNoRecipients {
		res.RemainingBalance = balance
		observability.ObserveBatch(string(req.Trigger), res.Status, time.Since(start))
		return res, nil
	}
	if !req.BestEffort && admission == AdmissionNoCredit {
		err := &InsufficientCreditError{Balance: balance, Required: len(targets)}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// Sending
	sendCtx := context.WithoutCancel(ctx)
	res.Status = StatusCompleted
	res.Results = s.send(sendCtx, ev, req, targets, res.BatchID)
	for _, r := range res.Results {
		if r.Outcome == domain.OutcomeSent {
			res.Sent++
		} else {
			res.Failed++
		}
	}

	// Completed
	if acc, err := s.credits().Balance(sendCtx, req.OwnerID); err != nil {
		log.Error().Err(err).Str("batch_id", res.BatchID).Msg("read balance after batch")
	} else {
		res.RemainingBalance = acc.Balance
	}

	observability.ObserveBatch(string(req.Trigger), res.Status, time.Since(start))
	log.Info().
		Str("batch_id", res.BatchID).
		Str("trace_id", observability.TraceID(ctx)).
		Str("event_id", ev.ID).
		Str("kind", string(req.Kind)).
		Str("trigger", string(req.Trigger)).
		Int("sent", res.Sent).
		Int("failed", res.Failed).
		Int("skipped", res.Skipped).
		Int64("remaining_balance", res.RemainingBalance).
		Dur("took", time.Since(start)).
		Msg("batch completed")
	return res, nil
}

// prepare validates req in place and loads the event.
func (s *DispatchService) prepare(ctx context.Context, req *DispatchRequest) (*domain.Event, error) {
	if _, err := domain.ParseMessageKind(string(req.Kind)); err != nil {
		return nil, ErrUnknownKind
	}
	seg, err := domain.ParseSegment(string(req.Segment))
	if err != nil {
		return nil, ErrInvalidSegment
	}
	req.Segment = seg
	if req.Trigger == "" {
		req.Trigger = domain.TriggerManual
	}

	ev, err := repo.GetEvent(ctx, s.DB, req.EventID, req.OwnerID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if ev.Canceled && req.Kind != domain.KindCancel {
		return nil, ErrEventCanceled
	}
	return ev, nil
}

// audience resolves eligible targets and, when asked, removes phones that
// already received kind. skipped counts the removed ones.
func (s *DispatchService) audience(ctx context.Context, ev *domain.Event, req DispatchRequest) ([]campaign.Target, int, error) {
	recipients, err := repo.ListRecipients(ctx, s.DB, ev.ID)
	if err != nil {
		return nil, 0, err
	}
	targets := campaign.Resolve(req.Kind, recipients, req.Segment)
	if !req.SkipAlreadySent {
		return targets, 0, nil
	}
	reached, err := s.deliveries().AlreadyReceived(ctx, req.OwnerID, ev.ID, req.Kind)
	if err != nil {
		return nil, 0, err
	}
	kept := campaign.ExcludeReached(targets, reached)
	return kept, len(targets) - len(kept), nil
}

// send walks targets in order. Each credit is reserved before its send is
// started, so reservations follow audience order even when several
// transport calls are in flight.
func (s *DispatchService) send(ctx context.Context, ev *domain.Event, req DispatchRequest, targets []campaign.Target, batchID string) []RecipientResult {
	results := make([]RecipientResult, len(targets))
	g := &errgroup.Group{}
	g.SetLimit(s.concurrency())

	for i, t := range targets {
		text := s.Composer.Compose(req.Kind, t.Recipient, *ev, req.Overrides)

		err := repo.ReserveCredit(ctx, s.DB, req.OwnerID)
		if errors.Is(err, repo.ErrNoCredit) {
			// In-flight failures hand their credit back; retry once they settle.
			_ = g.Wait()
			err = repo.ReserveCredit(ctx, s.DB, req.OwnerID)
		}
		if errors.Is(err, repo.ErrNoCredit) {
			_ = g.Wait()
			s.exhausted(ctx, ev, req, targets[i:], results[i:], batchID)
			return results
		}
		if err != nil {
			results[i] = s.unreserved(ctx, ev, req, t, batchID, fmt.Sprintf("ledger: %v", err))
			continue
		}

		g.Go(func() error {
			results[i] = s.deliver(ctx, ev, req, t, text, batchID)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// deliver performs one transport call and settles its reserved credit
// together with the log row.
func (s *DispatchService) deliver(ctx context.Context, ev *domain.Event, req DispatchRequest, t campaign.Target, text, batchID string) RecipientResult {
	r := RecipientResult{RecipientID: t.Recipient.ID, Name: t.Recipient.Name, Phone: t.Phone, Outcome: domain.OutcomeSent}
	if err := safeSend(ctx, s.Sender, t.Phone, text); err != nil {
		r.Outcome = domain.OutcomeFailed
		r.Error = "transport: " + err.Error()
	}

	entry := s.entry(ev, req, t, batchID, r)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.AppendDelivery(ctx, tx, &entry); err != nil {
			return err
		}
		if r.Outcome == domain.OutcomeSent {
			return repo.CommitCredit(ctx, tx, req.OwnerID)
		}
		return repo.ReleaseCredit(ctx, tx, req.OwnerID)
	})
	if err != nil {
		// The reservation stays open and is returned by the startup reconciliation.
		log.Error().Err(err).
			Str("batch_id", batchID).
			Str("recipient_id", t.Recipient.ID).
			Str("outcome", string(r.Outcome)).
			Msg("settle delivery")
	}
	observability.ObserveSend(string(req.Kind), string(r.Outcome))
	return r
}

// exhausted marks every remaining target failed without a transport call.
func (s *DispatchService) exhausted(ctx context.Context, ev *domain.Event, req DispatchRequest, rest []campaign.Target, out []RecipientResult, batchID string) {
	entries := make([]domain.DeliveryLogEntry, len(rest))
	for i, t := range rest {
		out[i] = RecipientResult{RecipientID: t.Recipient.ID, Name: t.Recipient.Name, Phone: t.Phone, Outcome: domain.OutcomeFailed, Error: errNoCredit}
		entries[i] = s.entry(ev, req, t, batchID, out[i])
		observability.ObserveSend(string(req.Kind), string(domain.OutcomeFailed))
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range entries {
			if err := repo.AppendDelivery(ctx, tx, &entries[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("batch_id", batchID).Int("rows", len(entries)).Msg("log no-credit failures")
	}
}

// unreserved records a failure for a target whose credit could not be
// reserved for a reason other than an empty balance.
func (s *DispatchService) unreserved(ctx context.Context, ev *domain.Event, req DispatchRequest, t campaign.Target, batchID, detail string) RecipientResult {
	r := RecipientResult{RecipientID: t.Recipient.ID, Name: t.Recipient.Name, Phone: t.Phone, Outcome: domain.OutcomeFailed, Error: detail}
	entry := s.entry(ev, req, t, batchID, r)
	if err := repo.AppendDelivery(ctx, s.DB, &entry); err != nil {
		log.Error().Err(err).Str("batch_id", batchID).Msg("log ledger failure")
	}
	observability.ObserveSend(string(req.Kind), string(r.Outcome))
	return r
}

func (s *DispatchService) entry(ev *domain.Event, req DispatchRequest, t campaign.Target, batchID string, r RecipientResult) domain.DeliveryLogEntry {
	return domain.DeliveryLogEntry{
		ID:      uuid.NewString(),
		OwnerID: req.OwnerID,
		EventID: ev.ID,
		GuestID: t.Recipient.ID,
		Phone:   t.Phone,
		Kind:    req.Kind,
		Outcome: r.Outcome,
		Error:   r.Error,
		BatchID: batchID,
		Trigger: req.Trigger,
	}
}

// safeSend turns a transport panic into an ordinary failure.
func safeSend(ctx context.Context, sender transport.Sender, phone, text string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return sender.Send(ctx, phone, text)
}
