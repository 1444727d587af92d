package circulation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fkhayef/librarycore/internal/apperror"
	"github.com/fkhayef/librarycore/internal/authz"
	"github.com/fkhayef/librarycore/internal/clock"
	"github.com/fkhayef/librarycore/internal/database"
	"github.com/fkhayef/librarycore/internal/inventory"
	"github.com/fkhayef/librarycore/internal/library"
	"github.com/fkhayef/librarycore/internal/member"
	"github.com/fkhayef/librarycore/internal/notification"
)

const day = 24 * time.Hour

var (
	fromOpen   = []Status{StatusActive, StatusOverdue}
	fromActive = []Status{StatusActive}
)

// Service is the inventory state machine
type Service struct {
	db       *sql.DB
	repo     *Repository
	engine   *authz.Engine
	notifier *notification.Service
	clock    clock.Clock
	logger   zerolog.Logger
}

// NewService creates a new circulation service
func NewService(db *sql.DB, repo *Repository, engine *authz.Engine, notifier *notification.Service, clk clock.Clock, logger zerolog.Logger) *Service {
	return &Service{
		db:       db,
		repo:     repo,
		engine:   engine,
		notifier: notifier,
		clock:    clk,
		logger:   logger.With().Str("component", "circulation").Logger(),
	}
}

// Checkout lends a copy to a member. The copy flips to borrowed and the
// transaction is inserted in one database transaction; a copy that is not
// live, active and available fails the whole operation with ErrConflict.
func (s *Service) Checkout(ctx context.Context, actorID, libraryID string, req *CheckoutRequest) (*CheckoutResult, error) {
	acting, err := s.engine.Require(ctx, actorID, libraryID, authz.PermCirculation)
	if err != nil {
		return nil, err
	}
	if req.CopyID == "" || req.MemberID == "" {
		return nil, apperror.Invalid("copy_id and member_id are required")
	}
	if req.RequestID != nil && *req.RequestID == "" {
		req.RequestID = nil
	}

	if req.RequestID != nil {
		if res, err := s.replay(ctx, libraryID, req); res != nil || err != nil {
			return res, err
		}
	}

	now := s.clock.Now()
	t := &Transaction{
		ID:           uuid.NewString(),
		LibraryID:    libraryID,
		CopyID:       req.CopyID,
		MemberID:     req.MemberID,
		StaffID:      acting.ID,
		RequestID:    req.RequestID,
		Status:       StatusActive,
		CheckoutDate: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		lib, err := library.NewRepository(tx).GetByID(ctx, libraryID)
		if err != nil {
			return err
		}
		if lib == nil {
			return fmt.Errorf("library: %w", apperror.ErrNotFound)
		}

		m, err := member.NewRepository(tx).GetByID(ctx, libraryID, req.MemberID)
		if err != nil {
			return err
		}
		if m == nil {
			return fmt.Errorf("member: %w", apperror.ErrNotFound)
		}

		t.DueDate = now.AddDate(0, 0, lib.Settings.LoanPeriodDays)

		copies := inventory.NewRepository(tx)
		ok, err := copies.MarkBorrowed(ctx, libraryID, req.CopyID, m.ID, t.DueDate, now)
		if err != nil {
			return err
		}
		if !ok {
			exists, err := copies.Exists(ctx, libraryID, req.CopyID)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("copy: %w", apperror.ErrNotFound)
			}
			return fmt.Errorf("copy is not available for checkout: %w", apperror.ErrConflict)
		}

		if err := s.repo.WithTx(tx).Create(ctx, t); err != nil {
			if database.IsUniqueViolation(err) {
				return fmt.Errorf("copy already has an open transaction: %w", apperror.ErrConflict)
			}
			return err
		}
		return nil
	})
	if err != nil {
		if req.RequestID != nil && errors.Is(err, apperror.ErrConflict) {
			// a concurrent retry of the same request may have won
			if res, rerr := s.replay(ctx, libraryID, req); res != nil || rerr != nil {
				return res, rerr
			}
		}
		return nil, err
	}

	s.logger.Info().
		Str("event", "checkout").
		Str("library_id", libraryID).
		Str("actor_id", actorID).
		Str("transaction_id", t.ID).
		Str("copy_id", t.CopyID).
		Str("member_id", t.MemberID).
		Msg("copy checked out")

	result := &CheckoutResult{Transaction: t}
	return result, s.appendEvent(ctx, t.ID, EventCheckout, Party{StaffID: acting.ID}, map[string]any{
		"due_date": t.DueDate,
	})
}

// replay returns the transaction an earlier checkout with the same request
// id created, or nil if there is none
func (s *Service) replay(ctx context.Context, libraryID string, req *CheckoutRequest) (*CheckoutResult, error) {
	existing, err := s.repo.GetByRequestID(ctx, libraryID, *req.RequestID)
	if err != nil || existing == nil {
		return nil, err
	}
	if existing.CopyID != req.CopyID || existing.MemberID != req.MemberID {
		return nil, fmt.Errorf("request id %q was used for a different checkout: %w", *req.RequestID, apperror.ErrConflict)
	}
	return &CheckoutResult{Transaction: existing, Replayed: true}, nil
}

// Return closes an open transaction and releases the copy. Returning an
// already returned transaction succeeds without a new event.
func (s *Service) Return(ctx context.Context, actorID, id string) (*TransitionResult, error) {
	now := s.clock.Now()
	return s.close(ctx, actorID, id, fromOpen, StatusReturned, EventReturn, &now)
}

// MarkLost closes an open transaction as lost. The copy is released from
// the loan; its administrative status is left for staff to set.
func (s *Service) MarkLost(ctx context.Context, actorID, id string) (*TransitionResult, error) {
	return s.close(ctx, actorID, id, fromOpen, StatusLost, EventLost, nil)
}

// Cancel voids an active transaction as if the checkout never completed
func (s *Service) Cancel(ctx context.Context, actorID, id string) (*TransitionResult, error) {
	return s.close(ctx, actorID, id, fromActive, StatusCancelled, EventCancelled, nil)
}

func (s *Service) close(ctx context.Context, actorID, id string, from []Status, to Status, event EventType, returnDate *time.Time) (*TransitionResult, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	acting, err := s.engine.Require(ctx, actorID, t.LibraryID, authz.PermCirculation)
	if err != nil {
		return nil, err
	}
	if t.Status == to {
		return &TransitionResult{Transaction: t, AlreadyApplied: true}, nil
	}

	var applied bool
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		now := s.clock.Now()

		ok, err := repo.Close(ctx, id, from, to, returnDate, now)
		if err != nil {
			return err
		}
		if ok {
			if err := inventory.NewRepository(tx).MarkAvailable(ctx, t.CopyID, now); err != nil {
				return err
			}
		}
		applied = ok

		t, err = repo.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		if t.Status == to {
			return &TransitionResult{Transaction: t, AlreadyApplied: true}, nil
		}
		return nil, fmt.Errorf("cannot move %s transaction to %s: %w", t.Status, to, apperror.ErrInvalidTransition)
	}

	s.logger.Info().
		Str("event", string(event)).
		Str("library_id", t.LibraryID).
		Str("actor_id", actorID).
		Str("transaction_id", t.ID).
		Str("copy_id", t.CopyID).
		Msg("transaction closed")

	payload := map[string]any{}
	if returnDate != nil {
		payload["return_date"] = *returnDate
	}
	result := &TransitionResult{Transaction: t}
	return result, s.appendEvent(ctx, t.ID, event, Party{StaffID: acting.ID}, payload)
}

// MarkOverdue flags an active transaction overdue. The copy stays borrowed.
// This is the entry point for an external due-date sweep.
func (s *Service) MarkOverdue(ctx context.Context, actorID, id string) (*TransitionResult, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	acting, err := s.engine.Require(ctx, actorID, t.LibraryID, authz.PermCirculation)
	if err != nil {
		return nil, err
	}
	if t.Status == StatusOverdue {
		return &TransitionResult{Transaction: t, AlreadyApplied: true}, nil
	}

	ok, err := s.repo.MarkOverdue(ctx, id, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if t, err = s.load(ctx, id); err != nil {
		return nil, err
	}
	if !ok {
		if t.Status == StatusOverdue {
			return &TransitionResult{Transaction: t, AlreadyApplied: true}, nil
		}
		return nil, fmt.Errorf("cannot mark %s transaction overdue: %w", t.Status, apperror.ErrInvalidTransition)
	}

	s.logger.Info().
		Str("event", "overdue").
		Str("library_id", t.LibraryID).
		Str("actor_id", actorID).
		Str("transaction_id", t.ID).
		Msg("transaction overdue")

	s.notifyBorrower(ctx, t, "A borrowed item is overdue; it was due "+t.DueDate.Format("2006-01-02"))

	result := &TransitionResult{Transaction: t}
	return result, s.appendEvent(ctx, t.ID, EventOverdue, Party{StaffID: acting.ID}, map[string]any{
		"due_date": t.DueDate,
	})
}

// Renew extends an active loan by the library's loan period. Staff and the
// borrowing member may renew, up to the library's renewal limit.
func (s *Service) Renew(ctx context.Context, actorID, id string) (*Transaction, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	party, err := s.party(ctx, actorID, t)
	if err != nil {
		return nil, err
	}
	if t.Status != StatusActive {
		return nil, fmt.Errorf("cannot renew %s transaction: %w", t.Status, apperror.ErrInvalidTransition)
	}

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		lib, err := library.NewRepository(tx).GetByID(ctx, t.LibraryID)
		if err != nil {
			return err
		}
		if lib == nil {
			return fmt.Errorf("library: %w", apperror.ErrNotFound)
		}
		if t.RenewalCount >= lib.Settings.MaxRenewals {
			return fmt.Errorf("%d of %d renewals used: %w", t.RenewalCount, lib.Settings.MaxRenewals, apperror.ErrRenewalLimit)
		}

		now := s.clock.Now()
		due := t.DueDate.AddDate(0, 0, lib.Settings.LoanPeriodDays)

		repo := s.repo.WithTx(tx)
		ok, err := repo.Renew(ctx, id, due, t.RenewalCount, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("transaction changed while renewing: %w", apperror.ErrConflict)
		}
		if err := inventory.NewRepository(tx).ExtendDue(ctx, t.CopyID, due, now); err != nil {
			return err
		}

		t, err = repo.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("event", "renewal").
		Str("library_id", t.LibraryID).
		Str("actor_id", actorID).
		Str("transaction_id", t.ID).
		Int("renewal_count", t.RenewalCount).
		Msg("transaction renewed")

	return t, s.appendEvent(ctx, t.ID, EventRenewal, party, map[string]any{
		"due_date":      t.DueDate,
		"renewal_count": t.RenewalCount,
	})
}

// AssessLateFee charges the library's late-fee rate for each whole day the
// loan ran past its due date, measured to the return date or now. A
// transaction is assessed once.
func (s *Service) AssessLateFee(ctx context.Context, actorID, id string) (*FeeSummary, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	acting, err := s.engine.Require(ctx, actorID, t.LibraryID, authz.PermManageFees)
	if err != nil {
		return nil, err
	}
	if t.Status == StatusCancelled {
		return nil, fmt.Errorf("cancelled transactions carry no fees: %w", apperror.ErrInvalidTransition)
	}

	var summary *FeeSummary
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)

		events, err := repo.ListEvents(ctx, id)
		if err != nil {
			return err
		}
		for _, e := range events {
			if e.Type == EventFeeAssessed {
				return fmt.Errorf("late fee already assessed: %w", apperror.ErrConflict)
			}
		}

		lib, err := library.NewRepository(tx).GetByID(ctx, t.LibraryID)
		if err != nil {
			return err
		}
		if lib == nil {
			return fmt.Errorf("library: %w", apperror.ErrNotFound)
		}

		now := s.clock.Now()
		until := now
		if t.ReturnDate != nil {
			until = *t.ReturnDate
		}
		daysLate := int(until.Sub(t.DueDate) / day)
		if daysLate <= 0 {
			return apperror.Invalid("transaction is not late")
		}

		payload := FeePayload{
			Amount:   roundCents(lib.Settings.LateFeeRate * float64(daysLate)),
			DaysLate: daysLate,
			Rate:     lib.Settings.LateFeeRate,
		}
		e, err := s.newEvent(id, EventFeeAssessed, Party{StaffID: acting.ID}, payload, now)
		if err != nil {
			return err
		}
		if err := repo.AppendEvent(ctx, e); err != nil {
			return err
		}

		summary = newFeeSummary(id, append(events, e))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("event", "fee_assessed").
		Str("library_id", t.LibraryID).
		Str("actor_id", actorID).
		Str("transaction_id", id).
		Float64("amount", summary.Assessed).
		Msg("late fee assessed")
	return summary, nil
}

// RecordFeePayment records a payment against the outstanding fee
func (s *Service) RecordFeePayment(ctx context.Context, actorID, id string, amount float64) (*FeeSummary, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, apperror.Invalid("payment amount must be positive")
	}
	amount = roundCents(amount)

	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	acting, err := s.engine.Require(ctx, actorID, t.LibraryID, authz.PermManageFees)
	if err != nil {
		return nil, err
	}

	var summary *FeeSummary
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)

		events, err := repo.ListEvents(ctx, id)
		if err != nil {
			return err
		}
		if outstanding := newFeeSummary(id, events).Outstanding; amount > outstanding {
			return apperror.Invalid("payment %.2f exceeds outstanding %.2f", amount, outstanding)
		}

		e, err := s.newEvent(id, EventFeePaid, Party{StaffID: acting.ID}, FeePayload{Amount: amount}, s.clock.Now())
		if err != nil {
			return err
		}
		if err := repo.AppendEvent(ctx, e); err != nil {
			return err
		}

		summary = newFeeSummary(id, append(events, e))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("event", "fee_paid").
		Str("library_id", t.LibraryID).
		Str("actor_id", actorID).
		Str("transaction_id", id).
		Float64("amount", amount).
		Msg("fee payment recorded")
	return summary, nil
}

// Get returns a transaction to staff or to its borrower
func (s *Service) Get(ctx context.Context, actorID, id string) (*Transaction, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.party(ctx, actorID, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ListEvents returns a transaction's audit trail and fee ledger
func (s *Service) ListEvents(ctx context.Context, actorID, id string) ([]*Event, *FeeSummary, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.party(ctx, actorID, t); err != nil {
		return nil, nil, err
	}

	events, err := s.repo.ListEvents(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return events, newFeeSummary(id, events), nil
}

// List returns a library's transactions, optionally filtered by status
func (s *Service) List(ctx context.Context, actorID, libraryID string, status Status) ([]*Transaction, error) {
	if _, err := s.engine.Require(ctx, actorID, libraryID, authz.PermCirculation); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, apperror.Invalid("unknown transaction status %q", status)
	}
	return s.repo.List(ctx, libraryID, status)
}

func (s *Service) load(ctx context.Context, id string) (*Transaction, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("transaction: %w", apperror.ErrNotFound)
	}
	return t, nil
}

// party resolves actorID to staff with circulation rights in the
// transaction's library, or to the borrowing member's linked identity
func (s *Service) party(ctx context.Context, actorID string, t *Transaction) (Party, error) {
	acting, err := s.engine.Require(ctx, actorID, t.LibraryID, authz.PermCirculation)
	if err == nil {
		return Party{StaffID: acting.ID}, nil
	}
	if !errors.Is(err, apperror.ErrPermissionDenied) {
		return Party{}, err
	}

	m, merr := member.NewRepository(s.db).GetByID(ctx, t.LibraryID, t.MemberID)
	if merr != nil {
		return Party{}, merr
	}
	if m != nil && m.ActorID != nil && actorID != "" && *m.ActorID == actorID {
		return Party{MemberID: m.ID}, nil
	}
	return Party{}, err
}

func (s *Service) notifyBorrower(ctx context.Context, t *Transaction, message string) {
	m, err := member.NewRepository(s.db).GetByID(ctx, t.LibraryID, t.MemberID)
	if err != nil {
		s.logger.Warn().Err(err).Str("transaction_id", t.ID).Msg("failed to resolve borrower for notification")
		return
	}
	if m == nil || m.ActorID == nil {
		return
	}
	s.notifier.TryNotify(ctx, *m.ActorID, message, notification.EntityTransaction, t.ID)
}

func (s *Service) newEvent(transactionID string, typ EventType, by Party, payload any, at time.Time) (*Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event payload: %w", err)
	}

	e := &Event{
		ID:            uuid.NewString(),
		TransactionID: transactionID,
		Type:          typ,
		Payload:       body,
		CreatedAt:     at,
	}
	if by.StaffID != "" {
		e.ActingStaffID = &by.StaffID
	} else {
		e.ActingMemberID = &by.MemberID
	}
	return e, nil
}

// appendEvent writes the audit event of a committed transition. A failure
// is returned as an *apperror.AuditError so the caller reports degraded
// success.
func (s *Service) appendEvent(ctx context.Context, transactionID string, typ EventType, by Party, payload any) error {
	e, err := s.newEvent(transactionID, typ, by, payload, s.clock.Now())
	if err == nil {
		err = s.repo.AppendEvent(ctx, e)
	}
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("event", "audit_incomplete").
			Str("transaction_id", transactionID).
			Str("event_type", string(typ)).
			Msg("transition committed without its audit event")
		return apperror.NewAuditError(string(typ)+" event", err)
	}
	return nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
