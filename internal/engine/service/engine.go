package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	accounts "github.com/doerdesk/doerdesk-backend/internal/accounts/domain"
	ledger "github.com/doerdesk/doerdesk-backend/internal/ledger/domain"
	quotes "github.com/doerdesk/doerdesk-backend/internal/quotes/domain"
	quotesvc "github.com/doerdesk/doerdesk-backend/internal/quotes/service"
	workflow "github.com/doerdesk/doerdesk-backend/internal/workflow/domain"
)

var (
	ErrPaymentAmountMismatch = errors.New("payment amount does not match quote")
	ErrQuoteNotAccepted      = errors.New("no accepted quote on project")
	ErrMissingParticipant    = errors.New("project has no doer or supervisor assigned")
)

// Machine applies validated status transitions.
type Machine interface {
	Transition(ctx context.Context, projectID string, target workflow.Status, actor workflow.Actor, metadata map[string]string) (*workflow.Project, error)
	TransitionWithStamp(ctx context.Context, projectID string, target workflow.Status, actor workflow.Actor, metadata map[string]string, extra workflow.StatusStamp) (*workflow.Project, error)
}

// Ledger is the money side the engine drives. Project-referenced money
// goes through ApplyOnce, whose duplicate check commits atomically with
// the insert, so a retried or racing post cannot double-move funds.
type Ledger interface {
	ApplyOnce(ctx context.Context, walletID string, typ ledger.TransactionType, amountCents int64, refType, refID, note string) (*ledger.WalletTransaction, error)
	Reverse(ctx context.Context, txID, note string) (*ledger.WalletTransaction, error)
	Balance(ctx context.Context, walletID string) (*ledger.Wallet, error)
	BalanceByOwner(ctx context.Context, ownerID string) (*ledger.Wallet, error)
	Statement(ctx context.Context, walletID string, limit int) ([]ledger.WalletTransaction, error)
}

// Projects is the project persistence the engine needs directly.
type Projects interface {
	Create(ctx context.Context, ownerID, serviceType, subject, title string, deadline *time.Time) (*workflow.Project, error)
	Get(ctx context.Context, projectID string) (*workflow.Project, error)
	SetQuote(ctx context.Context, projectID string, userCents, doerCents, supervisorCents, platformCents int64) error
}

// Quotes is the quote persistence side.
type Quotes interface {
	Issue(ctx context.Context, projectID string, b quotes.Breakdown) (*quotes.ProjectQuote, error)
	Get(ctx context.Context, quoteID string) (*quotes.ProjectQuote, error)
	GetActive(ctx context.Context, projectID string) (*quotes.ProjectQuote, error)
	Resolve(ctx context.Context, quoteID string, to quotes.QuoteStatus) (*quotes.ProjectQuote, error)
}

// History reads the audit trail.
type History interface {
	List(ctx context.Context, projectID string) ([]workflow.StatusHistoryEntry, error)
}

// Profiles manages participants (and their auto-created wallets).
type Profiles interface {
	Create(ctx context.Context, role accounts.Role, displayName, email string) (*accounts.Profile, error)
	Get(ctx context.Context, profileID string) (*accounts.Profile, error)
}

// PaymentEvent is the confirmed-payment notice from the gateway
// collaborator. The engine converts it into a project_payment debit
// plus the paid transition; it never talks to the gateway itself.
type PaymentEvent struct {
	ProjectID   string `json:"project_id"`
	AmountCents int64  `json:"amount_cents"`
	GatewayRef  string `json:"gateway_reference"`
}

// Engine is the workflow orchestrator and the only surface the API
// layer calls. It binds transitions to their ledger side effects so
// neither can land without the other.
type Engine struct {
	machine  Machine
	ledger   Ledger
	projects Projects
	quotes   Quotes
	history  History
	profiles Profiles
	calc     *quotesvc.Calculator
	log      *zap.Logger
}

func NewEngine(machine Machine, ledger Ledger, projects Projects, quotes Quotes, history History, profiles Profiles, calc *quotesvc.Calculator, log *zap.Logger) *Engine {
	return &Engine{
		machine:  machine,
		ledger:   ledger,
		projects: projects,
		quotes:   quotes,
		history:  history,
		profiles: profiles,
		calc:     calc,
		log:      log,
	}
}

// ---- project intake ----

func (e *Engine) CreateProject(ctx context.Context, ownerID, serviceType, subject, title string, deadline *time.Time) (*workflow.Project, error) {
	return e.projects.Create(ctx, ownerID, serviceType, subject, title, deadline)
}

func (e *Engine) GetProject(ctx context.Context, projectID string) (*workflow.Project, error) {
	return e.projects.Get(ctx, projectID)
}

// Transition exposes the raw state machine for simple actor intents
// (submit, start analysis, start work, start QC, ...).
func (e *Engine) Transition(ctx context.Context, projectID string, target workflow.Status, actor workflow.Actor, metadata map[string]string) (*workflow.Project, error) {
	return e.machine.Transition(ctx, projectID, target, actor, metadata)
}

// ClaimProject puts a submitted project under a supervisor's analysis.
func (e *Engine) ClaimProject(ctx context.Context, projectID, supervisorID string) (*workflow.Project, error) {
	actor := workflow.Actor{Type: workflow.ActorSupervisor, ID: supervisorID}
	return e.machine.TransitionWithStamp(ctx, projectID, workflow.StatusAnalyzing, actor, nil,
		workflow.StatusStamp{SupervisorID: &supervisorID})
}

// ---- quoting ----

// IssueQuote prices the request, stores the quote (expiring a previous
// pending one) and moves the project to quoted.
func (e *Engine) IssueQuote(ctx context.Context, projectID string, req quotes.Request, supervisorID string) (*quotes.ProjectQuote, error) {
	breakdown, err := e.calc.Calculate(req)
	if err != nil {
		return nil, err
	}

	quote, err := e.quotes.Issue(ctx, projectID, breakdown)
	if err != nil {
		return nil, err
	}

	actor := workflow.Actor{Type: workflow.ActorSupervisor, ID: supervisorID}
	if _, err := e.machine.Transition(ctx, projectID, workflow.StatusQuoted, actor, nil); err != nil {
		return nil, err
	}
	return quote, nil
}

// AcceptQuote finalizes the monetary split on the project and opens the
// payment window.
func (e *Engine) AcceptQuote(ctx context.Context, projectID, quoteID, clientID string) (*workflow.Project, error) {
	quote, err := e.quotes.Resolve(ctx, quoteID, quotes.QuoteAccepted)
	if err != nil {
		return nil, err
	}

	if err := e.projects.SetQuote(ctx, projectID,
		quote.UserCents, quote.DoerCents, quote.SupervisorCents, quote.PlatformCents); err != nil {
		return nil, err
	}

	actor := workflow.Actor{Type: workflow.ActorClient, ID: clientID}
	return e.machine.Transition(ctx, projectID, workflow.StatusPaymentPending, actor, nil)
}

// RejectQuote declines the pending quote; the project stays quoted so
// the supervisor can reprice.
func (e *Engine) RejectQuote(ctx context.Context, quoteID string) (*quotes.ProjectQuote, error) {
	return e.quotes.Resolve(ctx, quoteID, quotes.QuoteRejected)
}

func (e *Engine) ActiveQuote(ctx context.Context, projectID string) (*quotes.ProjectQuote, error) {
	return e.quotes.GetActive(ctx, projectID)
}

// ---- payment ----

// ConfirmPayment consumes a confirmed-payment event: it posts the
// project_payment debit against the client's wallet and commits the
// paid transition as one unit. If the transition is rejected the debit
// is compensated, so a half-applied payment is never observable.
func (e *Engine) ConfirmPayment(ctx context.Context, ev PaymentEvent) (*workflow.Project, error) {
	p, err := e.projects.Get(ctx, ev.ProjectID)
	if err != nil {
		return nil, err
	}
	if p.UserQuoteCents == 0 {
		return nil, ErrQuoteNotAccepted
	}
	if ev.AmountCents != p.UserQuoteCents {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrPaymentAmountMismatch, ev.AmountCents, p.UserQuoteCents)
	}

	wallet, err := e.ledger.BalanceByOwner(ctx, p.OwnerID)
	if err != nil {
		return nil, err
	}

	paymentTx, err := e.ledger.ApplyOnce(ctx, wallet.ID, ledger.TxProjectPayment,
		ev.AmountCents, ledger.RefProject, p.ID, "payment via "+ev.GatewayRef)
	if errors.Is(err, ledger.ErrDuplicateReference) {
		// an earlier delivery of this event already debited the client
		paymentTx = nil
	} else if err != nil {
		return nil, err
	}

	next, err := e.machine.Transition(ctx, p.ID, workflow.StatusPaid, workflow.SystemActor,
		map[string]string{"gateway_reference": ev.GatewayRef})
	if err != nil {
		if paymentTx != nil {
			if _, rerr := e.ledger.Reverse(ctx, paymentTx.ID, "paid transition rejected"); rerr != nil {
				e.log.Error("payment rollback failed",
					zap.String("project_id", p.ID),
					zap.String("transaction_id", paymentTx.ID), zap.Error(rerr))
			}
		}
		return nil, err
	}
	return next, nil
}

// ---- fulfillment intents ----

// AssignDoer hands the project to a doer. The assignment is written
// atomically with the assigned status, so two concurrent assigns can
// not both win.
func (e *Engine) AssignDoer(ctx context.Context, projectID, doerID, supervisorID string) (*workflow.Project, error) {
	actor := workflow.Actor{Type: workflow.ActorSupervisor, ID: supervisorID}

	p, err := e.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.Status == workflow.StatusPaid {
		if _, err := e.machine.Transition(ctx, projectID, workflow.StatusAssigning, actor, nil); err != nil {
			return nil, err
		}
	}

	return e.machine.TransitionWithStamp(ctx, projectID, workflow.StatusAssigned, actor, nil,
		workflow.StatusStamp{DoerID: &doerID})
}

// DeliverableUploaded is the storage collaborator's completion notice;
// it puts the work in the QC queue.
func (e *Engine) DeliverableUploaded(ctx context.Context, projectID string, actor workflow.Actor) (*workflow.Project, error) {
	return e.machine.Transition(ctx, projectID, workflow.StatusSubmittedForQC, actor, nil)
}

// RequestRevision sends a delivered project back to the doer.
func (e *Engine) RequestRevision(ctx context.Context, projectID string, actor workflow.Actor, note string) (*workflow.Project, error) {
	var metadata map[string]string
	if note != "" {
		metadata = map[string]string{"note": note}
	}
	return e.machine.Transition(ctx, projectID, workflow.StatusRevisionRequested, actor, metadata)
}

// ---- settlement ----

// Complete releases the payout: the doer's earning and the supervisor's
// commission are credited, then the completed transition commits. The
// credits post through the ledger's atomic per-reference guard, so a
// retried or concurrent Complete never double-pays.
func (e *Engine) Complete(ctx context.Context, projectID string, actor workflow.Actor) (*workflow.Project, error) {
	p, err := e.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.DoerID == nil || p.SupervisorID == nil {
		return nil, ErrMissingParticipant
	}

	earning, err := e.creditOnce(ctx, p, *p.DoerID, ledger.TxProjectEarning, p.DoerPayoutCents, "project payout")
	if err != nil {
		return nil, err
	}
	commission, err := e.creditOnce(ctx, p, *p.SupervisorID, ledger.TxCommission, p.SupervisorCommissionCents, "supervision commission")
	if err != nil {
		e.compensate(ctx, p.ID, earning, "completed transition rejected")
		return nil, err
	}

	next, err := e.machine.Transition(ctx, projectID, workflow.StatusCompleted, actor, nil)
	if err != nil {
		e.compensate(ctx, p.ID, earning, "completed transition rejected")
		e.compensate(ctx, p.ID, commission, "completed transition rejected")
		return nil, err
	}
	return next, nil
}

// Cancel aborts a project. Before payment this is a plain cancelled
// transition; after payment the money must come back first, so the
// client is refunded and the project moves to refunded instead.
func (e *Engine) Cancel(ctx context.Context, projectID string, actor workflow.Actor, reason string) (*workflow.Project, error) {
	p, err := e.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var metadata map[string]string
	if reason != "" {
		metadata = map[string]string{"reason": reason}
	}

	if !p.IsPaid {
		return e.machine.Transition(ctx, projectID, workflow.StatusCancelled, actor, metadata)
	}

	wallet, err := e.ledger.BalanceByOwner(ctx, p.OwnerID)
	if err != nil {
		return nil, err
	}

	refundTx, err := e.ledger.ApplyOnce(ctx, wallet.ID, ledger.TxRefund,
		p.UserQuoteCents, ledger.RefProject, p.ID, "refund: "+reason)
	if errors.Is(err, ledger.ErrDuplicateReference) {
		refundTx = nil
	} else if err != nil {
		return nil, err
	}

	next, err := e.machine.Transition(ctx, projectID, workflow.StatusRefunded, actor, metadata)
	if err != nil {
		e.compensate(ctx, p.ID, refundTx, "refunded transition rejected")
		return nil, err
	}
	return next, nil
}

// AutoApprove is the sweeper's entry point: force the grace-expired
// delivered project to auto_approved, then settle it. Both legs are
// idempotent, so concurrent sweepers cannot double-transition or
// double-pay.
func (e *Engine) AutoApprove(ctx context.Context, projectID string) error {
	if _, err := e.machine.Transition(ctx, projectID, workflow.StatusAutoApproved, workflow.SystemActor,
		map[string]string{"trigger": "grace_deadline"}); err != nil {
		return err
	}

	if _, err := e.Complete(ctx, projectID, workflow.SystemActor); err != nil {
		return err
	}
	return nil
}

// ---- readers ----

func (e *Engine) History(ctx context.Context, projectID string) ([]workflow.StatusHistoryEntry, error) {
	return e.history.List(ctx, projectID)
}

func (e *Engine) Balance(ctx context.Context, ownerID string) (*ledger.Wallet, error) {
	return e.ledger.BalanceByOwner(ctx, ownerID)
}

func (e *Engine) Statement(ctx context.Context, walletID string, limit int) ([]ledger.WalletTransaction, error) {
	return e.ledger.Statement(ctx, walletID, limit)
}

func (e *Engine) CreateProfile(ctx context.Context, role accounts.Role, displayName, email string) (*accounts.Profile, error) {
	return e.profiles.Create(ctx, role, displayName, email)
}

func (e *Engine) GetProfile(ctx context.Context, profileID string) (*accounts.Profile, error) {
	return e.profiles.Get(ctx, profileID)
}

// ---- helpers ----

// creditOnce posts a completed credit unless one already exists for the
// project. Returns nil when the credit was already there.
func (e *Engine) creditOnce(ctx context.Context, p *workflow.Project, ownerID string, typ ledger.TransactionType, amountCents int64, note string) (*ledger.WalletTransaction, error) {
	wallet, err := e.ledger.BalanceByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	entry, err := e.ledger.ApplyOnce(ctx, wallet.ID, typ, amountCents, ledger.RefProject, p.ID, note)
	if errors.Is(err, ledger.ErrDuplicateReference) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// compensate reverses a transaction posted in the current operation
// after a later step failed. Best effort: a failed reversal is logged
// loudly for manual reconciliation.
func (e *Engine) compensate(ctx context.Context, projectID string, tx *ledger.WalletTransaction, note string) {
	if tx == nil {
		return
	}
	if _, err := e.ledger.Reverse(ctx, tx.ID, note); err != nil {
		e.log.Error("ledger compensation failed",
			zap.String("project_id", projectID),
			zap.String("transaction_id", tx.ID), zap.Error(err))
	}
}
