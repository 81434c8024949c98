package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/finagent/internal/cache"
	"github.com/mmynk/finagent/internal/calculator"
	"github.com/mmynk/finagent/internal/events"
	"github.com/mmynk/finagent/internal/extract"
	"github.com/mmynk/finagent/internal/ledger"
	"github.com/mmynk/finagent/internal/metrics"
	"github.com/mmynk/finagent/internal/middleware"
	"github.com/mmynk/finagent/internal/storage"
)

const (
	// ReviewTTL is how long an unconfirmed split review is kept.
	ReviewTTL       = 30 * time.Minute
	reviewCacheSize = 4096
)

// reviewEntry guards one review; Review itself is not safe for concurrent use.
type reviewEntry struct {
	mu     sync.Mutex
	userID string
	review *calculator.Review
}

// LedgerService implements the Connect LedgerService.
type LedgerService struct {
	store           storage.Store
	resolver        *ledger.Resolver
	parser          extract.Parser
	publisher       events.Publisher
	defaultCurrency string
	reviews         *cache.LRU[string, *reviewEntry]
	now             func() time.Time
}

// NewLedgerService creates a LedgerService. parser may be nil, in which case
// the parse RPCs return Unimplemented. publisher may be nil.
func NewLedgerService(store storage.Store, parser extract.Parser, publisher events.Publisher, defaultCurrency string) *LedgerService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &LedgerService{
		store:           store,
		resolver:        ledger.NewResolver(store),
		parser:          parser,
		publisher:       publisher,
		defaultCurrency: defaultCurrency,
		reviews:         cache.NewLRU[string, *reviewEntry](reviewCacheSize, ReviewTTL),
		now:             time.Now,
	}
}

func requireUser(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("authentication required"))
	}
	return userID, nil
}

// RecordTransaction stores a transaction. Split transactions also open a
// review that must be confirmed before debts are written.
func (s *LedgerService) RecordTransaction(ctx context.Context, req *connect.Request[RecordTransactionRequest]) (*connect.Response[RecordTransactionResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	tx := extract.Normalize(req.Msg.Transaction, s.now(), s.defaultCurrency)
	tx.ID = ""
	tx.UserID = userID
	tx.CreatedAt = 0
	if err := tx.Validate(); err != nil {
		slog.Warn("RecordTransaction validation failed", "user_id", userID, "error", err)
		return nil, toConnectError(err)
	}

	if err := s.store.CreateTransaction(ctx, &tx); err != nil {
		slog.Error("RecordTransaction failed", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	slog.Info("Transaction recorded",
		"transaction_id", tx.ID,
		"user_id", userID,
		"amount", tx.Amount,
		"currency", tx.Currency,
		"is_split", tx.IsSplit,
	)

	resp := &RecordTransactionResponse{Transaction: tx}
	if tx.IsSplit {
		if tx.MyShare != nil {
			slog.Debug("Ignoring stated owner share; it is derived", "transaction_id", tx.ID, "my_share", *tx.MyShare)
		}
		entry := &reviewEntry{userID: userID, review: calculator.NewReview(tx)}
		if err := entry.review.Begin(); err != nil {
			slog.Info("Split needs review", "transaction_id", tx.ID, "problem", err)
		}
		id := uuid.New().String()
		s.reviews.Set(id, entry)
		view := reviewView(id, entry.review)
		resp.Review = &view
	}

	return connect.NewResponse(resp), nil
}

// ParseText extracts transaction candidates from free text without storing them.
func (s *LedgerService) ParseText(ctx context.Context, req *connect.Request[ParseTextRequest]) (*connect.Response[ParseTextResponse], error) {
	if _, err := requireUser(ctx); err != nil {
		return nil, err
	}
	if s.parser == nil {
		return nil, connect.NewError(connect.CodeUnimplemented, fmt.Errorf("no extractor configured"))
	}
	if req.Msg.Text == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("text required"))
	}

	txs, err := s.parser.ParseText(ctx, req.Msg.Text)
	if err != nil {
		slog.Warn("ParseText failed", "error", err)
		return nil, toConnectError(err)
	}
	if len(txs) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, extract.ErrExtractionFailed)
	}

	now := s.now()
	for i := range txs {
		txs[i] = extract.Normalize(txs[i], now, s.defaultCurrency)
	}
	return connect.NewResponse(&ParseTextResponse{Transactions: txs}), nil
}

// ParseReceipt extracts a transaction candidate from a receipt image without storing it.
func (s *LedgerService) ParseReceipt(ctx context.Context, req *connect.Request[ParseReceiptRequest]) (*connect.Response[ParseReceiptResponse], error) {
	if _, err := requireUser(ctx); err != nil {
		return nil, err
	}
	if s.parser == nil {
		return nil, connect.NewError(connect.CodeUnimplemented, fmt.Errorf("no extractor configured"))
	}
	if len(req.Msg.Image) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("image required"))
	}

	tx, err := s.parser.ParseReceipt(ctx, req.Msg.Image, req.Msg.Hint)
	if err != nil {
		slog.Warn("ParseReceipt failed", "error", err)
		return nil, toConnectError(err)
	}
	if tx.Notes == "" {
		tx.Notes = req.Msg.Hint
	}
	return connect.NewResponse(&ParseReceiptResponse{Transaction: extract.Normalize(tx, s.now(), s.defaultCurrency)}), nil
}

// EditSplitReview applies share, participant and GST edits, re-validating the split.
// An allocation that still does not reconcile is reported in the review, not as an error.
func (s *LedgerService) EditSplitReview(ctx context.Context, req *connect.Request[EditSplitReviewRequest]) (*connect.Response[ReviewResponse], error) {
	entry, err := s.lookupReview(ctx, req.Msg.ReviewID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	edited, err := applyEdits(entry.review, req.Msg)
	if err != nil {
		slog.Warn("EditSplitReview failed", "review_id", req.Msg.ReviewID, "error", err)
		return nil, toConnectError(err)
	}
	entry.review = edited

	return connect.NewResponse(&ReviewResponse{Review: reviewView(req.Msg.ReviewID, entry.review)}), nil
}

// applyEdits applies every edit to a copy of r. The copy is returned only
// when all edits were accepted; r itself is never modified.
func applyEdits(r *calculator.Review, edit *EditSplitReviewRequest) (*calculator.Review, error) {
	// Resolution problems stay on the review; anything else rejects the edit.
	check := func(err error) error {
		if errors.Is(err, calculator.ErrReconciliation) || errors.Is(err, calculator.ErrNoParticipants) {
			return nil
		}
		return err
	}

	c := r.Clone()
	for _, name := range edit.Remove {
		if err := check(c.RemoveParticipant(name)); err != nil {
			return nil, err
		}
	}
	for name, amount := range edit.Shares {
		if err := check(c.EditShare(name, amount)); err != nil {
			return nil, err
		}
	}
	switch {
	case edit.ClearGST:
		if err := check(c.SetGST(nil)); err != nil {
			return nil, err
		}
	case edit.GST != nil:
		gst := *edit.GST
		if err := check(c.SetGST(&gst)); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ConfirmSplitReview writes one debt per participant of a reconciled split.
// Per-participant write failures are reported in the response; debts that
// were written stand.
func (s *LedgerService) ConfirmSplitReview(ctx context.Context, req *connect.Request[ReviewRequest]) (*connect.Response[ConfirmSplitReviewResponse], error) {
	entry, err := s.lookupReview(ctx, req.Msg.ReviewID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	r := entry.review
	if r.Terminal() {
		return nil, connect.NewError(connect.CodeFailedPrecondition, calculator.ErrReviewClosed)
	}
	if r.State != calculator.ReviewReconciled {
		err := calculator.ErrNotReconciled
		if r.Problem != nil {
			err = fmt.Errorf("%w: %v", calculator.ErrNotReconciled, r.Problem)
		}
		return nil, connect.NewError(connect.CodeFailedPrecondition, err)
	}

	// The stored row must describe the split the debts are written from.
	if err := s.store.UpdateTransactionSplit(ctx, &r.Transaction); err != nil {
		slog.Error("ConfirmSplitReview failed to update transaction", "review_id", req.Msg.ReviewID, "error", err)
		return nil, toConnectError(err)
	}

	result, err := s.resolver.Persist(ctx, entry.userID, &r.Transaction, r.Allocation)
	partial, isPartial := ledger.AsPartialWrite(err)
	if err != nil && !isPartial {
		slog.Error("ConfirmSplitReview failed", "review_id", req.Msg.ReviewID, "error", err)
		return nil, toConnectError(err)
	}
	if err := r.MarkPersisted(); err != nil {
		return nil, toConnectError(err)
	}

	resp := &ConfirmSplitReviewResponse{
		Debts:          result.Debts,
		CreatedFriends: result.CreatedFriends,
	}
	if isPartial {
		slog.Warn("Split persisted with failures",
			"review_id", req.Msg.ReviewID,
			"written", partial.Written,
			"failed", len(partial.Failures),
		)
		resp.Failures = writeFailures(partial.Failures)
	}
	resp.Review = reviewView(req.Msg.ReviewID, r)

	if len(result.Debts) > 0 {
		s.publishDebts(ctx, entry.userID, r, result)
	}

	return connect.NewResponse(resp), nil
}

func (s *LedgerService) publishDebts(ctx context.Context, userID string, r *calculator.Review, result *ledger.Result) {
	event := events.DebtsCreated{
		UserID:        userID,
		TransactionID: r.Transaction.ID,
		Merchant:      r.Transaction.Merchant,
		Currency:      r.Transaction.Currency,
		Timestamp:     s.now(),
	}
	for _, d := range result.Debts {
		event.Debts = append(event.Debts, events.DebtRecord{
			DebtID:     d.ID,
			FriendID:   d.FriendID,
			FriendName: d.FriendName,
			Amount:     d.Amount,
		})
	}

	if err := s.publisher.PublishDebtsCreated(ctx, event); err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		slog.Error("Failed to publish debts created event", "transaction_id", r.Transaction.ID, "error", err)
		return
	}
	metrics.EventsPublished.WithLabelValues("ok").Inc()
}

// CancelSplitReview rejects an open review. No debts are written.
func (s *LedgerService) CancelSplitReview(ctx context.Context, req *connect.Request[ReviewRequest]) (*connect.Response[ReviewResponse], error) {
	entry, err := s.lookupReview(ctx, req.Msg.ReviewID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if err := entry.review.Reject(); err != nil {
		return nil, toConnectError(err)
	}
	slog.Info("Split review cancelled", "review_id", req.Msg.ReviewID, "user_id", entry.userID)

	return connect.NewResponse(&ReviewResponse{Review: reviewView(req.Msg.ReviewID, entry.review)}), nil
}

// ListDebts returns the caller's debts, optionally filtered by paid flag.
func (s *LedgerService) ListDebts(ctx context.Context, req *connect.Request[ListDebtsRequest]) (*connect.Response[ListDebtsResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	debts, err := s.store.ListDebts(ctx, userID, storage.DebtFilter{Paid: req.Msg.Paid})
	if err != nil {
		slog.Error("ListDebts failed", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&ListDebtsResponse{Debts: debts}), nil
}

// SetDebtPaid toggles the paid flag of one of the caller's debts.
func (s *LedgerService) SetDebtPaid(ctx context.Context, req *connect.Request[SetDebtPaidRequest]) (*connect.Response[SetDebtPaidResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.DebtID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("debt_id required"))
	}

	if err := s.store.SetDebtPaid(ctx, userID, req.Msg.DebtID, req.Msg.Paid); err != nil {
		slog.Warn("SetDebtPaid failed", "user_id", userID, "debt_id", req.Msg.DebtID, "error", err)
		return nil, toConnectError(err)
	}
	slog.Info("Debt updated", "debt_id", req.Msg.DebtID, "paid", req.Msg.Paid)

	return connect.NewResponse(&SetDebtPaidResponse{}), nil
}

// ListBalances sums the caller's unpaid debts per friend.
func (s *LedgerService) ListBalances(ctx context.Context, req *connect.Request[ListBalancesRequest]) (*connect.Response[ListBalancesResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	unpaid := false
	debts, err := s.store.ListDebts(ctx, userID, storage.DebtFilter{Paid: &unpaid})
	if err != nil {
		slog.Error("ListBalances failed", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	balances := calculator.FriendBalances(debts)
	total := decimal.Zero
	for _, b := range balances {
		total = total.Add(decimal.NewFromFloat(b.Amount))
	}

	return connect.NewResponse(&ListBalancesResponse{
		Balances: balances,
		Total:    total.Round(2).InexactFloat64(),
	}), nil
}

// PruneReviews drops expired reviews and returns how many were removed.
func (s *LedgerService) PruneReviews() int {
	return s.reviews.CleanExpired()
}

// lookupReview returns the caller's review or NotFound.
func (s *LedgerService) lookupReview(ctx context.Context, reviewID string) (*reviewEntry, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if reviewID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("review_id required"))
	}

	entry, ok := s.reviews.Get(reviewID)
	if !ok || entry.userID != userID {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("review %s not found", reviewID))
	}
	return entry, nil
}

func reviewView(id string, r *calculator.Review) Review {
	v := Review{
		ReviewID:    id,
		State:       r.State,
		Transaction: r.Transaction,
		Allocation:  r.Allocation,
	}
	if r.Problem != nil {
		v.Problem = r.Problem.Error()
	}
	return v
}
