package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bank-ledger/internal/core/domain"
	"bank-ledger/internal/core/ports"
	"bank-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	defaultIdempotencyTTL = 24 * time.Hour
	defaultMaxRetries     = 3
)

// LedgerOptions tunes the ledger engine.
type LedgerOptions struct {
	DefaultAccountType domain.AccountType
	IdempotencyTTL     time.Duration
	// MaxRetries bounds how often a transaction aborted by a write conflict is re-run.
	// Zero selects the default; a negative value disables retries.
	MaxRetries int
}

func (o LedgerOptions) withDefaults() LedgerOptions {
	if o.DefaultAccountType == "" {
		o.DefaultAccountType = domain.DefaultAccountType
	}
	if o.IdempotencyTTL <= 0 {
		o.IdempotencyTTL = defaultIdempotencyTTL
	}
	switch {
	case o.MaxRetries == 0:
		o.MaxRetries = defaultMaxRetries
	case o.MaxRetries < 0:
		o.MaxRetries = 0
	}
	return o
}

// LedgerServiceImpl implements ports.LedgerService.
type LedgerServiceImpl struct {
	accountRepo   ports.AccountRepository
	statementRepo ports.StatementRepository
	idempRepo     ports.IdempotencyRepository
	idempCache    ports.IdempotencyCache // optional
	identity      ports.IdentityStore    // optional
	transactor    ports.DBTransactor
	opts          LedgerOptions
	log           zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
// idempCache and identity may be nil: without a cache every idempotency check
// goes to the database, without an identity store transfer recipients are not verified.
func NewLedgerService(
	accountRepo ports.AccountRepository,
	statementRepo ports.StatementRepository,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	identity ports.IdentityStore,
	transactor ports.DBTransactor,
	opts LedgerOptions,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		accountRepo:   accountRepo,
		statementRepo: statementRepo,
		idempRepo:     idempRepo,
		idempCache:    idempCache,
		identity:      identity,
		transactor:    transactor,
		opts:          opts.withDefaults(),
		log:           log,
	}
}

// GetBalance returns the owner's balance, 0 when no account exists.
func (s *LedgerServiceImpl) GetBalance(ctx context.Context, ownerID string) (int64, error) {
	acc, err := s.GetAccount(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	if acc == nil {
		return 0, nil
	}
	return acc.Balance, nil
}

// GetAccount returns the owner's account or nil when it does not exist.
func (s *LedgerServiceImpl) GetAccount(ctx context.Context, ownerID string) (*domain.Account, error) {
	acc, err := s.accountRepo.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, storageErr("get account", err)
	}
	return acc, nil
}

// Deposit credits the owner's account, creating it on first deposit.
func (s *LedgerServiceImpl) Deposit(ctx context.Context, req ports.DepositRequest) (*domain.Receipt, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	accountType := req.AccountType
	if accountType == "" {
		accountType = s.opts.DefaultAccountType
	}
	if !accountType.Valid() {
		return nil, apperror.ErrInvalidAccountType()
	}

	var idempKey string
	if req.IdempotencyKey != "" {
		idempKey = domain.BuildIdempotencyKey(req.OwnerID, domain.OperationDeposit, req.IdempotencyKey)
		receipt, err := s.lookupReceipt(ctx, idempKey)
		if err != nil || receipt != nil {
			return receipt, err
		}
	}

	var receipt *domain.Receipt
	err := s.withRetry(ctx, domain.OperationDeposit, func() error {
		var err error
		receipt, err = s.applyDeposit(ctx, req.OwnerID, accountType, req.Amount, idempKey)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !receipt.Replayed {
		s.cacheReceipt(ctx, idempKey, receipt)
		s.log.Info().
			Str("tx_id", receipt.TransactionID.String()).
			Str("owner_id", req.OwnerID).
			Int64("amount", req.Amount).
			Msg("deposit applied")
	}

	return receipt, nil
}

func (s *LedgerServiceImpl) applyDeposit(ctx context.Context, ownerID string, accountType domain.AccountType, amount int64, idempKey string) (*domain.Receipt, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, storageErr("begin tx", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	acc, err := s.accountRepo.Credit(ctx, dbTx, ownerID, accountType, amount)
	if err != nil {
		return nil, creditErr("credit account", err)
	}

	at := timestamp()
	txID := uuid.New()

	entry, err := domain.NewEntry(ownerID, txID, domain.DirectionCredit, amount, domain.DepositDescription(), at)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if err := s.statementRepo.Create(ctx, dbTx, entry); err != nil {
		return nil, storageErr("create statement entry", err)
	}

	receipt := &domain.Receipt{
		TransactionID: txID,
		Kind:          domain.ReceiptKindDeposit,
		OwnerID:       ownerID,
		Amount:        amount,
		Balance:       acc.Balance,
		CreatedAt:     at,
	}

	return s.commit(ctx, dbTx, idempKey, receipt)
}

// Transfer moves amount from sender to recipient as one atomic unit.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (*domain.Receipt, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.SenderID == req.RecipientID {
		return nil, apperror.ErrSameAccount()
	}

	var idempKey string
	if req.IdempotencyKey != "" {
		idempKey = domain.BuildIdempotencyKey(req.SenderID, domain.OperationTransfer, req.IdempotencyKey)
		receipt, err := s.lookupReceipt(ctx, idempKey)
		if err != nil || receipt != nil {
			return receipt, err
		}
	}

	if s.identity != nil {
		exists, err := s.identity.UserExists(ctx, req.RecipientID)
		if err != nil {
			return nil, storageErr("check recipient", err)
		}
		if !exists {
			return nil, apperror.ErrRecipientNotFound()
		}
	}

	var receipt *domain.Receipt
	err := s.withRetry(ctx, domain.OperationTransfer, func() error {
		var err error
		receipt, err = s.applyTransfer(ctx, req, idempKey)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !receipt.Replayed {
		s.cacheReceipt(ctx, idempKey, receipt)
		s.log.Info().
			Str("tx_id", receipt.TransactionID.String()).
			Str("sender_id", req.SenderID).
			Str("recipient_id", req.RecipientID).
			Int64("amount", req.Amount).
			Msg("transfer applied")
	}

	return receipt, nil
}

func (s *LedgerServiceImpl) applyTransfer(ctx context.Context, req ports.TransferRequest, idempKey string) (*domain.Receipt, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, storageErr("begin tx", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	var sender *domain.Account
	debit := func() error {
		acc, err := s.accountRepo.Debit(ctx, dbTx, req.SenderID, req.Amount)
		if err != nil {
			return storageErr("debit sender", err)
		}
		if acc == nil {
			return apperror.ErrInsufficientFunds()
		}
		sender = acc
		return nil
	}
	credit := func() error {
		if _, err := s.accountRepo.Credit(ctx, dbTx, req.RecipientID, domain.DefaultAccountType, req.Amount); err != nil {
			return creditErr("credit recipient", err)
		}
		return nil
	}

	// Rows are locked in ascending owner id order so opposing transfers cannot deadlock.
	steps := []func() error{debit, credit}
	if req.RecipientID < req.SenderID {
		steps = []func() error{credit, debit}
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	at := timestamp()
	txID := uuid.New()

	out, err := domain.NewEntry(req.SenderID, txID, domain.DirectionDebit, req.Amount, domain.TransferOutDescription(req.RecipientID), at)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	in, err := domain.NewEntry(req.RecipientID, txID, domain.DirectionCredit, req.Amount, domain.TransferInDescription(req.SenderID), at)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	for _, entry := range []*domain.StatementEntry{out, in} {
		if err := s.statementRepo.Create(ctx, dbTx, entry); err != nil {
			return nil, storageErr("create statement entry", err)
		}
	}

	receipt := &domain.Receipt{
		TransactionID:  txID,
		Kind:           domain.ReceiptKindTransfer,
		OwnerID:        req.SenderID,
		CounterpartyID: req.RecipientID,
		Amount:         req.Amount,
		Balance:        sender.Balance,
		CreatedAt:      at,
	}

	return s.commit(ctx, dbTx, idempKey, receipt)
}

// ListStatements returns the owner's entries, most recent first.
func (s *LedgerServiceImpl) ListStatements(ctx context.Context, params ports.StatementListParams) ([]domain.StatementEntry, int64, error) {
	params = params.Normalized()
	if params.Page > ports.MaxStatementPage {
		return nil, 0, apperror.Validation(fmt.Sprintf("page must be at most %d", ports.MaxStatementPage))
	}

	entries, total, err := s.statementRepo.List(ctx, params)
	if errors.Is(err, domain.ErrPageOutOfRange) {
		return nil, 0, apperror.Validation("page out of range")
	}
	if err != nil {
		return nil, 0, storageErr("list statements", err)
	}
	return entries, total, nil
}

// commit persists the idempotency record (when keyed) and commits the transaction.
// A concurrent request holding the same key wins; its stored receipt is returned instead.
func (s *LedgerServiceImpl) commit(ctx context.Context, dbTx pgx.Tx, idempKey string, receipt *domain.Receipt) (*domain.Receipt, error) {
	if idempKey != "" {
		respJSON, err := json.Marshal(receipt)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("marshal receipt: %w", err))
		}

		record := &domain.IdempotencyRecord{
			Key:           idempKey,
			TransactionID: receipt.TransactionID,
			ResponseJSON:  respJSON,
			CreatedAt:     receipt.CreatedAt,
		}
		if err := s.idempRepo.Create(ctx, dbTx, record); err != nil {
			if errors.Is(err, domain.ErrDuplicateKey) {
				_ = dbTx.Rollback(ctx)
				return s.storedReceipt(ctx, idempKey)
			}
			return nil, storageErr("save idempotency record", err)
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, storageErr("commit tx", err)
	}
	return receipt, nil
}

// withRetry re-runs fn while it fails with a write conflict, up to MaxRetries times.
func (s *LedgerServiceImpl) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, domain.ErrWriteConflict) {
			return err
		}
		if ctx.Err() != nil {
			return storageErr(op, ctx.Err())
		}
		s.log.Warn().Err(err).Str("op", op).Int("attempt", attempt+1).Msg("write conflict, retrying")
	}
	return err
}

// lookupReceipt checks Redis first, then the database, for a stored receipt.
func (s *LedgerServiceImpl) lookupReceipt(ctx context.Context, key string) (*domain.Receipt, error) {
	if s.idempCache != nil {
		cached, err := s.idempCache.Get(ctx, key)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, falling through to DB")
		}
		if cached != nil {
			return unmarshalReceipt(cached)
		}
	}

	record, err := s.idempRepo.Get(ctx, key)
	if err != nil {
		return nil, storageErr("db idempotency check", err)
	}
	if record == nil {
		return nil, nil
	}
	return unmarshalReceipt(record.ResponseJSON)
}

func (s *LedgerServiceImpl) storedReceipt(ctx context.Context, key string) (*domain.Receipt, error) {
	record, err := s.idempRepo.Get(ctx, key)
	if err != nil {
		return nil, storageErr("load idempotency record", err)
	}
	if record == nil {
		return nil, apperror.ErrStorage(fmt.Errorf("idempotency record %q vanished", key))
	}
	return unmarshalReceipt(record.ResponseJSON)
}

// cacheReceipt stores the receipt in Redis (best-effort).
func (s *LedgerServiceImpl) cacheReceipt(ctx context.Context, key string, receipt *domain.Receipt) {
	if key == "" || s.idempCache == nil {
		return
	}
	respJSON, err := json.Marshal(receipt)
	if err != nil {
		return
	}
	if err := s.idempCache.Set(ctx, key, respJSON, s.opts.IdempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to cache idempotency in redis")
	}
}

func unmarshalReceipt(data []byte) (*domain.Receipt, error) {
	var receipt domain.Receipt
	if err := json.Unmarshal(data, &receipt); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached receipt: %w", err))
	}
	receipt.Replayed = true
	return &receipt, nil
}

func storageErr(op string, err error) error {
	return apperror.ErrStorage(fmt.Errorf("%s: %w", op, err))
}

// creditErr reports a balance that would overflow as a business error.
func creditErr(op string, err error) error {
	if errors.Is(err, domain.ErrBalanceOverflow) {
		return apperror.ErrBalanceLimit()
	}
	return storageErr(op, err)
}

// timestamp is truncated to the precision postgres stores.
func timestamp() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
