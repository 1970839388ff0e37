// internal/service/wallet_service_test.go
package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"investflow-core/internal/domain"
	"investflow-core/internal/repository"
	"investflow-core/internal/util"
	"investflow-core/pkg/db" // Import pkg/db for interfaces and function types

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockDBExecutor is a mock implementation of repository.DBExecutor.
type MockDBExecutor struct {
	mock.Mock
}

func (m *MockDBExecutor) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	argsCalled := m.Called(ctx, dest, query, args)
	return argsCalled.Error(0)
}

func (m *MockDBExecutor) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	argsCalled := m.Called(ctx, dest, query, args)
	return argsCalled.Error(0)
}

func (m *MockDBExecutor) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	argsCalled := m.Called(ctx, query, args)
	return argsCalled.Get(0).(sql.Result), argsCalled.Error(1)
}

func (m *MockDBExecutor) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	m.Called(ctx, query, args)
	return &sql.Row{}
}

// MockWalletRepository is a mock implementation of repository.WalletRepository.
type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) CreateWallet(ctx context.Context, q repository.DBExecutor, wallet *domain.Wallet) error {
	args := m.Called(ctx, q, wallet)
	return args.Error(0)
}

func (m *MockWalletRepository) GetWalletByInvestorID(ctx context.Context, q repository.DBExecutor, investorID string) (*domain.Wallet, error) {
	args := m.Called(ctx, q, investorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Wallet), args.Error(1)
}

func (m *MockWalletRepository) GetWalletByInvestorIDForUpdate(ctx context.Context, q repository.DBExecutor, investorID string) (*domain.Wallet, error) {
	args := m.Called(ctx, q, investorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if fn, ok := args.Get(0).(func(context.Context, repository.DBExecutor, string) *domain.Wallet); ok {
		return fn(ctx, q, investorID), args.Error(1)
	}
	return args.Get(0).(*domain.Wallet), args.Error(1)
}

func (m *MockWalletRepository) ApplyBalanceChange(ctx context.Context, q repository.DBExecutor, wallet *domain.Wallet) error {
	args := m.Called(ctx, q, wallet)
	return args.Error(0)
}

func (m *MockWalletRepository) FreezeWallet(ctx context.Context, q repository.DBExecutor, walletID string) error {
	args := m.Called(ctx, q, walletID)
	return args.Error(0)
}

// MockLedgerRepository is a mock implementation of repository.LedgerRepository.
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) AppendEntry(ctx context.Context, q repository.DBExecutor, entry *domain.LedgerEntry) error {
	args := m.Called(ctx, q, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) ListEntriesByWalletID(ctx context.Context, q repository.DBExecutor, walletID string, limit, offset int) ([]domain.LedgerEntry, int64, error) {
	args := m.Called(ctx, q, walletID, limit, offset)
	return args.Get(0).([]domain.LedgerEntry), args.Get(1).(int64), args.Error(2)
}

func (m *MockLedgerRepository) ListAllEntriesByWalletID(ctx context.Context, q repository.DBExecutor, walletID string) ([]domain.LedgerEntry, error) {
	args := m.Called(ctx, q, walletID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LedgerEntry), args.Error(1)
}

// MockCommitmentRepository is a mock implementation of repository.CommitmentRepository.
type MockCommitmentRepository struct {
	mock.Mock
}

func (m *MockCommitmentRepository) CreateCommitment(ctx context.Context, q repository.DBExecutor, commitment *domain.Commitment) error {
	args := m.Called(ctx, q, commitment)
	return args.Error(0)
}

func (m *MockCommitmentRepository) GetCommitmentByID(ctx context.Context, q repository.DBExecutor, id string) (*domain.Commitment, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Commitment), args.Error(1)
}

func (m *MockCommitmentRepository) GetCommitmentByIDForUpdate(ctx context.Context, q repository.DBExecutor, id string) (*domain.Commitment, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Commitment), args.Error(1)
}

func (m *MockCommitmentRepository) UpdateCommitment(ctx context.Context, q repository.DBExecutor, commitment *domain.Commitment) error {
	args := m.Called(ctx, q, commitment)
	return args.Error(0)
}

func (m *MockCommitmentRepository) ListCommitmentsByInvestorID(ctx context.Context, q repository.DBExecutor, investorID string, limit, offset int) ([]domain.Commitment, int64, error) {
	args := m.Called(ctx, q, investorID, limit, offset)
	return args.Get(0).([]domain.Commitment), args.Get(1).(int64), args.Error(2)
}

// MockNegotiationRepository is a mock implementation of repository.NegotiationRepository.
type MockNegotiationRepository struct {
	mock.Mock
}

func (m *MockNegotiationRepository) AppendMessage(ctx context.Context, q repository.DBExecutor, message *domain.NegotiationMessage) error {
	args := m.Called(ctx, q, message)
	return args.Error(0)
}

func (m *MockNegotiationRepository) ListMessagesByCommitmentID(ctx context.Context, q repository.DBExecutor, commitmentID string, limit, offset int) ([]domain.NegotiationMessage, int64, error) {
	args := m.Called(ctx, q, commitmentID, limit, offset)
	return args.Get(0).([]domain.NegotiationMessage), args.Get(1).(int64), args.Error(2)
}

// MockDBBeginner is a mock implementation of db.DBTxBeginner.
type MockDBBeginner struct {
	mock.Mock
}

func (m *MockDBBeginner) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	args := m.Called(ctx, opts)
	return &sqlx.Tx{}, args.Error(1)
}

// MockTxController is a mock implementation of db.TxController.
// It also implicitly implements repository.DBExecutor for testing purposes
// by embedding MockDBExecutor.
type MockTxController struct {
	mock.Mock
	MockDBExecutor // Embed MockDBExecutor to satisfy repository.DBExecutor interface
}

func (m *MockTxController) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTxController) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

// txFuncs wires the begin/commit/rollback function triple to a mock controller.
func txFuncs(tx *MockTxController) (db.BeginTxFunc, db.CommitTxFunc, db.RollbackTxFunc) {
	return func(ctx context.Context, dbConn db.DBTxBeginner) (db.TxController, error) {
			return tx, nil
		},
		func(controller db.TxController) error {
			return tx.Commit()
		},
		func(controller db.TxController) {
			_ = tx.Rollback()
		}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testMinimumDeposit = decimal.NewFromInt(10)

// TestCreateWallet tests wallet provisioning.
func TestCreateWallet(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		ctx := context.Background()
		mockWalletRepo := new(MockWalletRepository)
		mockLedgerRepo := new(MockLedgerRepository)
		mockDBBeginner := new(MockDBBeginner)
		mockDBExecutor := new(MockDBExecutor)
		mockTxController := new(MockTxController)

		beginTx, commitTx, rollbackTx := txFuncs(mockTxController)
		service := NewWalletService(mockDBBeginner, mockDBExecutor, mockWalletRepo, mockLedgerRepo,
			testMinimumDeposit, beginTx, commitTx, rollbackTx, testLogger())

		mockWalletRepo.On("CreateWallet", ctx, mockDBExecutor, mock.AnythingOfType("*domain.Wallet")).Return(nil).Once()

		wallet, err := service.CreateWallet(ctx, "investor-1")

		require.NoError(t, err)
		require.NotNil(t, wallet)
		assert.Equal(t, "investor-1", wallet.InvestorID)
		assert.True(t, wallet.Balance.IsZero())
		assert.NotEmpty(t, wallet.ID)

		mock.AssertExpectationsForObjects(t, mockWalletRepo, mockLedgerRepo)
	})

	t.Run("EmptyInvestorID", func(t *testing.T) {
		ctx := context.Background()
		mockWalletRepo := new(MockWalletRepository)
		mockLedgerRepo := new(MockLedgerRepository)
		mockDBBeginner := new(MockDBBeginner)
		mockDBExecutor := new(MockDBExecutor)
		mockTxController := new(MockTxController)

		beginTx, commitTx, rollbackTx := txFuncs(mockTxController)
		service := NewWalletService(mockDBBeginner, mockDBExecutor, mockWalletRepo, mockLedgerRepo,
			testMinimumDeposit, beginTx, commitTx, rollbackTx, testLogger())

		wallet, err := service.CreateWallet(ctx, "")

		assert.ErrorIs(t, err, util.ErrInvalidInput)
		assert.Nil(t, wallet)
		mockWalletRepo.AssertNotCalled(t, "CreateWallet", mock.Anything, mock.Anything, mock.Anything)
	})
}

// TestWalletDeposit tests the Deposit method of WalletService.
func TestWalletDeposit(t *testing.T) {
	investorID := "investor-1"
	amount := decimal.NewFromInt(5000)

	t.Run("SuccessfulDeposit", func(t *testing.T) {
		ctx := context.Background()
		mockWalletRepo := new(MockWalletRepository)
		mockLedgerRepo := new(MockLedgerRepository)
		mockDBBeginner := new(MockDBBeginner)
		mockDBExecutor := new(MockDBExecutor)
		mockTxController := new(MockTxController)

		beginTx, commitTx, rollbackTx := txFuncs(mockTxController)
		service := NewWalletService(mockDBBeginner, mockDBExecutor, mockWalletRepo, mockLedgerRepo,
			testMinimumDeposit, beginTx, commitTx, rollbackTx, testLogger())

		wallet := domain.NewWallet(investorID)

		mockTxController.On("Commit").Return(nil).Once()
		mockTxController.On("Rollback").Return(nil).Maybe() // Deferred rollback after commit is a no-op.

		mockWalletRepo.On("GetWalletByInvestorIDForUpdate", ctx, mock.Anything, investorID).Return(wallet, nil).Once()
		mockWalletRepo.On("ApplyBalanceChange", ctx, mock.Anything, wallet).Return(nil).Once()
		mockLedgerRepo.On("AppendEntry", ctx, mock.Anything, mock.AnythingOfType("*domain.LedgerEntry")).Return(nil).Once()

		resWallet, resEntry, err := service.Deposit(ctx, investorID, amount, "dep-1")

		require.NoError(t, err)
		require.NotNil(t, resWallet)
		require.NotNil(t, resEntry)
		assert.True(t, amount.Equal(resWallet.Balance))
		assert.True(t, amount.Equal(resWallet.TotalDeposited))
		assert.Equal(t, domain.EntryKindDeposit, resEntry.Kind)
		assert.True(t, amount.Equal(resEntry.BalanceAfter))
		assert.Equal(t, "dep-1", resEntry.ReferenceID)

		mock.AssertExpectationsForObjects(t, mockTxController, mockWalletRepo, mockLedgerRepo)
	})

	t.Run("BelowMinimumDeposit", func(t *testing.T) {
		ctx := context.Background()
		mockWalletRepo := new(MockWalletRepository)
		mockLedgerRepo := new(MockLedgerRepository)
		mockDBBeginner := new(MockDBBeginner)
		mockDBExecutor := new(MockDBExecutor)
		mockTxController := new(MockTxController)

		beginTx, commitTx, rollbackTx := txFuncs(mockTxController)
		service := NewWalletService(mockDBBeginner, mockDBExecutor, mockWalletRepo, mockLedgerRepo,
			testMinimumDeposit, beginTx, commitTx, rollbackTx, testLogger())

		resWallet, resEntry, err := service.Deposit(ctx, investorID, decimal.NewFromInt(5), "dep-2")

		assert.ErrorIs(t, err, util.ErrInvalidInput)
		assert.Nil(t, resWallet)
		assert.Nil(t, resEntry)
		mockTxController.AssertNotCalled(t, "Commit")
		mockTxController.AssertNotCalled(t, "Rollback")
	})

	t.Run("MissingReferenceID", func(t *testing.T) {
		ctx := context.Background()
		mockWalletRepo := new(MockWalletRepository)
		mockLedgerRepo := new(MockLedgerRepository)
		mockDBBeginner := new(MockDBBeginner)
		mockDBExecutor := new(MockDBExecutor)
		mockTxController := new(MockTxController)

		beginTx, commitTx, rollbackTx := txFuncs(mockTxController)
		service := NewWalletService(mockDBBeginner, mockDBExecutor, mockWalletRepo, mockLedgerRepo,
			testMinimumDeposit, beginTx, commitTx, rollbackTx, testLogger())

		resWallet, resEntry, err := service.Deposit(ctx, investorID, amount, "")

		assert.ErrorIs(t, err, util.ErrInvalidInput)
		assert.Nil(t, resWallet)
		assert.Nil(t, resEntry)
	})

	t.Run("DuplicateReference", func(t *testing.T) {
		ctx := context.Background()
		mockWalletRepo := new(MockWalletRepository)
		mockLedgerRepo := new(MockLedgerRepository)
		mockDBBeginner := new(MockDBBeginner)
		mockDBExecutor := new(MockDBExecutor)
		mockTxController := new(MockTxController)

		beginTx, commitTx, rollbackTx := txFuncs(mockTxController)
		service := NewWalletService(mockDBBeginner, mockDBExecutor, mockWalletRepo, mockLedgerRepo,
			testMinimumDeposit, beginTx, commitTx, rollbackTx, testLogger())

		wallet := domain.NewWallet(investorID)

		// The ledger append hits the unique (reference_id, kind) index, so the
		// whole transaction rolls back and the balance write never commits.
		mockWalletRepo.On("GetWalletByInvestorIDForUpdate", ctx, mock.Anything, investorID).Return(wallet, nil).Once()
		mockWalletRepo.On("ApplyBalanceChange", ctx, mock.Anything, wallet).Return(nil).Once()
		mockLedgerRepo.On("AppendEntry", ctx, mock.Anything, mock.AnythingOfType("*domain.LedgerEntry")).Return(util.ErrDuplicateReference).Once()
		mockTxController.On("Rollback").Return(nil).Once()

		resWallet, resEntry, err := service.Deposit(ctx, investorID, amount, "dep-1")

		assert.ErrorIs(t, err, util.ErrDuplicateReference)
		assert.Nil(t, resWallet)
		assert.Nil(t, resEntry)
		mockTxController.AssertNotCalled(t, "Commit")

		mock.AssertExpectationsForObjects(t, mockTxController, mockWalletRepo, mockLedgerRepo)
	})

	t.Run("FrozenWallet", func(t *testing.T) {
		ctx := context.Background()
		mockWalletRepo := new(MockWalletRepository)
		mockLedgerRepo := new(MockLedgerRepository)
		mockDBBeginner := new(MockDBBeginner)
		mockDBExecutor := new(MockDBExecutor)
		mockTxController := new(MockTxController)

		beginTx, commitTx, rollbackTx := txFuncs(mockTxController)
		service := NewWalletService(mockDBBeginner, mockDBExecutor, mockWalletRepo, mockLedgerRepo,
			testMinimumDeposit, beginTx, commitTx, rollbackTx, testLogger())

		wallet := domain.NewWallet(investorID)
		wallet.Frozen = true

		mockWalletRepo.On("GetWalletByInvestorIDForUpdate", ctx, mock.Anything, investorID).Return(wallet, nil).Once()
		mockTxController.On("Rollback").Return(nil).Once()

		_, _, err := service.Deposit(ctx, investorID, amount, "dep-3")

		assert.ErrorIs(t, err, util.ErrWalletFrozen)
		mockWalletRepo.AssertNotCalled(t, "ApplyBalanceChange", mock.Anything, mock.Anything, mock.Anything)
		mockTxController.AssertNotCalled(t, "Commit")
	})
}

// TestReserve tests the Reserve method of WalletService.
func TestReserve(t *testing.T) {
	investorID := "investor-1"

	t.Run("SuccessfulReservation", func(t *testing.T) {
		ctx := context.Background()
		mockWalletRepo := new(MockWalletRepository)
		mockLedgerRepo := new(MockLedgerRepository)
		mockDBBeginner := new(MockDBBeginner)
		mockDBExecutor := new(MockDBExecutor)
		mockTxController := new(MockTxController)

		beginTx, commitTx, rollbackTx := txFuncs(mockTxController)
		service := NewWalletService(mockDBBeginner, mockDBExecutor, mockWalletRepo, mockLedgerRepo,
			testMinimumDeposit, beginTx, commitTx, rollbackTx, testLogger())

		wallet := domain.NewWallet(investorID)
		wallet.Balance = decimal.NewFromInt(5000)
		wallet.TotalDeposited = decimal.NewFromInt(5000)

		mockTxController.On("Commit").Return(nil).Once()
		mockTxController.On("Rollback").Return(nil).Maybe()

		mockWalletRepo.On("GetWalletByInvestorIDForUpdate", ctx, mock.Anything, investorID).Return(wallet, nil).Once()
		mockWalletRepo.On("ApplyBalanceChange", ctx, mock.Anything, wallet).Return(nil).Once()
		mockLedgerRepo.On("AppendEntry", ctx, mock.Anything, mock.AnythingOfType("*domain.LedgerEntry")).Return(nil).Once()

		resWallet, resEntry, err := service.Reserve(ctx, investorID, decimal.NewFromInt(1200), "commit-1")

		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(3800).Equal(resWallet.Balance))
		assert.True(t, decimal.NewFromInt(1200).Equal(resWallet.TotalInvested))
		assert.Equal(t, domain.EntryKindInvestment, resEntry.Kind)
		assert.True(t, decimal.NewFromInt(3800).Equal(resEntry.BalanceAfter))

		mock.AssertExpectationsForObjects(t, mockTxController, mockWalletRepo, mockLedgerRepo)
	})

	t.Run("InsufficientFunds", func(t *testing.T) {
		ctx := context.Background()
		mockWalletRepo := new(MockWalletRepository)
		mockLedgerRepo := new(MockLedgerRepository)
		mockDBBeginner := new(MockDBBeginner)
		mockDBExecutor := new(MockDBExecutor)
		mockTxController := new(MockTxController)

		beginTx, commitTx, rollbackTx := txFuncs(mockTxController)
		service := NewWalletService(mockDBBeginner, mockDBExecutor, mockWalletRepo, mockLedgerRepo,
			testMinimumDeposit, beginTx, commitTx, rollbackTx, testLogger())

		wallet := domain.NewWallet(investorID)
		wallet.Balance = decimal.NewFromInt(100)
		wallet.TotalDeposited = decimal.NewFromInt(100)

		mockWalletRepo.On("GetWalletByInvestorIDForUpdate", ctx, mock.Anything, investorID).Return(wallet, nil).Once()
		mockTxController.On("Rollback").Return(nil).Once()

		resWallet, resEntry, err := service.Reserve(ctx, investorID, decimal.NewFromInt(1200), "commit-1")

		assert.ErrorIs(t, err, util.ErrInsufficientFunds)
		assert.Nil(t, resWallet)
		assert.Nil(t, resEntry)
		// The failed check must not leave a partial debit behind.
		mockWalletRepo.AssertNotCalled(t, "ApplyBalanceChange", mock.Anything, mock.Anything, mock.Anything)
		mockLedgerRepo.AssertNotCalled(t, "AppendEntry", mock.Anything, mock.Anything, mock.Anything)
		mockTxController.AssertNotCalled(t, "Commit")
	})

	t.Run("ConflictRetriesExhausted", func(t *testing.T) {
		ctx := context.Background()
		mockWalletRepo := new(MockWalletRepository)
		mockLedgerRepo := new(MockLedgerRepository)
		mockDBBeginner := new(MockDBBeginner)
		mockDBExecutor := new(MockDBExecutor)
		mockTxController := new(MockTxController)

		beginTx, commitTx, rollbackTx := txFuncs(mockTxController)
		service := NewWalletService(mockDBBeginner, mockDBExecutor, mockWalletRepo, mockLedgerRepo,
			testMinimumDeposit, beginTx, commitTx, rollbackTx, testLogger())

		// Every attempt loses the version race; the conflict surfaces after the
		// bounded retry loop. Each attempt re-reads a fresh wallet snapshot.
		mockWalletRepo.On("GetWalletByInvestorIDForUpdate", ctx, mock.Anything, investorID).
			Return(func(ctx context.Context, q repository.DBExecutor, id string) *domain.Wallet {
				w := domain.NewWallet(id)
				w.Balance = decimal.NewFromInt(5000)
				w.TotalDeposited = decimal.NewFromInt(5000)
				return w
			}, nil).Times(maxConflictRetries)
		mockWalletRepo.On("ApplyBalanceChange", ctx, mock.Anything, mock.AnythingOfType("*domain.Wallet")).
			Return(util.ErrConflict).Times(maxConflictRetries)
		mockTxController.On("Rollback").Return(nil).Times(maxConflictRetries)

		_, _, err := service.Reserve(ctx, investorID, decimal.NewFromInt(1200), "commit-1")

		assert.ErrorIs(t, err, util.ErrConflict)
		mockTxController.AssertNotCalled(t, "Commit")

		mock.AssertExpectationsForObjects(t, mockTxController, mockWalletRepo)
	})
}

// TestReconstructBalance tests ledger replay auditing.
func TestReconstructBalance(t *testing.T) {
	investorID := "investor-1"

	t.Run("ReplayMatches", func(t *testing.T) {
		ctx := context.Background()
		mockWalletRepo := new(MockWalletRepository)
		mockLedgerRepo := new(MockLedgerRepository)
		mockDBBeginner := new(MockDBBeginner)
		mockDBExecutor := new(MockDBExecutor)
		mockTxController := new(MockTxController)

		beginTx, commitTx, rollbackTx := txFuncs(mockTxController)
		service := NewWalletService(mockDBBeginner, mockDBExecutor, mockWalletRepo, mockLedgerRepo,
			testMinimumDeposit, beginTx, commitTx, rollbackTx, testLogger())

		wallet := domain.NewWallet(investorID)
		wallet.Balance = decimal.NewFromInt(3800)
		wallet.TotalDeposited = decimal.NewFromInt(5000)
		wallet.TotalInvested = decimal.NewFromInt(1200)

		entries := []domain.LedgerEntry{
			*domain.NewLedgerEntry(wallet, domain.EntryKindDeposit, decimal.NewFromInt(5000), decimal.NewFromInt(5000), "dep-1"),
			*domain.NewLedgerEntry(wallet, domain.EntryKindInvestment, decimal.NewFromInt(1200), decimal.NewFromInt(3800), "commit-1"),
		}

		mockTxController.On("Commit").Return(nil).Once()
		mockTxController.On("Rollback").Return(nil).Maybe()

		mockWalletRepo.On("GetWalletByInvestorIDForUpdate", ctx, mock.Anything, investorID).Return(wallet, nil).Once()
		mockLedgerRepo.On("ListAllEntriesByWalletID", ctx, mock.Anything, wallet.ID).Return(entries, nil).Once()

		balance, err := service.ReconstructBalance(ctx, investorID)

		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(3800).Equal(balance))
		mockWalletRepo.AssertNotCalled(t, "FreezeWallet", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("AuditLocksWalletAgainstConcurrentMutations", func(t *testing.T) {
		ctx := context.Background()
		mockWalletRepo := new(MockWalletRepository)
		mockLedgerRepo := new(MockLedgerRepository)
		mockDBBeginner := new(MockDBBeginner)
		mockDBExecutor := new(MockDBExecutor)
		mockTxController := new(MockTxController)

		beginTx, commitTx, rollbackTx := txFuncs(mockTxController)
		service := NewWalletService(mockDBBeginner, mockDBExecutor, mockWalletRepo, mockLedgerRepo,
			testMinimumDeposit, beginTx, commitTx, rollbackTx, testLogger())

		// A second deposit committed just before the audit. Because the audit
		// takes the wallet row lock inside one transaction, it observes the
		// post-deposit wallet together with the post-deposit ledger, never a
		// stale wallet snapshot against a fresher ledger.
		wallet := domain.NewWallet(investorID)
		wallet.Balance = decimal.NewFromInt(6000)
		wallet.TotalDeposited = decimal.NewFromInt(6000)

		entries := []domain.LedgerEntry{
			*domain.NewLedgerEntry(wallet, domain.EntryKindDeposit, decimal.NewFromInt(5000), decimal.NewFromInt(5000), "dep-1"),
			*domain.NewLedgerEntry(wallet, domain.EntryKindDeposit, decimal.NewFromInt(1000), decimal.NewFromInt(6000), "dep-2"),
		}

		mockTxController.On("Commit").Return(nil).Once()
		mockTxController.On("Rollback").Return(nil).Maybe()

		mockWalletRepo.On("GetWalletByInvestorIDForUpdate", ctx, mock.Anything, investorID).Return(wallet, nil).Once()
		mockLedgerRepo.On("ListAllEntriesByWalletID", ctx, mock.Anything, wallet.ID).Return(entries, nil).Once()

		balance, err := service.ReconstructBalance(ctx, investorID)

		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(6000).Equal(balance))
		// A healthy wallet under concurrent traffic must never be frozen, and
		// the audit must not take the non-locking read path.
		mockWalletRepo.AssertNotCalled(t, "FreezeWallet", mock.Anything, mock.Anything, mock.Anything)
		mockWalletRepo.AssertNotCalled(t, "GetWalletByInvestorID", mock.Anything, mock.Anything, mock.Anything)

		mock.AssertExpectationsForObjects(t, mockTxController, mockWalletRepo, mockLedgerRepo)
	})

	t.Run("MismatchFreezesWallet", func(t *testing.T) {
		ctx := context.Background()
		mockWalletRepo := new(MockWalletRepository)
		mockLedgerRepo := new(MockLedgerRepository)
		mockDBBeginner := new(MockDBBeginner)
		mockDBExecutor := new(MockDBExecutor)
		mockTxController := new(MockTxController)

		beginTx, commitTx, rollbackTx := txFuncs(mockTxController)
		service := NewWalletService(mockDBBeginner, mockDBExecutor, mockWalletRepo, mockLedgerRepo,
			testMinimumDeposit, beginTx, commitTx, rollbackTx, testLogger())

		wallet := domain.NewWallet(investorID)
		wallet.Balance = decimal.NewFromInt(4000) // Stored balance drifted from the ledger.
		wallet.TotalDeposited = decimal.NewFromInt(4000)

		entries := []domain.LedgerEntry{
			*domain.NewLedgerEntry(wallet, domain.EntryKindDeposit, decimal.NewFromInt(5000), decimal.NewFromInt(5000), "dep-1"),
		}

		mockTxController.On("Commit").Return(nil).Once()
		mockTxController.On("Rollback").Return(nil).Maybe()

		mockWalletRepo.On("GetWalletByInvestorIDForUpdate", ctx, mock.Anything, investorID).Return(wallet, nil).Once()
		mockLedgerRepo.On("ListAllEntriesByWalletID", ctx, mock.Anything, wallet.ID).Return(entries, nil).Once()
		mockWalletRepo.On("FreezeWallet", ctx, mockDBExecutor, wallet.ID).Return(nil).Once()

		_, err := service.ReconstructBalance(ctx, investorID)

		assert.ErrorIs(t, err, util.ErrLedgerIntegrity)
		mock.AssertExpectationsForObjects(t, mockWalletRepo, mockLedgerRepo)
	})

	t.Run("TamperedEntryFreezesWallet", func(t *testing.T) {
		ctx := context.Background()
		mockWalletRepo := new(MockWalletRepository)
		mockLedgerRepo := new(MockLedgerRepository)
		mockDBBeginner := new(MockDBBeginner)
		mockDBExecutor := new(MockDBExecutor)
		mockTxController := new(MockTxController)

		beginTx, commitTx, rollbackTx := txFuncs(mockTxController)
		service := NewWalletService(mockDBBeginner, mockDBExecutor, mockWalletRepo, mockLedgerRepo,
			testMinimumDeposit, beginTx, commitTx, rollbackTx, testLogger())

		wallet := domain.NewWallet(investorID)
		wallet.Balance = decimal.NewFromInt(5000)
		wallet.TotalDeposited = decimal.NewFromInt(5000)

		// An entry whose recorded balance-after disagrees with the replay.
		entries := []domain.LedgerEntry{
			*domain.NewLedgerEntry(wallet, domain.EntryKindDeposit, decimal.NewFromInt(5000), decimal.NewFromInt(4999), "dep-1"),
		}

		mockTxController.On("Commit").Return(nil).Once()
		mockTxController.On("Rollback").Return(nil).Maybe()

		mockWalletRepo.On("GetWalletByInvestorIDForUpdate", ctx, mock.Anything, investorID).Return(wallet, nil).Once()
		mockLedgerRepo.On("ListAllEntriesByWalletID", ctx, mock.Anything, wallet.ID).Return(entries, nil).Once()
		mockWalletRepo.On("FreezeWallet", ctx, mockDBExecutor, wallet.ID).Return(nil).Once()

		_, err := service.ReconstructBalance(ctx, investorID)

		assert.ErrorIs(t, err, util.ErrLedgerIntegrity)
		mock.AssertExpectationsForObjects(t, mockWalletRepo, mockLedgerRepo)
	})
}
