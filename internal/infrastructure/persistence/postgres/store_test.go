package postgres_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DanielPopoola/payment-orchestrator/internal/application"
	"github.com/DanielPopoola/payment-orchestrator/internal/application/gatewayinfo"
	"github.com/DanielPopoola/payment-orchestrator/internal/application/services"
	"github.com/DanielPopoola/payment-orchestrator/internal/domain"
	"github.com/DanielPopoola/payment-orchestrator/internal/gateway"
	"github.com/DanielPopoola/payment-orchestrator/internal/gateway/gatewaytest"
	"github.com/DanielPopoola/payment-orchestrator/internal/infrastructure/persistence/postgres"
	"github.com/DanielPopoola/payment-orchestrator/internal/infrastructure/persistence/postgres/postgrestest"
	"github.com/stretchr/testify/suite"
)

type StoreTestSuite struct {
	suite.Suite
	db    *postgrestest.TestDatabase
	store *postgres.Store
	ctx   context.Context
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (s *StoreTestSuite) SetupSuite() {
	s.ctx = context.Background()
	s.db = postgrestest.SetupTestDatabase(s.T())
	s.store = postgres.NewStore(s.db.DB)
}

func (s *StoreTestSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Cleanup(s.T())
	}
}

func (s *StoreTestSuite) SetupTest() {
	s.db.CleanTables(s.T())
}

func (s *StoreTestSuite) newPayment(amount string, status domain.PaymentStatus) *domain.Payment {
	p, err := domain.NewPayment(domain.Draft{
		Gateway:    "Dummy",
		Money:      domain.Money{Amount: amount, Currency: "USD"},
		SuccessURL: "https://shop.test/success",
	})
	s.Require().NoError(err)
	s.Require().NoError(p.TransitionTo(status))
	return p
}

func (s *StoreTestSuite) create(amount string, status domain.PaymentStatus) *domain.Payment {
	p := s.newPayment(amount, status)
	s.Require().NoError(s.store.Payments().Create(s.ctx, p))
	return p
}

// ============================================================================
// PAYMENT REPOSITORY
// ============================================================================

func (s *StoreTestSuite) TestCreateAndFind() {
	p := s.newPayment("100.00", domain.StatusCreated)
	s.Require().NoError(s.store.Payments().Create(s.ctx, p))
	s.Equal(1, p.Version())
	s.NotEmpty(p.Identifier())

	byID, err := s.store.Payments().FindByID(s.ctx, p.ID())
	s.Require().NoError(err)
	s.Equal(p.Identifier(), byID.Identifier())
	s.Equal("100.00", byID.Amount())
	s.Equal("USD", byID.Currency())
	s.Equal(domain.StatusCreated, byID.Status())
	s.Equal("https://shop.test/success", byID.SuccessURL())
	s.Empty(byID.FailureURL())
	s.Empty(byID.TransactionReference())
	s.Nil(byID.InitialPaymentID())

	byIdent, err := s.store.Payments().FindByIdentifier(s.ctx, p.Identifier())
	s.Require().NoError(err)
	s.Equal(p.ID(), byIdent.ID())

	_, err = s.store.Payments().FindByIdentifier(s.ctx, "")
	s.ErrorIs(err, domain.ErrPaymentNotFound)

	_, err = s.store.Payments().FindByID(s.ctx, s.newPayment("1", domain.StatusCreated).ID())
	s.ErrorIs(err, domain.ErrPaymentNotFound)

	s.Error(s.store.Payments().Create(s.ctx, p), "duplicate id")
}

func (s *StoreTestSuite) TestUpdateIsOptimistic() {
	p := s.create("100.00", domain.StatusCreated)

	first, err := s.store.Payments().FindByID(s.ctx, p.ID())
	s.Require().NoError(err)
	second, err := s.store.Payments().FindByID(s.ctx, p.ID())
	s.Require().NoError(err)

	s.Require().NoError(first.TransitionTo(domain.StatusAuthorized))
	first.SetTransactionReference("auth-1")
	s.Require().NoError(s.store.Payments().Update(s.ctx, first))
	s.Equal(2, first.Version())

	s.Require().NoError(second.TransitionTo(domain.StatusVoid))
	err = s.store.Payments().Update(s.ctx, second)
	s.ErrorIs(err, domain.ErrStaleVersion)

	stored, err := s.store.Payments().FindByID(s.ctx, p.ID())
	s.Require().NoError(err)
	s.Equal(domain.StatusAuthorized, stored.Status())
	s.Equal("auth-1", stored.TransactionReference())
	s.Equal(2, stored.Version())
}

func (s *StoreTestSuite) TestUpdateMissingPayment() {
	p := s.newPayment("1.00", domain.StatusCreated)
	err := s.store.Payments().Update(s.ctx, p)
	s.ErrorIs(err, domain.ErrPaymentNotFound)
}

func (s *StoreTestSuite) TestNegativeAmountsRoundTrip() {
	parent := s.create("100.00", domain.StatusAuthorized)
	child, err := domain.NewPartialPayment(parent, "-5.50", domain.StatusPendingCapture)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Payments().Create(s.ctx, child))

	stored, err := s.store.Payments().FindByID(s.ctx, child.ID())
	s.Require().NoError(err)
	s.Equal("-5.50", stored.Amount())
	s.Require().NotNil(stored.InitialPaymentID())
	s.Equal(parent.ID(), *stored.InitialPaymentID())
}

func (s *StoreTestSuite) TestPartialNeedsParent() {
	orphanParent := s.newPayment("10.00", domain.StatusAuthorized)
	child, err := domain.NewPartialPayment(orphanParent, "5.00", domain.StatusPendingCapture)
	s.Require().NoError(err)

	err = s.store.Payments().Create(s.ctx, child)
	s.ErrorIs(err, domain.ErrPaymentNotFound)
}

func (s *StoreTestSuite) TestFindPartials() {
	parent := s.create("100.00", domain.StatusAuthorized)

	var ids []string
	for _, amount := range []string{"10", "20", "30"} {
		child, err := domain.NewPartialPayment(parent, amount, domain.StatusPendingCapture)
		s.Require().NoError(err)
		s.Require().NoError(s.store.Payments().Create(s.ctx, child))
		ids = append(ids, child.ID().String())
	}

	children, err := s.store.Payments().FindPartials(s.ctx, parent.ID(), domain.StatusPendingCapture)
	s.Require().NoError(err)
	s.Require().Len(children, 3)
	s.Equal(ids[2], children[0].ID().String())
	s.Equal(ids[0], children[2].ID().String())

	all, err := s.store.Payments().FindPartials(s.ctx, parent.ID(), "")
	s.Require().NoError(err)
	s.Len(all, 3)

	none, err := s.store.Payments().FindPartials(s.ctx, parent.ID(), domain.StatusCaptured)
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *StoreTestSuite) TestFindStale() {
	pending := s.create("100.00", domain.StatusPendingPurchase)
	s.create("100.00", domain.StatusCaptured)

	child, err := domain.NewPartialPayment(pending, "5", domain.StatusPendingCapture)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Payments().Create(s.ctx, child))

	statuses := []domain.PaymentStatus{domain.StatusPendingPurchase, domain.StatusPendingCapture}

	stale, err := s.store.Payments().FindStale(s.ctx, statuses, time.Now().Add(time.Minute), 10)
	s.Require().NoError(err)
	s.Require().Len(stale, 1)
	s.Equal(pending.ID(), stale[0].ID())

	unlimited, err := s.store.Payments().FindStale(s.ctx, statuses, time.Now().Add(time.Minute), 0)
	s.Require().NoError(err)
	s.Len(unlimited, 1)

	fresh, err := s.store.Payments().FindStale(s.ctx, statuses, time.Now().Add(-time.Minute), 10)
	s.Require().NoError(err)
	s.Empty(fresh)
}

// ============================================================================
// TRANSACTIONS
// ============================================================================

func (s *StoreTestSuite) TestWithTxRollsBack() {
	p := s.create("100.00", domain.StatusCreated)

	boom := errors.New("boom")
	err := s.store.WithTx(s.ctx, func(tx application.Store) error {
		current, err := tx.Payments().FindByIDForUpdate(s.ctx, p.ID())
		if err != nil {
			return err
		}
		if err := current.TransitionTo(domain.StatusAuthorized); err != nil {
			return err
		}
		if err := tx.Payments().Update(s.ctx, current); err != nil {
			return err
		}
		if err := tx.Messages().Append(s.ctx, domain.NewMessage(p.ID(), domain.MsgAuthorizedResponse)); err != nil {
			return err
		}
		return boom
	})
	s.Require().ErrorIs(err, boom)

	stored, err := s.store.Payments().FindByID(s.ctx, p.ID())
	s.Require().NoError(err)
	s.Equal(domain.StatusCreated, stored.Status())
	s.Equal(1, stored.Version())

	msgs, err := s.store.Messages().FindByPaymentID(s.ctx, p.ID())
	s.Require().NoError(err)
	s.Empty(msgs)
}

func (s *StoreTestSuite) TestNestedWithTxJoinsOuter() {
	p := s.create("100.00", domain.StatusCreated)

	err := s.store.WithTx(s.ctx, func(tx application.Store) error {
		return tx.WithTx(s.ctx, func(inner application.Store) error {
			return inner.Messages().Append(s.ctx, domain.NewMessage(p.ID(), domain.MsgPurchaseRequest))
		})
	})
	s.Require().NoError(err)

	msgs, err := s.store.Messages().FindByPaymentID(s.ctx, p.ID())
	s.Require().NoError(err)
	s.Len(msgs, 1)
}

func (s *StoreTestSuite) TestForUpdateSerializesWriters() {
	p := s.create("100.00", domain.StatusAuthorized)

	var (
		wg       sync.WaitGroup
		captured atomic.Int32
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.WithTx(s.ctx, func(tx application.Store) error {
				current, err := tx.Payments().FindByIDForUpdate(s.ctx, p.ID())
				if err != nil {
					return err
				}
				if current.Status() != domain.StatusAuthorized {
					return nil
				}
				if err := current.TransitionTo(domain.StatusCaptured); err != nil {
					return err
				}
				captured.Add(1)
				return tx.Payments().Update(s.ctx, current)
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	s.Equal(int32(1), captured.Load())
	stored, err := s.store.Payments().FindByID(s.ctx, p.ID())
	s.Require().NoError(err)
	s.Equal(domain.StatusCaptured, stored.Status())
	s.Equal(2, stored.Version())
}

// ============================================================================
// MESSAGE REPOSITORY
// ============================================================================

func (s *StoreTestSuite) TestMessagesKeepOrderAndFields() {
	p := s.create("100.00", domain.StatusCreated)

	request := domain.NewMessage(p.ID(), domain.MsgPurchaseRequest)
	request.Data = json.RawMessage(`{"amount":"100.00"}`)
	request.UserID = "user-1"
	request.ClientIP = "10.0.0.1"

	response := domain.NewMessage(p.ID(), domain.MsgPurchaseError)
	response.Message = "declined"
	response.Code = "05"
	response.Reference = "txn-9"

	s.Require().NoError(s.store.Messages().Append(s.ctx, request))
	s.Require().NoError(s.store.Messages().Append(s.ctx, response))

	msgs, err := s.store.Messages().FindByPaymentID(s.ctx, p.ID())
	s.Require().NoError(err)
	s.Require().Len(msgs, 2)

	s.Equal(domain.MsgPurchaseRequest, msgs[0].Type)
	s.JSONEq(`{"amount":"100.00"}`, string(msgs[0].Data))
	s.Equal("user-1", msgs[0].UserID)
	s.Equal("10.0.0.1", msgs[0].ClientIP)

	s.Equal(domain.MsgPurchaseError, msgs[1].Type)
	s.Equal("declined", msgs[1].Message)
	s.Equal("05", msgs[1].Code)
	s.Equal("txn-9", msgs[1].Reference)
	s.Nil(msgs[1].Data)
	s.True(msgs[1].IsError())
}

func (s *StoreTestSuite) TestAppendNeedsPayment() {
	err := s.store.Messages().Append(s.ctx, domain.NewMessage(s.newPayment("1", domain.StatusCreated).ID(), domain.MsgPurchaseRequest))
	s.ErrorIs(err, domain.ErrPaymentNotFound)
}

// ============================================================================
// SERVICES ON POSTGRES
// ============================================================================

func (s *StoreTestSuite) TestMultipleCaptureConservesMoney() {
	gw := gatewaytest.New("Dummy", gatewaytest.AllOperations...)
	gateways := gatewaytest.NewFactory(gw)
	info, err := gatewayinfo.NewRegistry(gateways,
		map[string]gatewayinfo.Config{"Dummy": {CanCapture: gatewayinfo.ModeMultiple}},
		[]string{"Dummy"},
	)
	s.Require().NoError(err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	deps := services.Deps{
		Store:      s.store,
		Gateways:   gateways,
		Info:       info,
		Extensions: services.NewExtensions(logger, false),
		Logger:     logger,
	}

	p := s.newPayment("100.00", domain.StatusAuthorized)
	p.SetTransactionReference("auth-1")
	s.Require().NoError(s.store.Payments().Create(s.ctx, p))

	for _, amount := range []string{"40", "60.00"} {
		current, err := s.store.Payments().FindByID(s.ctx, p.ID())
		s.Require().NoError(err)
		resp, err := services.NewCaptureService(current, deps).Initiate(s.ctx, gateway.Data{"amount": amount})
		s.Require().NoError(err)
		s.False(resp.IsError())
	}

	final, err := s.store.Payments().FindByID(s.ctx, p.ID())
	s.Require().NoError(err)
	s.Equal(domain.StatusCaptured, final.Status())
	s.Equal("60.00", final.Amount())

	children, err := s.store.Payments().FindPartials(s.ctx, p.ID(), "")
	s.Require().NoError(err)
	s.Require().Len(children, 1)
	s.Equal("40.00", children[0].Amount())
	s.Equal(domain.StatusCaptured, children[0].Status())

	msgs, err := s.store.Messages().FindByPaymentID(s.ctx, p.ID())
	s.Require().NoError(err)
	s.Len(msgs, 4)
}
