package services

import (
	"context"

	"github.com/DanielPopoola/payment-orchestrator/internal/application"
	"github.com/DanielPopoola/payment-orchestrator/internal/domain"
	"github.com/DanielPopoola/payment-orchestrator/internal/gateway"
)

// checkoutFlow describes an operation the payer takes part in: it may
// redirect to the gateway and is completed when the payer returns or the
// gateway notifies.
type checkoutFlow struct {
	name       string
	initOp     gateway.Operation
	completeOp gateway.Operation
	pending    domain.PaymentStatus
	end        domain.PaymentStatus

	requestMsg         domain.MessageType
	redirectMsg        domain.MessageType
	awaitingMsg        domain.MessageType
	responseMsg        domain.MessageType
	errorMsg           domain.MessageType
	completeRequestMsg domain.MessageType
	completeErrorMsg   domain.MessageType

	event         Event
	awaitingEvent Event
}

type checkoutService struct {
	base
	flow checkoutFlow
}

func (s *checkoutService) Initiate(ctx context.Context, data gateway.Data) (*ServiceResponse, error) {
	op := s.flow.initOp
	if s.payment.Status() != domain.StatusCreated {
		return nil, application.NewInvalidStateError(
			"cannot %s a payment with status %s", s.flow.name, s.payment.Status())
	}

	gw, err := s.gateway(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.require(gw, op); err != nil {
		return nil, err
	}
	if err := s.ensurePersisted(ctx); err != nil {
		return nil, err
	}

	gwData := s.gatewayData(ctx, data)
	s.attachCard(gwData, data)

	resp, ok, err := s.send(ctx, gw, op, gwData, s.flow.requestMsg, s.flow.errorMsg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return s.respond(ctx, op, FlagError, nil)
	}
	return s.handle(ctx, op, resp, s.flagsFor(resp, false), s.flow.errorMsg)
}

func (s *checkoutService) Complete(ctx context.Context, data gateway.Data, isNotification bool) (*ServiceResponse, error) {
	op := s.flow.completeOp
	var flags Flag
	if isNotification {
		flags = FlagNotification
	}

	switch s.payment.Status() {
	case s.flow.end:
		return s.respond(ctx, op, flags, nil)
	case s.flow.pending:
	default:
		return nil, application.NewInvalidStateError(
			"cannot complete %s for a payment with status %s", s.flow.name, s.payment.Status())
	}

	gw, err := s.gateway(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.require(gw, op); err != nil {
		return nil, err
	}

	// The payer's return may not echo the reference the redirect produced.
	gwData := s.gatewayData(ctx, data)
	if !gwData.Has("transactionReference") && s.payment.TransactionReference() != "" {
		gwData["transactionReference"] = s.payment.TransactionReference()
	}

	resp, ok, err := s.send(ctx, gw, op, gwData, s.flow.completeRequestMsg, s.flow.completeErrorMsg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return s.respond(ctx, op, flags|FlagError, nil)
	}
	return s.handle(ctx, op, resp, s.flagsFor(resp, isNotification), s.flow.completeErrorMsg)
}

// handle applies exactly one outcome, checked in this order: redirect,
// awaiting notification, error, success.
func (s *checkoutService) handle(
	ctx context.Context,
	op gateway.Operation,
	resp gateway.Response,
	flags Flag,
	errorMsg domain.MessageType,
) (*ServiceResponse, error) {
	switch {
	case resp.IsRedirect():
		return s.await(ctx, op, resp, flags, s.flow.redirectMsg, "")
	case flags&FlagPending != 0:
		return s.await(ctx, op, resp, flags, s.flow.awaitingMsg, s.flow.awaitingEvent)
	case flags&FlagError != 0:
		s.logger.InfoContext(ctx, "gateway declined", "operation", op, "code", resp.Code(), "message", resp.Message())
		s.record(ctx, errorMsg, resp)
		return s.respond(ctx, op, flags, resp)
	}
	return s.markCompleted(ctx, op, resp, flags)
}

func (s *checkoutService) await(
	ctx context.Context,
	op gateway.Operation,
	resp gateway.Response,
	flags Flag,
	msgType domain.MessageType,
	event Event,
) (*ServiceResponse, error) {
	err := s.mutate(ctx, func(tx application.Store, p *domain.Payment) error {
		if err := p.TransitionTo(s.flow.pending); err != nil {
			return err
		}
		if ref := resp.TransactionReference(); ref != "" {
			p.SetTransactionReference(ref)
		}
		s.recordIn(ctx, tx.Messages(), p, msgType, resp)
		return nil
	})
	if err != nil {
		return s.conflict(ctx, op, err, flags)
	}

	sr, err := s.respond(ctx, op, flags, resp)
	if err != nil {
		return nil, err
	}
	if event != "" {
		if err := s.ext().onEvent(ctx, event, sr); err != nil {
			return nil, err
		}
	}
	return sr, nil
}

func (s *checkoutService) markCompleted(ctx context.Context, op gateway.Operation, resp gateway.Response, flags Flag) (*ServiceResponse, error) {
	err := s.mutate(ctx, func(tx application.Store, p *domain.Payment) error {
		if err := p.TransitionTo(s.flow.end); err != nil {
			return err
		}
		if ref := resp.TransactionReference(); ref != "" {
			p.SetTransactionReference(ref)
		}
		s.recordIn(ctx, tx.Messages(), p, s.flow.responseMsg, resp)
		return nil
	})
	if err != nil {
		return s.conflict(ctx, op, err, flags)
	}

	s.logger.InfoContext(ctx, "payment completed", "operation", op, "status", s.payment.Status())
	sr, err := s.respond(ctx, op, flags, resp)
	if err != nil {
		return nil, err
	}
	if err := s.ext().onEvent(ctx, s.flow.event, sr); err != nil {
		return nil, err
	}
	return sr, nil
}

// conflict turns a lost write into the idempotent answer when the winner
// already completed the payment.
func (s *checkoutService) conflict(ctx context.Context, op gateway.Operation, err error, flags Flag) (*ServiceResponse, error) {
	done, cerr := s.resolveConflict(ctx, err, func(p *domain.Payment) bool {
		return p.Status() == s.flow.end
	})
	if !done {
		return nil, cerr
	}
	return s.respond(ctx, op, flags&FlagNotification, nil)
}
