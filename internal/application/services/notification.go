package services

import (
	"context"
	"fmt"

	"github.com/DanielPopoola/payment-orchestrator/internal/application"
	"github.com/DanielPopoola/payment-orchestrator/internal/domain"
	"github.com/DanielPopoola/payment-orchestrator/internal/gateway"
)

// handleNotification lets the gateway parse an inbound callback. Only a
// gateway without notification support is reported as an error; anything
// the gateway rejects comes back flagged.
func (b *base) handleNotification(ctx context.Context, gw gateway.Gateway, data gateway.Data) (gateway.Notification, Flag, error) {
	if err := b.require(gw, gateway.OpAcceptNotification); err != nil {
		return nil, 0, err
	}

	n, err := gateway.AcceptNotification(gw, data)
	if err != nil {
		b.logger.WarnContext(ctx, "gateway notification rejected", "error", err)
		b.record(ctx, domain.MsgNotificationError, err)
		return nil, FlagNotification | FlagError, nil
	}
	if err := b.ext().afterSend(ctx, gateway.OpAcceptNotification, b.payment, nil, n); err != nil {
		return nil, 0, err
	}

	switch n.TransactionStatus() {
	case gateway.NotificationCompleted:
		b.record(ctx, domain.MsgNotificationSuccessful, n)
		return n, FlagNotification, nil
	case gateway.NotificationPending:
		b.record(ctx, domain.MsgNotificationPending, n)
		return n, FlagNotification | FlagPending, nil
	default:
		b.record(ctx, domain.MsgNotificationError, n)
		return n, FlagNotification | FlagError, nil
	}
}

// followUpFlow describes capture, refund and void: operations on an existing
// transaction that never redirect the payer but may be confirmed later by a
// notification.
type followUpFlow struct {
	name    string
	op      gateway.Operation
	start   domain.PaymentStatus
	pending domain.PaymentStatus
	end     domain.PaymentStatus

	requestMsg  domain.MessageType
	awaitingMsg domain.MessageType
	responseMsg domain.MessageType
	partialMsg  domain.MessageType
	errorMsg    domain.MessageType

	event         Event
	awaitingEvent Event
}

// followUp is what capture, refund and void add to the shared flow.
type followUp interface {
	// permitted checks the gateway configuration and the partial payment
	// history.
	permitted(ctx context.Context, p *domain.Payment) error
	// amount resolves the amount to send and whether it differs from the
	// payment's own amount.
	amount(ctx context.Context, p *domain.Payment, data gateway.Data) (amount string, partial bool, err error)
	// settle folds a completed operation into the parent and its newest
	// pending partial, which is nil for a full operation. It returns the
	// parent's final status.
	settle(parent, partial *domain.Payment) (domain.PaymentStatus, error)
}

type notificationCompleteService struct {
	base
	flow followUpFlow
	op   followUp
}

func (s *notificationCompleteService) Initiate(ctx context.Context, data gateway.Data) (*ServiceResponse, error) {
	op := s.flow.op
	if s.payment.Status() != s.flow.start {
		return nil, application.NewInvalidStateError(
			"cannot %s a payment with status %s", s.flow.name, s.payment.Status())
	}
	if err := s.op.permitted(ctx, s.payment); err != nil {
		return nil, err
	}

	gw, err := s.gateway(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.require(gw, op); err != nil {
		return nil, err
	}

	ref := s.transactionReference(data)
	if ref == "" && !s.deps.Info.IsManual(s.payment.Gateway()) {
		return nil, application.NewMissingParameterError("transactionReference is required to %s", s.flow.name)
	}

	amount, partial, err := s.op.amount(ctx, s.payment, data)
	if err != nil {
		return nil, err
	}
	if err := s.ensurePersisted(ctx); err != nil {
		return nil, err
	}

	gwData := s.gatewayData(ctx, data)
	gwData["amount"] = amount
	if ref != "" {
		gwData["transactionReference"] = ref
	}

	resp, ok, err := s.send(ctx, gw, op, gwData, s.flow.requestMsg, s.flow.errorMsg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return s.respond(ctx, op, FlagError, nil)
	}

	flags := s.flagsFor(resp, false)
	if flags&FlagError != 0 {
		s.logger.InfoContext(ctx, "gateway declined", "operation", op, "code", resp.Code(), "message", resp.Message())
		s.record(ctx, s.flow.errorMsg, resp)
		return s.respond(ctx, op, flags, resp)
	}

	var child *domain.Payment
	if partial {
		child, err = s.newPartial(ctx, amount)
		if err != nil {
			return nil, err
		}
	}

	if flags&FlagPending != 0 {
		return s.await(ctx, resp, flags, child)
	}
	return s.markCompleted(ctx, resp, flags, child)
}

// transactionReference prefers an explicit reference or receipt in the
// caller's data over the stored one.
func (s *notificationCompleteService) transactionReference(data gateway.Data) string {
	if ref := data.String("transactionReference"); ref != "" {
		return ref
	}
	if ref := data.String("receipt"); ref != "" {
		return ref
	}
	return s.payment.TransactionReference()
}

// newPartial creates the bookkeeping child for an operation on amount. It
// carries the difference between the payment's amount and amount, which is
// negative when the operation exceeds it.
func (s *notificationCompleteService) newPartial(ctx context.Context, amount string) (*domain.Payment, error) {
	diff, err := subtract(s.payment.Amount(), amount)
	if err != nil {
		return nil, err
	}
	child, err := domain.NewPartialPayment(s.payment, diff, s.flow.pending)
	if err != nil {
		return nil, application.NewInternalError(err)
	}
	if err := s.ext().updatePartialPayment(ctx, child, s.payment); err != nil {
		return nil, err
	}
	return child, nil
}

func (s *notificationCompleteService) await(ctx context.Context, resp gateway.Response, flags Flag, child *domain.Payment) (*ServiceResponse, error) {
	err := s.mutate(ctx, func(tx application.Store, p *domain.Payment) error {
		if err := p.TransitionTo(s.flow.pending); err != nil {
			return err
		}
		if child != nil {
			if err := tx.Payments().Create(ctx, child); err != nil {
				return err
			}
		}
		s.recordIn(ctx, tx.Messages(), p, s.flow.awaitingMsg, resp)
		return nil
	})
	if err != nil {
		_, cerr := s.resolveConflict(ctx, err, func(*domain.Payment) bool { return false })
		return nil, cerr
	}

	sr, err := s.respond(ctx, s.flow.op, flags, resp)
	if err != nil {
		return nil, err
	}
	if err := s.ext().onEvent(ctx, s.flow.awaitingEvent, sr); err != nil {
		return nil, err
	}
	return sr, nil
}

func (s *notificationCompleteService) Complete(ctx context.Context, data gateway.Data, isNotification bool) (*ServiceResponse, error) {
	op := s.flow.op
	var flags Flag
	if isNotification {
		flags = FlagNotification
	}

	switch s.payment.Status() {
	case s.flow.end:
		return s.respond(ctx, op, flags, nil)
	case s.flow.start:
		// Nothing was initiated, so there is nothing to confirm.
		return s.respond(ctx, op, FlagError|FlagNotification, nil)
	case s.flow.pending:
	default:
		return nil, application.NewInvalidStateError(
			"cannot complete %s for a payment with status %s", s.flow.name, s.payment.Status())
	}

	gw, err := s.gateway(ctx)
	if err != nil {
		return nil, err
	}
	n, flags, err := s.handleNotification(ctx, gw, data)
	if err != nil {
		return nil, err
	}

	switch {
	case flags&FlagError != 0:
		return s.notificationFailure(ctx, n, flags)
	case flags&FlagPending != 0:
		return s.respond(ctx, op, flags, n)
	case n.TransactionReference() != s.payment.TransactionReference():
		s.logger.WarnContext(ctx, "notification reference mismatch",
			"notification_reference", n.TransactionReference(),
			"payment_reference", s.payment.TransactionReference(),
		)
		s.record(ctx, domain.MsgTransactionReferenceMismatch, fmt.Sprintf(
			"notification reference %q does not match %q", n.TransactionReference(), s.payment.TransactionReference()))
		return s.respond(ctx, op, flags|FlagError, n)
	}
	return s.markCompleted(ctx, n, flags, nil)
}

// notificationFailure rolls a failed confirmation back: pending partials are
// voided and the payment returns to its start status so the operation can
// be tried again.
func (s *notificationCompleteService) notificationFailure(ctx context.Context, n gateway.Notification, flags Flag) (*ServiceResponse, error) {
	err := s.mutate(ctx, func(tx application.Store, p *domain.Payment) error {
		if err := voidPartials(ctx, tx, p, s.flow.pending); err != nil {
			return err
		}
		return p.TransitionTo(s.flow.start)
	})
	if err != nil {
		done, cerr := s.resolveConflict(ctx, err, func(p *domain.Payment) bool {
			return p.Status() != s.flow.pending
		})
		if !done {
			return nil, cerr
		}
	} else {
		s.logger.WarnContext(ctx, "notification failed, payment reset", "status", s.flow.start)
	}

	var msg gateway.Message
	if n != nil {
		msg = n
	}
	return s.respond(ctx, s.flow.op, flags, msg)
}

// markCompleted stores the child of a partial operation, reconciles the
// newest pending child into the real amounts and voids older ones.
func (s *notificationCompleteService) markCompleted(ctx context.Context, msg gateway.Message, flags Flag, child *domain.Payment) (*ServiceResponse, error) {
	msgType := s.flow.responseMsg
	err := s.mutate(ctx, func(tx application.Store, p *domain.Payment) error {
		if child != nil {
			if err := tx.Payments().Create(ctx, child); err != nil {
				return err
			}
		}

		latest, err := latestPartial(ctx, tx, p, s.flow.pending)
		if err != nil {
			return err
		}
		status, err := s.op.settle(p, latest)
		if err != nil {
			return err
		}
		if latest != nil {
			if err := tx.Payments().Update(ctx, latest); err != nil {
				return err
			}
			msgType = s.flow.partialMsg
		}

		if err := p.TransitionTo(status); err != nil {
			return err
		}
		if ref := msg.TransactionReference(); ref != "" {
			p.SetTransactionReference(ref)
		}
		s.recordIn(ctx, tx.Messages(), p, msgType, msg)
		return nil
	})
	if err != nil {
		done, cerr := s.resolveConflict(ctx, err, func(p *domain.Payment) bool {
			return p.Status() == s.flow.end
		})
		if !done {
			return nil, cerr
		}
		return s.respond(ctx, s.flow.op, flags&FlagNotification, nil)
	}

	s.logger.InfoContext(ctx, "payment completed",
		"operation", s.flow.op,
		"status", s.payment.Status(),
		"amount", s.payment.Amount(),
		"partial", msgType == s.flow.partialMsg,
	)
	sr, err := s.respond(ctx, s.flow.op, flags, msg)
	if err != nil {
		return nil, err
	}
	if err := s.ext().onEvent(ctx, s.flow.event, sr); err != nil {
		return nil, err
	}
	return sr, nil
}
