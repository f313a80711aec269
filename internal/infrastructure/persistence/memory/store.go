// Package memory is an in-process application.Store. Transactions are
// serialized and roll back by restoring a snapshot, which gives the same
// first-committer-wins behavior as the postgres store.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/DanielPopoola/payment-orchestrator/internal/application"
	"github.com/DanielPopoola/payment-orchestrator/internal/domain"
	"github.com/google/uuid"
)

type state struct {
	payments    map[uuid.UUID]*domain.Payment
	seq         map[uuid.UUID]int
	identifiers map[string]uuid.UUID
	messages    map[uuid.UUID][]*domain.Message
	next        int
}

func newState() *state {
	return &state{
		payments:    make(map[uuid.UUID]*domain.Payment),
		seq:         make(map[uuid.UUID]int),
		identifiers: make(map[string]uuid.UUID),
		messages:    make(map[uuid.UUID][]*domain.Message),
	}
}

func (s *state) clone() *state {
	c := newState()
	for id, p := range s.payments {
		c.payments[id] = p.Clone()
	}
	for id, n := range s.seq {
		c.seq[id] = n
	}
	for k, v := range s.identifiers {
		c.identifiers[k] = v
	}
	for id, msgs := range s.messages {
		c.messages[id] = slices.Clone(msgs)
	}
	c.next = s.next
	return c
}

type Store struct {
	mu    *sync.Mutex
	data  **state
	inTx  bool
	clock func() time.Time
}

func NewStore() *Store {
	s := newState()
	return &Store{
		mu:    &sync.Mutex{},
		data:  &s,
		clock: func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Payments() application.PaymentRepository { return &paymentRepo{s} }
func (s *Store) Messages() application.MessageRepository { return &messageRepo{s} }

func (s *Store) WithTx(_ context.Context, fn func(tx application.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := (*s.data).clone()
	tx := &Store{mu: s.mu, data: s.data, inTx: true, clock: s.clock}
	if err := fn(tx); err != nil {
		*s.data = snapshot
		return err
	}
	return nil
}

// read runs fn under the store lock unless a transaction already holds it.
func (s *Store) read(fn func(st *state) error) error {
	if !s.inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(*s.data)
}

type paymentRepo struct{ s *Store }

func (r *paymentRepo) Create(_ context.Context, payment *domain.Payment) error {
	return r.s.read(func(st *state) error {
		if _, ok := st.payments[payment.ID()]; ok {
			return fmt.Errorf("payment %s already exists", payment.ID())
		}
		ident := payment.EnsureIdentifier()
		if _, ok := st.identifiers[ident]; ok {
			return fmt.Errorf("identifier %s already exists", ident)
		}

		payment.MarkPersisted(1, r.s.clock())
		st.next++
		st.payments[payment.ID()] = payment.Clone()
		st.seq[payment.ID()] = st.next
		st.identifiers[ident] = payment.ID()
		return nil
	})
}

func (r *paymentRepo) Update(_ context.Context, payment *domain.Payment) error {
	return r.s.read(func(st *state) error {
		stored, ok := st.payments[payment.ID()]
		if !ok {
			return domain.NewPaymentNotFoundError(payment.ID().String())
		}
		if stored.Version() != payment.Version() {
			return domain.NewStaleVersionError(payment.ID().String(), payment.Version())
		}

		payment.MarkPersisted(payment.Version()+1, r.s.clock())
		st.payments[payment.ID()] = payment.Clone()
		return nil
	})
}

func (r *paymentRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Payment, error) {
	var out *domain.Payment
	err := r.s.read(func(st *state) error {
		p, ok := st.payments[id]
		if !ok {
			return domain.NewPaymentNotFoundError(id.String())
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

// FindByIDForUpdate needs no extra locking: transactions already run one at
// a time.
func (r *paymentRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	return r.FindByID(ctx, id)
}

func (r *paymentRepo) FindByIdentifier(ctx context.Context, identifier string) (*domain.Payment, error) {
	var id uuid.UUID
	err := r.s.read(func(st *state) error {
		found, ok := st.identifiers[identifier]
		if !ok || identifier == "" {
			return domain.NewPaymentNotFoundError(identifier)
		}
		id = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *paymentRepo) FindPartials(_ context.Context, parentID uuid.UUID, status domain.PaymentStatus) ([]*domain.Payment, error) {
	var out []*domain.Payment
	err := r.s.read(func(st *state) error {
		for _, p := range st.payments {
			parent := p.InitialPaymentID()
			if parent == nil || *parent != parentID {
				continue
			}
			if status != "" && p.Status() != status {
				continue
			}
			out = append(out, p.Clone())
		}
		slices.SortFunc(out, func(a, b *domain.Payment) int {
			return st.seq[b.ID()] - st.seq[a.ID()]
		})
		return nil
	})
	return out, err
}

func (r *paymentRepo) FindStale(_ context.Context, statuses []domain.PaymentStatus, cutoff time.Time, limit int) ([]*domain.Payment, error) {
	var out []*domain.Payment
	err := r.s.read(func(st *state) error {
		for _, p := range st.payments {
			if p.IsPartial() || !slices.Contains(statuses, p.Status()) || !p.UpdatedAt().Before(cutoff) {
				continue
			}
			out = append(out, p.Clone())
		}
		slices.SortFunc(out, func(a, b *domain.Payment) int {
			return a.UpdatedAt().Compare(b.UpdatedAt())
		})
		return nil
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

type messageRepo struct{ s *Store }

func (r *messageRepo) Append(_ context.Context, msg *domain.Message) error {
	return r.s.read(func(st *state) error {
		if _, ok := st.payments[msg.PaymentID]; !ok {
			return domain.NewPaymentNotFoundError(msg.PaymentID.String())
		}
		c := *msg
		st.messages[msg.PaymentID] = append(st.messages[msg.PaymentID], &c)
		return nil
	})
}

func (r *messageRepo) FindByPaymentID(_ context.Context, paymentID uuid.UUID) ([]*domain.Message, error) {
	var out []*domain.Message
	err := r.s.read(func(st *state) error {
		for _, m := range st.messages[paymentID] {
			c := *m
			out = append(out, &c)
		}
		return nil
	})
	return out, err
}
