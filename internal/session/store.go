package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/storekit/wa-bridge/internal/model"
)

// Repository is the persistence boundary for sessions. Save upserts the whole
// row; a failed save leaves the stored session unchanged, so Store mutations
// never partially apply.
type Repository interface {
	Load(ctx context.Context, phone string) (*model.SessionRow, error)
	Save(ctx context.Context, row model.SessionRow) error
	Delete(ctx context.Context, phone string) error
	DeleteExpired(ctx context.Context, now time.Time, batch int) (int64, error)
}

// Session is the in-memory view handed to callers.
type Session struct {
	Phone        string
	Context      Context
	LastActivity time.Time
	ExpiresAt    time.Time
}

// Store implements per-contact conversation state with a rolling expiry.
// A session whose expiry has passed is treated as absent: reads miss, writes
// start fresh. Concurrent writers to one phone are last-writer-wins per leaf
// key.
type Store struct {
	repo  Repository
	ttl   time.Duration
	batch int
	now   func() time.Time
}

func NewStore(repo Repository, ttl time.Duration, reapBatch int) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if reapBatch <= 0 {
		reapBatch = 500
	}
	return &Store{repo: repo, ttl: ttl, batch: reapBatch, now: time.Now}
}

// load returns the live context for phone, or a fresh one when the session is
// missing or expired.
func (s *Store) load(ctx context.Context, phone string) (Context, error) {
	row, err := s.repo.Load(ctx, phone)
	if err != nil {
		return Context{}, fmt.Errorf("session load: %w", err)
	}
	if row == nil || row.Expired(s.now()) {
		return Context{}, nil
	}
	var c Context
	if err := json.Unmarshal(row.Context, &c); err != nil {
		// Unreadable context is equivalent to no session.
		return Context{}, nil
	}
	return c, nil
}

func (s *Store) save(ctx context.Context, phone string, c Context) error {
	now := s.now()
	c.pruneVariables(now)
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("session marshal: %w", err)
	}
	row := model.SessionRow{
		Phone:        phone,
		Context:      raw,
		LastActivity: now,
		ExpiresAt:    now.Add(s.ttl),
	}
	if err := s.repo.Save(ctx, row); err != nil {
		return fmt.Errorf("session save: %w", err)
	}
	return nil
}

// mutate is the read-merge-write cycle every mutation goes through; it also
// renews the session expiry.
func (s *Store) mutate(ctx context.Context, phone string, fn func(*Context)) error {
	c, err := s.load(ctx, phone)
	if err != nil {
		return err
	}
	fn(&c)
	return s.save(ctx, phone, c)
}

// Get returns the session, or nil when missing or expired.
func (s *Store) Get(ctx context.Context, phone string) (*Session, error) {
	row, err := s.repo.Load(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("session load: %w", err)
	}
	if row == nil || row.Expired(s.now()) {
		return nil, nil
	}
	var c Context
	if err := json.Unmarshal(row.Context, &c); err != nil {
		return nil, nil
	}
	return &Session{
		Phone:        row.Phone,
		Context:      c,
		LastActivity: row.LastActivity,
		ExpiresAt:    row.ExpiresAt,
	}, nil
}

// Upsert deep-merges partial into the stored context, creating the session if
// absent. Re-applying the same partial is safe.
func (s *Store) Upsert(ctx context.Context, phone string, partial Context) error {
	return s.mutate(ctx, phone, func(c *Context) {
		c.Merge(partial)
	})
}

func (s *Store) SetFlowStep(ctx context.Context, phone, flowName, step string, data map[string]any) error {
	return s.mutate(ctx, phone, func(c *Context) {
		c.Flow = &Flow{Name: flowName, Step: step, Data: data}
	})
}

// FlowStep returns the active flow, if any.
func (s *Store) FlowStep(ctx context.Context, phone string) (*Flow, error) {
	c, err := s.load(ctx, phone)
	if err != nil {
		return nil, err
	}
	return c.Flow, nil
}

func (s *Store) ClearFlow(ctx context.Context, phone string) error {
	return s.mutate(ctx, phone, func(c *Context) {
		c.Flow = nil
	})
}

// CartAdd increments the quantity when the same product+variation is already
// in the cart, otherwise inserts a new line.
func (s *Store) CartAdd(ctx context.Context, phone, productID string, qty int, variation map[string]string) error {
	if qty <= 0 {
		qty = 1
	}
	return s.mutate(ctx, phone, func(c *Context) {
		if c.Cart == nil {
			c.Cart = make(map[string]CartItem)
		}
		key := CartKey(productID, variation)
		item, ok := c.Cart[key]
		if ok {
			item.Quantity += qty
		} else {
			item = CartItem{ProductID: productID, Quantity: qty, Variation: variation}
		}
		c.Cart[key] = item
	})
}

func (s *Store) CartRemove(ctx context.Context, phone, productID string, variation map[string]string) error {
	return s.mutate(ctx, phone, func(c *Context) {
		delete(c.Cart, CartKey(productID, variation))
	})
}

func (s *Store) CartClear(ctx context.Context, phone string) error {
	return s.mutate(ctx, phone, func(c *Context) {
		c.Cart = nil
	})
}

func (s *Store) CartItems(ctx context.Context, phone string) (map[string]CartItem, error) {
	c, err := s.load(ctx, phone)
	if err != nil {
		return nil, err
	}
	return c.Cart, nil
}

// SetVariable stores a named value; ttlSeconds=0 means no independent expiry
// (still subject to the whole-session timeout).
func (s *Store) SetVariable(ctx context.Context, phone, key string, value any, ttlSeconds int) error {
	return s.mutate(ctx, phone, func(c *Context) {
		if c.Variables == nil {
			c.Variables = make(map[string]Variable)
		}
		v := Variable{Value: value}
		if ttlSeconds > 0 {
			v.ExpiresAt = s.now().Add(time.Duration(ttlSeconds) * time.Second)
		}
		c.Variables[key] = v
	})
}

// Variable reads a named value; an expired variable is treated as absent and
// is physically removed on the next write.
func (s *Store) Variable(ctx context.Context, phone, key string, def any) (any, error) {
	c, err := s.load(ctx, phone)
	if err != nil {
		return def, err
	}
	v, ok := c.Variables[key]
	if !ok || v.Expired(s.now()) {
		return def, nil
	}
	return v.Value, nil
}

// RecordInteraction appends to the bounded history.
func (s *Store) RecordInteraction(ctx context.Context, phone, typ string, data map[string]any) error {
	return s.mutate(ctx, phone, func(c *Context) {
		c.History = append(c.History, Interaction{Type: typ, Data: data, At: s.now()})
		c.trimHistory()
	})
}

// TouchActivity renews last_activity and the expiry without changing context.
func (s *Store) TouchActivity(ctx context.Context, phone string) error {
	return s.mutate(ctx, phone, func(*Context) {})
}

// ReapExpired deletes expired sessions in bounded batches and returns the
// total removed. Runs on a schedule independent of request traffic.
func (s *Store) ReapExpired(ctx context.Context) (int64, error) {
	var total int64
	for {
		n, err := s.repo.DeleteExpired(ctx, s.now(), s.batch)
		total += n
		if err != nil {
			return total, err
		}
		if n < int64(s.batch) {
			return total, nil
		}
	}
}
