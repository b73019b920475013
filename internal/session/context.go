package session

import (
	"fmt"
	"hash/fnv"
	"sort"
	"time"
)

// HistoryLimit caps the interaction ring buffer; oldest entries drop first.
const HistoryLimit = 50

// Context is the typed conversation state: the active flow, the cart,
// TTL'd variables and a bounded interaction history. Extra carries
// forward-compatible fields that older readers pass through untouched.
type Context struct {
	Flow      *Flow               `json:"flow,omitempty"`
	Cart      map[string]CartItem `json:"cart,omitempty"`
	Variables map[string]Variable `json:"variables,omitempty"`
	History   []Interaction       `json:"history,omitempty"`
	Extra     map[string]any      `json:"extra,omitempty"`
}

type Flow struct {
	Name string         `json:"name"`
	Step string         `json:"step"`
	Data map[string]any `json:"data,omitempty"`
}

type CartItem struct {
	ProductID string            `json:"product_id"`
	Quantity  int               `json:"quantity"`
	Variation map[string]string `json:"variation,omitempty"`
}

// Variable is a named value with an optional expiry of its own; a zero
// ExpiresAt means it lives as long as the session.
type Variable struct {
	Value     any       `json:"value"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

func (v Variable) Expired(now time.Time) bool {
	return !v.ExpiresAt.IsZero() && !v.ExpiresAt.After(now)
}

type Interaction struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
	At   time.Time      `json:"at"`
}

// CartKey derives the stable cart item key from product id and the sorted
// variation pairs, so the same product+variation always lands on one line.
func CartKey(productID string, variation map[string]string) string {
	keys := make([]string, 0, len(variation))
	for k := range variation {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := fnv.New64a()
	_, _ = h.Write([]byte(productID))
	for _, k := range keys {
		_, _ = fmt.Fprintf(h, "|%s=%s", k, variation[k])
	}
	return fmt.Sprintf("%s-%x", productID, h.Sum64())
}

// Merge deep-merges other into c, last-writer-wins per leaf key. Nil maps and
// a nil flow in other leave the existing values in place; history entries
// append and trim to HistoryLimit.
func (c *Context) Merge(other Context) {
	if other.Flow != nil {
		c.Flow = other.Flow
	}
	if len(other.Cart) > 0 {
		if c.Cart == nil {
			c.Cart = make(map[string]CartItem, len(other.Cart))
		}
		for k, v := range other.Cart {
			c.Cart[k] = v
		}
	}
	if len(other.Variables) > 0 {
		if c.Variables == nil {
			c.Variables = make(map[string]Variable, len(other.Variables))
		}
		for k, v := range other.Variables {
			c.Variables[k] = v
		}
	}
	if len(other.History) > 0 {
		c.History = append(c.History, other.History...)
		c.trimHistory()
	}
	if len(other.Extra) > 0 {
		if c.Extra == nil {
			c.Extra = make(map[string]any, len(other.Extra))
		}
		for k, v := range other.Extra {
			c.Extra[k] = v
		}
	}
}

func (c *Context) trimHistory() {
	if n := len(c.History); n > HistoryLimit {
		c.History = append(c.History[:0:0], c.History[n-HistoryLimit:]...)
	}
}

// pruneVariables removes variables past their own expiry. Called on every
// write so lazily-expired reads are eventually cleaned up physically.
func (c *Context) pruneVariables(now time.Time) {
	for k, v := range c.Variables {
		if v.Expired(now) {
			delete(c.Variables, k)
		}
	}
}
