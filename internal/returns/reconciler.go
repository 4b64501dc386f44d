// Package returns derives cancellation and refund facts from order snapshots
// and writes them to the fact store.
package returns

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	v1 "github.com/aevon-lab/orderpulse/internal/api/v1"
	coreagg "github.com/aevon-lab/orderpulse/internal/core/aggregation"
	"github.com/shopspring/decimal"
)

// refundKinds are the transaction kinds that move money back to the customer.
var refundKinds = map[string]struct{}{
	"refund":     {},
	"chargeback": {},
	"return":     {},
}

// FactWriter upserts facts by (order, type, date), replacing existing amounts.
type FactWriter interface {
	UpsertReturnFacts(ctx context.Context, facts []v1.ReturnFact) error
}

type factKey struct {
	orderID int64
	date    time.Time
}

// Reconciler derives facts in the tenant's reporting timezone.
type Reconciler struct {
	loc *time.Location
}

func NewReconciler(loc *time.Location) *Reconciler {
	if loc == nil {
		loc = time.UTC
	}
	return &Reconciler{loc: loc}
}

// Derive computes the facts for one batch. When an order appears more than
// once only its newest snapshot is used, since every snapshot carries the
// full refund history. The result is sorted by order, type and date.
func (r *Reconciler) Derive(orders []v1.Order) []v1.ReturnFact {
	cancels := coreagg.NewAccumulator[factKey](coreagg.OpMax)
	refunds := coreagg.NewAccumulator[factKey](coreagg.OpSum)

	for _, o := range newestSnapshots(orders) {
		if cancelled, ok := v1.ParseTimestamp(o.CancelledAt); ok {
			amount, ok := coreagg.ParseAmount(o.TotalPrice.String())
			if !ok {
				amount = decimal.Zero
			}
			cancels.Add(factKey{o.ID, coreagg.CivilDate(cancelled, r.loc)}, amount)
		}

		for _, rf := range o.Refunds {
			created, ok := v1.ParseTimestamp(rf.CreatedAt)
			if !ok {
				continue
			}
			sum := decimal.Zero
			for _, tx := range rf.Transactions {
				if _, ok := refundKinds[strings.ToLower(tx.Kind)]; !ok {
					continue
				}
				amount, ok := coreagg.ParseAmount(tx.Amount.String())
				if !ok {
					slog.Debug("[ReturnsReconciler] Skipping malformed transaction amount",
						"order_id", o.ID, "amount", tx.Amount)
					continue
				}
				sum = sum.Add(amount.Abs())
			}
			if sum.IsPositive() {
				refunds.Add(factKey{o.ID, coreagg.CivilDate(created, r.loc)}, sum)
			}
		}
	}

	facts := make([]v1.ReturnFact, 0, cancels.Len()+refunds.Len())
	collect := func(eventType v1.ReturnEventType, acc *coreagg.Accumulator[factKey]) {
		acc.Each(func(k factKey, amount decimal.Decimal) {
			facts = append(facts, v1.ReturnFact{
				OrderID:   k.orderID,
				EventType: eventType,
				EventDate: k.date,
				Amount:    coreagg.Money(amount),
			})
		})
	}
	collect(v1.EventCancel, cancels)
	collect(v1.EventRefund, refunds)

	sort.Slice(facts, func(i, j int) bool {
		a, b := facts[i], facts[j]
		if a.OrderID != b.OrderID {
			return a.OrderID < b.OrderID
		}
		if a.EventType != b.EventType {
			return a.EventType < b.EventType
		}
		return a.EventDate.Before(b.EventDate)
	})
	return facts
}

// Reconcile derives the batch's facts and upserts them in one call. It
// returns the number of facts written.
func (r *Reconciler) Reconcile(ctx context.Context, w FactWriter, orders []v1.Order) (int, error) {
	facts := r.Derive(orders)
	if len(facts) == 0 {
		return 0, nil
	}
	if err := w.UpsertReturnFacts(ctx, facts); err != nil {
		return 0, fmt.Errorf("reconcile returns: upsert %d facts: %w", len(facts), err)
	}
	return len(facts), nil
}

func newestSnapshots(orders []v1.Order) []v1.Order {
	idx := make(map[int64]int, len(orders))
	out := make([]v1.Order, 0, len(orders))
	for _, o := range orders {
		if o.Validate() != nil {
			continue
		}
		i, seen := idx[o.ID]
		if !seen {
			idx[o.ID] = len(out)
			out = append(out, o)
			continue
		}
		if newer(o, out[i]) {
			out[i] = o
		}
	}
	return out
}

func newer(a, b v1.Order) bool {
	ta, okA := v1.ParseTimestamp(a.UpdatedAt)
	tb, okB := v1.ParseTimestamp(b.UpdatedAt)
	if !okA {
		return false
	}
	return !okB || ta.After(tb)
}
