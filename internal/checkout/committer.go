package checkout

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/rudrakv/storefront-api/internal/apperr"
	"github.com/rudrakv/storefront-api/internal/model"
	"github.com/rudrakv/storefront-api/internal/repository"
)

// Committer executes the full checkout write set (staged address
// writes, the order row, its line items and one stock decrement per
// line) as a single all-or-nothing transaction. On any failure
// nothing is persisted and the caller gets one generic retryable
// error; the cause stays in the logs.
type Committer struct {
	DB        *sql.DB
	Orders    *repository.OrderRepo
	Products  *repository.ProductRepo
	Addresses *repository.AddressRepo
	Users     *repository.UserRepo
}

func NewCommitter(db *sql.DB, orders *repository.OrderRepo, products *repository.ProductRepo, addresses *repository.AddressRepo, users *repository.UserRepo) *Committer {
	if db == nil || orders == nil || products == nil || addresses == nil || users == nil {
		panic("nil dependency passed to NewCommitter")
	}
	return &Committer{DB: db, Orders: orders, Products: products, Addresses: addresses, Users: users}
}

// Commit persists the validated order. Address writes run first so
// the order row's foreign key is valid when it is inserted. The
// stock decrements reuse the pre-commit read from validation; see
// DecrementStockTx for the accepted race window.
func (c *Committer) Commit(ctx context.Context, userID uint64, sum *Summary, plan *AddressPlan) (model.Order, error) {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Order{}, commitFailed(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if plan == nil {
		plan = &AddressPlan{}
	}
	addressID := plan.AddressID
	switch {
	case plan.New != nil:
		if plan.MakeDefault {
			if err := c.Addresses.ClearDefaultsTx(ctx, tx, userID); err != nil {
				return model.Order{}, commitFailed(err)
			}
			plan.New.IsDefault = true
		}
		if err := c.Addresses.CreateTx(ctx, tx, plan.New); err != nil {
			return model.Order{}, commitFailed(err)
		}
		addressID = &plan.New.ID
		if plan.MakeDefault {
			if err := c.writePrimaryTx(ctx, tx, userID, *plan.New); err != nil {
				return model.Order{}, commitFailed(err)
			}
		}
	case plan.AddressID != nil && plan.MakeDefault && plan.Existing != nil:
		// Reused address with an explicit default request.
		if err := c.Addresses.ClearDefaultsTx(ctx, tx, userID); err != nil {
			return model.Order{}, commitFailed(err)
		}
		if err := c.Addresses.SetDefaultTx(ctx, tx, *plan.AddressID, userID); err != nil {
			return model.Order{}, commitFailed(err)
		}
		if err := c.writePrimaryTx(ctx, tx, userID, *plan.Existing); err != nil {
			return model.Order{}, commitFailed(err)
		}
	}

	itemsJSON, err := json.Marshal(sum.Lines)
	if err != nil {
		return model.Order{}, commitFailed(err)
	}
	now := time.Now().UTC()
	order := model.Order{
		ID:            uuid.NewString(),
		UserID:        &userID,
		AddressID:     addressID,
		CustomerName:  sum.CustomerName,
		CustomerPhone: sum.Phone,
		AddressText:   sum.AddressText,
		TotalPaise:    sum.TotalPaise,
		Currency:      sum.Currency,
		Status:        model.OrderPending,
		ItemsJSON:     string(itemsJSON),
		DeliverySlot:  sum.DeliverySlot,
		Instructions:  sum.Instructions,
		PaymentMethod: sum.PaymentMethod,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := c.Orders.CreateTx(ctx, tx, &order); err != nil {
		return model.Order{}, commitFailed(err)
	}

	items := make([]model.OrderItem, 0, len(sum.Lines))
	for _, l := range sum.Lines {
		items = append(items, model.OrderItem{
			OrderID:        order.ID,
			ProductID:      l.ProductID,
			Name:           l.Name,
			UnitPricePaise: l.UnitPricePaise,
			Quantity:       l.Quantity,
			LineTotalPaise: l.LineTotalPaise,
		})
	}
	if err := c.Orders.CreateItemsBulkTx(ctx, tx, items); err != nil {
		return model.Order{}, commitFailed(err)
	}
	for _, l := range sum.Lines {
		if err := c.Products.DecrementStockTx(ctx, tx, l.ProductID, l.Quantity); err != nil {
			return model.Order{}, commitFailed(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return model.Order{}, commitFailed(err)
	}
	committed = true
	return order, nil
}

func (c *Committer) writePrimaryTx(ctx context.Context, tx *sql.Tx, userID uint64, a model.Address) error {
	snap, err := AddressSnapshotJSON(a)
	if err != nil {
		return err
	}
	return c.Users.SetPrimaryAddressTx(ctx, tx, userID, &snap)
}

func commitFailed(err error) error {
	log.Printf("checkout: commit failed: %v", err)
	return apperr.Wrap(apperr.KindStorage, "could not place order, please try again", err)
}
