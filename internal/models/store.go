// internal/models/store.go
package models

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
)

type rowQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const userColumns = `id, email, display_name, phone, role,
	COALESCE(franchise_id::text, ''), COALESCE(location_id::text, ''),
	COALESCE(requested_location_id::text, ''), approved, active`

// GetUser loads a user by id. sql.ErrNoRows is returned unchanged.
func GetUser(ctx context.Context, q rowQueryer, id string) (*User, error) {
	return scanUser(q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetUserForUpdate is GetUser with a row lock, for use inside a transaction.
func GetUserForUpdate(ctx context.Context, q rowQueryer, id string) (*User, error) {
	return scanUser(q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var role string
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.Phone, &role,
		&u.FranchiseID, &u.LocationID, &u.RequestedLocationID, &u.Approved, &u.Active); err != nil {
		return nil, err
	}
	u.Role = Role(role)
	return &u, nil
}

// GetLocation loads a location by id. sql.ErrNoRows is returned unchanged.
func GetLocation(ctx context.Context, q rowQueryer, id string) (*Location, error) {
	var l Location
	err := q.QueryRowContext(ctx,
		`SELECT id, franchise_id, name, code, address, phone, active FROM locations WHERE id = $1`, id).
		Scan(&l.ID, &l.FranchiseID, &l.Name, &l.Code, &l.Address, &l.Phone, &l.Active)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetFranchise loads a franchise by id. sql.ErrNoRows is returned unchanged.
func GetFranchise(ctx context.Context, q rowQueryer, id string) (*Franchise, error) {
	var f Franchise
	var plan string
	err := q.QueryRowContext(ctx,
		`SELECT id, name, owner_name, contact_email, contact_phone, plan, commission_rate, approved, active
		 FROM franchises WHERE id = $1`, id).
		Scan(&f.ID, &f.Name, &f.OwnerName, &f.ContactEmail, &f.ContactPhone, &plan, &f.CommissionRate, &f.Approved, &f.Active)
	if err != nil {
		return nil, err
	}
	f.Plan = Plan(plan)
	return &f, nil
}

const orderColumns = `id, order_number, location_id, franchise_id, created_by, status, owner_queue,
	table_ids, items, subtotal, tax, discount, total, customer,
	COALESCE(transfer_note, ''), COALESCE(transferred_by::text, ''), transferred_at,
	COALESCE(bill_number, ''), COALESCE(billed_by::text, ''), billed_at,
	COALESCE(payment_method, ''), settled_at, created_at`

// GetOrderForUpdate loads and row-locks an order inside tx.
func GetOrderForUpdate(ctx context.Context, q rowQueryer, id string) (*Order, error) {
	return scanOrder(q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
}

func scanOrder(row *sql.Row) (*Order, error) {
	var (
		o                        Order
		status, queue            string
		itemsRaw                 []byte
		customerRaw              []byte
		transferredAt, settledAt sql.NullTime
		billedAt                 sql.NullTime
	)
	err := row.Scan(&o.ID, &o.OrderNumber, &o.LocationID, &o.FranchiseID, &o.CreatedBy, &status, &queue,
		pq.Array(&o.TableIDs), &itemsRaw, &o.Subtotal, &o.Tax, &o.Discount, &o.Total, &customerRaw,
		&o.TransferNote, &o.TransferredBy, &transferredAt,
		&o.BillNumber, &o.BilledBy, &billedAt,
		&o.PaymentMethod, &settledAt, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	o.Status = OrderStatus(status)
	o.OwnerQueue = OwnerQueue(queue)
	if len(itemsRaw) > 0 {
		if err := json.Unmarshal(itemsRaw, &o.Items); err != nil {
			return nil, fmt.Errorf("decode items of order %s: %w", o.ID, err)
		}
	}
	if len(customerRaw) > 0 && string(customerRaw) != "null" {
		o.Customer = &Customer{}
		if err := json.Unmarshal(customerRaw, o.Customer); err != nil {
			return nil, fmt.Errorf("decode customer of order %s: %w", o.ID, err)
		}
	}
	if transferredAt.Valid {
		t := transferredAt.Time
		o.TransferredAt = &t
	}
	if billedAt.Valid {
		t := billedAt.Time
		o.BilledAt = &t
	}
	if settledAt.Valid {
		t := settledAt.Time
		o.SettledAt = &t
	}
	return &o, nil
}
