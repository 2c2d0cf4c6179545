package order

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db, now: time.Now}
}

// Create validates and inserts the order with its items in one transaction.
// Failures are classified into ErrTableNotFound / ErrPermissionDenied.
func (r *Repo) Create(ctx context.Context, in NewOrder) (*Record, error) {
	if err := validateNew(in); err != nil {
		return nil, err
	}

	rec := &Record{
		ID:              uuid.NewString(),
		UserID:          in.UserID,
		UserName:        in.UserName,
		Email:           in.Email,
		ShippingAddress: in.ShippingAddress,
		Status:          StatusPending,
		CreatedAt:       r.now(),
	}
	for i, it := range in.Items {
		it.ID = 0
		it.OrderID = rec.ID
		it.Position = i
		rec.Items = append(rec.Items, it)
	}
	rec.TotalPrice = rec.Sum()

	if err := r.insert(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Restore inserts a record that was synthesized while the store was
// unavailable, keeping its id. Inserting an id that already exists is a no-op.
func (r *Repo) Restore(ctx context.Context, rec *Record) (bool, error) {
	if rec == nil || rec.ID == "" {
		return false, ErrInvalidOrder
	}
	var n int64
	if err := r.db.WithContext(ctx).Model(&Record{}).Where("id = ?", rec.ID).Count(&n).Error; err != nil {
		return false, classify(err)
	}
	if n > 0 {
		return false, nil
	}

	cp := *rec
	cp.Items = make([]Item, 0, len(rec.Items))
	for i, it := range rec.Items {
		it.ID = 0
		it.OrderID = rec.ID
		it.Position = i
		cp.Items = append(cp.Items, it)
	}
	if cp.Status == "" {
		cp.Status = StatusPending
	}
	if err := r.insert(ctx, &cp); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repo) insert(ctx context.Context, rec *Record) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(rec).Error
	})
	return classify(err)
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}
	var rec Record
	err := r.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		First(&rec, "id = ?", id).Error
	if err != nil {
		return nil, classify(err)
	}
	return &rec, nil
}

// ListByUser returns the user's orders, newest first.
func (r *Repo) ListByUser(ctx context.Context, userID string, limit int) ([]Record, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var recs []Record
	err := r.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, classify(err)
	}
	return recs, nil
}

func (r *Repo) CountByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Record{}).Where("user_id = ?", userID).Count(&n).Error
	return n, classify(err)
}

func (r *Repo) UpdateStatus(ctx context.Context, id string, status Status) error {
	res := r.db.WithContext(ctx).Model(&Record{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": r.now()})
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CancelPending moves a pending order owned by userID to cancelled.
func (r *Repo) CancelPending(ctx context.Context, id, userID string) error {
	res := r.db.WithContext(ctx).Model(&Record{}).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, StatusPending).
		Updates(map[string]any{"status": StatusCancelled, "updated_at": r.now()})
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) MarkEmailSent(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&Record{}).
		Where("id = ?", id).
		Update("email_sent", true)
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

var errProbeRollback = errors.New("probe rollback")

// SelfTest checks read access, then write access with a probe row that is
// always rolled back.
func (r *Repo) SelfTest(ctx context.Context) error {
	var recs []Record
	if err := r.db.WithContext(ctx).Limit(1).Find(&recs).Error; err != nil {
		return fmt.Errorf("read: %w", classify(err))
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		probe := &Record{
			ID:              "probe-" + uuid.NewString(),
			UserID:          "probe",
			UserName:        "Probe",
			Email:           "probe@example.com",
			ShippingAddress: "probe",
			Status:          StatusPending,
			Items:           []Item{{Product: "PROBE", Size: "-", Quantity: 1, UnitPrice: 1}},
			TotalPrice:      1,
		}
		if err := tx.Create(probe).Error; err != nil {
			return err
		}
		return errProbeRollback
	})
	if err != nil && !errors.Is(err, errProbeRollback) {
		return fmt.Errorf("write: %w", classify(err))
	}
	return nil
}

// CheckSchema verifies the order tables and the columns the assistant
// writes. Missing pieces are reported as ErrTableNotFound.
func (r *Repo) CheckSchema(ctx context.Context) error {
	m := r.db.WithContext(ctx).Migrator()
	var missing []string
	checks := []struct {
		model   any
		table   string
		columns []string
	}{
		{&Record{}, "order_placed", []string{"ID", "UserID", "Email", "TotalPrice", "ShippingAddress", "Status", "EmailSent"}},
		{&Item{}, "order_items", []string{"OrderID", "Product", "Size", "Quantity", "UnitPrice"}},
	}
	for _, c := range checks {
		if !m.HasTable(c.model) {
			missing = append(missing, c.table)
			continue
		}
		for _, col := range c.columns {
			if !m.HasColumn(c.model, col) {
				missing = append(missing, c.table+"."+col)
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrTableNotFound, strings.Join(missing, ", "))
	}
	return nil
}

func validateNew(in NewOrder) error {
	var problems []string
	if strings.TrimSpace(in.UserID) == "" {
		problems = append(problems, "user_id")
	}
	if strings.TrimSpace(in.Email) == "" {
		problems = append(problems, "email")
	}
	if utf8.RuneCountInString(strings.TrimSpace(in.ShippingAddress)) < MinAddressLen {
		problems = append(problems, "shipping_address")
	}
	if len(in.Items) == 0 {
		problems = append(problems, "items")
	}
	var total int64
	for i, it := range in.Items {
		if it.Product == "" || it.Size == "" || it.Quantity < 1 || it.Quantity > MaxQuantity || it.UnitPrice <= 0 {
			problems = append(problems, fmt.Sprintf("items[%d]", i))
			continue
		}
		if it.UnitPrice > (math.MaxInt64-total)/int64(it.Quantity) {
			problems = append(problems, "total_price")
			break
		}
		total += it.LineTotal()
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: missing or invalid %s", ErrInvalidOrder, strings.Join(problems, ", "))
	}
	return nil
}
