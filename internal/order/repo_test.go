package order

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(gormsqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&Record{}, &Item{}))
	return db
}

func sampleOrder() NewOrder {
	return NewOrder{
		UserID:   "u-1",
		UserName: "Sam",
		Email:    "sam@example.com",
		Items: []Item{
			{Product: "TrainTech Performance Tee", Size: "M", Quantity: 2, UnitPrice: 3499},
			{Product: "FlexFit training shorts", Size: "L", Quantity: 1, UnitPrice: 3999},
		},
		ShippingAddress: "1 Main St, City, 00000",
	}
}

func TestRepo_CreateAndGet(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	rec, err := repo.Create(ctx, sampleOrder())
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, int64(10997), rec.TotalPrice)
	assert.Equal(t, StatusPending, rec.Status)
	assert.False(t, rec.EmailSent)

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "TrainTech Performance Tee", got.Items[0].Product)
	assert.Equal(t, "L", got.Items[1].Size)
	assert.Equal(t, int64(10997), got.TotalPrice)
}

func TestRepo_CreateRejectsInvalid(t *testing.T) {
	repo := NewRepo(openTestDB(t))

	in := sampleOrder()
	in.Items[1].Quantity = 0
	in.ShippingAddress = "NYC"

	_, err := repo.Create(context.Background(), in)
	require.ErrorIs(t, err, ErrInvalidOrder)
	assert.Contains(t, err.Error(), "items[1]")
	assert.Contains(t, err.Error(), "shipping_address")
}

func TestRepo_CreateRejectsOutOfRange(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	in := sampleOrder()
	in.Items[0].Quantity = MaxQuantity + 1
	_, err := repo.Create(ctx, in)
	require.ErrorIs(t, err, ErrInvalidOrder)
	assert.Contains(t, err.Error(), "items[0]")

	in = sampleOrder()
	in.Items[0].UnitPrice = math.MaxInt64 / 2
	in.Items[0].Quantity = 3
	_, err = repo.Create(ctx, in)
	require.ErrorIs(t, err, ErrInvalidOrder)
	assert.Contains(t, err.Error(), "total_price")

	// four characters, twelve bytes
	in = sampleOrder()
	in.ShippingAddress = "東京都港"
	_, err = repo.Create(ctx, in)
	require.ErrorIs(t, err, ErrInvalidOrder)
	assert.Contains(t, err.Error(), "shipping_address")

	in.ShippingAddress = "東京都港区"
	_, err = repo.Create(ctx, in)
	require.NoError(t, err)
}

func TestRepo_GetByID_NotFound(t *testing.T) {
	repo := NewRepo(openTestDB(t))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetByID(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepo_MissingTableIsClassified(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Migrator().DropTable(&Item{}, &Record{}))
	repo := NewRepo(db)

	_, err := repo.Create(context.Background(), sampleOrder())
	assert.ErrorIs(t, err, ErrTableNotFound)

	err = repo.CheckSchema(context.Background())
	require.ErrorIs(t, err, ErrTableNotFound)
	assert.Contains(t, err.Error(), "order_placed")

	assert.ErrorIs(t, repo.SelfTest(context.Background()), ErrTableNotFound)
}

func TestRepo_StatusAndEmailFlags(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	rec, err := repo.Create(ctx, sampleOrder())
	require.NoError(t, err)

	require.NoError(t, repo.MarkEmailSent(ctx, rec.ID))
	require.NoError(t, repo.UpdateStatus(ctx, rec.ID, StatusProcessing))

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, got.EmailSent)
	assert.Equal(t, StatusProcessing, got.Status)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, "nope", StatusShipped), ErrNotFound)
	assert.ErrorIs(t, repo.MarkEmailSent(ctx, "nope"), ErrNotFound)
}

func TestRepo_CancelPending(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	rec, err := repo.Create(ctx, sampleOrder())
	require.NoError(t, err)

	assert.ErrorIs(t, repo.CancelPending(ctx, rec.ID, "someone-else"), ErrNotFound)
	require.NoError(t, repo.CancelPending(ctx, rec.ID, "u-1"))
	// already cancelled
	assert.ErrorIs(t, repo.CancelPending(ctx, rec.ID, "u-1"), ErrNotFound)
}

func TestRepo_ListAndCount(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, sampleOrder())
		require.NoError(t, err)
	}
	other := sampleOrder()
	other.UserID = "u-2"
	_, err := repo.Create(ctx, other)
	require.NoError(t, err)

	recs, err := repo.ListByUser(ctx, "u-1", 0)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
	for _, r := range recs {
		assert.Len(t, r.Items, 2)
	}

	n, err := repo.CountByUser(ctx, "u-2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRepo_RestoreKeepsID(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	rec := &Record{
		ID:              "fallback-01hx0000000000000000000000",
		UserID:          "u-1",
		UserName:        "Sam",
		Email:           "sam@example.com",
		Items:           sampleOrder().Items,
		ShippingAddress: "1 Main St, City, 00000",
	}
	rec.TotalPrice = rec.Sum()

	inserted, err := repo.Restore(ctx, rec)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Restore(ctx, rec)
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Len(t, got.Items, 2)
}

func TestRepo_SelfTestLeavesNoRows(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)

	require.NoError(t, repo.SelfTest(context.Background()))
	require.NoError(t, repo.CheckSchema(context.Background()))

	var n int64
	require.NoError(t, db.Model(&Record{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"record not found", gorm.ErrRecordNotFound, ErrNotFound},
		{"mysql no table", &mysql.MySQLError{Number: 1146, Message: "Table 'x.order_placed' doesn't exist"}, ErrTableNotFound},
		{"mysql denied", &mysql.MySQLError{Number: 1142, Message: "INSERT command denied"}, ErrPermissionDenied},
		{"postgres relation", errors.New(`relation "order_placed" does not exist`), ErrTableNotFound},
		{"rls", errors.New("new row violates row-level security policy (42501)"), ErrPermissionDenied},
		{"sqlite readonly", errors.New("attempt to write a readonly database"), ErrPermissionDenied},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, classify(tc.err), tc.want)
		})
	}

	plain := errors.New("connection reset")
	got := classify(plain)
	assert.Equal(t, plain, got)
	assert.NoError(t, classify(nil))
}
