package order

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

const (
	// MaxQuantity bounds a single line so totals stay well inside int64.
	MaxQuantity = 1000
	// MinAddressLen is counted in characters, not bytes.
	MinAddressLen = 5
)

// Record is one placed order. Once created only Status and EmailSent change.
type Record struct {
	ID              string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserID          string    `gorm:"type:varchar(64);index;not null" json:"user_id"`
	UserName        string    `gorm:"type:varchar(128);not null" json:"user_name"`
	Email           string    `gorm:"type:varchar(255);not null" json:"email"`
	Items           []Item    `gorm:"foreignKey:OrderID;references:ID" json:"items"`
	TotalPrice      int64     `gorm:"not null" json:"total_price"`
	ShippingAddress string    `gorm:"type:text;not null" json:"shipping_address"`
	Status          Status    `gorm:"type:varchar(16);index;not null" json:"status"`
	EmailSent       bool      `gorm:"not null;default:false" json:"email_sent"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Record) TableName() string { return "order_placed" }

type Item struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement" json:"-"`
	OrderID   string `gorm:"type:varchar(64);index:idx_order_item_pos,priority:1;not null" json:"-"`
	Position  int    `gorm:"index:idx_order_item_pos,priority:2;not null" json:"-"`
	Product   string `gorm:"type:varchar(128);not null" json:"product"`
	Size      string `gorm:"type:varchar(16);not null" json:"size"`
	Quantity  int    `gorm:"not null" json:"quantity"`
	UnitPrice int64  `gorm:"not null" json:"unit_price"`
}

func (Item) TableName() string { return "order_items" }

func (i Item) LineTotal() int64 { return i.UnitPrice * int64(i.Quantity) }

// Sum recomputes the total from the items.
func (r *Record) Sum() int64 {
	var total int64
	for _, it := range r.Items {
		total += it.LineTotal()
	}
	return total
}

// NewOrder is the fully validated input to Create.
type NewOrder struct {
	UserID          string
	UserName        string
	Email           string
	Items           []Item
	ShippingAddress string
}
