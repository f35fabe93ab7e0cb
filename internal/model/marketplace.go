package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// Prices are rendered as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Role is the fixed tag stored with a profile.
type Role string

const (
	RoleBuyer  Role = "user"
	RoleSeller Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleBuyer || r == RoleSeller
}

type Product struct {
	ID       int64           `json:"id"`
	Name     string          `json:"nama"`
	Category string          `json:"jenis"`
	Price    decimal.Decimal `json:"harga"`
	Stock    int             `json:"stock"`
	ImageURL string          `json:"gambarUrl"`
	SellerID string          `json:"penjualId"`

	Lines []OrderLine `json:"pesananProduk,omitempty"`
}

// Profile is a buyer or a seller. The table it lives in follows Role.
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

type Order struct {
	ID             uuid.UUID `json:"id"`
	TotalItemCount int       `json:"jumlahProduk"`
	Status         bool      `json:"status"`
	BuyerID        string    `json:"pembeliId"`
	SellerID       string    `json:"penjualId"`
	CreatedAt      time.Time `json:"createdAt"`

	Lines []OrderLine `json:"pesananProduk,omitempty"`
}

type OrderLine struct {
	ID        int64     `json:"id"`
	Quantity  int       `json:"jumlahProduk"`
	ProductID int64     `json:"produkId"`
	OrderID   uuid.UUID `json:"pesananId"`

	Product *Product `json:"produk,omitempty"`
	Order   *Order   `json:"pesanan,omitempty"`
}

// LineItem is one requested product/quantity pair of a new order.
type LineItem struct {
	ProductID int64
	Quantity  int
}

// OrderFilter selects orders for listing. Zero values do not filter.
type OrderFilter struct {
	BuyerID  string
	OpenOnly bool
}
