package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleBuyer      Role = "buyer"
	RoleSeller     Role = "seller"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   int64 `json:"id"`
	Role Role  `json:"role"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin || a.Role == RoleSuperAdmin
}

func (a Actor) IsSeller() bool {
	return a.Role == RoleSeller
}

type Product struct {
	ID            int64           `json:"id"`
	SellerID      int64           `json:"seller_id"`
	CategoryID    int64           `json:"category_id"`
	NameAr        string          `json:"name_ar"`
	NameEn        string          `json:"name_en"`
	DescriptionAr string          `json:"description_ar"`
	DescriptionEn string          `json:"description_en"`
	Price         decimal.Decimal `json:"price"`
	Quantity      int             `json:"quantity"`

	IsApproved          bool       `json:"is_approved"`
	ApprovedBy          *int64     `json:"approved_by,omitempty"`
	ApprovedAt          *time.Time `json:"approved_at,omitempty"`
	DisapprovalReasonAr string     `json:"disapproval_reason_ar,omitempty"`
	DisapprovalReasonEn string     `json:"disapproval_reason_en,omitempty"`

	HasStandaloneDiscount        bool                `json:"has_standalone_discount"`
	StandaloneDiscountPercentage decimal.NullDecimal `json:"standalone_discount_percentage"`
	StandaloneDiscountStart      *time.Time          `json:"standalone_discount_start,omitempty"`
	StandaloneDiscountEnd        *time.Time          `json:"standalone_discount_end,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SaleEvent struct {
	ID            int64     `json:"id"`
	NameAr        string    `json:"name_ar"`
	NameEn        string    `json:"name_en"`
	DescriptionAr string    `json:"description_ar"`
	DescriptionEn string    `json:"description_en"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	CreatedBy     int64     `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

// ActiveAt reports whether now falls inside [StartDate, EndDate].
func (e SaleEvent) ActiveAt(now time.Time) bool {
	return !now.Before(e.StartDate) && !now.After(e.EndDate)
}

// ProductSale binds a product into a sale event. StartDate and EndDate are
// copied from the event when the row is created and never refreshed; Event
// carries the live event row whenever the store loads one.
type ProductSale struct {
	ID                 int64           `json:"id"`
	ProductID          int64           `json:"product_id"`
	SaleEventID        int64           `json:"sale_event_id"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	StartDate          time.Time       `json:"start_date"`
	EndDate            time.Time       `json:"end_date"`
	CreatedAt          time.Time       `json:"created_at"`

	Event SaleEvent `json:"sale_event"`
}

// WindowActiveAt checks the window frozen at attach time.
func (s ProductSale) WindowActiveAt(now time.Time) bool {
	return !now.Before(s.StartDate) && !now.After(s.EndDate)
}

type Cart struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type CartItem struct {
	ID        int64     `json:"id"`
	CartID    int64     `json:"cart_id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

type Wishlist struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type WishlistItem struct {
	ID         int64     `json:"id"`
	WishlistID int64     `json:"wishlist_id"`
	ProductID  int64     `json:"product_id"`
	AddedAt    time.Time `json:"added_at"`
}

type NotificationType string

const (
	NotificationProductApproved    NotificationType = "product_approved"
	NotificationProductDisapproved NotificationType = "product_disapproved"
	NotificationWishlistDiscount   NotificationType = "wishlist_discount"
)

// Notification is an outbound event handed to the delivery collaborator.
type Notification struct {
	ID          string            `json:"id"`
	UserID      int64             `json:"user_id"`
	Type        NotificationType  `json:"notification_type"`
	MessageAr   string            `json:"message_ar"`
	MessageEn   string            `json:"message_en"`
	SubjectKind string            `json:"subject_kind,omitempty"`
	SubjectID   int64             `json:"subject_id,omitempty"`
	ExtraData   map[string]string `json:"extra_data,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}
