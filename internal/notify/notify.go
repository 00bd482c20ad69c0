// Package notify builds outbound notifications and defines where they go.
// Services publish only after their transaction has committed.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, n models.Notification) error
}

// LogPublisher writes notifications to the log. Used when no Redis is
// configured.
type LogPublisher struct {
	Logger *zap.Logger
}

func (p LogPublisher) Publish(_ context.Context, n models.Notification) error {
	p.Logger.Info("notification",
		zap.String("id", n.ID),
		zap.Int64("user_id", n.UserID),
		zap.String("type", string(n.Type)),
		zap.String("message", n.MessageEn),
	)
	return nil
}

// Recorder keeps every published notification in memory.
type Recorder struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (r *Recorder) Publish(_ context.Context, n models.Notification) error {
	r.mu.Lock()
	r.sent = append(r.sent, n)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Sent() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Notification, len(r.sent))
	copy(out, r.sent)
	return out
}

func newNotification(userID int64, typ models.NotificationType, at time.Time) models.Notification {
	return models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		CreatedAt: at,
	}
}

func ProductApproved(p models.Product, at time.Time) models.Notification {
	n := newNotification(p.SellerID, models.NotificationProductApproved, at)
	n.MessageAr = fmt.Sprintf("تمت الموافقة على منتجك: %s", p.NameAr)
	n.MessageEn = fmt.Sprintf("Your product was approved: %s", p.NameEn)
	n.SubjectKind = "product"
	n.SubjectID = p.ID
	return n
}

func ProductDisapproved(p models.Product, at time.Time) models.Notification {
	n := newNotification(p.SellerID, models.NotificationProductDisapproved, at)
	n.MessageAr = fmt.Sprintf("تم رفض منتجك: %s. السبب: %s", p.NameAr, p.DisapprovalReasonAr)
	n.MessageEn = fmt.Sprintf("Your product was rejected: %s. Reason: %s", p.NameEn, p.DisapprovalReasonEn)
	n.SubjectKind = "product"
	n.SubjectID = p.ID
	n.ExtraData = map[string]string{"disapproval_reason": p.DisapprovalReasonAr}
	return n
}

func WishlistDiscount(userID int64, p models.Product, sale models.ProductSale, at time.Time) models.Notification {
	n := newNotification(userID, models.NotificationWishlistDiscount, at)
	pct := sale.DiscountPercentage.String()
	n.MessageAr = fmt.Sprintf("منتج في قائمة أمنياتك عليه خصم %s%%: %s", pct, p.NameAr)
	n.MessageEn = fmt.Sprintf("An item on your wishlist is %s%% off: %s", pct, p.NameEn)
	n.SubjectKind = "product"
	n.SubjectID = p.ID
	n.ExtraData = map[string]string{
		"sale_event_id":       fmt.Sprint(sale.SaleEventID),
		"discount_percentage": pct,
	}
	return n
}
