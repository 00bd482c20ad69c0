package notify

import (
	"context"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var at = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestModerationNotifications(t *testing.T) {
	p := models.Product{ID: 4, SellerID: 10, NameAr: "قميص", NameEn: "Shirt", DisapprovalReasonAr: "صور ناقصة"}

	approved := ProductApproved(p, at)
	assert.Equal(t, int64(10), approved.UserID)
	assert.Equal(t, models.NotificationProductApproved, approved.Type)
	assert.Equal(t, int64(4), approved.SubjectID)
	assert.Contains(t, approved.MessageEn, "Shirt")
	assert.Equal(t, at, approved.CreatedAt)
	_, err := uuid.Parse(approved.ID)
	require.NoError(t, err)

	rejected := ProductDisapproved(p, at)
	assert.Equal(t, models.NotificationProductDisapproved, rejected.Type)
	assert.Equal(t, "صور ناقصة", rejected.ExtraData["disapproval_reason"])
	assert.NotEqual(t, approved.ID, rejected.ID)
}

func TestWishlistDiscount(t *testing.T) {
	p := models.Product{ID: 4, SellerID: 10, NameEn: "Shirt"}
	sale := models.ProductSale{SaleEventID: 7, DiscountPercentage: decimal.RequireFromString("15.50")}

	n := WishlistDiscount(100, p, sale, at)
	assert.Equal(t, int64(100), n.UserID)
	assert.Equal(t, models.NotificationWishlistDiscount, n.Type)
	assert.Equal(t, "7", n.ExtraData["sale_event_id"])
	assert.Equal(t, "15.5", n.ExtraData["discount_percentage"])
	assert.Contains(t, n.MessageEn, "15.5% off")
}

func TestPublishers(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	lp := LogPublisher{Logger: zap.New(core)}
	n := ProductApproved(models.Product{ID: 1, SellerID: 2}, at)
	require.NoError(t, lp.Publish(context.Background(), n))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, int64(2), logs.All()[0].ContextMap()["user_id"])

	rec := &Recorder{}
	require.NoError(t, rec.Publish(context.Background(), n))
	sent := rec.Sent()
	require.Len(t, sent, 1)
	sent[0].UserID = 99
	assert.Equal(t, int64(2), rec.Sent()[0].UserID, "Sent returns a copy")
}
