package usecase

import (
	"context"
	"net/http"
	"testing"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type sellerNotifFixture struct {
	tx     *TxManagerMock
	notifs *NotificationRepoMock
	audit  *AuditRepoMock
	uc     *SellerNotificationUsecase
}

func newSellerNotifFixture() *sellerNotifFixture {
	f := &sellerNotifFixture{
		notifs: new(NotificationRepoMock),
		audit:  new(AuditRepoMock),
	}
	f.tx = &TxManagerMock{Repos: &TxReposMock{
		notifications: f.notifs,
	}}
	f.tx.On("WithinTx", mock.Anything).Return(nil)

	f.uc = NewSellerNotificationUsecase(f.tx, f.audit)
	return f
}

func TestSellerNotificationList_Success(t *testing.T) {
	f := newSellerNotifFixture()

	filter := repo.NotificationListFilter{Page: 1, Limit: 20, UnreadOnly: true}
	f.notifs.On("ListBySellerID", mock.Anything, int64(7), filter).
		Return([]model.Notification{{ID: 1, SellerID: 7}}, int64(1), nil)

	out, err := f.uc.List(context.Background(), 7, filter)

	assert.NoError(t, err)
	assert.Equal(t, int64(1), out.Total)
	assert.Len(t, out.Items, 1)
	assert.Equal(t, 1, out.Page)
}

func TestSellerNotificationMarkRead_OtherSellersIsNotFound(t *testing.T) {
	f := newSellerNotifFixture()

	f.notifs.On("FindByID", mock.Anything, int64(1)).
		Return(model.Notification{ID: 1, SellerID: 99}, nil)

	err := f.uc.MarkRead(context.Background(), 7, 1)

	assertHTTPStatus(t, err, http.StatusNotFound)
	f.notifs.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything)
}

func TestSellerNotificationMarkRead_Success(t *testing.T) {
	f := newSellerNotifFixture()

	f.notifs.On("FindByID", mock.Anything, int64(1)).
		Return(model.Notification{ID: 1, SellerID: 7}, nil)
	f.notifs.On("MarkRead", mock.Anything, int64(1)).Return(nil)

	err := f.uc.MarkRead(context.Background(), 7, 1)

	assert.NoError(t, err)
	f.notifs.AssertExpectations(t)
}

func TestSellerNotificationDelete_WritesAuditLog(t *testing.T) {
	f := newSellerNotifFixture()

	f.notifs.On("FindByID", mock.Anything, int64(1)).
		Return(model.Notification{ID: 1, SellerID: 7}, nil)
	f.notifs.On("Delete", mock.Anything, int64(1)).Return(nil)
	f.audit.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionDeleteNotification &&
			l.ResourceType == model.AuditResourceNotification &&
			l.ResourceID == int64(1) &&
			l.ActorUserID == int64(7)
	})).Return(nil)

	err := f.uc.Delete(context.Background(), 7, 1)

	assert.NoError(t, err)
	f.audit.AssertExpectations(t)
}

func TestSellerNotificationDelete_NotFound(t *testing.T) {
	f := newSellerNotifFixture()

	f.notifs.On("FindByID", mock.Anything, int64(404)).
		Return(model.Notification{}, repo.ErrNotFound)

	err := f.uc.Delete(context.Background(), 7, 404)

	assertHTTPStatus(t, err, http.StatusNotFound)
	f.audit.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
