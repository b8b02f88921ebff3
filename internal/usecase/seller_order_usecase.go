package usecase

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

type SellerOrderUsecase struct {
	tx        repo.TransactionManager
	auditRepo repo.AuditLogRepository
}

func NewSellerOrderUsecase(tx repo.TransactionManager, auditRepo repo.AuditLogRepository) *SellerOrderUsecase {
	return &SellerOrderUsecase{tx: tx, auditRepo: auditRepo}
}

// 注文一覧
func (u *SellerOrderUsecase) List(ctx context.Context, f repo.SellerOrderListFilter) ([]OrderOutput, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListSeller(ctx, f)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

// 操作ログの一覧（セラー画面の履歴タブ用）
func (u *SellerOrderUsecase) ListAuditLogs(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	logs, err := u.auditRepo.List(ctx, f)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return logs, nil
}

// MarkPaidは代引き注文の集金をセラーが確定する操作。
// 支払い済みの注文・オンライン注文には使えない
// （オンラインはコールバック経由でしか支払い済みにならない）。
func (u *SellerOrderUsecase) MarkPaid(ctx context.Context, actorSellerUserID int64, orderID int64) error {
	if actorSellerUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 注文取得
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//遷移ガード
		if o.PaymentType != model.PaymentTypeCOD {
			return NewHTTPError(http.StatusBadRequest, "invalid transition")
		}
		if o.IsPaid {
			return NewHTTPError(http.StatusBadRequest, "invalid transition")
		}

		now := time.Now()
		if err := r.Orders().MarkPaid(ctx, orderID, "success", now); err != nil {
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		// ★監査ログ（MARK_ORDER_PAID）
		beforeJSON := fmt.Sprintf(`{"is_paid":%t}`, o.IsPaid)
		afterJSON := `{"is_paid":true}`
		if err := u.auditRepo.Create(ctx, model.AuditLog{
			ActorUserID:  actorSellerUserID,
			Action:       model.AuditActionMarkOrderPaid,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   beforeJSON,
			AfterJSON:    afterJSON,
			CreatedAt:    now,
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return nil
	})
}
