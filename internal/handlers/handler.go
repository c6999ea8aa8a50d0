package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	iwm "github.com/inkwave/member-back/internal/models"
	"github.com/inkwave/member-back/internal/services"
	"github.com/inkwave/member-back/pkg/utils"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// 允许的凭证文件类型
var allowedProofExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".pdf":  true,
}

// OrderHandler 订单相关请求处理器
type OrderHandler struct {
	orders       services.OrderWorkflow
	feed         *services.ReviewFeed
	proofDir     string
	proofMaxSize int64 // 字节
}

// NewOrderHandler 创建订单处理器
func NewOrderHandler(orders services.OrderWorkflow, feed *services.ReviewFeed,
	proofDir string, proofMaxSizeMB int64) *OrderHandler {
	if proofMaxSizeMB <= 0 {
		proofMaxSizeMB = 10
	}
	return &OrderHandler{
		orders:       orders,
		feed:         feed,
		proofDir:     proofDir,
		proofMaxSize: proofMaxSizeMB << 20,
	}
}

// CreateOrder 创建待支付订单
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	actor := h.actorFromContext(r.Context())

	var req services.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	order, err := h.orders.Checkout(r.Context(), actor, req)
	if err != nil {
		h.handleError(w, err)
		return
	}

	utils.WriteHttpResponse(w, http.StatusOK, order)
}

// GetOrders 获取当前用户的订单列表
func (h *OrderHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	actor := h.actorFromContext(r.Context())

	orders, err := h.orders.ListOrders(r.Context(), actor)
	if err != nil {
		h.handleError(w, err)
		return
	}

	utils.WriteHttpResponse(w, http.StatusOK, orders)
}

// GetOrder 获取单个订单
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	actor := h.actorFromContext(r.Context())
	orderID := mux.Vars(r)["order_id"]

	order, err := h.orders.GetOrder(r.Context(), actor, orderID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	utils.WriteHttpResponse(w, http.StatusOK, order)
}

// SubmitProof 买家提交支付凭证（multipart：proof文件 + transaction_id/remark）
func (h *OrderHandler) SubmitProof(w http.ResponseWriter, r *http.Request) {
	actor := h.actorFromContext(r.Context())
	orderID := mux.Vars(r)["order_id"]

	// 限制请求体大小
	r.Body = http.MaxBytesReader(w, r.Body, h.proofMaxSize)
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		http.Error(w, "只支持multipart/form-data格式", http.StatusBadRequest)
		return
	}
	if err := r.ParseMultipartForm(h.proofMaxSize); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	proof := services.ProofSubmission{
		TransactionID: r.FormValue("transaction_id"),
		Remark:        r.FormValue("remark"),
	}

	file, header, err := r.FormFile("proof")
	if err == nil {
		defer file.Close()
		filename, err := h.saveProofFile(orderID, header)
		if err != nil {
			h.handleError(w, err)
			return
		}
		proof.FileURL = filename
	} else if !errors.Is(err, http.ErrMissingFile) {
		http.Error(w, "Error Retrieving the File", http.StatusBadRequest)
		return
	}

	if err := h.orders.SubmitProof(r.Context(), actor, orderID, proof); err != nil {
		h.handleError(w, err)
		return
	}

	utils.WriteHttpResponse(w, http.StatusOK, map[string]string{
		"order_id": orderID,
		"message":  "proof submitted, pending review",
	})
}

// StaffReview 员工审核决定
func (h *OrderHandler) StaffReview(w http.ResponseWriter, r *http.Request) {
	actor := h.actorFromContext(r.Context())

	var req services.ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	message, err := h.orders.Review(r.Context(), actor, req)
	if err != nil {
		h.handleError(w, err)
		return
	}

	utils.WriteHttpResponse(w, http.StatusOK, map[string]string{
		"order_id": req.OrderID,
		"message":  message,
	})
}

// RequestRefund 买家申请退款
func (h *OrderHandler) RequestRefund(w http.ResponseWriter, r *http.Request) {
	actor := h.actorFromContext(r.Context())
	orderID := mux.Vars(r)["order_id"]

	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.orders.RequestRefund(r.Context(), actor, orderID, req.Reason); err != nil {
		h.handleError(w, err)
		return
	}

	utils.WriteHttpResponse(w, http.StatusOK, map[string]string{
		"order_id": orderID,
		"message":  "refund requested, pending review",
	})
}

// DecideRefund 员工裁决退款申请
func (h *OrderHandler) DecideRefund(w http.ResponseWriter, r *http.Request) {
	actor := h.actorFromContext(r.Context())

	var req services.RefundDecision
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.orders.DecideRefund(r.Context(), actor, req); err != nil {
		h.handleError(w, err)
		return
	}

	message := "refund rejected, order restored"
	if req.Approved {
		message = "refund approved"
	}
	utils.WriteHttpResponse(w, http.StatusOK, map[string]string{
		"order_id": req.OrderID,
		"message":  message,
	})
}

// UpgradeWS WebSocket升级处理，审核后台实时通道
func (h *OrderHandler) UpgradeWS(w http.ResponseWriter, r *http.Request) {
	var upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true // 根据安全需求调整
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	slog.Debug("新建连接", "connptr", fmt.Sprintf("%p", conn))
	if err != nil {
		return
	}

	// 首帧鉴权并注册
	h.feed.AuthenticateAndRegister(conn)
}

// saveProofFile 保存凭证文件到 proofDir/<order_id>/ 下
func (h *OrderHandler) saveProofFile(orderID string, header *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedProofExts[ext] {
		return "", &iwm.ValidationError{Reason: fmt.Sprintf("unsupported proof file type: %s", ext)}
	}
	if header.Size > h.proofMaxSize {
		return "", &iwm.ValidationError{Reason: "proof file too large"}
	}

	dir := filepath.Join(h.proofDir, orderID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Error("无法创建存储目录", "err", err)
		return "", fmt.Errorf("create proof dir failed: %w", err)
	}

	filename := fmt.Sprintf("%d%s", time.Now().Unix(), ext)
	if err := saveFile(header, filepath.Join(dir, filename)); err != nil {
		return "", fmt.Errorf("save proof file failed: %w", err)
	}
	return filepath.Join(orderID, filename), nil
}

// 保存上传的文件
func saveFile(fileHeader *multipart.FileHeader, targetPath string) error {
	// 打开文件
	src, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	// 创建目标文件
	dst, err := os.Create(targetPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	// 复制文件内容
	_, err = io.Copy(dst, src)
	return err
}

// handleError 统一错误处理
func (h *OrderHandler) handleError(w http.ResponseWriter, err error) {
	slog.Error("Handler error", "error", err)

	var invalidState *iwm.InvalidStateError
	var validation *iwm.ValidationError

	switch {
	case errors.Is(err, iwm.ErrOrderNotFound), errors.Is(err, iwm.ErrUserNotFound):
		utils.WriteHttpResponse(w, http.StatusNotFound, map[string]string{
			"error": "not_found", "message": "resource not found",
		})
	case errors.Is(err, iwm.ErrPermissionDenied):
		utils.WriteHttpResponse(w, http.StatusForbidden, map[string]string{
			"error": "forbidden", "message": "permission denied",
		})
	case errors.As(err, &invalidState):
		utils.WriteHttpResponse(w, http.StatusBadRequest, map[string]string{
			"error": "invalid_state", "message": invalidState.Error(),
		})
	case errors.As(err, &validation):
		utils.WriteHttpResponse(w, http.StatusBadRequest, map[string]string{
			"error": "validation", "message": validation.Error(),
		})
	default:
		utils.WriteHttpResponse(w, http.StatusInternalServerError, map[string]string{
			"error": "internal", "message": "internal server error",
		})
	}
}

// actorFromContext 从上下文获取请求方身份
func (h *OrderHandler) actorFromContext(ctx context.Context) services.Actor {
	actor := services.Actor{Role: iwm.RoleUser}
	if userID, ok := ctx.Value("userid").(uint); ok {
		actor.UserID = userID
	}
	if role, ok := ctx.Value("role").(string); ok && role != "" {
		actor.Role = role
	}
	return actor
}
