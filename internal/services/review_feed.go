package services

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	iwm "github.com/inkwave/member-back/internal/models"

	"github.com/bytedance/gopkg/util/gopool"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// OrderEvent 推送给审核后台的订单事件
type OrderEvent struct {
	Type    string            `json:"type"` // review_queue/refund_request
	OrderID string            `json:"order_id"`
	OrderNo string            `json:"order_no"`
	UserID  uint              `json:"user_id"`
	Status  iwm.PaymentStatus `json:"status"`
	Amount  int               `json:"amount"`
}

type TerminalKey struct {
	UserID uint
	Random string //随机短串
}

func (t TerminalKey) ToString() string {
	return fmt.Sprintf("%d:%s", t.UserID, t.Random)
}

// ReviewFeed 审核后台实时通道：员工连接后接收进入审核队列的订单和退款申请
type ReviewFeed struct {
	// 一个连接对应一个员工终端
	connections     map[TerminalKey]*websocket.Conn
	jwt             JWTService
	cleanupInterval time.Duration
	sync.RWMutex
}

func NewReviewFeed(jwt JWTService, cleanupInterval time.Duration) *ReviewFeed {
	f := &ReviewFeed{
		connections:     make(map[TerminalKey]*websocket.Conn),
		jwt:             jwt,
		cleanupInterval: cleanupInterval,
	}
	f.start()
	return f
}

func generateTerminalKey(userID uint) TerminalKey {
	return TerminalKey{
		userID,
		uuid.New().String()[:8], // 短随机会话ID
	}
}

func (f *ReviewFeed) setConnection(key TerminalKey, conn *websocket.Conn) {
	f.Lock()
	defer f.Unlock()
	f.connections[key] = conn
}

func (f *ReviewFeed) removeConnection(key TerminalKey) {
	f.Lock()
	defer f.Unlock()
	delete(f.connections, key)
}

// AuthenticateAndRegister 首帧鉴权：5秒内必须送达合法的管理员token
func (f *ReviewFeed) AuthenticateAndRegister(conn *websocket.Conn) {
	defer func() {
		if err := recover(); err != nil {
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "Server Error"),
				time.Now().Add(5*time.Second),
			)
		}
	}()

	// 首帧鉴权超时（5秒）
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var frame struct {
		Type string `json:"type"`
		Data string `json:"data"`
	}
	if err := conn.ReadJSON(&frame); err != nil || frame.Type != "auth" {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "auth frame required"),
			time.Now().Add(5*time.Second),
		)
		conn.Close()
		return
	}

	claims, err := f.jwt.ValidateToken(frame.Data)
	if err != nil {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid token"),
			time.Now().Add(5*time.Second),
		)
		conn.Close()
		return
	}
	if err := RequireRole(Actor{UserID: claims.UserID, Role: claims.Role}, iwm.RoleAdmin); err != nil {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "admin only"),
			time.Now().Add(5*time.Second),
		)
		conn.Close()
		return
	}

	conn.SetReadDeadline(time.Time{})
	key := generateTerminalKey(claims.UserID)
	f.setConnection(key, conn)
	conn.WriteJSON(map[string]string{"type": "auth", "data": "ok"})
	slog.Info("review feed terminal connected", "terminal", key.ToString())

	// 读循环只用来感知连接断开
	gopool.Go(func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				f.removeConnection(key)
				conn.Close()
				return
			}
		}
	})
}

// Broadcast 异步推送，推送失败只断开对应终端，不影响调用方
func (f *ReviewFeed) Broadcast(ev OrderEvent) {
	gopool.Go(func() {
		f.RLock()
		targets := make(map[TerminalKey]*websocket.Conn, len(f.connections))
		for k, c := range f.connections {
			targets[k] = c
		}
		f.RUnlock()

		for key, conn := range targets {
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(ev); err != nil {
				slog.Warn("review feed push failed", "terminal", key.ToString(), "error", err)
				f.removeConnection(key)
				conn.Close()
			}
		}
	})
}

// start 定期心跳，清理已失效的连接
func (f *ReviewFeed) start() {
	gopool.Go(func() {
		ticker := time.NewTicker(f.cleanupInterval)
		defer ticker.Stop()
		for range ticker.C {
			f.RLock()
			targets := make(map[TerminalKey]*websocket.Conn, len(f.connections))
			for k, c := range f.connections {
				targets[k] = c
			}
			f.RUnlock()

			for key, conn := range targets {
				if err := conn.WriteControl(websocket.PingMessage, nil,
					time.Now().Add(5*time.Second)); err != nil {
					f.removeConnection(key)
					conn.Close()
				}
			}
		}
	})
}
