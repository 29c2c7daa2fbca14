package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/gatehouse/internal/repository"
)

// healthPingTimeout はセッションストア疎通確認のタイムアウト。
const healthPingTimeout = 2 * time.Second

// Pinger はストアへの疎通確認を行う。
type Pinger interface {
	Ping(ctx context.Context) error
}

// FirebaseInfo はヘルスチェックで公開するFirebase設定の概要。
type FirebaseInfo struct {
	ProjectID      string `json:"projectId"`
	Database       string `json:"database"`
	ServiceAccount string `json:"serviceAccount"`
}

type healthResponse struct {
	Status   string       `json:"status"`
	Firebase FirebaseInfo `json:"firebase"`
	Session  bool         `json:"session"`
}

// HealthHandler はヘルスチェックのHTTPハンドラー。
type HealthHandler struct {
	firebase FirebaseInfo
	sessions Pinger
}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler(firebase FirebaseInfo, sessions Pinger) *HealthHandler {
	return &HealthHandler{
		firebase: firebase,
		sessions: sessions,
	}
}

// Health はサービスの状態を返す。セッションストアが応答しない場合もstatusは"ok"のまま。
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	sessionOK := true
	if err := h.sessions.Ping(ctx); err != nil {
		slog.Warn("session store ping failed", slog.String("error", err.Error()))
		sessionOK = false
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Firebase: h.firebase,
		Session:  sessionOK,
	})
}

// FirestoreProber はFirestoreへの書き込み・読み出しを試行する。
type FirestoreProber interface {
	WriteTestDocument(ctx context.Context) (*repository.ProbeDocument, error)
}

type probeSuccessResponse struct {
	Success  bool                      `json:"success"`
	Document *repository.ProbeDocument `json:"document"`
}

type probeErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// DiagnosticHandler は外部依存の診断用HTTPハンドラー。
type DiagnosticHandler struct {
	prober FirestoreProber
}

// NewDiagnosticHandler はDiagnosticHandlerを生成する。
func NewDiagnosticHandler(prober FirestoreProber) *DiagnosticHandler {
	return &DiagnosticHandler{prober: prober}
}

// TestFirestore はテスト用ドキュメントを書き込んで読み戻す。
// GET /test-firestore
func (h *DiagnosticHandler) TestFirestore(w http.ResponseWriter, r *http.Request) {
	doc, err := h.prober.WriteTestDocument(r.Context())
	if err != nil {
		slog.Error("firestore test failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, probeErrorResponse{
			Error:   "Firestore test failed",
			Details: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, probeSuccessResponse{
		Success:  true,
		Document: doc,
	})
}
